package keychain

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestPutGet(t *testing.T) {
	kc := NewInMemory()
	material := []byte{1, 2, 3, 4}

	if err := kc.Put("item", material); err != nil {
		t.Fatalf("Put() error: %v", err)
	}
	got, err := kc.Get("item")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if !bytes.Equal(got, material) {
		t.Errorf("Get() = %v, want %v", got, material)
	}

	// Mutating the returned slice must not affect the stored copy.
	got[0] = 99
	again, err := kc.Get("item")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if again[0] != 1 {
		t.Error("Get() returned a reference to the stored material")
	}
}

func TestGetMissing(t *testing.T) {
	kc := NewInMemory()
	if _, err := kc.Get("missing"); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("Get() error = %v, want ErrItemNotFound", err)
	}
}

func TestPutExisting(t *testing.T) {
	kc := NewInMemory()
	if err := kc.Put("item", []byte{1}); err != nil {
		t.Fatalf("Put() error: %v", err)
	}
	if err := kc.Put("item", []byte{2}); !errors.Is(err, ErrItemExists) {
		t.Errorf("second Put() error = %v, want ErrItemExists", err)
	}
}

func TestSoftDelete(t *testing.T) {
	kc := NewInMemory()
	if err := kc.Put("item", []byte{1}); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	if err := kc.SoftDelete("item"); err != nil {
		t.Fatalf("SoftDelete() error: %v", err)
	}
	if _, err := kc.Get("item"); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("Get() after soft delete error = %v, want ErrItemNotFound", err)
	}

	// The original name is free again.
	if err := kc.Put("item", []byte{2}); err != nil {
		t.Errorf("Put() after soft delete error: %v", err)
	}

	// The material is still recoverable under the tombstone name.
	var tombstones int
	for name := range kc.data {
		if strings.HasPrefix(name, "item-deleted-") {
			tombstones++
		}
	}
	if tombstones != 1 {
		t.Errorf("tombstone count = %d, want 1", tombstones)
	}
}

func TestSoftDeleteMissing(t *testing.T) {
	kc := NewInMemory()
	if err := kc.SoftDelete("missing"); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("SoftDelete() error = %v, want ErrItemNotFound", err)
	}
}
