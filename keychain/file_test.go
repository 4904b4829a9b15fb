package keychain

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"
)

func newFileKeychain(t *testing.T) *File {
	t.Helper()
	kc, err := NewFile(t.TempDir())
	if err != nil {
		t.Fatalf("NewFile() error: %v", err)
	}
	return kc
}

func TestFilePutGet(t *testing.T) {
	kc := newFileKeychain(t)
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
}

func TestFileSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	kc, err := NewFile(dir)
	if err != nil {
		t.Fatalf("NewFile() error: %v", err)
	}
	if err := kc.Put("item", []byte{1, 2}); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	reopened, err := NewFile(dir)
	if err != nil {
		t.Fatalf("NewFile() reopen error: %v", err)
	}
	got, err := reopened.Get("item")
	if err != nil {
		t.Fatalf("Get() after reopen error: %v", err)
	}
	if !bytes.Equal(got, []byte{1, 2}) {
		t.Errorf("Get() after reopen = %v, want [1 2]", got)
	}
}

func TestFileGetMissing(t *testing.T) {
	kc := newFileKeychain(t)
	if _, err := kc.Get("missing"); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("Get() error = %v, want ErrItemNotFound", err)
	}
}

func TestFilePutExisting(t *testing.T) {
	kc := newFileKeychain(t)
	if err := kc.Put("item", []byte{1}); err != nil {
		t.Fatalf("Put() error: %v", err)
	}
	if err := kc.Put("item", []byte{2}); !errors.Is(err, ErrItemExists) {
		t.Errorf("second Put() error = %v, want ErrItemExists", err)
	}
}

func TestFileSoftDelete(t *testing.T) {
	kc := newFileKeychain(t)
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

	// The material is still recoverable under the tombstone file.
	entries, err := os.ReadDir(kc.dir)
	if err != nil {
		t.Fatalf("ReadDir() error: %v", err)
	}
	var tombstones int
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), "item-deleted-") {
			tombstones++
		}
	}
	if tombstones != 1 {
		t.Errorf("tombstone count = %d, want 1", tombstones)
	}
}

func TestFileRejectsPathNames(t *testing.T) {
	kc := newFileKeychain(t)
	for _, name := range []string{"", "a/b", `a\b`, "../escape"} {
		if err := kc.Put(name, []byte{1}); err == nil {
			t.Errorf("Put(%q) succeeded, want error", name)
		}
	}
}

func TestFilePermissions(t *testing.T) {
	kc := newFileKeychain(t)
	if err := kc.Put("item", []byte{1}); err != nil {
		t.Fatalf("Put() error: %v", err)
	}
	info, err := os.Stat(kc.dir + "/item")
	if err != nil {
		t.Fatalf("Stat() error: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("item mode = %o, want 600", perm)
	}
}
