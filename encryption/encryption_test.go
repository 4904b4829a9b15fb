package encryption

import (
	"bytes"
	"errors"
	"testing"
)

func TestSealOpenRoundTrip(t *testing.T) {
	key, err := NewKey()
	if err != nil {
		t.Fatalf("NewKey() error: %v", err)
	}

	plaintext := []byte("secp256k1 secret key bytes")
	aad := []byte("key-id-1234")

	sealed, err := key.Seal(plaintext, aad)
	if err != nil {
		t.Fatalf("Seal() error: %v", err)
	}
	if bytes.Contains(sealed, plaintext) {
		t.Fatal("sealed blob contains the plaintext")
	}

	opened, err := key.Open(sealed, aad)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if !bytes.Equal(opened, plaintext) {
		t.Errorf("Open() = %q, want %q", opened, plaintext)
	}
}

func TestOpenRejectsWrongAAD(t *testing.T) {
	key, err := NewKey()
	if err != nil {
		t.Fatalf("NewKey() error: %v", err)
	}
	sealed, err := key.Seal([]byte("secret"), []byte("key-id-a"))
	if err != nil {
		t.Fatalf("Seal() error: %v", err)
	}

	if _, err := key.Open(sealed, []byte("key-id-b")); !errors.Is(err, ErrDecrypt) {
		t.Errorf("Open() with wrong aad error = %v, want ErrDecrypt", err)
	}
}

func TestOpenRejectsWrongKey(t *testing.T) {
	key, _ := NewKey()
	other, _ := NewKey()
	sealed, err := key.Seal([]byte("secret"), nil)
	if err != nil {
		t.Fatalf("Seal() error: %v", err)
	}

	if _, err := other.Open(sealed, nil); !errors.Is(err, ErrDecrypt) {
		t.Errorf("Open() with wrong key error = %v, want ErrDecrypt", err)
	}
}

func TestOpenRejectsTamperedCiphertext(t *testing.T) {
	key, _ := NewKey()
	sealed, err := key.Seal([]byte("secret"), nil)
	if err != nil {
		t.Fatalf("Seal() error: %v", err)
	}

	// Flip one byte near the end of the blob, inside the ciphertext field.
	tampered := bytes.Replace(sealed, []byte(`"cipher":"`), []byte(`"cipher":"A`), 1)
	if _, err := key.Open(tampered, nil); err == nil {
		t.Error("Open() accepted a tampered blob")
	}
}

func TestFromBytes(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		wantErr bool
	}{
		{"valid size", KeySize, false},
		{"too short", KeySize - 1, true},
		{"too long", KeySize + 1, true},
		{"empty", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromBytes(make([]byte, tt.size))
			if (err != nil) != tt.wantErr {
				t.Errorf("FromBytes() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
