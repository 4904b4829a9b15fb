// Package encryption implements the envelope encryption of secret key
// material. The keychain holds a root key-encryption-key (KEK), the database
// holds a data-encryption-key (DEK) sealed by the KEK, and secret keys are
// sealed by the DEK. Sealing uses XChaCha20-Poly1305 with a random nonce and
// the owning record's id as associated data, so a sealed blob cannot be
// replayed under a different record.
package encryption

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// KeySize is the symmetric key length in bytes.
const KeySize = chacha20poly1305.KeySize

// The supported version of the sealed blob format.
const envelopeVersion = 1

var (
	// ErrDecrypt is returned when the key is wrong or the ciphertext has
	// been modified.
	ErrDecrypt = errors.New("wrong key or corrupted ciphertext")

	// ErrInvalidKeySize is returned for key material that is not KeySize bytes.
	ErrInvalidKeySize = errors.New("invalid key size")
)

// Key is a symmetric encryption key.
type Key []byte

// NewKey generates a random key.
func NewKey() (Key, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return key, nil
}

// FromBytes validates raw key material.
func FromBytes(material []byte) (Key, error) {
	if len(material) != KeySize {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidKeySize, len(material))
	}
	return Key(material), nil
}

// envelope is the serialized form of a sealed secret.
type envelope struct {
	V      int    `json:"v"`
	Nonce  []byte `json:"nonce"`
	Cipher []byte `json:"cipher"`
}

// Seal encrypts plaintext bound to aad and returns the serialized envelope.
func (k Key) Seal(plaintext, aad []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(k)
	if err != nil {
		return nil, fmt.Errorf("seal: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("seal nonce: %w", err)
	}
	cipher := aead.Seal(nil, nonce, plaintext, aad)
	return json.Marshal(envelope{V: envelopeVersion, Nonce: nonce, Cipher: cipher})
}

// Open decrypts a sealed envelope. The aad must match the value passed to
// Seal byte for byte.
func (k Key) Open(sealed, aad []byte) ([]byte, error) {
	var env envelope
	if err := json.Unmarshal(sealed, &env); err != nil {
		return nil, fmt.Errorf("open envelope: %w", err)
	}
	if env.V > envelopeVersion {
		return nil, fmt.Errorf("unsupported envelope version %d", env.V)
	}
	aead, err := chacha20poly1305.NewX(k)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	if len(env.Nonce) != aead.NonceSize() {
		return nil, ErrDecrypt
	}
	plaintext, err := aead.Open(nil, env.Nonce, env.Cipher, aad)
	if err != nil {
		return nil, ErrDecrypt
	}
	return plaintext, nil
}
