// Package keychain abstracts the platform store for the wallet's root
// key-encryption-key. Production hosts back it with the OS keychain; the
// in-memory implementation backs tests and the file implementation backs
// the dev server.
package keychain

import "errors"

// SKKeyEncryptionKeyName is the keychain item holding the secret-key
// key-encryption-key.
const SKKeyEncryptionKeyName = "sealvault.keychain.sk-kek"

var (
	// ErrItemNotFound is returned when no item exists under the name.
	ErrItemNotFound = errors.New("keychain item not found")

	// ErrItemExists is returned when putting a name that is already taken.
	// Keychain items are never overwritten; rotation goes through SoftDelete.
	ErrItemExists = errors.New("keychain item already exists")
)

// Keychain stores named key material.
type Keychain interface {
	// Get returns the item's key material.
	Get(name string) ([]byte, error)

	// Put stores key material under a new name. Fails with ErrItemExists if
	// the name is taken.
	Put(name string, material []byte) error

	// SoftDelete renames the item so that it stops resolving under its
	// original name but the material stays recoverable.
	SoftDelete(name string) error
}
