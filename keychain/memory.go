package keychain

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// InMemory is a map-backed Keychain for tests.
type InMemory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var _ Keychain = (*InMemory)(nil)

// NewInMemory returns an empty in-memory keychain.
func NewInMemory() *InMemory {
	return &InMemory{data: make(map[string][]byte)}
}

// Get returns a copy of the item's key material.
func (k *InMemory) Get(name string) ([]byte, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	material, ok := k.data[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrItemNotFound, name)
	}
	out := make([]byte, len(material))
	copy(out, material)
	return out, nil
}

// Put stores key material under a new name.
func (k *InMemory) Put(name string, material []byte) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if _, ok := k.data[name]; ok {
		return fmt.Errorf("%w: %q", ErrItemExists, name)
	}
	stored := make([]byte, len(material))
	copy(stored, material)
	k.data[name] = stored
	return nil
}

// SoftDelete moves the item to a unique tombstone name.
func (k *InMemory) SoftDelete(name string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	material, ok := k.data[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrItemNotFound, name)
	}
	k.data[softDeleteRename(name)] = material
	delete(k.data, name)
	return nil
}

// softDeleteRename builds the tombstone name for a soft-deleted item. The
// uuid keeps repeated deletes under the same name from colliding.
func softDeleteRename(name string) string {
	return fmt.Sprintf("%s-deleted-%s", name, uuid.NewString())
}
