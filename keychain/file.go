package keychain

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// File stores items as files under one directory, 0600 each. It backs the
// dev server, where key material must survive restarts but no OS keychain
// is wired up.
type File struct {
	mu  sync.Mutex
	dir string
}

var _ Keychain = (*File)(nil)

// NewFile creates the directory if needed and returns a keychain over it.
func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("keychain dir: %w", err)
	}
	return &File{dir: dir}, nil
}

// Get returns the item's key material.
func (k *File) Get(name string) ([]byte, error) {
	path, err := k.itemPath(name)
	if err != nil {
		return nil, err
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	material, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %q", ErrItemNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	return material, nil
}

// Put stores key material under a new name.
func (k *File) Put(name string, material []byte) error {
	path, err := k.itemPath(name)
	if err != nil {
		return err
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if errors.Is(err, os.ErrExist) {
		return fmt.Errorf("%w: %q", ErrItemExists, name)
	}
	if err != nil {
		return err
	}
	if _, err := f.Write(material); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// SoftDelete moves the item to a unique tombstone name.
func (k *File) SoftDelete(name string) error {
	path, err := k.itemPath(name)
	if err != nil {
		return err
	}
	tombstone, err := k.itemPath(softDeleteRename(name))
	if err != nil {
		return err
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	err = os.Rename(path, tombstone)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %q", ErrItemNotFound, name)
	}
	return err
}

// itemPath maps an item name to its file. Names must not escape the
// keychain directory.
func (k *File) itemPath(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		return "", fmt.Errorf("invalid keychain item name: %q", name)
	}
	return filepath.Join(k.dir, name), nil
}
