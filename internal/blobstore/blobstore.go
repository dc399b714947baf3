// Package blobstore persists raw fetched content on the local filesystem.
//
// Keys are relative paths like "content/<id>.<ext>". Writes go through a
// temp file and rename so a crash mid-write never leaves a partial blob
// under its final key.
package blobstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/seen-labs/seen/pkg/types"
)

// Store is a filesystem blob store rooted at a single directory.
type Store struct {
	root string
}

// New creates a blob store rooted at dir, creating it if needed.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("blobstore: root directory required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("blobstore: create root: %w", err)
	}
	return &Store{root: dir}, nil
}

// KeyFor returns the canonical blob key for a link id and file extension.
func KeyFor(linkID, ext string) string {
	return "content/" + linkID + "." + ext
}

// Put writes data under key, replacing any existing blob.
func (s *Store) Put(key string, data []byte) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("blobstore: create dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".put-*")
	if err != nil {
		return fmt.Errorf("blobstore: create temp: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("blobstore: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("blobstore: close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("blobstore: rename: %w", err)
	}
	return nil
}

// Get reads the blob stored under key.
func (s *Store) Get(key string) ([]byte, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", types.ErrBlobNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("blobstore: read: %w", err)
	}
	return data, nil
}

// Delete removes the blob under key. Deleting a missing blob is not an
// error; deletion is a cleanup step and must be idempotent.
func (s *Store) Delete(key string) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("blobstore: delete: %w", err)
	}
	return nil
}

// Exists reports whether a blob is stored under key.
func (s *Store) Exists(key string) (bool, error) {
	path, err := s.resolve(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("blobstore: stat: %w", err)
	}
	return true, nil
}

// Close is a no-op; the filesystem needs no teardown.
func (s *Store) Close() error {
	return nil
}

// resolve maps a key to an absolute path, rejecting anything that would
// escape the root.
func (s *Store) resolve(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("blobstore: empty key")
	}
	clean := filepath.Clean(filepath.FromSlash(key))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("blobstore: key escapes root: %s", key)
	}
	return filepath.Join(s.root, clean), nil
}
