package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Store saves, opens and removes opaque blobs under a single root
// directory. Paths handed back are relative to the root so the catalog
// stays valid if the root moves.
type Store struct {
	root string
}

// New creates the root directory if needed and returns a Store for it.
func New(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root %s: %w", root, err)
	}
	return &Store{root: root}, nil
}

// Root returns the storage root directory.
func (s *Store) Root() string {
	return s.root
}

// CleanName reduces a client-supplied filename to a safe base name.
func CleanName(name string) string {
	name = filepath.Base(filepath.Clean(name))
	if name == "." || name == string(filepath.Separator) {
		return ""
	}
	// Reject anything that still references a parent after cleaning.
	if strings.Contains(name, "..") {
		return ""
	}
	return name
}

// Save writes the blob content for the given filename and returns the
// relative storage path. An existing blob with the same name is never
// overwritten.
func (s *Store) Save(name string, src io.Reader) (string, error) {
	name = CleanName(name)
	if name == "" {
		return "", fmt.Errorf("invalid filename")
	}

	dst := filepath.Join(s.root, name)
	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create blob %s: %w", name, err)
	}

	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		os.Remove(dst)
		return "", fmt.Errorf("failed to write blob %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("failed to close blob %s: %w", name, err)
	}

	return name, nil
}

// Open opens a stored blob for reading.
func (s *Store) Open(path string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(s.root, path))
}

// Abs returns the absolute filesystem path for a stored blob.
func (s *Store) Abs(path string) string {
	return filepath.Join(s.root, path)
}

// Remove deletes a stored blob. Removing a blob that is already gone
// is not an error.
func (s *Store) Remove(path string) error {
	err := os.Remove(filepath.Join(s.root, path))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
