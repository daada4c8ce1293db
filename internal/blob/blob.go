// Package blob stores uploaded photos as flat files named by an opaque
// random id plus the original file extension. The directory is created
// lazily on first use, and writes go through a temp file and rename so a
// partially uploaded photo never lands under its final name.
package blob

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("photo not found")

type Store struct {
	Dir   string
	NewID func() string
}

func NewStore(dir string) *Store {
	return &Store{Dir: dir, NewID: func() string { return uuid.NewString() }}
}

func (s *Store) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

// Put streams the upload into the store and returns the photo id the file
// was saved under ("<uuid>.<ext>").
func (s *Store) Put(r io.Reader, filename string) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create photo dir: %w", err)
	}
	id := s.newID()
	if ext := fileExtension(filename); ext != "" {
		id += "." + ext
	}
	tmp, err := os.CreateTemp(s.Dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp photo: %w", err)
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write photo: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close photo: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(id)); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("store photo: %w", err)
	}
	return id, nil
}

// Open streams a stored photo; callers that need the whole blob use
// Read instead.
func (s *Store) Open(id string) (io.ReadCloser, error) {
	f, err := os.Open(s.path(id))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	return f, err
}

func (s *Store) Read(id string) ([]byte, error) {
	f, err := s.Open(id)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// Delete removes the photo, reporting ErrNotFound when it never existed.
func (s *Store) Delete(id string) error {
	err := os.Remove(s.path(id))
	if os.IsNotExist(err) {
		return ErrNotFound
	}
	return err
}

// Remove deletes the photo, treating an already absent file as success.
// Cleanup paths use this: record and blob are only eventually consistent.
func (s *Store) Remove(id string) error {
	err := os.Remove(s.path(id))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (s *Store) Exists(id string) bool {
	_, err := os.Stat(s.path(id))
	return err == nil
}

// path confines ids to the store directory; a photo id is a bare filename,
// never a path.
func (s *Store) path(id string) string {
	return filepath.Join(s.Dir, filepath.Base(id))
}

func fileExtension(filename string) string {
	if i := strings.LastIndex(filename, "."); i >= 0 {
		return strings.ToLower(filename[i+1:])
	}
	return ""
}
