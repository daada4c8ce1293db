package blob

import (
	"errors"
	"strings"
	"testing"
)

func TestPutReadDelete(t *testing.T) {
	s := NewStore(t.TempDir())
	id, err := s.Put(strings.NewReader("jpeg-bytes"), "holiday.JPG")
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if !strings.HasSuffix(id, ".jpg") {
		t.Fatalf("id %q should carry the lowered extension", id)
	}
	data, err := s.Read(id)
	if err != nil || string(data) != "jpeg-bytes" {
		t.Fatalf("read: %q, %v", data, err)
	}
	f, err := s.Open(id)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	f.Close()
	if err := s.Delete(id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Read(id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("read after delete: %v", err)
	}
	if err := s.Delete(id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: %v", err)
	}
	// Remove tolerates absence
	if err := s.Remove(id); err != nil {
		t.Fatalf("remove absent: %v", err)
	}
}

func TestPathConfinement(t *testing.T) {
	s := NewStore(t.TempDir())
	if _, err := s.Read("../../etc/passwd"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("traversal should stay inside the store: %v", err)
	}
}
