package blobstore

import (
	"context"
	"fmt"
	"io"
	"path"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore keeps blobs in memory. Used in tests and local development
// where no object store is available.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

func (s *MemoryStore) Put(ctx context.Context, filename string, r io.Reader, size int64, contentType string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}

	ref := uuid.NewString() + path.Ext(filename)

	s.mu.Lock()
	s.objects[ref] = data
	s.mu.Unlock()

	return ref, nil
}

func (s *MemoryStore) URL(ctx context.Context, ref string) (string, error) {
	s.mu.Lock()
	_, ok := s.objects[ref]
	s.mu.Unlock()

	if !ok {
		return "", fmt.Errorf("no such blob: %s", ref)
	}

	return "memory://" + ref, nil
}

// Get is a test helper for reading back stored bytes.
func (s *MemoryStore) Get(ref string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[ref]
	return data, ok
}
