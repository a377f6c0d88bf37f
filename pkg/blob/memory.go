package blob

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/jdziat/simple-uow/pkg/core"
)

// MemoryStorage is an in-memory core.BlobStore for tests and local runs.
type MemoryStorage struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryStorage creates an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{blobs: make(map[string][]byte)}
}

// Get returns a reader over a copy of the blob at location.
func (s *MemoryStorage) Get(ctx context.Context, location string) (io.ReadCloser, error) {
	data, err := s.lookup(location)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Put stores everything read from r at location.
func (s *MemoryStorage) Put(ctx context.Context, location string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read blob %s: %w", location, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[location] = data
	return nil
}

// PresignGet returns the blob as a base64 data URI.
func (s *MemoryStorage) PresignGet(ctx context.Context, location string) (string, error) {
	data, err := s.lookup(location)
	if err != nil {
		return "", err
	}
	return "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(data), nil
}

// Locations returns the stored locations in sorted order.
func (s *MemoryStorage) Locations() []string {
	s.mu.RLock()
	out := make([]string, 0, len(s.blobs))
	for loc := range s.blobs {
		out = append(out, loc)
	}
	s.mu.RUnlock()
	sort.Strings(out)
	return out
}

func (s *MemoryStorage) lookup(location string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[location]
	if !ok {
		return nil, fmt.Errorf("%w: blob %s", core.ErrNotFound, location)
	}
	return data, nil
}
