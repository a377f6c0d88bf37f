package storage

import (
	"context"
	"sync"

	"github.com/jdziat/simple-uow/pkg/core"
)

// MemoryMetadata stores file attributes and artifacts in memory.
type MemoryMetadata struct {
	mu         sync.Mutex
	attributes map[string]map[string]any
	artifacts  map[string][]core.Artifact
}

// NewMemoryMetadata returns an empty MemoryMetadata.
func NewMemoryMetadata() *MemoryMetadata {
	return &MemoryMetadata{
		attributes: make(map[string]map[string]any),
		artifacts:  make(map[string][]core.Artifact),
	}
}

// UpdateFileAttributes merges patch into the file's attributes.
func (m *MemoryMetadata) UpdateFileAttributes(ctx context.Context, fileID string, patch map[string]any) error {
	if fileID == "" {
		return core.ErrMissingFile
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	attrs, ok := m.attributes[fileID]
	if !ok {
		attrs = make(map[string]any, len(patch))
		m.attributes[fileID] = attrs
	}
	for k, v := range patch {
		attrs[k] = v
	}
	return nil
}

// CreateArtifact appends artifact to the file's artifact list.
func (m *MemoryMetadata) CreateArtifact(ctx context.Context, fileID string, artifact core.Artifact) error {
	if fileID == "" {
		return core.ErrMissingFile
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.artifacts[fileID] = append(m.artifacts[fileID], artifact)
	return nil
}

// GetFileAttributes returns a copy of the file's attributes.
func (m *MemoryMetadata) GetFileAttributes(ctx context.Context, fileID string) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]any, len(m.attributes[fileID]))
	for k, v := range m.attributes[fileID] {
		out[k] = v
	}
	return out, nil
}

// ListArtifacts returns a copy of the file's artifacts in insertion order.
func (m *MemoryMetadata) ListArtifacts(ctx context.Context, fileID string) ([]core.Artifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]core.Artifact, len(m.artifacts[fileID]))
	copy(out, m.artifacts[fileID])
	return out, nil
}

// Snapshot copies every stored attribute set and artifact list.
func (m *MemoryMetadata) Snapshot() (map[string]map[string]any, map[string][]core.Artifact) {
	m.mu.Lock()
	defer m.mu.Unlock()

	attrs := make(map[string]map[string]any, len(m.attributes))
	for id, set := range m.attributes {
		clone := make(map[string]any, len(set))
		for k, v := range set {
			clone[k] = v
		}
		attrs[id] = clone
	}

	artifacts := make(map[string][]core.Artifact, len(m.artifacts))
	for id, list := range m.artifacts {
		clone := make([]core.Artifact, len(list))
		copy(clone, list)
		artifacts[id] = clone
	}
	return attrs, artifacts
}
