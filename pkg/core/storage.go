package core

import (
	"context"
	"io"
	"time"
)

// Starter is the interface for starting workers.
type Starter interface {
	Start(ctx context.Context) error
}

// Bus publishes jobs for asynchronous processing.
type Bus interface {
	Publish(ctx context.Context, job Job) error
}

// Subscriber delivers published jobs to fn. Subscribe blocks until ctx is
// done or the underlying transport is closed.
type Subscriber interface {
	Subscribe(ctx context.Context, fn func(context.Context, Job) error) error
}

// BlobStore provides access to input files and artifact bytes.
type BlobStore interface {
	// Get returns a reader for the given blob location.
	Get(ctx context.Context, location string) (io.ReadCloser, error)
	// Put uploads a blob from a reader to the given location.
	Put(ctx context.Context, location string, r io.Reader) error
	// PresignGet generates a URL a unit of work can fetch the blob from.
	PresignGet(ctx context.Context, location string) (string, error)
}

// Metadata persists file attributes and declared artifacts.
type Metadata interface {
	// UpdateFileAttributes merges patch into the file's attribute set.
	UpdateFileAttributes(ctx context.Context, fileID string, patch map[string]any) error
	// CreateArtifact records an artifact for the file.
	CreateArtifact(ctx context.Context, fileID string, artifact Artifact) error
}

// RunLedger tracks job runs.
type RunLedger interface {
	StartRun(ctx context.Context, job Job, workerID string) error
	CompleteRun(ctx context.Context, jobID string) error
	FailRun(ctx context.Context, jobID string, errMsg string) error
	ReleaseStaleRuns(ctx context.Context, staleAfter time.Duration) (int64, error)
}
