// Package hash implements the "hash" unit of work, which records the SHA-256
// digest of a file.
package hash

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/jdziat/simple-uow/pkg/adapter"
	"github.com/jdziat/simple-uow/pkg/core"
)

// Name is the unit of work name jobs use to request hashing.
const Name = "hash"

// AttributeSHA256 is the file attribute holding the hex digest.
const AttributeSHA256 = "sha256"

// UoW hashes the input blob and stores the digest as a checksum artifact.
type UoW struct {
	Storage core.BlobStore
}

// New returns a hash unit of work reading and writing through store.
func New(store core.BlobStore) *UoW {
	return &UoW{Storage: store}
}

// Entrypoint registers the unit of work under Name.
func (u *UoW) Entrypoint() (adapter.Entrypoint, error) {
	return adapter.RegisterTyped(Name, u.Process)
}

// ArtifactLocation is where the digest of fileID is written.
func ArtifactLocation(fileID string) string {
	return fmt.Sprintf("artifacts/%s.sha256", fileID)
}

// Process reads job.File.Blob.Location, writes its digest to
// ArtifactLocation and returns a result patching the sha256 attribute.
func (u *UoW) Process(ctx context.Context, job core.Job) (*core.Result, error) {
	if job.File.ID == "" {
		return nil, core.ErrMissingFile
	}

	r, err := u.Storage.Get(ctx, job.File.Blob.Location)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return nil, fmt.Errorf("read %s: %w", job.File.Blob.Location, err)
	}
	sum := hex.EncodeToString(h.Sum(nil))

	location := ArtifactLocation(job.File.ID)
	if err := u.Storage.Put(ctx, location, strings.NewReader(sum)); err != nil {
		return nil, fmt.Errorf("write checksum: %w", err)
	}

	return &core.Result{
		JobID:  job.JobID,
		UoW:    job.UoW,
		FileID: job.File.ID,
		AttributesPatch: map[string]any{
			AttributeSHA256: sum,
		},
		Artifacts: []core.Artifact{{
			Kind:     "checksum",
			MIME:     "text/plain",
			Bytes:    int64(len(sum)),
			Location: location,
		}},
	}, nil
}
