package hash

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdziat/simple-uow/pkg/blob"
	"github.com/jdziat/simple-uow/pkg/codec"
	"github.com/jdziat/simple-uow/pkg/core"
)

// sha256("hello world")
const helloDigest = "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"

func seeded(t *testing.T) *blob.MemoryStorage {
	t.Helper()
	store := blob.NewMemoryStorage()
	require.NoError(t, store.Put(context.Background(), "in/hello.txt", strings.NewReader("hello world")))
	return store
}

func helloJob() core.Job {
	return core.Job{
		JobID: "job-1",
		UoW:   Name,
		File:  core.File{ID: "file-1", Blob: core.Blob{Location: "in/hello.txt"}},
	}
}

func TestProcess(t *testing.T) {
	store := seeded(t)

	res, err := New(store).Process(context.Background(), helloJob())
	require.NoError(t, err)
	require.NoError(t, res.Validate())

	assert.Equal(t, "job-1", res.JobID)
	assert.Equal(t, "file-1", res.FileID)
	assert.Equal(t, helloDigest, res.AttributesPatch[AttributeSHA256])
	require.Len(t, res.Artifacts, 1)
	assert.Equal(t, core.Artifact{
		Kind:     "checksum",
		MIME:     "text/plain",
		Bytes:    64,
		Location: "artifacts/file-1.sha256",
	}, res.Artifacts[0])

	r, err := store.Get(context.Background(), "artifacts/file-1.sha256")
	require.NoError(t, err)
	defer r.Close()
	written, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, helloDigest, string(written))
}

func TestProcess_MissingBlob(t *testing.T) {
	job := helloJob()
	job.File.Blob.Location = "in/missing.txt"

	_, err := New(blob.NewMemoryStorage()).Process(context.Background(), job)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestProcess_MissingFileID(t *testing.T) {
	job := helloJob()
	job.File.ID = ""

	_, err := New(seeded(t)).Process(context.Background(), job)
	assert.ErrorIs(t, err, core.ErrMissingFile)
}

func TestEntrypoint_WirePayload(t *testing.T) {
	ep, err := New(seeded(t)).Entrypoint()
	require.NoError(t, err)
	assert.Equal(t, Name, ep.Name())

	out, err := ep.Invoke(context.Background(),
		`{"job_id":"job-1","uow":"hash","file":{"id":"file-1","blob":{"location":"in/hello.txt"}},"trace":"abc"}`)
	require.NoError(t, err)

	res, err := codec.DecodeResult(out)
	require.NoError(t, err)
	assert.Equal(t, helloDigest, res.AttributesPatch[AttributeSHA256])
	assert.Equal(t, "checksum", res.Artifacts[0].Kind)
}
