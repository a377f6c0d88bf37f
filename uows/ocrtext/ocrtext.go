// Package ocrtext implements the "ocr_pdf" unit of work over plain-text
// transcripts. The input file is read from the local filesystem and treated
// as already-extracted UTF-8 text.
package ocrtext

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/jdziat/simple-uow/pkg/adapter"
	"github.com/jdziat/simple-uow/pkg/core"
)

// Name is the unit of work name.
const Name = "ocr_pdf"

// AttributeWords is the file attribute holding the word count.
const AttributeWords = "ocr_words"

// Entrypoint registers Handle under Name.
func Entrypoint() (adapter.Entrypoint, error) {
	return adapter.RegisterFunc(Name, Handle)
}

// Handle counts the words of the file at file.blob.location and declares a
// transcript artifact next to it.
func Handle(ctx context.Context, job core.JobRecord) (core.ResultRecord, error) {
	path := job.BlobLocation()
	if path == "" {
		return nil, fmt.Errorf("%w: file.blob.location is empty", core.ErrNotFound)
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: input file %s", core.ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read input file: %w", err)
	}
	text := strings.ToValidUTF8(string(data), "")

	return core.NewResult(job).
		SetAttribute(AttributeWords, len(strings.Fields(text))).
		AddArtifact(core.Artifact{
			Kind:     "transcript",
			MIME:     "text/plain",
			Bytes:    int64(len(text)),
			Location: path + ".transcript.txt",
		}), nil
}
