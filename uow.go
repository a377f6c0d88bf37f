// Package uow defines the contract between a file-processing orchestrator
// and independently deployable units of work.
//
// This is the main package users should import. It re-exports the public
// types from the pkg/ packages.
//
// Writing a unit of work:
//
//	ep := uow.MustRegister("word_count", uow.HandlerFunc(
//	    func(ctx context.Context, job uow.JobRecord) (uow.ResultRecord, error) {
//	        text, err := load(job.BlobLocation())
//	        if err != nil {
//	            return nil, err
//	        }
//	        return uow.NewResult(job).SetAttribute("words", len(strings.Fields(text))), nil
//	    }))
//
//	out, err := ep.Invoke(ctx, payload)
//
// Orchestrators route payloads through a Registry:
//
//	reg := uow.NewRegistry()
//	reg.MustAdd(ep)
//	out, err := reg.Dispatch(ctx, payload)
package uow

import (
	"context"

	"github.com/jdziat/simple-uow/pkg/adapter"
	"github.com/jdziat/simple-uow/pkg/codec"
	"github.com/jdziat/simple-uow/pkg/core"
	"github.com/jdziat/simple-uow/pkg/registry"
	"github.com/jdziat/simple-uow/pkg/security"
)

type (
	// JobRecord is the decoded form of a wire job payload.
	JobRecord = core.JobRecord

	// ResultRecord is the mapping a handler returns.
	ResultRecord = core.ResultRecord

	// Artifact is a declared output of a unit of work.
	Artifact = core.Artifact

	// Job is the typed view of a job.
	Job = core.Job

	// Result is the typed view of a result.
	Result = core.Result

	// File references the input file of a job.
	File = core.File

	// Blob describes where a file's bytes live.
	Blob = core.Blob

	// Handler transforms a job record into a result record.
	Handler = adapter.Handler

	// HandlerFunc adapts a function to Handler.
	HandlerFunc = adapter.HandlerFunc

	// Entrypoint is a named, wire-level unit of work.
	Entrypoint = adapter.Entrypoint

	// Registry routes payloads to entrypoints by name.
	Registry = registry.Registry
)

// Error variables
var (
	ErrInvalidPayload   = core.ErrInvalidPayload
	ErrMalformedPayload = core.ErrMalformedPayload
	ErrInvalidResult    = core.ErrInvalidResult
	ErrInvalidName      = core.ErrInvalidName
	ErrNilHandler       = core.ErrNilHandler
	ErrDuplicateUoW     = core.ErrDuplicateUoW
	ErrUnknownUoW       = core.ErrUnknownUoW
)

// Security limits
const (
	MaxPayloadSize        = security.MaxPayloadSize
	MaxErrorMessageLength = security.MaxErrorMessageLength
)

// Register binds h to name. An empty name fails with ErrInvalidName.
func Register(name string, h Handler) (Entrypoint, error) {
	return adapter.Register(name, h)
}

// MustRegister is like Register but panics on an invalid name.
func MustRegister(name string, h Handler) Entrypoint {
	return adapter.MustRegister(name, h)
}

// RegisterFunc registers a plain function.
func RegisterFunc(name string, fn func(ctx context.Context, job JobRecord) (ResultRecord, error)) (Entrypoint, error) {
	return adapter.RegisterFunc(name, fn)
}

// RegisterTyped registers a handler over typed jobs and results.
func RegisterTyped[J, R any](name string, fn func(ctx context.Context, job J) (R, error)) (Entrypoint, error) {
	return adapter.RegisterTyped(name, fn)
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return registry.New()
}

// NewResult starts a result echoing job's identifying fields.
func NewResult(job JobRecord) ResultRecord {
	return core.NewResult(job)
}

// DecodeJob turns a wire payload into a JobRecord.
func DecodeJob(payload string) (JobRecord, error) {
	return codec.DecodeJob(payload)
}

// EncodeResult turns a ResultRecord into a wire payload.
func EncodeResult(result ResultRecord) (string, error) {
	return codec.EncodeResult(result)
}

// ValidateUoWName validates a unit of work name.
func ValidateUoWName(name string) error {
	return security.ValidateUoWName(name)
}
