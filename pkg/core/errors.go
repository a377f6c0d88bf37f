package core

import "errors"

// Unit-of-work boundary errors
var (
	ErrInvalidPayload   = errors.New("uow: job payload must be a non-empty string")
	ErrMalformedPayload = errors.New("uow: job payload is not a well-formed JSON object")
	ErrInvalidResult    = errors.New("uow: invalid result")
	ErrInvalidName      = errors.New("uow: unit of work name must be provided")
	ErrNilHandler       = errors.New("uow: entrypoint has no handler")
)

// Orchestrator-side errors
var (
	ErrDuplicateUoW = errors.New("uow: unit of work already registered")
	ErrUnknownUoW   = errors.New("uow: no unit of work registered")
	ErrNotFound     = errors.New("uow: not found")
	ErrRunNotFound  = errors.New("uow: run not found")
	ErrMissingJobID = errors.New("uow: job id is required")
	ErrBusClosed    = errors.New("uow: bus is closed")
	ErrMissingFile  = errors.New("uow: file id is required")
)

// ErrResultShape is returned when a decoded result lacks the fields the
// orchestrator needs to apply it.
var ErrResultShape = errors.New("uow: result is missing required fields")
