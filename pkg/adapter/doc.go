// Package adapter turns unit-of-work handlers into named, wire-level entrypoints.
//
// An Entrypoint pairs an immutable name with a handler. Invoking it runs
// exactly three steps: decode the job payload, call the handler once, encode
// the result. Decode, handler and encode errors are returned unchanged; the
// adapter never retries, logs, recovers panics or imposes timeouts.
//
// Registering an entrypoint has no global side effect. Routing tables are
// built explicitly by the orchestrator, see package registry.
package adapter
