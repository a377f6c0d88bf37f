// Package context provides internal context helpers for job execution.
//
// This package is internal and should not be imported directly.
// It provides context value types for:
//   - Job context: the job being run and the worker running it
//   - Attempt tracking for runs retried by the orchestrator
package context
