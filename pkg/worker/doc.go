// Package worker consumes jobs from a bus and applies their results.
//
// This package includes:
//   - Worker: pulls jobs from a core.Subscriber, runs them through a
//     runner.Runner and writes the results to core.Metadata
//   - WorkerOption: concurrency, rate limiting, retries and run tracking
//   - Hooks and an event stream for job start, completion and failure
//   - A cron-scheduled sweeper that abandons stale runs in a core.RunLedger
//
// Panics raised by a unit of work are recovered here and recorded as job
// failures; the entrypoint itself never recovers them.
package worker
