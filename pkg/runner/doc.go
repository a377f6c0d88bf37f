// Package runner executes jobs against units of work.
//
// Two runners are provided:
//   - SyncRunner: encodes the job, dispatches it in-process through a
//     registry and decodes the result, inside an OpenTelemetry span
//   - AsyncRunner: publishes the job to a bus and returns immediately
//
// Both speak only the wire formats, so a unit of work behaves the same
// whether it is called in-process or by a remote worker.
package runner
