// Package httpapi exposes registered units of work, job submission and the
// result callback over HTTP.
//
// Routes:
//
//	GET  /healthz          liveness
//	GET  /uows             registered unit of work names
//	POST /uows/{name}      invoke a unit of work with a raw job payload
//	POST /jobs             publish a job to the bus for the worker
//	POST /results          apply a result payload to metadata
//	GET  /files/{id}       stored attributes and artifacts of a file
//	GET  /runs             search the run ledger
//	GET  /runs/stats       run counts per unit of work
//	GET  /runs/{job_id}    a single run
//
// POST /jobs needs a publisher, POST /results a result applier, and the file
// and run routes a reader. Routes without one are not mounted.
package httpapi
