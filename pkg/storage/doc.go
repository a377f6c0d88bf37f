// Package storage persists what units of work produce.
//
// This package includes:
//   - GormStorage: file attributes, artifacts and the job run ledger on any
//     GORM dialect (SQLite and PostgreSQL are tested)
//   - MemoryMetadata: a map-backed core.Metadata for demos and tests
//
// GormStorage implements both core.Metadata and core.RunLedger. Call
// Migrate once before use to create the file_attributes, artifacts and
// job_runs tables.
package storage
