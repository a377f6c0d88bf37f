// Package core provides the fundamental types and interfaces for the uow package.
//
// This package contains:
//   - JobRecord and ResultRecord, the open wire-level records a unit of work consumes and produces
//   - Typed Job, Result and Artifact contracts plus the CloudEvent job envelope
//   - Run ledger model with GORM annotations
//   - Bus, Subscriber, BlobStore, Metadata and RunLedger interfaces
//   - Event types for worker monitoring
//   - Sentinel errors for the unit-of-work boundary
//
// Most users should import the root package github.com/jdziat/simple-uow
// instead of this package directly.
package core
