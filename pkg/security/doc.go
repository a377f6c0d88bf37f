// Package security provides validation, sanitization, and limits for the uow package.
//
// This package includes:
//   - Unit of work name validation
//   - Error message sanitization before persistence
//   - Payload size and concurrency limits for transports and workers
package security
