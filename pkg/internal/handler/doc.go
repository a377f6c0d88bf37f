// Package handler provides internal conversion between typed handler
// functions and record handlers.
//
// This package is internal and should not be imported directly.
// It provides:
//   - Typed: wraps func(ctx, J) (R, error) as a record handler
//   - JSON conversion of job records into J and of R back into result records
//   - Absent-result detection for nil pointers, maps, slices and interfaces
package handler
