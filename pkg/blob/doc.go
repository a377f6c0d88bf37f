// Package blob provides core.BlobStore implementations.
//
//   - MemoryStorage keeps blobs in a map and presigns them as data URIs
//   - MinIOStorage talks to MinIO or any S3-compatible endpoint
//
// Locations are object keys. MinIOStorage also accepts "s3://bucket/key"
// locations, which override the configured bucket.
package blob
