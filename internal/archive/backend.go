// Package archive writes summaries that are about to be deleted to object
// storage as gzip-compressed NDJSON, one object per delete batch.
package archive

import "context"

// Backend is an object store holding archive blobs.
type Backend interface {
	// Put stores a prepared (compressed, possibly sealed) blob under key.
	Put(ctx context.Context, key string, blob []byte, meta BlobMetadata) error

	// Get returns the stored bytes of an object unchanged.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes an object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Provider returns the name of the storage provider (e.g., "s3", "filesystem").
	Provider() string
}
