// Package artifactstore implements the Artifact Store Gateway (C7,
// spec.md §4.7): the component the Publish stage hands a generated bundle
// to, returning a URL stable enough for invariant P6 (gateway URL bytes
// match the local copy at the time of the call).
package artifactstore

import "context"

// Gateway is implemented by both the S3-backed and embedded Badger-backed
// stores, so the Publish stage never branches on which is configured.
type Gateway interface {
	// Configured reports whether this gateway has everything it needs
	// (credentials, bucket, path) to accept Put calls.
	Configured() bool
	// Put uploads bytes under key and returns a URL satisfying P6.
	Put(ctx context.Context, key string, data []byte, contentType string, cacheHint string) (string, error)
	// Get retrieves the bytes previously stored under key, used by the
	// bundle download handler for the docs-plus-comments fallback path.
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Close() error
}
