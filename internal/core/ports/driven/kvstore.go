package driven

import "context"

// KeyValueStore is a generic persistence port for small opaque values.
// Implementations range from in-memory (tests) to SQLite (production).
type KeyValueStore interface {
	// Get returns the value for key, or domain.ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
