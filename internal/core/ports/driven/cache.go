package driven

import "context"

// EmbeddingCache is the persistent, content-addressed embedding store.
// Keys are (model identifier, content hash of normalised segment text);
// identical text under the same model always hits, regardless of source or
// run. The cache is additive-only during normal operation: Put never
// overwrites an existing key. Entries outlive runs and are pruned only by
// an explicit Clear.
type EmbeddingCache interface {
	// Get returns the cached vector for (model, hash), or found=false.
	Get(ctx context.Context, model, hash string) (vec []float32, found bool, err error)

	// Put stores a vector under (model, hash). Existing keys are left
	// untouched.
	Put(ctx context.Context, model, hash string, vec []float32) error

	// Len returns the number of cached entries.
	Len(ctx context.Context) (int, error)

	// Clear removes every entry. Maintenance operation, caller-initiated.
	Clear(ctx context.Context) error

	// Close releases resources.
	Close() error
}
