package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/qualex-labs/qualex/internal/core/domain"
	"github.com/qualex-labs/qualex/internal/core/ports/driven"
	"github.com/qualex-labs/qualex/internal/logger"
)

// ContentHash returns the cache key component for a segment text: the
// SHA-256 of the text lowercased with whitespace collapsed. The model
// identifier forms the other key component; the compute device never does.
func ContentHash(text string) string {
	normalised := strings.Join(strings.Fields(strings.ToLower(text)), " ")
	sum := sha256.Sum256([]byte(normalised))
	return hex.EncodeToString(sum[:])
}

// CachedEmbedder turns segments into embedding vectors through a
// content-addressed persistent cache. Cache hits bypass the model entirely.
type CachedEmbedder struct {
	service driven.EmbeddingService
	cache   driven.EmbeddingCache
}

// NewCachedEmbedder creates a cache-through embedding provider.
func NewCachedEmbedder(service driven.EmbeddingService, cache driven.EmbeddingCache) *CachedEmbedder {
	return &CachedEmbedder{service: service, cache: cache}
}

// EmbedSegments returns one vector per segment, preserving input order.
// Misses are computed in batches of cfg.BatchSize; each batch is written to
// the cache before the next is requested, so a cancelled run keeps its
// completed batches. onBatch, when non-nil, is called after every completed
// batch with (batchesDone, batchesTotal).
func (e *CachedEmbedder) EmbedSegments(
	ctx context.Context,
	segments []domain.Segment,
	cfg domain.AutoCodingConfig,
	onBatch func(done, total int),
) ([][]float32, error) {
	model := cfg.EmbeddingModel
	vectors := make([][]float32, len(segments))

	// Partition into cache hits and misses, preserving order.
	var missIdx []int
	var missTexts []string
	var missHashes []string
	for i, seg := range segments {
		hash := ContentHash(seg.Text)
		vec, found, err := e.cache.Get(ctx, model, hash)
		if err != nil {
			return nil, fmt.Errorf("cache lookup: %w", err)
		}
		if found {
			vectors[i] = vec
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, seg.Text)
		missHashes = append(missHashes, hash)
	}

	logger.Debug("embedder: %d segments, %d cache hits, %d to compute",
		len(segments), len(segments)-len(missIdx), len(missIdx))

	if len(missIdx) == 0 {
		if onBatch != nil {
			onBatch(1, 1)
		}
		return vectors, nil
	}

	batchSize := cfg.BatchSize
	total := (len(missTexts) + batchSize - 1) / batchSize

	dim := 0
	for i := range vectors {
		if vectors[i] != nil {
			dim = len(vectors[i])
			break
		}
	}

	for b := 0; b < total; b++ {
		// Cancellation checkpoint between batches.
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := b * batchSize
		end := min(start+batchSize, len(missTexts))

		embedded, err := e.service.EmbedBatch(ctx, missTexts[start:end])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrModelUnavailable, err)
		}
		if len(embedded) != end-start {
			return nil, fmt.Errorf("%w: got %d vectors for %d texts",
				domain.ErrModelUnavailable, len(embedded), end-start)
		}

		for j, vec := range embedded {
			if dim == 0 {
				dim = len(vec)
			} else if len(vec) != dim {
				return nil, fmt.Errorf("%w: got %d, want %d",
					domain.ErrDimensionMismatch, len(vec), dim)
			}
			idx := missIdx[start+j]
			vectors[idx] = vec
			if err := e.cache.Put(ctx, model, missHashes[start+j], vec); err != nil {
				return nil, fmt.Errorf("cache store: %w", err)
			}
		}

		if onBatch != nil {
			onBatch(b+1, total)
		}
	}

	return vectors, nil
}
