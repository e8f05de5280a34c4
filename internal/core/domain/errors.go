package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrInvalidConfig indicates a run configuration no default can repair.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrRunInProgress indicates an auto-coding run is already executing.
	// Runs are never interleaved; the embedding cache and loaded model are
	// process-wide shared state.
	ErrRunInProgress = errors.New("run in progress")

	// ErrNoSegments indicates no usable text across the selected sources.
	// Reported before any model is contacted.
	ErrNoSegments = errors.New("no usable segments in sources")

	// ErrModelUnavailable indicates the embedding model could not be
	// loaded or reached. There is no fallback embedding; this is fatal.
	ErrModelUnavailable = errors.New("embedding model unavailable")

	// ErrLLMUnavailable indicates the labeling service is unreachable.
	// This is a normal operating condition, absorbed by the keyword
	// fallback; it never aborts a run.
	ErrLLMUnavailable = errors.New("labeling service unavailable")

	// ErrDimensionMismatch indicates an embedding whose dimension differs
	// from the rest of the run.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
