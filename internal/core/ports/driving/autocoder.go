// Package driving provides interfaces for primary/inbound ports.
package driving

import (
	"context"

	"github.com/qualex-labs/qualex/internal/core/domain"
)

// ProgressFunc receives stage progress events. The fraction is in [0,1]
// over the whole run and is monotonically non-decreasing within a stage.
// Callbacks are invoked from the run's goroutine; implementations must be
// safe to call from a goroutine other than the caller's.
type ProgressFunc func(stage domain.Stage, fraction float64)

// AutoCoder is the sole entry point the UI layer calls.
// At most one run executes at a time; a second Run while one is in flight
// fails with domain.ErrRunInProgress.
type AutoCoder interface {
	// Run executes the full pipeline over the given sources.
	// Cancellation is cooperative through ctx: it is observed at stage
	// boundaries and between embedding batches, and surfaces as
	// (nil, context.Canceled). progress may be nil.
	Run(ctx context.Context, sources []domain.Source, cfg domain.AutoCodingConfig, progress ProgressFunc) (*domain.Result, error)

	// Running reports whether a run is currently in flight.
	Running() bool

	// Stage returns the current pipeline stage.
	Stage() domain.Stage
}
