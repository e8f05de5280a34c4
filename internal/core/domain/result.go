package domain

import "time"

// Stage identifies a pipeline stage for progress reporting.
type Stage string

// Pipeline stages, in execution order.
const (
	StageIdle       Stage = "idle"
	StageSegmenting Stage = "segmenting"
	StageEmbedding  Stage = "embedding"
	StageClustering Stage = "clustering"
	StageLabeling   Stage = "labeling"
	StageCompleted  Stage = "completed"
	StageCancelled  Stage = "cancelled"
	StageFailed     Stage = "failed"
)

// String returns the string representation.
func (s Stage) String() string {
	return string(s)
}

// Terminal returns true for states no run leaves.
func (s Stage) Terminal() bool {
	return s == StageCompleted || s == StageCancelled || s == StageFailed
}

// RunStatus is the terminal status of a completed run.
type RunStatus string

// Run statuses.
const (
	// StatusCompleted means every stage finished with its primary strategy.
	StatusCompleted RunStatus = "completed"

	// StatusPartial means the run finished but at least one cluster was
	// labeled by the fallback strategy.
	StatusPartial RunStatus = "partial"
)

// StageTiming records the elapsed wall time of one stage.
type StageTiming struct {
	Stage   Stage
	Elapsed time.Duration
}

// Result is the immutable output of one auto-coding run.
type Result struct {
	// Proposals are the surviving node proposals, ordered by confidence
	// descending. Proposals below the configured threshold are excluded,
	// not hidden.
	Proposals []NodeProposal

	// TotalSegments is the number of segments analysed.
	TotalSegments int

	// ClusteredSegments is the number of segments inside proposals before
	// threshold filtering.
	ClusteredSegments int

	// NoiseSegments is the number of segments left unclustered.
	NoiseSegments int

	// Timings holds per-stage elapsed wall time in stage order.
	Timings []StageTiming

	// UsedFallback is true if any cluster was labeled by the keyword
	// fallback while the LLM strategy was configured.
	UsedFallback bool

	// Status is completed, or partial when UsedFallback is set.
	Status RunStatus

	// Elapsed is the total run wall time.
	Elapsed time.Duration
}

// CoveragePercent returns the share of segments covered by clusters.
func (r Result) CoveragePercent() float64 {
	if r.TotalSegments == 0 {
		return 0
	}
	return float64(r.ClusteredSegments) / float64(r.TotalSegments) * 100
}
