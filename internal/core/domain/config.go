package domain

import (
	"fmt"
	"time"
)

// Granularity is the policy for splitting source text into segments.
type Granularity string

// Available granularity modes.
const (
	// GranularityParagraph splits on blank-line boundaries.
	GranularityParagraph Granularity = "paragraph"

	// GranularitySentence splits on sentence-terminal punctuation.
	GranularitySentence Granularity = "sentence"

	// GranularityWindow uses a fixed-size sliding character window.
	GranularityWindow Granularity = "window"
)

// IsValid returns true if the granularity mode is recognised.
func (g Granularity) IsValid() bool {
	switch g {
	case GranularityParagraph, GranularitySentence, GranularityWindow:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (g Granularity) String() string {
	return string(g)
}

// DevicePreference selects the compute device for embedding inference.
// The choice affects throughput only, never the cached vectors.
type DevicePreference string

// Available device preferences.
const (
	// DeviceAuto lets the inference server pick the best device.
	DeviceAuto DevicePreference = "auto"

	// DeviceGPU requests accelerated compute.
	DeviceGPU DevicePreference = "gpu"

	// DeviceCPU forces general-purpose compute.
	DeviceCPU DevicePreference = "cpu"
)

// IsValid returns true if the device preference is recognised.
func (d DevicePreference) IsValid() bool {
	switch d {
	case DeviceAuto, DeviceGPU, DeviceCPU:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (d DevicePreference) String() string {
	return string(d)
}

// Default configuration values.
const (
	DefaultEmbeddingModel     = "nomic-embed-text"
	DefaultLLMModel           = "mistral"
	DefaultEndpoint           = "http://localhost:11434"
	DefaultMinSegmentLength   = 50
	DefaultWindowSize         = 800
	DefaultWindowOverlap      = 200
	DefaultMinClusterSize     = 3
	DefaultMinSamples         = 2
	DefaultComponents         = 5
	DefaultMaxThemes          = 20
	DefaultBatchSize          = 32
	DefaultConfidenceLimit    = 0.6
	DefaultMergeThreshold     = 0.8
	DefaultLabelTimeout       = 60 * time.Second
	DefaultMaxExcerpts        = 5
	DefaultMaxExcerptLength   = 300
)

// AutoCodingConfig is the immutable run configuration supplied by the
// caller. Zero values are replaced by defaults in Normalised.
type AutoCodingConfig struct {
	// EmbeddingModel is the embedding model identifier.
	EmbeddingModel string

	// Granularity is the segmentation mode.
	Granularity Granularity

	// MinSegmentLength drops segments shorter than this many bytes.
	MinSegmentLength int

	// WindowSize is the sliding-window size in runes (window mode only).
	WindowSize int

	// WindowOverlap is the sliding-window overlap in runes.
	// Always kept strictly below WindowSize.
	WindowOverlap int

	// MinClusterSize is the smallest group the cluster engine may emit.
	MinClusterSize int

	// MinSamples is the density requirement for core points.
	MinSamples int

	// Components is the target dimensionality of the reduction step.
	Components int

	// MaxThemes bounds the number of proposals; excess clusters are
	// demoted to noise, smallest first.
	MaxThemes int

	// BatchSize bounds embedding batches to control peak memory.
	BatchSize int

	// ConfidenceThreshold excludes proposals scoring below it.
	ConfidenceThreshold float64

	// MergeThreshold merges clusters whose centroid cosine similarity
	// reaches it.
	MergeThreshold float64

	// UseLLM selects the LLM labeling strategy when true. The keyword
	// strategy is always available as a per-cluster fallback.
	UseLLM bool

	// LLMModel is the text-generation model name.
	LLMModel string

	// LabelTimeout bounds each cluster's labeling call.
	LabelTimeout time.Duration

	// Device is the embedding compute preference.
	Device DevicePreference
}

// DefaultConfig returns a configuration with all defaults applied.
func DefaultConfig() AutoCodingConfig {
	return AutoCodingConfig{
		EmbeddingModel:      DefaultEmbeddingModel,
		Granularity:         GranularityParagraph,
		MinSegmentLength:    DefaultMinSegmentLength,
		WindowSize:          DefaultWindowSize,
		WindowOverlap:       DefaultWindowOverlap,
		MinClusterSize:      DefaultMinClusterSize,
		MinSamples:          DefaultMinSamples,
		Components:          DefaultComponents,
		MaxThemes:           DefaultMaxThemes,
		BatchSize:           DefaultBatchSize,
		ConfidenceThreshold: DefaultConfidenceLimit,
		MergeThreshold:      DefaultMergeThreshold,
		UseLLM:              true,
		LLMModel:            DefaultLLMModel,
		LabelTimeout:        DefaultLabelTimeout,
		Device:              DeviceAuto,
	}
}

// Normalised returns a copy with zero values replaced by defaults and the
// window overlap clamped below the window size.
func (c AutoCodingConfig) Normalised() AutoCodingConfig {
	def := DefaultConfig()
	if c.EmbeddingModel == "" {
		c.EmbeddingModel = def.EmbeddingModel
	}
	if c.Granularity == "" {
		c.Granularity = def.Granularity
	}
	if c.MinSegmentLength <= 0 {
		c.MinSegmentLength = def.MinSegmentLength
	}
	if c.WindowSize <= 0 {
		c.WindowSize = def.WindowSize
	}
	if c.WindowOverlap < 0 {
		c.WindowOverlap = def.WindowOverlap
	}
	if c.WindowOverlap >= c.WindowSize {
		c.WindowOverlap = c.WindowSize / 4
	}
	if c.MinClusterSize <= 0 {
		c.MinClusterSize = def.MinClusterSize
	}
	if c.MinSamples <= 0 {
		c.MinSamples = def.MinSamples
	}
	if c.Components <= 0 {
		c.Components = def.Components
	}
	if c.MaxThemes <= 0 {
		c.MaxThemes = def.MaxThemes
	}
	if c.BatchSize <= 0 {
		c.BatchSize = def.BatchSize
	}
	if c.MergeThreshold <= 0 {
		c.MergeThreshold = def.MergeThreshold
	}
	if c.LLMModel == "" {
		c.LLMModel = def.LLMModel
	}
	if c.LabelTimeout <= 0 {
		c.LabelTimeout = def.LabelTimeout
	}
	if c.Device == "" {
		c.Device = def.Device
	}
	return c
}

// Validate checks the configuration for values no default can repair.
func (c AutoCodingConfig) Validate() error {
	if !c.Granularity.IsValid() {
		return fmt.Errorf("%w: granularity %q", ErrInvalidConfig, c.Granularity)
	}
	if !c.Device.IsValid() {
		return fmt.Errorf("%w: device %q", ErrInvalidConfig, c.Device)
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("%w: confidence threshold %v outside [0,1]", ErrInvalidConfig, c.ConfidenceThreshold)
	}
	if c.MergeThreshold > 1 {
		return fmt.Errorf("%w: merge threshold %v above 1", ErrInvalidConfig, c.MergeThreshold)
	}
	return nil
}
