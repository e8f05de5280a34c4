package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalisedFillsDefaults(t *testing.T) {
	cfg := AutoCodingConfig{}.Normalised()

	assert.Equal(t, DefaultEmbeddingModel, cfg.EmbeddingModel)
	assert.Equal(t, GranularityParagraph, cfg.Granularity)
	assert.Equal(t, DefaultMinSegmentLength, cfg.MinSegmentLength)
	assert.Equal(t, DefaultMinClusterSize, cfg.MinClusterSize)
	assert.Equal(t, DefaultMaxThemes, cfg.MaxThemes)
	assert.Equal(t, DefaultBatchSize, cfg.BatchSize)
	assert.Equal(t, DefaultMergeThreshold, cfg.MergeThreshold)
	assert.Equal(t, DefaultLLMModel, cfg.LLMModel)
	assert.Equal(t, 60*time.Second, cfg.LabelTimeout)
	assert.Equal(t, DeviceAuto, cfg.Device)
	// Zero threshold is a valid choice, not a missing value.
	assert.Equal(t, 0.0, cfg.ConfidenceThreshold)
}

func TestNormalisedKeepsExplicitValues(t *testing.T) {
	cfg := AutoCodingConfig{
		EmbeddingModel: "all-minilm",
		Granularity:    GranularitySentence,
		MaxThemes:      7,
		Device:         DeviceCPU,
	}.Normalised()

	assert.Equal(t, "all-minilm", cfg.EmbeddingModel)
	assert.Equal(t, GranularitySentence, cfg.Granularity)
	assert.Equal(t, 7, cfg.MaxThemes)
	assert.Equal(t, DeviceCPU, cfg.Device)
}

func TestNormalisedClampsWindowOverlap(t *testing.T) {
	cfg := AutoCodingConfig{WindowSize: 100, WindowOverlap: 100}.Normalised()
	assert.Equal(t, 25, cfg.WindowOverlap)

	cfg = AutoCodingConfig{WindowSize: 100, WindowOverlap: 250}.Normalised()
	assert.Equal(t, 25, cfg.WindowOverlap)

	cfg = AutoCodingConfig{WindowSize: 100, WindowOverlap: 30}.Normalised()
	assert.Equal(t, 30, cfg.WindowOverlap)
}

func TestValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.Granularity = "chapter"
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = DefaultConfig()
	cfg.Device = "tpu"
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = DefaultConfig()
	cfg.ConfidenceThreshold = 1.5
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = DefaultConfig()
	cfg.ConfidenceThreshold = -0.1
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = DefaultConfig()
	cfg.MergeThreshold = 1.1
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}

func TestGranularityIsValid(t *testing.T) {
	assert.True(t, GranularityParagraph.IsValid())
	assert.True(t, GranularitySentence.IsValid())
	assert.True(t, GranularityWindow.IsValid())
	assert.False(t, Granularity("chapter").IsValid())
	assert.False(t, Granularity("").IsValid())
}

func TestDevicePreferenceIsValid(t *testing.T) {
	assert.True(t, DeviceAuto.IsValid())
	assert.True(t, DeviceGPU.IsValid())
	assert.True(t, DeviceCPU.IsValid())
	assert.False(t, DevicePreference("tpu").IsValid())
}
