package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfidenceLevel(t *testing.T) {
	cases := []struct {
		confidence float64
		want       string
	}{
		{0.95, "Very high"},
		{0.9, "Very high"},
		{0.89, "High"},
		{0.7, "High"},
		{0.69, "Medium"},
		{0.5, "Medium"},
		{0.49, "Low"},
		{0, "Low"},
	}
	for _, tc := range cases {
		p := NodeProposal{Confidence: tc.confidence}
		assert.Equal(t, tc.want, p.ConfidenceLevel(), "confidence %v", tc.confidence)
	}
}

func TestThemeColor(t *testing.T) {
	assert.Equal(t, "#3498db", ThemeColor(0))
	assert.NotEqual(t, ThemeColor(0), ThemeColor(1))
	// Indices wrap around the palette.
	assert.Equal(t, ThemeColor(0), ThemeColor(20))
	// Out-of-range input still yields a colour.
	assert.True(t, strings.HasPrefix(ThemeColor(-3), "#"))
}

func TestSegmentPreview(t *testing.T) {
	short := Segment{Text: "short text"}
	assert.Equal(t, "short text", short.Preview())

	long := Segment{Text: strings.Repeat("a", 150)}
	preview := long.Preview()
	assert.Len(t, preview, 100)
	assert.True(t, strings.HasSuffix(preview, "..."))
}

func TestClusteringNoiseCount(t *testing.T) {
	cl := Clustering{Assignment: []int{0, NoiseCluster, 1, NoiseCluster, 0}}
	assert.Equal(t, 2, cl.NoiseCount())
	assert.Equal(t, 0, Clustering{}.NoiseCount())
}

func TestResultCoveragePercent(t *testing.T) {
	r := Result{TotalSegments: 10, ClusteredSegments: 7}
	assert.InDelta(t, 70, r.CoveragePercent(), 1e-9)
	assert.Equal(t, 0.0, Result{}.CoveragePercent())
}

func TestStageTerminal(t *testing.T) {
	assert.True(t, StageCompleted.Terminal())
	assert.True(t, StageCancelled.Terminal())
	assert.True(t, StageFailed.Terminal())
	assert.False(t, StageIdle.Terminal())
	assert.False(t, StageEmbedding.Terminal())
}
