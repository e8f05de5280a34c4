package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qualex-labs/qualex/internal/adapters/driven/storage/memory"
	"github.com/qualex-labs/qualex/internal/core/domain"
)

// interviewFixture returns three sources holding twelve paragraphs between
// them, and a vector function mapping each paragraph to a fixed embedding:
// five about budget, four about morale, three thematic outliers.
func interviewFixture() ([]domain.Source, func(string) []float32) {
	budget := []string{
		"The budget cuts hit every department this year.",
		"Budget constraints forced us to cancel the project.",
		"Funding and budget talks dominated the meeting.",
		"Another budget reduction was announced in March.",
		"The budget shortfall worried the whole office.",
	}
	morale := []string{
		"Staff morale dropped sharply after the news.",
		"Morale suffered once the restructuring started.",
		"Team morale has never been lower than now.",
		"Low morale is clearly affecting retention rates.",
	}
	outliers := []string{
		"The cafeteria menu changed again last week.",
		"Parking remains difficult in the downtown office.",
		"The weather was unusually cold that spring.",
	}

	vectors := map[string][]float32{}
	paragraphs := func(texts []string, vec func(i int) []float32) string {
		var content string
		for i, t := range texts {
			content += t + "\n\n"
			vectors[t] = vec(i)
		}
		return content
	}
	outlierVecs := [][]float32{{0, 0, 1, 0}, {0, 0, 0, 1}, {0.5, 0.5, 0.7, 0.7}}
	sources := []domain.Source{
		{ID: "int-1", Name: "interview-1.txt", Content: paragraphs(budget,
			func(int) []float32 { return []float32{1, 0.05, 0, 0} })},
		{ID: "int-2", Name: "interview-2.txt", Content: paragraphs(morale,
			func(int) []float32 { return []float32{0.05, 1, 0, 0} })},
		{ID: "int-3", Name: "interview-3.txt", Content: paragraphs(outliers,
			func(i int) []float32 { return outlierVecs[i] })},
	}
	return sources, func(text string) []float32 { return vectors[text] }
}

func runConfig() domain.AutoCodingConfig {
	cfg := domain.DefaultConfig()
	cfg.MinSegmentLength = 10
	cfg.MinClusterSize = 3
	cfg.MaxThemes = 5
	cfg.BatchSize = 4
	cfg.ConfidenceThreshold = 0
	cfg.UseLLM = false
	return cfg
}

func TestRunFullPipelineKeyword(t *testing.T) {
	sources, vecFn := interviewFixture()
	svc := &mockEmbeddingService{vecFn: vecFn}
	coder := NewAutoCoder(svc, memory.NewCache(), nil)

	result, err := coder.Run(context.Background(), sources, runConfig(), nil)

	require.NoError(t, err)
	assert.Equal(t, domain.StageCompleted, coder.Stage())
	assert.Equal(t, domain.StatusCompleted, result.Status)
	assert.False(t, result.UsedFallback)

	assert.Equal(t, 12, result.TotalSegments)
	assert.Equal(t, 9, result.ClusteredSegments)
	assert.Equal(t, 3, result.NoiseSegments)

	require.Len(t, result.Proposals, 2)
	for _, p := range result.Proposals {
		assert.NotEmpty(t, p.ID)
		assert.NotEmpty(t, p.Name)
		assert.NotEmpty(t, p.Color)
		assert.Equal(t, domain.StrategyKeyword, p.Strategy)
	}
	// Ordered by confidence, segments carried over from their clusters.
	assert.GreaterOrEqual(t, result.Proposals[0].Confidence, result.Proposals[1].Confidence)
	assert.Equal(t, 9, result.Proposals[0].SegmentCount()+result.Proposals[1].SegmentCount())

	// Each pipeline stage is timed once.
	var stages []domain.Stage
	for _, timing := range result.Timings {
		stages = append(stages, timing.Stage)
	}
	assert.Equal(t, []domain.Stage{
		domain.StageSegmenting,
		domain.StageEmbedding,
		domain.StageClustering,
		domain.StageLabeling,
	}, stages)
}

func TestRunWithLLMLabels(t *testing.T) {
	sources, vecFn := interviewFixture()
	svc := &mockEmbeddingService{vecFn: vecFn}
	llm := &mockLLMService{
		response: `{"name": "Budget Pressure", "description": "Funding concerns.", "keywords": ["budget"]}`,
	}
	cfg := runConfig()
	cfg.UseLLM = true

	coder := NewAutoCoder(svc, memory.NewCache(), llm)
	result, err := coder.Run(context.Background(), sources, cfg, nil)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, result.Status)
	require.Len(t, result.Proposals, 2)
	for _, p := range result.Proposals {
		assert.Equal(t, domain.StrategyLLM, p.Strategy)
		assert.InDelta(t, 0.9, p.Confidence, 1e-9)
	}
	assert.Equal(t, 2, llm.callCount())
}

// An unreachable LLM never fails the run; labeling degrades to keywords and
// the result is marked partial.
func TestRunDegradesWhenLLMUnreachable(t *testing.T) {
	sources, vecFn := interviewFixture()
	svc := &mockEmbeddingService{vecFn: vecFn}
	llm := &mockLLMService{err: errors.New("connection refused")}
	cfg := runConfig()
	cfg.UseLLM = true

	coder := NewAutoCoder(svc, memory.NewCache(), llm)
	result, err := coder.Run(context.Background(), sources, cfg, nil)

	require.NoError(t, err)
	assert.Equal(t, domain.StageCompleted, coder.Stage())
	assert.Equal(t, domain.StatusPartial, result.Status)
	assert.True(t, result.UsedFallback)
	require.Len(t, result.Proposals, 2)
	for _, p := range result.Proposals {
		assert.Equal(t, domain.StrategyKeyword, p.Strategy)
		assert.Less(t, p.Confidence, 0.9)
	}
}

func TestRunConfidenceThresholdFilters(t *testing.T) {
	sources, vecFn := interviewFixture()
	svc := &mockEmbeddingService{vecFn: vecFn}
	cache := memory.NewCache()
	coder := NewAutoCoder(svc, cache, nil)

	strict := runConfig()
	strict.ConfidenceThreshold = 0.95 // above the keyword ceiling

	result, err := coder.Run(context.Background(), sources, strict, nil)
	require.NoError(t, err)
	assert.Empty(t, result.Proposals)
	assert.Equal(t, domain.StatusCompleted, result.Status)

	// Lowering the threshold never yields fewer proposals.
	relaxed := runConfig()
	result2, err := coder.Run(context.Background(), sources, relaxed, nil)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(result2.Proposals), len(result.Proposals))
}

func TestRunNoSegments(t *testing.T) {
	svc := &mockEmbeddingService{vecFn: func(string) []float32 { return []float32{1} }}
	coder := NewAutoCoder(svc, memory.NewCache(), nil)

	_, err := coder.Run(context.Background(),
		[]domain.Source{{ID: "s1", Content: "   "}}, runConfig(), nil)

	assert.ErrorIs(t, err, domain.ErrNoSegments)
	assert.Equal(t, domain.StageFailed, coder.Stage())
}

func TestRunInvalidConfig(t *testing.T) {
	sources, vecFn := interviewFixture()
	coder := NewAutoCoder(&mockEmbeddingService{vecFn: vecFn}, memory.NewCache(), nil)

	cfg := runConfig()
	cfg.ConfidenceThreshold = 2

	_, err := coder.Run(context.Background(), sources, cfg, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	cfg = runConfig()
	cfg.Granularity = "bogus"
	_, err = coder.Run(context.Background(), sources, cfg, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestRunEmbeddingServiceUnreachable(t *testing.T) {
	sources, _ := interviewFixture()
	svc := &mockEmbeddingService{pingErr: errors.New("no route to host")}
	coder := NewAutoCoder(svc, memory.NewCache(), nil)

	_, err := coder.Run(context.Background(), sources, runConfig(), nil)

	assert.ErrorIs(t, err, domain.ErrModelUnavailable)
	assert.Equal(t, domain.StageFailed, coder.Stage())
	assert.Equal(t, 0, svc.batchCount(), "no embedding batch after a failed ping")
}

func TestRunCancelledMidEmbedding(t *testing.T) {
	sources, vecFn := interviewFixture()
	ctx, cancel := context.WithCancel(context.Background())

	svc := &mockEmbeddingService{vecFn: vecFn}
	svc.afterBatch = func(batch int) {
		if batch == 1 {
			cancel()
		}
	}
	cache := memory.NewCache()
	coder := NewAutoCoder(svc, cache, nil)

	_, err := coder.Run(ctx, sources, runConfig(), nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, domain.StageCancelled, coder.Stage())
	assert.False(t, coder.Running())

	// The completed batch survived; a rerun embeds only the remainder.
	n, cerr := cache.Len(context.Background())
	require.NoError(t, cerr)
	assert.Equal(t, 4, n)

	result, err := coder.Run(context.Background(), sources, runConfig(), nil)
	require.NoError(t, err)
	assert.Len(t, result.Proposals, 2)
}

func TestRunRejectsConcurrentRun(t *testing.T) {
	sources, vecFn := interviewFixture()
	entered := make(chan struct{})
	release := make(chan struct{})

	first := true
	svc := &mockEmbeddingService{vecFn: func(text string) []float32 {
		if first {
			first = false
			close(entered)
			<-release
		}
		return vecFn(text)
	}}
	coder := NewAutoCoder(svc, memory.NewCache(), nil)

	done := make(chan error, 1)
	go func() {
		_, err := coder.Run(context.Background(), sources, runConfig(), nil)
		done <- err
	}()

	<-entered
	assert.True(t, coder.Running())
	_, err := coder.Run(context.Background(), sources, runConfig(), nil)
	assert.ErrorIs(t, err, domain.ErrRunInProgress)

	close(release)
	require.NoError(t, <-done)
	assert.False(t, coder.Running())
}

func TestRunProgressMonotonic(t *testing.T) {
	sources, vecFn := interviewFixture()
	coder := NewAutoCoder(&mockEmbeddingService{vecFn: vecFn}, memory.NewCache(), nil)

	type tick struct {
		stage    domain.Stage
		fraction float64
	}
	var ticks []tick
	_, err := coder.Run(context.Background(), sources, runConfig(),
		func(stage domain.Stage, fraction float64) {
			ticks = append(ticks, tick{stage, fraction})
		})

	require.NoError(t, err)
	require.NotEmpty(t, ticks)
	for i := 1; i < len(ticks); i++ {
		assert.GreaterOrEqual(t, ticks[i].fraction, ticks[i-1].fraction,
			"progress went backwards at tick %d", i)
	}
	last := ticks[len(ticks)-1]
	assert.Equal(t, domain.StageCompleted, last.stage)
	assert.InDelta(t, 1.0, last.fraction, 1e-9)
}

func TestRunNoClustersCompletesEmpty(t *testing.T) {
	content := "First lonely paragraph of text.\n\nSecond lonely paragraph of text."
	sources := []domain.Source{{ID: "s1", Content: content}}

	i := 0
	svc := &mockEmbeddingService{vecFn: func(string) []float32 {
		i++
		return []float32{float32(i), 0}
	}}
	cfg := runConfig() // MinClusterSize 3 > 2 segments

	coder := NewAutoCoder(svc, memory.NewCache(), nil)
	result, err := coder.Run(context.Background(), sources, cfg, nil)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, result.Status)
	assert.Empty(t, result.Proposals)
	assert.Equal(t, 2, result.TotalSegments)
	assert.Equal(t, 2, result.NoiseSegments)
	assert.Equal(t, domain.StageCompleted, coder.Stage())
}

func TestRunUsesCacheAcrossRuns(t *testing.T) {
	sources, vecFn := interviewFixture()
	svc := &mockEmbeddingService{vecFn: vecFn}
	coder := NewAutoCoder(svc, memory.NewCache(), nil)

	_, err := coder.Run(context.Background(), sources, runConfig(), nil)
	require.NoError(t, err)
	batches := svc.batchCount()
	require.Equal(t, 3, batches)

	start := time.Now()
	_, err = coder.Run(context.Background(), sources, runConfig(), nil)
	require.NoError(t, err)
	assert.Equal(t, batches, svc.batchCount(), "second run must be served from cache")
	assert.Less(t, time.Since(start), 5*time.Second)
}
