package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/qualex-labs/qualex/internal/core/domain"
	"github.com/qualex-labs/qualex/internal/core/ports/driven"
	"github.com/qualex-labs/qualex/internal/core/ports/driving"
	"github.com/qualex-labs/qualex/internal/logger"
)

// Ensure AutoCoder implements the interface.
var _ driving.AutoCoder = (*AutoCoder)(nil)

// Stage progress spans over the whole run.
const (
	segmentingMark  = 0.05
	embeddingStart  = 0.15
	embeddingSpan   = 0.35
	clusteringStart = 0.50
	clusteringSpan  = 0.20
	labelingStart   = 0.75
	labelingSpan    = 0.15
)

// AutoCoder orchestrates the pipeline: segmentation, cached embedding,
// clustering, labeling, proposal assembly. Stages run strictly in sequence;
// at most one run executes at a time because the embedding cache and the
// loaded model are process-wide shared state.
type AutoCoder struct {
	segmenter *Segmenter
	embedder  *CachedEmbedder
	engine    *ClusterEngine
	labeler   *Labeler
	embedSvc  driven.EmbeddingService

	mu      sync.Mutex
	running bool
	stage   domain.Stage
}

// NewAutoCoder wires the pipeline from its outbound services.
// llm may be nil; labeling then uses keyword extraction only.
func NewAutoCoder(embedSvc driven.EmbeddingService, cache driven.EmbeddingCache, llm driven.LLMService) *AutoCoder {
	return &AutoCoder{
		segmenter: NewSegmenter(),
		embedder:  NewCachedEmbedder(embedSvc, cache),
		engine:    NewClusterEngine(),
		labeler:   NewLabeler(llm),
		embedSvc:  embedSvc,
		stage:     domain.StageIdle,
	}
}

// Running reports whether a run is in flight.
func (a *AutoCoder) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}

// Stage returns the current pipeline stage.
func (a *AutoCoder) Stage() domain.Stage {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stage
}

func (a *AutoCoder) setStage(s domain.Stage) {
	a.mu.Lock()
	a.stage = s
	a.mu.Unlock()
}

// Run executes the full pipeline. See driving.AutoCoder for the contract.
func (a *AutoCoder) Run(
	ctx context.Context,
	sources []domain.Source,
	cfg domain.AutoCodingConfig,
	progress driving.ProgressFunc,
) (*domain.Result, error) {
	cfg = cfg.Normalised()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return nil, domain.ErrRunInProgress
	}
	a.running = true
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		a.running = false
		a.mu.Unlock()
	}()

	if progress == nil {
		progress = func(domain.Stage, float64) {}
	}

	started := time.Now()
	var timings []domain.StageTiming
	timed := func(stage domain.Stage, from time.Time) {
		timings = append(timings, domain.StageTiming{Stage: stage, Elapsed: time.Since(from)})
	}
	fail := func(err error) (*domain.Result, error) {
		a.setStage(domain.StageFailed)
		return nil, err
	}
	cancelled := func(err error) (*domain.Result, error) {
		logger.Info("autocoder: run cancelled")
		a.setStage(domain.StageCancelled)
		return nil, err
	}

	logger.Section("Auto-Coding Run")
	logger.Info("autocoder: %d sources, granularity=%s, model=%s, llm=%t",
		len(sources), cfg.Granularity, cfg.EmbeddingModel, cfg.UseLLM)

	// Stage 1: segmentation.
	a.setStage(domain.StageSegmenting)
	progress(domain.StageSegmenting, segmentingMark)
	stageStart := time.Now()

	segments := a.segmenter.SegmentAll(sources, cfg)
	timed(domain.StageSegmenting, stageStart)
	if len(segments) == 0 {
		return fail(domain.ErrNoSegments)
	}
	logger.Info("autocoder: %d segments", len(segments))

	if err := ctx.Err(); err != nil {
		return cancelled(err)
	}

	// Stage 2: embedding.
	a.setStage(domain.StageEmbedding)
	progress(domain.StageEmbedding, embeddingStart)
	stageStart = time.Now()

	if err := a.embedSvc.Ping(ctx); err != nil {
		return fail(fmt.Errorf("%w: %v", domain.ErrModelUnavailable, err))
	}

	vectors, err := a.embedder.EmbedSegments(ctx, segments, cfg, func(done, total int) {
		progress(domain.StageEmbedding, embeddingStart+embeddingSpan*float64(done)/float64(total))
	})
	timed(domain.StageEmbedding, stageStart)
	if err != nil {
		if ctx.Err() != nil {
			return cancelled(ctx.Err())
		}
		return fail(err)
	}

	if err := ctx.Err(); err != nil {
		return cancelled(err)
	}

	// Stage 3: clustering.
	a.setStage(domain.StageClustering)
	progress(domain.StageClustering, clusteringStart)
	stageStart = time.Now()

	clustering := a.engine.Cluster(vectors, cfg)
	timed(domain.StageClustering, stageStart)
	progress(domain.StageClustering, clusteringStart+clusteringSpan)

	clustered := 0
	for _, c := range clustering.Clusters {
		clustered += c.Size()
	}

	if len(clustering.Clusters) == 0 {
		logger.Info("autocoder: no clusters detected")
		a.setStage(domain.StageCompleted)
		progress(domain.StageCompleted, 1.0)
		return &domain.Result{
			TotalSegments: len(segments),
			NoiseSegments: len(segments),
			Timings:       timings,
			Status:        domain.StatusCompleted,
			Elapsed:       time.Since(started),
		}, nil
	}

	if err := ctx.Err(); err != nil {
		return cancelled(err)
	}

	// Stage 4: labeling.
	a.setStage(domain.StageLabeling)
	progress(domain.StageLabeling, labelingStart)
	stageStart = time.Now()

	labels, usedFallback := a.labeler.LabelClusters(ctx, clustering.Clusters, segments, vectors, cfg,
		func(done, total int) {
			progress(domain.StageLabeling, labelingStart+labelingSpan*float64(done)/float64(total))
		})
	timed(domain.StageLabeling, stageStart)

	if err := ctx.Err(); err != nil {
		return cancelled(err)
	}

	// Assemble proposals and apply the confidence threshold.
	proposals := make([]domain.NodeProposal, 0, len(clustering.Clusters))
	for i, cluster := range clustering.Clusters {
		label := labels[i]
		if label.Confidence < cfg.ConfidenceThreshold {
			logger.Debug("autocoder: dropping cluster %d (confidence %.2f below %.2f)",
				cluster.ID, label.Confidence, cfg.ConfidenceThreshold)
			continue
		}
		covered := make([]domain.Segment, 0, cluster.Size())
		for _, m := range cluster.Members {
			covered = append(covered, segments[m])
		}
		proposals = append(proposals, domain.NodeProposal{
			ID:          uuid.New().String(),
			Name:        label.Name,
			Description: label.Description,
			Keywords:    label.Keywords,
			Segments:    covered,
			Confidence:  label.Confidence,
			ClusterID:   cluster.ID,
			Strategy:    label.Strategy,
		})
	}

	sort.SliceStable(proposals, func(i, j int) bool {
		return proposals[i].Confidence > proposals[j].Confidence
	})
	for i := range proposals {
		proposals[i].Color = domain.ThemeColor(i)
	}

	status := domain.StatusCompleted
	if usedFallback && cfg.UseLLM {
		status = domain.StatusPartial
	}

	a.setStage(domain.StageCompleted)
	progress(domain.StageCompleted, 1.0)

	elapsed := time.Since(started)
	logger.Info("autocoder: done in %s: %d proposals, %d/%d segments clustered",
		elapsed.Round(time.Millisecond), len(proposals), clustered, len(segments))

	return &domain.Result{
		Proposals:         proposals,
		TotalSegments:     len(segments),
		ClusteredSegments: clustered,
		NoiseSegments:     clustering.NoiseCount(),
		Timings:           timings,
		UsedFallback:      usedFallback,
		Status:            status,
		Elapsed:           elapsed,
	}, nil
}
