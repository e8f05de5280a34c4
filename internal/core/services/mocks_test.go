package services

import (
	"context"
	"sync"

	"github.com/qualex-labs/qualex/internal/core/ports/driven"
)

// mockEmbeddingService returns deterministic vectors via vecFn and records
// every batch it is asked to compute.
type mockEmbeddingService struct {
	mu         sync.Mutex
	vecFn      func(text string) []float32
	batchErr   error
	pingErr    error
	batches    [][]string
	afterBatch func(batch int)
}

var _ driven.EmbeddingService = (*mockEmbeddingService)(nil)

func (m *mockEmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (m *mockEmbeddingService) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	recorded := make([]string, len(texts))
	copy(recorded, texts)
	m.batches = append(m.batches, recorded)

	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vecFn(t)
	}
	if m.afterBatch != nil {
		m.afterBatch(len(m.batches))
	}
	return out, nil
}

func (m *mockEmbeddingService) ModelName() string { return "mock-embed" }

func (m *mockEmbeddingService) Ping(context.Context) error { return m.pingErr }

func (m *mockEmbeddingService) Close() error { return nil }

func (m *mockEmbeddingService) batchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.batches)
}

func (m *mockEmbeddingService) embeddedTexts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []string
	for _, b := range m.batches {
		all = append(all, b...)
	}
	return all
}

// mockLLMService returns a canned response or error for every Generate call.
type mockLLMService struct {
	mu       sync.Mutex
	response string
	err      error
	pingErr  error
	calls    int
	prompts  []string
}

var _ driven.LLMService = (*mockLLMService)(nil)

func (m *mockLLMService) Generate(_ context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.prompts = append(m.prompts, prompt)
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func (m *mockLLMService) ListModels(context.Context) ([]string, error) {
	return []string{"mock-llm"}, nil
}

func (m *mockLLMService) ModelName() string { return "mock-llm" }

func (m *mockLLMService) Ping(context.Context) error { return m.pingErr }

func (m *mockLLMService) Close() error { return nil }

func (m *mockLLMService) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
