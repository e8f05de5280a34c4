package services

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/qualex-labs/qualex/internal/core/domain"
	"github.com/qualex-labs/qualex/internal/core/ports/driven"
	"github.com/qualex-labs/qualex/internal/logger"
)

// llmConfidence is the fixed score for successful LLM labels. The service
// returns no calibrated confidence, so a high constant is used; the keyword
// strategy always scores below it.
const llmConfidence = 0.9

// keywordConfidenceCap keeps fallback labels strictly below llmConfidence.
const keywordConfidenceCap = 0.85

// maxLabelWorkers bounds concurrent labeling calls. Proposals are
// independent and write to distinct output slots.
const maxLabelWorkers = 4

// labelPrompt asks the model for a short thematic label as JSON.
const labelPrompt = `You are an expert in qualitative data analysis.
Here are %d text excerpts belonging to the same theme:

%s

Generate a name and a description for this theme.

RULES:
- The name must be concise (2-4 words maximum)
- The description must be one explanatory sentence
- The keywords must be 3-5 representative terms

Respond ONLY with valid JSON, without commentary:
{"name": "...", "description": "...", "keywords": ["...", "...", "..."]}`

var (
	jsonObject = regexp.MustCompile(`(?s)\{[^{}]*\}`)
	wordToken  = regexp.MustCompile(`\p{L}{3,}`)
)

// Label is the outcome of naming one cluster.
type Label struct {
	Name        string
	Description string
	Keywords    []string
	Confidence  float64
	Strategy    domain.LabelStrategy
}

// Labeler assigns a name and confidence to each cluster. The LLM strategy
// is attempted per cluster when configured; any failure there falls back to
// keyword extraction for that cluster only.
type Labeler struct {
	llm driven.LLMService
}

// NewLabeler creates a labeler. llm may be nil for keyword-only labeling.
func NewLabeler(llm driven.LLMService) *Labeler {
	return &Labeler{llm: llm}
}

// LabelClusters labels every cluster and reports whether any configured LLM
// call fell back to keywords. Clusters are processed concurrently; results
// land in the slot matching the input order. onDone, when non-nil, is
// called after each finished cluster with (done, total).
func (l *Labeler) LabelClusters(
	ctx context.Context,
	clusters []domain.Cluster,
	segments []domain.Segment,
	vectors [][]float32,
	cfg domain.AutoCodingConfig,
	onDone func(done, total int),
) ([]Label, bool) {
	labels := make([]Label, len(clusters))
	fallbacks := make([]bool, len(clusters))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		done int
	)
	sem := make(chan struct{}, maxLabelWorkers)

	for i := range clusters {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()

			labels[i], fallbacks[i] = l.labelCluster(ctx, clusters[i], segments, vectors, cfg)

			if onDone != nil {
				mu.Lock()
				done++
				onDone(done, len(clusters))
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	usedFallback := false
	for _, f := range fallbacks {
		usedFallback = usedFallback || f
	}
	return labels, usedFallback
}

// labelCluster names a single cluster. The second return is true when the
// LLM strategy was configured but keywords had to be used.
func (l *Labeler) labelCluster(
	ctx context.Context,
	cluster domain.Cluster,
	segments []domain.Segment,
	vectors [][]float32,
	cfg domain.AutoCodingConfig,
) (Label, bool) {
	if !cfg.UseLLM || l.llm == nil {
		return l.labelByKeywords(cluster, segments), false
	}

	label, err := l.labelWithLLM(ctx, cluster, segments, vectors, cfg)
	if err != nil {
		logger.Warn("labeler: cluster %d: LLM failed (%v), using keywords", cluster.ID, err)
		return l.labelByKeywords(cluster, segments), true
	}
	return label, false
}

// labelWithLLM asks the text-generation service for a label using a bounded
// excerpt of representative segments.
func (l *Labeler) labelWithLLM(
	ctx context.Context,
	cluster domain.Cluster,
	segments []domain.Segment,
	vectors [][]float32,
	cfg domain.AutoCodingConfig,
) (Label, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.LabelTimeout)
	defer cancel()

	excerpts := formatExcerpts(representatives(cluster, vectors, domain.DefaultMaxExcerpts), segments)
	prompt := fmt.Sprintf(labelPrompt, len(cluster.Members), excerpts)

	response, err := l.llm.Generate(ctx, prompt, driven.GenerateOptions{
		MaxTokens:   200,
		Temperature: 0.3,
	})
	if err != nil {
		return Label{}, fmt.Errorf("%w: %v", domain.ErrLLMUnavailable, err)
	}

	label, err := parseLabelResponse(response)
	if err != nil {
		return Label{}, err
	}
	label.Confidence = llmConfidence
	label.Strategy = domain.StrategyLLM
	return label, nil
}

// representatives returns up to n member indices closest to the centroid.
func representatives(cluster domain.Cluster, vectors [][]float32, n int) []int {
	members := append([]int(nil), cluster.Members...)
	sort.SliceStable(members, func(i, j int) bool {
		return cosine(vectors[members[i]], cluster.Centroid) >
			cosine(vectors[members[j]], cluster.Centroid)
	})
	if len(members) > n {
		members = members[:n]
	}
	return members
}

// formatExcerpts renders member texts for the prompt, each capped in length.
func formatExcerpts(members []int, segments []domain.Segment) string {
	parts := make([]string, 0, len(members))
	for i, m := range members {
		text := segments[m].Text
		if utf8.RuneCountInString(text) > domain.DefaultMaxExcerptLength {
			runes := []rune(text)
			text = string(runes[:domain.DefaultMaxExcerptLength]) + "..."
		}
		parts = append(parts, fmt.Sprintf("[%d] %s", i+1, text))
	}
	return strings.Join(parts, "\n---\n")
}

// parseLabelResponse extracts the JSON label object from the model output,
// falling back to the first non-empty line as the name.
func parseLabelResponse(response string) (Label, error) {
	response = strings.TrimSpace(response)
	if response == "" {
		return Label{}, fmt.Errorf("empty response")
	}

	if match := jsonObject.FindString(response); match != "" {
		var parsed struct {
			Name        string   `json:"name"`
			Description string   `json:"description"`
			Keywords    []string `json:"keywords"`
		}
		if err := json.Unmarshal([]byte(match), &parsed); err == nil && parsed.Name != "" {
			return Label{
				Name:        strings.TrimSpace(parsed.Name),
				Description: strings.TrimSpace(parsed.Description),
				Keywords:    parsed.Keywords,
			}, nil
		}
	}

	// No usable JSON; take the first non-empty line as the name.
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			return Label{Name: line}, nil
		}
	}
	return Label{}, fmt.Errorf("unusable response")
}

// labelByKeywords names a cluster from term frequencies after stop-word
// removal. Confidence grows with frequency concentration and stays below
// the LLM constant.
func (l *Labeler) labelByKeywords(cluster domain.Cluster, segments []domain.Segment) Label {
	counts := map[string]int{}
	total := 0
	for _, m := range cluster.Members {
		for _, w := range wordToken.FindAllString(strings.ToLower(segments[m].Text), -1) {
			if _, stop := stopwords[w]; stop {
				continue
			}
			counts[w]++
			total++
		}
	}

	if total == 0 {
		return Label{
			Name:        "Unnamed theme",
			Description: "No significant keywords detected",
			Confidence:  0.3,
			Strategy:    domain.StrategyKeyword,
		}
	}

	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return words[i] < words[j]
	})

	top := words
	if len(top) > 5 {
		top = top[:5]
	}
	nameWords := top
	if len(nameWords) > 3 {
		nameWords = nameWords[:3]
	}

	// Concentration of the name terms within all counted terms.
	concentration := 0.0
	for _, w := range nameWords {
		concentration += float64(counts[w])
	}
	concentration /= float64(total)

	confidence := 0.35 + 0.5*concentration
	if confidence > keywordConfidenceCap {
		confidence = keywordConfidenceCap
	}

	titled := make([]string, len(nameWords))
	for i, w := range nameWords {
		titled[i] = titleCase(w)
	}

	return Label{
		Name:        strings.Join(titled, " / "),
		Description: fmt.Sprintf("Theme around %s", strings.Join(top[:min(3, len(top))], ", ")),
		Keywords:    top,
		Confidence:  confidence,
		Strategy:    domain.StrategyKeyword,
	}
}

// titleCase upper-cases the first rune of a word.
func titleCase(w string) string {
	r, size := utf8.DecodeRuneInString(w)
	if r == utf8.RuneError {
		return w
	}
	return string(unicode.ToUpper(r)) + w[size:]
}
