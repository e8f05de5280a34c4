package domain

// LabelStrategy identifies how a proposal's name was generated.
type LabelStrategy string

// Available labeling strategies.
const (
	// StrategyLLM means the name came from the local text-generation service.
	StrategyLLM LabelStrategy = "llm"

	// StrategyKeyword means the name came from keyword extraction.
	StrategyKeyword LabelStrategy = "keyword"
)

// String returns the string representation.
func (s LabelStrategy) String() string {
	return string(s)
}

// NodeProposal is a suggested coding category derived from one cluster,
// pending user validation. It is a read-only transfer object; it is never
// mutated once emitted.
type NodeProposal struct {
	// ID is a unique identifier for this proposal.
	ID string

	// Name is the proposed category name.
	Name string

	// Description is a one-sentence explanation of the theme.
	Description string

	// Keywords are representative terms for the theme.
	Keywords []string

	// Segments are the covered text segments, in segment order.
	Segments []Segment

	// Confidence is the labeling certainty in [0,1].
	Confidence float64

	// ClusterID is the run-local cluster the proposal was derived from.
	ClusterID int

	// Strategy records which labeling strategy actually produced the name.
	Strategy LabelStrategy

	// Color is a display colour derived from the proposal index.
	// It carries no semantic meaning.
	Color string
}

// SegmentCount returns the number of covered segments.
func (p NodeProposal) SegmentCount() int {
	return len(p.Segments)
}

// ConfidenceLevel returns a coarse human-readable confidence band.
func (p NodeProposal) ConfidenceLevel() string {
	switch {
	case p.Confidence >= 0.9:
		return "Very high"
	case p.Confidence >= 0.7:
		return "High"
	case p.Confidence >= 0.5:
		return "Medium"
	default:
		return "Low"
	}
}

// themeColors are visually distinct colours assigned to proposals by index.
var themeColors = []string{
	"#3498db", "#2ecc71", "#e74c3c", "#9b59b6", "#f39c12",
	"#1abc9c", "#e91e63", "#00bcd4", "#8bc34a", "#ff5722",
	"#673ab7", "#009688", "#ffeb3b", "#795548", "#607d8b",
	"#ff9800", "#4caf50", "#2196f3", "#f44336", "#9c27b0",
}

// ThemeColor returns a distinct display colour for a proposal index.
func ThemeColor(index int) string {
	if index < 0 {
		index = -index
	}
	return themeColors[index%len(themeColors)]
}
