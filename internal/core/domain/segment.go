package domain

// Source is a unit of analysable text handed to the engine by the caller.
// Content must already be decoded to UTF-8; the engine performs no encoding
// detection.
type Source struct {
	// ID is the caller's identifier for the source.
	ID string

	// Name is the human-readable source name, used in diagnostics only.
	Name string

	// Content is the full plain-text content of the source.
	Content string
}

// Segment is a contiguous span of text extracted from one source.
// It is the minimal unit the pipeline embeds, clusters and labels.
// Segments are immutable once created.
type Segment struct {
	// SourceID identifies the source the span was extracted from.
	SourceID string

	// Start is the byte offset of the span in the original source text.
	Start int

	// End is the byte offset one past the span in the original source text.
	End int

	// Text is the trimmed span text. Offsets refer to this exact text
	// within the original source; they are never re-derived.
	Text string

	// Index is the ordinal position of the segment within its source.
	Index int
}

// Len returns the length of the segment text in bytes.
func (s Segment) Len() int {
	return len(s.Text)
}

// Preview returns a truncated form of the segment text for display.
func (s Segment) Preview() string {
	const max = 100
	if len(s.Text) <= max {
		return s.Text
	}
	return s.Text[:max-3] + "..."
}
