package services

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/qualex-labs/qualex/internal/core/domain"
	"github.com/qualex-labs/qualex/internal/logger"
)

// paragraphSep matches blank-line boundaries between paragraphs.
var paragraphSep = regexp.MustCompile(`\n[ \t\r]*\n`)

// abbreviations that end with a period but do not terminate a sentence.
var abbreviations = map[string]struct{}{
	"mr": {}, "mrs": {}, "ms": {}, "dr": {}, "prof": {}, "sr": {}, "jr": {},
	"st": {}, "vs": {}, "etc": {}, "e.g": {}, "i.e": {}, "cf": {},
	"approx": {}, "no": {}, "fig": {}, "vol": {}, "pp": {}, "al": {},
}

// span is a half-open byte range into a source text.
type span struct {
	start, end int
}

// Segmenter splits source text into addressable segments under a
// granularity policy. It is stateless and safe for concurrent use.
type Segmenter struct{}

// NewSegmenter creates a segmenter.
func NewSegmenter() *Segmenter {
	return &Segmenter{}
}

// Segment splits one source into an ordered, non-overlapping sequence of
// segments. Empty source text yields an empty slice, not an error.
// Offsets index the original source text; segment text is the trimmed span
// and offsets are adjusted to the trimmed range, so
// content[seg.Start:seg.End] == seg.Text holds exactly.
func (s *Segmenter) Segment(source domain.Source, cfg domain.AutoCodingConfig) []domain.Segment {
	content := source.Content
	if strings.TrimSpace(content) == "" {
		return nil
	}

	var spans []span
	switch cfg.Granularity {
	case domain.GranularitySentence:
		spans = splitSentences(content)
	case domain.GranularityWindow:
		spans = splitWindows(content, cfg.WindowSize, cfg.WindowOverlap)
	default:
		spans = splitParagraphs(content)
	}

	segments := make([]domain.Segment, 0, len(spans))
	for _, sp := range spans {
		start, end := trimSpan(content, sp.start, sp.end)
		if end-start < cfg.MinSegmentLength {
			continue
		}
		segments = append(segments, domain.Segment{
			SourceID: source.ID,
			Start:    start,
			End:      end,
			Text:     content[start:end],
			Index:    len(segments),
		})
	}

	logger.Debug("segmenter: source %s: %d spans, %d segments kept (mode=%s)",
		source.ID, len(spans), len(segments), cfg.Granularity)
	return segments
}

// SegmentAll splits every source in order and concatenates the results.
func (s *Segmenter) SegmentAll(sources []domain.Source, cfg domain.AutoCodingConfig) []domain.Segment {
	var all []domain.Segment
	for _, src := range sources {
		all = append(all, s.Segment(src, cfg)...)
	}
	return all
}

// splitParagraphs splits on blank-line boundaries.
func splitParagraphs(text string) []span {
	var spans []span
	last := 0
	for _, sep := range paragraphSep.FindAllStringIndex(text, -1) {
		if last < sep[0] {
			spans = append(spans, span{last, sep[0]})
		}
		last = sep[1]
	}
	if last < len(text) {
		spans = append(spans, span{last, len(text)})
	}
	return spans
}

// splitSentences splits on sentence-terminal punctuation with a basic
// abbreviation guard.
func splitSentences(text string) []span {
	var spans []span
	last := 0
	i := 0
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if r == '.' || r == '!' || r == '?' {
			// Consume a run of terminal punctuation.
			j := i + size
			for j < len(text) {
				rn, sn := utf8.DecodeRuneInString(text[j:])
				if rn != '.' && rn != '!' && rn != '?' {
					break
				}
				j += sn
			}
			if sentenceBoundary(text, last, i, j) {
				spans = append(spans, span{last, j})
				last = j
			}
			i = j
			continue
		}
		i += size
	}
	if last < len(text) {
		spans = append(spans, span{last, len(text)})
	}
	return spans
}

// sentenceBoundary reports whether the punctuation run ending at end
// terminates a sentence rather than an abbreviation.
func sentenceBoundary(text string, start, punct, end int) bool {
	// Must be followed by whitespace or end of text.
	if end < len(text) {
		r, _ := utf8.DecodeRuneInString(text[end:])
		if !unicode.IsSpace(r) {
			return false
		}
	}
	if text[punct] != '.' {
		return true
	}
	// Word immediately before the period.
	w := punct
	for w > start {
		r, size := utf8.DecodeLastRuneInString(text[start:w])
		if !unicode.IsLetter(r) && r != '.' {
			break
		}
		w -= size
	}
	word := strings.ToLower(strings.TrimSuffix(text[w:punct], "."))
	if _, ok := abbreviations[word]; ok {
		return false
	}
	// Single-letter initials ("J. Smith").
	if utf8.RuneCountInString(word) == 1 {
		return false
	}
	return true
}

// splitWindows produces fixed-size rune windows advancing by size-overlap.
// The overlap is already clamped below the size by config normalisation,
// which guarantees forward progress.
func splitWindows(text string, size, overlap int) []span {
	if size <= 0 {
		return nil
	}
	if overlap >= size {
		overlap = size / 4
	}
	// Byte offset of every rune boundary, plus the end of text.
	offsets := make([]int, 0, len(text)+1)
	for i := range text {
		offsets = append(offsets, i)
	}
	offsets = append(offsets, len(text))

	runes := len(offsets) - 1
	var spans []span
	for start := 0; start < runes; start += size - overlap {
		end := start + size
		if end > runes {
			end = runes
		}
		spans = append(spans, span{offsets[start], offsets[end]})
		if end == runes {
			break
		}
	}
	return spans
}

// trimSpan shrinks a span to exclude leading and trailing whitespace.
func trimSpan(text string, start, end int) (int, int) {
	for start < end {
		r, size := utf8.DecodeRuneInString(text[start:end])
		if !unicode.IsSpace(r) {
			break
		}
		start += size
	}
	for end > start {
		r, size := utf8.DecodeLastRuneInString(text[start:end])
		if !unicode.IsSpace(r) {
			break
		}
		end -= size
	}
	return start, end
}
