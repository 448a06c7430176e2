package chunk

import (
	"fmt"

	"github.com/kailas-cloud/docqa/internal/domain"
)

// Span is a window of the source text with its rune offset.
type Span struct {
	Text   string
	Offset int
}

// Split cuts text into windows of at most size runes. Consecutive windows share
// exactly overlap runes, so dropping the first overlap runes of every window but
// the first and concatenating restores text. Empty text yields no spans.
func Split(text string, size, overlap int) ([]Span, error) {
	if err := ValidateParams(size, overlap); err != nil {
		return nil, err
	}

	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil, nil
	}

	step := size - overlap
	spans := make([]Span, 0, (n+step-1)/step)
	for start := 0; ; start += step {
		end := min(start+size, n)
		spans = append(spans, Span{Text: string(runes[start:end]), Offset: start})
		if end == n {
			break
		}
	}
	return spans, nil
}

// ValidateParams checks that size and overlap describe a valid sliding window.
func ValidateParams(size, overlap int) error {
	if size <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrInvalidChunking, size)
	}
	if overlap < 0 || overlap >= size {
		return fmt.Errorf("%w: overlap must be in [0, %d), got %d", domain.ErrInvalidChunking, size, overlap)
	}
	return nil
}

// Pager maps a rune offset to a 1-based page.
type Pager interface {
	PageAt(offset int) int
}

// Build splits text and turns every span into a Chunk of the given source.
func Build(text, sourceID, source string, pages Pager, size, overlap int) ([]Chunk, error) {
	spans, err := Split(text, size, overlap)
	if err != nil {
		return nil, err
	}
	chunks := make([]Chunk, len(spans))
	for i, s := range spans {
		page := 0
		if pages != nil {
			page = pages.PageAt(s.Offset)
		}
		chunks[i] = New(s.Text, sourceID, source, s.Offset, page)
	}
	return chunks, nil
}
