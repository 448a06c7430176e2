// Package chunk holds the unit of retrieval and the splitter that produces it.
package chunk

import "fmt"

// Chunk is a bounded span of source text. Immutable after New.
type Chunk struct {
	text     string
	sourceID string
	source   string
	position int
	page     int
}

// New creates a chunk. position is the rune offset in the source text,
// page is 1-based (0 when the source has no pages).
func New(text, sourceID, source string, position, page int) Chunk {
	return Chunk{
		text:     text,
		sourceID: sourceID,
		source:   source,
		position: position,
		page:     page,
	}
}

// Text returns the chunk text.
func (c Chunk) Text() string { return c.text }

// SourceID returns the stable identifier of the source document.
func (c Chunk) SourceID() string { return c.sourceID }

// Source returns the human-readable source name (file path).
func (c Chunk) Source() string { return c.source }

// Position returns the rune offset of the chunk in the source text.
func (c Chunk) Position() int { return c.position }

// Page returns the page the chunk starts on, 0 when unknown.
func (c Chunk) Page() int { return c.page }

// ID is the storage key of the chunk, unique within a source.
func (c Chunk) ID() string {
	return fmt.Sprintf("%s:%08d", c.sourceID, c.position)
}
