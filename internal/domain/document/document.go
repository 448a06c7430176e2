// Package document holds a loaded source document before it is split into chunks.
package document

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// PageSeparator joins consecutive pages in the document text.
const PageSeparator = "\n\n"

// sourceNamespace scopes source ids so the same path always maps to the same id.
var sourceNamespace = uuid.MustParse("6f1c8d2e-3a57-4b0e-9c41-2f7d5e8a9b13")

// Document is the text of one source with the rune offset where every page begins.
type Document struct {
	source     string
	sourceID   string
	text       string
	pageStarts []int
}

// New builds a document from its pages. Empty pages are kept so page numbers
// stay aligned with the source file.
func New(source string, pages []string) (Document, error) {
	if source == "" {
		return Document{}, fmt.Errorf("document source is required")
	}

	var b strings.Builder
	starts := make([]int, 0, len(pages))
	offset := 0
	for i, p := range pages {
		if i > 0 {
			b.WriteString(PageSeparator)
			offset += utf8.RuneCountInString(PageSeparator)
		}
		starts = append(starts, offset)
		b.WriteString(p)
		offset += utf8.RuneCountInString(p)
	}

	return Document{
		source:     source,
		sourceID:   SourceID(source),
		text:       b.String(),
		pageStarts: starts,
	}, nil
}

// SourceID derives the stable identifier for a source path.
func SourceID(source string) string {
	return uuid.NewSHA1(sourceNamespace, []byte(source)).String()
}

// Source returns the path the document was loaded from.
func (d Document) Source() string { return d.source }

// SourceID returns the stable identifier of the source.
func (d Document) SourceID() string { return d.sourceID }

// Text returns the full document text.
func (d Document) Text() string { return d.text }

// Pages returns the number of pages.
func (d Document) Pages() int { return len(d.pageStarts) }

// IsBlank reports whether the document has no non-whitespace text.
func (d Document) IsBlank() bool { return strings.TrimSpace(d.text) == "" }

// PageAt returns the 1-based page containing the rune offset, 0 for a document without pages.
func (d Document) PageAt(offset int) int {
	if len(d.pageStarts) == 0 {
		return 0
	}
	// first page start strictly after offset, the page before it holds offset
	i := sort.Search(len(d.pageStarts), func(i int) bool { return d.pageStarts[i] > offset })
	if i == 0 {
		return 1
	}
	return i
}
