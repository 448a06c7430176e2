// Package loader reads source documents from disk page by page.
package loader

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/kailas-cloud/docqa/internal/domain"
	"github.com/kailas-cloud/docqa/internal/domain/document"
)

// Load reads the file at path. PDFs yield one page per PDF page, text and
// markdown files are a single page. The document source is the absolute path.
func Load(path string) (document.Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return document.Document{}, fmt.Errorf("%w: %s: %v", domain.ErrDocumentUnreadable, path, err)
	}

	var pages []string
	switch strings.ToLower(filepath.Ext(abs)) {
	case ".pdf":
		pages, err = readPDF(abs)
	case ".txt", ".md", ".markdown":
		pages, err = readText(abs)
	default:
		return document.Document{}, fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, filepath.Ext(abs))
	}
	if err != nil {
		return document.Document{}, err
	}

	doc, err := document.New(abs, pages)
	if err != nil {
		return document.Document{}, fmt.Errorf("%w: %v", domain.ErrDocumentUnreadable, err)
	}
	if doc.IsBlank() {
		return document.Document{}, fmt.Errorf("%w: %s", domain.ErrEmptyDocument, abs)
	}
	return doc, nil
}

func readText(path string) ([]string, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDocumentUnreadable, err)
	}
	return []string{string(data)}, nil
}

// readPDF extracts the plain text of every page. The parser panics on some
// malformed files, which is reported as an unreadable document.
func readPDF(path string) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("%w: %s: malformed pdf: %v", domain.ErrDocumentUnreadable, path, r)
		}
	}()

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDocumentUnreadable, err)
	}
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrDocumentUnreadable, path, err)
	}

	n := r.NumPage()
	pages = make([]string, 0, n)
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %s page %d: %v", domain.ErrDocumentUnreadable, path, i, err)
		}
		pages = append(pages, strings.TrimSpace(text))
	}
	return pages, nil
}
