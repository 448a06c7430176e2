package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	domeval "github.com/kailas-cloud/docqa/internal/domain/evaluation"
	qauc "github.com/kailas-cloud/docqa/internal/usecase/qa"
)

const previewLen = 160

const (
	ansiReset  = "\033[0m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiRed    = "\033[31m"
)

// exampleQuestions are offered by /examples in chat.
var exampleQuestions = []string{
	"What is FastAPI?",
	"How do I create a POST endpoint?",
	"Explain path parameters",
	"What is dependency injection?",
}

// printer renders answers to a terminal or a plain stream.
type printer struct {
	w     io.Writer
	color bool
}

func newPrinter(w io.Writer) *printer {
	return &printer{w: w, color: isTerminal(w)}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}

func (p *printer) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.w, format, args...)
}

func (p *printer) result(res qauc.Result, threshold float64) {
	ans := res.Answer
	p.printf("\n%s\n", ans.Text())

	sources := ans.Sources().Matches()
	if len(sources) > 0 {
		p.printf("\nSources (%d):\n", len(sources))
	}
	for i, m := range sources {
		loc := m.Chunk.Source()
		if m.Chunk.Page() > 0 {
			loc = fmt.Sprintf("%s, page %d", loc, m.Chunk.Page())
		}
		p.printf("  [%d] %s (relevance %.2f)\n      %s\n", i+1, loc, m.Score, preview(m.Chunk.Text()))
	}

	if res.Evaluated {
		p.score(res.Score, threshold)
	}
	p.printf("\n")
}

func (p *printer) score(s domeval.Score, threshold float64) {
	if !s.Available() {
		p.printf("\nEvaluation unavailable: %s\n", s.Reason())
		return
	}
	p.printf("\nEvaluation:\n")
	p.printf("  Faithfulness: %s\n", p.band(s.Faithfulness()))
	p.printf("  Relevancy:    %s\n", p.band(s.Relevancy()))
	if s.HallucinationRisk(threshold) {
		p.printf("  %s\n", p.paint(ansiRed,
			fmt.Sprintf("Possible hallucination: faithfulness below %.2f", threshold)))
	}
}

func (p *printer) band(v float64) string {
	b := domeval.BandOf(v)
	text := fmt.Sprintf("%.2f (%s)", v, b)
	switch b {
	case domeval.BandGood:
		return p.paint(ansiGreen, text)
	case domeval.BandFair:
		return p.paint(ansiYellow, text)
	default:
		return p.paint(ansiRed, text)
	}
}

func (p *printer) paint(code, text string) string {
	if !p.color {
		return text
	}
	return code + text + ansiReset
}

func (p *printer) examples() {
	p.printf("Example questions:\n")
	for _, q := range exampleQuestions {
		p.printf("  - %s\n", q)
	}
}

func preview(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	r := []rune(text)
	if len(r) <= previewLen {
		return text
	}
	return string(r[:previewLen]) + "..."
}
