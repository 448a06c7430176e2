// Package answer holds a generated answer together with the chunks it was grounded on.
package answer

import "github.com/kailas-cloud/docqa/internal/domain/retrieval"

// Answer is the model reply plus the exact retrieval result used to produce it.
type Answer struct {
	question string
	text     string
	sources  retrieval.Result
	model    string
}

// New creates an Answer. sources must be the retrieval result the prompt was built from.
func New(question, text string, sources retrieval.Result, model string) Answer {
	return Answer{question: question, text: text, sources: sources, model: model}
}

// Question returns the user question.
func (a Answer) Question() string { return a.question }

// Text returns the generated answer.
func (a Answer) Text() string { return a.text }

// Sources returns the supporting matches in rank order.
func (a Answer) Sources() retrieval.Result { return a.sources }

// Model returns the model that produced the answer.
func (a Answer) Model() string { return a.model }

// Contexts returns the supporting chunk texts, the grounding a scorer judges against.
func (a Answer) Contexts() []string {
	chunks := a.sources.Chunks()
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text()
	}
	return out
}
