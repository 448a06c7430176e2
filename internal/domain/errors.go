package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidQuery signals an empty question or a non-positive K.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrInvalidChunking signals chunk parameters that cannot produce a valid split.
	ErrInvalidChunking = errors.New("invalid chunking parameters")
	// ErrDocumentUnreadable signals a source document that cannot be opened or parsed.
	ErrDocumentUnreadable = errors.New("document unreadable")
	// ErrEmptyDocument signals a document without extractable text.
	ErrEmptyDocument = errors.New("document has no text")
	// ErrUnsupportedFormat signals a document type the loader does not handle.
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")

	// ErrEmbeddingQuotaExceeded signals an exhausted embedding budget.
	ErrEmbeddingQuotaExceeded = errors.New("embedding quota exceeded")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrGenerationFailed signals a language model call failure.
	ErrGenerationFailed = errors.New("generation failed")
	// ErrEvaluationFailed signals a scoring failure.
	ErrEvaluationFailed = errors.New("evaluation failed")
	// ErrIndexUnavailable signals an unreachable vector index.
	ErrIndexUnavailable = errors.New("vector index unavailable")
)

// BatchMismatchError reports a provider that returned a different number of vectors than requested.
type BatchMismatchError struct {
	Want int
	Got  int
}

func (e *BatchMismatchError) Error() string {
	return fmt.Sprintf("%s: expected %d embeddings, got %d", ErrEmbeddingProviderError.Error(), e.Want, e.Got)
}

func (e *BatchMismatchError) Unwrap() error { return ErrEmbeddingProviderError }
