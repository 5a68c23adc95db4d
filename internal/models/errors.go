package models

import (
	"context"
	"errors"
	"fmt"
)

// ErrEmptyCorpus is returned when a search or search-dependent operation
// runs before any document has been admitted to the index.
var ErrEmptyCorpus = errors.New("corpus is empty: upload at least one document")

// ValidationError reports a rejected caller input such as a non-positive
// top_k or a blank query.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ExtractionError reports a whole-document parse failure. It is fatal to
// that upload only; per-page recognition failures never produce it.
type ExtractionError struct {
	Filename string
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extracting %s: %v", e.Filename, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// IndexStateError reports a corpus index invariant violation, e.g. a chunk
// id collision. It indicates a bug, never expected in correct operation.
type IndexStateError struct {
	Op     string
	Reason string
}

func (e *IndexStateError) Error() string {
	return fmt.Sprintf("index state violation during %s: %s", e.Op, e.Reason)
}

// ProviderError wraps a failed call to an external embedding or recognition
// provider. Retryable is set for timeouts and other transient conditions.
type ProviderError struct {
	Op        string
	Retryable bool
	Err       error
}

func (e *ProviderError) Error() string {
	if e.Retryable {
		return fmt.Sprintf("%s provider call failed (retryable): %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s provider call failed: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// NewProviderError wraps a provider failure, marking deadline expiry as
// retryable since timeouts are the dominant transient failure mode.
func NewProviderError(op string, err error) *ProviderError {
	return &ProviderError{
		Op:        op,
		Retryable: errors.Is(err, context.DeadlineExceeded),
		Err:       err,
	}
}
