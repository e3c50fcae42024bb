package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedFormat indicates a corpus file with no registered
	// normaliser.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrLLMUnavailable indicates the generation service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	// Retrieval is disabled without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrVectorIndexUnavailable indicates the vector index is not configured.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")
)

// DimensionMismatchError indicates a vector whose dimension differs from
// the dimension the index holds. The offending entry is never inserted.
type DimensionMismatchError struct {
	Want int
	Got  int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: index holds %d-dimensional vectors, got %d", e.Want, e.Got)
}

// DuplicateIDError indicates an entry id already present in the index.
type DuplicateIDError struct {
	ID string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate entry id %q", e.ID)
}

// StoreCorruptError indicates a persisted index file that cannot be
// restored: unreadable, truncated, or written by an incompatible format
// version. Loading must not partially populate the index.
type StoreCorruptError struct {
	Path   string
	Reason string
	Err    error
}

func (e *StoreCorruptError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("index store corrupt at %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("index store corrupt at %s: %s", e.Path, e.Reason)
}

func (e *StoreCorruptError) Unwrap() error { return e.Err }

// RateLimitError indicates the provider rejected a call for exceeding
// its rate limits. Retryable; RetryAfter is the provider's suggested
// wait when it sent one, zero otherwise.
type RateLimitError struct {
	Provider   string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s: rate limited, retry after %s", e.Provider, e.RetryAfter)
	}
	return fmt.Sprintf("%s: rate limited", e.Provider)
}

// ProviderUnavailableError indicates a transient provider failure:
// a 5xx response, an overloaded signal, or a connection error.
// Retryable.
type ProviderUnavailableError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *ProviderUnavailableError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: provider unavailable (status %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: provider unavailable: %s", e.Provider, e.Message)
}

// AuthError indicates rejected credentials. Never retried; the caller
// should not continue against the same provider.
type AuthError struct {
	Provider string
	Message  string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: authentication failed: %s", e.Provider, e.Message)
}

// IsDimensionMismatch checks if the error is a dimension mismatch.
func IsDimensionMismatch(err error) bool {
	var dimErr *DimensionMismatchError
	return errors.As(err, &dimErr)
}

// IsDuplicateID checks if the error is a duplicate entry id.
func IsDuplicateID(err error) bool {
	var dupErr *DuplicateIDError
	return errors.As(err, &dupErr)
}

// IsStoreCorrupt checks if the error indicates an unrestorable index file.
func IsStoreCorrupt(err error) bool {
	var corruptErr *StoreCorruptError
	return errors.As(err, &corruptErr)
}

// IsRateLimited checks if the error indicates provider rate limiting.
func IsRateLimited(err error) bool {
	var rateErr *RateLimitError
	return errors.As(err, &rateErr)
}

// IsProviderUnavailable checks if the error indicates a transient
// provider failure.
func IsProviderUnavailable(err error) bool {
	var unavailErr *ProviderUnavailableError
	return errors.As(err, &unavailErr)
}

// IsAuthError checks if the error indicates rejected credentials.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// IsRetryable reports whether a provider call may be retried:
// rate limiting and transient unavailability are retryable, everything
// else is surfaced immediately.
func IsRetryable(err error) bool {
	return IsRateLimited(err) || IsProviderUnavailable(err)
}

// IsTimeout checks if the error is a caller-imposed deadline expiry,
// reported distinctly from provider errors.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

// RetryAfterHint extracts the provider's suggested wait from a rate
// limit error, zero when there is none.
func RetryAfterHint(err error) time.Duration {
	var rateErr *RateLimitError
	if errors.As(err, &rateErr) {
		return rateErr.RetryAfter
	}
	return 0
}
