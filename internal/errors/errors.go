// Package errors provides domain-specific error types and sentinel errors
// for improved error handling across the application.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common scenarios.
// Use errors.Is() to check these errors in your code.
var (
	// ErrNotFound indicates a requested resource was not found.
	ErrNotFound = errors.New("resource not found")

	// ErrNoData indicates the knowledge base returned no records.
	// Matching and recommendation degrade to their empty responses.
	ErrNoData = errors.New("no data available")

	// ErrEmptyCorpus indicates the similarity index was asked to fit an
	// empty question corpus.
	ErrEmptyCorpus = errors.New("empty corpus")

	// ErrIndexStale indicates a query hit an index built from a corpus
	// snapshot that has since changed.
	ErrIndexStale = errors.New("similarity index stale")

	// ErrIndexNotReady indicates the similarity index has not been built yet.
	ErrIndexNotReady = errors.New("similarity index not ready")

	// ErrInvalidInput indicates user provided invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrProviderUnavailable indicates an answer provider cannot serve the
	// request (unconfigured or degraded); the chain moves on.
	ErrProviderUnavailable = errors.New("answer provider unavailable")

	// ErrAllProvidersFailed indicates every configured LLM provider failed.
	ErrAllProvidersFailed = errors.New("all providers failed")

	// ErrTimeout indicates an operation timed out.
	ErrTimeout = errors.New("operation timed out")

	// ErrContextCanceled indicates context was canceled.
	ErrContextCanceled = errors.New("context canceled")

	// ErrBackupDisabled indicates snapshot storage is not configured.
	ErrBackupDisabled = errors.New("snapshot storage disabled")
)

// ValidationError represents input validation failures.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// ScrapeError represents program-page scraping failures with context.
type ScrapeError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *ScrapeError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("scrape error (url=%s, status=%d): %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("scrape error (url=%s): %v", e.URL, e.Err)
}

func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// NewScrapeError creates a new scrape error.
func NewScrapeError(url string, statusCode int, err error) *ScrapeError {
	return &ScrapeError{
		URL:        url,
		StatusCode: statusCode,
		Err:        err,
	}
}

// ProviderError represents an answer-provider failure with the provider name
// attached for logs and metrics.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError creates a new provider error.
func NewProviderError(provider string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Err: err}
}
