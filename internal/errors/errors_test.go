package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinelErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		err      error
		target   error
		expected bool
	}{
		{
			name:     "ErrNotFound is recognized",
			err:      ErrNotFound,
			target:   ErrNotFound,
			expected: true,
		},
		{
			name:     "Wrapped ErrNoData is recognized",
			err:      fmt.Errorf("loading corpus: %w", ErrNoData),
			target:   ErrNoData,
			expected: true,
		},
		{
			name:     "Joined ErrIndexStale is recognized",
			err:      errors.Join(ErrIndexStale, errors.New("additional context")),
			target:   ErrIndexStale,
			expected: true,
		},
		{
			name:     "Different sentinel does not match",
			err:      ErrEmptyCorpus,
			target:   ErrNotFound,
			expected: false,
		},
		{
			name:     "ErrProviderUnavailable is recognized",
			err:      ErrProviderUnavailable,
			target:   ErrProviderUnavailable,
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Is(tt.err, tt.target); got != tt.expected {
				t.Errorf("errors.Is() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestValidationError(t *testing.T) {
	t.Parallel()
	err := NewValidationError("question", "must not be empty")

	if err.Field != "question" {
		t.Errorf("expected field 'question', got '%s'", err.Field)
	}

	if err.Message != "must not be empty" {
		t.Errorf("expected message 'must not be empty', got '%s'", err.Message)
	}

	expected := "validation failed on question: must not be empty"
	if err.Error() != expected {
		t.Errorf("expected error '%s', got '%s'", expected, err.Error())
	}
}

func TestScrapeError(t *testing.T) {
	t.Parallel()
	baseErr := errors.New("connection timeout")
	err := NewScrapeError("https://abit.itmo.ru/program/master/ai", 500, baseErr)

	if err.URL != "https://abit.itmo.ru/program/master/ai" {
		t.Errorf("unexpected URL: %s", err.URL)
	}

	if err.StatusCode != 500 {
		t.Errorf("expected status code 500, got %d", err.StatusCode)
	}

	if !errors.Is(err, baseErr) {
		t.Error("expected error to wrap base error")
	}

	if err.Error() == "" {
		t.Error("expected non-empty error message")
	}

	// Status code zero has its own format.
	err2 := NewScrapeError("https://abit.itmo.ru/program/master/ai_product", 0, baseErr)
	if err2.Error() == "" {
		t.Error("expected non-empty error message")
	}
}

func TestProviderError(t *testing.T) {
	t.Parallel()
	baseErr := ErrProviderUnavailable
	err := NewProviderError("gemini", baseErr)

	if err.Provider != "gemini" {
		t.Errorf("expected provider 'gemini', got '%s'", err.Provider)
	}

	if !errors.Is(err, ErrProviderUnavailable) {
		t.Error("expected error to unwrap to ErrProviderUnavailable")
	}

	var pe *ProviderError
	if !errors.As(fmt.Errorf("chain: %w", err), &pe) {
		t.Error("expected errors.As to find ProviderError")
	}
}
