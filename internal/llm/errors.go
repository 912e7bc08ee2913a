// Package llm provides the generative answer layer.
// This file classifies provider errors for the retry/fallback decision.
package llm

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
)

// ErrorAction is the decision derived from a provider error.
type ErrorAction int

const (
	// ActionRetry indicates the request should be retried on the same provider.
	ActionRetry ErrorAction = iota
	// ActionFallback indicates the other provider should be tried without
	// further retries on this one.
	ActionFallback
	// ActionFail indicates a permanent error; neither retry nor fallback helps.
	ActionFail
)

// String returns a human-readable label for the action.
func (a ErrorAction) String() string {
	switch a {
	case ActionRetry:
		return "retry"
	case ActionFallback:
		return "fallback"
	case ActionFail:
		return "fail"
	default:
		return "unknown"
	}
}

// APIError carries provider and status context for classification.
type APIError struct {
	Err        error
	StatusCode int
	Provider   Provider
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return e.Err.Error() + " (status: " + strconv.Itoa(e.StatusCode) + ")"
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *APIError) Unwrap() error {
	return e.Err
}

// WrapError attaches provider and status code information to an error.
func WrapError(err error, provider Provider, statusCode int) error {
	if err == nil {
		return nil
	}
	return &APIError{Err: err, StatusCode: statusCode, Provider: provider}
}

// ClassifyError maps a provider error to the action the caller should
// take: transient failures (rate limits, 5xx, timeouts) retry, quota
// exhaustion falls back to the other provider, and malformed requests or
// auth failures stop immediately.
func ClassifyError(err error) ErrorAction {
	if err == nil {
		return ActionFail
	}

	if errors.Is(err, context.Canceled) {
		return ActionFail
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ActionRetry
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode > 0 {
		return classifyStatusCode(apiErr.StatusCode)
	}

	msg := strings.ToLower(err.Error())

	// Quota messages often mention rate limits too; check them first.
	if containsAny(msg, "quota", "daily limit", "monthly limit", "billing") {
		return ActionFallback
	}
	if containsAny(msg, "429", "rate limit", "too many requests", "resource_exhausted") {
		return ActionRetry
	}
	if containsAny(msg, "500", "502", "503", "504", "unavailable",
		"internal server error", "bad gateway", "gateway timeout",
		"overloaded", "capacity") {
		return ActionRetry
	}
	if containsAny(msg, "408", "409", "timeout", "deadline", "connection") {
		return ActionRetry
	}
	if containsAny(msg, "400", "invalid", "bad request", "malformed") {
		return ActionFail
	}
	if containsAny(msg, "401", "unauthorized", "unauthenticated", "api key") {
		return ActionFail
	}
	if containsAny(msg, "403", "forbidden", "permission denied") {
		return ActionFail
	}
	if containsAny(msg, "404", "not found") {
		return ActionFail
	}
	if containsAny(msg, "422", "unprocessable") {
		return ActionFail
	}

	// Unknown errors are treated as transient.
	return ActionRetry
}

// classifyStatusCode determines the action from an HTTP status code.
func classifyStatusCode(statusCode int) ErrorAction {
	switch {
	case statusCode == http.StatusTooManyRequests:
		return ActionRetry
	case statusCode == http.StatusRequestTimeout:
		return ActionRetry
	case statusCode == http.StatusConflict:
		return ActionRetry
	case statusCode >= 500 && statusCode < 600:
		return ActionRetry
	case statusCode >= 400 && statusCode < 500:
		return ActionFail
	default:
		return ActionRetry
	}
}

// IsRetryable reports whether the error is transient.
func IsRetryable(err error) bool {
	return ClassifyError(err) == ActionRetry
}

// IsPermanent reports whether the error should not be retried.
func IsPermanent(err error) bool {
	return ClassifyError(err) == ActionFail
}

// ShouldFallback reports whether the error warrants trying the other provider.
func ShouldFallback(err error) bool {
	return ClassifyError(err) == ActionFallback
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
