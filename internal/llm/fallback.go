// Package llm provides the generative answer layer.
// This file contains the fallback wrapper for cross-provider failover.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/abitlab/itmo-advisor-go/internal/logger"
	"github.com/abitlab/itmo-advisor-go/internal/metrics"
)

// Fallback tries the primary client with bounded retries and falls back
// to the secondary when the primary keeps failing transiently or runs
// out of quota. Permanent errors (bad request, auth) stop the chain
// immediately.
type Fallback struct {
	primary   Client
	secondary Client
	retry     RetryConfig
	log       *logger.Logger
	metrics   *metrics.Metrics
}

// NewFallback combines two clients into a chain. secondary may be nil,
// which leaves only retry on the primary. A zero retry config falls
// back to the defaults.
func NewFallback(primary, secondary Client, retry RetryConfig, log *logger.Logger, m *metrics.Metrics) *Fallback {
	if retry.MaxAttempts <= 0 {
		retry = DefaultRetryConfig()
	}
	return &Fallback{
		primary:   primary,
		secondary: secondary,
		retry:     retry,
		log:       log.WithModule("llm"),
		metrics:   m,
	}
}

// Complete answers through the provider chain.
func (f *Fallback) Complete(ctx context.Context, system, user string) (string, error) {
	if f == nil || f.primary == nil {
		return "", errors.New("no llm provider configured")
	}

	start := time.Now()
	primary := f.primary.Provider()

	answer, err := f.completeWithRetry(ctx, f.primary, system, user)
	if err == nil {
		f.recordRequest(primary, "success")
		return answer, nil
	}

	action := ClassifyError(err)
	f.recordRequest(primary, statusLabel(err))
	f.log.Warn("primary llm provider failed",
		"provider", primary,
		"action", action,
		"duration_ms", time.Since(start).Milliseconds(),
		"error", err)

	if action == ActionFail || f.secondary == nil {
		return "", err
	}

	secondary := f.secondary.Provider()
	f.log.Info("falling back to secondary llm provider",
		"from", primary,
		"to", secondary)

	answer, err = f.completeWithRetry(ctx, f.secondary, system, user)
	if err == nil {
		f.recordRequest(secondary, "success")
		f.recordFallback(primary, secondary)
		return answer, nil
	}

	f.recordRequest(secondary, statusLabel(err))
	f.log.Error("all llm providers failed",
		"primary", primary,
		"secondary", secondary,
		"error", err)

	return "", fmt.Errorf("all providers failed: %w", err)
}

// completeWithRetry retries transient failures on a single client.
func (f *Fallback) completeWithRetry(ctx context.Context, client Client, system, user string) (string, error) {
	var lastErr error

	for attempt := range f.retry.MaxAttempts {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		answer, err := client.Complete(ctx, system, user)
		if err == nil {
			return answer, nil
		}
		lastErr = err

		if ClassifyError(err) != ActionRetry {
			return "", err
		}
		if attempt == f.retry.MaxAttempts-1 {
			break
		}

		backoff := CalculateBackoff(attempt+1, f.retry.InitialDelay, f.retry.MaxDelay)
		if !HasSufficientBudget(ctx, backoff) {
			return "", fmt.Errorf("timeout during retry: %w", lastErr)
		}

		f.log.Debug("retrying llm request",
			"provider", client.Provider(),
			"attempt", attempt+1,
			"backoff", backoff,
			"error", err)

		if err := Sleep(ctx, backoff); err != nil {
			return "", err
		}
	}

	return "", lastErr
}

// IsEnabled reports whether at least one provider can serve requests.
func (f *Fallback) IsEnabled() bool {
	if f == nil {
		return false
	}
	return (f.primary != nil && f.primary.IsEnabled()) ||
		(f.secondary != nil && f.secondary.IsEnabled())
}

// Provider identifies the primary provider.
func (f *Fallback) Provider() Provider {
	if f == nil || f.primary == nil {
		return ""
	}
	return f.primary.Provider()
}

// Close closes both clients.
func (f *Fallback) Close() error {
	if f == nil {
		return nil
	}

	var errs []error
	if f.primary != nil {
		if err := f.primary.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if f.secondary != nil {
		if err := f.secondary.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

func (f *Fallback) recordRequest(provider Provider, status string) {
	if f.metrics == nil {
		return
	}
	f.metrics.RecordProviderRequest(string(provider), status)
}

func (f *Fallback) recordFallback(from, to Provider) {
	if f.metrics == nil {
		return
	}
	f.metrics.RecordProviderFallback(string(from), string(to))
}

// statusLabel maps an error to a coarse metric label.
func statusLabel(err error) string {
	if err == nil {
		return "success"
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return "rate_limit"
		case apiErr.StatusCode >= 500:
			return "server_error"
		case apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden:
			return "auth_error"
		case apiErr.StatusCode == http.StatusBadRequest:
			return "invalid_request"
		}
	}

	switch ClassifyError(err) {
	case ActionFallback:
		return "quota_exhausted"
	case ActionRetry:
		return "transient_error"
	default:
		return "error"
	}
}
