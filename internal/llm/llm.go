// Package llm provides the generative answer layer: chat completion
// clients for OpenAI-compatible APIs (api.openai.com by default; Groq,
// Together, or proxy gateways via a base URL override) and Google
// Gemini, combined in a primary/secondary fallback.
//
// Failure handling is layered:
//  1. Retry: transient errors (429, 5xx, timeouts) are retried on the
//     same provider with exponential backoff and jitter.
//  2. Provider fallback: when the primary keeps failing or its quota is
//     exhausted, the secondary provider is tried.
//  3. Degradation: callers treat any remaining error as "no generative
//     answer" and fall through to their local answer chain.
package llm

import (
	"context"
	"time"
)

// Provider identifies an LLM backend.
type Provider string

const (
	// ProviderOpenAI covers every OpenAI-compatible endpoint; a base URL
	// override points it at Groq, Together, or a regional proxy.
	ProviderOpenAI Provider = "openai"
	// ProviderGemini is Google's Gemini API (own SDK, not OpenAI-compatible).
	ProviderGemini Provider = "gemini"
)

// String returns the string representation of the provider.
func (p Provider) String() string {
	return string(p)
}

// Client is a chat completion provider. Implementations are the OpenAI
// and Gemini clients plus the Fallback wrapper combining both.
type Client interface {
	// Complete sends one system+user exchange and returns the model text.
	Complete(ctx context.Context, system, user string) (string, error)
	// IsEnabled reports whether the client holds a usable configuration.
	IsEnabled() bool
	// Provider identifies the backing provider for logs and metrics.
	Provider() Provider
	// Close releases any resources held by the client.
	Close() error
}

// Config selects providers, credentials, and retry bounds for the chain.
type Config struct {
	// OpenAIAPIKey enables the OpenAI-compatible client when non-empty.
	OpenAIAPIKey string
	// OpenAIBaseURL overrides the endpoint (Groq, Together, proxies).
	// Empty means api.openai.com.
	OpenAIBaseURL string
	// OpenAIModel is the chat model name. Empty means DefaultOpenAIModel.
	OpenAIModel string

	// GeminiAPIKey enables the Gemini client when non-empty.
	GeminiAPIKey string
	// GeminiModel is the chat model name. Empty means DefaultGeminiModel.
	GeminiModel string

	// Primary and Secondary order the fallback chain. A provider without
	// an API key is skipped; unset values default to openai then gemini.
	Primary   Provider
	Secondary Provider

	// Retry bounds per-provider retries. Zero value means defaults.
	Retry RetryConfig
}

// HasAnyProvider reports whether at least one API key is configured.
func (c Config) HasAnyProvider() bool {
	return c.OpenAIAPIKey != "" || c.GeminiAPIKey != ""
}

// HasProvider reports whether the named provider has an API key.
func (c Config) HasProvider(p Provider) bool {
	switch p {
	case ProviderOpenAI:
		return c.OpenAIAPIKey != ""
	case ProviderGemini:
		return c.GeminiAPIKey != ""
	default:
		return false
	}
}

// RetryConfig bounds retry behavior on a single provider.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts including the first.
	MaxAttempts int
	// InitialDelay is the base delay before the first retry.
	InitialDelay time.Duration
	// MaxDelay caps the exponential backoff.
	MaxDelay time.Duration
}

// Retry defaults.
const (
	DefaultMaxRetryAttempts  = 2
	DefaultInitialRetryDelay = 500 * time.Millisecond
	DefaultMaxRetryDelay     = 3 * time.Second
)

// DefaultRetryConfig returns the retry bounds used when the caller does
// not override them.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  DefaultMaxRetryAttempts,
		InitialDelay: DefaultInitialRetryDelay,
		MaxDelay:     DefaultMaxRetryDelay,
	}
}

// Default chat models per provider.
const (
	DefaultOpenAIModel = "gpt-4o-mini"
	DefaultGeminiModel = "gemini-2.0-flash"
)

// Generation parameters shared by all providers.
const (
	answerTemperature = 0.7
	maxAnswerTokens   = 1000
)
