// Package llm provides the generative answer layer.
// This file contains the provider chain factory.
package llm

import (
	"context"

	"github.com/abitlab/itmo-advisor-go/internal/logger"
	"github.com/abitlab/itmo-advisor-go/internal/metrics"
)

// New builds the provider chain from configuration. It returns nil when
// no API key is configured; callers treat a nil client as "generative
// answers disabled".
func New(ctx context.Context, cfg Config, log *logger.Logger, m *metrics.Metrics) (Client, error) {
	clients := make([]Client, 0, 2)
	for _, p := range providerOrder(cfg) {
		switch p {
		case ProviderOpenAI:
			if c := NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, log); c != nil {
				clients = append(clients, c)
			}
		case ProviderGemini:
			if cfg.GeminiAPIKey == "" {
				continue
			}
			c, err := NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, log)
			if err != nil {
				log.Warn("failed to create gemini client", "error", err)
				continue
			}
			clients = append(clients, c)
		}
	}

	if len(clients) == 0 {
		log.Info("no llm provider configured, generative answers disabled")
		return nil, nil
	}

	var secondary Client
	if len(clients) > 1 {
		secondary = clients[1]
	}

	fb := NewFallback(clients[0], secondary, cfg.Retry, log, m)
	log.Info("llm provider chain configured",
		"primary", fb.Provider(),
		"providers", len(clients))
	return fb, nil
}

// providerOrder resolves the primary/secondary preference, dropping
// duplicates. A provider with an API key outside the explicit order
// still joins the end of the chain.
func providerOrder(cfg Config) []Provider {
	primary := cfg.Primary
	if primary == "" {
		primary = ProviderOpenAI
	}
	secondary := cfg.Secondary
	if secondary == "" {
		secondary = ProviderGemini
	}

	order := []Provider{primary}
	if secondary != primary {
		order = append(order, secondary)
	}
	for _, p := range []Provider{ProviderOpenAI, ProviderGemini} {
		if p != primary && p != secondary && cfg.HasProvider(p) {
			order = append(order, p)
		}
	}
	return order
}
