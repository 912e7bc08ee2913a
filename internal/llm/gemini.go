// Package llm provides the generative answer layer.
// This file contains the Gemini chat client.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/abitlab/itmo-advisor-go/internal/logger"
)

// GeminiClient answers questions through Google's Gemini API.
type GeminiClient struct {
	client *genai.Client
	model  string
	log    *logger.Logger
}

// NewGeminiClient creates a new Gemini client. Returns nil when apiKey
// is empty, which disables the provider.
func NewGeminiClient(ctx context.Context, apiKey, model string, log *logger.Logger) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, nil //nolint:nilnil // Intentional: provider disabled when no API key
	}
	if model == "" {
		model = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GeminiClient{
		client: client,
		model:  model,
		log:    log.WithModule("llm"),
	}, nil
}

// Complete sends the system and user messages and returns the model text.
func (c *GeminiClient) Complete(ctx context.Context, system, user string) (string, error) {
	if c == nil || c.client == nil {
		return "", errors.New("gemini client not configured")
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       genai.Ptr[float32](answerTemperature),
		MaxOutputTokens:   maxAnswerTokens,
	}

	start := time.Now()
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(user), config)
	duration := time.Since(start)

	if err != nil {
		c.log.Warn("generate content failed",
			"provider", ProviderGemini,
			"model", c.model,
			"duration_ms", duration.Milliseconds(),
			"error", err)
		return "", fmt.Errorf("generate content: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("empty response from model")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			b.WriteString(part.Text)
		}
	}
	answer := strings.TrimSpace(b.String())
	if answer == "" {
		return "", errors.New("empty response from model")
	}

	if resp.UsageMetadata != nil {
		c.log.Debug("generate content ok",
			"provider", ProviderGemini,
			"model", c.model,
			"input_tokens", resp.UsageMetadata.PromptTokenCount,
			"output_tokens", resp.UsageMetadata.CandidatesTokenCount,
			"duration_ms", duration.Milliseconds(),
			"answer_length", len(answer))
	}

	return answer, nil
}

// IsEnabled reports whether the client can serve requests.
func (c *GeminiClient) IsEnabled() bool {
	return c != nil && c.client != nil
}

// Provider identifies this client for logs and metrics.
func (c *GeminiClient) Provider() Provider {
	return ProviderGemini
}

// Close releases resources. The genai client needs no explicit cleanup
// in the current SDK version. Safe to call on a nil receiver.
func (c *GeminiClient) Close() error {
	return nil
}
