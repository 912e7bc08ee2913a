// Package llm provides the generative answer layer.
// This file contains the OpenAI-compatible chat client. A base URL
// override points it at Groq, Together, or proxy gateways.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/abitlab/itmo-advisor-go/internal/logger"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1/"

// OpenAIClient answers questions through an OpenAI-compatible chat API.
type OpenAIClient struct {
	client openai.Client
	model  string
	log    *logger.Logger
}

// NewOpenAIClient creates a new OpenAI-compatible client. Returns nil
// when apiKey is empty, which disables the provider.
func NewOpenAIClient(apiKey, baseURL, model string, log *logger.Logger) *OpenAIClient {
	if apiKey == "" {
		return nil
	}
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	if model == "" {
		model = DefaultOpenAIModel
	}

	client := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
	)

	return &OpenAIClient{
		client: client,
		model:  model,
		log:    log.WithModule("llm"),
	}
}

// Complete sends the system and user messages and returns the model text.
func (c *OpenAIClient) Complete(ctx context.Context, system, user string) (string, error) {
	if c == nil {
		return "", errors.New("openai client not configured")
	}

	params := openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(answerTemperature),
		MaxTokens:   openai.Int(maxAnswerTokens),
	}

	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, params)
	duration := time.Since(start)

	if err != nil {
		c.log.Warn("chat completion failed",
			"provider", ProviderOpenAI,
			"model", c.model,
			"duration_ms", duration.Milliseconds(),
			"error", err)
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("empty response from model")
	}
	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		return "", errors.New("empty response from model")
	}

	if resp.Usage.TotalTokens > 0 {
		c.log.Debug("chat completion ok",
			"provider", ProviderOpenAI,
			"model", c.model,
			"input_tokens", resp.Usage.PromptTokens,
			"output_tokens", resp.Usage.CompletionTokens,
			"duration_ms", duration.Milliseconds(),
			"answer_length", len(answer))
	}

	return answer, nil
}

// IsEnabled reports whether the client can serve requests.
func (c *OpenAIClient) IsEnabled() bool {
	return c != nil
}

// Provider identifies this client for logs and metrics.
func (c *OpenAIClient) Provider() Provider {
	return ProviderOpenAI
}

// Close releases resources. The openai-go client needs no cleanup.
// Safe to call on a nil receiver.
func (c *OpenAIClient) Close() error {
	return nil
}
