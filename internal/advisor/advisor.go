// Package advisor orchestrates the answer provider chain. Providers are
// tried in a fixed order (confident QA match, local smart analysis, LLM
// generation, baseline QA) and the first one that produces an answer
// wins. The baseline never declines, so a fully wired chain always
// answers.
package advisor

import (
	"context"
	"time"

	"github.com/abitlab/itmo-advisor-go/internal/config"
	"github.com/abitlab/itmo-advisor-go/internal/kb"
	"github.com/abitlab/itmo-advisor-go/internal/llm"
	"github.com/abitlab/itmo-advisor-go/internal/logger"
	"github.com/abitlab/itmo-advisor-go/internal/metrics"
	"github.com/abitlab/itmo-advisor-go/internal/qa"
	"github.com/abitlab/itmo-advisor-go/internal/smart"
)

// Outcome reports what a provider did with a question.
type Outcome int

const (
	// OutcomeUnavailable means the provider cannot serve this question
	// (disabled, below threshold, no pattern match). The chain proceeds
	// silently. Zero value on purpose: an empty Result declines.
	OutcomeUnavailable Outcome = iota
	// OutcomeOk means the provider produced an answer.
	OutcomeOk
	// OutcomeError means the provider tried and failed. The chain logs
	// the error and proceeds.
	OutcomeError
)

// String returns a human-readable label for the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeOk:
		return "ok"
	case OutcomeUnavailable:
		return "unavailable"
	case OutcomeError:
		return "error"
	default:
		return "unknown"
	}
}

// Result is the structured answer from a provider.
type Result struct {
	Outcome         Outcome `json:"-"`
	Answer          string  `json:"answer"`
	Confidence      float64 `json:"confidence"`
	MatchedQuestion string  `json:"matched_question,omitempty"`
	Category        string  `json:"category"`
	IsExactMatch    bool    `json:"is_exact_match"`
	// Source names the provider that answered: qa, smart, llm, baseline.
	Source string `json:"source"`
}

// QueryContext carries per-user context into the providers.
type QueryContext struct {
	// Profile is the stored applicant profile, nil for anonymous asks.
	Profile *kb.UserProfile
}

// Provider is one strategy in the answer chain.
type Provider interface {
	// Name identifies the provider in logs and metrics.
	Name() string

	// TryAnswer attempts to answer the question. An Unavailable outcome
	// is not an error: the provider simply does not apply. The error is
	// non-nil only together with OutcomeError.
	TryAnswer(ctx context.Context, question string, qctx QueryContext) (Result, error)
}

// Chain tries providers in registration order and returns the first
// answer.
type Chain struct {
	providers []Provider
	log       *logger.Logger
	metrics   *metrics.Metrics
}

// ChainConfig holds the dependencies for assembling the default chain.
type ChainConfig struct {
	DB        *kb.DB
	Matcher   *qa.Matcher
	Responder *smart.Responder
	// Client may be nil; the LLM provider then reports Unavailable.
	Client   llm.Client
	Matching config.MatchingConfig
	// LLMTimeout bounds one completion call. Zero keeps the default.
	LLMTimeout time.Duration
	Logger     *logger.Logger
	Metrics    *metrics.Metrics
}

// NewChain assembles the default provider order: confident QA, smart
// local, LLM, baseline.
func NewChain(cfg ChainConfig) *Chain {
	log := cfg.Logger.WithModule("advisor")
	llmProvider := NewLLMProvider(cfg.Client, cfg.Matcher, cfg.DB, cfg.Matching, log)
	if cfg.LLMTimeout > 0 {
		llmProvider.timeout = cfg.LLMTimeout
	}
	return &Chain{
		providers: []Provider{
			NewQAProvider(cfg.Matcher, cfg.Responder, cfg.Matching),
			NewSmartProvider(cfg.Responder),
			llmProvider,
			NewBaselineProvider(cfg.Matcher),
		},
		log:     log,
		metrics: cfg.Metrics,
	}
}

// NewChainWithProviders builds a chain from an explicit provider list.
func NewChainWithProviders(log *logger.Logger, m *metrics.Metrics, providers ...Provider) *Chain {
	return &Chain{
		providers: providers,
		log:       log.WithModule("advisor"),
		metrics:   m,
	}
}

// Answer runs the chain. With the baseline provider registered the
// result is always Ok; an exhausted chain returns an Unavailable zero
// Result.
func (c *Chain) Answer(ctx context.Context, question string, qctx QueryContext) Result {
	for _, p := range c.providers {
		res, err := p.TryAnswer(ctx, question, qctx)
		if err != nil {
			c.log.Warn("answer provider failed",
				"provider", p.Name(),
				"error", err)
			continue
		}
		if res.Outcome != OutcomeOk {
			continue
		}

		c.log.WithFields(map[string]any{
			"source":     res.Source,
			"confidence": res.Confidence,
		}).Debug("Question answered")

		if c.metrics != nil {
			c.metrics.RecordAnswerSource(res.Source)
		}
		return res
	}

	c.log.Error("no provider answered", "question_length", len(question))
	return Result{}
}
