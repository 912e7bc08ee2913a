package advisor

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/abitlab/itmo-advisor-go/internal/config"
	"github.com/abitlab/itmo-advisor-go/internal/kb"
	"github.com/abitlab/itmo-advisor-go/internal/llm"
	"github.com/abitlab/itmo-advisor-go/internal/logger"
	"github.com/abitlab/itmo-advisor-go/internal/qa"
	"github.com/abitlab/itmo-advisor-go/internal/smart"
)

const (
	// llmAnswerConfidence is assigned to generated answers; generation is
	// trusted more than a weak corpus match but never reported as exact.
	llmAnswerConfidence = 0.9
	// relatedSuggestThreshold gates the related-questions block on
	// baseline answers.
	relatedSuggestThreshold = 0.3
	// lowConfidenceHint gates the rephrase hint on baseline answers.
	lowConfidenceHint = 0.5
	// relatedTopK bounds the suggested follow-up questions.
	relatedTopK = 2

	categoryGeneral = "general"
)

const (
	smartAttribution = "\n\n🧠 Умный анализ на основе базы знаний ИТМО"
	llmAttribution   = "\n\n🤖 Ответ сгенерирован ИИ на основе базы знаний ИТМО"
	rephraseHint     = "\n\n💡 Если ответ не подходит, попробуйте переформулировать вопрос."
)

// DefaultLLMModeThreshold gates the generative provider when the config
// does not set one.
const DefaultLLMModeThreshold = 0.5

// normalizeMatching fills the threshold fields the providers read.
func normalizeMatching(cfg config.MatchingConfig) config.MatchingConfig {
	if cfg.LLMModeThreshold <= 0 {
		cfg.LLMModeThreshold = DefaultLLMModeThreshold
	}
	if cfg.SimilarityThreshold <= 0 {
		cfg.SimilarityThreshold = qa.DefaultSimilarityThreshold
	}
	return cfg
}

// QAProvider answers when the corpus match is confident enough to skip
// the generative layers. Matches above the similarity threshold are
// enhanced with catalog context and a confidence bonus.
type QAProvider struct {
	matcher   *qa.Matcher
	responder *smart.Responder
	cfg       config.MatchingConfig
}

// NewQAProvider creates the confident-match provider.
func NewQAProvider(matcher *qa.Matcher, responder *smart.Responder, cfg config.MatchingConfig) *QAProvider {
	return &QAProvider{matcher: matcher, responder: responder, cfg: normalizeMatching(cfg)}
}

// Name identifies the provider.
func (p *QAProvider) Name() string { return "qa" }

// TryAnswer serves matches at or above the LLM-mode threshold and
// declines everything below it.
func (p *QAProvider) TryAnswer(ctx context.Context, question string, _ QueryContext) (Result, error) {
	base := p.matcher.Answer(ctx, question)
	if base.Confidence < p.cfg.LLMModeThreshold && !base.IsExactMatch {
		return Result{}, nil
	}

	res := Result{
		Outcome:         OutcomeOk,
		Answer:          base.Answer,
		Confidence:      base.Confidence,
		MatchedQuestion: base.MatchedQuestion,
		Category:        base.Category,
		IsExactMatch:    base.IsExactMatch,
		Source:          p.Name(),
	}

	related := p.matcher.Related(ctx, question, relatedTopK)
	if base.Confidence > p.cfg.SimilarityThreshold {
		qtype := smart.Classify(question)
		res.Answer = p.responder.Enhance(question, qtype, base.Answer, related)
		res.Confidence = math.Min(base.Confidence+smart.EnhancementBonus, 1.0)
		return res, nil
	}

	res.Answer = appendRelated(base.Answer, related)
	return res, nil
}

// SmartProvider serves pattern-matched questions from the local
// catalog-derived answers.
type SmartProvider struct {
	responder *smart.Responder
}

// NewSmartProvider creates the local smart-answer provider.
func NewSmartProvider(responder *smart.Responder) *SmartProvider {
	return &SmartProvider{responder: responder}
}

// Name identifies the provider.
func (p *SmartProvider) Name() string { return "smart" }

// TryAnswer serves questions whose type the classifier recognizes.
func (p *SmartProvider) TryAnswer(ctx context.Context, question string, _ QueryContext) (Result, error) {
	qtype := smart.Classify(question)
	if qtype == smart.TypeUnknown {
		return Result{}, nil
	}

	answer, ok := p.responder.Generate(ctx, qtype, question)
	if !ok {
		return Result{}, nil
	}

	return Result{
		Outcome:    OutcomeOk,
		Answer:     answer + smartAttribution,
		Confidence: smart.LocalConfidence,
		Category:   qtype.String(),
		Source:     p.Name(),
	}, nil
}

// LLMProvider generates an answer grounded in knowledge-base context
// when the corpus has nothing confident to offer.
type LLMProvider struct {
	client  llm.Client
	matcher *qa.Matcher
	builder *ContextBuilder
	cfg     config.MatchingConfig
	timeout time.Duration
	log     *logger.Logger
}

// NewLLMProvider creates the generative provider. client may be nil;
// the provider then reports Unavailable and the chain proceeds.
func NewLLMProvider(client llm.Client, matcher *qa.Matcher, db *kb.DB, cfg config.MatchingConfig, log *logger.Logger) *LLMProvider {
	return &LLMProvider{
		client:  client,
		matcher: matcher,
		builder: NewContextBuilder(db, matcher),
		cfg:     normalizeMatching(cfg),
		timeout: config.LLMRequest,
		log:     log,
	}
}

// Name identifies the provider.
func (p *LLMProvider) Name() string { return "llm" }

// TryAnswer consults the LLM only below the LLM-mode threshold.
func (p *LLMProvider) TryAnswer(ctx context.Context, question string, qctx QueryContext) (Result, error) {
	if p.client == nil || !p.client.IsEnabled() {
		return Result{}, nil
	}

	base := p.matcher.Answer(ctx, question)
	if base.Confidence >= p.cfg.LLMModeThreshold || base.IsExactMatch {
		return Result{}, nil
	}

	kbContext := p.builder.Build(ctx, question)
	user := llm.UserPrompt(kbContext, question)
	if info := profileInfo(qctx.Profile); info != "" {
		user += "\n\n" + info
	}

	p.log.Debug("consulting llm",
		"provider", p.client.Provider(),
		"base_confidence", base.Confidence,
		"context_length", len(kbContext))

	completeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	answer, err := p.client.Complete(completeCtx, llm.SystemPrompt, user)
	if err != nil {
		return Result{Outcome: OutcomeError}, fmt.Errorf("llm completion: %w", err)
	}

	return Result{
		Outcome:    OutcomeOk,
		Answer:     answer + llmAttribution,
		Confidence: llmAnswerConfidence,
		Category:   categoryGeneral,
		Source:     p.Name(),
	}, nil
}

// BaselineProvider returns the plain corpus answer. It never declines,
// so it terminates the chain.
type BaselineProvider struct {
	matcher *qa.Matcher
}

// NewBaselineProvider creates the terminal provider.
func NewBaselineProvider(matcher *qa.Matcher) *BaselineProvider {
	return &BaselineProvider{matcher: matcher}
}

// Name identifies the provider.
func (p *BaselineProvider) Name() string { return "baseline" }

// TryAnswer always answers, adding a rephrase hint to weak results and
// related suggestions to plausible ones.
func (p *BaselineProvider) TryAnswer(ctx context.Context, question string, _ QueryContext) (Result, error) {
	base := p.matcher.Answer(ctx, question)

	answer := base.Answer
	if base.Confidence < lowConfidenceHint {
		answer += rephraseHint
	}
	if base.Confidence > relatedSuggestThreshold {
		answer = appendRelated(answer, p.matcher.Related(ctx, question, relatedTopK))
	}

	return Result{
		Outcome:         OutcomeOk,
		Answer:          answer,
		Confidence:      base.Confidence,
		MatchedQuestion: base.MatchedQuestion,
		Category:        base.Category,
		IsExactMatch:    base.IsExactMatch,
		Source:          p.Name(),
	}, nil
}

// appendRelated adds the follow-up suggestions block.
func appendRelated(answer string, related []qa.RelatedQuestion) string {
	if len(related) == 0 {
		return answer
	}
	var b strings.Builder
	b.WriteString(answer)
	b.WriteString("\n\n📋 Возможно, вас также интересует:\n")
	for _, rel := range related {
		fmt.Fprintf(&b, "• %s\n", rel.Question)
	}
	return strings.TrimRight(b.String(), "\n")
}

// profileInfo renders the stored profile as a prompt suffix.
func profileInfo(profile *kb.UserProfile) string {
	if profile == nil {
		return ""
	}

	var parts []string
	if profile.ExperienceLevel != "" {
		parts = append(parts, "уровень подготовки: "+profile.ExperienceLevel)
	}
	if len(profile.TechnicalSkills) > 0 {
		parts = append(parts, "навыки: "+strings.Join(profile.TechnicalSkills, ", "))
	}
	if len(profile.Interests) > 0 {
		categories := make([]string, 0, len(profile.Interests))
		for category := range profile.Interests {
			categories = append(categories, category)
		}
		sort.Strings(categories)
		parts = append(parts, "интересы: "+strings.Join(categories, ", "))
	}
	if profile.PreferredProgram != "" {
		parts = append(parts, "предпочитаемая программа: "+profile.PreferredProgram)
	}

	if len(parts) == 0 {
		return ""
	}
	return "Информация о пользователе: " + strings.Join(parts, "; ")
}
