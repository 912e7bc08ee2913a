// Package qa answers applicant questions by matching them against the
// curated reference corpus.
//
// Each answer is classified by the best candidate's cosine similarity:
// below MinRelevance the matcher returns a fixed no-match response,
// between MinRelevance and SimilarityThreshold it hedges with the
// matched question, and at or above the threshold it answers directly.
// The matcher never returns an error to its caller; every failure path
// degrades to the no-match response.
package qa

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/abitlab/itmo-advisor-go/internal/config"
	domerrors "github.com/abitlab/itmo-advisor-go/internal/errors"
	"github.com/abitlab/itmo-advisor-go/internal/kb"
	"github.com/abitlab/itmo-advisor-go/internal/logger"
	"github.com/abitlab/itmo-advisor-go/internal/metrics"
	"github.com/abitlab/itmo-advisor-go/internal/similarity"
	"github.com/abitlab/itmo-advisor-go/internal/textnorm"
)

// Default thresholds, used when the config leaves a field unset.
const (
	DefaultMinRelevance        = 0.5
	DefaultSimilarityThreshold = 0.7
	DefaultExactMatchThreshold = 0.9
	DefaultRelatedTopK         = 3
)

// maxKeywords caps how many stemmed keywords are stored per QA pair.
const maxKeywords = 10

const noMatchAnswer = "К сожалению, я не могу найти ответ на ваш вопрос. " +
	"Попробуйте переформулировать вопрос или обратитесь к администратору программы."

// Match state labels used in metrics and logs.
const (
	stateNoMatch   = "no_match"
	stateWeak      = "weak_match"
	stateConfident = "confident_match"
	stateExact     = "exact_match"
)

const (
	categoryUnknown = "unknown"
	categoryGeneral = "general"
)

// Response is the structured answer to one question.
// Confidence is the best candidate's similarity, or 0 when nothing
// relevant was found.
type Response struct {
	Answer          string  `json:"answer"`
	Confidence      float64 `json:"confidence"`
	MatchedQuestion string  `json:"matched_question,omitempty"`
	Category        string  `json:"category"`
	IsExactMatch    bool    `json:"is_exact_match"`
}

// RelatedQuestion is a corpus entry similar enough to a query to offer
// as a follow-up suggestion.
type RelatedQuestion struct {
	Question   string  `json:"question"`
	Answer     string  `json:"answer"`
	Similarity float64 `json:"similarity"`
	Category   string  `json:"category"`
}

// Stats summarizes the loaded QA corpus.
type Stats struct {
	TotalPairs        int            `json:"total_qa_pairs"`
	Categories        map[string]int `json:"categories"`
	AvgQuestionLength float64        `json:"avg_question_length"`
	AvgAnswerLength   float64        `json:"avg_answer_length"`
}

// Matcher owns the similarity index over the QA corpus and the state
// machine that turns similarities into answers.
//
// The index and the pair slice it was built from are swapped together
// under one lock, so readers always see a consistent snapshot. Rebuilds
// happen on AddPair and whenever the stored corpus drifts from the
// indexed one.
type Matcher struct {
	db         *kb.DB
	cfg        config.MatchingConfig
	normalizer *textnorm.Normalizer
	log        *logger.Logger
	metrics    *metrics.Metrics

	mu    sync.RWMutex
	index *similarity.Index
	pairs []kb.QAPair
}

// New creates a matcher over the QA corpus stored in db. Zero-valued
// config fields fall back to the package defaults. Call Reload before
// serving queries; until then every question gets the no-match answer.
func New(db *kb.DB, cfg config.MatchingConfig, log *logger.Logger, m *metrics.Metrics) *Matcher {
	if cfg.MinRelevance <= 0 {
		cfg.MinRelevance = DefaultMinRelevance
	}
	if cfg.SimilarityThreshold <= 0 {
		cfg.SimilarityThreshold = DefaultSimilarityThreshold
	}
	if cfg.ExactMatchThreshold <= 0 {
		cfg.ExactMatchThreshold = DefaultExactMatchThreshold
	}
	if cfg.MaxFeatures <= 0 {
		cfg.MaxFeatures = similarity.DefaultMaxFeatures
	}
	if cfg.RelatedTopK <= 0 {
		cfg.RelatedTopK = DefaultRelatedTopK
	}

	return &Matcher{
		db:         db,
		cfg:        cfg,
		normalizer: textnorm.New(),
		log:        log.WithModule("qa"),
		metrics:    m,
	}
}

// Reload fetches the full QA corpus and rebuilds the similarity index
// from it. The new index and corpus replace the old ones atomically;
// concurrent queries see either the old snapshot or the new one.
func (m *Matcher) Reload(ctx context.Context) error {
	pairs, err := m.db.GetAllQAPairs(ctx)
	if err != nil {
		return fmt.Errorf("load qa corpus: %w", err)
	}

	docs := make([]similarity.Document, len(pairs))
	for i, pair := range pairs {
		docs[i] = similarity.Document{ID: pair.ID, Text: pair.Question}
	}

	index := similarity.New(m.normalizer, m.cfg.MaxFeatures, m.log)
	index.Build(docs)

	m.mu.Lock()
	m.index = index
	m.pairs = pairs
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.RecordIndexRebuild(len(pairs))
	}
	return nil
}

// Answer runs the match state machine for one question and always
// returns a usable response. Internal errors and empty corpora produce
// the no-match response instead of propagating.
func (m *Matcher) Answer(ctx context.Context, text string) Response {
	start := time.Now()
	m.ensureFresh(ctx)

	index, pairs := m.snapshot()

	resp := Response{
		Answer:   noMatchAnswer,
		Category: categoryUnknown,
	}
	state := stateNoMatch

	best, ok := index.Best(text)
	if ok && best.Index < len(pairs) && best.Similarity >= m.cfg.MinRelevance {
		pair := pairs[best.Index]
		resp = Response{
			Confidence:      best.Similarity,
			MatchedQuestion: pair.Question,
			Category:        pairCategory(pair),
		}

		if best.Similarity >= m.cfg.SimilarityThreshold {
			resp.Answer = pair.Answer
			resp.IsExactMatch = best.Similarity > m.cfg.ExactMatchThreshold
			state = stateConfident
			if resp.IsExactMatch {
				state = stateExact
			}
		} else {
			resp.Answer = fmt.Sprintf("Возможно, вы имели в виду: '%s'?\n\n%s", pair.Question, pair.Answer)
			state = stateWeak
		}
	}

	m.log.WithFields(map[string]any{
		"state":      state,
		"confidence": resp.Confidence,
	}).Debug("Question answered")

	if m.metrics != nil {
		m.metrics.RecordQuestion(state, resp.Confidence, time.Since(start).Seconds())
	}
	return resp
}

// Related returns up to topK corpus entries with similarity at or above
// MinRelevance, best first. The entry that answered the question is not
// excluded, so it can reappear here. topK <= 0 uses the configured
// default.
func (m *Matcher) Related(ctx context.Context, text string, topK int) []RelatedQuestion {
	if topK <= 0 {
		topK = m.cfg.RelatedTopK
	}
	m.ensureFresh(ctx)

	index, pairs := m.snapshot()

	var related []RelatedQuestion
	for _, match := range index.Query(text, topK) {
		if match.Similarity < m.cfg.MinRelevance || match.Index >= len(pairs) {
			continue
		}
		pair := pairs[match.Index]
		related = append(related, RelatedQuestion{
			Question:   pair.Question,
			Answer:     pair.Answer,
			Similarity: match.Similarity,
			Category:   pairCategory(pair),
		})
	}
	return related
}

// AddPair stores a new reference question with stemmed keywords and
// rebuilds the index before returning, so the pair is matchable
// immediately. An empty category is stored as "general".
func (m *Matcher) AddPair(ctx context.Context, question, answer, category string) (int64, error) {
	question = strings.TrimSpace(question)
	answer = strings.TrimSpace(answer)
	if question == "" {
		return 0, domerrors.NewValidationError("question", "must not be empty")
	}
	if answer == "" {
		return 0, domerrors.NewValidationError("answer", "must not be empty")
	}
	if category == "" {
		category = categoryGeneral
	}

	pair := &kb.QAPair{
		Question: question,
		Answer:   answer,
		Category: category,
		Keywords: m.normalizer.Keywords(question, maxKeywords),
	}

	id, err := m.db.InsertQAPair(ctx, pair)
	if err != nil {
		return 0, err
	}

	if err := m.Reload(ctx); err != nil {
		return id, fmt.Errorf("reindex after insert: %w", err)
	}

	m.log.WithFields(map[string]any{
		"id":       id,
		"category": category,
	}).Info("QA pair added")
	return id, nil
}

// Stats reports totals over the indexed corpus snapshot. Pairs without
// a category are counted under "unknown". Lengths are in runes.
func (m *Matcher) Stats() Stats {
	_, pairs := m.snapshot()

	stats := Stats{
		TotalPairs: len(pairs),
		Categories: make(map[string]int),
	}

	var questionRunes, answerRunes int
	for _, pair := range pairs {
		category := pair.Category
		if category == "" {
			category = categoryUnknown
		}
		stats.Categories[category]++
		questionRunes += utf8.RuneCountInString(pair.Question)
		answerRunes += utf8.RuneCountInString(pair.Answer)
	}

	if len(pairs) > 0 {
		stats.AvgQuestionLength = float64(questionRunes) / float64(len(pairs))
		stats.AvgAnswerLength = float64(answerRunes) / float64(len(pairs))
	}
	return stats
}

// Ready reports whether the index has been built at least once. An
// index over an empty corpus counts as ready.
func (m *Matcher) Ready() bool {
	index, _ := m.snapshot()
	return index.Ready()
}

// Count returns the number of pairs in the indexed snapshot.
func (m *Matcher) Count() int {
	_, pairs := m.snapshot()
	return len(pairs)
}

// ensureFresh rebuilds the index when the stored pair count no longer
// matches the indexed one, which happens when another writer inserted
// pairs behind the matcher's back. Check failures are logged and the
// current snapshot keeps serving.
func (m *Matcher) ensureFresh(ctx context.Context) {
	_, pairs := m.snapshot()

	count, err := m.db.CountQAPairs(ctx)
	if err != nil {
		m.log.WithError(err).Warn("Skipping corpus staleness check")
		return
	}
	if count == len(pairs) {
		return
	}

	m.log.WithFields(map[string]any{
		"indexed": len(pairs),
		"stored":  count,
	}).Info("QA corpus drifted, rebuilding index")

	if err := m.Reload(ctx); err != nil {
		m.log.WithError(err).Error("Failed to rebuild drifted index")
	}
}

// snapshot returns the current index and the corpus it was built from
// as one consistent unit.
func (m *Matcher) snapshot() (*similarity.Index, []kb.QAPair) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.index, m.pairs
}

func pairCategory(pair kb.QAPair) string {
	if pair.Category == "" {
		return categoryGeneral
	}
	return pair.Category
}
