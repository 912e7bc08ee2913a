package recommend

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/abitlab/itmo-advisor-go/internal/interest"
	"github.com/abitlab/itmo-advisor-go/internal/kb"
	"github.com/abitlab/itmo-advisor-go/internal/logger"
	"github.com/abitlab/itmo-advisor-go/internal/metrics"
)

// Ranking defaults, used when a caller passes non-positive values.
const (
	DefaultTopK     = 5
	DefaultMinScore = 0.1

	generalScore = 0.5
)

// Recommendation is one ranked course ready for display.
type Recommendation struct {
	CourseID    int64   `json:"course_id"`
	CourseName  string  `json:"course_name"`
	ProgramName string  `json:"program_name"`
	Score       float64 `json:"score"`
	Reason      string  `json:"reason"`
	IsMandatory bool    `json:"is_mandatory"`
	Credits     int     `json:"credits"`
	Semester    string  `json:"semester"`
}

// Recommender ranks the stored course catalog for applicants.
type Recommender struct {
	db        *kb.DB
	scorer    *Scorer
	extractor *interest.Extractor
	log       *logger.Logger
	metrics   *metrics.Metrics
}

// New builds a recommender over the knowledge base. Metrics may be nil.
func New(db *kb.DB, scorer *Scorer, extractor *interest.Extractor, log *logger.Logger, m *metrics.Metrics) *Recommender {
	if scorer == nil {
		scorer = NewScorer(nil, nil)
	}
	if extractor == nil {
		extractor = interest.NewExtractor(nil)
	}
	return &Recommender{
		db:        db,
		scorer:    scorer,
		extractor: extractor,
		log:       log.WithModule("recommend"),
		metrics:   m,
	}
}

// Recommend scores the whole catalog against the interests and returns
// up to topK courses scoring at least minScore, best first. Ties keep
// catalog order. Empty interests fall back to General so callers always
// have something to show.
func (r *Recommender) Recommend(ctx context.Context, interests map[string]float64, preferredProgram string, topK int, minScore float64) ([]Recommendation, error) {
	if len(interests) == 0 {
		return r.General(ctx, preferredProgram, topK)
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	if minScore <= 0 {
		minScore = DefaultMinScore
	}

	start := time.Now()
	courses, err := r.db.GetAllCourses(ctx)
	if err != nil {
		return nil, fmt.Errorf("load course catalog: %w", err)
	}
	if len(courses) == 0 {
		r.log.Warnf("No courses in the knowledge base")
		return nil, nil
	}

	recs := make([]Recommendation, 0, len(courses))
	for _, course := range courses {
		score, reason := r.scorer.Score(course, interests, preferredProgram)
		if score >= minScore {
			recs = append(recs, toRecommendation(course, score, reason))
		}
	}

	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Score > recs[j].Score })
	if len(recs) > topK {
		recs = recs[:topK]
	}

	if r.metrics != nil {
		r.metrics.RecordRecommendation("interest", time.Since(start).Seconds())
	}
	return recs, nil
}

// RecommendFromText extracts interests from free text and ranks the
// catalog with them.
func (r *Recommender) RecommendFromText(ctx context.Context, text, preferredProgram string, topK int) ([]Recommendation, error) {
	interests := r.extractor.Extract(text)
	if len(interests) == 0 {
		r.log.Debugf("No interests recognized in profile text, serving general recommendations")
	}
	return r.Recommend(ctx, interests, preferredProgram, topK, DefaultMinScore)
}

// General returns the fallback ranking used when nothing is known
// about the applicant: mandatory courses first, alphabetical within
// each group, all at a flat middle score. A preferred program narrows
// the list to that program's courses.
func (r *Recommender) General(ctx context.Context, preferredProgram string, topK int) ([]Recommendation, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	start := time.Now()
	courses, err := r.db.GetAllCourses(ctx)
	if err != nil {
		return nil, fmt.Errorf("load course catalog: %w", err)
	}

	if preferredProgram != "" {
		filtered := make([]kb.Course, 0, len(courses))
		for _, course := range courses {
			if course.ProgramKey == preferredProgram {
				filtered = append(filtered, course)
			}
		}
		courses = filtered
	}

	// Collators are not safe for concurrent use, so build one per call.
	collator := collate.New(language.Russian)
	sort.SliceStable(courses, func(i, j int) bool {
		if courses[i].IsMandatory != courses[j].IsMandatory {
			return courses[i].IsMandatory
		}
		return collator.CompareString(courses[i].Name, courses[j].Name) < 0
	})

	if len(courses) > topK {
		courses = courses[:topK]
	}
	recs := make([]Recommendation, 0, len(courses))
	for _, course := range courses {
		recs = append(recs, toRecommendation(course, generalScore, reasonGeneral))
	}

	if r.metrics != nil {
		r.metrics.RecordRecommendation("general", time.Since(start).Seconds())
	}
	return recs, nil
}

// SaveForUser persists a ranking snapshot for the user's history,
// replacing the previous one.
func (r *Recommender) SaveForUser(ctx context.Context, telegramID int64, recs []Recommendation) error {
	stored := make([]kb.Recommendation, 0, len(recs))
	for _, rec := range recs {
		stored = append(stored, kb.Recommendation{
			TelegramID: telegramID,
			CourseID:   rec.CourseID,
			Score:      rec.Score,
			Reason:     rec.Reason,
		})
	}
	if err := r.db.SaveRecommendations(ctx, telegramID, stored); err != nil {
		return fmt.Errorf("save recommendations: %w", err)
	}
	return nil
}

// DetectProgram guesses which program free text leans toward. Product
// wording wins over research wording when both appear; the empty
// string means neither program was mentioned.
func DetectProgram(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "ai-продукт") || strings.Contains(lower, "продукт"):
		return kb.ProgramKeyAIProduct
	case strings.Contains(lower, "искусственный интеллект") || strings.Contains(lower, "исследован"):
		return kb.ProgramKeyAI
	default:
		return ""
	}
}

func toRecommendation(course kb.Course, score float64, reason string) Recommendation {
	return Recommendation{
		CourseID:    course.ID,
		CourseName:  course.Name,
		ProgramName: course.ProgramName,
		Score:       score,
		Reason:      reason,
		IsMandatory: course.IsMandatory,
		Credits:     course.Credits,
		Semester:    course.Semester,
	}
}
