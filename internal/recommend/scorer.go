// Package recommend ranks catalog courses against an applicant's
// interest profile. Scores stay in [0,1] and every ranked item carries
// a human-readable Russian reason, so callers can show the ranking
// without post-processing.
package recommend

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/abitlab/itmo-advisor-go/internal/interest"
	"github.com/abitlab/itmo-advisor-go/internal/kb"
)

// Score components. The per-interest sum is capped at 1.0 before user
// and program weights apply.
const (
	nameMatchBonus  = 0.5
	tagMatchBonus   = 0.7
	visionBonus     = 0.8
	mandatoryBonus  = 0.2
	programBonus    = 0.2
	defaultPriority = 0.7
)

const (
	reasonNoInterests = "Нет информации об интересах пользователя"
	reasonFallback    = "Общие рекомендации"
	reasonMandatory   = "Обязательный курс программы"
	reasonPreferred   = "Курс из предпочитаемой программы"
	reasonGeneral     = "Общая рекомендация программы"
)

// ProgramPriorities weights interest categories per program key, so a
// product-track program can rank product interests above research ones.
type ProgramPriorities map[string]map[string]float64

// DefaultPriorities returns the priority tables for the two ITMO AI
// master's programs. Categories absent from a program's table weigh
// defaultPriority; programs absent from the map weigh 1.0.
func DefaultPriorities() ProgramPriorities {
	return ProgramPriorities{
		kb.ProgramKeyAI: {
			interest.CategoryMachineLearning: 1.0,
			interest.CategoryDeepLearning:    1.0,
			interest.CategoryResearch:        0.9,
			interest.CategoryMath:            0.8,
			interest.CategoryPython:          0.7,
			interest.CategoryComputerVision:  0.8,
			interest.CategoryNLP:             0.8,
		},
		kb.ProgramKeyAIProduct: {
			interest.CategoryProduct:         1.0,
			interest.CategoryMachineLearning: 0.9,
			interest.CategoryDataScience:     0.9,
			interest.CategoryPython:          0.8,
			interest.CategoryDeepLearning:    0.7,
			interest.CategoryResearch:        0.6,
		},
	}
}

// Scorer rates courses against interest profiles using the injected
// taxonomy and program priority tables.
type Scorer struct {
	tax        *interest.Taxonomy
	priorities ProgramPriorities
}

// NewScorer builds a scorer. Nil arguments select the defaults. The
// priority tables are copied, so later mutation of the input does not
// leak into the scorer.
func NewScorer(tax *interest.Taxonomy, priorities ProgramPriorities) *Scorer {
	if tax == nil {
		tax = interest.DefaultTaxonomy()
	}
	if priorities == nil {
		priorities = DefaultPriorities()
	}

	copied := make(ProgramPriorities, len(priorities))
	for program, table := range priorities {
		weights := make(map[string]float64, len(table))
		for category, weight := range table {
			weights[category] = weight
		}
		copied[program] = weights
	}

	return &Scorer{tax: tax, priorities: copied}
}

// Score rates one course for the given interests. It returns a score
// in [0,1] and a reason built from up to the first three matched
// signals. Empty interests always yield a zero score.
//
// A mandatory course gets a small floor only when nothing matched by
// content; the preferred-program bonus applies on top of that floor
// but never to a zero score on its own.
func (s *Scorer) Score(course kb.Course, interests map[string]float64, preferredProgram string) (float64, string) {
	if len(interests) == 0 {
		return 0, reasonNoInterests
	}

	nameLower := strings.ToLower(course.Name)
	var base float64
	var reasons []string

	for _, category := range sortedCategories(interests) {
		userWeight := interests[category]
		var local float64

		for _, phrase := range s.tax.PhrasesFor(category) {
			if strings.Contains(nameLower, phrase) {
				local += nameMatchBonus
				reasons = append(reasons, fmt.Sprintf("Совпадение '%s' в названии курса", phrase))
			}
		}

		labels := s.tax.LabelsFor(category)
		for _, tag := range course.Tags {
			tagLower := strings.ToLower(tag)
			for _, label := range labels {
				labelLower := strings.ToLower(label)
				if strings.Contains(tagLower, labelLower) || strings.Contains(labelLower, tagLower) {
					local += tagMatchBonus
					reasons = append(reasons, fmt.Sprintf("Совпадение по тегу '%s'", tag))
				}
			}
		}

		for _, keyword := range s.tax.VisionBoosters(category) {
			if strings.Contains(nameLower, keyword) {
				local += visionBonus
				reasons = append(reasons, fmt.Sprintf("CV ключевое слово '%s'", keyword))
			}
		}

		if local > 0 {
			base += math.Min(local, 1.0) * userWeight * s.programWeight(preferredProgram, category)
		}
	}

	if base == 0 && course.IsMandatory {
		base += mandatoryBonus
		reasons = append(reasons, reasonMandatory)
	}
	if preferredProgram != "" && course.ProgramKey == preferredProgram && base > 0 {
		base += programBonus
		reasons = append(reasons, reasonPreferred)
	}

	score := math.Min(base, 1.0)
	if len(reasons) == 0 {
		return score, reasonFallback
	}
	if len(reasons) > 3 {
		reasons = reasons[:3]
	}
	return score, strings.Join(reasons, "; ")
}

func (s *Scorer) programWeight(program, category string) float64 {
	if program == "" {
		return 1.0
	}
	table, ok := s.priorities[program]
	if !ok {
		return 1.0
	}
	if weight, ok := table[category]; ok {
		return weight
	}
	return defaultPriority
}

// Interests iterate in sorted category order so the reason text is
// reproducible for identical inputs.
func sortedCategories(interests map[string]float64) []string {
	categories := make([]string, 0, len(interests))
	for category := range interests {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	return categories
}
