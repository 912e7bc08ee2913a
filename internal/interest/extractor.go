package interest

import (
	"math"
	"strings"
)

// Experience levels assigned by AnalyzeBackground.
const (
	LevelBeginner     = "beginner"
	LevelIntermediate = "intermediate"
	LevelExperienced  = "experienced"
)

// Skill pairs a canonical skill name with the spellings that signal it.
type Skill struct {
	Name     string
	Keywords []string
}

// BackgroundRules holds the keyword tables AnalyzeBackground matches
// against. Experienced and Intermediate pick the experience level,
// Skills is checked in declaration order so results are deterministic.
type BackgroundRules struct {
	Experienced  []string
	Intermediate []string
	Skills       []Skill
}

// DefaultBackgroundRules returns the stock experience and skill tables.
func DefaultBackgroundRules() BackgroundRules {
	return BackgroundRules{
		Experienced:  []string{"опыт", "работал", "работаю", "experience", "senior", "lead"},
		Intermediate: []string{"изучал", "изучаю", "начинающий", "beginner", "junior"},
		Skills: []Skill{
			{Name: "Python", Keywords: []string{"python", "питон"}},
			{Name: "Java", Keywords: []string{"java"}},
			{Name: "C++", Keywords: []string{"c++", "cpp"}},
			{Name: "JavaScript", Keywords: []string{"javascript", "js", "node.js"}},
			{Name: "SQL", Keywords: []string{"sql", "database", "база данных"}},
			{Name: "Git", Keywords: []string{"git", "github", "gitlab"}},
		},
	}
}

// Background is what AnalyzeBackground distills from an applicant's
// self-description.
type Background struct {
	ExperienceLevel string
	TechnicalSkills []string
	Interests       map[string]float64
}

// Extractor finds interest categories and background facts in
// free-form applicant text.
type Extractor struct {
	tax   *Taxonomy
	rules BackgroundRules
}

// NewExtractor builds an extractor over the given taxonomy with the
// default background rules. A nil taxonomy selects DefaultTaxonomy.
func NewExtractor(tax *Taxonomy) *Extractor {
	return NewExtractorWithRules(tax, DefaultBackgroundRules())
}

// NewExtractorWithRules builds an extractor with custom background
// rules, for localized deployments and tests.
func NewExtractorWithRules(tax *Taxonomy, rules BackgroundRules) *Extractor {
	if tax == nil {
		tax = DefaultTaxonomy()
	}
	return &Extractor{tax: tax, rules: rules}
}

// Extract maps the text to interest categories weighted in (0, 1].
// Phrases match as literal substrings of the lowercased input, so
// inflected forms that differ from the curated spelling do not count.
// Longer phrases weigh more and per-category weight is capped at 1.0.
// Categories with no match are absent from the result.
func (e *Extractor) Extract(text string) map[string]float64 {
	interests := make(map[string]float64)
	if text == "" {
		return interests
	}

	lower := strings.ToLower(text)
	for _, cat := range e.tax.Categories() {
		var score float64
		for _, phrase := range cat.Phrases {
			if strings.Contains(lower, phrase) {
				score += 0.7 + 0.3*float64(len(strings.Fields(phrase)))
			}
		}
		if score > 0 {
			interests[cat.Name] = math.Min(score, 1.0)
		}
	}
	return interests
}

// AnalyzeBackground classifies the experience level, detects known
// technical skills and extracts interests from one text. Experience
// keywords win over learner keywords when both are present; with
// neither the level stays LevelBeginner.
func (e *Extractor) AnalyzeBackground(text string) Background {
	lower := strings.ToLower(text)
	bg := Background{
		ExperienceLevel: LevelBeginner,
		Interests:       e.Extract(text),
	}

	switch {
	case containsAny(lower, e.rules.Experienced):
		bg.ExperienceLevel = LevelExperienced
	case containsAny(lower, e.rules.Intermediate):
		bg.ExperienceLevel = LevelIntermediate
	}

	for _, skill := range e.rules.Skills {
		if containsAny(lower, skill.Keywords) {
			bg.TechnicalSkills = append(bg.TechnicalSkills, skill.Name)
		}
	}
	return bg
}

func containsAny(text string, keywords []string) bool {
	for _, keyword := range keywords {
		if keyword != "" && strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}
