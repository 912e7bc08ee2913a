// Package smart answers common applicant questions from the knowledge
// base itself, without external models.
//
// A question is first classified into a QuestionType by an ordered
// pattern table; the responder then renders an answer from the course
// catalog snapshot or from curated texts for that type. Classification
// is deterministic: variants are tried in declaration order and the
// first matching pattern wins.
package smart

import (
	"regexp"
	"strings"
)

// QuestionType is the recognized intent of an applicant question.
type QuestionType int

const (
	TypeUnknown QuestionType = iota
	TypeCoursesByTopic
	TypeProgramComparison
	TypeLearningTracks
	TypeAdmissionInfo
	TypeCareerProspects
	TypeDurationInfo
)

// String returns the snake_case label used in logs and API payloads.
// TypeUnknown reads as "general" to match the public answer schema.
func (t QuestionType) String() string {
	switch t {
	case TypeCoursesByTopic:
		return "courses_by_topic"
	case TypeProgramComparison:
		return "program_comparison"
	case TypeLearningTracks:
		return "learning_tracks"
	case TypeAdmissionInfo:
		return "admission_info"
	case TypeCareerProspects:
		return "career_prospects"
	case TypeDurationInfo:
		return "duration_info"
	default:
		return "general"
	}
}

type classifierRule struct {
	qtype    QuestionType
	patterns []*regexp.Regexp
}

// classifierRules is evaluated top to bottom against the lowercased
// question. Input is lowercased before matching, so the patterns are
// written in lowercase only.
var classifierRules = []classifierRule{
	{TypeCoursesByTopic, compilePatterns(
		`курс.*?(machine learning|машинн[а-яё]+ обучени|ml)`,
		`курс.*?(deep learning|глубок[а-яё]+ обучени|нейронн[а-яё]+ сет)`,
		`курс.*?(computer vision|компьютерн[а-яё]+ зрени|cv|изображени)`,
		`курс.*?(nlp|natural language|обработк[а-яё]+ язык)`,
		`курс.*?(python|питон|программировани)`,
		`курс.*?(data science|данн[а-яё]+|аналитик)`,
		`курс.*?(статистик|математик)`,
		`курс.*?(алгоритм|структур[а-яё]+ данн)`,
	)},
	{TypeProgramComparison, compilePatterns(
		`разниц[а-яё]+ между программ`,
		`сравни[а-яё]*.*?программ`,
		`чем отличаются программы`,
		`какую программу выбрать`,
		`искусственный интеллект.*?ai[- ]?продукт`,
		`ai[- ]?продукт.*?искусственный интеллект`,
	)},
	{TypeLearningTracks, compilePatterns(
		`траектори[а-яё]+`,
		`специализаци[а-яё]+`,
		`направлени[а-яё]+.*?обучени`,
		`варианты.*?обучени`,
		`пути.*?развити`,
		`какие.*?области.*?изучают`,
		`выборные.*?дисциплины`,
		`элективы`,
		`track`,
	)},
	{TypeAdmissionInfo, compilePatterns(
		`как поступить`,
		`требовани[а-яё]+ для поступлени`,
		`вступительн[а-яё]+ испытани`,
		`экзамен`,
		`поступлени`,
	)},
	{TypeCareerProspects, compilePatterns(
		`карьерн[а-яё]+ перспектив`,
		`где работать`,
		`трудоустройств`,
		`работ[а-яё]+ после`,
		`зарплат`,
	)},
	{TypeDurationInfo, compilePatterns(
		`сколько.*?длится`,
		`продолжительность`,
		`срок обучени`,
		`как долго`,
	)},
}

func compilePatterns(exprs ...string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, len(exprs))
	for i, expr := range exprs {
		patterns[i] = regexp.MustCompile(expr)
	}
	return patterns
}

// Classify returns the question's intent, or TypeUnknown when no
// pattern matches.
func Classify(question string) QuestionType {
	lower := strings.ToLower(question)
	for _, rule := range classifierRules {
		for _, pattern := range rule.patterns {
			if pattern.MatchString(lower) {
				return rule.qtype
			}
		}
	}
	return TypeUnknown
}
