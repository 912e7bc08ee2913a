// Package interest extracts topical interest categories and background
// facts from free-form applicant text. Matching is literal substring
// lookup against curated phrase tables, so the category names stay
// stable while the tables can vary per deployment.
package interest

import (
	"strings"
	"unicode"
)

// Canonical category names used by the default taxonomy and the
// program priority tables.
const (
	CategoryMachineLearning = "machine_learning"
	CategoryDeepLearning    = "deep_learning"
	CategoryComputerVision  = "computer_vision"
	CategoryNLP             = "nlp"
	CategoryDataScience     = "data_science"
	CategoryPython          = "python"
	CategoryResearch        = "research"
	CategoryProduct         = "product"
	CategoryRobotics        = "robotics"
	CategoryMath            = "math"
)

// Category is one interest category with the phrases that signal it.
type Category struct {
	Name    string
	Phrases []string
}

// TaxonomyConfig carries the static matching tables for a Taxonomy.
type TaxonomyConfig struct {
	// Categories are matched in declaration order, so extraction
	// results are deterministic for a given input.
	Categories []Category

	// TagLabels maps a category name to the course tag labels it can
	// match. Categories without an entry fall back to the title-cased
	// category name.
	TagLabels map[string][]string

	// VisionCategory names the category that gets the extra
	// VisionBoosters check against course names.
	VisionCategory string
	VisionBoosters []string
}

// Taxonomy is an immutable snapshot of the interest matching tables.
// The constructor deep-copies its input, so a Taxonomy can be shared
// across goroutines freely.
type Taxonomy struct {
	categories []Category
	phrases    map[string][]string
	labels     map[string][]string
	visionCat  string
	boosters   []string
}

// NewTaxonomy builds a taxonomy from the given tables. Phrases and
// boosters are lowercased, empty entries are dropped.
func NewTaxonomy(cfg TaxonomyConfig) *Taxonomy {
	t := &Taxonomy{
		phrases:   make(map[string][]string, len(cfg.Categories)),
		labels:    make(map[string][]string, len(cfg.TagLabels)),
		visionCat: cfg.VisionCategory,
		boosters:  cleanPhrases(cfg.VisionBoosters),
	}
	for _, cat := range cfg.Categories {
		copied := Category{Name: cat.Name, Phrases: cleanPhrases(cat.Phrases)}
		t.categories = append(t.categories, copied)
		t.phrases[copied.Name] = copied.Phrases
	}
	for name, tags := range cfg.TagLabels {
		t.labels[name] = append([]string(nil), tags...)
	}
	return t
}

// DefaultTaxonomy returns the taxonomy tuned for the ITMO AI master's
// programs: Russian and English phrases for ten interest categories
// plus the tag labels the course catalog uses.
func DefaultTaxonomy() *Taxonomy {
	return NewTaxonomy(TaxonomyConfig{
		Categories: []Category{
			{Name: CategoryMachineLearning, Phrases: []string{
				"машинное обучение", "machine learning", "ml", "алгоритмы машинного обучения",
				"классификация", "регрессия", "кластеризация", "обучение с учителем",
				"обучение без учителя", "supervised learning", "unsupervised learning",
			}},
			{Name: CategoryDeepLearning, Phrases: []string{
				"глубокое обучение", "deep learning", "нейронные сети", "neural networks",
				"cnn", "rnn", "lstm", "transformer", "свёрточные сети", "рекуррентные сети",
			}},
			{Name: CategoryComputerVision, Phrases: []string{
				"компьютерное зрение", "computer vision", "cv", "обработка изображений",
				"распознавание образов", "image processing", "opencv", "детекция объектов",
			}},
			{Name: CategoryNLP, Phrases: []string{
				"обработка естественного языка", "natural language processing", "nlp",
				"анализ текста", "text mining", "sentiment analysis", "чат-боты", "bert",
			}},
			{Name: CategoryDataScience, Phrases: []string{
				"data science", "анализ данных", "большие данные", "big data",
				"статистика", "analytics", "pandas", "numpy", "визуализация данных",
			}},
			{Name: CategoryPython, Phrases: []string{
				"python", "программирование на python", "django", "flask", "fastapi",
				"pandas", "numpy", "scikit-learn", "pytorch", "tensorflow",
			}},
			{Name: CategoryResearch, Phrases: []string{
				"исследования", "research", "научная работа", "публикации", "статьи",
				"эксперименты", "analysis", "методология",
			}},
			{Name: CategoryProduct, Phrases: []string{
				"продукт", "product", "продакт-менеджмент", "product management",
				"бизнес", "стартап", "коммерциализация", "метрики", "a/b тестирование",
			}},
			{Name: CategoryRobotics, Phrases: []string{
				"робототехника", "robotics", "роботы", "автоматизация", "sensors",
				"управление", "киберфизические системы",
			}},
			{Name: CategoryMath, Phrases: []string{
				"математика", "mathematics", "статистика", "probability", "вероятность",
				"линейная алгебра", "linear algebra", "оптимизация", "optimization",
			}},
		},
		TagLabels: map[string][]string{
			CategoryComputerVision:  {"Computer Vision", "CV", "Vision"},
			CategoryMachineLearning: {"Machine Learning", "ML"},
			CategoryDeepLearning:    {"Deep Learning", "Neural Networks"},
			CategoryNLP:             {"NLP", "Natural Language Processing"},
			CategoryDataScience:     {"Data Science", "Analytics", "Statistics", "Math"},
			CategoryPython:          {"Python", "Programming"},
			CategoryResearch:        {"Research", "Analysis"},
			"algorithms":            {"Algorithms", "Programming"},
			CategoryMath:            {"Math", "Statistics"},
			"web_development":       {"Web Development", "Programming"},
		},
		VisionCategory: CategoryComputerVision,
		VisionBoosters: []string{
			"изображен", "vision", "зрение", "обработка изображений", "генерация изображений",
		},
	})
}

// Categories returns the ordered category list. The returned slice is
// shared and must not be modified.
func (t *Taxonomy) Categories() []Category {
	return t.categories
}

// PhrasesFor returns the phrase list for a category, or nil when the
// category is unknown.
func (t *Taxonomy) PhrasesFor(category string) []string {
	return t.phrases[category]
}

// LabelsFor returns the course tag labels a category can match. A
// category without a configured entry falls back to its title-cased
// name, so interests from stored profiles still match literally
// tagged courses.
func (t *Taxonomy) LabelsFor(category string) []string {
	if labels, ok := t.labels[category]; ok {
		return labels
	}
	return []string{titleLabel(category)}
}

// VisionBoosters returns the extra course-name keywords for the
// configured vision category and nil for every other category.
func (t *Taxonomy) VisionBoosters(category string) []string {
	if category == "" || category != t.visionCat {
		return nil
	}
	return t.boosters
}

func cleanPhrases(phrases []string) []string {
	cleaned := make([]string, 0, len(phrases))
	for _, phrase := range phrases {
		phrase = strings.ToLower(strings.TrimSpace(phrase))
		if phrase == "" {
			continue
		}
		cleaned = append(cleaned, phrase)
	}
	return cleaned
}

// titleLabel upper-cases the first letter of every word so a bare
// category name like "robotics" can stand in for a tag label.
func titleLabel(s string) string {
	runes := []rune(s)
	inWord := false
	for i, r := range runes {
		switch {
		case !unicode.IsLetter(r):
			inWord = false
		case inWord:
			runes[i] = unicode.ToLower(r)
		default:
			runes[i] = unicode.ToUpper(r)
			inWord = true
		}
	}
	return string(runes)
}
