package advisor

import (
	"context"
	"fmt"
	"strings"

	"github.com/abitlab/itmo-advisor-go/internal/kb"
	"github.com/abitlab/itmo-advisor-go/internal/qa"
)

const (
	// contextMinConfidence gates the best-match Q/A block.
	contextMinConfidence = 0.2
	// contextRelatedTopK bounds the related-questions section.
	contextRelatedTopK = 5
	// maxContextCourses bounds the per-program course listing.
	maxContextCourses = 15
	// maxContextTags bounds the tags shown per course line.
	maxContextTags = 5
	// maxRelevantCourses bounds the keyword-matched course section.
	maxRelevantCourses = 10
)

// admissionKeywords trigger the admission-details section.
var admissionKeywords = []string{
	"бюджет", "мест", "поступление", "требования", "экзамен", "стоимость", "цена",
}

// courseQuestionKeywords detect questions about the curriculum.
var courseQuestionKeywords = []string{"курс", "дисциплина", "предмет", "изучение"}

// courseSearchKeywords are matched against both the question and the
// course text to pick out relevant courses.
var courseSearchKeywords = []string{
	"машинное обучение", "глубокое обучение", "python", "данные",
	"алгоритм", "статистика", "изображение", "nlp", "computer vision",
	"рекомендательные системы", "веб-разработка", "программирование",
}

// ContextBuilder assembles the knowledge-base context for generated
// answers: best corpus match, related questions, the full program
// catalog, and question-specific admission or course details. Sections
// whose data cannot be read are skipped; the remaining context still
// grounds the answer.
type ContextBuilder struct {
	db      *kb.DB
	matcher *qa.Matcher
}

// NewContextBuilder creates a builder over the knowledge base.
func NewContextBuilder(db *kb.DB, matcher *qa.Matcher) *ContextBuilder {
	return &ContextBuilder{db: db, matcher: matcher}
}

// Build renders the context block for one question.
func (b *ContextBuilder) Build(ctx context.Context, question string) string {
	var parts []string
	lower := strings.ToLower(question)

	parts = b.appendCorpusMatch(ctx, parts, question)

	programs, err := b.db.GetAllPrograms(ctx)
	if err != nil {
		programs = nil
	}
	parts = b.appendPrograms(ctx, parts, programs)
	parts = appendAdmissionInfo(parts, lower)
	parts = b.appendRelevantCourses(ctx, parts, lower)

	totalCourses, err := b.db.CountCourses(ctx)
	if err != nil {
		totalCourses = 0
	}
	parts = append(parts,
		"\n=== ОБЩАЯ СТАТИСТИКА ===",
		fmt.Sprintf("📊 Всего программ: %d", len(programs)),
		fmt.Sprintf("📚 Всего курсов: %d", totalCourses),
		"🏫 Университет: ИТМО (Санкт-Петербург)")

	return strings.Join(parts, "\n")
}

func (b *ContextBuilder) appendCorpusMatch(ctx context.Context, parts []string, question string) []string {
	base := b.matcher.Answer(ctx, question)
	if base.Confidence > contextMinConfidence {
		matched := base.MatchedQuestion
		if matched == "" {
			matched = "Похожий вопрос"
		}
		parts = append(parts, "Q: "+matched, "A: "+base.Answer)
	}

	related := b.matcher.Related(ctx, question, contextRelatedTopK)
	if len(related) > 0 {
		parts = append(parts, "\n=== ПОХОЖИЕ ВОПРОСЫ ===")
		for _, rel := range related {
			parts = append(parts, "Q: "+rel.Question, "A: "+rel.Answer)
		}
	}
	return parts
}

func (b *ContextBuilder) appendPrograms(ctx context.Context, parts []string, programs []kb.Program) []string {
	parts = append(parts, "\n=== ПОЛНАЯ ИНФОРМАЦИЯ О ПРОГРАММАХ ИТМО ===")

	for _, program := range programs {
		duration := program.Duration
		if duration == "" {
			duration = "2 года"
		}
		parts = append(parts,
			"\n🎓 ПРОГРАММА: "+program.Name,
			"📝 Описание: "+program.Description,
			"⏱️ Продолжительность: "+duration,
			"🎯 Уровень: Магистратура")

		courses, err := b.db.GetCoursesByProgram(ctx, program.ID)
		if err == nil && len(courses) > 0 {
			parts = append(parts, fmt.Sprintf("📚 Курсы программы (%d курсов):", len(courses)))
			if len(courses) > maxContextCourses {
				courses = courses[:maxContextCourses]
			}
			for _, course := range courses {
				parts = append(parts, courseLine(course))
			}
		}

		if len(program.CareerProspects) > 0 {
			parts = append(parts, "💼 Карьера: "+strings.Join(program.CareerProspects, ", "))
		}
		parts = append(parts, "---")
	}
	return parts
}

func courseLine(course kb.Course) string {
	mandatory := "ВЫБОРНЫЙ"
	if course.IsMandatory {
		mandatory = "ОБЯЗАТЕЛЬНЫЙ"
	}
	tags := course.Tags
	if len(tags) > maxContextTags {
		tags = tags[:maxContextTags]
	}
	return fmt.Sprintf("  • %s [%s] (Теги: %s)", course.Name, mandatory, strings.Join(tags, ", "))
}

func appendAdmissionInfo(parts []string, lower string) []string {
	if !containsKeyword(lower, admissionKeywords) {
		return parts
	}
	return append(parts,
		"\n=== ИНФОРМАЦИЯ О ПОСТУПЛЕНИИ ===",
		"📊 Статистика поступления в ИТМО:",
		"• Магистратура по ИИ - высокий конкурс",
		"• Требования: портфолио, собеседование, мотивационное письмо",
		"• Форма обучения: очная, 2 года",
		"• Язык обучения: русский/английский",
		"⚠️ ВНИМАНИЕ: Точное количество бюджетных мест и стоимость обучения",
		"   уточняйте в приемной комиссии ИТМО, так как эта информация",
		"   изменяется каждый год и зависит от государственного заказа.")
}

func (b *ContextBuilder) appendRelevantCourses(ctx context.Context, parts []string, lower string) []string {
	if !containsKeyword(lower, courseQuestionKeywords) {
		return parts
	}
	courses, err := b.db.GetAllCourses(ctx)
	if err != nil {
		return parts
	}

	var relevant []kb.Course
	for _, course := range courses {
		text := strings.ToLower(course.Name + " " + strings.Join(course.Tags, " "))
		for _, keyword := range courseSearchKeywords {
			if strings.Contains(lower, keyword) && strings.Contains(text, keyword) {
				relevant = append(relevant, course)
				break
			}
		}
	}
	if len(relevant) == 0 {
		return parts
	}
	if len(relevant) > maxRelevantCourses {
		relevant = relevant[:maxRelevantCourses]
	}

	parts = append(parts, "\n=== СВЯЗАННЫЕ КУРСЫ ===")
	for _, course := range relevant {
		name := course.ProgramName
		if name == "" {
			name = "Неизвестно"
		}
		parts = append(parts, fmt.Sprintf("📖 %s (%s)", course.Name, name))
		if len(course.Tags) > 0 {
			parts = append(parts, "   Теги: "+strings.Join(course.Tags, ", "))
		}
	}
	return parts
}

func containsKeyword(s string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(s, keyword) {
			return true
		}
	}
	return false
}
