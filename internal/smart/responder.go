package smart

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/abitlab/itmo-advisor-go/internal/interest"
	"github.com/abitlab/itmo-advisor-go/internal/kb"
	"github.com/abitlab/itmo-advisor-go/internal/logger"
	"github.com/abitlab/itmo-advisor-go/internal/qa"
)

// LocalConfidence is the confidence assigned to answers generated from
// the knowledge base snapshot.
const LocalConfidence = 0.85

// EnhancementBonus is added to the base confidence when a confident
// answer is enriched with catalog context, capped at 1.0 by the caller.
const EnhancementBonus = 0.1

// topicRule assigns courses to a topic bucket by tag or by a substring
// of the lowercased course name. A course can land in several buckets.
type topicRule struct {
	topic     string
	tags      []string
	nameTerms []string
}

var topicRules = []topicRule{
	{interest.CategoryMachineLearning, []string{"machine learning", "ml"}, []string{"машинное обучение"}},
	{interest.CategoryDeepLearning, []string{"deep learning", "neural networks"}, []string{"глубокое обучение"}},
	{interest.CategoryComputerVision, []string{"computer vision", "cv"}, []string{"изображени", "зрени", "vision"}},
	{interest.CategoryNLP, []string{"nlp", "natural language processing"}, []string{"язык"}},
	{interest.CategoryPython, []string{"python", "programming"}, []string{"python"}},
}

// topicDative spells each topic in the case needed after "Курсы по".
var topicDative = map[string]string{
	interest.CategoryMachineLearning: "машинному обучению",
	interest.CategoryDeepLearning:    "глубокому обучению",
	interest.CategoryComputerVision:  "компьютерному зрению",
	interest.CategoryNLP:             "обработке естественного языка",
	interest.CategoryPython:          "Python",
}

// topicDisplay spells each topic as a track heading.
var topicDisplay = map[string]string{
	interest.CategoryMachineLearning: "Машинное обучение",
	interest.CategoryDeepLearning:    "Глубокое обучение",
	interest.CategoryComputerVision:  "Компьютерное зрение",
	interest.CategoryNLP:             "Обработка языка",
	interest.CategoryPython:          "Python разработка",
}

// programSummary is one side of the program comparison.
type programSummary struct {
	name         string
	coursesCount int
	uniqueFocus  []string
	description  string
}

// programComparison contrasts the research program with the product
// program based on their curriculum tag frequencies.
type programComparison struct {
	ai      programSummary
	product programSummary
}

// Responder generates knowledge-base answers for classified questions.
// Rebuild derives the topic buckets and the program comparison from the
// stored catalog; the snapshot is swapped atomically so concurrent
// Generate calls see a consistent state.
type Responder struct {
	db  *kb.DB
	log *logger.Logger

	mu         sync.RWMutex
	topics     map[string][]kb.Course
	comparison *programComparison
}

// New creates a Responder with an empty snapshot. Call Rebuild before
// serving; until then catalog-backed answers report themselves
// unavailable.
func New(db *kb.DB, log *logger.Logger) *Responder {
	return &Responder{
		db:  db,
		log: log.WithModule("smart"),
	}
}

// Rebuild recomputes the topic buckets and the program comparison from
// the current catalog.
func (r *Responder) Rebuild(ctx context.Context) error {
	courses, err := r.db.GetAllCourses(ctx)
	if err != nil {
		return fmt.Errorf("load courses: %w", err)
	}
	programs, err := r.db.GetAllPrograms(ctx)
	if err != nil {
		return fmt.Errorf("load programs: %w", err)
	}

	topics := buildTopics(courses)
	comparison, err := r.buildComparison(ctx, programs)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.topics = topics
	r.comparison = comparison
	r.mu.Unlock()

	r.log.WithFields(map[string]any{
		"topics":         len(topics),
		"has_comparison": comparison != nil,
	}).Debug("Smart responses rebuilt")
	return nil
}

// Generate renders the answer for a classified question. ok is false
// when the type is unknown or the needed catalog data cannot be read;
// the caller is expected to fall through to the next answer source.
func (r *Responder) Generate(ctx context.Context, qtype QuestionType, question string) (answer string, ok bool) {
	switch qtype {
	case TypeCoursesByTopic:
		return r.answerCoursesByTopic(question), true
	case TypeProgramComparison:
		return r.answerProgramComparison(), true
	case TypeLearningTracks:
		return r.answerLearningTracks(ctx)
	case TypeAdmissionInfo:
		return admissionAnswer, true
	case TypeCareerProspects:
		return careerAnswer, true
	case TypeDurationInfo:
		return durationAnswer, true
	default:
		return "", false
	}
}

// Enhance appends catalog context to a confident base answer: topical
// courses when the question asks about courses, then related questions,
// then the attribution line.
func (r *Responder) Enhance(question string, qtype QuestionType, baseAnswer string, related []qa.RelatedQuestion) string {
	var b strings.Builder
	b.WriteString(baseAnswer)

	if qtype == TypeCoursesByTopic {
		if courses := r.topicCourses(topicFromQuestion(question)); len(courses) > 0 {
			if len(courses) > 3 {
				courses = courses[:3]
			}
			b.WriteString("\n\n🎓 Релевантные курсы:\n")
			for _, course := range courses {
				fmt.Fprintf(&b, "• %s (%s)\n", course.Name, programNameOrUnknown(course))
			}
		}
	}

	if len(related) > 0 {
		b.WriteString("\n\n💡 Возможно, вас также интересует:\n")
		for _, rel := range related {
			fmt.Fprintf(&b, "• %s\n", rel.Question)
		}
	}

	b.WriteString("\n\n🤖 Ответ улучшен умной системой анализа")
	return b.String()
}

func (r *Responder) answerCoursesByTopic(question string) string {
	topic := topicFromQuestion(question)
	courses := r.topicCourses(topic)
	if topic == "" || len(courses) == 0 {
		return "🔍 Не могу найти курсы по указанной теме. Попробуйте переформулировать вопрос."
	}

	heading, ok := topicDative[topic]
	if !ok {
		heading = "указанной теме"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🎓 Курсы по %s:\n\n", heading)

	if len(courses) > 5 {
		courses = courses[:5]
	}
	for i, course := range courses {
		fmt.Fprintf(&b, "%d. %s\n", i+1, course.Name)
		fmt.Fprintf(&b, "   📚 Программа: %s\n", programNameOrUnknown(course))
		fmt.Fprintf(&b, "   📅 Семестр: %s\n", semesterOrUnknown(course))
		if len(course.Tags) > 0 {
			tags := course.Tags
			if len(tags) > 3 {
				tags = tags[:3]
			}
			fmt.Fprintf(&b, "   🏷️ Теги: %s\n", strings.Join(tags, ", "))
		}
		b.WriteString("\n")
	}

	b.WriteString("💡 Для получения персональных рекомендаций нажмите 'Получить рекомендации'")
	return b.String()
}

func (r *Responder) answerProgramComparison() string {
	r.mu.RLock()
	comparison := r.comparison
	r.mu.RUnlock()

	if comparison == nil {
		return "📊 Информация о сравнении программ временно недоступна."
	}

	var b strings.Builder
	b.WriteString("🎓 Сравнение программ ИТМО:\n\n")
	writeProgramSummary(&b, "🧠", comparison.ai)
	writeProgramSummary(&b, "🚀", comparison.product)

	b.WriteString("💡 **Рекомендации:**\n")
	b.WriteString("• Выбирайте 'Искусственный интеллект' для углубленного изучения ИИ\n")
	b.WriteString("• Выбирайте 'AI-продукты' для практического применения ИИ в продуктах\n\n")
	b.WriteString("🤖 Анализ на основе сравнения учебных планов")
	return b.String()
}

func writeProgramSummary(b *strings.Builder, marker string, summary programSummary) {
	fmt.Fprintf(b, "%s **%s**\n", marker, summary.name)
	fmt.Fprintf(b, "📚 Курсов: %d\n", summary.coursesCount)
	if len(summary.uniqueFocus) > 0 {
		focus := summary.uniqueFocus
		if len(focus) > 3 {
			focus = focus[:3]
		}
		fmt.Fprintf(b, "🎯 Особый фокус: %s\n", strings.Join(focus, ", "))
	}
	fmt.Fprintf(b, "📖 %s...\n\n", truncateRunes(summary.description, 200))
}

func (r *Responder) answerLearningTracks(ctx context.Context) (string, bool) {
	programs, err := r.db.GetAllPrograms(ctx)
	if err != nil {
		r.log.WithError(err).Warn("Learning tracks answer unavailable")
		return "", false
	}

	var b strings.Builder
	b.WriteString("🛤️ Траектории обучения в ИТМО:\n\n")

	for _, program := range programs {
		courses, err := r.db.GetCoursesByProgram(ctx, program.ID)
		if err != nil {
			r.log.WithError(err).Warn("Learning tracks answer unavailable")
			return "", false
		}

		var mandatory int
		bySemester := make(map[string][]kb.Course)
		for _, course := range courses {
			if course.IsMandatory {
				mandatory++
			}
			bySemester[course.Semester] = append(bySemester[course.Semester], course)
		}

		fmt.Fprintf(&b, "📚 **%s**\n", program.Name)
		fmt.Fprintf(&b, "📖 Всего курсов: %d\n", len(courses))
		fmt.Fprintf(&b, "⭐ Обязательных: %d\n", mandatory)
		fmt.Fprintf(&b, "🎯 Элективных: %d\n\n", len(courses)-mandatory)

		if tracks := r.programTracks(program.ID); len(tracks) > 0 {
			b.WriteString("🎯 **Основные направления:**\n")
			b.WriteString(strings.Join(tracks, "\n"))
			b.WriteString("\n\n")
		}

		b.WriteString("📅 **Структура обучения:**\n")
		semesters := make([]string, 0, len(bySemester))
		for semester := range bySemester {
			if semester != "" {
				semesters = append(semesters, semester)
			}
		}
		sort.Strings(semesters)
		if len(semesters) > 4 {
			semesters = semesters[:4]
		}
		for _, semester := range semesters {
			fmt.Fprintf(&b, "  %s: %d курсов\n", semester, len(bySemester[semester]))
		}

		b.WriteString("\n" + strings.Repeat("─", 30) + "\n\n")
	}

	b.WriteString(tracksAdvice)
	return b.String(), true
}

// programTracks lists this program's topic buckets with course counts,
// in the fixed topic order, capped at five lines.
func (r *Responder) programTracks(programID int64) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var tracks []string
	for _, rule := range topicRules {
		var count int
		for _, course := range r.topics[rule.topic] {
			if course.ProgramID == programID {
				count++
			}
		}
		if count > 0 {
			tracks = append(tracks, fmt.Sprintf("  • %s (%d курсов)", topicDisplay[rule.topic], count))
		}
	}
	if len(tracks) > 5 {
		tracks = tracks[:5]
	}
	return tracks
}

// topicCourses returns the snapshot bucket for a topic, nil when the
// topic is empty or has no courses.
func (r *Responder) topicCourses(topic string) []kb.Course {
	if topic == "" {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.topics[topic]
}

// topicFromQuestion maps a course question to a topic bucket. Checks
// run in a fixed order and stop at the first hit.
func topicFromQuestion(question string) string {
	lower := strings.ToLower(question)

	switch {
	case containsAny(lower, "machine learning", "машинное обучение", "мо"):
		return interest.CategoryMachineLearning
	case containsAny(lower, "deep learning", "глубокое обучение", "нейронные сети"):
		return interest.CategoryDeepLearning
	case containsAny(lower, "computer vision", "компьютерное зрение", "cv", "изображение"):
		return interest.CategoryComputerVision
	case containsAny(lower, "nlp", "natural language", "язык"):
		return interest.CategoryNLP
	case strings.Contains(lower, "python"):
		return interest.CategoryPython
	default:
		return ""
	}
}

// buildTopics groups catalog courses into topic buckets. Bucket order
// within a topic follows the catalog order.
func buildTopics(courses []kb.Course) map[string][]kb.Course {
	topics := make(map[string][]kb.Course)
	for _, course := range courses {
		name := strings.ToLower(course.Name)
		for _, rule := range topicRules {
			if courseMatchesTopic(course, name, rule) {
				topics[rule.topic] = append(topics[rule.topic], course)
			}
		}
	}
	return topics
}

func courseMatchesTopic(course kb.Course, lowerName string, rule topicRule) bool {
	for _, tag := range course.Tags {
		lowerTag := strings.ToLower(tag)
		for _, want := range rule.tags {
			if lowerTag == want {
				return true
			}
		}
	}
	for _, term := range rule.nameTerms {
		if strings.Contains(lowerName, term) {
			return true
		}
	}
	return false
}

// buildComparison contrasts the two flagship programs when both are in
// the catalog. Focus tags are those appearing more often in one
// program's curriculum than in the other's, in first-seen order.
func (r *Responder) buildComparison(ctx context.Context, programs []kb.Program) (*programComparison, error) {
	if len(programs) < 2 {
		return nil, nil
	}

	var ai, product *kb.Program
	for i := range programs {
		name := strings.ToLower(programs[i].Name)
		switch {
		case ai == nil && strings.Contains(name, "искусственный интеллект"):
			ai = &programs[i]
		case product == nil && strings.Contains(name, "ai-продукт"):
			product = &programs[i]
		}
	}
	if ai == nil || product == nil {
		return nil, nil
	}

	aiCourses, err := r.db.GetCoursesByProgram(ctx, ai.ID)
	if err != nil {
		return nil, fmt.Errorf("load comparison courses: %w", err)
	}
	productCourses, err := r.db.GetCoursesByProgram(ctx, product.ID)
	if err != nil {
		return nil, fmt.Errorf("load comparison courses: %w", err)
	}

	aiTags, aiOrder := tagFrequencies(aiCourses)
	productTags, productOrder := tagFrequencies(productCourses)

	return &programComparison{
		ai: programSummary{
			name:         ai.Name,
			coursesCount: len(aiCourses),
			uniqueFocus:  dominantTags(aiTags, aiOrder, productTags),
			description:  ai.Description,
		},
		product: programSummary{
			name:         product.Name,
			coursesCount: len(productCourses),
			uniqueFocus:  dominantTags(productTags, productOrder, aiTags),
			description:  product.Description,
		},
	}, nil
}

// tagFrequencies counts curriculum tags and remembers first-seen order
// so downstream output stays deterministic.
func tagFrequencies(courses []kb.Course) (map[string]int, []string) {
	counts := make(map[string]int)
	var order []string
	for _, course := range courses {
		for _, tag := range course.Tags {
			if counts[tag] == 0 {
				order = append(order, tag)
			}
			counts[tag]++
		}
	}
	return counts, order
}

// dominantTags returns up to five tags that occur strictly more often
// in counts than in other.
func dominantTags(counts map[string]int, order []string, other map[string]int) []string {
	var dominant []string
	for _, tag := range order {
		if counts[tag] > other[tag] {
			dominant = append(dominant, tag)
		}
		if len(dominant) == 5 {
			break
		}
	}
	return dominant
}

func programNameOrUnknown(course kb.Course) string {
	if course.ProgramName == "" {
		return "Неизвестно"
	}
	return course.ProgramName
}

func semesterOrUnknown(course kb.Course) string {
	if course.Semester == "" {
		return "Не указан"
	}
	return course.Semester
}

// truncateRunes cuts s to at most limit runes.
func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

func containsAny(s string, terms ...string) bool {
	for _, term := range terms {
		if strings.Contains(s, term) {
			return true
		}
	}
	return false
}
