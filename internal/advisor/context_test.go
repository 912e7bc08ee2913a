package advisor

import (
	"context"
	"strings"
	"testing"

	"github.com/abitlab/itmo-advisor-go/internal/config"
	"github.com/abitlab/itmo-advisor-go/internal/kb"
	"github.com/abitlab/itmo-advisor-go/internal/qa"
)

func newTestContextBuilder(t *testing.T) (*ContextBuilder, *kb.DB, *qa.Matcher) {
	t.Helper()

	db := newTestKB(t)
	matcher := qa.New(db, config.MatchingConfig{}, testLogger(), nil)
	return NewContextBuilder(db, matcher), db, matcher
}

func seedCatalog(t *testing.T, db *kb.DB) {
	t.Helper()

	programs := []kb.Program{
		{
			Key:             kb.ProgramKeyAI,
			Name:            "Искусственный интеллект",
			Description:     "Углублённая подготовка в области ИИ.",
			Duration:        "2 года (4 семестра)",
			CareerProspects: []string{"ML Engineer", "Data Scientist"},
			Courses: []kb.Course{
				{
					Name:        "Python для анализа данных",
					Semester:    "1 семестр",
					Credits:     3,
					IsMandatory: true,
					Tags:        []string{"python", "data science"},
				},
				{
					Name:     "Глубокое обучение",
					Semester: "2 семестр",
					Credits:  4,
					Tags:     []string{"deep learning", "neural networks"},
				},
			},
		},
		{
			Key:             kb.ProgramKeyAIProduct,
			Name:            "AI-продукты",
			Description:     "Создание продуктов на основе ИИ.",
			CareerProspects: []string{"Product Manager"},
			Courses: []kb.Course{
				{
					Name:        "Управление AI-продуктами",
					Semester:    "1 семестр",
					Credits:     3,
					IsMandatory: true,
					Tags:        []string{"product management"},
				},
			},
		},
	}
	if err := db.SavePrograms(context.Background(), programs); err != nil {
		t.Fatalf("SavePrograms() error = %v", err)
	}
}

func TestBuild_ProgramCatalog(t *testing.T) {
	t.Parallel()
	builder, db, _ := newTestContextBuilder(t)
	seedCatalog(t, db)

	got := builder.Build(context.Background(), "Расскажи о программах")

	for _, want := range []string{
		"=== ПОЛНАЯ ИНФОРМАЦИЯ О ПРОГРАММАХ ИТМО ===",
		"🎓 ПРОГРАММА: Искусственный интеллект",
		"🎓 ПРОГРАММА: AI-продукты",
		"⏱️ Продолжительность: 2 года (4 семестра)",
		"🎯 Уровень: Магистратура",
		"📚 Курсы программы (2 курсов):",
		"• Python для анализа данных [ОБЯЗАТЕЛЬНЫЙ] (Теги: python, data science)",
		"• Глубокое обучение [ВЫБОРНЫЙ] (Теги: deep learning, neural networks)",
		"💼 Карьера: ML Engineer, Data Scientist",
		"📊 Всего программ: 2",
		"📚 Всего курсов: 3",
		"🏫 Университет: ИТМО (Санкт-Петербург)",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Build() missing %q", want)
		}
	}

	// The second program has no stored duration and gets the default.
	if strings.Count(got, "⏱️ Продолжительность: 2 года") != 2 {
		t.Errorf("Build() duration lines = %d, want 2", strings.Count(got, "⏱️ Продолжительность: 2 года"))
	}

	if strings.Contains(got, "ИНФОРМАЦИЯ О ПОСТУПЛЕНИИ") {
		t.Errorf("Build() includes admission details without admission keywords")
	}
	if strings.Contains(got, "СВЯЗАННЫЕ КУРСЫ") {
		t.Errorf("Build() includes course search results without course keywords")
	}
}

func TestBuild_AdmissionSection(t *testing.T) {
	t.Parallel()
	builder, db, _ := newTestContextBuilder(t)
	seedCatalog(t, db)

	got := builder.Build(context.Background(), "Какая стоимость обучения?")

	if !strings.Contains(got, "=== ИНФОРМАЦИЯ О ПОСТУПЛЕНИИ ===") {
		t.Errorf("Build() missing the admission section")
	}
	if !strings.Contains(got, "приемной комиссии ИТМО") {
		t.Errorf("Build() missing the admission disclaimer")
	}
}

func TestBuild_RelevantCourses(t *testing.T) {
	t.Parallel()
	builder, db, _ := newTestContextBuilder(t)
	seedCatalog(t, db)

	got := builder.Build(context.Background(), "Какие курсы про python есть?")

	if !strings.Contains(got, "=== СВЯЗАННЫЕ КУРСЫ ===") {
		t.Errorf("Build() missing the relevant courses section")
	}
	if !strings.Contains(got, "📖 Python для анализа данных (Искусственный интеллект)") {
		t.Errorf("Build() missing the matched course line:\n%s", got)
	}
	if !strings.Contains(got, "Теги: python, data science") {
		t.Errorf("Build() missing the matched course tags")
	}
	if strings.Contains(got, "📖 Глубокое обучение") {
		t.Errorf("Build() lists a course the question never mentioned")
	}
}

func TestBuild_CorpusMatch(t *testing.T) {
	t.Parallel()
	builder, db, matcher := newTestContextBuilder(t)
	seedQA(t, db, matcher, advisorCorpus())

	got := builder.Build(context.Background(), "Сколько длится обучение?")

	if !strings.Contains(got, "Q: Сколько длится обучение?") {
		t.Errorf("Build() missing the corpus match question")
	}
	if !strings.Contains(got, "A: Обучение длится 2 года.") {
		t.Errorf("Build() missing the corpus match answer")
	}
	if !strings.Contains(got, "=== ПОХОЖИЕ ВОПРОСЫ ===") {
		t.Errorf("Build() missing the related questions section")
	}
}

func TestBuild_EmptyKnowledgeBase(t *testing.T) {
	t.Parallel()
	builder, _, _ := newTestContextBuilder(t)

	got := builder.Build(context.Background(), "Расскажи про ИТМО")

	if !strings.Contains(got, "📊 Всего программ: 0") {
		t.Errorf("Build() = %q, want zero program count", got)
	}
	if !strings.Contains(got, "📚 Всего курсов: 0") {
		t.Errorf("Build() = %q, want zero course count", got)
	}
	if strings.Contains(got, "Q: ") {
		t.Errorf("Build() includes a corpus match over an empty corpus")
	}
}
