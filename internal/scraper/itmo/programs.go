package itmo

import "github.com/abitlab/itmo-advisor-go/internal/kb"

// ProgramPage identifies one master's program page on the admission site.
type ProgramPage struct {
	Key  string // catalog key stored with the program
	Name string // official program name in Russian
	Path string // path under the admission site base URL
}

// Pages lists the program pages the scraper knows how to parse.
var Pages = []ProgramPage{
	{Key: kb.ProgramKeyAI, Name: "Искусственный интеллект", Path: "/program/master/ai"},
	{Key: kb.ProgramKeyAIProduct, Name: "AI-продукты", Path: "/program/master/ai_product"},
}

// Parser defaults for pages that omit a section. The admission site
// reshuffles its markup every campaign season, so every extractor has a
// conservative fallback.
const (
	defaultDescription = "Описание программы не найдено"
	defaultDuration    = "2 года"
	defaultCredits     = 3
	defaultSemester    = "1 семестр"
)

// defaultAdmissionRequirements returns the baseline entry requirements
// shared by both master's programs.
func defaultAdmissionRequirements() []string {
	return []string{
		"Диплом бакалавра или специалиста",
		"Вступительные испытания по профилю программы",
		"Портфолио проектов (при наличии)",
	}
}

// defaultCareerProspects returns the typical graduate roles advertised
// for the AI track.
func defaultCareerProspects() []string {
	return []string{
		"ML-инженер",
		"Data Scientist",
		"AI-разработчик",
		"Исследователь в области ИИ",
		"Продуктовый менеджер AI-продуктов",
	}
}

// durationKeywords mark text lines that talk about how long the program
// takes.
var durationKeywords = []string{"срок", "продолжительность", "длительность", "года", "лет"}

// optionalKeywords and mandatoryKeywords classify curriculum rows.
// Optional markers win; an unmarked course counts as mandatory.
var (
	optionalKeywords  = []string{"выборный", "optional", "elective", "элективный"}
	mandatoryKeywords = []string{"обязательный", "mandatory", "required", "базовый"}
)

// tagRules maps course name keywords to capability tags. Rules are
// ordered so regenerated catalogs keep stable tag order.
var tagRules = []struct {
	keyword string
	tags    []string
}{
	{"машинное обучение", []string{"ML", "Machine Learning"}},
	{"machine learning", []string{"ML", "Machine Learning"}},
	{"глубокое обучение", []string{"Deep Learning", "Neural Networks"}},
	{"deep learning", []string{"Deep Learning", "Neural Networks"}},
	{"нейронные сети", []string{"Neural Networks", "Deep Learning"}},
	{"neural networks", []string{"Neural Networks", "Deep Learning"}},
	{"python", []string{"Python", "Programming"}},
	{"программирование", []string{"Programming", "Development"}},
	{"data", []string{"Data Science", "Analytics"}},
	{"данные", []string{"Data Science", "Analytics"}},
	{"алгоритм", []string{"Algorithms", "CS"}},
	{"статистика", []string{"Statistics", "Math"}},
	{"математика", []string{"Math", "Statistics"}},
	{"computer vision", []string{"Computer Vision", "CV"}},
	{"компьютерное зрение", []string{"Computer Vision", "CV"}},
	{"nlp", []string{"NLP", "Text Processing"}},
	{"обработка языка", []string{"NLP", "Text Processing"}},
	{"reinforcement learning", []string{"RL", "Reinforcement Learning"}},
	{"обучение с подкреплением", []string{"RL", "Reinforcement Learning"}},
}
