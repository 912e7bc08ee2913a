package kb

import (
	"context"
	"fmt"
	"log/slog"
)

// sampleQAPairs are the baseline reference questions every deployment
// starts with. Scraped and curated pairs extend this set.
var sampleQAPairs = []QAPair{
	{
		Question: "Какая продолжительность обучения в магистратуре?",
		Answer:   "Обучение в магистратуре по программам 'Искусственный интеллект' и 'AI-продукты' длится 2 года (4 семестра).",
		Category: "general",
		Keywords: []string{"продолжительность", "срок", "длительность", "2 года"},
	},
	{
		Question: "Какие требования для поступления?",
		Answer:   "Для поступления необходим диплом бакалавра или специалиста, прохождение вступительных испытаний по профилю программы. Рекомендуется наличие портфолио проектов.",
		Category: "admission",
		Keywords: []string{"поступление", "требования", "диплом", "бакалавр"},
	},
	{
		Question: "В чем разница между программами 'Искусственный интеллект' и 'AI-продукты'?",
		Answer:   "Программа 'Искусственный интеллект' фокусируется на фундаментальных аспектах ИИ, алгоритмах и исследованиях. Программа 'AI-продукты' направлена на создание коммерческих AI-решений и продуктов.",
		Category: "programs",
		Keywords: []string{"разница", "отличие", "программы", "AI-продукты"},
	},
	{
		Question: "Какие карьерные возможности после окончания?",
		Answer:   "Выпускники могут работать ML-инженерами, Data Scientists, AI-разработчиками, исследователями в области ИИ, продуктовыми менеджерами AI-продуктов.",
		Category: "career",
		Keywords: []string{"карьера", "работа", "трудоустройство", "ML-инженер", "Data Scientist"},
	},
}

// SeedSampleQA inserts the baseline QA pairs. Pairs already present
// (same question text) are skipped so reseeding stays safe.
func (db *DB) SeedSampleQA(ctx context.Context) (int, error) {
	inserted := 0
	for _, pair := range sampleQAPairs {
		var exists int
		err := db.conn.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM qa_pairs WHERE question = ?", pair.Question,
		).Scan(&exists)
		if err != nil {
			return inserted, fmt.Errorf("check existing qa pair: %w", err)
		}
		if exists > 0 {
			continue
		}

		seeded := pair
		if _, err := db.InsertQAPair(ctx, &seeded); err != nil {
			return inserted, err
		}
		inserted++
	}

	slog.InfoContext(ctx, "sample qa pairs seeded", "inserted", inserted)
	return inserted, nil
}
