package kb

import (
	"context"
	"database/sql"
	"fmt"
)

// InitSchema creates all necessary tables and indexes.
// Note: WAL mode is configured in db.go.
func InitSchema(db *sql.DB) error {
	if err := createProgramsTable(db); err != nil {
		return err
	}

	if err := createCoursesTable(db); err != nil {
		return err
	}

	if err := createQAPairsTable(db); err != nil {
		return err
	}

	if err := createUsersTable(db); err != nil {
		return err
	}

	return createRecommendationsTable(db)
}

func createProgramsTable(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS programs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		key TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL UNIQUE,
		description TEXT,
		duration TEXT,
		admission_requirements TEXT,
		career_prospects TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_programs_name ON programs(name);
	CREATE INDEX IF NOT EXISTS idx_programs_key ON programs(key);
	`

	if _, err := db.ExecContext(context.Background(), query); err != nil {
		return fmt.Errorf("failed to create programs table: %w", err)
	}

	return nil
}

func createCoursesTable(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS courses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		program_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		description TEXT,
		credits INTEGER NOT NULL DEFAULT 3,
		semester TEXT,
		is_mandatory INTEGER NOT NULL DEFAULT 1,
		tags TEXT,
		prerequisites TEXT,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (program_id) REFERENCES programs(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_courses_program ON courses(program_id);
	CREATE INDEX IF NOT EXISTS idx_courses_name ON courses(name);
	`

	if _, err := db.ExecContext(context.Background(), query); err != nil {
		return fmt.Errorf("failed to create courses table: %w", err)
	}

	return nil
}

func createQAPairsTable(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS qa_pairs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		question TEXT NOT NULL,
		answer TEXT NOT NULL,
		category TEXT,
		program_id INTEGER,
		keywords TEXT,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (program_id) REFERENCES programs(id)
	);
	CREATE INDEX IF NOT EXISTS idx_qa_pairs_category ON qa_pairs(category);
	`

	if _, err := db.ExecContext(context.Background(), query); err != nil {
		return fmt.Errorf("failed to create qa_pairs table: %w", err)
	}

	return nil
}

func createUsersTable(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		telegram_id INTEGER PRIMARY KEY,
		username TEXT,
		first_name TEXT,
		experience_level TEXT,
		technical_skills TEXT,
		interests TEXT,
		preferred_program TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`

	if _, err := db.ExecContext(context.Background(), query); err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}

	return nil
}

func createRecommendationsTable(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS recommendations (
		id TEXT PRIMARY KEY,
		telegram_id INTEGER NOT NULL,
		course_id INTEGER NOT NULL,
		score REAL NOT NULL,
		reason TEXT,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (telegram_id) REFERENCES users(telegram_id),
		FOREIGN KEY (course_id) REFERENCES courses(id)
	);
	CREATE INDEX IF NOT EXISTS idx_recommendations_user ON recommendations(telegram_id);
	CREATE INDEX IF NOT EXISTS idx_recommendations_created_at ON recommendations(created_at);
	`

	if _, err := db.ExecContext(context.Background(), query); err != nil {
		return fmt.Errorf("failed to create recommendations table: %w", err)
	}

	return nil
}
