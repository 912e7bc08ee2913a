package kb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/abitlab/itmo-advisor-go/internal/config"
	domerrors "github.com/abitlab/itmo-advisor-go/internal/errors"
)

// SavePrograms replaces the whole program catalog, courses included,
// in a single transaction. Called after a scrape or a seed import so a
// failed refresh never leaves the catalog half-replaced.
func (db *DB) SavePrograms(ctx context.Context, programs []Program) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	start := time.Now()
	createdAt := time.Now().Unix()

	programStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO programs (key, name, description, duration, admission_requirements, career_prospects, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			key = excluded.key,
			description = excluded.description,
			duration = excluded.duration,
			admission_requirements = excluded.admission_requirements,
			career_prospects = excluded.career_prospects
	`)
	if err != nil {
		return fmt.Errorf("prepare program statement: %w", err)
	}
	defer func() { _ = programStmt.Close() }()

	courseStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO courses (program_id, name, description, credits, semester, is_mandatory, tags, prerequisites, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare course statement: %w", err)
	}
	defer func() { _ = courseStmt.Close() }()

	for _, program := range programs {
		if _, err := programStmt.ExecContext(ctx,
			program.Key,
			program.Name,
			program.Description,
			program.Duration,
			marshalStrings(program.AdmissionRequirements),
			marshalStrings(program.CareerProspects),
			createdAt,
		); err != nil {
			slog.ErrorContext(ctx, "failed to save program",
				"program", program.Name,
				"error", err)
			return fmt.Errorf("save program %q: %w", program.Name, err)
		}

		var programID int64
		if err := tx.QueryRowContext(ctx, "SELECT id FROM programs WHERE name = ?", program.Name).Scan(&programID); err != nil {
			return fmt.Errorf("resolve program id for %q: %w", program.Name, err)
		}

		// Courses have no natural key, so a refresh replaces them wholesale.
		if _, err := tx.ExecContext(ctx, "DELETE FROM courses WHERE program_id = ?", programID); err != nil {
			return fmt.Errorf("delete old courses for %q: %w", program.Name, err)
		}

		for _, course := range program.Courses {
			if _, err := courseStmt.ExecContext(ctx,
				programID,
				course.Name,
				course.Description,
				course.Credits,
				course.Semester,
				course.IsMandatory,
				marshalStrings(course.Tags),
				marshalStrings(course.Prerequisites),
				createdAt,
			); err != nil {
				slog.ErrorContext(ctx, "failed to save course",
					"program", program.Name,
					"course", course.Name,
					"error", err)
				return fmt.Errorf("save course %q: %w", course.Name, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	if duration := time.Since(start); duration > config.SlowQueryThreshold {
		slog.WarnContext(ctx, "slow database operation",
			"operation", "SavePrograms",
			"duration_ms", duration.Milliseconds(),
			"programs", len(programs))
	}
	return nil
}

// GetAllPrograms returns all programs ordered by id, without courses.
func (db *DB) GetAllPrograms(ctx context.Context) ([]Program, error) {
	query := `
		SELECT id, key, name, description, duration, admission_requirements, career_prospects, created_at
		FROM programs
		ORDER BY id
	`

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query programs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var programs []Program
	for rows.Next() {
		program, err := scanProgram(rows)
		if err != nil {
			return nil, err
		}
		programs = append(programs, program)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate programs: %w", err)
	}

	return programs, nil
}

// GetProgramByName returns a single program by exact name.
// Returns ErrNotFound when no such program exists.
func (db *DB) GetProgramByName(ctx context.Context, name string) (*Program, error) {
	query := `
		SELECT id, key, name, description, duration, admission_requirements, career_prospects, created_at
		FROM programs
		WHERE name = ?
	`

	row := db.conn.QueryRowContext(ctx, query, name)
	program, err := scanProgram(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domerrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &program, nil
}

// GetProgramByKey returns a single program by its stable key.
// Returns ErrNotFound when no such program exists.
func (db *DB) GetProgramByKey(ctx context.Context, key string) (*Program, error) {
	query := `
		SELECT id, key, name, description, duration, admission_requirements, career_prospects, created_at
		FROM programs
		WHERE key = ?
	`

	row := db.conn.QueryRowContext(ctx, query, key)
	program, err := scanProgram(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domerrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &program, nil
}

// GetAllCourses returns every course joined with its program name,
// ordered by id so rankings stay stable across calls.
func (db *DB) GetAllCourses(ctx context.Context) ([]Course, error) {
	query := `
		SELECT c.id, c.program_id, p.key, p.name, c.name, c.description, c.credits,
			c.semester, c.is_mandatory, c.tags, c.prerequisites, c.created_at
		FROM courses c
		LEFT JOIN programs p ON c.program_id = p.id
		ORDER BY c.id
	`

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		slog.ErrorContext(ctx, "failed to query courses", "error", err)
		return nil, fmt.Errorf("query courses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	courses, err := collectCourses(rows)
	if err != nil {
		return nil, err
	}

	if duration := time.Since(start); duration > config.SlowQueryThreshold {
		slog.WarnContext(ctx, "slow database query",
			"operation", "GetAllCourses",
			"duration_ms", duration.Milliseconds(),
			"count", len(courses))
	}
	return courses, nil
}

// GetCoursesByProgram returns the courses of one program ordered by id.
func (db *DB) GetCoursesByProgram(ctx context.Context, programID int64) ([]Course, error) {
	query := `
		SELECT c.id, c.program_id, p.key, p.name, c.name, c.description, c.credits,
			c.semester, c.is_mandatory, c.tags, c.prerequisites, c.created_at
		FROM courses c
		LEFT JOIN programs p ON c.program_id = p.id
		WHERE c.program_id = ?
		ORDER BY c.id
	`

	rows, err := db.conn.QueryContext(ctx, query, programID)
	if err != nil {
		return nil, fmt.Errorf("query program courses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectCourses(rows)
}

// SearchCoursesByTag returns courses whose tag list contains the exact
// tag value.
func (db *DB) SearchCoursesByTag(ctx context.Context, tag string) ([]Course, error) {
	// Tags are stored as a JSON array, so an exact element match is a
	// quoted substring match.
	query := `
		SELECT c.id, c.program_id, p.key, p.name, c.name, c.description, c.credits,
			c.semester, c.is_mandatory, c.tags, c.prerequisites, c.created_at
		FROM courses c
		LEFT JOIN programs p ON c.program_id = p.id
		WHERE c.tags LIKE ?
		ORDER BY c.id
	`

	rows, err := db.conn.QueryContext(ctx, query, `%"`+tag+`"%`)
	if err != nil {
		return nil, fmt.Errorf("search courses by tag: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectCourses(rows)
}

// CountCourses returns the number of stored courses.
func (db *DB) CountCourses(ctx context.Context) (int, error) {
	var count int
	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM courses").Scan(&count); err != nil {
		return 0, fmt.Errorf("count courses: %w", err)
	}
	return count, nil
}

// InsertQAPair stores a new reference question and returns its id.
func (db *DB) InsertQAPair(ctx context.Context, pair *QAPair) (int64, error) {
	query := `
		INSERT INTO qa_pairs (question, answer, category, program_id, keywords, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	var programID any
	if pair.ProgramID != 0 {
		programID = pair.ProgramID
	}

	result, err := db.conn.ExecContext(ctx, query,
		pair.Question,
		pair.Answer,
		pair.Category,
		programID,
		marshalStrings(pair.Keywords),
		time.Now().Unix(),
	)
	if err != nil {
		slog.ErrorContext(ctx, "failed to insert qa pair",
			"category", pair.Category,
			"error", err)
		return 0, fmt.Errorf("insert qa pair: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("qa pair insert id: %w", err)
	}
	return id, nil
}

// GetAllQAPairs returns every reference question ordered by id.
// The order defines corpus insertion order, which the similarity index
// uses to break ties, so it must stay deterministic.
func (db *DB) GetAllQAPairs(ctx context.Context) ([]QAPair, error) {
	query := `
		SELECT id, question, answer, category, program_id, keywords, created_at
		FROM qa_pairs
		ORDER BY id
	`

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		slog.ErrorContext(ctx, "failed to query qa pairs", "error", err)
		return nil, fmt.Errorf("query qa pairs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var pairs []QAPair
	for rows.Next() {
		var pair QAPair
		var category sql.NullString
		var programID sql.NullInt64
		var keywords sql.NullString

		if err := rows.Scan(
			&pair.ID,
			&pair.Question,
			&pair.Answer,
			&category,
			&programID,
			&keywords,
			&pair.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan qa pair: %w", err)
		}

		pair.Category = category.String
		pair.ProgramID = programID.Int64
		pair.Keywords = unmarshalStrings(keywords.String)
		pairs = append(pairs, pair)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate qa pairs: %w", err)
	}

	if duration := time.Since(start); duration > config.SlowQueryThreshold {
		slog.WarnContext(ctx, "slow database query",
			"operation", "GetAllQAPairs",
			"duration_ms", duration.Milliseconds(),
			"count", len(pairs))
	}
	return pairs, nil
}

// CountQAPairs returns the number of stored reference questions.
func (db *DB) CountQAPairs(ctx context.Context) (int, error) {
	var count int
	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM qa_pairs").Scan(&count); err != nil {
		return 0, fmt.Errorf("count qa pairs: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProgram(row rowScanner) (Program, error) {
	var program Program
	var key, description, duration, requirements, prospects sql.NullString

	if err := row.Scan(
		&program.ID,
		&key,
		&program.Name,
		&description,
		&duration,
		&requirements,
		&prospects,
		&program.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Program{}, err
		}
		return Program{}, fmt.Errorf("scan program: %w", err)
	}

	program.Key = key.String
	program.Description = description.String
	program.Duration = duration.String
	program.AdmissionRequirements = unmarshalStrings(requirements.String)
	program.CareerProspects = unmarshalStrings(prospects.String)
	return program, nil
}

func collectCourses(rows *sql.Rows) ([]Course, error) {
	var courses []Course
	for rows.Next() {
		var course Course
		var programKey, programName, description, semester, tags, prerequisites sql.NullString

		if err := rows.Scan(
			&course.ID,
			&course.ProgramID,
			&programKey,
			&programName,
			&course.Name,
			&description,
			&course.Credits,
			&semester,
			&course.IsMandatory,
			&tags,
			&prerequisites,
			&course.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan course: %w", err)
		}

		course.ProgramKey = programKey.String
		course.ProgramName = programName.String
		course.Description = description.String
		course.Semester = semester.String
		course.Tags = unmarshalStrings(tags.String)
		course.Prerequisites = unmarshalStrings(prerequisites.String)
		courses = append(courses, course)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate courses: %w", err)
	}

	return courses, nil
}

// marshalStrings encodes a string slice as a JSON array column value.
// nil and empty slices both encode as "[]" so absence stays unambiguous.
func marshalStrings(values []string) string {
	if len(values) == 0 {
		return "[]"
	}
	encoded, err := json.Marshal(values)
	if err != nil {
		return "[]"
	}
	return string(encoded)
}

// unmarshalStrings decodes a JSON array column value, tolerating empty
// and malformed content.
func unmarshalStrings(value string) []string {
	if value == "" || value == "[]" || value == "null" {
		return nil
	}
	var values []string
	if err := json.Unmarshal([]byte(value), &values); err != nil {
		return nil
	}
	return values
}
