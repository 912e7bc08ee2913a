package kb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	domerrors "github.com/abitlab/itmo-advisor-go/internal/errors"
)

// UpsertUser registers a user's identity, creating the row on first
// contact and refreshing the name fields afterwards. Profile fields
// survive the upsert.
func (db *DB) UpsertUser(ctx context.Context, telegramID int64, username, firstName string) error {
	query := `
		INSERT INTO users (telegram_id, username, first_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(telegram_id) DO UPDATE SET
			username = excluded.username,
			first_name = excluded.first_name,
			updated_at = excluded.updated_at
	`

	now := time.Now().Unix()
	if _, err := db.conn.ExecContext(ctx, query, telegramID, username, firstName, now, now); err != nil {
		slog.ErrorContext(ctx, "failed to upsert user",
			"telegram_id", telegramID,
			"error", err)
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// SaveProfile stores the analyzed profile fields for a user. Only the
// fields present in the profile overwrite stored values; empty analysis
// results keep whatever an earlier analysis produced.
func (db *DB) SaveProfile(ctx context.Context, profile *UserProfile) error {
	if err := db.UpsertUser(ctx, profile.TelegramID, profile.Username, profile.FirstName); err != nil {
		return err
	}

	sets := make([]string, 0, 4)
	args := make([]any, 0, 5)

	if profile.ExperienceLevel != "" {
		sets = append(sets, "experience_level = ?")
		args = append(args, profile.ExperienceLevel)
	}
	if len(profile.TechnicalSkills) > 0 {
		sets = append(sets, "technical_skills = ?")
		args = append(args, marshalStrings(profile.TechnicalSkills))
	}
	if len(profile.Interests) > 0 {
		encoded, err := json.Marshal(profile.Interests)
		if err != nil {
			return fmt.Errorf("encode interests: %w", err)
		}
		sets = append(sets, "interests = ?")
		args = append(args, string(encoded))
	}
	if profile.PreferredProgram != "" {
		sets = append(sets, "preferred_program = ?")
		args = append(args, profile.PreferredProgram)
	}

	if len(sets) == 0 {
		return nil
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().Unix(), profile.TelegramID)

	query := "UPDATE users SET " + strings.Join(sets, ", ") + " WHERE telegram_id = ?"

	if _, err := db.conn.ExecContext(ctx, query, args...); err != nil {
		slog.ErrorContext(ctx, "failed to save profile",
			"telegram_id", profile.TelegramID,
			"error", err)
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// GetUserByTelegramID returns a stored profile.
// Returns ErrNotFound when the user has never been seen.
func (db *DB) GetUserByTelegramID(ctx context.Context, telegramID int64) (*UserProfile, error) {
	query := `
		SELECT telegram_id, username, first_name, experience_level,
			technical_skills, interests, preferred_program, created_at, updated_at
		FROM users
		WHERE telegram_id = ?
	`

	var profile UserProfile
	var username, firstName, experience, skills, interests, preferred sql.NullString

	err := db.conn.QueryRowContext(ctx, query, telegramID).Scan(
		&profile.TelegramID,
		&username,
		&firstName,
		&experience,
		&skills,
		&interests,
		&preferred,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domerrors.ErrNotFound
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to query user",
			"telegram_id", telegramID,
			"error", err)
		return nil, fmt.Errorf("query user: %w", err)
	}

	profile.Username = username.String
	profile.FirstName = firstName.String
	profile.ExperienceLevel = experience.String
	profile.TechnicalSkills = unmarshalStrings(skills.String)
	profile.PreferredProgram = preferred.String

	if interests.String != "" {
		if err := json.Unmarshal([]byte(interests.String), &profile.Interests); err != nil {
			// Malformed profile data should not make the user unreachable.
			profile.Interests = nil
		}
	}

	return &profile, nil
}

// SaveRecommendations stores a freshly computed ranking for a user,
// replacing any earlier one. Recommendations are derived data and can
// be recomputed at any time.
func (db *DB) SaveRecommendations(ctx context.Context, telegramID int64, recommendations []Recommendation) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM recommendations WHERE telegram_id = ?", telegramID); err != nil {
		return fmt.Errorf("delete old recommendations: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO recommendations (id, telegram_id, course_id, score, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	createdAt := time.Now().Unix()
	for _, rec := range recommendations {
		id := rec.ID
		if id == "" {
			id = uuid.NewString()
		}
		if _, err := stmt.ExecContext(ctx, id, telegramID, rec.CourseID, rec.Score, rec.Reason, createdAt); err != nil {
			slog.ErrorContext(ctx, "failed to save recommendation",
				"telegram_id", telegramID,
				"course_id", rec.CourseID,
				"error", err)
			return fmt.Errorf("save recommendation: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetRecommendations returns the stored ranking for a user, best first.
func (db *DB) GetRecommendations(ctx context.Context, telegramID int64) ([]Recommendation, error) {
	query := `
		SELECT id, telegram_id, course_id, score, reason, created_at
		FROM recommendations
		WHERE telegram_id = ?
		ORDER BY score DESC, id
	`

	rows, err := db.conn.QueryContext(ctx, query, telegramID)
	if err != nil {
		return nil, fmt.Errorf("query recommendations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var recommendations []Recommendation
	for rows.Next() {
		var rec Recommendation
		var reason sql.NullString
		if err := rows.Scan(&rec.ID, &rec.TelegramID, &rec.CourseID, &rec.Score, &reason, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan recommendation: %w", err)
		}
		rec.Reason = reason.String
		recommendations = append(recommendations, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recommendations: %w", err)
	}

	return recommendations, nil
}
