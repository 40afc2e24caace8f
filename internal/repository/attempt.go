package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/windfall/speakcoach_service/internal/client"
	"github.com/windfall/speakcoach_service/internal/errors"
	"github.com/windfall/speakcoach_service/internal/stats"
)

// Attempt represents a row in attempts: one scored recording.
type Attempt struct {
	ID             uuid.UUID          `json:"id"`
	UserID         uuid.UUID          `json:"user_id"`
	ExerciseID     *uuid.UUID         `json:"exercise_id,omitempty"`
	Language       string             `json:"language"`
	ReferenceText  string             `json:"reference_text"`
	RecognizedText string             `json:"recognized_text"`
	Scores         stats.Scores       `json:"scores"`
	Words          []stats.WordResult `json:"words"`
	AudioURL       string             `json:"audio_url,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
}

// Sample converts the attempt for the stats package.
func (a Attempt) Sample() stats.Sample {
	return stats.Sample{At: a.CreatedAt, Scores: a.Scores}
}

// AttemptExportFilter narrows an attempt export. Zero values match everything.
type AttemptExportFilter struct {
	From     time.Time
	To       time.Time
	UserID   *uuid.UUID
	Language string
}

// LanguageAverage is the per-language slice of an overview.
type LanguageAverage struct {
	Language string       `json:"language"`
	Attempts int          `json:"attempts"`
	Averages stats.Scores `json:"averages"`
}

// AttemptOverview aggregates every attempt since a point in time.
type AttemptOverview struct {
	Since         time.Time         `json:"since"`
	TotalAttempts int               `json:"total_attempts"`
	DistinctUsers int               `json:"distinct_users"`
	Averages      stats.Scores      `json:"averages"`
	ByLanguage    []LanguageAverage `json:"by_language"`
}

// AttemptRepository defines the interface for attempt data access.
type AttemptRepository interface {
	Create(ctx context.Context, a *Attempt) error
	GetByID(ctx context.Context, userID, id uuid.UUID) (*Attempt, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]Attempt, error)
	ListSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]Attempt, error)
	Export(ctx context.Context, f AttemptExportFilter, fn func(Attempt) error) error
	Overview(ctx context.Context, since time.Time) (*AttemptOverview, error)
}

// PostgresAttemptRepository implements AttemptRepository with PostgreSQL.
type PostgresAttemptRepository struct {
	db *client.PostgresClient
}

// NewPostgresAttemptRepository creates a new PostgresAttemptRepository.
func NewPostgresAttemptRepository(db *client.PostgresClient) *PostgresAttemptRepository {
	return &PostgresAttemptRepository{db: db}
}

const attemptColumns = `id, user_id, exercise_id, language, reference_text, recognized_text,
	accuracy_score, fluency_score, completeness_score, prosody_score, pron_score,
	COALESCE(words, '[]'::jsonb), COALESCE(audio_url, ''), created_at`

func scanAttempt(row pgx.Row) (Attempt, error) {
	var (
		a     Attempt
		words []byte
	)
	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.ExerciseID,
		&a.Language,
		&a.ReferenceText,
		&a.RecognizedText,
		&a.Scores.Accuracy,
		&a.Scores.Fluency,
		&a.Scores.Completeness,
		&a.Scores.Prosody,
		&a.Scores.Pronunciation,
		&words,
		&a.AudioURL,
		&a.CreatedAt,
	)
	if err != nil {
		return a, err
	}
	if err := json.Unmarshal(words, &a.Words); err != nil {
		return a, fmt.Errorf("failed to decode words: %w", err)
	}
	return a, nil
}

func collectAttempts(rows pgx.Rows) ([]Attempt, error) {
	attempts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Attempt, error) {
		return scanAttempt(row)
	})
	if err != nil {
		return nil, errors.Database("failed to read attempts", err)
	}
	if attempts == nil {
		attempts = []Attempt{}
	}
	return attempts, nil
}

// Create inserts an attempt. A zero ID is generated here so the audio object
// key and the row share it.
func (r *PostgresAttemptRepository) Create(ctx context.Context, a *Attempt) error {
	if err := ready(r.db); err != nil {
		return err
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Words == nil {
		a.Words = []stats.WordResult{}
	}

	words, err := json.Marshal(a.Words)
	if err != nil {
		return errors.InternalWrap("failed to encode words", err)
	}

	var audioURL *string
	if a.AudioURL != "" {
		audioURL = &a.AudioURL
	}

	query := `
		INSERT INTO attempts (id, user_id, exercise_id, language, reference_text, recognized_text,
			accuracy_score, fluency_score, completeness_score, prosody_score, pron_score, words, audio_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at
	`

	err = r.db.Pool.QueryRow(ctx, query,
		a.ID,
		a.UserID,
		a.ExerciseID,
		a.Language,
		a.ReferenceText,
		a.RecognizedText,
		a.Scores.Accuracy,
		a.Scores.Fluency,
		a.Scores.Completeness,
		a.Scores.Prosody,
		a.Scores.Pronunciation,
		words,
		audioURL,
	).Scan(&a.CreatedAt)
	if err != nil {
		return errors.Database("failed to create attempt", err)
	}
	return nil
}

// GetByID retrieves one of the user's attempts. Other users' attempts are
// reported as not found.
func (r *PostgresAttemptRepository) GetByID(ctx context.Context, userID, id uuid.UUID) (*Attempt, error) {
	if err := ready(r.db); err != nil {
		return nil, err
	}

	query := `SELECT ` + attemptColumns + ` FROM attempts WHERE id = $1 AND user_id = $2`
	a, err := scanAttempt(r.db.Pool.QueryRow(ctx, query, id, userID))
	if err != nil {
		if isNoRows(err) {
			return nil, errors.NotFound("attempt")
		}
		return nil, errors.Database("failed to get attempt", err)
	}
	return &a, nil
}

// ListByUser returns the user's latest attempts, newest first.
func (r *PostgresAttemptRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]Attempt, error) {
	if err := ready(r.db); err != nil {
		return nil, err
	}

	query := `SELECT ` + attemptColumns + `
		FROM attempts
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`
	rows, err := r.db.Pool.Query(ctx, query, userID, clampLimit(limit))
	if err != nil {
		return nil, errors.Database("failed to query attempts", err)
	}
	return collectAttempts(rows)
}

// ListSince returns the user's attempts created at or after since, oldest first.
func (r *PostgresAttemptRepository) ListSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]Attempt, error) {
	if err := ready(r.db); err != nil {
		return nil, err
	}

	query := `SELECT ` + attemptColumns + `
		FROM attempts
		WHERE user_id = $1 AND created_at >= $2
		ORDER BY created_at, id`
	rows, err := r.db.Pool.Query(ctx, query, userID, since)
	if err != nil {
		return nil, errors.Database("failed to query attempts", err)
	}
	return collectAttempts(rows)
}

func buildExportQuery(f AttemptExportFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if !f.From.IsZero() {
		add("created_at >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("created_at < $%d", f.To)
	}
	if f.UserID != nil {
		add("user_id = $%d", *f.UserID)
	}
	if f.Language != "" {
		add("lower(language) = lower($%d)", f.Language)
	}

	query := `SELECT ` + attemptColumns + ` FROM attempts`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at, id"
	return query, args
}

// Export streams every matching attempt to fn, oldest first, without
// buffering the result set. An error from fn stops the export.
func (r *PostgresAttemptRepository) Export(ctx context.Context, f AttemptExportFilter, fn func(Attempt) error) error {
	if err := ready(r.db); err != nil {
		return err
	}

	query, args := buildExportQuery(f)
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return errors.Database("failed to query attempts", err)
	}
	defer rows.Close()

	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return errors.Database("failed to scan attempt", err)
		}
		if err := fn(a); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return errors.Database("failed to iterate attempts", err)
	}
	return nil
}

// Overview aggregates all attempts since the given time.
func (r *PostgresAttemptRepository) Overview(ctx context.Context, since time.Time) (*AttemptOverview, error) {
	if err := ready(r.db); err != nil {
		return nil, err
	}

	ov := &AttemptOverview{Since: since, ByLanguage: []LanguageAverage{}}

	totals := `
		SELECT COUNT(*), COUNT(DISTINCT user_id),
			COALESCE(AVG(accuracy_score), 0), COALESCE(AVG(fluency_score), 0),
			COALESCE(AVG(completeness_score), 0), COALESCE(AVG(prosody_score), 0),
			COALESCE(AVG(pron_score), 0)
		FROM attempts
		WHERE created_at >= $1
	`
	err := r.db.Pool.QueryRow(ctx, totals, since).Scan(
		&ov.TotalAttempts,
		&ov.DistinctUsers,
		&ov.Averages.Accuracy,
		&ov.Averages.Fluency,
		&ov.Averages.Completeness,
		&ov.Averages.Prosody,
		&ov.Averages.Pronunciation,
	)
	if err != nil {
		return nil, errors.Database("failed to aggregate attempts", err)
	}

	perLanguage := `
		SELECT language, COUNT(*),
			AVG(accuracy_score), AVG(fluency_score), AVG(completeness_score),
			AVG(prosody_score), AVG(pron_score)
		FROM attempts
		WHERE created_at >= $1
		GROUP BY language
		ORDER BY COUNT(*) DESC, language
	`
	rows, err := r.db.Pool.Query(ctx, perLanguage, since)
	if err != nil {
		return nil, errors.Database("failed to aggregate attempts by language", err)
	}
	defer rows.Close()

	for rows.Next() {
		var la LanguageAverage
		if err := rows.Scan(
			&la.Language,
			&la.Attempts,
			&la.Averages.Accuracy,
			&la.Averages.Fluency,
			&la.Averages.Completeness,
			&la.Averages.Prosody,
			&la.Averages.Pronunciation,
		); err != nil {
			return nil, errors.Database("failed to scan language aggregate", err)
		}
		ov.ByLanguage = append(ov.ByLanguage, la)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Database("failed to iterate language aggregates", err)
	}
	return ov, nil
}
