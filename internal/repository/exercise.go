package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/windfall/speakcoach_service/internal/client"
	"github.com/windfall/speakcoach_service/internal/errors"
)

// Exercise is a reference sentence a learner can practise.
type Exercise struct {
	ID        uuid.UUID `json:"id"`
	Text      string    `json:"text"`
	Language  string    `json:"language"`
	CEFRLevel string    `json:"cefr_level"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"created_at"`
}

// ExerciseFilter narrows an exercise listing. Empty fields match everything.
type ExerciseFilter struct {
	Language string
	Level    string
	Category string
	Limit    int
	Offset   int
}

// ExerciseRepository defines the interface for exercise data access.
type ExerciseRepository interface {
	List(ctx context.Context, f ExerciseFilter) ([]Exercise, int, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Exercise, error)
	Create(ctx context.Context, e *Exercise) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// PostgresExerciseRepository implements ExerciseRepository with PostgreSQL.
type PostgresExerciseRepository struct {
	db *client.PostgresClient
}

// NewPostgresExerciseRepository creates a new PostgresExerciseRepository.
func NewPostgresExerciseRepository(db *client.PostgresClient) *PostgresExerciseRepository {
	return &PostgresExerciseRepository{db: db}
}

// buildExerciseListQuery renders the filtered listing. COUNT(*) OVER() carries
// the unpaginated total on every row.
func buildExerciseListQuery(f ExerciseFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if f.Language != "" {
		add("lower(language) = lower($%d)", f.Language)
	}
	if f.Level != "" {
		add("cefr_level = $%d", strings.ToUpper(f.Level))
	}
	if f.Category != "" {
		add("category = $%d", f.Category)
	}

	var b strings.Builder
	b.WriteString("SELECT id, text, language, cefr_level, category, created_at, COUNT(*) OVER() AS total FROM exercises")
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}

	args = append(args, clampLimit(f.Limit), max(f.Offset, 0))
	fmt.Fprintf(&b, " ORDER BY cefr_level, created_at, id LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	return b.String(), args
}

// List returns one page of exercises and the total number matching f.
func (r *PostgresExerciseRepository) List(ctx context.Context, f ExerciseFilter) ([]Exercise, int, error) {
	if err := ready(r.db); err != nil {
		return nil, 0, err
	}

	query, args := buildExerciseListQuery(f)
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.Database("failed to query exercises", err)
	}
	defer rows.Close()

	exercises := make([]Exercise, 0)
	total := 0
	for rows.Next() {
		var e Exercise
		if err := rows.Scan(&e.ID, &e.Text, &e.Language, &e.CEFRLevel, &e.Category, &e.CreatedAt, &total); err != nil {
			return nil, 0, errors.Database("failed to scan exercise", err)
		}
		exercises = append(exercises, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.Database("failed to iterate exercises", err)
	}

	// Past the last page the window count is gone; fall back to a plain count.
	if len(exercises) == 0 && f.Offset > 0 {
		countQuery, countArgs := buildExerciseCountQuery(f)
		if err := r.db.Pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
			return nil, 0, errors.Database("failed to count exercises", err)
		}
	}
	return exercises, total, nil
}

func buildExerciseCountQuery(f ExerciseFilter) (string, []any) {
	query, args := buildExerciseListQuery(f)
	from := strings.Index(query, " FROM exercises")
	order := strings.Index(query, " ORDER BY")
	return "SELECT COUNT(*)" + query[from:order], args[:len(args)-2]
}

// GetByID retrieves an exercise.
func (r *PostgresExerciseRepository) GetByID(ctx context.Context, id uuid.UUID) (*Exercise, error) {
	if err := ready(r.db); err != nil {
		return nil, err
	}

	query := `
		SELECT id, text, language, cefr_level, category, created_at
		FROM exercises
		WHERE id = $1
	`

	var e Exercise
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(&e.ID, &e.Text, &e.Language, &e.CEFRLevel, &e.Category, &e.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, errors.NotFound("exercise")
		}
		return nil, errors.Database("failed to get exercise", err)
	}
	return &e, nil
}

// Create inserts an exercise and fills in its id and created_at.
func (r *PostgresExerciseRepository) Create(ctx context.Context, e *Exercise) error {
	if err := ready(r.db); err != nil {
		return err
	}

	query := `
		INSERT INTO exercises (text, language, cefr_level, category)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	if err := r.db.Pool.QueryRow(ctx, query, e.Text, e.Language, e.CEFRLevel, e.Category).Scan(&e.ID, &e.CreatedAt); err != nil {
		return errors.Database("failed to create exercise", err)
	}
	return nil
}

// Delete removes an exercise. Attempts keep their copy of the reference text.
func (r *PostgresExerciseRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ready(r.db); err != nil {
		return err
	}

	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM exercises WHERE id = $1`, id)
	if err != nil {
		return errors.Database("failed to delete exercise", err)
	}
	if tag.RowsAffected() == 0 {
		return errors.NotFound("exercise")
	}
	return nil
}
