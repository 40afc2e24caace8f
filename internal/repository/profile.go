package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/windfall/speakcoach_service/internal/client"
	"github.com/windfall/speakcoach_service/internal/errors"
)

// Profile represents a row in profiles. ID is the auth user id.
type Profile struct {
	ID             uuid.UUID `json:"id"`
	DisplayName    string    `json:"display_name"`
	NativeLanguage string    `json:"native_language"`
	TargetLanguage string    `json:"target_language"`
	CEFRLevel      string    `json:"cefr_level"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ProfileRepository defines the interface for profile data access.
type ProfileRepository interface {
	Get(ctx context.Context, userID uuid.UUID) (*Profile, error)
	Upsert(ctx context.Context, p *Profile) error
}

// PostgresProfileRepository implements ProfileRepository with PostgreSQL.
type PostgresProfileRepository struct {
	db *client.PostgresClient
}

// NewPostgresProfileRepository creates a new PostgresProfileRepository.
func NewPostgresProfileRepository(db *client.PostgresClient) *PostgresProfileRepository {
	return &PostgresProfileRepository{db: db}
}

// Get returns the user's profile, or nil when they have not saved one yet.
func (r *PostgresProfileRepository) Get(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	if err := ready(r.db); err != nil {
		return nil, err
	}

	query := `
		SELECT id, display_name, native_language, target_language, cefr_level, created_at, updated_at
		FROM profiles
		WHERE id = $1
	`

	var p Profile
	err := r.db.Pool.QueryRow(ctx, query, userID).Scan(
		&p.ID,
		&p.DisplayName,
		&p.NativeLanguage,
		&p.TargetLanguage,
		&p.CEFRLevel,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, errors.Database("failed to get profile", err)
	}
	return &p, nil
}

// Upsert inserts or replaces the profile and refreshes its timestamps.
func (r *PostgresProfileRepository) Upsert(ctx context.Context, p *Profile) error {
	if err := ready(r.db); err != nil {
		return err
	}

	query := `
		INSERT INTO profiles (id, display_name, native_language, target_language, cefr_level)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			native_language = EXCLUDED.native_language,
			target_language = EXCLUDED.target_language,
			cefr_level = EXCLUDED.cefr_level,
			updated_at = NOW()
		RETURNING created_at, updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		p.ID,
		p.DisplayName,
		p.NativeLanguage,
		p.TargetLanguage,
		p.CEFRLevel,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return errors.Database("failed to upsert profile", err)
	}
	return nil
}
