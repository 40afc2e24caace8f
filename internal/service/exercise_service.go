package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/windfall/speakcoach_service/internal/errors"
	"github.com/windfall/speakcoach_service/internal/prompt"
	"github.com/windfall/speakcoach_service/internal/repository"
)

const defaultCategory = "general"

// CreateExerciseRequest is an admin-authored practice sentence.
type CreateExerciseRequest struct {
	Text      string `json:"text"`
	Language  string `json:"language"`
	CEFRLevel string `json:"cefr_level"`
	Category  string `json:"category"`
}

// ExercisePage is one page of a filtered listing.
type ExercisePage struct {
	Items  []repository.Exercise
	Total  int
	Limit  int
	Offset int
}

// ExerciseService manages the exercise catalog.
type ExerciseService struct {
	repo repository.ExerciseRepository
	log  zerolog.Logger
}

// NewExerciseService creates a new ExerciseService.
func NewExerciseService(repo repository.ExerciseRepository, log zerolog.Logger) *ExerciseService {
	return &ExerciseService{repo: repo, log: log}
}

// List returns a page of exercises matching f.
func (s *ExerciseService) List(ctx context.Context, f repository.ExerciseFilter) (*ExercisePage, error) {
	if f.Level != "" {
		level, err := prompt.ParseLevel(f.Level)
		if err != nil {
			return nil, errors.Validation(err.Error())
		}
		f.Level = string(level)
	}

	if f.Limit <= 0 {
		f.Limit = repository.DefaultLimit
	}
	f.Limit = min(f.Limit, repository.MaxLimit)
	f.Offset = max(f.Offset, 0)

	items, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return &ExercisePage{Items: items, Total: total, Limit: f.Limit, Offset: f.Offset}, nil
}

// Get returns one exercise.
func (s *ExerciseService) Get(ctx context.Context, id uuid.UUID) (*repository.Exercise, error) {
	return s.repo.GetByID(ctx, id)
}

// Create validates and stores a new exercise.
func (s *ExerciseService) Create(ctx context.Context, req CreateExerciseRequest) (*repository.Exercise, error) {
	text, err := requireText("text", req.Text, maxReferenceRunes)
	if err != nil {
		return nil, err
	}

	language := strings.TrimSpace(req.Language)
	if language == "" {
		return nil, errors.Validation("language is required")
	}

	level, err := prompt.ParseLevel(req.CEFRLevel)
	if err != nil {
		return nil, errors.Validation(err.Error())
	}

	category := strings.ToLower(strings.TrimSpace(req.Category))
	if category == "" {
		category = defaultCategory
	}

	ex := &repository.Exercise{
		Text:      text,
		Language:  language,
		CEFRLevel: string(level),
		Category:  category,
	}
	if err := s.repo.Create(ctx, ex); err != nil {
		return nil, err
	}

	s.log.Info().Str("exercise_id", ex.ID.String()).Str("language", language).Msg("Exercise created")
	return ex, nil
}

// Delete removes an exercise.
func (s *ExerciseService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("exercise_id", id.String()).Msg("Exercise deleted")
	return nil
}
