package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/windfall/speakcoach_service/internal/errors"
	"github.com/windfall/speakcoach_service/internal/prompt"
	"github.com/windfall/speakcoach_service/internal/repository"
)

const maxDisplayNameRunes = 100

// UpdateProfileRequest replaces the learner's profile.
type UpdateProfileRequest struct {
	DisplayName    string `json:"display_name"`
	NativeLanguage string `json:"native_language"`
	TargetLanguage string `json:"target_language"`
	CEFRLevel      string `json:"cefr_level"`
}

// ProfileService reads and writes learner profiles.
type ProfileService struct {
	repo repository.ProfileRepository
}

// NewProfileService creates a new ProfileService.
func NewProfileService(repo repository.ProfileRepository) *ProfileService {
	return &ProfileService{repo: repo}
}

func defaultProfile(userID uuid.UUID) *repository.Profile {
	return &repository.Profile{
		ID:             userID,
		TargetLanguage: prompt.DefaultLanguage,
		CEFRLevel:      string(prompt.DefaultLevel),
	}
}

// Get returns the stored profile, or defaults for a user who never saved one.
func (s *ProfileService) Get(ctx context.Context, userID uuid.UUID) (*repository.Profile, error) {
	p, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return defaultProfile(userID), nil
	}
	return p, nil
}

// Update validates and saves the profile.
func (s *ProfileService) Update(ctx context.Context, userID uuid.UUID, req UpdateProfileRequest) (*repository.Profile, error) {
	level, err := prompt.ParseLevel(req.CEFRLevel)
	if err != nil {
		return nil, errors.Validation(err.Error())
	}

	name := strings.TrimSpace(req.DisplayName)
	if utf8.RuneCountInString(name) > maxDisplayNameRunes {
		return nil, errors.Validation("display_name is too long")
	}

	target := strings.TrimSpace(req.TargetLanguage)
	if target == "" {
		target = prompt.DefaultLanguage
	}

	p := &repository.Profile{
		ID:             userID,
		DisplayName:    name,
		NativeLanguage: strings.TrimSpace(req.NativeLanguage),
		TargetLanguage: target,
		CEFRLevel:      string(level),
	}
	if err := s.repo.Upsert(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}
