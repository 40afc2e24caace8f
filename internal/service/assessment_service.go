package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/windfall/speakcoach_service/internal/client"
	"github.com/windfall/speakcoach_service/internal/errors"
	"github.com/windfall/speakcoach_service/internal/observe"
	"github.com/windfall/speakcoach_service/internal/prompt"
	"github.com/windfall/speakcoach_service/internal/repository"
	"github.com/windfall/speakcoach_service/internal/stats"
)

const maxReferenceRunes = 500

// AssessRequest is one recording to score.
type AssessRequest struct {
	Audio         []byte
	ContentType   string
	ReferenceText string
	Language      string
	ExerciseID    *uuid.UUID
}

// Feedback is the coach's explanation of an attempt.
type Feedback struct {
	Summary    string   `json:"summary"`
	Tips       []string `json:"tips"`
	FocusWords []string `json:"focus_words"`
}

// AssessmentService scores recordings and keeps the history of attempts.
type AssessmentService struct {
	assessor      Assessor
	store         ObjectStore
	attempts      repository.AttemptRepository
	exercises     repository.ExerciseRepository
	llm           Completer
	metrics       *observe.Metrics
	maxAudioBytes int64
	language      string
	log           zerolog.Logger
}

// NewAssessmentService creates a new AssessmentService. store may be nil, in
// which case recordings are not kept.
func NewAssessmentService(
	assessor Assessor,
	store ObjectStore,
	attempts repository.AttemptRepository,
	exercises repository.ExerciseRepository,
	llm Completer,
	metrics *observe.Metrics,
	maxAudioBytes int64,
	log zerolog.Logger,
) *AssessmentService {
	return &AssessmentService{
		assessor:      assessor,
		store:         store,
		attempts:      attempts,
		exercises:     exercises,
		llm:           llm,
		metrics:       metrics,
		maxAudioBytes: maxAudioBytes,
		language:      prompt.DefaultLanguage,
		log:           log,
	}
}

// WithDefaultLanguage sets the language assumed when a request and its
// exercise name none.
func (s *AssessmentService) WithDefaultLanguage(language string) *AssessmentService {
	if language != "" {
		s.language = language
	}
	return s
}

// Assess scores the recording, stores the attempt and returns it.
func (s *AssessmentService) Assess(ctx context.Context, userID uuid.UUID, req AssessRequest) (*repository.Attempt, error) {
	if s.assessor == nil {
		return nil, errors.New(errors.ErrAIService, "Azure Speech client not configured")
	}
	if len(req.Audio) == 0 {
		return nil, errors.Validation("audio is required")
	}
	if s.maxAudioBytes > 0 && int64(len(req.Audio)) > s.maxAudioBytes {
		return nil, errors.TooLarge(s.maxAudioBytes)
	}

	reference := strings.TrimSpace(req.ReferenceText)
	language := strings.TrimSpace(req.Language)

	if req.ExerciseID != nil {
		exercise, err := s.exercises.GetByID(ctx, *req.ExerciseID)
		if err != nil {
			return nil, err
		}
		if reference == "" {
			reference = exercise.Text
		}
		if language == "" {
			language = exercise.Language
		}
	}
	if language == "" {
		language = s.language
	}

	reference, err := requireText("reference_text", reference, maxReferenceRunes)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := s.assessor.Assess(ctx, req.Audio, client.AssessOptions{
		ReferenceText: reference,
		Language:      language,
	})
	s.metrics.RecordProvider(ctx, "azure_speech", "assess", start, err)
	if err != nil {
		return nil, err
	}

	best := result.Best()
	if best == nil {
		return nil, errors.NoSpeech(result.RecognitionStatus)
	}
	attempt := &repository.Attempt{
		ID:             uuid.New(),
		UserID:         userID,
		ExerciseID:     req.ExerciseID,
		Language:       language,
		ReferenceText:  reference,
		RecognizedText: best.Display,
		Scores: stats.Scores{
			Accuracy:      best.AccuracyScore,
			Fluency:       best.FluencyScore,
			Completeness:  best.CompletenessScore,
			Prosody:       best.ProsodyScore,
			Pronunciation: best.PronScore,
		},
		Words: toWordResults(best.Words),
	}
	if attempt.RecognizedText == "" {
		attempt.RecognizedText = result.DisplayText
	}

	if s.store != nil {
		key := fmt.Sprintf("attempts/%s/%s%s", userID, attempt.ID, audioExtension(req.ContentType))
		url, err := s.store.UploadR2Object(ctx, key, req.Audio, contentTypeOr(req.ContentType))
		if err != nil {
			s.log.Warn().Err(err).Str("attempt_id", attempt.ID.String()).Msg("Failed to upload attempt audio")
		} else {
			attempt.AudioURL = url
		}
	}

	if err := s.attempts.Create(ctx, attempt); err != nil {
		return nil, err
	}
	s.metrics.RecordAssessment(ctx, language)

	s.log.Info().
		Str("attempt_id", attempt.ID.String()).
		Str("user_id", userID.String()).
		Str("language", language).
		Float64("pron_score", attempt.Scores.Pronunciation).
		Msg("Assessment stored")

	return attempt, nil
}

// Get returns one of the user's attempts.
func (s *AssessmentService) Get(ctx context.Context, userID, id uuid.UUID) (*repository.Attempt, error) {
	return s.attempts.GetByID(ctx, userID, id)
}

// List returns the user's latest attempts, newest first.
func (s *AssessmentService) List(ctx context.Context, userID uuid.UUID, limit int) ([]repository.Attempt, error) {
	return s.attempts.ListByUser(ctx, userID, limit)
}

// Feedback asks the LLM to explain an attempt.
func (s *AssessmentService) Feedback(ctx context.Context, userID, attemptID uuid.UUID) (*Feedback, error) {
	attempt, err := s.attempts.GetByID(ctx, userID, attemptID)
	if err != nil {
		return nil, err
	}

	words := make([]prompt.WordScore, 0, len(attempt.Words))
	for _, w := range attempt.Words {
		words = append(words, prompt.WordScore{Word: w.Word, Accuracy: w.Accuracy, ErrorType: w.ErrorType})
	}

	system, user := prompt.BuildFeedbackPrompt(prompt.FeedbackInput{
		Language:       attempt.Language,
		ReferenceText:  attempt.ReferenceText,
		RecognizedText: attempt.RecognizedText,
		Accuracy:       attempt.Scores.Accuracy,
		Fluency:        attempt.Scores.Fluency,
		Completeness:   attempt.Scores.Completeness,
		Prosody:        attempt.Scores.Prosody,
		Pronunciation:  attempt.Scores.Pronunciation,
		Words:          words,
	})

	raw, err := s.llm.Complete(ctx, []client.Message{
		{Role: client.RoleSystem, Content: system},
		{Role: client.RoleUser, Content: user},
	})
	if err != nil {
		return nil, err
	}
	return parseFeedback(raw), nil
}

// parseFeedback decodes the model's JSON answer. Anything unparseable is
// returned verbatim as the summary.
func parseFeedback(raw string) *Feedback {
	text := stripCodeFence(raw)

	var fb Feedback
	if err := json.Unmarshal([]byte(text), &fb); err != nil || strings.TrimSpace(fb.Summary) == "" {
		fb = Feedback{Summary: strings.TrimSpace(raw)}
	}
	if fb.Tips == nil {
		fb.Tips = []string{}
	}
	if fb.FocusWords == nil {
		fb.FocusWords = []string{}
	}
	return &fb
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func toWordResults(words []client.AssessedWord) []stats.WordResult {
	out := make([]stats.WordResult, 0, len(words))
	for _, w := range words {
		out = append(out, stats.WordResult{Word: w.Word, Accuracy: w.AccuracyScore, ErrorType: w.ErrorType})
	}
	return out
}

func contentTypeOr(ct string) string {
	if ct == "" {
		return "audio/wav"
	}
	return ct
}

func audioExtension(contentType string) string {
	switch {
	case strings.Contains(contentType, "mpeg"), strings.Contains(contentType, "mp3"):
		return ".mp3"
	case strings.Contains(contentType, "ogg"):
		return ".ogg"
	case strings.Contains(contentType, "webm"):
		return ".webm"
	default:
		return ".wav"
	}
}
