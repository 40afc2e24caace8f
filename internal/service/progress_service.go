package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/windfall/speakcoach_service/internal/errors"
	"github.com/windfall/speakcoach_service/internal/repository"
	"github.com/windfall/speakcoach_service/internal/stats"
)

const (
	maxWindow   = 50
	defaultDays = 90
	maxDays     = 365

	weakWordMinOccurrences = 2
	weakWordLimit          = 10
)

// ProgressQuery selects the averaging window and how far back to look.
type ProgressQuery struct {
	Window int
	Days   int
}

// Progress is a learner's dashboard.
type Progress struct {
	Since     time.Time         `json:"since"`
	Days      int               `json:"days"`
	Summary   stats.Summary     `json:"summary"`
	WeakWords []stats.WordStat  `json:"weak_words"`
	Daily     []stats.DayBucket `json:"daily"`
	Streak    int               `json:"streak"`
}

// ProgressService computes progress figures from stored attempts.
type ProgressService struct {
	attempts      repository.AttemptRepository
	defaultWindow int
	now           func() time.Time
	log           zerolog.Logger
}

// NewProgressService creates a new ProgressService.
func NewProgressService(attempts repository.AttemptRepository, defaultWindow int, log zerolog.Logger) *ProgressService {
	if defaultWindow <= 0 {
		defaultWindow = 5
	}
	return &ProgressService{
		attempts:      attempts,
		defaultWindow: min(defaultWindow, maxWindow),
		now:           time.Now,
		log:           log,
	}
}

func (s *ProgressService) normalize(q ProgressQuery) (ProgressQuery, error) {
	if q.Window < 0 {
		return q, errors.Validation("window must be positive")
	}
	if q.Days < 0 {
		return q, errors.Validation("days must be positive")
	}
	if q.Window == 0 {
		q.Window = s.defaultWindow
	}
	if q.Days == 0 {
		q.Days = defaultDays
	}
	q.Window = min(q.Window, maxWindow)
	q.Days = min(q.Days, maxDays)
	return q, nil
}

// Progress summarises the user's attempts over the last q.Days days.
func (s *ProgressService) Progress(ctx context.Context, userID uuid.UUID, q ProgressQuery) (*Progress, error) {
	q, err := s.normalize(q)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	since := now.AddDate(0, 0, -q.Days)

	attempts, err := s.attempts.ListSince(ctx, userID, since)
	if err != nil {
		return nil, err
	}

	samples := make([]stats.Sample, 0, len(attempts))
	words := make([][]stats.WordResult, 0, len(attempts))
	for _, a := range attempts {
		samples = append(samples, a.Sample())
		words = append(words, a.Words)
	}

	out := &Progress{Since: since, Days: q.Days}

	var g errgroup.Group
	g.Go(func() error {
		summary, err := stats.Summarize(samples, q.Window)
		if err != nil {
			return errors.InternalWrap("failed to summarize attempts", err)
		}
		out.Summary = summary
		return nil
	})
	g.Go(func() error {
		out.WeakWords = stats.WeakWords(words, weakWordMinOccurrences, weakWordLimit)
		return nil
	})
	g.Go(func() error {
		out.Daily = stats.Daily(samples, time.UTC)
		out.Streak = stats.Streak(out.Daily, now)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.log.Debug().
		Str("user_id", userID.String()).
		Int("attempts", len(attempts)).
		Int("window", q.Window).
		Msg("Progress computed")

	return out, nil
}
