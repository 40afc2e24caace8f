package service

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/windfall/speakcoach_service/internal/errors"
	"github.com/windfall/speakcoach_service/internal/repository"
)

const (
	defaultOverviewDays = 30
	maxOverviewDays     = 365
)

// ExportColumns is the CSV header written by ExportAttempts.
var ExportColumns = []string{
	"id", "user_id", "exercise_id", "language", "reference_text", "recognized_text",
	"accuracy", "fluency", "completeness", "prosody", "pron_score", "created_at",
}

// AdminService backs the operator endpoints.
type AdminService struct {
	attempts repository.AttemptRepository
	now      func() time.Time
	log      zerolog.Logger
}

// NewAdminService creates a new AdminService.
func NewAdminService(attempts repository.AttemptRepository, log zerolog.Logger) *AdminService {
	return &AdminService{attempts: attempts, now: time.Now, log: log}
}

// ExportAttempts streams matching attempts to w as CSV and returns the number
// of rows written. On an error before the first row nothing is written.
func (s *AdminService) ExportAttempts(ctx context.Context, f repository.AttemptExportFilter, w io.Writer) (int, error) {
	if !f.From.IsZero() && !f.To.IsZero() && !f.From.Before(f.To) {
		return 0, errors.Validation("from must be before to")
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(ExportColumns); err != nil {
		return 0, errors.InternalWrap("failed to write csv header", err)
	}

	n := 0
	err := s.attempts.Export(ctx, f, func(a repository.Attempt) error {
		exerciseID := ""
		if a.ExerciseID != nil {
			exerciseID = a.ExerciseID.String()
		}
		record := []string{
			a.ID.String(),
			a.UserID.String(),
			exerciseID,
			a.Language,
			csvCell(a.ReferenceText),
			csvCell(a.RecognizedText),
			formatScore(a.Scores.Accuracy),
			formatScore(a.Scores.Fluency),
			formatScore(a.Scores.Completeness),
			formatScore(a.Scores.Prosody),
			formatScore(a.Scores.Pronunciation),
			a.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return errors.InternalWrap("failed to write csv row", err)
		}
		n++
		return nil
	})
	if err != nil {
		// Nothing reaches w before the first row, so the caller can still
		// answer with an error status.
		if n > 0 {
			cw.Flush()
		}
		return n, err
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return n, errors.InternalWrap("failed to flush csv", err)
	}

	s.log.Info().Int("rows", n).Msg("Attempts exported")
	return n, nil
}

// Overview aggregates attempts over the last days days.
func (s *AdminService) Overview(ctx context.Context, days int) (*repository.AttemptOverview, error) {
	if days < 0 {
		return nil, errors.Validation("days must be positive")
	}
	if days == 0 {
		days = defaultOverviewDays
	}
	days = min(days, maxOverviewDays)

	since := s.now().UTC().AddDate(0, 0, -days)
	return s.attempts.Overview(ctx, since)
}

// csvCell prefixes values a spreadsheet would evaluate as a formula.
func csvCell(v string) string {
	if v != "" && strings.ContainsRune("=+-@\t\r", rune(v[0])) {
		return "'" + v
	}
	return v
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}
