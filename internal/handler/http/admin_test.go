package http

import (
	stderrors "errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windfall/speakcoach_service/internal/repository"
	"github.com/windfall/speakcoach_service/internal/service"
	"github.com/windfall/speakcoach_service/internal/stats"
)

func TestParseTime(t *testing.T) {
	got, err := parseTime("from", "2025-06-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), got)

	got, err = parseTime("from", "2025-06-01T08:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, 8, got.Hour())

	got, err = parseTime("from", "")
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	_, err = parseTime("from", "June 1st")
	assert.Error(t, err)
}

func TestAdminHandler_ExportAttempts(t *testing.T) {
	attempts := &memAttempts{rows: []repository.Attempt{{
		ID:            uuid.New(),
		UserID:        testUser,
		Language:      "en-US",
		ReferenceText: "Hello, world",
		Scores:        stats.Scores{Accuracy: 90, Pronunciation: 87.5},
		CreatedAt:     time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC),
	}}}
	h := NewAdminHandler(service.NewAdminService(attempts, nopLog), nopLog)

	rec := serve(http.MethodGet, "/admin/attempts.csv", h.ExportAttempts,
		jsonRequest(http.MethodGet, "/admin/attempts.csv?from=2025-06-01&to=2025-07-01&user_id="+testUser.String(), nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(service.ExportColumns, ","), lines[0])
	assert.Contains(t, lines[1], `"Hello, world"`)
	assert.Contains(t, lines[1], "87.5")
	assert.Contains(t, lines[1], "2025-06-02T09:00:00Z")
}

func TestAdminHandler_ExportAttemptsErrors(t *testing.T) {
	tests := []struct {
		name   string
		repo   *memAttempts
		query  string
		status int
	}{
		{"bad from", &memAttempts{}, "?from=yesterday", http.StatusBadRequest},
		{"bad user", &memAttempts{}, "?user_id=42", http.StatusBadRequest},
		{"inverted range", &memAttempts{}, "?from=2025-07-01&to=2025-06-01", http.StatusBadRequest},
		{"repository failure", &memAttempts{exportErr: stderrors.New("conn reset")}, "", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAdminHandler(service.NewAdminService(tt.repo, nopLog), nopLog)

			rec := serve(http.MethodGet, "/admin/attempts.csv", h.ExportAttempts,
				jsonRequest(http.MethodGet, "/admin/attempts.csv"+tt.query, nil))

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Empty(t, rec.Header().Get("Content-Disposition"))
		})
	}
}

func TestAdminHandler_Overview(t *testing.T) {
	attempts := &memAttempts{rows: []repository.Attempt{{ID: uuid.New()}, {ID: uuid.New()}}}
	h := NewAdminHandler(service.NewAdminService(attempts, nopLog), nopLog)

	rec := serve(http.MethodGet, "/admin/overview", h.Overview, jsonRequest(http.MethodGet, "/admin/overview?days=7", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total_attempts":2`)

	rec = serve(http.MethodGet, "/admin/overview", h.Overview, jsonRequest(http.MethodGet, "/admin/overview?days=-1", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
