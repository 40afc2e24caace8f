package http

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/windfall/speakcoach_service/internal/errors"
	"github.com/windfall/speakcoach_service/internal/repository"
	"github.com/windfall/speakcoach_service/internal/service"
	"github.com/windfall/speakcoach_service/pkg/response"
)

const dateLayout = "2006-01-02"

// AdminHandler handles the operator endpoints.
type AdminHandler struct {
	svc *service.AdminService
	log zerolog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(svc *service.AdminService, log zerolog.Logger) *AdminHandler {
	return &AdminHandler{svc: svc, log: log}
}

// parseTime accepts RFC 3339 timestamps or bare dates (midnight UTC).
func parseTime(name, raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return t, nil
	}
	return time.Time{}, errors.Validation(fmt.Sprintf("invalid %s: use YYYY-MM-DD or RFC 3339", name))
}

func exportFilter(r *http.Request) (repository.AttemptExportFilter, error) {
	q := r.URL.Query()
	var (
		f   repository.AttemptExportFilter
		err error
	)
	if f.From, err = parseTime("from", q.Get("from")); err != nil {
		return f, err
	}
	if f.To, err = parseTime("to", q.Get("to")); err != nil {
		return f, err
	}
	if raw := strings.TrimSpace(q.Get("user_id")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return f, errors.Validation("invalid user_id")
		}
		f.UserID = &id
	}
	f.Language = strings.TrimSpace(q.Get("language"))
	return f, nil
}

// ExportAttempts handles GET /api/v1/admin/attempts.csv?from=&to=&user_id=&language=
func (h *AdminHandler) ExportAttempts(w http.ResponseWriter, r *http.Request) {
	f, err := exportFilter(r)
	if err != nil {
		handleError(h.log, w, err)
		return
	}

	response.CSVHeaders(w, fmt.Sprintf("attempts-%s.csv", time.Now().UTC().Format(dateLayout)))
	n, err := h.svc.ExportAttempts(r.Context(), f, w)
	if err != nil {
		if n == 0 {
			w.Header().Del("Content-Disposition")
			handleError(h.log, w, err)
			return
		}
		h.log.Error().Err(err).Int("rows", n).Msg("Attempt export aborted mid-stream")
	}
}

// Overview handles GET /api/v1/admin/overview?days=
func (h *AdminHandler) Overview(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days")
	if err != nil {
		handleError(h.log, w, err)
		return
	}

	ov, err := h.svc.Overview(r.Context(), days)
	if err != nil {
		handleError(h.log, w, err)
		return
	}

	response.JSON(w, http.StatusOK, ov)
}
