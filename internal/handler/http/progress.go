package http

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/windfall/speakcoach_service/internal/middleware"
	"github.com/windfall/speakcoach_service/internal/service"
	"github.com/windfall/speakcoach_service/pkg/response"
)

// ProgressHandler serves the learner dashboard.
type ProgressHandler struct {
	svc *service.ProgressService
	log zerolog.Logger
}

// NewProgressHandler creates a new ProgressHandler.
func NewProgressHandler(svc *service.ProgressService, log zerolog.Logger) *ProgressHandler {
	return &ProgressHandler{svc: svc, log: log}
}

// Get handles GET /api/v1/progress?window=&days=
func (h *ProgressHandler) Get(w http.ResponseWriter, r *http.Request) {
	window, err := queryInt(r, "window")
	if err != nil {
		handleError(h.log, w, err)
		return
	}
	days, err := queryInt(r, "days")
	if err != nil {
		handleError(h.log, w, err)
		return
	}

	progress, err := h.svc.Progress(r.Context(), middleware.GetUserID(r.Context()), service.ProgressQuery{
		Window: window,
		Days:   days,
	})
	if err != nil {
		handleError(h.log, w, err)
		return
	}

	response.JSON(w, http.StatusOK, progress)
}
