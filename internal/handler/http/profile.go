package http

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/windfall/speakcoach_service/internal/middleware"
	"github.com/windfall/speakcoach_service/internal/service"
	"github.com/windfall/speakcoach_service/pkg/response"
)

// ProfileHandler handles the learner profile.
type ProfileHandler struct {
	svc *service.ProfileService
	log zerolog.Logger
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(svc *service.ProfileService, log zerolog.Logger) *ProfileHandler {
	return &ProfileHandler{svc: svc, log: log}
}

// Get handles GET /api/v1/profile
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Get(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleError(h.log, w, err)
		return
	}
	response.JSON(w, http.StatusOK, p)
}

// Update handles PUT /api/v1/profile
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(h.log, w, err)
		return
	}

	p, err := h.svc.Update(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		handleError(h.log, w, err)
		return
	}
	response.JSON(w, http.StatusOK, p)
}
