package http

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/windfall/speakcoach_service/internal/middleware"
	"github.com/windfall/speakcoach_service/internal/service"
	"github.com/windfall/speakcoach_service/pkg/response"
)

// CoachHandler handles the conversation endpoints.
type CoachHandler struct {
	svc *service.CoachService
	log zerolog.Logger
}

// NewCoachHandler creates a new CoachHandler.
func NewCoachHandler(svc *service.CoachService, log zerolog.Logger) *CoachHandler {
	return &CoachHandler{svc: svc, log: log}
}

// ReplyRequest is the learner's next turn.
type ReplyRequest struct {
	Text string `json:"text"`
}

// Catalog handles GET /api/v1/coach/catalog
func (h *CoachHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, h.svc.Catalog())
}

// Start handles POST /api/v1/coach/conversations
func (h *CoachHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req service.StartRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(h.log, w, err)
		return
	}

	result, err := h.svc.StartConversation(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		handleError(h.log, w, err)
		return
	}

	response.Created(w, result)
}

// Get handles GET /api/v1/coach/conversations/{id}
func (h *CoachHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		handleError(h.log, w, err)
		return
	}

	view, err := h.svc.GetConversation(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		handleError(h.log, w, err)
		return
	}

	response.JSON(w, http.StatusOK, view)
}

// Reply handles POST /api/v1/coach/conversations/{id}/messages
func (h *CoachHandler) Reply(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		handleError(h.log, w, err)
		return
	}

	var req ReplyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(h.log, w, err)
		return
	}

	result, err := h.svc.Reply(r.Context(), middleware.GetUserID(r.Context()), id, req.Text)
	if err != nil {
		handleError(h.log, w, err)
		return
	}

	response.JSON(w, http.StatusOK, result)
}
