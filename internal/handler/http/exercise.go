package http

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/windfall/speakcoach_service/internal/repository"
	"github.com/windfall/speakcoach_service/internal/service"
	"github.com/windfall/speakcoach_service/pkg/response"
)

// ExerciseHandler handles the exercise catalog, including the admin writes.
type ExerciseHandler struct {
	svc *service.ExerciseService
	log zerolog.Logger
}

// NewExerciseHandler creates a new ExerciseHandler.
func NewExerciseHandler(svc *service.ExerciseService, log zerolog.Logger) *ExerciseHandler {
	return &ExerciseHandler{svc: svc, log: log}
}

// List handles GET /api/v1/exercises?language=&level=&category=&limit=&offset=
func (h *ExerciseHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		handleError(h.log, w, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		handleError(h.log, w, err)
		return
	}

	q := r.URL.Query()
	page, err := h.svc.List(r.Context(), repository.ExerciseFilter{
		Language: q.Get("language"),
		Level:    q.Get("level"),
		Category: q.Get("category"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		handleError(h.log, w, err)
		return
	}

	response.JSONWithMeta(w, http.StatusOK, page.Items, &response.Meta{
		Limit:  page.Limit,
		Offset: page.Offset,
		Total:  page.Total,
	})
}

// Get handles GET /api/v1/exercises/{id}
func (h *ExerciseHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		handleError(h.log, w, err)
		return
	}

	ex, err := h.svc.Get(r.Context(), id)
	if err != nil {
		handleError(h.log, w, err)
		return
	}

	response.JSON(w, http.StatusOK, ex)
}

// Create handles POST /api/v1/admin/exercises
func (h *ExerciseHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateExerciseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(h.log, w, err)
		return
	}

	ex, err := h.svc.Create(r.Context(), req)
	if err != nil {
		handleError(h.log, w, err)
		return
	}

	response.Created(w, ex)
}

// Delete handles DELETE /api/v1/admin/exercises/{id}
func (h *ExerciseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		handleError(h.log, w, err)
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		handleError(h.log, w, err)
		return
	}

	response.NoContent(w)
}
