package http

import (
	stderrors "errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/windfall/speakcoach_service/internal/errors"
	"github.com/windfall/speakcoach_service/internal/middleware"
	"github.com/windfall/speakcoach_service/internal/service"
	"github.com/windfall/speakcoach_service/pkg/response"
)

// multipartOverhead leaves room for the text fields and part headers.
const multipartOverhead = 1 << 20

// AssessmentHandler handles pronunciation assessment endpoints.
type AssessmentHandler struct {
	svc           *service.AssessmentService
	maxAudioBytes int64
	log           zerolog.Logger
}

// NewAssessmentHandler creates a new AssessmentHandler.
func NewAssessmentHandler(svc *service.AssessmentService, maxAudioBytes int64, log zerolog.Logger) *AssessmentHandler {
	return &AssessmentHandler{svc: svc, maxAudioBytes: maxAudioBytes, log: log}
}

// Create handles POST /api/v1/assessments
// Multipart fields: audio (file), reference_text, language, exercise_id.
func (h *AssessmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, h.maxAudioBytes+multipartOverhead)
	if err := r.ParseMultipartForm(h.maxAudioBytes + multipartOverhead); err != nil {
		var maxErr *http.MaxBytesError
		if stderrors.As(err, &maxErr) || stderrors.Is(err, multipart.ErrMessageTooLarge) {
			handleError(h.log, w, errors.TooLarge(h.maxAudioBytes))
			return
		}
		handleError(h.log, w, errors.Validation("invalid multipart form"))
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	file, header, err := r.FormFile("audio")
	if err != nil {
		handleError(h.log, w, errors.Validation("audio file is required (field: 'audio')"))
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(io.LimitReader(file, h.maxAudioBytes+1))
	if err != nil {
		handleError(h.log, w, errors.Validation("failed to read audio"))
		return
	}
	if int64(len(audio)) > h.maxAudioBytes {
		handleError(h.log, w, errors.TooLarge(h.maxAudioBytes))
		return
	}

	req := service.AssessRequest{
		Audio:         audio,
		ContentType:   header.Header.Get("Content-Type"),
		ReferenceText: r.FormValue("reference_text"),
		Language:      r.FormValue("language"),
	}
	if raw := strings.TrimSpace(r.FormValue("exercise_id")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			handleError(h.log, w, errors.Validation("invalid exercise_id"))
			return
		}
		req.ExerciseID = &id
	}

	attempt, err := h.svc.Assess(r.Context(), userID, req)
	if err != nil {
		handleError(h.log, w, err)
		return
	}

	response.Created(w, attempt)
}

// List handles GET /api/v1/assessments?limit=
func (h *AssessmentHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		handleError(h.log, w, err)
		return
	}

	attempts, err := h.svc.List(r.Context(), middleware.GetUserID(r.Context()), limit)
	if err != nil {
		handleError(h.log, w, err)
		return
	}

	response.JSON(w, http.StatusOK, attempts)
}

// Get handles GET /api/v1/assessments/{id}
func (h *AssessmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		handleError(h.log, w, err)
		return
	}

	attempt, err := h.svc.Get(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		handleError(h.log, w, err)
		return
	}

	response.JSON(w, http.StatusOK, attempt)
}

// Feedback handles POST /api/v1/assessments/{id}/feedback
func (h *AssessmentHandler) Feedback(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		handleError(h.log, w, err)
		return
	}

	fb, err := h.svc.Feedback(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		handleError(h.log, w, err)
		return
	}

	response.JSON(w, http.StatusOK, fb)
}
