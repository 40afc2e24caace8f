package http

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/windfall/speakcoach_service/internal/service"
	"github.com/windfall/speakcoach_service/pkg/response"
)

// TTSHandler serves model pronunciations.
type TTSHandler struct {
	svc *service.TTSService
	log zerolog.Logger
}

// NewTTSHandler creates a new TTSHandler.
func NewTTSHandler(svc *service.TTSService, log zerolog.Logger) *TTSHandler {
	return &TTSHandler{svc: svc, log: log}
}

// Synthesize handles POST /api/v1/tts and returns audio/mpeg.
func (h *TTSHandler) Synthesize(w http.ResponseWriter, r *http.Request) {
	var req service.TTSRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(h.log, w, err)
		return
	}

	result, err := h.svc.Synthesize(r.Context(), req)
	if err != nil {
		handleError(h.log, w, err)
		return
	}

	cache := "miss"
	if result.Cached {
		cache = "hit"
	}
	w.Header().Set("X-TTS-Cache", cache)
	w.Header().Set("X-TTS-Voice", result.Voice)
	response.Audio(w, "audio/mpeg", result.Audio)
}
