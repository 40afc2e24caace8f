// Package http contains the REST handlers.
package http

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/windfall/speakcoach_service/internal/errors"
	"github.com/windfall/speakcoach_service/pkg/response"
)

const maxJSONBody = 1 << 20

// handleError maps err to the standard JSON error envelope. Anything that is
// not an AppError is logged and reported as a 500.
func handleError(log zerolog.Logger, w http.ResponseWriter, err error) {
	if appErr, ok := errors.As(err); ok {
		if appErr.HTTPStatus() >= http.StatusInternalServerError {
			log.Error().Err(err).Str("code", string(appErr.Code)).Msg("Request failed")
		}
		response.Error(w, appErr.HTTPStatus(), appErr)
		return
	}

	var maxErr *http.MaxBytesError
	if stderrors.As(err, &maxErr) {
		response.Error(w, http.StatusRequestEntityTooLarge, errors.TooLarge(maxErr.Limit))
		return
	}

	log.Error().Err(err).Msg("Internal server error")
	response.Error(w, http.StatusInternalServerError, errors.Internal("internal server error"))
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if stderrors.As(err, &maxErr) {
			return errors.TooLarge(maxErr.Limit)
		}
		if stderrors.Is(err, io.EOF) {
			return errors.Validation("request body is required")
		}
		return errors.Validation("invalid request body")
	}
	return nil
}

// uuidParam parses a chi path parameter as a uuid.
func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, errors.Validation("invalid " + name)
	}
	return id, nil
}

// queryInt reads an optional integer query parameter. Missing means 0.
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.Validation("invalid " + name)
	}
	return n, nil
}
