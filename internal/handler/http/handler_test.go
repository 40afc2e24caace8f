package http

import (
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windfall/speakcoach_service/internal/errors"
)

func TestHandleError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", errors.Validation("bad"), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"not found", errors.NotFound("exercise"), http.StatusNotFound, "NOT_FOUND"},
		{"no speech", errors.NoSpeech("NoMatch"), http.StatusUnprocessableEntity, "NO_SPEECH"},
		{"ai service", errors.New(errors.ErrAIService, "down"), http.StatusBadGateway, "AI_SERVICE_ERROR"},
		{"max bytes", &http.MaxBytesError{Limit: 10}, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE"},
		{"plain", stderrors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handleError(nopLog, rec, tt.err)

			assert.Equal(t, tt.status, rec.Code)
			env := decodeEnvelope(t, rec)
			assert.False(t, env.Success)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code)
		})
	}
}

func TestHandleError_HidesInternalMessages(t *testing.T) {
	rec := httptest.NewRecorder()
	handleError(nopLog, rec, stderrors.New("pq: password authentication failed"))

	assert.NotContains(t, rec.Body.String(), "password")
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Text string `json:"text"`
	}

	t.Run("empty body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", http.NoBody)
		err := decodeJSON(httptest.NewRecorder(), req, &dst)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrValidation))
		assert.Contains(t, err.Error(), "request body is required")
	})

	t.Run("malformed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"text":`))
		err := decodeJSON(httptest.NewRecorder(), req, &dst)
		assert.True(t, errors.Is(err, errors.ErrValidation))
	})

	t.Run("too large", func(t *testing.T) {
		body := `{"text":"` + strings.Repeat("a", maxJSONBody) + `"}`
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		err := decodeJSON(httptest.NewRecorder(), req, &dst)
		assert.True(t, errors.Is(err, errors.ErrTooLarge))
	})

	t.Run("ok", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"text":"hi"}`))
		require.NoError(t, decodeJSON(httptest.NewRecorder(), req, &dst))
		assert.Equal(t, "hi", dst.Text)
	})
}

func TestQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=5&offset=x", nil)

	n, err := queryInt(req, "limit")
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = queryInt(req, "missing")
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = queryInt(req, "offset")
	assert.True(t, errors.Is(err, errors.ErrValidation))
}
