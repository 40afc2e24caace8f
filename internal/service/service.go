// Package service implements the coaching use cases on top of the clients
// and repositories.
package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/windfall/speakcoach_service/internal/client"
	"github.com/windfall/speakcoach_service/internal/errors"
)

// Assessor scores a recording against a reference text.
type Assessor interface {
	Assess(ctx context.Context, audio []byte, opts client.AssessOptions) (*client.Assessment, error)
}

// Synthesizer renders text to audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string, rate float64) ([]byte, error)
}

// AudioCache stores synthesized audio by key.
type AudioCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// ObjectStore uploads blobs and returns their public URL.
type ObjectStore interface {
	UploadR2Object(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Completer answers a chat history with the next assistant turn.
type Completer interface {
	Complete(ctx context.Context, messages []client.Message) (string, error)
}

// requireText trims s and checks its length in runes.
func requireText(field, s string, maxRunes int) (string, error) {
	s = strings.TrimSpace(s)
	n := utf8.RuneCountInString(s)
	if n == 0 {
		return "", errors.Validation(field + " is required")
	}
	if n > maxRunes {
		return "", errors.Validation(field + " is too long").WithDetails(map[string]interface{}{
			"max_length": maxRunes,
		})
	}
	return s, nil
}
