package service

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/windfall/speakcoach_service/internal/client"
	"github.com/windfall/speakcoach_service/internal/errors"
	"github.com/windfall/speakcoach_service/internal/observe"
)

// LLMService sends chat histories to the configured providers in order,
// falling back to the next one when a call fails.
type LLMService struct {
	providers []client.ChatCompleter
	metrics   *observe.Metrics
	log       zerolog.Logger
}

// NewLLMService creates a new LLMService. Nil providers are skipped.
func NewLLMService(metrics *observe.Metrics, log zerolog.Logger, providers ...client.ChatCompleter) *LLMService {
	s := &LLMService{metrics: metrics, log: log}
	for _, p := range providers {
		if p != nil {
			s.providers = append(s.providers, p)
		}
	}
	return s
}

// Configured reports whether at least one provider is available.
func (s *LLMService) Configured() bool {
	return len(s.providers) > 0
}

// Complete returns the first successful provider reply.
func (s *LLMService) Complete(ctx context.Context, messages []client.Message) (string, error) {
	if !s.Configured() {
		return "", errors.New(errors.ErrAIService, "no AI provider configured")
	}

	var lastErr error
	for i, p := range s.providers {
		start := time.Now()
		reply, err := p.ChatWithHistory(ctx, messages)
		s.metrics.RecordProvider(ctx, p.Name(), "llm", start, err)
		if err == nil {
			return reply, nil
		}
		lastErr = err

		if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", errors.Wrap(errors.ErrTimeout, "AI provider timed out", err)
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		if i < len(s.providers)-1 {
			s.log.Warn().Err(err).Str("provider", p.Name()).Msg("LLM call failed, falling back")
		} else {
			s.log.Error().Err(err).Str("provider", p.Name()).Msg("LLM fallback also failed")
		}
	}

	return "", errors.Wrap(errors.ErrAIService, "all AI providers failed", lastErr)
}
