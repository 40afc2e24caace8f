package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/windfall/speakcoach_service/internal/client"
	"github.com/windfall/speakcoach_service/internal/errors"
	"github.com/windfall/speakcoach_service/internal/observe"
	"github.com/windfall/speakcoach_service/internal/prompt"
)

const (
	ttsKeyPrefix = "tts:"
	maxTTSRunes  = 1000

	minRate     = 0.5
	maxRate     = 2.0
	defaultRate = 1.0
)

// TTSRequest asks for a model pronunciation of text.
type TTSRequest struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Voice    string  `json:"voice"`
	Rate     float64 `json:"rate"`
}

// TTSResult is synthesized MP3 audio.
type TTSResult struct {
	Audio  []byte
	Voice  string
	Cached bool
}

// TTSService synthesizes speech through Azure and caches it in Redis.
type TTSService struct {
	synth    Synthesizer
	cache    AudioCache
	ttl      time.Duration
	metrics  *observe.Metrics
	language string
	log      zerolog.Logger
}

// NewTTSService creates a new TTSService. cache may be nil.
func NewTTSService(synth Synthesizer, cache AudioCache, ttl time.Duration, metrics *observe.Metrics, log zerolog.Logger) *TTSService {
	return &TTSService{
		synth:    synth,
		cache:    cache,
		ttl:      ttl,
		metrics:  metrics,
		language: prompt.DefaultLanguage,
		log:      log,
	}
}

// WithDefaultLanguage sets the language whose voice is used when a request
// names neither voice nor language.
func (s *TTSService) WithDefaultLanguage(language string) *TTSService {
	if language != "" {
		s.language = language
	}
	return s
}

// CacheKey derives the Redis key for one synthesis.
func CacheKey(voice string, rate float64, text string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%.2f|%s", voice, rate, text)))
	return ttsKeyPrefix + hex.EncodeToString(sum[:])
}

// Synthesize returns MP3 audio for the request, from cache when possible.
func (s *TTSService) Synthesize(ctx context.Context, req TTSRequest) (*TTSResult, error) {
	if s.synth == nil {
		return nil, errors.New(errors.ErrAIService, "Azure Speech client not configured")
	}

	text, err := requireText("text", req.Text, maxTTSRunes)
	if err != nil {
		return nil, err
	}

	rate := req.Rate
	if rate == 0 {
		rate = defaultRate
	}
	if rate < minRate || rate > maxRate {
		return nil, errors.Validation(fmt.Sprintf("rate must be between %.1f and %.1f", minRate, maxRate))
	}

	voice := strings.TrimSpace(req.Voice)
	if voice != "" && !client.ValidVoice(voice) {
		return nil, errors.Validation("voice must be an Azure neural voice name such as en-US-AvaMultilingualNeural")
	}
	if voice == "" {
		language := strings.TrimSpace(req.Language)
		if language == "" {
			language = s.language
		}
		voice = client.VoiceFor(language)
	}

	key := CacheKey(voice, rate, text)
	if s.cache != nil {
		audio, ok, err := s.cache.Get(ctx, key)
		switch {
		case err != nil:
			s.log.Warn().Err(err).Str("key", key).Msg("TTS cache read failed")
		case ok:
			return &TTSResult{Audio: audio, Voice: voice, Cached: true}, nil
		}
	}

	start := time.Now()
	audio, err := s.synth.Synthesize(ctx, text, voice, rate)
	s.metrics.RecordProvider(ctx, "azure_speech", "tts", start, err)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, audio, s.ttl); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("TTS cache write failed")
		}
	}

	return &TTSResult{Audio: audio, Voice: voice}, nil
}
