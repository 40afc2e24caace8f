package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/windfall/speakcoach_service/internal/errors"
)

const (
	sttPath = "/speech/recognition/conversation/cognitiveservices/v1"
	ttsPath = "/cognitiveservices/v1"

	ttsOutputFormat = "audio-24khz-48kbitrate-mono-mp3"
)

// voicePattern matches Azure neural voice short names such as
// "en-US-AvaMultilingualNeural" or "zh-CN-henan-YundengNeural".
var voicePattern = regexp.MustCompile(`^[a-z]{2,3}-[A-Z]{2}(-[a-z]+)?-[A-Za-z0-9]+Neural$`)

// ValidVoice reports whether voice is a well-formed neural voice name.
func ValidVoice(voice string) bool {
	return voicePattern.MatchString(voice)
}

// AzureSpeechClient wraps the Azure AI Speech REST API.
type AzureSpeechClient struct {
	apiKey  string
	region  string
	sttBase string
	ttsBase string
	client  *http.Client
}

// AssessOptions configures a pronunciation assessment call.
type AssessOptions struct {
	ReferenceText string
	Language      string
}

// Phoneme is a phoneme-level score.
type Phoneme struct {
	Phoneme       string  `json:"Phoneme"`
	AccuracyScore float64 `json:"AccuracyScore"`
}

// AssessedWord is a word-level score.
type AssessedWord struct {
	Word          string    `json:"Word"`
	Offset        int64     `json:"Offset"`
	Duration      int64     `json:"Duration"`
	AccuracyScore float64   `json:"AccuracyScore"`
	ErrorType     string    `json:"ErrorType"`
	Phonemes      []Phoneme `json:"Phonemes,omitempty"`
}

// NBest is one recognition hypothesis with its pronunciation scores.
type NBest struct {
	Confidence        float64        `json:"Confidence"`
	Lexical           string         `json:"Lexical"`
	Display           string         `json:"Display"`
	AccuracyScore     float64        `json:"AccuracyScore"`
	FluencyScore      float64        `json:"FluencyScore"`
	CompletenessScore float64        `json:"CompletenessScore"`
	ProsodyScore      float64        `json:"ProsodyScore"`
	PronScore         float64        `json:"PronScore"`
	Words             []AssessedWord `json:"Words"`
}

// Assessment is the detailed-format response of the short audio API.
type Assessment struct {
	RecognitionStatus string  `json:"RecognitionStatus"`
	DisplayText       string  `json:"DisplayText"`
	Offset            int64   `json:"Offset"`
	Duration          int64   `json:"Duration"`
	NBest             []NBest `json:"NBest"`
}

// Best returns the top hypothesis, or nil when there is none.
func (a *Assessment) Best() *NBest {
	if a == nil || len(a.NBest) == 0 {
		return nil
	}
	return &a.NBest[0]
}

// NewAzureSpeechClient creates a new Azure Speech client.
func NewAzureSpeechClient(apiKey, region string, timeout time.Duration) *AzureSpeechClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &AzureSpeechClient{
		apiKey:  apiKey,
		region:  region,
		sttBase: fmt.Sprintf("https://%s.stt.speech.microsoft.com", region),
		ttsBase: fmt.Sprintf("https://%s.tts.speech.microsoft.com", region),
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// WithBaseURLs points the client at different hosts (tests, sovereign clouds).
func (c *AzureSpeechClient) WithBaseURLs(sttBase, ttsBase string) *AzureSpeechClient {
	c.sttBase = strings.TrimRight(sttBase, "/")
	c.ttsBase = strings.TrimRight(ttsBase, "/")
	return c
}

// Assess sends 16 kHz mono PCM WAV audio for pronunciation assessment against
// the reference text. Miscue and prosody assessment are enabled.
func (c *AzureSpeechClient) Assess(ctx context.Context, audioData []byte, opts AssessOptions) (*Assessment, error) {
	if c.apiKey == "" || c.region == "" {
		return nil, errors.New(errors.ErrAIService, "Azure Speech credentials not configured")
	}

	language := opts.Language
	if language == "" {
		language = "en-US"
	}

	u, err := url.Parse(c.sttBase + sttPath)
	if err != nil {
		return nil, fmt.Errorf("failed to build url: %w", err)
	}
	q := u.Query()
	q.Set("language", language)
	q.Set("format", "detailed")
	u.RawQuery = q.Encode()

	pronAssessmentParams := map[string]interface{}{
		"ReferenceText":           opts.ReferenceText,
		"GradingSystem":           "HundredMark",
		"Granularity":             "Phoneme",
		"Dimension":               "Comprehensive",
		"EnableMiscue":            true,
		"EnableProsodyAssessment": true,
	}
	jsonBytes, err := json.Marshal(pronAssessmentParams)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal params: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(audioData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Pronunciation-Assessment", base64.StdEncoding.EncodeToString(jsonBytes))
	req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)
	req.Header.Set("Content-Type", "audio/wav; codecs=audio/pcm; samplerate=16000")
	req.Header.Set("Accept", "application/json;text/xml")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(errors.ErrAIService, "azure speech request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, errors.Wrap(errors.ErrAIService, "azure speech api error",
			fmt.Errorf("status %d: %s", resp.StatusCode, string(body)))
	}

	var result Assessment
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errors.Wrap(errors.ErrAIService, "failed to decode azure speech response", err)
	}

	if result.RecognitionStatus != "Success" || len(result.NBest) == 0 {
		return nil, errors.NoSpeech(result.RecognitionStatus)
	}

	result.NBest[0].Words = DeduplicateWords(result.NBest[0].Words)
	return &result, nil
}

// DeduplicateWords collapses repeated words that Azure reports when miscue
// detection flags the same word twice. When a group of identical words
// contains an Insertion, only the Insertion is kept and its AccuracyScore
// becomes the mean of the group. Groups without an Insertion are untouched.
func DeduplicateWords(words []AssessedWord) []AssessedWord {
	groups := make(map[string][]int)
	for i, w := range words {
		groups[w.Word] = append(groups[w.Word], i)
	}

	remove := make(map[int]bool)
	for _, indices := range groups {
		if len(indices) <= 1 {
			continue
		}

		insertion := -1
		var total float64
		for _, idx := range indices {
			if words[idx].ErrorType == "Insertion" && insertion == -1 {
				insertion = idx
			}
			total += words[idx].AccuracyScore
		}
		if insertion == -1 {
			continue
		}

		words[insertion].AccuracyScore = total / float64(len(indices))
		for _, idx := range indices {
			if idx != insertion {
				remove[idx] = true
			}
		}
	}

	if len(remove) == 0 {
		return words
	}
	out := make([]AssessedWord, 0, len(words)-len(remove))
	for i, w := range words {
		if !remove[i] {
			out = append(out, w)
		}
	}
	return out
}

// Synthesize renders text to MP3 with the given neural voice. rate is a
// multiplier where 1.0 is normal speed.
func (c *AzureSpeechClient) Synthesize(ctx context.Context, text, voice string, rate float64) ([]byte, error) {
	if c.apiKey == "" || c.region == "" {
		return nil, errors.New(errors.ErrAIService, "Azure Speech credentials not configured")
	}

	if !ValidVoice(voice) {
		return nil, errors.Validation("invalid voice name")
	}

	ssml, err := buildSSML(text, voice, rate)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.ttsBase+ttsPath, strings.NewReader(ssml))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/ssml+xml")
	req.Header.Set("X-Microsoft-OutputFormat", ttsOutputFormat)
	req.Header.Set("User-Agent", "speakcoach_service")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(errors.ErrAIService, "azure tts request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, errors.Wrap(errors.ErrAIService, "azure tts api error",
			fmt.Errorf("status %d: %s", resp.StatusCode, string(body)))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(errors.ErrAIService, "failed to read tts audio", err)
	}
	return audio, nil
}

func buildSSML(text, voice string, rate float64) (string, error) {
	lang, err := escapeXML(voiceLanguage(voice))
	if err != nil {
		return "", err
	}
	name, err := escapeXML(voice)
	if err != nil {
		return "", err
	}
	body, err := escapeXML(text)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<speak version="1.0" xmlns="http://www.w3.org/2001/10/synthesis" xml:lang="%s">`, lang)
	fmt.Fprintf(&b, `<voice name="%s">`, name)
	fmt.Fprintf(&b, `<prosody rate="%+.0f%%">`, (rate-1)*100)
	b.WriteString(body)
	b.WriteString(`</prosody></voice></speak>`)
	return b.String(), nil
}

// escapeXML escapes s for element text and quoted attribute values.
func escapeXML(s string) (string, error) {
	var buf bytes.Buffer
	if err := xml.EscapeText(&buf, []byte(s)); err != nil {
		return "", fmt.Errorf("failed to escape ssml: %w", err)
	}
	return buf.String(), nil
}

// voiceLanguage extracts "en-US" from "en-US-AvaMultilingualNeural".
func voiceLanguage(voice string) string {
	parts := strings.SplitN(voice, "-", 3)
	if len(parts) < 2 {
		return "en-US"
	}
	return parts[0] + "-" + parts[1]
}

// VoiceFor picks the default neural voice for a language.
func VoiceFor(language string) string {
	switch strings.ToLower(language) {
	case "en-gb":
		return "en-GB-SoniaNeural"
	case "en-au":
		return "en-AU-NatashaNeural"
	case "es-es":
		return "es-ES-ElviraNeural"
	case "es-mx":
		return "es-MX-DaliaNeural"
	case "fr-fr":
		return "fr-FR-DeniseNeural"
	case "de-de":
		return "de-DE-KatjaNeural"
	case "it-it":
		return "it-IT-ElsaNeural"
	case "pt-br":
		return "pt-BR-FranciscaNeural"
	case "ja-jp":
		return "ja-JP-NanamiNeural"
	case "ko-kr":
		return "ko-KR-SunHiNeural"
	case "zh-cn":
		return "zh-CN-XiaoxiaoNeural"
	case "th-th":
		return "th-TH-PremwadeeNeural"
	default:
		return "en-US-AvaMultilingualNeural"
	}
}
