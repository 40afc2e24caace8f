package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windfall/speakcoach_service/internal/errors"
)

const assessmentFixture = `{
  "RecognitionStatus": "Success",
  "DisplayText": "Hello world.",
  "NBest": [{
    "Confidence": 0.97,
    "Lexical": "hello world",
    "Display": "Hello world.",
    "AccuracyScore": 88,
    "FluencyScore": 92,
    "CompletenessScore": 100,
    "ProsodyScore": 81.5,
    "PronScore": 89.4,
    "Words": [
      {"Word": "hello", "AccuracyScore": 95, "ErrorType": "None"},
      {"Word": "world", "AccuracyScore": 60, "ErrorType": "Mispronunciation"},
      {"Word": "world", "AccuracyScore": 80, "ErrorType": "Insertion"}
    ]
  }]
}`

func newSpeechServer(t *testing.T, handler http.HandlerFunc) *AzureSpeechClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewAzureSpeechClient("test-key", "westeurope", 0).WithBaseURLs(srv.URL, srv.URL)
}

func TestAssess_Success(t *testing.T) {
	c := newSpeechServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, sttPath, r.URL.Path)
		assert.Equal(t, "fr-FR", r.URL.Query().Get("language"))
		assert.Equal(t, "detailed", r.URL.Query().Get("format"))
		assert.Equal(t, "test-key", r.Header.Get("Ocp-Apim-Subscription-Key"))

		raw, err := base64.StdEncoding.DecodeString(r.Header.Get("Pronunciation-Assessment"))
		require.NoError(t, err)
		var params map[string]interface{}
		require.NoError(t, json.Unmarshal(raw, &params))
		assert.Equal(t, "Bonjour", params["ReferenceText"])
		assert.Equal(t, "Phoneme", params["Granularity"])
		assert.Equal(t, true, params["EnableMiscue"])
		assert.Equal(t, true, params["EnableProsodyAssessment"])

		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, []byte("RIFF"), body)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(assessmentFixture))
	})

	res, err := c.Assess(context.Background(), []byte("RIFF"), AssessOptions{ReferenceText: "Bonjour", Language: "fr-FR"})
	require.NoError(t, err)

	best := res.Best()
	require.NotNil(t, best)
	assert.Equal(t, 89.4, best.PronScore)
	assert.Equal(t, 81.5, best.ProsodyScore)
	require.Len(t, best.Words, 2)
	assert.Equal(t, "Insertion", best.Words[1].ErrorType)
	assert.Equal(t, 70.0, best.Words[1].AccuracyScore)
}

func TestAssess_NoSpeech(t *testing.T) {
	c := newSpeechServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"RecognitionStatus":"InitialSilenceTimeout"}`))
	})

	_, err := c.Assess(context.Background(), []byte("RIFF"), AssessOptions{ReferenceText: "hi"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNoSpeech))
}

func TestAssess_UpstreamError(t *testing.T) {
	c := newSpeechServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	})

	_, err := c.Assess(context.Background(), []byte("RIFF"), AssessOptions{ReferenceText: "hi"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrAIService))
	assert.Contains(t, err.Error(), "429")
}

func TestAssess_MissingCredentials(t *testing.T) {
	c := NewAzureSpeechClient("", "", 0)
	_, err := c.Assess(context.Background(), nil, AssessOptions{})
	assert.True(t, errors.Is(err, errors.ErrAIService))
}

func TestSynthesize(t *testing.T) {
	c := newSpeechServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, ttsPath, r.URL.Path)
		assert.Equal(t, "application/ssml+xml", r.Header.Get("Content-Type"))
		assert.Equal(t, ttsOutputFormat, r.Header.Get("X-Microsoft-OutputFormat"))

		body, _ := io.ReadAll(r.Body)
		ssml := string(body)
		assert.Contains(t, ssml, `xml:lang="en-GB"`)
		assert.Contains(t, ssml, `<voice name="en-GB-SoniaNeural">`)
		assert.Contains(t, ssml, `<prosody rate="-20%">`)
		assert.Contains(t, ssml, "Fish &amp; chips &lt;now&gt;")

		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3"))
	})

	audio, err := c.Synthesize(context.Background(), "Fish & chips <now>", "en-GB-SoniaNeural", 0.8)
	require.NoError(t, err)
	assert.Equal(t, []byte("ID3"), audio)
}

func TestSynthesize_UpstreamError(t *testing.T) {
	c := newSpeechServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})
	_, err := c.Synthesize(context.Background(), "hi", VoiceFor("en-US"), 1)
	assert.True(t, errors.Is(err, errors.ErrAIService))
}

func TestSynthesize_RejectsMalformedVoice(t *testing.T) {
	calls := 0
	c := newSpeechServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte("ID3"))
	})

	voice := `en-US-AvaNeural"><audio src="https://attacker.example/x.wav"/><voice name="en-US-AvaNeural`
	_, err := c.Synthesize(context.Background(), "hello", voice, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))
	assert.Equal(t, 0, calls)
}

func TestBuildSSML_EscapesAttributes(t *testing.T) {
	ssml, err := buildSSML("hi", `en-US-A"Neural`, 1)
	require.NoError(t, err)
	assert.NotContains(t, ssml, `A"Neural`)
	assert.Contains(t, ssml, `<voice name="en-US-A&#34;Neural">`)
	assert.Contains(t, ssml, `<prosody rate="+0%">hi</prosody>`)
}

func TestValidVoice(t *testing.T) {
	for _, v := range []string{"en-US-AvaMultilingualNeural", "th-TH-PremwadeeNeural", "zh-CN-henan-YundengNeural", "fil-PH-BlessicaNeural"} {
		assert.True(t, ValidVoice(v), v)
	}
	for _, v := range []string{"", "en-US", "en-US-Ava", `en-US-Ava"Neural`, "en-US-Ava Neural", "EN-us-AvaNeural"} {
		assert.False(t, ValidVoice(v), v)
	}
}

func TestDeduplicateWords(t *testing.T) {
	words := []AssessedWord{
		{Word: "I", AccuracyScore: 100, ErrorType: "None"},
		{Word: "like", AccuracyScore: 40, ErrorType: "Mispronunciation"},
		{Word: "like", AccuracyScore: 80, ErrorType: "Insertion"},
		{Word: "like", AccuracyScore: 90, ErrorType: "None"},
		{Word: "tea", AccuracyScore: 70, ErrorType: "None"},
		{Word: "tea", AccuracyScore: 50, ErrorType: "None"},
	}

	got := DeduplicateWords(words)
	require.Len(t, got, 4)
	assert.Equal(t, "I", got[0].Word)
	assert.Equal(t, "Insertion", got[1].ErrorType)
	assert.Equal(t, 70.0, got[1].AccuracyScore)
	// Without an Insertion the duplicates stay.
	assert.Equal(t, "tea", got[2].Word)
	assert.Equal(t, "tea", got[3].Word)
}

func TestVoiceFor(t *testing.T) {
	assert.Equal(t, "zh-CN-XiaoxiaoNeural", VoiceFor("zh-CN"))
	assert.Equal(t, "th-TH-PremwadeeNeural", VoiceFor("TH-th"))
	assert.Equal(t, "en-US-AvaMultilingualNeural", VoiceFor("xx-YY"))
	assert.Equal(t, "ja-JP", voiceLanguage(VoiceFor("ja-JP")))
}
