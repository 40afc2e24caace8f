package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_DefaultsAndCaseInsensitivity(t *testing.T) {
	p, err := ParsePersona("")
	require.NoError(t, err)
	assert.Equal(t, PersonaTutor, p)

	p, err = ParsePersona("  Barista ")
	require.NoError(t, err)
	assert.Equal(t, PersonaBarista, p)

	tone, err := ParseTone("FORMAL")
	require.NoError(t, err)
	assert.Equal(t, ToneFormal, tone)

	lvl, err := ParseLevel("c1")
	require.NoError(t, err)
	assert.Equal(t, LevelC1, lvl)

	lvl, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, LevelB1, lvl)
}

func TestParse_Unknown(t *testing.T) {
	_, err := ParsePersona("pirate")
	assert.ErrorIs(t, err, ErrUnknownPersona)

	_, err = ParseTone("angry")
	assert.ErrorIs(t, err, ErrUnknownTone)

	_, err = ParseLevel("D1")
	assert.ErrorIs(t, err, ErrUnknownLevel)
}

func TestBuildSystemPrompt_InterpolatesEverything(t *testing.T) {
	got, err := BuildSystemPrompt(Options{
		Persona:        PersonaBarista,
		Tone:           TonePlayful,
		Level:          "a2",
		Language:       "en-GB",
		LearnerName:    "Mai",
		NativeLanguage: "th-TH",
		Scenario:       "Ordering a flat white to take away",
	})
	require.NoError(t, err)

	assert.Contains(t, got, "a barista at a busy coffee shop")
	assert.Contains(t, got, "practise speaking British English")
	assert.Contains(t, got, "Be light-hearted and playful")
	assert.Contains(t, got, "CEFR level A2 (Elementary)")
	assert.Contains(t, got, "The learner's name is Mai.")
	assert.Contains(t, got, "Their native language is Thai")
	assert.Contains(t, got, "Scenario: Ordering a flat white to take away")
	assert.Contains(t, got, "at most 2 short sentences")
	assert.Contains(t, got, "Always reply in British English")
}

func TestBuildSystemPrompt_DefaultsAndOmissions(t *testing.T) {
	got, err := BuildSystemPrompt(Options{})
	require.NoError(t, err)

	assert.Contains(t, got, "pronunciation tutor")
	assert.Contains(t, got, "American English")
	assert.Contains(t, got, "CEFR level B1 (Intermediate)")
	assert.Contains(t, got, "at most 3 short sentences")
	assert.NotContains(t, got, "learner's name")
	assert.NotContains(t, got, "Scenario:")
	assert.NotContains(t, got, "native language")
}

func TestBuildSystemPrompt_UnknownLanguageUsesCode(t *testing.T) {
	got, err := BuildSystemPrompt(Options{Language: "nl-NL"})
	require.NoError(t, err)
	assert.Contains(t, got, "practise speaking nl-NL")
}

func TestBuildSystemPrompt_Deterministic(t *testing.T) {
	opts := Options{Persona: PersonaExaminer, Tone: ToneFormal, Level: LevelC2}
	a, err := BuildSystemPrompt(opts)
	require.NoError(t, err)
	b, err := BuildSystemPrompt(opts)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestBuildSystemPrompt_RejectsUnknownTone(t *testing.T) {
	_, err := BuildSystemPrompt(Options{Tone: "sarcastic"})
	assert.ErrorIs(t, err, ErrUnknownTone)
}

func TestFocusWords(t *testing.T) {
	words := []WordScore{
		{Word: "the", Accuracy: 99, ErrorType: "None"},
		{Word: "thought", Accuracy: 41, ErrorType: "Mispronunciation"},
		{Word: "three", Accuracy: 72, ErrorType: "None"},
		{Word: "very", Accuracy: 0, ErrorType: "Omission"},
		{Word: "well", Accuracy: 95, ErrorType: "Insertion"},
	}

	focus := FocusWords(words)
	require.Len(t, focus, 4)
	assert.Equal(t, "very", focus[0].Word)
	assert.Equal(t, "thought", focus[1].Word)
	assert.Equal(t, "three", focus[2].Word)
	assert.Equal(t, "well", focus[3].Word)
}

func TestFocusWords_CapsAtEight(t *testing.T) {
	var words []WordScore
	for i := 0; i < 12; i++ {
		words = append(words, WordScore{Word: strings.Repeat("a", i+1), Accuracy: float64(i)})
	}
	assert.Len(t, FocusWords(words), 8)
}

func TestBuildFeedbackPrompt(t *testing.T) {
	system, user := BuildFeedbackPrompt(FeedbackInput{
		Language:       "fr-FR",
		ReferenceText:  "Je voudrais un croissant",
		RecognizedText: "Je voudrais un croissant",
		Accuracy:       78.4,
		Fluency:        90,
		Completeness:   100,
		Prosody:        70,
		Pronunciation:  81.2,
		Words: []WordScore{
			{Word: "voudrais", Accuracy: 55, ErrorType: "Mispronunciation"},
		},
	})

	assert.Contains(t, system, "French pronunciation coach")
	assert.Contains(t, system, `"focus_words"`)
	assert.Contains(t, user, `Reference text: "Je voudrais un croissant"`)
	assert.Contains(t, user, "pronunciation 81, accuracy 78")
	assert.Contains(t, user, "- voudrais: accuracy 55, error Mispronunciation")
}

func TestBuildFeedbackPrompt_NoFlaggedWords(t *testing.T) {
	_, user := BuildFeedbackPrompt(FeedbackInput{ReferenceText: "hi"})
	assert.Contains(t, user, "No individual words were flagged.")
}

func TestCatalogs(t *testing.T) {
	assert.Len(t, Personas(), 6)
	assert.Len(t, Tones(), 4)
	levels := Levels()
	require.Len(t, levels, 6)
	assert.Equal(t, "A1", levels[0].ID)
	assert.Equal(t, "C2", levels[5].ID)
	assert.Equal(t, "Mandarin Chinese", LanguageName("zh-CN"))
	assert.NotEmpty(t, Languages())
}
