// Package prompt builds the LLM prompts used by the coaching endpoints.
//
// A conversation's system prompt is assembled from three catalog entries
// (persona, tone, CEFR level) plus learner details.
package prompt

import (
	"errors"
	"strings"
)

var (
	ErrUnknownPersona = errors.New("unknown persona")
	ErrUnknownTone    = errors.New("unknown tone")
	ErrUnknownLevel   = errors.New("unknown CEFR level")
)

// Persona is the character the coach plays.
type Persona string

const (
	PersonaTutor       Persona = "tutor"
	PersonaFriend      Persona = "friend"
	PersonaBarista     Persona = "barista"
	PersonaInterviewer Persona = "interviewer"
	PersonaTravelAgent Persona = "travel_agent"
	PersonaExaminer    Persona = "examiner"

	DefaultPersona = PersonaTutor
)

// Tone controls how the persona speaks.
type Tone string

const (
	ToneEncouraging Tone = "encouraging"
	ToneNeutral     Tone = "neutral"
	TonePlayful     Tone = "playful"
	ToneFormal      Tone = "formal"

	DefaultTone = ToneEncouraging
)

// Level is a CEFR proficiency level.
type Level string

const (
	LevelA1 Level = "A1"
	LevelA2 Level = "A2"
	LevelB1 Level = "B1"
	LevelB2 Level = "B2"
	LevelC1 Level = "C1"
	LevelC2 Level = "C2"

	DefaultLevel = LevelB1
)

// DefaultLanguage is used when a request names no target language.
const DefaultLanguage = "en-US"

// CatalogEntry is a selectable option exposed to the frontend.
type CatalogEntry struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

type levelGuide struct {
	description  string
	vocabulary   string
	grammar      string
	maxSentences int
}

var personas = []struct {
	id   Persona
	desc string
}{
	{PersonaTutor, "a patient pronunciation tutor who models clear, natural speech"},
	{PersonaFriend, "a friendly peer chatting casually about everyday life"},
	{PersonaBarista, "a barista at a busy coffee shop taking the learner's order"},
	{PersonaInterviewer, "a hiring manager running a job interview"},
	{PersonaTravelAgent, "a travel agent helping the learner plan a trip"},
	{PersonaExaminer, "an oral examiner conducting a speaking test"},
}

var tones = []struct {
	id   Tone
	desc string
}{
	{ToneEncouraging, "Be warm and encouraging. Praise effort before correcting."},
	{ToneNeutral, "Be calm and matter-of-fact."},
	{TonePlayful, "Be light-hearted and playful, with the occasional joke."},
	{ToneFormal, "Be polite and formal. Avoid slang and contractions."},
}

var levels = []struct {
	id    Level
	guide levelGuide
}{
	{LevelA1, levelGuide{
		description:  "Beginner",
		vocabulary:   "the most common 500 words",
		grammar:      "present simple and very short sentences",
		maxSentences: 2,
	}},
	{LevelA2, levelGuide{
		description:  "Elementary",
		vocabulary:   "everyday words about family, shopping, work and local places",
		grammar:      "simple past, future with 'going to', and linked simple sentences",
		maxSentences: 2,
	}},
	{LevelB1, levelGuide{
		description:  "Intermediate",
		vocabulary:   "familiar topics, opinions and plans",
		grammar:      "present perfect, first conditional and relative clauses",
		maxSentences: 3,
	}},
	{LevelB2, levelGuide{
		description:  "Upper intermediate",
		vocabulary:   "abstract topics and common idioms",
		grammar:      "all conditionals, passive voice and reported speech",
		maxSentences: 4,
	}},
	{LevelC1, levelGuide{
		description:  "Advanced",
		vocabulary:   "precise, nuanced and idiomatic language",
		grammar:      "complex structures used flexibly",
		maxSentences: 5,
	}},
	{LevelC2, levelGuide{
		description:  "Proficient",
		vocabulary:   "the full range of native-like expression",
		grammar:      "any structure, including subtle register shifts",
		maxSentences: 5,
	}},
}

var languageNames = map[string]string{
	"en-us": "American English",
	"en-gb": "British English",
	"en-au": "Australian English",
	"es-es": "Spanish (Spain)",
	"es-mx": "Spanish (Mexico)",
	"fr-fr": "French",
	"de-de": "German",
	"it-it": "Italian",
	"pt-br": "Brazilian Portuguese",
	"ja-jp": "Japanese",
	"ko-kr": "Korean",
	"zh-cn": "Mandarin Chinese",
	"th-th": "Thai",
}

// ParsePersona resolves a persona id. An empty value selects DefaultPersona.
func ParsePersona(s string) (Persona, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultPersona, nil
	}
	for _, p := range personas {
		if string(p.id) == s {
			return p.id, nil
		}
	}
	return "", ErrUnknownPersona
}

// ParseTone resolves a tone id. An empty value selects DefaultTone.
func ParseTone(s string) (Tone, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultTone, nil
	}
	for _, t := range tones {
		if string(t.id) == s {
			return t.id, nil
		}
	}
	return "", ErrUnknownTone
}

// ParseLevel resolves a CEFR level, case-insensitively. An empty value
// selects DefaultLevel.
func ParseLevel(s string) (Level, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return DefaultLevel, nil
	}
	for _, l := range levels {
		if string(l.id) == s {
			return l.id, nil
		}
	}
	return "", ErrUnknownLevel
}

// LanguageName returns a display name for a BCP-47 code, or the code itself
// when it is not in the table.
func LanguageName(code string) string {
	if name, ok := languageNames[strings.ToLower(code)]; ok {
		return name
	}
	return code
}

func personaDescription(p Persona) string {
	for _, e := range personas {
		if e.id == p {
			return e.desc
		}
	}
	return ""
}

func toneInstruction(t Tone) string {
	for _, e := range tones {
		if e.id == t {
			return e.desc
		}
	}
	return ""
}

func guideFor(l Level) levelGuide {
	for _, e := range levels {
		if e.id == l {
			return e.guide
		}
	}
	return levelGuide{}
}

// Personas lists the selectable personas in display order.
func Personas() []CatalogEntry {
	out := make([]CatalogEntry, 0, len(personas))
	for _, p := range personas {
		out = append(out, CatalogEntry{ID: string(p.id), Description: p.desc})
	}
	return out
}

// Tones lists the selectable tones in display order.
func Tones() []CatalogEntry {
	out := make([]CatalogEntry, 0, len(tones))
	for _, t := range tones {
		out = append(out, CatalogEntry{ID: string(t.id), Description: t.desc})
	}
	return out
}

// Levels lists the CEFR levels from A1 to C2.
func Levels() []CatalogEntry {
	out := make([]CatalogEntry, 0, len(levels))
	for _, l := range levels {
		out = append(out, CatalogEntry{ID: string(l.id), Description: l.guide.description})
	}
	return out
}

// Languages lists the known target languages in display order.
func Languages() []CatalogEntry {
	codes := []string{"en-US", "en-GB", "en-AU", "es-ES", "es-MX", "fr-FR", "de-DE", "it-IT", "pt-BR", "ja-JP", "ko-KR", "zh-CN", "th-TH"}
	out := make([]CatalogEntry, 0, len(codes))
	for _, c := range codes {
		out = append(out, CatalogEntry{ID: c, Description: LanguageName(c)})
	}
	return out
}
