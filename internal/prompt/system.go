package prompt

import (
	"fmt"
	"strings"
)

// Options describes one coaching conversation.
type Options struct {
	Persona        Persona
	Tone           Tone
	Level          Level
	Language       string
	LearnerName    string
	NativeLanguage string
	Scenario       string
}

// Normalize fills defaults and validates the enum fields.
func (o Options) Normalize() (Options, error) {
	var err error
	if o.Persona, err = ParsePersona(string(o.Persona)); err != nil {
		return o, err
	}
	if o.Tone, err = ParseTone(string(o.Tone)); err != nil {
		return o, err
	}
	if o.Level, err = ParseLevel(string(o.Level)); err != nil {
		return o, err
	}
	o.Language = strings.TrimSpace(o.Language)
	if o.Language == "" {
		o.Language = DefaultLanguage
	}
	o.LearnerName = strings.TrimSpace(o.LearnerName)
	o.NativeLanguage = strings.TrimSpace(o.NativeLanguage)
	o.Scenario = strings.TrimSpace(o.Scenario)
	return o, nil
}

// BuildSystemPrompt renders the system prompt for a conversation.
func BuildSystemPrompt(opts Options) (string, error) {
	opts, err := opts.Normalize()
	if err != nil {
		return "", err
	}

	guide := guideFor(opts.Level)
	lang := LanguageName(opts.Language)

	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, helping a language learner practise speaking %s.\n", personaDescription(opts.Persona), lang)
	fmt.Fprintf(&b, "Tone: %s\n", toneInstruction(opts.Tone))
	fmt.Fprintf(&b, "The learner is at CEFR level %s (%s). Use %s and %s.\n",
		opts.Level, guide.description, guide.vocabulary, guide.grammar)

	if opts.LearnerName != "" {
		fmt.Fprintf(&b, "The learner's name is %s.\n", opts.LearnerName)
	}
	if opts.NativeLanguage != "" {
		fmt.Fprintf(&b, "Their native language is %s; expect pronunciation habits carried over from it.\n", LanguageName(opts.NativeLanguage))
	}
	if opts.Scenario != "" {
		fmt.Fprintf(&b, "Scenario: %s\n", opts.Scenario)
	}

	b.WriteString("Rules:\n")
	b.WriteString("- Stay in character for the whole conversation.\n")
	fmt.Fprintf(&b, "- Always reply in %s, even if the learner switches language.\n", lang)
	fmt.Fprintf(&b, "- Keep each reply to at most %d short sentences so it is easy to read aloud.\n", guide.maxSentences)
	b.WriteString("- End every reply with a question that keeps the learner talking.\n")
	b.WriteString("- If the learner makes a mistake, gently recast one error by using the correct form naturally. Do not lecture.\n")

	return b.String(), nil
}

// OpeningInstruction is the user turn that asks the model for its first line.
func OpeningInstruction() string {
	return "Start the conversation now with a short greeting in character."
}
