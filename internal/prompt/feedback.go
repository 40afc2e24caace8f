package prompt

import (
	"fmt"
	"sort"
	"strings"
)

const (
	focusAccuracyThreshold = 80.0
	maxFocusWords          = 8
)

// WordScore is one word of a pronunciation assessment.
type WordScore struct {
	Word      string
	Accuracy  float64
	ErrorType string
}

// FeedbackInput is an assessed attempt to be explained by the LLM.
type FeedbackInput struct {
	Language       string
	ReferenceText  string
	RecognizedText string
	Accuracy       float64
	Fluency        float64
	Completeness   float64
	Prosody        float64
	Pronunciation  float64
	Words          []WordScore
}

// FocusWords picks the words worth talking about, worst first.
func FocusWords(words []WordScore) []WordScore {
	var focus []WordScore
	for _, w := range words {
		hasError := w.ErrorType != "" && w.ErrorType != "None"
		if hasError || w.Accuracy < focusAccuracyThreshold {
			focus = append(focus, w)
		}
	}
	sort.SliceStable(focus, func(i, j int) bool {
		return focus[i].Accuracy < focus[j].Accuracy
	})
	if len(focus) > maxFocusWords {
		focus = focus[:maxFocusWords]
	}
	return focus
}

// BuildFeedbackPrompt returns the system and user messages asking the model
// to explain an assessment. The model must answer with a JSON object of the
// form {"summary": string, "tips": [string], "focus_words": [string]}.
func BuildFeedbackPrompt(in FeedbackInput) (system, user string) {
	lang := in.Language
	if lang == "" {
		lang = DefaultLanguage
	}

	system = fmt.Sprintf("You are an expert %s pronunciation coach. "+
		"Explain assessment results in plain, friendly language a learner can act on. "+
		"Respond ONLY with a JSON object with the keys \"summary\" (string), "+
		"\"tips\" (array of at most 3 strings) and \"focus_words\" (array of strings). "+
		"Do not wrap the JSON in markdown.", LanguageName(lang))

	var b strings.Builder
	fmt.Fprintf(&b, "Reference text: %q\n", in.ReferenceText)
	fmt.Fprintf(&b, "What the recognizer heard: %q\n", in.RecognizedText)
	fmt.Fprintf(&b, "Scores (0-100): pronunciation %.0f, accuracy %.0f, fluency %.0f, completeness %.0f, prosody %.0f\n",
		in.Pronunciation, in.Accuracy, in.Fluency, in.Completeness, in.Prosody)

	focus := FocusWords(in.Words)
	if len(focus) == 0 {
		b.WriteString("No individual words were flagged.\n")
	} else {
		b.WriteString("Flagged words:\n")
		for _, w := range focus {
			errType := w.ErrorType
			if errType == "" {
				errType = "None"
			}
			fmt.Fprintf(&b, "- %s: accuracy %.0f, error %s\n", w.Word, w.Accuracy, errType)
		}
	}
	return system, b.String()
}
