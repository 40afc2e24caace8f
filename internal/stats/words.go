package stats

import (
	"sort"
	"strings"
	"unicode"
)

const weakAccuracyThreshold = 80.0

// WordResult is one word from one attempt.
type WordResult struct {
	Word      string  `json:"word"`
	Accuracy  float64 `json:"accuracy"`
	ErrorType string  `json:"error_type"`
}

// WordStat aggregates a word across attempts.
type WordStat struct {
	Word            string  `json:"word"`
	Occurrences     int     `json:"occurrences"`
	AverageAccuracy float64 `json:"average_accuracy"`
	Errors          int     `json:"errors"`
}

// NormalizeWord lowercases w and trims surrounding punctuation.
func NormalizeWord(w string) string {
	return strings.ToLower(strings.TrimFunc(w, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
	}))
}

func isError(errorType string) bool {
	return errorType != "" && errorType != "None"
}

// WeakWords finds the words a learner struggles with most. A word qualifies
// when it was seen at least minOccurrences times and either averages below
// 80 or carried an error at least once.
func WeakWords(attempts [][]WordResult, minOccurrences, limit int) []WordStat {
	type acc struct {
		n      int
		sum    float64
		errors int
	}
	byWord := make(map[string]*acc)

	for _, words := range attempts {
		for _, w := range words {
			key := NormalizeWord(w.Word)
			if key == "" {
				continue
			}
			a, ok := byWord[key]
			if !ok {
				a = &acc{}
				byWord[key] = a
			}
			a.n++
			a.sum += w.Accuracy
			if isError(w.ErrorType) {
				a.errors++
			}
		}
	}

	out := make([]WordStat, 0)
	for word, a := range byWord {
		if a.n < minOccurrences {
			continue
		}
		avg := a.sum / float64(a.n)
		if avg >= weakAccuracyThreshold && a.errors == 0 {
			continue
		}
		out = append(out, WordStat{
			Word:            word,
			Occurrences:     a.n,
			AverageAccuracy: avg,
			Errors:          a.errors,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].AverageAccuracy != out[j].AverageAccuracy {
			return out[i].AverageAccuracy < out[j].AverageAccuracy
		}
		if out[i].Errors != out[j].Errors {
			return out[i].Errors > out[j].Errors
		}
		return out[i].Word < out[j].Word
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
