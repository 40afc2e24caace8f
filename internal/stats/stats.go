// Package stats aggregates pronunciation attempts into progress figures.
package stats

import (
	"errors"
	"sort"
	"time"
)

// ErrInvalidWindow is returned for a non-positive averaging window.
var ErrInvalidWindow = errors.New("window must be positive")

// Scores are the five Azure pronunciation dimensions, each 0-100.
type Scores struct {
	Accuracy      float64 `json:"accuracy"`
	Fluency       float64 `json:"fluency"`
	Completeness  float64 `json:"completeness"`
	Prosody       float64 `json:"prosody"`
	Pronunciation float64 `json:"pronunciation"`
}

// Sample is one scored attempt.
type Sample struct {
	At     time.Time
	Scores Scores
}

// DeltaResult compares the most recent window with the one before it.
type DeltaResult struct {
	Recent      float64 `json:"recent"`
	Previous    float64 `json:"previous"`
	Change      float64 `json:"change"`
	HasPrevious bool    `json:"has_previous"`
}

// Dimension summarises one score dimension.
type Dimension struct {
	Latest  float64     `json:"latest"`
	Best    float64     `json:"best"`
	Mean    float64     `json:"mean"`
	Rolling []float64   `json:"rolling"`
	Delta   DeltaResult `json:"delta"`
}

// Summary is the per-dimension view of a user's attempts.
type Summary struct {
	Count         int        `json:"count"`
	Window        int        `json:"window"`
	First         *time.Time `json:"first,omitempty"`
	Last          *time.Time `json:"last,omitempty"`
	Accuracy      Dimension  `json:"accuracy"`
	Fluency       Dimension  `json:"fluency"`
	Completeness  Dimension  `json:"completeness"`
	Prosody       Dimension  `json:"prosody"`
	Pronunciation Dimension  `json:"pronunciation"`
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// RollingAverage returns, for each position i, the mean of the window ending
// at i. Leading positions average over however many values exist.
func RollingAverage(values []float64, window int) ([]float64, error) {
	if window <= 0 {
		return nil, ErrInvalidWindow
	}
	out := make([]float64, len(values))
	var sum float64
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		n := min(i+1, window)
		out[i] = sum / float64(n)
	}
	return out, nil
}

// Delta compares the mean of the last window values with the mean of up to
// window values preceding them.
func Delta(values []float64, window int) (DeltaResult, error) {
	if window <= 0 {
		return DeltaResult{}, ErrInvalidWindow
	}
	if len(values) == 0 {
		return DeltaResult{}, nil
	}

	split := max(len(values)-window, 0)
	res := DeltaResult{Recent: mean(values[split:])}
	if split == 0 {
		return res, nil
	}

	start := max(split-window, 0)
	res.Previous = mean(values[start:split])
	res.HasPrevious = true
	res.Change = res.Recent - res.Previous
	return res, nil
}

func summarizeDimension(values []float64, window int) (Dimension, error) {
	d := Dimension{Rolling: []float64{}}
	if len(values) == 0 {
		return d, nil
	}

	rolling, err := RollingAverage(values, window)
	if err != nil {
		return d, err
	}
	delta, err := Delta(values, window)
	if err != nil {
		return d, err
	}

	best := values[0]
	for _, v := range values[1:] {
		best = max(best, v)
	}

	d.Latest = values[len(values)-1]
	d.Best = best
	d.Mean = mean(values)
	d.Rolling = rolling
	d.Delta = delta
	return d, nil
}

// Summarize orders samples by time and summarises every dimension.
func Summarize(samples []Sample, window int) (Summary, error) {
	if window <= 0 {
		return Summary{}, ErrInvalidWindow
	}

	sorted := make([]Sample, len(samples))
	copy(sorted, samples)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].At.Before(sorted[j].At)
	})

	n := len(sorted)
	series := map[string][]float64{
		"accuracy":      make([]float64, n),
		"fluency":       make([]float64, n),
		"completeness":  make([]float64, n),
		"prosody":       make([]float64, n),
		"pronunciation": make([]float64, n),
	}
	for i, s := range sorted {
		series["accuracy"][i] = s.Scores.Accuracy
		series["fluency"][i] = s.Scores.Fluency
		series["completeness"][i] = s.Scores.Completeness
		series["prosody"][i] = s.Scores.Prosody
		series["pronunciation"][i] = s.Scores.Pronunciation
	}

	sum := Summary{Count: n, Window: window}
	if n > 0 {
		first, last := sorted[0].At, sorted[n-1].At
		sum.First, sum.Last = &first, &last
	}

	targets := []struct {
		key string
		dst *Dimension
	}{
		{"accuracy", &sum.Accuracy},
		{"fluency", &sum.Fluency},
		{"completeness", &sum.Completeness},
		{"prosody", &sum.Prosody},
		{"pronunciation", &sum.Pronunciation},
	}
	for _, t := range targets {
		d, err := summarizeDimension(series[t.key], window)
		if err != nil {
			return Summary{}, err
		}
		*t.dst = d
	}
	return sum, nil
}
