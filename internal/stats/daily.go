package stats

import (
	"sort"
	"time"
)

const dayLayout = "2006-01-02"

// DayBucket is the activity of one calendar day.
type DayBucket struct {
	Date                 string  `json:"date"`
	Attempts             int     `json:"attempts"`
	AveragePronunciation float64 `json:"average_pronunciation"`
}

// Daily groups samples by calendar day in loc, oldest day first.
func Daily(samples []Sample, loc *time.Location) []DayBucket {
	if loc == nil {
		loc = time.UTC
	}

	type acc struct {
		n   int
		sum float64
	}
	byDay := make(map[string]*acc)
	var order []string

	for _, s := range samples {
		day := s.At.In(loc).Format(dayLayout)
		a, ok := byDay[day]
		if !ok {
			a = &acc{}
			byDay[day] = a
			order = append(order, day)
		}
		a.n++
		a.sum += s.Scores.Pronunciation
	}

	// Layout sorts lexically in date order.
	sort.Strings(order)

	out := make([]DayBucket, 0, len(order))
	for _, day := range order {
		a := byDay[day]
		out = append(out, DayBucket{
			Date:                 day,
			Attempts:             a.n,
			AveragePronunciation: a.sum / float64(a.n),
		})
	}
	return out
}

// Streak counts consecutive active days ending today. If today has no
// activity yet the streak may still end yesterday.
func Streak(days []DayBucket, today time.Time) int {
	active := make(map[string]bool, len(days))
	for _, d := range days {
		if d.Attempts > 0 {
			active[d.Date] = true
		}
	}

	cursor := today
	if !active[cursor.Format(dayLayout)] {
		cursor = cursor.AddDate(0, 0, -1)
	}

	streak := 0
	for active[cursor.Format(dayLayout)] {
		streak++
		cursor = cursor.AddDate(0, 0, -1)
	}
	return streak
}
