package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDaily_GroupsByLocalDay(t *testing.T) {
	bangkok := time.FixedZone("ICT", 7*60*60)
	samples := []Sample{
		// 2026-05-01 20:00 UTC is 2026-05-02 03:00 in Bangkok
		{At: time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC), Scores: Scores{Pronunciation: 80}},
		{At: time.Date(2026, 5, 2, 1, 0, 0, 0, time.UTC), Scores: Scores{Pronunciation: 60}},
		{At: time.Date(2026, 4, 30, 9, 0, 0, 0, time.UTC), Scores: Scores{Pronunciation: 50}},
	}

	got := Daily(samples, bangkok)
	require.Len(t, got, 2)
	assert.Equal(t, DayBucket{Date: "2026-04-30", Attempts: 1, AveragePronunciation: 50}, got[0])
	assert.Equal(t, DayBucket{Date: "2026-05-02", Attempts: 2, AveragePronunciation: 70}, got[1])

	utc := Daily(samples, nil)
	require.Len(t, utc, 3)
	assert.Equal(t, "2026-05-01", utc[1].Date)
}

func TestStreak(t *testing.T) {
	days := []DayBucket{
		{Date: "2026-05-01", Attempts: 1},
		{Date: "2026-05-03", Attempts: 2},
		{Date: "2026-05-04", Attempts: 1},
		{Date: "2026-05-05", Attempts: 3},
	}

	today := time.Date(2026, 5, 5, 18, 0, 0, 0, time.UTC)
	assert.Equal(t, 3, Streak(days, today))

	// No activity yet on the 6th: streak still counts through yesterday.
	assert.Equal(t, 3, Streak(days, today.AddDate(0, 0, 1)))

	// Two idle days break it.
	assert.Equal(t, 0, Streak(days, today.AddDate(0, 0, 2)))

	assert.Equal(t, 0, Streak(nil, today))
}
