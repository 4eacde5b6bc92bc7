package analytics

import (
	"time"

	"github.com/formbeat/go-survey-backend/internal/domain"
)

// DayFormat is the calendar-day key used throughout trend output.
const DayFormat = "2006-01-02"

// TrendPoint is the submission count of one UTC calendar day.
type TrendPoint struct {
	Day   string `json:"day"`
	Total int    `json:"total"`
}

// Trend is a zero-filled daily time series over [from, toExclusive).
// Charting code never has to handle missing days.
type Trend struct {
	Days   int          `json:"days"`
	From   string       `json:"from"`
	To     string       `json:"to"`
	Points []TrendPoint `json:"points"`
}

// BuildTrend buckets response timestamps by UTC calendar day and emits one
// point per day across the full range, including zero-count days. The end
// bound is exclusive: a date-only "to" filter is converted by the caller to
// midnight of the following day.
func BuildTrend(responses []domain.Response, from, toExclusive time.Time) Trend {
	from = from.UTC().Truncate(24 * time.Hour)
	toExclusive = toExclusive.UTC().Truncate(24 * time.Hour)

	counts := map[string]int{}
	for _, r := range responses {
		ts := r.CreatedAt.UTC()
		if ts.Before(from) || !ts.Before(toExclusive) {
			continue
		}
		counts[ts.Format(DayFormat)]++
	}

	t := Trend{
		From:   from.Format(DayFormat),
		To:     toExclusive.Format(DayFormat),
		Points: []TrendPoint{},
	}
	for day := from; day.Before(toExclusive); day = day.AddDate(0, 0, 1) {
		key := day.Format(DayFormat)
		t.Points = append(t.Points, TrendPoint{Day: key, Total: counts[key]})
	}
	t.Days = len(t.Points)
	return t
}
