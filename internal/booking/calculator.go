// Package booking prices a rental and drives the date → confirm → done flow
// of the booking form.
package booking

import (
	"time"

	"carrental/internal/models"
)

const day = 24 * time.Hour

// ComputeDuration returns the rental length in whole days: the absolute span
// rounded up, never less than one day. Dates are calendar days so the result
// does not depend on time zones or DST.
func ComputeDuration(start, end models.Date) int {
	diff := end.Midnight().Sub(start.Midnight())
	if diff < 0 {
		diff = -diff
	}
	days := int((diff + day - 1) / day)
	if days < 1 {
		return 1
	}
	return days
}

// ComputeTotal is duration × rate.
func ComputeTotal(duration int, perDayRate int64) int64 {
	return int64(duration) * perDayRate
}

// Quote is a priced date range.
type Quote struct {
	Start      models.Date
	End        models.Date
	Days       int
	PerDayRate int64
	Total      int64
}

// NewQuote prices [start, end] at perDayRate.
func NewQuote(start, end models.Date, perDayRate int64) Quote {
	days := ComputeDuration(start, end)
	return Quote{
		Start:      start,
		End:        end,
		Days:       days,
		PerDayRate: perDayRate,
		Total:      ComputeTotal(days, perDayRate),
	}
}
