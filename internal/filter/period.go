package filter

import (
	"errors"
	"fmt"
	"time"
)

type Period string

const (
	PeriodDay      Period = "day"
	PeriodWeek     Period = "week"
	PeriodMonth    Period = "month"
	PeriodQuarter  Period = "quarter"
	PeriodHalfYear Period = "halfYear"
	PeriodYear     Period = "year"
)

var ErrUnknownPeriod = errors.New("unknown period")

// Range is the half-open interval [Start, End).
type Range struct {
	Start time.Time
	End   time.Time
}

func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// Resolve turns a period name into the window of that length ending at now.
func Resolve(period Period, now time.Time) (Range, error) {
	var start time.Time
	switch period {
	case PeriodDay:
		start = now.AddDate(0, 0, -1)
	case PeriodWeek:
		start = now.AddDate(0, 0, -7)
	case PeriodMonth:
		start = now.AddDate(0, -1, 0)
	case PeriodQuarter:
		start = now.AddDate(0, -3, 0)
	case PeriodHalfYear:
		start = now.AddDate(0, -6, 0)
	case PeriodYear:
		start = now.AddDate(-1, 0, 0)
	default:
		return Range{}, fmt.Errorf("%w: %q", ErrUnknownPeriod, period)
	}
	return Range{Start: start, End: now}, nil
}
