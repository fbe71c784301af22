package types

import (
	"fmt"
	"time"
)

// Timeframe bounds a query to recent memories
type Timeframe string

const (
	TimeframeAll   Timeframe = ""
	TimeframeDay   Timeframe = "day"
	TimeframeWeek  Timeframe = "week"
	TimeframeMonth Timeframe = "month"
)

func (t Timeframe) IsValid() bool {
	switch t {
	case TimeframeAll, TimeframeDay, TimeframeWeek, TimeframeMonth:
		return true
	default:
		return false
	}
}

func (t Timeframe) String() string {
	if t == TimeframeAll {
		return "all"
	}
	return string(t)
}

// Duration returns the lookback window. TimeframeAll returns 0.
func (t Timeframe) Duration() time.Duration {
	switch t {
	case TimeframeDay:
		return 24 * time.Hour
	case TimeframeWeek:
		return 7 * 24 * time.Hour
	case TimeframeMonth:
		return 30 * 24 * time.Hour
	default:
		return 0
	}
}

// Since returns the lower bound of the window relative to now, or the zero
// time for TimeframeAll.
func (t Timeframe) Since(now time.Time) time.Time {
	d := t.Duration()
	if d == 0 {
		return time.Time{}
	}
	return now.Add(-d)
}

// ParseTimeframe parses a string into a Timeframe. "all" and "" both mean no bound.
func ParseTimeframe(s string) (Timeframe, error) {
	if s == "all" {
		return TimeframeAll, nil
	}
	t := Timeframe(s)
	if !t.IsValid() {
		return "", fmt.Errorf("invalid timeframe: %s", s)
	}
	return t, nil
}
