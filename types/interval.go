package types

import (
	"fmt"
	"time"
)

type Interval string

const (
	OneMinute      Interval = "minute"
	FiveMinutes    Interval = "5minute"
	FifteenMinutes Interval = "15minute"
	Hour           Interval = "hour"
	Day            Interval = "day"
	Week           Interval = "week"
)

var intervalDurations = map[Interval]time.Duration{
	OneMinute:      time.Minute,
	FiveMinutes:    5 * time.Minute,
	FifteenMinutes: 15 * time.Minute,
	Hour:           time.Hour,
	Day:            24 * time.Hour,
	Week:           7 * 24 * time.Hour,
}

// Duration returns the bar length, or zero for an unknown interval.
func (i Interval) Duration() time.Duration {
	return intervalDurations[i]
}

func ParseInterval(s string) (Interval, error) {
	i := Interval(s)
	if _, ok := intervalDurations[i]; !ok {
		return "", fmt.Errorf("unknown interval %q", s)
	}
	return i, nil
}
