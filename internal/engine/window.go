package engine

import (
	"barreplay/types"
	"errors"
	"fmt"
	"sort"
	"time"
)

var (
	ErrNaiveTime        = errors.New("time has no explicit zone")
	ErrInvalidRange     = errors.New("window start is after window end")
	ErrWindowOutOfRange = errors.New("window bounds fall outside the dataset")
)

// checkZone rejects instants whose zone was never chosen by the caller: the
// zero time and anything in time.Local, which silently follows the process
// environment.
func checkZone(name string, t time.Time) error {
	if t.IsZero() || t.Location() == time.Local {
		return fmt.Errorf("%s %s: %w", name, t, ErrNaiveTime)
	}
	return nil
}

// SliceWindow returns the bars of ds between start and end.
//
// The lower bound is the last bar at or before start. When start falls between
// two bars the window therefore begins on the bar just before start, which is
// what gives the first strategy call of a run one bar of context from before
// start. The upper bound is the first bar at or after end; it belongs to the
// window only if it is exactly end and includeEnd is set.
//
// Both bounds must exist in ds. A start before the first bar, or an end after
// the last bar, is a configuration error.
func SliceWindow(ds types.Dataset, start, end time.Time, includeEnd bool) (types.Dataset, error) {
	if err := checkZone("start", start); err != nil {
		return types.Dataset{}, err
	}
	if err := checkZone("end", end); err != nil {
		return types.Dataset{}, err
	}
	if start.After(end) {
		return types.Dataset{}, fmt.Errorf("%s > %s: %w", start.Format(time.RFC3339), end.Format(time.RFC3339), ErrInvalidRange)
	}

	n := ds.Len()
	lo := sort.Search(n, func(i int) bool { return ds.At(i).Time.After(start) }) - 1
	hi := sort.Search(n, func(i int) bool { return !ds.At(i).Time.Before(end) })
	if lo < 0 || lo >= n || hi < 0 || hi >= n {
		return types.Dataset{}, fmt.Errorf("[%s, %s] over %d bars (lo=%d, hi=%d): %w",
			start.Format(time.RFC3339), end.Format(time.RFC3339), n, lo, hi, ErrWindowOutOfRange)
	}

	stop := hi
	if includeEnd && ds.At(hi).Time.Equal(end) {
		stop = hi + 1
	}
	return ds.Slice(lo, stop), nil
}
