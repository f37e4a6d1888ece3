package types

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

var ErrUnorderedBars = errors.New("bar timestamps must be strictly increasing")

// Dataset is a read-only, time-indexed table of bars. Timestamps are strictly
// increasing and unique.
type Dataset struct {
	bars []Bar
}

func NewDataset(bars []Bar) (Dataset, error) {
	for i := 1; i < len(bars); i++ {
		if !bars[i].Time.After(bars[i-1].Time) {
			return Dataset{}, fmt.Errorf("bar %d at %s after %s: %w",
				i, bars[i].Time.Format(time.RFC3339), bars[i-1].Time.Format(time.RFC3339), ErrUnorderedBars)
		}
	}
	cp := make([]Bar, len(bars))
	copy(cp, bars)
	return Dataset{bars: cp}, nil
}

func (d Dataset) Len() int {
	return len(d.bars)
}

func (d Dataset) At(i int) Bar {
	return d.bars[i]
}

func (d Dataset) First() Bar {
	return d.bars[0]
}

func (d Dataset) Last() Bar {
	return d.bars[len(d.bars)-1]
}

// Slice returns the bars in [i, j). The result shares storage with d, which is
// safe because neither exposes its backing slice.
func (d Dataset) Slice(i, j int) Dataset {
	return Dataset{bars: d.bars[i:j:j]}
}

// Index finds the bar stamped exactly at t.
func (d Dataset) Index(t time.Time) (int, bool) {
	i := sort.Search(len(d.bars), func(i int) bool {
		return !d.bars[i].Time.Before(t)
	})
	if i < len(d.bars) && d.bars[i].Time.Equal(t) {
		return i, true
	}
	return i, false
}

// Times returns the timestamps of all bars in order.
func (d Dataset) Times() []time.Time {
	out := make([]time.Time, len(d.bars))
	for i, b := range d.bars {
		out[i] = b.Time
	}
	return out
}

// Symbols returns every symbol that appears in at least one bar, sorted.
func (d Dataset) Symbols() []string {
	seen := make(map[string]struct{})
	for _, b := range d.bars {
		for sym := range b.prices {
			seen[sym] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for sym := range seen {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}
