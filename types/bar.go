package types

import (
	"math"
	"sort"
	"time"
)

// OHLC holds one interval of prices for a single symbol, as delivered by the
// market data provider. Missing data is represented as NaN.
type OHLC struct {
	Open  float64 `json:"o"`
	High  float64 `json:"h"`
	Low   float64 `json:"l"`
	Close float64 `json:"c"`
}

// Finite reports whether all four prices are usable numbers.
func (o OHLC) Finite() bool {
	return isFinite(o.Open) && isFinite(o.High) && isFinite(o.Low) && isFinite(o.Close)
}

// Bar is one row of a Dataset: the OHLC values of every symbol for a single timestamp.
type Bar struct {
	Time   time.Time
	prices map[string]OHLC
}

func NewBar(t time.Time, prices map[string]OHLC) Bar {
	cp := make(map[string]OHLC, len(prices))
	for sym, p := range prices {
		cp[sym] = p
	}
	return Bar{
		Time:   t.UTC().Truncate(time.Millisecond),
		prices: cp,
	}
}

// NewBarFromMillis builds a Bar keyed by a millisecond UTC timestamp.
func NewBarFromMillis(ms int64, prices map[string]OHLC) Bar {
	return NewBar(time.UnixMilli(ms), prices)
}

func (b Bar) Timestamp() int64 {
	return b.Time.UnixMilli()
}

func (b Bar) OHLC(symbol string) (OHLC, bool) {
	p, ok := b.prices[symbol]
	return p, ok
}

// Symbols returns the symbols present in the bar, sorted.
func (b Bar) Symbols() []string {
	out := make([]string, 0, len(b.prices))
	for sym := range b.prices {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
