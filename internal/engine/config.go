package engine

import (
	"barreplay/types"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DataFeedConfig describes what to load from the data provider for RunFeed.
type DataFeedConfig struct {
	tickers    []string
	interval   types.Interval
	start      time.Time
	end        time.Time
	warmupBars int
}

// NewDataFeedConfig loads 7 intervals before start by default. They exist
// only so the replay window can anchor on the bar at or before start when
// start falls on a gap such as a weekend. Strategy history begins at that
// anchor bar, so the warmup bars are never handed to the strategy.
func NewDataFeedConfig(tickers []string, interval types.Interval, start, end time.Time) *DataFeedConfig {
	return &DataFeedConfig{
		tickers:    tickers,
		interval:   interval,
		start:      start,
		end:        end,
		warmupBars: 7,
	}
}

// WithWarmup sets how many intervals before start are loaded.
func (f *DataFeedConfig) WithWarmup(bars int) *DataFeedConfig {
	if bars >= 0 {
		f.warmupBars = bars
	}
	return f
}

func (f *DataFeedConfig) loadStart() time.Time {
	return f.start.Add(-time.Duration(f.warmupBars) * f.interval.Duration())
}

type config struct {
	initialCash      decimal.Decimal
	allowLimitOrders bool
	logger           *zap.Logger
	progress         io.Writer
}

func defaultConfig() config {
	return config{
		initialCash: decimal.Zero,
		logger:      zap.NewNop(),
	}
}

type Option func(*config)

// WithInitialCash sets the balance a new engine starts with.
func WithInitialCash(cash decimal.Decimal) Option {
	return func(c *config) {
		c.initialCash = cash
	}
}

// WithLimitOrders accepts limit orders at submission. Without it only market
// orders are accepted.
func WithLimitOrders() Option {
	return func(c *config) {
		c.allowLimitOrders = true
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithProgress renders a progress bar to w while Run is replaying bars.
func WithProgress(w io.Writer) Option {
	return func(c *config) {
		c.progress = w
	}
}
