package engine

import (
	"barreplay/types"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrEngineHalted  = errors.New("engine halted after a fatal error, reset required")
	ErrEngineRunning = errors.New("engine is running")
)

// Engine owns the state of one simulation: cash, the order list and the
// positions. It is not safe for concurrent use; independent backtests use
// independent engines.
type Engine struct {
	cfg       config
	logger    *zap.Logger
	portfolio *portfolio

	running bool
	halted  error
}

func NewEngine(opts ...Option) *Engine {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Engine{
		cfg:       cfg,
		logger:    cfg.logger,
		portfolio: newPortfolio(cfg.initialCash),
	}
}

func (e *Engine) SetCash(amount decimal.Decimal) error {
	if e.running {
		return ErrEngineRunning
	}
	e.portfolio.cash = amount
	return nil
}

// Reset clears orders, positions and cash, and lifts a halt.
func (e *Engine) Reset() error {
	if e.running {
		return ErrEngineRunning
	}
	e.portfolio = newPortfolio(decimal.Zero)
	e.halted = nil
	return nil
}

func (e *Engine) Cash() decimal.Decimal {
	return e.portfolio.cash
}

// Orders returns copies of all orders in submission order.
func (e *Engine) Orders() []types.Order {
	return e.portfolio.ordersView()
}

func (e *Engine) Positions() map[string]types.Position {
	return e.portfolio.positionsView()
}

// Run replays ds from start to end (inclusive) and returns one valuation per
// visited bar. start and end must carry an explicit zone.
//
// A fill that drives cash negative stops the run with an *InvariantError and
// halts the engine; the valuations recorded before it are returned with the
// error.
func (e *Engine) Run(strat Strategy, ds types.Dataset, start, end time.Time) ([]types.Valuation, error) {
	if e.running {
		return nil, ErrEngineRunning
	}
	if e.halted != nil {
		return nil, fmt.Errorf("%w: %v", ErrEngineHalted, e.halted)
	}
	if strat == nil {
		return nil, errors.New("strategy is nil")
	}

	e.running = true
	defer func() { e.running = false }()

	e.logger.Info("backtest started",
		zap.Time("start", start),
		zap.Time("end", end),
		zap.Int("bars", ds.Len()),
		zap.Stringer("cash", e.portfolio.cash),
	)
	valuations, err := e.backtest(strat, ds, start, end)
	if err != nil {
		var inv *InvariantError
		if errors.As(err, &inv) {
			e.halted = inv
			e.logger.Error("invariant violated, engine halted",
				zap.Error(inv),
				zap.String("stacktrace", fmt.Sprintf("%+v", inv.StackTrace())),
			)
		}
		return valuations, err
	}

	e.logger.Info("backtest finished",
		zap.Int("valuations", len(valuations)),
		zap.Stringer("cash", e.portfolio.cash),
	)
	return valuations, nil
}

// RunFeed loads the dataset described by feed from provider and runs it.
func (e *Engine) RunFeed(ctx context.Context, provider dataProvider, feed *DataFeedConfig, strat Strategy) ([]types.Valuation, error) {
	ds, err := provider.GetDataset(ctx, feed.tickers, feed.interval, feed.loadStart(), feed.end)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	return e.Run(strat, ds, feed.start, feed.end)
}
