package engine

import (
	"barreplay/types"
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// dataProvider is the market data boundary. It must return a fully
// materialized dataset; the engine never fetches, caches or paginates.
type dataProvider interface {
	GetDataset(ctx context.Context, tickers []string, interval types.Interval, start, end time.Time) (types.Dataset, error)
}

// SubmitFunc is bound to the current simulated time and is the only way a
// strategy can change engine state. It returns a copy of the accepted order.
type SubmitFunc func(req types.OrderRequest) (types.Order, error)

// Strategy is invoked once per bar that has history before it.
//
// history contains only bars strictly before now. prices holds each symbol's
// open for the current bar. positions and cash reflect the state before any
// order submitted during this call is resolved.
type Strategy interface {
	OnBar(
		now time.Time,
		submit SubmitFunc,
		history types.Dataset,
		prices map[string]decimal.Decimal,
		positions map[string]types.Position,
		cash decimal.Decimal,
	) error
}

// StrategyFunc adapts a plain function to the Strategy interface.
type StrategyFunc func(
	now time.Time,
	submit SubmitFunc,
	history types.Dataset,
	prices map[string]decimal.Decimal,
	positions map[string]types.Position,
	cash decimal.Decimal,
) error

func (f StrategyFunc) OnBar(
	now time.Time,
	submit SubmitFunc,
	history types.Dataset,
	prices map[string]decimal.Decimal,
	positions map[string]types.Position,
	cash decimal.Decimal,
) error {
	return f(now, submit, history, prices, positions, cash)
}
