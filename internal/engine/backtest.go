package engine

import (
	"barreplay/types"
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/shopspring/decimal"
)

// backtest replays every bar of [start, end] in order. For each bar it
//  1. reads the bar's prices,
//  2. hands the strategy the bars strictly before it,
//  3. resolves open orders against the bar,
//  4. records the valuation.
//
// Orders submitted in step 2 are resolved in step 3 against a bar whose
// high, low and close the strategy has not seen.
func (e *Engine) backtest(strat Strategy, ds types.Dataset, start, end time.Time) ([]types.Valuation, error) {
	window, err := SliceWindow(ds, start, end, true)
	if err != nil {
		return nil, fmt.Errorf("replay window: %w", err)
	}

	bar := e.initProgressBar(window.Len())
	valuations := make([]types.Valuation, 0, window.Len())
	for i := 0; i < window.Len(); i++ {
		cur := window.At(i)
		if err := e.step(strat, ds, start, cur); err != nil {
			return valuations, err
		}
		valuations = append(valuations, e.portfolio.valuation(cur))
		_ = bar.Add(1)
	}
	_ = bar.Finish()
	return valuations, nil
}

func (e *Engine) step(strat Strategy, ds types.Dataset, start time.Time, cur types.Bar) error {
	now := cur.Time
	prices := openPrices(cur)

	// The first bar of a window can sit before start when start falls
	// between bars; it has no history of its own.
	historyStart := start
	if now.Before(start) {
		historyStart = now
	}
	history, err := SliceWindow(ds, historyStart, now, false)
	if err != nil {
		return fmt.Errorf("history window at %s: %w", now.Format(time.RFC3339), err)
	}

	if history.Len() > 0 {
		submit := func(req types.OrderRequest) (types.Order, error) {
			return e.requestNewOrder(now, req)
		}
		err := strat.OnBar(now, submit, history, prices, e.portfolio.positionsView(), e.portfolio.cash)
		if err != nil {
			return fmt.Errorf("strategy at %s: %w", now.Format(time.RFC3339), err)
		}
	}

	return e.resolveOpenOrders(cur)
}

// openPrices is the strategy's view of the current tradeable price per symbol.
// Symbols without a usable open are left out.
func openPrices(bar types.Bar) map[string]decimal.Decimal {
	symbols := bar.Symbols()
	out := make(map[string]decimal.Decimal, len(symbols))
	for _, sym := range symbols {
		ohlc, _ := bar.OHLC(sym)
		if price, ok := toDecimal(ohlc.Open); ok {
			out[sym] = price
		}
	}
	return out
}

func (e *Engine) initProgressBar(maxTicks int) *progressbar.ProgressBar {
	w := e.cfg.progress
	if w == nil {
		w = io.Discard
	}
	return progressbar.NewOptions(maxTicks,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetDescription("Backtesting in progress..."),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}
