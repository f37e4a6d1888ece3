package donchian

import (
	"barreplay/internal/engine"
	"barreplay/types"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Params struct {
	// Lookback is the number of completed bars forming the channel.
	Lookback      int
	ATRPeriod     int
	ATRMultiplier decimal.Decimal
	// PositionPercent is the share of cash committed to a new long.
	PositionPercent decimal.Decimal
}

func DefaultParams() Params {
	return Params{
		Lookback:        20,
		ATRPeriod:       20,
		ATRMultiplier:   decimal.NewFromInt(2),
		PositionPercent: decimal.RequireFromString("0.5"),
	}
}

type signal struct {
	Symbol string
	Side   types.Side
	Price  decimal.Decimal
	Reason string
}

// candle is one finite bar of a single symbol.
type candle struct {
	Time  time.Time
	High  decimal.Decimal
	Low   decimal.Decimal
	Close decimal.Decimal
}

// Strategy trades breakouts of the Donchian channel built from the preceding
// Lookback bars, with an ATR stop under open longs.
type Strategy struct {
	params    Params
	allocator *LongOnlyAllocator
	stopLoss  map[string]decimal.Decimal
	logger    *zap.Logger
}

var _ engine.Strategy = (*Strategy)(nil)

func NewStrategy(params Params, logger *zap.Logger) (*Strategy, error) {
	if params.Lookback < 1 || params.ATRPeriod < 1 {
		return nil, fmt.Errorf("lookback %d and atr period %d must be positive", params.Lookback, params.ATRPeriod)
	}
	if !params.PositionPercent.IsPositive() || params.PositionPercent.GreaterThan(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("position percent %s must be in (0, 1]", params.PositionPercent)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Strategy{
		params:    params,
		allocator: NewLongOnlyAllocator(params.PositionPercent),
		stopLoss:  make(map[string]decimal.Decimal),
		logger:    logger,
	}, nil
}

func (s *Strategy) OnBar(
	now time.Time,
	submit engine.SubmitFunc,
	history types.Dataset,
	prices map[string]decimal.Decimal,
	positions map[string]types.Position,
	cash decimal.Decimal,
) error {
	symbols := make([]string, 0, len(prices))
	for sym := range prices {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	var signals []signal
	for _, sym := range symbols {
		if sig, ok := s.evaluate(sym, history, prices[sym], positions[sym]); ok {
			signals = append(signals, sig)
		}
	}

	for _, req := range s.allocator.Allocate(signals, positions, cash) {
		order, err := submit(req)
		if err != nil {
			return fmt.Errorf("submit %s %s: %w", req.Side, req.Symbol, err)
		}
		s.logger.Debug("donchian order",
			zap.Time("now", now),
			zap.String("symbol", order.Symbol),
			zap.String("side", string(order.Side)),
			zap.Stringer("qty", order.Quantity),
		)
	}
	return nil
}

// evaluate compares the current open of sym against the channel of the last
// Lookback bars in history.
func (s *Strategy) evaluate(sym string, history types.Dataset, price decimal.Decimal, pos types.Position) (signal, bool) {
	hist := candlesOf(history, sym, s.window())
	if len(hist) < s.params.Lookback {
		return signal{}, false
	}
	highestHigh, lowestLow := donchianHighLow(hist[len(hist)-s.params.Lookback:])

	if price.GreaterThan(highestHigh) {
		atr := calcATR(hist, s.params.ATRPeriod)
		if atr.IsPositive() {
			s.stopLoss[sym] = price.Sub(atr.Mul(s.params.ATRMultiplier))
		}
		return signal{
			Symbol: sym,
			Side:   types.SideTypeBuy,
			Price:  price,
			Reason: fmt.Sprintf("break of highest high of preceding %d bars", s.params.Lookback),
		}, true
	}

	if price.LessThan(lowestLow) {
		delete(s.stopLoss, sym)
		return signal{
			Symbol: sym,
			Side:   types.SideTypeSell,
			Price:  price,
			Reason: fmt.Sprintf("break of lowest low of preceding %d bars", s.params.Lookback),
		}, true
	}

	if stop, ok := s.stopLoss[sym]; ok && pos.Signed().IsPositive() && price.LessThan(stop) {
		delete(s.stopLoss, sym)
		return signal{
			Symbol: sym,
			Side:   types.SideTypeSell,
			Price:  price,
			Reason: fmt.Sprintf("ATR(%d) stop-loss", s.params.ATRPeriod),
		}, true
	}
	return signal{}, false
}

// window is the number of trailing history bars the channel and ATR read.
func (s *Strategy) window() int {
	return max(s.params.Lookback, s.params.ATRPeriod+1)
}

// candlesOf extracts the finite bars of sym from the last n bars of history,
// oldest first.
func candlesOf(history types.Dataset, sym string, n int) []candle {
	from := max(history.Len()-n, 0)
	recent := history.Slice(from, history.Len())
	out := make([]candle, 0, recent.Len())
	for i := 0; i < recent.Len(); i++ {
		bar := recent.At(i)
		ohlc, ok := bar.OHLC(sym)
		if !ok || !ohlc.Finite() {
			continue
		}
		out = append(out, candle{
			Time:  bar.Time,
			High:  decimal.NewFromFloat(ohlc.High),
			Low:   decimal.NewFromFloat(ohlc.Low),
			Close: decimal.NewFromFloat(ohlc.Close),
		})
	}
	return out
}

// Utility: Donchian Channel High/Low
func donchianHighLow(candles []candle) (decimal.Decimal, decimal.Decimal) {
	if len(candles) == 0 {
		return decimal.Zero, decimal.Zero
	}

	highest := candles[0].High
	lowest := candles[0].Low

	for _, c := range candles {
		if c.High.GreaterThan(highest) {
			highest = c.High
		}
		if c.Low.LessThan(lowest) {
			lowest = c.Low
		}
	}
	return highest, lowest
}

// calcATR is Wilder's average true range over period.
func calcATR(candles []candle, period int) decimal.Decimal {
	if len(candles) < period+1 {
		return decimal.Zero // need enough data (prev candle + period)
	}

	trueRanges := make([]decimal.Decimal, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		high := candles[i].High
		low := candles[i].Low
		prevClose := candles[i-1].Close

		range1 := high.Sub(low)
		range2 := high.Sub(prevClose).Abs()
		range3 := low.Sub(prevClose).Abs()

		trueRanges = append(trueRanges, decimal.Max(range1, range2, range3))
	}

	atr := decimal.Zero
	for _, tr := range trueRanges[:period] {
		atr = atr.Add(tr)
	}
	atr = atr.Div(decimal.NewFromInt(int64(period)))

	for i := period; i < len(trueRanges); i++ {
		atr = (atr.Mul(decimal.NewFromInt(int64(period - 1))).Add(trueRanges[i])).
			Div(decimal.NewFromInt(int64(period)))
	}

	return atr
}
