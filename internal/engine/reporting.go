package engine

import (
	"barreplay/types"
	"fmt"
	"io"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

type Report struct {
	// Meta / period info
	StartDate    time.Time
	TotalPeriod  time.Duration
	FilledOrders int
	TotalTrades  int

	// Absolute performance
	EquityChange         decimal.Decimal
	NetProfit            decimal.Decimal
	NetAvgProfitPerTrade decimal.Decimal
	CAGR                 decimal.Decimal

	// Trade-level distribution metrics
	AvgWin  decimal.Decimal
	AvgLoss decimal.Decimal

	// Drawdown & loss streak metrics
	MaxDrawdown          decimal.Decimal
	MaxDrawdownPercent   decimal.Decimal
	MaxDrawdownDuration  time.Duration
	MaxConsecutiveLosses int

	// Risk-adjusted metrics
	SharpeRatio decimal.Decimal
}

// trade is one round trip of a symbol: a buy fill and a sell fill, in either
// order. Either leg may be missing.
type trade struct {
	buy  *types.Order
	sell *types.Order
}

func PrintReport(w io.Writer, report *Report) {
	fmt.Fprintln(w, "===== Trading Report =====")
	fmt.Fprintf(w, "Start Date:            %s\n", report.StartDate.Format("2006-01-02"))
	fmt.Fprintf(w, "Total Period:          %d days\n", report.TotalPeriod/(24*time.Hour))
	fmt.Fprintf(w, "Filled Orders:         %d\n", report.FilledOrders)
	fmt.Fprintf(w, "Total Trades:          %d\n", report.TotalTrades)

	fmt.Fprintln(w, "\n-- Absolute Performance --")
	fmt.Fprintf(w, "Equity Change:         %s\n", report.EquityChange.StringFixed(2))
	fmt.Fprintf(w, "Net Profit:            %s\n", report.NetProfit.StringFixed(2))
	fmt.Fprintf(w, "Avg Profit/Trade:      %s\n", report.NetAvgProfitPerTrade.StringFixed(2))
	fmt.Fprintf(w, "CAGR:                  %s\n", report.CAGR.StringFixed(4))

	fmt.Fprintln(w, "\n-- Trade-Level Metrics --")
	fmt.Fprintf(w, "Avg Win:               %s\n", report.AvgWin.StringFixed(2))
	fmt.Fprintf(w, "Avg Loss:              %s\n", report.AvgLoss.StringFixed(2))

	fmt.Fprintln(w, "\n-- Drawdown Metrics --")
	fmt.Fprintf(w, "Max Drawdown:          %s\n", report.MaxDrawdown.StringFixed(2))
	fmt.Fprintf(w, "Max Drawdown %%:        %s\n", report.MaxDrawdownPercent.StringFixed(4))
	fmt.Fprintf(w, "Max Drawdown Duration: %v\n", report.MaxDrawdownDuration)
	fmt.Fprintf(w, "Max Consecutive Losses:%d\n", report.MaxConsecutiveLosses)

	fmt.Fprintln(w, "\n-- Risk-Adjusted Metrics --")
	fmt.Fprintf(w, "Sharpe Ratio:          %s\n", report.SharpeRatio.StringFixed(4))

	fmt.Fprintln(w, "==========================")
}

// GenerateReport summarises a run. Equity is the close valuation of each bar.
func GenerateReport(valuations []types.Valuation, orders []types.Order, annualRiskFree decimal.Decimal) *Report {
	report := &Report{}
	if len(valuations) > 0 {
		first, last := valuations[0], valuations[len(valuations)-1]
		report.StartDate = first.Time
		report.TotalPeriod = last.Time.Sub(first.Time).Truncate(24 * time.Hour)
		report.EquityChange = last.Close.Sub(first.Close)
	}

	filled := filledOrders(orders)
	trades := ordersToTrades(filled)
	report.FilledOrders = len(filled)
	report.TotalTrades = len(trades)

	var wg sync.WaitGroup
	wg.Add(6)
	go func() {
		report.NetProfit, report.NetAvgProfitPerTrade = calcNetProfit(trades, &wg)
	}()
	go func() {
		report.AvgWin, report.AvgLoss = calcAvgWinLossPerTrade(trades, &wg)
	}()
	go func() {
		report.MaxConsecutiveLosses = calcMaxConsecutiveLosses(trades, &wg)
	}()
	go func() {
		report.CAGR = calcCAGR(valuations, &wg)
	}()
	go func() {
		report.MaxDrawdown, report.MaxDrawdownPercent, report.MaxDrawdownDuration = calcDrawdownMetrics(valuations, &wg)
	}()
	go func() {
		report.SharpeRatio = calcSharpeRatio(valuations, annualRiskFree, &wg)
	}()
	wg.Wait()

	return report
}

// tradePnL returns the proceeds minus the cost of a trade, and whether both
// legs are present.
func tradePnL(tr trade) (decimal.Decimal, bool) {
	if tr.buy == nil || tr.sell == nil {
		return decimal.Zero, false
	}
	cost := tr.buy.FilledAvgPrice.Decimal.Mul(tr.buy.FilledQuantity)
	proceeds := tr.sell.FilledAvgPrice.Decimal.Mul(tr.sell.FilledQuantity)
	return proceeds.Sub(cost), true
}

func calcNetProfit(trades []trade, wg *sync.WaitGroup) (decimal.Decimal, decimal.Decimal) {
	defer wg.Done()

	net := decimal.Zero
	realized := 0
	for _, tr := range trades {
		pnl, ok := tradePnL(tr)
		if !ok {
			continue
		}
		net = net.Add(pnl)
		realized++
	}
	if realized == 0 {
		return net, decimal.Zero
	}
	return net, net.Div(decimal.NewFromInt(int64(realized)))
}

func calcAvgWinLossPerTrade(trades []trade, wg *sync.WaitGroup) (decimal.Decimal, decimal.Decimal) {
	defer wg.Done()

	sumWins := decimal.Zero
	sumLosses := decimal.Zero // absolute amounts
	winCount := 0
	lossCount := 0

	for _, tr := range trades {
		pnl, ok := tradePnL(tr)
		if !ok {
			continue
		}
		switch {
		case pnl.IsPositive():
			sumWins = sumWins.Add(pnl)
			winCount++
		case pnl.IsNegative():
			sumLosses = sumLosses.Add(pnl.Abs())
			lossCount++
		}
	}

	avgWin := decimal.Zero
	avgLoss := decimal.Zero
	if winCount > 0 {
		avgWin = sumWins.Div(decimal.NewFromInt(int64(winCount)))
	}
	if lossCount > 0 {
		avgLoss = sumLosses.Div(decimal.NewFromInt(int64(lossCount)))
	}
	return avgWin, avgLoss
}

func calcMaxConsecutiveLosses(trades []trade, wg *sync.WaitGroup) int {
	defer wg.Done()

	type tradeResult struct {
		closeTime time.Time
		pnl       decimal.Decimal
	}

	var results []tradeResult
	for _, tr := range trades {
		pnl, ok := tradePnL(tr)
		if !ok {
			continue
		}
		closeTime := *tr.buy.FilledAt
		if tr.sell.FilledAt.After(closeTime) {
			closeTime = *tr.sell.FilledAt
		}
		results = append(results, tradeResult{closeTime: closeTime, pnl: pnl})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].closeTime.Before(results[j].closeTime)
	})

	maxStreak, cur := 0, 0
	for _, r := range results {
		if r.pnl.IsNegative() {
			cur++
			if cur > maxStreak {
				maxStreak = cur
			}
		} else {
			cur = 0
		}
	}
	return maxStreak
}

func calcCAGR(valuations []types.Valuation, wg *sync.WaitGroup) decimal.Decimal {
	defer wg.Done()
	if len(valuations) < 2 {
		return decimal.Zero
	}

	first, last := valuations[0], valuations[len(valuations)-1]
	if !first.Close.IsPositive() {
		return decimal.Zero
	}

	// 365.25 days to account for leap years
	years := last.Time.Sub(first.Time).Hours() / (24.0 * 365.25)
	if years <= 0 {
		return decimal.Zero
	}

	ratio := last.Close.Div(first.Close)
	if !ratio.IsPositive() {
		return decimal.Zero
	}
	// very short periods annualise to values beyond float range
	return finiteDecimal(math.Pow(ratio.InexactFloat64(), 1.0/years) - 1.0)
}

// finiteDecimal converts f, reporting NaN and ±Inf as zero.
func finiteDecimal(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}

// calcDrawdownMetrics expects valuations in chronological order, which is how
// Run returns them.
func calcDrawdownMetrics(valuations []types.Valuation, wg *sync.WaitGroup) (decimal.Decimal, decimal.Decimal, time.Duration) {
	defer wg.Done()

	peak := decimal.Zero
	var peakTime time.Time
	maxDD := decimal.Zero
	maxDDPct := decimal.Zero
	var maxDDDuration time.Duration

	for i, v := range valuations {
		equity := v.Close
		if i == 0 || equity.GreaterThan(peak) {
			peak = equity
			peakTime = v.Time
		}
		if !peak.IsPositive() {
			continue
		}
		dd := peak.Sub(equity)
		if dd.GreaterThan(maxDD) {
			maxDD = dd
			maxDDPct = dd.Div(peak)
			maxDDDuration = v.Time.Sub(peakTime)
		}
	}
	return maxDD, maxDDPct, maxDDDuration
}

func calcSharpeRatio(valuations []types.Valuation, annualRiskFree decimal.Decimal, wg *sync.WaitGroup) decimal.Decimal {
	defer wg.Done()
	monthlyReturns := getMonthlyReturns(valuations)
	if len(monthlyReturns) < 2 || annualRiskFree.LessThanOrEqual(decimal.NewFromInt(-1)) {
		return decimal.Zero
	}

	// rf_monthly = (1 + rf_annual)^(1/12) - 1
	rfMonthly := math.Pow(1.0+annualRiskFree.InexactFloat64(), 1.0/12.0) - 1.0
	if math.IsNaN(rfMonthly) || math.IsInf(rfMonthly, 0) {
		return decimal.Zero
	}

	excess := make([]float64, 0, len(monthlyReturns))
	var sum float64
	for _, r := range monthlyReturns {
		x := r.InexactFloat64() - rfMonthly
		excess = append(excess, x)
		sum += x
	}
	mean := sum / float64(len(excess))

	var varianceSum float64
	for _, x := range excess {
		varianceSum += (x - mean) * (x - mean)
	}
	std := math.Sqrt(varianceSum / float64(len(excess)-1))
	if std == 0 {
		return decimal.Zero
	}

	return finiteDecimal(mean / std * math.Sqrt(12.0))
}

// getMonthlyReturns returns the change between consecutive month-end equity
// values.
func getMonthlyReturns(valuations []types.Valuation) []decimal.Decimal {
	type monthKey struct {
		year  int
		month time.Month
	}

	var keys []monthKey
	monthEnds := make(map[monthKey]decimal.Decimal)
	for _, v := range valuations {
		y, m, _ := v.Time.Date()
		k := monthKey{year: y, month: m}
		if _, ok := monthEnds[k]; !ok {
			keys = append(keys, k)
		}
		monthEnds[k] = v.Close
	}
	if len(keys) < 2 {
		return nil
	}

	returns := make([]decimal.Decimal, 0, len(keys)-1)
	prev := monthEnds[keys[0]]
	for _, k := range keys[1:] {
		cur := monthEnds[k]
		if prev.IsPositive() {
			returns = append(returns, cur.Div(prev).Sub(decimal.NewFromInt(1)))
		}
		prev = cur
	}
	return returns
}

func filledOrders(orders []types.Order) []types.Order {
	var out []types.Order
	for _, o := range orders {
		if o.Status == types.OrderFilled && o.FilledAt != nil {
			out = append(out, o)
		}
	}
	return out
}

// ordersToTrades pairs filled orders per symbol in fill order: a fill closes
// the pending trade when it is on the opposite side, otherwise the pending
// trade is left with one leg. Symbols are never matched against each other.
func ordersToTrades(filled []types.Order) []trade {
	bySymbol := make(map[string][]*types.Order)
	var symbols []string
	for i := range filled {
		o := &filled[i]
		if _, ok := bySymbol[o.Symbol]; !ok {
			symbols = append(symbols, o.Symbol)
		}
		bySymbol[o.Symbol] = append(bySymbol[o.Symbol], o)
	}

	var trades []trade
	for _, sym := range symbols {
		fills := bySymbol[sym]
		sort.SliceStable(fills, func(i, j int) bool {
			return fills[i].FilledAt.Before(*fills[j].FilledAt)
		})
		var pending *trade
		for _, o := range fills {
			if pending != nil && !legTaken(pending, o.Side) {
				assignLeg(pending, o)
				trades = append(trades, *pending)
				pending = nil
				continue
			}
			if pending != nil {
				trades = append(trades, *pending)
			}
			pending = &trade{}
			assignLeg(pending, o)
		}
		if pending != nil {
			trades = append(trades, *pending)
		}
	}

	sort.SliceStable(trades, func(i, j int) bool {
		return tradeTime(trades[i]).Before(tradeTime(trades[j]))
	})
	return trades
}

func legTaken(tr *trade, side types.Side) bool {
	if side == types.SideTypeBuy {
		return tr.buy != nil
	}
	return tr.sell != nil
}

func assignLeg(tr *trade, o *types.Order) {
	if o.Side == types.SideTypeBuy {
		tr.buy = o
	} else {
		tr.sell = o
	}
}

// tradeTime returns the earliest leg time of a trade.
func tradeTime(t trade) time.Time {
	switch {
	case t.buy != nil && t.sell != nil:
		if t.buy.FilledAt.Before(*t.sell.FilledAt) {
			return *t.buy.FilledAt
		}
		return *t.sell.FilledAt
	case t.buy != nil:
		return *t.buy.FilledAt
	case t.sell != nil:
		return *t.sell.FilledAt
	}
	return time.Time{}
}
