package engine

import (
	"barreplay/types"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)

func day(i int) time.Time {
	return day0.AddDate(0, 0, i)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Errorf("got %s, want %s %v", got, want, msgAndArgs)
	}
}

// mockDailyBars builds n daily bars of one symbol starting at day0. Bar i has
// open 100+i, high 101+i, low 99+i and close 100.5+i.
func mockDailyBars(t *testing.T, symbol string, n int) types.Dataset {
	t.Helper()
	bars := make([]types.Bar, 0, n)
	for i := 0; i < n; i++ {
		f := float64(i)
		bars = append(bars, types.NewBar(day(i), map[string]types.OHLC{
			symbol: {Open: 100 + f, High: 101 + f, Low: 99 + f, Close: 100.5 + f},
		}))
	}
	ds, err := types.NewDataset(bars)
	require.NoError(t, err)
	return ds
}

func singleBar(at time.Time, symbol string, o, h, l, c float64) types.Bar {
	return types.NewBar(at, map[string]types.OHLC{
		symbol: {Open: o, High: h, Low: l, Close: c},
	})
}

func marketOrder(symbol, qty string, side types.Side, tif types.TimeInForce) types.OrderRequest {
	return types.NewMarketOrderRequest(symbol, dec(qty), side, tif)
}

func nan() float64 {
	return math.NaN()
}
