package donchian

import (
	"barreplay/types"

	"github.com/shopspring/decimal"
)

// LongOnlyAllocator turns signals into market day orders. It never opens a
// short: a sell signal only closes an existing long.
type LongOnlyAllocator struct {
	positionPercent decimal.Decimal
}

func NewLongOnlyAllocator(positionPercent decimal.Decimal) *LongOnlyAllocator {
	return &LongOnlyAllocator{
		positionPercent: positionPercent,
	}
}

// Allocate sizes each new long from the cash left after the longs allocated
// before it in the same call.
func (a *LongOnlyAllocator) Allocate(signals []signal, positions map[string]types.Position, cash decimal.Decimal) []types.OrderRequest {
	if len(signals) == 0 {
		return nil
	}

	orders := make([]types.OrderRequest, 0, len(signals))
	remaining := cash

	for _, sig := range signals {
		net := positions[sig.Symbol].Signed()

		switch {
		// Case 1: flat
		case net.IsZero():
			if sig.Side != types.SideTypeBuy {
				continue
			}
			budget := remaining.Mul(a.positionPercent)
			qty := getQuantityForPrice(sig.Price, budget)
			if qty.IsZero() {
				continue
			}
			remaining = remaining.Sub(qty.Mul(sig.Price))
			orders = append(orders, newOrder(sig.Symbol, qty, types.SideTypeBuy))

		// Case 2: existing long, no pyramiding
		case net.IsPositive():
			if sig.Side == types.SideTypeSell {
				orders = append(orders, newOrder(sig.Symbol, net, types.SideTypeSell))
			}

		// Case 3: existing short, only cover it
		default:
			if sig.Side == types.SideTypeBuy {
				orders = append(orders, newOrder(sig.Symbol, net.Abs(), types.SideTypeBuy))
			}
		}
	}

	return orders
}

func newOrder(symbol string, qty decimal.Decimal, side types.Side) types.OrderRequest {
	return types.NewMarketOrderRequest(symbol, qty, side, types.TimeInForceDay)
}

func getQuantityForPrice(stockPrice, capitalToUse decimal.Decimal) decimal.Decimal {
	if !stockPrice.IsPositive() || !capitalToUse.IsPositive() {
		return decimal.Zero
	}
	return capitalToUse.Div(stockPrice).Floor()
}
