package engine

import (
	"barreplay/types"
	"errors"
	"fmt"
	"math"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var (
	ErrNegativeCash = errors.New("cash is below zero")
	ErrUnknownSide  = errors.New("unknown fill side")
)

type stackTracer interface {
	StackTrace() pkgerrors.StackTrace
}

// InvariantError reports a fill that left the books in a state the simulation
// cannot continue from. The engine halts until Reset.
type InvariantError struct {
	OrderID string
	Symbol  string
	Cash    decimal.Decimal
	Time    time.Time
	err     error
}

func newInvariantError(order *types.Order, cash decimal.Decimal, at time.Time, cause error) *InvariantError {
	return &InvariantError{
		OrderID: order.ID,
		Symbol:  order.Symbol,
		Cash:    cash,
		Time:    at,
		err:     pkgerrors.WithStack(cause),
	}
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("fill of order %s (%s) at %s left cash at %s: %v",
		e.OrderID, e.Symbol, e.Time.Format(time.RFC3339), e.Cash, errors.Unwrap(e.err))
}

func (e *InvariantError) Unwrap() error {
	return e.err
}

// StackTrace points at the fill that broke the invariant.
func (e *InvariantError) StackTrace() pkgerrors.StackTrace {
	if st, ok := e.err.(stackTracer); ok {
		return st.StackTrace()
	}
	return nil
}

type portfolio struct {
	cash      decimal.Decimal
	orders    []*types.Order
	positions map[string]*types.Position
}

func newPortfolio(initialCash decimal.Decimal) *portfolio {
	return &portfolio{
		cash:      initialCash,
		positions: make(map[string]*types.Position),
	}
}

// applyFill marks order filled at price and books it. Cash is checked after
// it has been updated; a negative balance is returned as an *InvariantError.
func (p *portfolio) applyFill(order *types.Order, price decimal.Decimal, at time.Time) error {
	qty := order.Quantity
	notional := price.Mul(qty)

	pos := p.positions[order.Symbol]
	if pos == nil {
		pos = &types.Position{Symbol: order.Symbol, Side: types.DirectionLong}
		p.positions[order.Symbol] = pos
	}
	net := pos.Signed()

	switch order.Side {
	case types.SideTypeBuy:
		p.cash = p.cash.Sub(notional)
		net = net.Add(qty)
	case types.SideTypeSell:
		p.cash = p.cash.Add(notional)
		net = net.Sub(qty)
	default:
		return fmt.Errorf("order %s side %q: %w", order.ID, order.Side, ErrUnknownSide)
	}

	filledAt := at
	order.Status = types.OrderFilled
	order.FilledAvgPrice = decimal.NewNullDecimal(price)
	order.FilledAt = &filledAt
	order.FilledQuantity = qty

	pos.Quantity = net.Abs()
	if net.IsNegative() {
		pos.Side = types.DirectionShort
	} else {
		pos.Side = types.DirectionLong
	}

	if p.cash.IsNegative() {
		return newInvariantError(order, p.cash, at, ErrNegativeCash)
	}
	return nil
}

// valuation prices every recorded position, zero-quantity ones included, at
// each field of bar. Missing symbols and non-finite prices count as zero.
func (p *portfolio) valuation(bar types.Bar) types.Valuation {
	open, high, low, closeVal := decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero

	for sym, pos := range p.positions {
		ohlc, ok := bar.OHLC(sym)
		if !ok {
			continue
		}
		qty := pos.Signed()
		open = open.Add(qty.Mul(finiteOrZero(ohlc.Open)))
		high = high.Add(qty.Mul(finiteOrZero(ohlc.High)))
		low = low.Add(qty.Mul(finiteOrZero(ohlc.Low)))
		closeVal = closeVal.Add(qty.Mul(finiteOrZero(ohlc.Close)))
	}

	return types.Valuation{
		Time:  bar.Time,
		Open:  open.Add(p.cash),
		High:  high.Add(p.cash),
		Low:   low.Add(p.cash),
		Close: closeVal.Add(p.cash),
		Cash:  p.cash,
	}
}

func (p *portfolio) positionsView() map[string]types.Position {
	view := make(map[string]types.Position, len(p.positions))
	for sym, pos := range p.positions {
		view[sym] = *pos
	}
	return view
}

func (p *portfolio) ordersView() []types.Order {
	out := make([]types.Order, 0, len(p.orders))
	for _, o := range p.orders {
		out = append(out, copyOrder(o))
	}
	return out
}

func copyOrder(o *types.Order) types.Order {
	cp := *o
	cp.FilledAt = copyTime(o.FilledAt)
	cp.ExpiredAt = copyTime(o.ExpiredAt)
	cp.CanceledAt = copyTime(o.CanceledAt)
	return cp
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func toDecimal(f float64) (decimal.Decimal, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(f), true
}

func finiteOrZero(f float64) decimal.Decimal {
	d, _ := toDecimal(f)
	return d
}
