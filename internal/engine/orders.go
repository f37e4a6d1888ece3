package engine

import (
	"barreplay/types"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrEmptySymbol            = errors.New("order symbol is empty")
	ErrInvalidQuantity        = errors.New("order quantity must be positive")
	ErrInvalidSide            = errors.New("order side must be buy or sell")
	ErrInvalidOrderType       = errors.New("unknown order type")
	ErrUnsupportedOrderType   = errors.New("order type not supported")
	ErrInvalidTimeInForce     = errors.New("unknown time in force")
	ErrUnsupportedTimeInForce = errors.New("time in force not supported")
	ErrMissingLimitPrice      = errors.New("limit order requires a positive limit price")
	ErrOrderNotFound          = errors.New("order not found")
	ErrOrderNotOpen           = errors.New("order is not open")
)

// A day order expires once this much simulated time has passed since it was
// created.
const dayOrderLifetime = 24 * time.Hour

func (e *Engine) validateOrderRequest(req types.OrderRequest) error {
	if req.Symbol == "" {
		return ErrEmptySymbol
	}
	if !req.Quantity.IsPositive() {
		return fmt.Errorf("%s: %w", req.Quantity, ErrInvalidQuantity)
	}
	if !req.Side.Valid() {
		return fmt.Errorf("%q: %w", req.Side, ErrInvalidSide)
	}

	if !req.Type.Valid() {
		return fmt.Errorf("%q: %w", req.Type, ErrInvalidOrderType)
	}
	switch req.Type {
	case types.TypeMarket:
	case types.TypeLimit:
		if !e.cfg.allowLimitOrders {
			return fmt.Errorf("%q: %w", req.Type, ErrUnsupportedOrderType)
		}
		if !req.LimitPrice.Valid || !req.LimitPrice.Decimal.IsPositive() {
			return ErrMissingLimitPrice
		}
	default:
		return fmt.Errorf("%q: %w", req.Type, ErrUnsupportedOrderType)
	}

	if !req.TimeInForce.Valid() {
		return fmt.Errorf("%q: %w", req.TimeInForce, ErrInvalidTimeInForce)
	}
	if req.TimeInForce != types.TimeInForceDay && req.TimeInForce != types.TimeInForceGTC {
		return fmt.Errorf("%q: %w", req.TimeInForce, ErrUnsupportedTimeInForce)
	}
	return nil
}

// requestNewOrder validates req and appends it to the order list as open. Funds
// are not checked here; that only happens when the order fills.
func (e *Engine) requestNewOrder(now time.Time, req types.OrderRequest) (types.Order, error) {
	if err := e.validateOrderRequest(req); err != nil {
		return types.Order{}, err
	}

	clientID := req.ClientOrderID
	if clientID == "" {
		clientID = uuid.NewString()
	}
	order := &types.Order{
		ID:             uuid.NewString(),
		ClientOrderID:  clientID,
		Symbol:         req.Symbol,
		Quantity:       req.Quantity,
		Side:           req.Side,
		Type:           req.Type,
		TimeInForce:    req.TimeInForce,
		LimitPrice:     req.LimitPrice,
		StopPrice:      req.StopPrice,
		ExtendedHours:  req.ExtendedHours,
		Status:         types.OrderOpen,
		CreatedAt:      now,
		SubmittedAt:    now,
		FilledQuantity: decimal.Zero,
	}
	e.portfolio.orders = append(e.portfolio.orders, order)

	e.logger.Info("new order issued",
		zap.Time("now", now),
		zap.String("order_id", order.ID),
		zap.String("client_order_id", order.ClientOrderID),
		zap.String("symbol", order.Symbol),
		zap.String("side", string(order.Side)),
		zap.String("type", string(order.Type)),
		zap.Stringer("qty", order.Quantity),
	)
	return copyOrder(order), nil
}

// resolveOpenOrders runs every open order, in submission order, against bar.
func (e *Engine) resolveOpenOrders(bar types.Bar) error {
	for _, order := range e.portfolio.orders {
		if order.Status != types.OrderOpen {
			continue
		}

		if order.TimeInForce == types.TimeInForceDay && bar.Time.Sub(order.CreatedAt) >= dayOrderLifetime {
			e.expireOrder(order, bar.Time)
			continue
		}

		price, ok := fillPrice(order, bar)
		if !ok {
			continue
		}
		if err := e.portfolio.applyFill(order, price, bar.Time); err != nil {
			return err
		}
		e.logger.Info("execute order",
			zap.String("client_order_id", order.ClientOrderID),
			zap.String("symbol", order.Symbol),
			zap.Stringer("price", price),
			zap.Stringer("cash_remaining", e.portfolio.cash),
		)
	}
	return nil
}

// fillPrice decides whether order fills on bar and at what price. Market
// orders take the worst price of the bar: the high for buys, the low for
// sells. Limit orders fill at their limit when it is strictly inside the bar.
func fillPrice(order *types.Order, bar types.Bar) (decimal.Decimal, bool) {
	ohlc, ok := bar.OHLC(order.Symbol)
	if !ok {
		return decimal.Zero, false
	}

	switch order.Type {
	case types.TypeMarket:
		if order.Side == types.SideTypeBuy {
			return toDecimal(ohlc.High)
		}
		return toDecimal(ohlc.Low)

	case types.TypeLimit:
		limit := order.LimitPrice.Decimal
		if order.Side == types.SideTypeBuy {
			low, ok := toDecimal(ohlc.Low)
			if ok && limit.GreaterThan(low) {
				return limit, true
			}
			return decimal.Zero, false
		}
		high, ok := toDecimal(ohlc.High)
		if ok && limit.LessThan(high) {
			return limit, true
		}
	}
	return decimal.Zero, false
}

func (e *Engine) expireOrder(order *types.Order, at time.Time) {
	expiredAt := at
	order.Status = types.OrderExpired
	order.ExpiredAt = &expiredAt
	e.logger.Info("order expired",
		zap.String("client_order_id", order.ClientOrderID),
		zap.String("symbol", order.Symbol),
		zap.Time("created_at", order.CreatedAt),
	)
}

// CancelOrder moves an open order to canceled. It cannot be used while a run
// is in progress.
func (e *Engine) CancelOrder(id string, at time.Time) error {
	if e.running {
		return ErrEngineRunning
	}
	for _, order := range e.portfolio.orders {
		if order.ID != id {
			continue
		}
		if order.Status != types.OrderOpen {
			return fmt.Errorf("order %s is %s: %w", id, order.Status, ErrOrderNotOpen)
		}
		canceledAt := at
		order.Status = types.OrderCanceled
		order.CanceledAt = &canceledAt
		e.logger.Info("order canceled", zap.String("order_id", id))
		return nil
	}
	return fmt.Errorf("order %s: %w", id, ErrOrderNotFound)
}
