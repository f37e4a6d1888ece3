package types

import (
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID            string
	ClientOrderID string
	Symbol        string
	Quantity      decimal.Decimal
	Side          Side
	Type          OrderType
	TimeInForce   TimeInForce
	LimitPrice    decimal.NullDecimal
	StopPrice     decimal.NullDecimal
	ExtendedHours bool

	Status      OrderStatus
	CreatedAt   time.Time
	SubmittedAt time.Time

	FilledQuantity decimal.Decimal
	FilledAvgPrice decimal.NullDecimal
	FilledAt       *time.Time
	ExpiredAt      *time.Time
	CanceledAt     *time.Time
}

// OrderRequest carries the fields a strategy supplies when submitting an order.
type OrderRequest struct {
	Symbol        string
	Quantity      decimal.Decimal
	Side          Side
	Type          OrderType
	TimeInForce   TimeInForce
	LimitPrice    decimal.NullDecimal
	StopPrice     decimal.NullDecimal
	ExtendedHours bool
	ClientOrderID string
}

// NewMarketOrderRequest is a shorthand for the most common request shape.
func NewMarketOrderRequest(symbol string, quantity decimal.Decimal, side Side, tif TimeInForce) OrderRequest {
	return OrderRequest{
		Symbol:      symbol,
		Quantity:    quantity,
		Side:        side,
		Type:        TypeMarket,
		TimeInForce: tif,
	}
}
