package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is the aggregate holding of one symbol. Quantity is always a
// magnitude; Side carries the sign. AvgEntryPrice and UnrealizedPL are not
// tracked and stay null.
type Position struct {
	Symbol        string
	Side          Direction
	Quantity      decimal.Decimal
	AvgEntryPrice decimal.NullDecimal
	UnrealizedPL  decimal.NullDecimal
}

// Signed returns the net quantity, negative for short positions.
func (p Position) Signed() decimal.Decimal {
	if p.Side == DirectionShort {
		return p.Quantity.Neg()
	}
	return p.Quantity
}

// Valuation is the portfolio value at one simulated timestamp, priced at each
// of the bar's fields.
type Valuation struct {
	Time  time.Time
	Open  decimal.Decimal
	High  decimal.Decimal
	Low   decimal.Decimal
	Close decimal.Decimal
	Cash  decimal.Decimal
}
