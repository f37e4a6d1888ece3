package donchian

import (
	"barreplay/types"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLongOnlyAllocator_Allocate(t *testing.T) {
	d := decimal.RequireFromString
	tests := []struct {
		name      string
		signals   []signal
		positions map[string]types.Position
		cash      decimal.Decimal
		want      []types.OrderRequest
	}{
		{
			name: "no signals",
			cash: d("1000"),
		},
		{
			name:    "flat buy sized from cash",
			signals: []signal{{Symbol: "AAPL", Side: types.SideTypeBuy, Price: d("30")}},
			cash:    d("1000"),
			want:    []types.OrderRequest{newOrder("AAPL", d("16"), types.SideTypeBuy)},
		},
		{
			name:    "flat sell is ignored",
			signals: []signal{{Symbol: "AAPL", Side: types.SideTypeSell, Price: d("30")}},
			cash:    d("1000"),
		},
		{
			name:    "price above budget",
			signals: []signal{{Symbol: "AAPL", Side: types.SideTypeBuy, Price: d("600")}},
			cash:    d("1000"),
		},
		{
			name: "second buy uses remaining cash",
			signals: []signal{
				{Symbol: "AAPL", Side: types.SideTypeBuy, Price: d("10")},
				{Symbol: "MSFT", Side: types.SideTypeBuy, Price: d("10")},
			},
			cash: d("1000"),
			want: []types.OrderRequest{
				newOrder("AAPL", d("50"), types.SideTypeBuy),
				newOrder("MSFT", d("25"), types.SideTypeBuy),
			},
		},
		{
			name:      "long sell closes the position",
			signals:   []signal{{Symbol: "AAPL", Side: types.SideTypeSell, Price: d("30")}},
			positions: map[string]types.Position{"AAPL": {Symbol: "AAPL", Side: types.DirectionLong, Quantity: d("7")}},
			cash:      d("0"),
			want:      []types.OrderRequest{newOrder("AAPL", d("7"), types.SideTypeSell)},
		},
		{
			name:      "long buy does not pyramid",
			signals:   []signal{{Symbol: "AAPL", Side: types.SideTypeBuy, Price: d("30")}},
			positions: map[string]types.Position{"AAPL": {Symbol: "AAPL", Side: types.DirectionLong, Quantity: d("7")}},
			cash:      d("1000"),
		},
		{
			name:      "short buy covers",
			signals:   []signal{{Symbol: "AAPL", Side: types.SideTypeBuy, Price: d("30")}},
			positions: map[string]types.Position{"AAPL": {Symbol: "AAPL", Side: types.DirectionShort, Quantity: d("4")}},
			cash:      d("1000"),
			want:      []types.OrderRequest{newOrder("AAPL", d("4"), types.SideTypeBuy)},
		},
		{
			name:      "short sell is ignored",
			signals:   []signal{{Symbol: "AAPL", Side: types.SideTypeSell, Price: d("30")}},
			positions: map[string]types.Position{"AAPL": {Symbol: "AAPL", Side: types.DirectionShort, Quantity: d("4")}},
			cash:      d("1000"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewLongOnlyAllocator(d("0.5"))
			got := a.Allocate(tt.signals, tt.positions, tt.cash)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.Equal(t, tt.want[i].Symbol, got[i].Symbol)
				assert.Equal(t, tt.want[i].Side, got[i].Side)
				assert.Equal(t, types.TypeMarket, got[i].Type)
				assert.Equal(t, types.TimeInForceDay, got[i].TimeInForce)
				assert.True(t, tt.want[i].Quantity.Equal(got[i].Quantity), "qty got %s want %s", got[i].Quantity, tt.want[i].Quantity)
			}
		})
	}
}
