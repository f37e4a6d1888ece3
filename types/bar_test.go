package types

import (
	"math"
	"testing"
	"time"
)

func TestNewBar_NormalizesTime(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)
	at := time.Date(2020, 3, 2, 9, 30, 0, 123456789, est)

	b := NewBar(at, nil)

	if b.Time.Location() != time.UTC {
		t.Errorf("location = %s, want UTC", b.Time.Location())
	}
	if !b.Time.Equal(time.Date(2020, 3, 2, 14, 30, 0, 123000000, time.UTC)) {
		t.Errorf("time = %s", b.Time)
	}
	if got := NewBarFromMillis(b.Timestamp(), nil); !got.Time.Equal(b.Time) {
		t.Errorf("NewBarFromMillis(Timestamp()) = %s, want %s", got.Time, b.Time)
	}
}

func TestBar_OHLC(t *testing.T) {
	prices := map[string]OHLC{"AAPL": {Open: 1, High: 2, Low: 0.5, Close: 1.5}}
	b := NewBar(time.Unix(0, 0), prices)
	prices["AAPL"] = OHLC{}

	got, ok := b.OHLC("AAPL")
	if !ok || got.High != 2 {
		t.Errorf("OHLC(AAPL) = %v, %v", got, ok)
	}
	if _, ok := b.OHLC("MSFT"); ok {
		t.Error("OHLC(MSFT) found in bar without MSFT")
	}
}

func TestOHLC_Finite(t *testing.T) {
	tests := []struct {
		name string
		ohlc OHLC
		want bool
	}{
		{"all finite", OHLC{1, 2, 0.5, 1.5}, true},
		{"nan high", OHLC{1, math.NaN(), 0.5, 1.5}, false},
		{"inf close", OHLC{1, 2, 0.5, math.Inf(1)}, false},
		{"negative inf low", OHLC{1, 2, math.Inf(-1), 1.5}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ohlc.Finite(); got != tt.want {
				t.Errorf("Finite() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOrderEnums(t *testing.T) {
	if !SideTypeBuy.Valid() || Side("hold").Valid() {
		t.Error("Side.Valid")
	}
	if !TypeStopLimit.Valid() || OrderType("trailing").Valid() {
		t.Error("OrderType.Valid")
	}
	if !TimeInForceFOK.Valid() || TimeInForce("week").Valid() {
		t.Error("TimeInForce.Valid")
	}
	for _, s := range []OrderStatus{OrderFilled, OrderCanceled, OrderExpired} {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	if OrderOpen.IsTerminal() {
		t.Error("open should not be terminal")
	}
}

func TestParseInterval(t *testing.T) {
	i, err := ParseInterval("day")
	if err != nil || i != Day || i.Duration() != 24*time.Hour {
		t.Errorf("ParseInterval(day) = %v, %v", i, err)
	}
	if _, err := ParseInterval("month"); err == nil {
		t.Error("ParseInterval(month) should fail")
	}
}
