package engine

import (
	"barreplay/types"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/shopspring/decimal"
)

// WriteValuationsCSVFile writes the valuation series to a CSV file at path.
func WriteValuationsCSVFile(path string, valuations []types.Valuation) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create valuations file: %w", err)
	}
	defer f.Close()

	return WriteValuationsCSV(f, valuations)
}

// WriteValuationsCSV writes one row per valuation, timestamps as RFC3339.
func WriteValuationsCSV(w io.Writer, valuations []types.Valuation) error {
	cw := csv.NewWriter(w)

	header := []string{"t", "open", "high", "low", "close", "cash"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, v := range valuations {
		record := []string{
			v.Time.Format(time.RFC3339),
			v.Open.String(),
			v.High.String(),
			v.Low.String(),
			v.Close.String(),
			v.Cash.String(),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// WriteOrdersCSVFile writes the order list to a CSV file at path.
func WriteOrdersCSVFile(path string, orders []types.Order) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create orders file: %w", err)
	}
	defer f.Close()

	return WriteOrdersCSV(f, orders)
}

// WriteOrdersCSV writes one row per order in submission order. Unset optional
// fields are empty cells.
func WriteOrdersCSV(w io.Writer, orders []types.Order) error {
	cw := csv.NewWriter(w)

	header := []string{
		"id",
		"client_order_id",
		"symbol",
		"side",
		"type",
		"time_in_force",
		"qty",
		"limit_price",
		"status",
		"created_at", // RFC3339
		"filled_qty",
		"filled_avg_price",
		"filled_at",
		"expired_at",
		"canceled_at",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, o := range orders {
		if err := writeOrderRow(cw, o); err != nil {
			return err
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func writeOrderRow(cw *csv.Writer, o types.Order) error {
	record := []string{
		o.ID,
		o.ClientOrderID,
		o.Symbol,
		string(o.Side),
		string(o.Type),
		string(o.TimeInForce),
		o.Quantity.String(),
		nullDecimalString(o.LimitPrice),
		string(o.Status),
		o.CreatedAt.Format(time.RFC3339),
		o.FilledQuantity.String(),
		nullDecimalString(o.FilledAvgPrice),
		timeString(o.FilledAt),
		timeString(o.ExpiredAt),
		timeString(o.CanceledAt),
	}
	if err := cw.Write(record); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

func nullDecimalString(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}

func timeString(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
