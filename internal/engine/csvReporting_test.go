package engine

import (
	"barreplay/types"
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	return records
}

func TestWriteValuationsCSV(t *testing.T) {
	valuations := []types.Valuation{
		{Time: day(0), Open: dec("100"), High: dec("103"), Low: dec("99"), Close: dec("102"), Cash: dec("100")},
		{Time: day(1), Open: dec("1.5"), High: dec("2"), Low: dec("1"), Close: dec("1.25"), Cash: dec("0")},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteValuationsCSV(&buf, valuations))

	records := readCSV(t, buf.Bytes())
	require.Len(t, records, 3)
	assert.Equal(t, []string{"t", "open", "high", "low", "close", "cash"}, records[0])
	assert.Equal(t, []string{"2019-01-01T00:00:00Z", "100", "103", "99", "102", "100"}, records[1])
	assert.Equal(t, []string{"2019-01-02T00:00:00Z", "1.5", "2", "1", "1.25", "0"}, records[2])
}

func TestWriteOrdersCSV(t *testing.T) {
	filled := filledOrder("AAPL", types.SideTypeBuy, "102", "10", day(1))
	filled.TimeInForce = types.TimeInForceDay
	filled.CreatedAt = day(1)

	expiredAt := day(2)
	expired := types.Order{
		ID:             "o2",
		ClientOrderID:  "c2",
		Symbol:         "MSFT",
		Side:           types.SideTypeSell,
		Type:           types.TypeLimit,
		TimeInForce:    types.TimeInForceDay,
		Quantity:       dec("3"),
		LimitPrice:     decimal.NewNullDecimal(dec("250.5")),
		Status:         types.OrderExpired,
		CreatedAt:      day(1),
		FilledQuantity: decimal.Zero,
		ExpiredAt:      &expiredAt,
	}

	var buf bytes.Buffer
	require.NoError(t, WriteOrdersCSV(&buf, []types.Order{filled, expired}))

	records := readCSV(t, buf.Bytes())
	require.Len(t, records, 3)
	require.Len(t, records[0], 15)
	assert.Equal(t, "id", records[0][0])

	assert.Equal(t, []string{
		filled.ID, "", "AAPL", "buy", "market", "day", "10", "", "filled",
		"2019-01-02T00:00:00Z", "10", "102", "2019-01-02T00:00:00Z", "", "",
	}, records[1])
	assert.Equal(t, []string{
		"o2", "c2", "MSFT", "sell", "limit", "day", "3", "250.5", "expired",
		"2019-01-02T00:00:00Z", "0", "", "", "2019-01-03T00:00:00Z", "",
	}, records[2])
}

func TestWriteValuationsCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "valuations.csv")
	require.NoError(t, WriteValuationsCSVFile(path, []types.Valuation{{Time: day(0), Close: dec("5")}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, readCSV(t, data), 2)
}

func TestWriteOrdersCSVFile_BadPath(t *testing.T) {
	err := WriteOrdersCSVFile(filepath.Join(t.TempDir(), "missing", "orders.csv"), nil)
	assert.Error(t, err)
}
