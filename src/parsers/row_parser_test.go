package parsers

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/tradevault/src/models"
)

var apexSpec = models.MappingSpec{
	Symbol:     "Contract",
	Side:       "Side",
	Quantity:   "Qty",
	EntryPrice: "Entry Price",
	ExitPrice:  "Exit Price",
	EntryTime:  "Entry Time",
	ExitTime:   "Exit Time",
	Fees:       "Commissions",
	PnL:        "P/L",
}

func apexRecord() map[string]string {
	return map[string]string{
		"Contract":    "es",
		"Side":        "Buy",
		"Qty":         "2",
		"Entry Price": "$4500.25",
		"Exit Price":  "4510.00",
		"Entry Time":  "2024-03-15 09:30:00",
		"Exit Time":   "2024-03-15 10:15:00",
		"Commissions": "2.50",
		"P/L":         "19.50",
	}
}

func TestParseRowComplete(t *testing.T) {
	t.Parallel()

	c, err := ParseRow(apexRecord(), apexSpec)
	require.NoError(t, err)

	assert.Equal(t, "ES", c.Symbol)
	assert.Equal(t, models.SideLong, c.Side)
	assert.True(t, c.Quantity.Equal(decimal.NewFromInt(2)))
	assert.True(t, c.EntryPrice.Equal(decimal.RequireFromString("4500.25")))
	require.NotNil(t, c.ExitPrice)
	assert.True(t, c.ExitPrice.Equal(decimal.RequireFromString("4510.00")))
	assert.True(t, c.EntryTime.Equal(time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)))
	require.NotNil(t, c.ExitTime)
	assert.True(t, c.ExitTime.Equal(time.Date(2024, 3, 15, 10, 15, 0, 0, time.UTC)))
	assert.True(t, c.Fees.Equal(decimal.RequireFromString("2.50")))
	require.NotNil(t, c.PnL)
	assert.True(t, c.PnL.Equal(decimal.RequireFromString("19.50")))
}

func TestParseRowOptionalFieldsAbsent(t *testing.T) {
	t.Parallel()

	record := apexRecord()
	delete(record, "Exit Price")
	delete(record, "Exit Time")
	delete(record, "Commissions")
	delete(record, "P/L")

	c, err := ParseRow(record, apexSpec)
	require.NoError(t, err)
	assert.Nil(t, c.ExitPrice)
	assert.Nil(t, c.ExitTime)
	assert.True(t, c.Fees.IsZero())
	assert.Nil(t, c.PnL)
}

func TestParseRowUnrecognizedSide(t *testing.T) {
	t.Parallel()

	record := apexRecord()
	record["Side"] = "Hold"

	_, err := ParseRow(record, apexSpec)
	require.Error(t, err)
	var rowErr *RowError
	require.ErrorAs(t, err, &rowErr)
	assert.Contains(t, rowErr.Reason, "side")
}

func TestParseRowBadQuantity(t *testing.T) {
	t.Parallel()

	for _, qty := range []string{"", "0", "-2", "abc"} {
		record := apexRecord()
		record["Qty"] = qty
		_, err := ParseRow(record, apexSpec)
		assert.Error(t, err, "qty %q should be rejected", qty)
	}
}

func TestParseRowMissingSymbol(t *testing.T) {
	t.Parallel()

	record := apexRecord()
	record["Contract"] = "  "
	_, err := ParseRow(record, apexSpec)
	require.Error(t, err)
	var rowErr *RowError
	require.ErrorAs(t, err, &rowErr)
	assert.Contains(t, rowErr.Reason, "symbol")
}

func TestParseRowUnparseableEntryTime(t *testing.T) {
	t.Parallel()

	record := apexRecord()
	record["Entry Time"] = "not a timestamp"
	_, err := ParseRow(record, apexSpec)
	assert.Error(t, err)
}

func TestParseRowNegativeFeesStoredAbsolute(t *testing.T) {
	t.Parallel()

	record := apexRecord()
	record["Commissions"] = "(2.50)"
	c, err := ParseRow(record, apexSpec)
	require.NoError(t, err)
	assert.True(t, c.Fees.Equal(decimal.RequireFromString("2.50")))
}
