package services

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/tradevault/src/models"
	"github.com/username/tradevault/src/processors"
	"github.com/username/tradevault/src/storage"
)

var testSpec = models.MappingSpec{
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

func testRecord(overrides map[string]string) map[string]string {
	record := map[string]string{
		"Contract":    "ES",
		"Side":        "Buy",
		"Qty":         "2",
		"Entry Price": "4500.25",
		"Exit Price":  "4510.00",
		"Entry Time":  "2024-03-15 09:30:00",
		"Exit Time":   "2024-03-15 10:15:00",
		"Commissions": "2.50",
		"P/L":         "19.50",
	}
	for k, v := range overrides {
		record[k] = v
	}
	return record
}

func newTestImportService() (*ImportService, *storage.MemoryLedgerStore, *storage.MemoryMetricsStore) {
	ledger := storage.NewMemoryLedgerStore()
	metrics := storage.NewMemoryMetricsStore()
	engine := processors.NewMetricsEngine(ledger, metrics)
	return NewImportService(ledger, engine, nil), ledger, metrics
}

func TestImportBatchInsertsNewTrades(t *testing.T) {
	t.Parallel()

	svc, ledger, metrics := newTestImportService()

	records := []map[string]string{
		testRecord(nil),
		testRecord(map[string]string{"Contract": "NQ", "Entry Price": "18000.00"}),
	}
	result, err := svc.ImportBatch(1, 1, records, testSpec, models.SourceCSV)
	require.NoError(t, err)

	assert.NotEmpty(t, result.BatchID)
	assert.Equal(t, 2, result.Inserted)
	assert.Equal(t, 0, result.Updated)
	assert.Empty(t, result.Errors)
	assert.Equal(t, []string{"2024-03-15"}, result.DatesTouched)

	trades, err := ledger.ListByAccount(1, 1)
	require.NoError(t, err)
	assert.Len(t, trades, 2)

	m, err := metrics.FindByDay(1, 1, "2024-03-15")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, 2, m.TradeCount)
}

func TestImportBatchIdempotent(t *testing.T) {
	t.Parallel()

	svc, ledger, _ := newTestImportService()

	records := []map[string]string{
		testRecord(nil),
		testRecord(map[string]string{"Contract": "NQ"}),
	}

	first, err := svc.ImportBatch(1, 1, records, testSpec, models.SourceCSV)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Inserted)
	assert.Equal(t, 0, first.Updated)

	second, err := svc.ImportBatch(1, 1, records, testSpec, models.SourceCSV)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Inserted)
	assert.Equal(t, 2, second.Updated)

	trades, err := ledger.ListByAccount(1, 1)
	require.NoError(t, err)
	assert.Len(t, trades, 2, "re-import must not duplicate rows")
}

func TestImportBatchCorrectionUpdatesInPlace(t *testing.T) {
	t.Parallel()

	svc, ledger, metrics := newTestImportService()

	_, err := svc.ImportBatch(1, 1, []map[string]string{testRecord(nil)}, testSpec, models.SourceCSV)
	require.NoError(t, err)

	// Same fill, corrected fee and P&L: fingerprint unchanged, row updated.
	corrected := testRecord(map[string]string{"Commissions": "3.10", "P/L": "18.90"})
	result, err := svc.ImportBatch(1, 1, []map[string]string{corrected}, testSpec, models.SourceCSV)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Inserted)
	assert.Equal(t, 1, result.Updated)

	trades, err := ledger.ListByAccount(1, 1)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.True(t, trades[0].Fees.Equal(decimal.RequireFromString("3.10")))

	m, err := metrics.FindByDay(1, 1, "2024-03-15")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.True(t, m.NetPnL.Equal(decimal.RequireFromString("15.80")), "net: %s", m.NetPnL)
}

func TestImportBatchLastWriteWinsWithinBatch(t *testing.T) {
	t.Parallel()

	svc, ledger, _ := newTestImportService()

	records := []map[string]string{
		testRecord(map[string]string{"Commissions": "2.50"}),
		testRecord(map[string]string{"Commissions": "4.00"}),
	}
	result, err := svc.ImportBatch(1, 1, records, testSpec, models.SourceCSV)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, 1, result.Updated)

	trades, err := ledger.ListByAccount(1, 1)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.True(t, trades[0].Fees.Equal(decimal.RequireFromString("4.00")))
}

func TestImportBatchPartialFailure(t *testing.T) {
	t.Parallel()

	svc, ledger, _ := newTestImportService()

	records := []map[string]string{
		testRecord(nil),
		testRecord(map[string]string{"Side": "Hold", "Contract": "NQ"}),
		testRecord(map[string]string{"Contract": "CL", "Entry Price": "78.50"}),
	}
	result, err := svc.ImportBatch(1, 1, records, testSpec, models.SourceCSV)
	require.NoError(t, err, "a bad row must not abort the batch")

	assert.Equal(t, 2, result.Inserted)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "side")

	trades, err := ledger.ListByAccount(1, 1)
	require.NoError(t, err)
	assert.Len(t, trades, 2)
}

func TestImportBatchTouchesEveryDate(t *testing.T) {
	t.Parallel()

	svc, _, metrics := newTestImportService()

	records := []map[string]string{
		testRecord(map[string]string{"Entry Time": "2024-03-15 09:30:00"}),
		testRecord(map[string]string{"Entry Time": "2024-03-18 11:00:00", "Contract": "NQ"}),
	}
	result, err := svc.ImportBatch(1, 1, records, testSpec, models.SourceCSV)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-03-15", "2024-03-18"}, result.DatesTouched)

	for _, date := range result.DatesTouched {
		m, err := metrics.FindByDay(1, 1, date)
		require.NoError(t, err)
		require.NotNil(t, m, "metrics missing for %s", date)
		assert.Equal(t, 1, m.TradeCount)
	}
}

func TestImportCSV(t *testing.T) {
	t.Parallel()

	svc, ledger, _ := newTestImportService()

	csv := "Contract,Side,Qty,Entry Price,Entry Time\n" +
		"ES,Buy,2,4500.25,2024-03-15 09:30:00\n" +
		"NQ,Sell,1,18000.00,2024-03-15 10:00:00\n"

	result, err := svc.ImportCSV(1, 1, strings.NewReader(csv), testSpec, models.SourceCSV)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Inserted)

	trades, err := ledger.ListByAccount(1, 1)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, models.SideShort, trades[1].Side)
}

func TestImportCSVMalformed(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestImportService()

	_, err := svc.ImportCSV(1, 1, strings.NewReader(""), testSpec, models.SourceCSV)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrParsingFailed)
}
