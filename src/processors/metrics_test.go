package processors

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/tradevault/src/models"
	"github.com/username/tradevault/src/storage"
)

func seedTrade(t *testing.T, ledger *storage.MemoryLedgerStore, entry time.Time, pnl, fees string) {
	t.Helper()
	trade := &models.Trade{
		UserID:    1,
		AccountID: 1,
		Symbol:    "ES",
		Side:      models.SideLong,
		Quantity:  decimal.NewFromInt(1),
		EntryTime: entry,
		Fees:      decimal.RequireFromString(fees),
	}
	if pnl != "" {
		p := decimal.RequireFromString(pnl)
		trade.PnL = &p
	}
	_, err := ledger.Insert(trade)
	require.NoError(t, err)
}

func TestRecomputeDay(t *testing.T) {
	t.Parallel()

	ledger := storage.NewMemoryLedgerStore()
	metrics := storage.NewMemoryMetricsStore()
	engine := NewMetricsEngine(ledger, metrics)

	day := time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)
	seedTrade(t, ledger, day, "100", "1")
	seedTrade(t, ledger, day.Add(time.Hour), "-40", "1")
	seedTrade(t, ledger, day.Add(2*time.Hour), "0", "0")
	seedTrade(t, ledger, day.Add(3*time.Hour), "-10", "1")

	require.NoError(t, engine.RecomputeDay(1, 1, "2024-03-15"))

	m, err := metrics.FindByDay(1, 1, "2024-03-15")
	require.NoError(t, err)
	require.NotNil(t, m)

	assert.True(t, m.GrossPnL.Equal(decimal.NewFromInt(50)), "gross: %s", m.GrossPnL)
	assert.True(t, m.NetPnL.Equal(decimal.NewFromInt(47)), "net: %s", m.NetPnL)
	assert.Equal(t, 1, m.WinCount, "zero P&L is neither a win nor a loss")
	assert.Equal(t, 2, m.LossCount)
	assert.Equal(t, 4, m.TradeCount)
}

func TestRecomputeDayOpenTradesCountButDontScore(t *testing.T) {
	t.Parallel()

	ledger := storage.NewMemoryLedgerStore()
	metrics := storage.NewMemoryMetricsStore()
	engine := NewMetricsEngine(ledger, metrics)

	day := time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)
	seedTrade(t, ledger, day, "25", "1")
	seedTrade(t, ledger, day.Add(time.Hour), "", "2") // open position, no realized P&L

	require.NoError(t, engine.RecomputeDay(1, 1, "2024-03-15"))

	m, err := metrics.FindByDay(1, 1, "2024-03-15")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, 2, m.TradeCount)
	assert.Equal(t, 1, m.WinCount)
	assert.Equal(t, 0, m.LossCount)
	assert.True(t, m.GrossPnL.Equal(decimal.NewFromInt(25)))
	assert.True(t, m.NetPnL.Equal(decimal.NewFromInt(22)), "fees of open trades still reduce net")
}

func TestRecomputeDayIdempotent(t *testing.T) {
	t.Parallel()

	ledger := storage.NewMemoryLedgerStore()
	metrics := storage.NewMemoryMetricsStore()
	engine := NewMetricsEngine(ledger, metrics)

	day := time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)
	seedTrade(t, ledger, day, "100", "1")

	require.NoError(t, engine.RecomputeDay(1, 1, "2024-03-15"))
	first, err := metrics.FindByDay(1, 1, "2024-03-15")
	require.NoError(t, err)

	require.NoError(t, engine.RecomputeDay(1, 1, "2024-03-15"))
	second, err := metrics.FindByDay(1, 1, "2024-03-15")
	require.NoError(t, err)

	assert.True(t, first.GrossPnL.Equal(second.GrossPnL))
	assert.True(t, first.NetPnL.Equal(second.NetPnL))
	assert.Equal(t, first.TradeCount, second.TradeCount)
	assert.Equal(t, first.WinCount, second.WinCount)
	assert.Equal(t, first.LossCount, second.LossCount)
}

func TestRecomputeDayScopedToDate(t *testing.T) {
	t.Parallel()

	ledger := storage.NewMemoryLedgerStore()
	metrics := storage.NewMemoryMetricsStore()
	engine := NewMetricsEngine(ledger, metrics)

	seedTrade(t, ledger, time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC), "100", "0")
	seedTrade(t, ledger, time.Date(2024, 3, 16, 9, 0, 0, 0, time.UTC), "-50", "0")

	require.NoError(t, engine.RecomputeDay(1, 1, "2024-03-15"))

	m, err := metrics.FindByDay(1, 1, "2024-03-15")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, 1, m.TradeCount)
	assert.True(t, m.GrossPnL.Equal(decimal.NewFromInt(100)))

	other, err := metrics.FindByDay(1, 1, "2024-03-16")
	require.NoError(t, err)
	assert.Nil(t, other, "untouched dates are not recomputed")
}
