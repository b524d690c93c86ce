package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/tradevault/src/models"
	"github.com/username/tradevault/src/storage"
)

type fakeGenerator struct {
	prompt string
	reply  string
	calls  int
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.prompt = prompt
	f.calls++
	return f.reply, nil
}

func TestDailyCoaching(t *testing.T) {
	t.Parallel()

	metrics := storage.NewMemoryMetricsStore()
	require.NoError(t, metrics.Upsert(&models.DailyMetric{
		UserID: 1, AccountID: 1, Date: "2024-03-15",
		GrossPnL: decimal.RequireFromString("50"), NetPnL: decimal.RequireFromString("47"),
		WinCount: 1, LossCount: 2, TradeCount: 4,
		UpdatedAt: time.Now().UTC(),
	}))

	gen := &fakeGenerator{reply: "Solid discipline today."}
	svc := NewCoachService(gen, metrics)

	text, err := svc.DailyCoaching(context.Background(), 1, 1, "2024-03-15")
	require.NoError(t, err)
	assert.Equal(t, "Solid discipline today.", text)

	assert.Contains(t, gen.prompt, "2024-03-15")
	assert.Contains(t, gen.prompt, "Trades: 4")
	assert.Contains(t, gen.prompt, "Wins: 1")
	assert.Contains(t, gen.prompt, "$50.00")
	assert.Contains(t, gen.prompt, "$47.00")
}

func TestDailyCoachingNoActivity(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{reply: "should never be used"}
	svc := NewCoachService(gen, storage.NewMemoryMetricsStore())

	text, err := svc.DailyCoaching(context.Background(), 1, 1, "2024-03-15")
	require.NoError(t, err)
	assert.Empty(t, text)
	assert.Zero(t, gen.calls, "no metric row means no generator call")
}

func TestFormatUSD(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "$47.00", formatUSD(decimal.RequireFromString("47")))
	assert.Equal(t, "-$12.50", formatUSD(decimal.RequireFromString("-12.5")))
	assert.Equal(t, "$0.00", formatUSD(decimal.Zero))
}
