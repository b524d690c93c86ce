package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/tradevault/src/models"
	"github.com/username/tradevault/src/processors"
	"github.com/username/tradevault/src/storage"
)

const testSecret = "hook-secret"

type webhookFixture struct {
	svc     *WebhookService
	ledger  *storage.MemoryLedgerStore
	metrics *storage.MemoryMetricsStore
	journal *storage.MemoryJournalStore
	account models.Account
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	t.Helper()

	tokens := storage.NewMemoryTokenStore()
	tokens.Seed("tok-alice", 7)

	accounts := storage.NewMemoryAccountStore()
	account := accounts.Seed(7, "funded")

	ledger := storage.NewMemoryLedgerStore()
	metrics := storage.NewMemoryMetricsStore()
	journal := storage.NewMemoryJournalStore()
	engine := processors.NewMetricsEngine(ledger, metrics)

	return &webhookFixture{
		svc:     NewWebhookService(tokens, accounts, ledger, engine, journal, testSecret),
		ledger:  ledger,
		metrics: metrics,
		journal: journal,
		account: account,
	}
}

func validAlert() models.WebhookAlert {
	return models.WebhookAlert{
		UserToken:  "tok-alice",
		AccountTag: "funded",
		Symbol:     "ES",
		Side:       "BUY",
		Qty:        "2",
		Price:      "4500.25",
		Time:       "2024-03-15T09:30:00Z",
		OrderID:    "ord-123",
	}
}

func TestHandleAlertIngestsEntryOnlyTrade(t *testing.T) {
	t.Parallel()

	fx := newWebhookFixture(t)
	trade, err := fx.svc.HandleAlert(validAlert(), testSecret)
	require.NoError(t, err)

	assert.Equal(t, int64(7), trade.UserID)
	assert.Equal(t, fx.account.ID, trade.AccountID)
	assert.Equal(t, "ES", trade.Symbol)
	assert.Equal(t, models.SideLong, trade.Side)
	assert.True(t, trade.Quantity.Equal(decimal.NewFromInt(2)))
	assert.Nil(t, trade.ExitPrice, "alerts produce open positions")
	assert.Nil(t, trade.ExitTime)
	assert.Equal(t, models.SourceWebhook, trade.Source)

	m, err := fx.metrics.FindByDay(7, fx.account.ID, "2024-03-15")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, 1, m.TradeCount)
}

func TestHandleAlertSellMapsToShort(t *testing.T) {
	t.Parallel()

	fx := newWebhookFixture(t)
	alert := validAlert()
	alert.Side = "SELL"
	trade, err := fx.svc.HandleAlert(alert, testSecret)
	require.NoError(t, err)
	assert.Equal(t, models.SideShort, trade.Side)
}

func TestHandleAlertRejectsBadSecret(t *testing.T) {
	t.Parallel()

	fx := newWebhookFixture(t)
	_, err := fx.svc.HandleAlert(validAlert(), "wrong")
	assert.ErrorIs(t, err, ErrBadWebhookSecret)

	trades, err := fx.ledger.ListByAccount(7, fx.account.ID)
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestHandleAlertUnknownToken(t *testing.T) {
	t.Parallel()

	fx := newWebhookFixture(t)
	alert := validAlert()
	alert.UserToken = "tok-nobody"
	_, err := fx.svc.HandleAlert(alert, testSecret)
	assert.ErrorIs(t, err, ErrUnknownToken)
}

func TestHandleAlertUnknownAccount(t *testing.T) {
	t.Parallel()

	// Alerts carry an explicit tag; a typo must fail loudly, not land in
	// some other account.
	fx := newWebhookFixture(t)
	alert := validAlert()
	alert.AccountTag = "fundedd"
	_, err := fx.svc.HandleAlert(alert, testSecret)
	assert.ErrorIs(t, err, ErrUnknownAccount)
}

func TestHandleAlertRejectsBadPayload(t *testing.T) {
	t.Parallel()

	fx := newWebhookFixture(t)

	mutations := map[string]func(*models.WebhookAlert){
		"missing symbol": func(a *models.WebhookAlert) { a.Symbol = "" },
		"bad side":       func(a *models.WebhookAlert) { a.Side = "HOLD" },
		"zero qty":       func(a *models.WebhookAlert) { a.Qty = "0" },
		"missing price":  func(a *models.WebhookAlert) { a.Price = "" },
		"bad time":       func(a *models.WebhookAlert) { a.Time = "whenever" },
	}
	for name, mutate := range mutations {
		alert := validAlert()
		mutate(&alert)
		_, err := fx.svc.HandleAlert(alert, testSecret)
		assert.ErrorIs(t, err, ErrParsingFailed, name)
	}
}

func TestHandleAlertResendUpdatesByOrderID(t *testing.T) {
	t.Parallel()

	fx := newWebhookFixture(t)

	first, err := fx.svc.HandleAlert(validAlert(), testSecret)
	require.NoError(t, err)

	// TradingView retries deliver the same alert again, possibly with a
	// corrected price.
	resend := validAlert()
	resend.Price = "4501.00"
	second, err := fx.svc.HandleAlert(resend, testSecret)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	trades, err := fx.ledger.ListByAccount(7, fx.account.ID)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.True(t, trades[0].EntryPrice.Equal(decimal.RequireFromString("4501.00")))
}

func TestHandleAlertStoresAnnotation(t *testing.T) {
	t.Parallel()

	fx := newWebhookFixture(t)
	alert := validAlert()
	alert.AlertText = "breakout above yesterday's high"
	alert.ScreenshotURL = "https://charts.example.com/snap/1.png"

	trade, err := fx.svc.HandleAlert(alert, testSecret)
	require.NoError(t, err)

	entries := fx.journal.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, trade.ID, entries[0].TradeID)
	assert.Equal(t, "2024-03-15", entries[0].Date)
	assert.Equal(t, alert.AlertText, entries[0].Text)
	assert.Equal(t, alert.ScreenshotURL, entries[0].AttachmentPath)
}

func TestHandleAlertNoAnnotationWithoutContent(t *testing.T) {
	t.Parallel()

	fx := newWebhookFixture(t)
	_, err := fx.svc.HandleAlert(validAlert(), testSecret)
	require.NoError(t, err)
	assert.Empty(t, fx.journal.Entries())
}
