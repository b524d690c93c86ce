package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailyMetric is the derived per-day aggregate over a user's ledger rows for
// one account. It is always recomputed in full from the current ledger, never
// patched incrementally.
type DailyMetric struct {
	ID         int64           `json:"id,omitempty"`
	UserID     int64           `json:"user_id"`
	AccountID  int64           `json:"account_id"`
	Date       string          `json:"date"` // YYYY-MM-DD
	GrossPnL   decimal.Decimal `json:"gross_pnl"`
	NetPnL     decimal.Decimal `json:"net_pnl"`
	WinCount   int             `json:"win_count"`
	LossCount  int             `json:"loss_count"`
	TradeCount int             `json:"trade_count"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// JournalEntry is a free-form annotation attached to a trading day, created
// either by the user or by the inbound email/webhook channels.
type JournalEntry struct {
	ID             string    `json:"id"`
	UserID         int64     `json:"user_id"`
	AccountID      int64     `json:"account_id"`
	Date           string    `json:"date"`
	Text           string    `json:"text"`
	AttachmentPath string    `json:"attachment_path,omitempty"`
	TradeID        int64     `json:"trade_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
