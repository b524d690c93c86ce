package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of a trade.
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// SourceTag identifies the channel that produced a ledger row.
type SourceTag string

const (
	SourceCSV        SourceTag = "csv"
	SourceEmail      SourceTag = "email"
	SourceWebhook    SourceTag = "tradingview-webhook"
	SourceManual     SourceTag = "manual"
	SourceBrokerSync SourceTag = "broker-sync"
)

// TradeCandidate is the transient output of row parsing, before it is
// attributed to a user/account and persisted.
type TradeCandidate struct {
	Symbol     string          `json:"symbol"`
	Side       Side            `json:"side"`
	Quantity   decimal.Decimal `json:"quantity"`
	EntryPrice decimal.Decimal `json:"entry_price"`
	ExitPrice  *decimal.Decimal `json:"exit_price,omitempty"`
	EntryTime  time.Time       `json:"entry_time"`
	ExitTime   *time.Time      `json:"exit_time,omitempty"`
	Fees       decimal.Decimal `json:"fees"`
	PnL        *decimal.Decimal `json:"pnl,omitempty"`
	OrderID    string          `json:"order_id,omitempty"`
}

// Trade is one canonical, persisted ledger row.
type Trade struct {
	ID          int64           `json:"id,omitempty"`
	UserID      int64           `json:"user_id"`
	AccountID   int64           `json:"account_id"`
	Symbol      string          `json:"symbol"`
	Side        Side            `json:"side"`
	Quantity    decimal.Decimal `json:"quantity"`
	EntryPrice  decimal.Decimal `json:"entry_price"`
	ExitPrice   *decimal.Decimal `json:"exit_price,omitempty"`
	EntryTime   time.Time       `json:"entry_time"`
	ExitTime    *time.Time      `json:"exit_time,omitempty"`
	Fees        decimal.Decimal `json:"fees"`
	PnL         *decimal.Decimal `json:"pnl,omitempty"`
	OrderID     string          `json:"order_id,omitempty"`
	Fingerprint string          `json:"-"`
	Source      SourceTag       `json:"source"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Account is a user-owned bucket of trades, addressed by tag from the
// alternate ingestion channels.
type Account struct {
	ID     int64  `json:"id"`
	UserID int64  `json:"user_id"`
	Tag    string `json:"tag"`
	Name   string `json:"name"`
}
