// Package storage defines the persistence collaborators consumed by the
// ingestion pipeline, plus their sqlite and in-memory implementations. All
// ledger and metrics mutation goes through the import service or the metrics
// engine; nothing else writes to these stores.
package storage

import (
	"errors"

	"github.com/username/tradevault/src/models"
)

// ErrNotFound is returned by lookups that address a single required record,
// such as token resolution.
var ErrNotFound = errors.New("storage: not found")

// LedgerStore persists canonical trade rows. FindByFingerprint and
// FindByOrderID return (nil, nil) when no row matches.
type LedgerStore interface {
	FindByFingerprint(accountID int64, fingerprint string) (*models.Trade, error)
	FindByOrderID(accountID int64, source models.SourceTag, orderID string) (*models.Trade, error)
	Insert(t *models.Trade) (int64, error)
	Update(id int64, t *models.Trade) error
	ListByAccount(userID, accountID int64) ([]models.Trade, error)
	ListByAccountDate(userID, accountID int64, date string) ([]models.Trade, error)
}

// MetricsStore persists the derived daily aggregates, exactly one row per
// (user, account, date).
type MetricsStore interface {
	FindByDay(userID, accountID int64, date string) (*models.DailyMetric, error)
	Upsert(m *models.DailyMetric) error
}

// MappingStore persists named, user-owned column mapping profiles.
type MappingStore interface {
	Save(p *models.MappingProfile) error
	ListByUser(userID int64) ([]models.MappingProfile, error)
	FindByName(userID int64, name string) (*models.MappingProfile, error)
}

// TokenStore routes inbound email/webhook traffic to a user via an opaque
// per-user secret. Rotating invalidates the prior token.
type TokenStore interface {
	ResolveUserByToken(token string) (int64, error)
	Rotate(userID int64) (string, error)
}

// AccountStore resolves the target account of an inbound alert or email.
type AccountStore interface {
	FindByTag(userID int64, tag string) (*models.Account, error)
	EnsureDefault(userID int64) (*models.Account, error)
}

// JournalStore persists annotation entries created alongside ingested trades.
type JournalStore interface {
	Insert(e *models.JournalEntry) error
	ListByUserDate(userID int64, date string) ([]models.JournalEntry, error)
}
