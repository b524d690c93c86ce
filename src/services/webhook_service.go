package services

import (
	"crypto/subtle"
	"fmt"
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/username/tradevault/src/logger"
	"github.com/username/tradevault/src/models"
	"github.com/username/tradevault/src/normalize"
	"github.com/username/tradevault/src/processors"
	"github.com/username/tradevault/src/storage"
)

// WebhookService ingests one TradingView-style alert as an entry-only trade:
// an open position marker, not a closed trade. Dedup uses the external order
// id rather than the batch fingerprint.
type WebhookService struct {
	tokens   storage.TokenStore
	accounts storage.AccountStore
	ledger   storage.LedgerStore
	metrics  *processors.MetricsEngine
	journal  storage.JournalStore
	secret   string
	entropy  *ulid.MonotonicEntropy
}

func NewWebhookService(tokens storage.TokenStore, accounts storage.AccountStore,
	ledger storage.LedgerStore, metrics *processors.MetricsEngine,
	journal storage.JournalStore, secret string) *WebhookService {
	return &WebhookService{
		tokens:   tokens,
		accounts: accounts,
		ledger:   ledger,
		metrics:  metrics,
		journal:  journal,
		secret:   secret,
		entropy:  ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
}

// HandleAlert verifies the shared secret, routes the alert to its user and
// account, stores the trade and an optional annotation, and recomputes the
// affected date. Authentication and routing failures are the only hard
// failure paths.
func (s *WebhookService) HandleAlert(alert models.WebhookAlert, providedSecret string) (*models.Trade, error) {
	if s.secret == "" || subtle.ConstantTimeCompare([]byte(providedSecret), []byte(s.secret)) != 1 {
		return nil, ErrBadWebhookSecret
	}

	userID, err := s.tokens.ResolveUserByToken(alert.UserToken)
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, ErrUnknownToken
		}
		return nil, fmt.Errorf("%w: resolving token: %v", ErrStorageUnavailable, err)
	}

	account, err := s.accounts.FindByTag(userID, alert.AccountTag)
	if err != nil {
		return nil, fmt.Errorf("%w: resolving account: %v", ErrStorageUnavailable, err)
	}
	if account == nil {
		return nil, fmt.Errorf("%w: tag %q", ErrUnknownAccount, alert.AccountTag)
	}

	candidate, err := alertToCandidate(alert)
	if err != nil {
		return nil, err
	}

	trade := candidateToTrade(*candidate, userID, account.ID,
		processors.Fingerprint(*candidate, account.ID), models.SourceWebhook)

	// A resent alert with the same order id updates the existing row
	// instead of duplicating it.
	existing, err := s.ledger.FindByOrderID(account.ID, models.SourceWebhook, alert.OrderID)
	if err != nil {
		return nil, fmt.Errorf("%w: looking up order id: %v", ErrStorageUnavailable, err)
	}
	if existing != nil {
		trade.ID = existing.ID
		if err := s.ledger.Update(existing.ID, trade); err != nil {
			return nil, fmt.Errorf("%w: updating trade %d: %v", ErrStorageUnavailable, existing.ID, err)
		}
	} else {
		id, err := s.ledger.Insert(trade)
		if err != nil {
			// An alert resent without an order id lands on the ledger's
			// fingerprint uniqueness; overwrite the existing row.
			if dup, findErr := s.ledger.FindByFingerprint(account.ID, trade.Fingerprint); findErr == nil && dup != nil {
				trade.ID = dup.ID
				if err := s.ledger.Update(dup.ID, trade); err != nil {
					return nil, fmt.Errorf("%w: updating trade %d: %v", ErrStorageUnavailable, dup.ID, err)
				}
			} else {
				return nil, fmt.Errorf("%w: inserting trade: %v", ErrStorageUnavailable, err)
			}
		} else {
			trade.ID = id
		}
	}

	date := trade.EntryTime.UTC().Format("2006-01-02")
	if alert.ScreenshotURL != "" || alert.AlertText != "" {
		entry := &models.JournalEntry{
			ID:             ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String(),
			UserID:         userID,
			AccountID:      account.ID,
			Date:           date,
			Text:           alert.AlertText,
			AttachmentPath: alert.ScreenshotURL,
			TradeID:        trade.ID,
			CreatedAt:      time.Now().UTC(),
		}
		if err := s.journal.Insert(entry); err != nil {
			logger.L.Warn("Failed to store webhook annotation", "tradeID", trade.ID, "error", err)
		}
	}

	if err := s.metrics.RecomputeDay(userID, account.ID, date); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	logger.L.Info("Webhook alert ingested",
		"userID", userID, "accountID", account.ID, "symbol", trade.Symbol,
		"orderID", trade.OrderID, "date", date)
	return trade, nil
}

// alertToCandidate validates the loosely-typed alert at the boundary and
// builds an entry-only candidate. Exit fields stay nil.
func alertToCandidate(alert models.WebhookAlert) (*models.TradeCandidate, error) {
	symbol := normalize.Symbol(alert.Symbol)
	if symbol == "" {
		return nil, fmt.Errorf("%w: missing symbol", ErrParsingFailed)
	}
	side := normalize.Side(alert.Side)
	if side == "" {
		return nil, fmt.Errorf("%w: unrecognized side %q", ErrParsingFailed, alert.Side)
	}
	qty, ok := normalize.Number(alert.Qty)
	if !ok || !qty.IsPositive() {
		return nil, fmt.Errorf("%w: qty %q is not a positive number", ErrParsingFailed, alert.Qty)
	}
	price, ok := normalize.Number(alert.Price)
	if !ok {
		return nil, fmt.Errorf("%w: missing price", ErrParsingFailed)
	}
	entryTime, ok := normalize.Date(alert.Time)
	if !ok {
		return nil, fmt.Errorf("%w: unparseable time %q", ErrParsingFailed, alert.Time)
	}

	return &models.TradeCandidate{
		Symbol:     symbol,
		Side:       side,
		Quantity:   qty,
		EntryPrice: price,
		EntryTime:  entryTime,
		OrderID:    alert.OrderID,
	}, nil
}
