package processors

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/tradevault/src/logger"
	"github.com/username/tradevault/src/models"
	"github.com/username/tradevault/src/storage"
)

// MetricsEngine recomputes the daily aggregate for a (user, account, date)
// from the full set of ledger rows for that date and replaces the stored
// aggregate wholesale. Recomputation is serialized per key so two concurrent
// imports touching the same day cannot interleave the read and the replace.
type MetricsEngine struct {
	ledger  storage.LedgerStore
	metrics storage.MetricsStore

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewMetricsEngine(ledger storage.LedgerStore, metrics storage.MetricsStore) *MetricsEngine {
	return &MetricsEngine{
		ledger:  ledger,
		metrics: metrics,
		locks:   make(map[string]*sync.Mutex),
	}
}

func (e *MetricsEngine) dayLock(userID, accountID int64, date string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	key := fmt.Sprintf("%d:%d:%s", userID, accountID, date)
	l, ok := e.locks[key]
	if !ok {
		l = &sync.Mutex{}
		e.locks[key] = l
	}
	return l
}

// RecomputeDay rebuilds the daily metric row for one calendar date
// (YYYY-MM-DD, UTC). The result is a pure function of the current ledger
// rows for that date: gross P&L is the sum of realized P&L, net subtracts
// total fees, strictly positive P&L counts as a win and strictly negative as
// a loss. Recomputing twice with no ledger change yields identical output.
func (e *MetricsEngine) RecomputeDay(userID, accountID int64, date string) error {
	l := e.dayLock(userID, accountID, date)
	l.Lock()
	defer l.Unlock()

	rows, err := e.ledger.ListByAccountDate(userID, accountID, date)
	if err != nil {
		return fmt.Errorf("metrics: listing ledger rows for %s: %w", date, err)
	}

	gross := decimal.Zero
	fees := decimal.Zero
	wins, losses := 0, 0
	for _, row := range rows {
		fees = fees.Add(row.Fees)
		if row.PnL == nil {
			continue
		}
		gross = gross.Add(*row.PnL)
		switch {
		case row.PnL.IsPositive():
			wins++
		case row.PnL.IsNegative():
			losses++
		}
	}

	metric := &models.DailyMetric{
		UserID:     userID,
		AccountID:  accountID,
		Date:       date,
		GrossPnL:   gross,
		NetPnL:     gross.Sub(fees),
		WinCount:   wins,
		LossCount:  losses,
		TradeCount: len(rows),
		UpdatedAt:  time.Now().UTC(),
	}

	if err := e.metrics.Upsert(metric); err != nil {
		return fmt.Errorf("metrics: upserting aggregate for %s: %w", date, err)
	}
	logger.L.Debug("Recomputed daily metrics",
		"userID", userID, "accountID", accountID, "date", date,
		"trades", metric.TradeCount, "netPnL", metric.NetPnL.String())
	return nil
}
