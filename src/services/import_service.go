package services

import (
	"fmt"
	"io"
	"math/rand"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/patrickmn/go-cache"
	"github.com/username/tradevault/src/logger"
	"github.com/username/tradevault/src/models"
	"github.com/username/tradevault/src/parsers"
	"github.com/username/tradevault/src/processors"
	"github.com/username/tradevault/src/storage"
)

const (
	ckDailySummary = "agg_daily_summary_user_%d"

	DefaultCacheExpiration = 15 * time.Minute
	CacheCleanupInterval   = 30 * time.Minute
)

// ImportResult summarizes one batch import. A batch always reports counts
// and per-row problems, even under partial failure; callers never see
// all-or-nothing for a multi-row file.
type ImportResult struct {
	BatchID      string   `json:"batch_id"`
	Inserted     int      `json:"inserted"`
	Updated      int      `json:"updated"`
	DatesTouched []string `json:"dates_touched"`
	Errors       []string `json:"errors"`
}

// ImportService drives raw records through parsing, fingerprinting and the
// ledger store, then recomputes metrics for every touched date.
type ImportService struct {
	ledger      storage.LedgerStore
	metrics     *processors.MetricsEngine
	reportCache *cache.Cache
	entropy     *ulid.MonotonicEntropy
}

func NewImportService(ledger storage.LedgerStore, metrics *processors.MetricsEngine, reportCache *cache.Cache) *ImportService {
	return &ImportService{
		ledger:      ledger,
		metrics:     metrics,
		reportCache: reportCache,
		entropy:     ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
}

func (s *ImportService) newBatchID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

// ImportBatch processes raw records in input order. Rows that fail to parse
// are recorded as diagnostics and skipped; the batch never aborts on a row.
// Within one batch the last occurrence of a fingerprint wins. Only
// infrastructure failures (storage unreachable) abort the batch.
func (s *ImportService) ImportBatch(userID, accountID int64, records []map[string]string, spec models.MappingSpec, source models.SourceTag) (*ImportResult, error) {
	start := time.Now()
	result := &ImportResult{BatchID: s.newBatchID()}
	logger.L.Info("ImportBatch START",
		"batchID", result.BatchID, "userID", userID, "accountID", accountID,
		"source", source, "rows", len(records))

	var candidates []models.TradeCandidate
	for _, record := range records {
		candidate, err := parsers.ParseRow(record, spec)
		if err != nil {
			result.Errors = append(result.Errors, err.Error())
			continue
		}
		candidates = append(candidates, candidate)
	}

	if err := s.importCandidates(userID, accountID, candidates, source, result); err != nil {
		return nil, err
	}

	logger.L.Info("ImportBatch END",
		"batchID", result.BatchID, "inserted", result.Inserted, "updated", result.Updated,
		"rowErrors", len(result.Errors), "duration", time.Since(start))
	return result, nil
}

// ImportCandidates ingests already-typed candidates, e.g. from the
// broker-sync adapter, through the same dedup and recompute path.
func (s *ImportService) ImportCandidates(userID, accountID int64, candidates []models.TradeCandidate, source models.SourceTag) (*ImportResult, error) {
	result := &ImportResult{BatchID: s.newBatchID()}
	if err := s.importCandidates(userID, accountID, candidates, source, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *ImportService) importCandidates(userID, accountID int64, candidates []models.TradeCandidate, source models.SourceTag, result *ImportResult) error {
	datesTouched := make(map[string]bool)

	for _, candidate := range candidates {
		fingerprint := processors.Fingerprint(candidate, accountID)

		existing, err := s.ledger.FindByFingerprint(accountID, fingerprint)
		if err != nil {
			return fmt.Errorf("%w: looking up fingerprint: %v", ErrStorageUnavailable, err)
		}

		row := candidateToTrade(candidate, userID, accountID, fingerprint, source)
		if existing != nil {
			if err := s.ledger.Update(existing.ID, row); err != nil {
				return fmt.Errorf("%w: updating trade %d: %v", ErrStorageUnavailable, existing.ID, err)
			}
			result.Updated++
		} else {
			if _, err := s.ledger.Insert(row); err != nil {
				return fmt.Errorf("%w: inserting trade: %v", ErrStorageUnavailable, err)
			}
			result.Inserted++
		}
		datesTouched[candidate.EntryTime.UTC().Format("2006-01-02")] = true
	}

	for date := range datesTouched {
		if err := s.metrics.RecomputeDay(userID, accountID, date); err != nil {
			return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}
		result.DatesTouched = append(result.DatesTouched, date)
	}
	sort.Strings(result.DatesTouched)

	if len(datesTouched) > 0 {
		s.InvalidateUserCache(userID)
	}
	return nil
}

// ImportCSV decodes a delimited upload and runs it through ImportBatch.
func (s *ImportService) ImportCSV(userID, accountID int64, file io.Reader, spec models.MappingSpec, source models.SourceTag) (*ImportResult, error) {
	_, records, err := parsers.ReadRecords(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}
	return s.ImportBatch(userID, accountID, records, spec, source)
}

// InvalidateUserCache clears cached summaries so the next read recomputes
// from the ledger.
func (s *ImportService) InvalidateUserCache(userID int64) {
	if s.reportCache == nil {
		return
	}
	s.reportCache.Delete(fmt.Sprintf(ckDailySummary, userID))
}

func candidateToTrade(c models.TradeCandidate, userID, accountID int64, fingerprint string, source models.SourceTag) *models.Trade {
	return &models.Trade{
		UserID:      userID,
		AccountID:   accountID,
		Symbol:      c.Symbol,
		Side:        c.Side,
		Quantity:    c.Quantity,
		EntryPrice:  c.EntryPrice,
		ExitPrice:   c.ExitPrice,
		EntryTime:   c.EntryTime.UTC(),
		ExitTime:    c.ExitTime,
		Fees:        c.Fees,
		PnL:         c.PnL,
		OrderID:     c.OrderID,
		Fingerprint: fingerprint,
		Source:      source,
		CreatedAt:   time.Now().UTC(),
	}
}
