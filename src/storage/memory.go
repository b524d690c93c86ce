package storage

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/username/tradevault/src/models"
)

// In-memory implementations of the store interfaces, used in tests and for
// ephemeral dev runs.

type MemoryLedgerStore struct {
	mu     sync.Mutex
	nextID int64
	trades map[int64]models.Trade
}

func NewMemoryLedgerStore() *MemoryLedgerStore {
	return &MemoryLedgerStore{nextID: 1, trades: make(map[int64]models.Trade)}
}

func (s *MemoryLedgerStore) FindByFingerprint(accountID int64, fingerprint string) (*models.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.trades {
		if t.AccountID == accountID && t.Fingerprint == fingerprint {
			found := t
			return &found, nil
		}
	}
	return nil, nil
}

func (s *MemoryLedgerStore) FindByOrderID(accountID int64, source models.SourceTag, orderID string) (*models.Trade, error) {
	if orderID == "" {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.trades {
		if t.AccountID == accountID && t.Source == source && t.OrderID == orderID {
			found := t
			return &found, nil
		}
	}
	return nil, nil
}

func (s *MemoryLedgerStore) Insert(t *models.Trade) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	stored := *t
	stored.ID = id
	s.trades[id] = stored
	return id, nil
}

func (s *MemoryLedgerStore) Update(id int64, t *models.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *t
	stored.ID = id
	s.trades[id] = stored
	return nil
}

func (s *MemoryLedgerStore) ListByAccount(userID, accountID int64) ([]models.Trade, error) {
	return s.list(func(t models.Trade) bool {
		return t.UserID == userID && t.AccountID == accountID
	})
}

func (s *MemoryLedgerStore) ListByAccountDate(userID, accountID int64, date string) ([]models.Trade, error) {
	return s.list(func(t models.Trade) bool {
		return t.UserID == userID && t.AccountID == accountID &&
			t.EntryTime.UTC().Format("2006-01-02") == date
	})
}

func (s *MemoryLedgerStore) list(keep func(models.Trade) bool) ([]models.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Trade
	for _, t := range s.trades {
		if keep(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EntryTime.Equal(out[j].EntryTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].EntryTime.Before(out[j].EntryTime)
	})
	return out, nil
}

type MemoryMetricsStore struct {
	mu      sync.Mutex
	metrics map[string]models.DailyMetric
}

func NewMemoryMetricsStore() *MemoryMetricsStore {
	return &MemoryMetricsStore{metrics: make(map[string]models.DailyMetric)}
}

func metricKey(userID, accountID int64, date string) string {
	return fmt.Sprintf("%d:%d:%s", userID, accountID, date)
}

func (s *MemoryMetricsStore) FindByDay(userID, accountID int64, date string) (*models.DailyMetric, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.metrics[metricKey(userID, accountID, date)]
	if !ok {
		return nil, nil
	}
	found := m
	return &found, nil
}

func (s *MemoryMetricsStore) Upsert(m *models.DailyMetric) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics[metricKey(m.UserID, m.AccountID, m.Date)] = *m
	return nil
}

type MemoryMappingStore struct {
	mu       sync.Mutex
	nextID   int64
	profiles []models.MappingProfile
}

func NewMemoryMappingStore() *MemoryMappingStore {
	return &MemoryMappingStore{nextID: 1}
}

func (s *MemoryMappingStore) Save(p *models.MappingProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.profiles {
		if existing.UserID == p.UserID && existing.Name == p.Name {
			p.ID = existing.ID
			s.profiles[i] = *p
			return nil
		}
	}
	p.ID = s.nextID
	s.nextID++
	s.profiles = append(s.profiles, *p)
	return nil
}

func (s *MemoryMappingStore) ListByUser(userID int64) ([]models.MappingProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.MappingProfile
	for _, p := range s.profiles {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryMappingStore) FindByName(userID int64, name string) (*models.MappingProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.profiles {
		if p.UserID == userID && p.Name == name {
			found := p
			return &found, nil
		}
	}
	return nil, nil
}

type MemoryTokenStore struct {
	mu     sync.Mutex
	tokens map[string]int64
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{tokens: make(map[string]int64)}
}

// Seed registers an active token for a user without rotating.
func (s *MemoryTokenStore) Seed(token string, userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = userID
}

func (s *MemoryTokenStore) ResolveUserByToken(token string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID, ok := s.tokens[token]
	if !ok {
		return 0, ErrNotFound
	}
	return userID, nil
}

func (s *MemoryTokenStore) Rotate(userID int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, owner := range s.tokens {
		if owner == userID {
			delete(s.tokens, token)
		}
	}
	token := uuid.NewString()
	s.tokens[token] = userID
	return token, nil
}

type MemoryAccountStore struct {
	mu       sync.Mutex
	nextID   int64
	accounts []models.Account
}

func NewMemoryAccountStore() *MemoryAccountStore {
	return &MemoryAccountStore{nextID: 1}
}

// Seed registers an account and returns it.
func (s *MemoryAccountStore) Seed(userID int64, tag string) models.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := models.Account{ID: s.nextID, UserID: userID, Tag: tag, Name: tag}
	s.nextID++
	s.accounts = append(s.accounts, a)
	return a
}

func (s *MemoryAccountStore) FindByTag(userID int64, tag string) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.UserID == userID && a.Tag == tag {
			found := a
			return &found, nil
		}
	}
	return nil, nil
}

func (s *MemoryAccountStore) EnsureDefault(userID int64) (*models.Account, error) {
	if a, err := s.FindByTag(userID, "default"); err != nil || a != nil {
		return a, err
	}
	a := s.Seed(userID, "default")
	return &a, nil
}

type MemoryJournalStore struct {
	mu      sync.Mutex
	entries []models.JournalEntry
}

func NewMemoryJournalStore() *MemoryJournalStore {
	return &MemoryJournalStore{}
}

func (s *MemoryJournalStore) Insert(e *models.JournalEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, *e)
	return nil
}

func (s *MemoryJournalStore) ListByUserDate(userID int64, date string) ([]models.JournalEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.JournalEntry
	for _, e := range s.entries {
		if e.UserID == userID && e.Date == date {
			out = append(out, e)
		}
	}
	return out, nil
}

// Entries returns a snapshot of everything recorded, for assertions.
func (s *MemoryJournalStore) Entries() []models.JournalEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.JournalEntry, len(s.entries))
	copy(out, s.entries)
	return out
}
