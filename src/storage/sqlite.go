package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/username/tradevault/src/models"
)

const sqliteTimeLayout = time.RFC3339

// --- Ledger ---

type SQLiteLedgerStore struct {
	db *sql.DB
}

func NewSQLiteLedgerStore(db *sql.DB) *SQLiteLedgerStore {
	return &SQLiteLedgerStore{db: db}
}

const tradeColumns = `id, user_id, account_id, symbol, side, quantity, entry_price, exit_price,
	entry_time, exit_time, fees, pnl, order_id, fingerprint, source, created_at`

func scanTrade(row interface{ Scan(...any) error }) (*models.Trade, error) {
	var t models.Trade
	var quantity, entryPrice, fees, entryTime, createdAt string
	var exitPrice, pnl, exitTime, orderID sql.NullString

	err := row.Scan(&t.ID, &t.UserID, &t.AccountID, &t.Symbol, &t.Side,
		&quantity, &entryPrice, &exitPrice, &entryTime, &exitTime,
		&fees, &pnl, &orderID, &t.Fingerprint, &t.Source, &createdAt)
	if err != nil {
		return nil, err
	}

	if t.Quantity, err = decimal.NewFromString(quantity); err != nil {
		return nil, fmt.Errorf("bad quantity in trade %d: %w", t.ID, err)
	}
	if t.EntryPrice, err = decimal.NewFromString(entryPrice); err != nil {
		return nil, fmt.Errorf("bad entry price in trade %d: %w", t.ID, err)
	}
	if t.Fees, err = decimal.NewFromString(fees); err != nil {
		return nil, fmt.Errorf("bad fees in trade %d: %w", t.ID, err)
	}
	if exitPrice.Valid {
		px, err := decimal.NewFromString(exitPrice.String)
		if err != nil {
			return nil, fmt.Errorf("bad exit price in trade %d: %w", t.ID, err)
		}
		t.ExitPrice = &px
	}
	if pnl.Valid {
		p, err := decimal.NewFromString(pnl.String)
		if err != nil {
			return nil, fmt.Errorf("bad pnl in trade %d: %w", t.ID, err)
		}
		t.PnL = &p
	}
	if t.EntryTime, err = time.Parse(sqliteTimeLayout, entryTime); err != nil {
		return nil, fmt.Errorf("bad entry time in trade %d: %w", t.ID, err)
	}
	if exitTime.Valid {
		et, err := time.Parse(sqliteTimeLayout, exitTime.String)
		if err != nil {
			return nil, fmt.Errorf("bad exit time in trade %d: %w", t.ID, err)
		}
		t.ExitTime = &et
	}
	t.OrderID = orderID.String
	if ct, err := time.Parse(sqliteTimeLayout, createdAt); err == nil {
		t.CreatedAt = ct
	}
	return &t, nil
}

func tradeArgs(t *models.Trade) []any {
	var exitPrice, pnl, exitTime any
	if t.ExitPrice != nil {
		exitPrice = t.ExitPrice.String()
	}
	if t.PnL != nil {
		pnl = t.PnL.String()
	}
	if t.ExitTime != nil {
		exitTime = t.ExitTime.UTC().Format(sqliteTimeLayout)
	}
	return []any{
		t.UserID, t.AccountID, t.Symbol, string(t.Side),
		t.Quantity.String(), t.EntryPrice.String(), exitPrice,
		t.EntryTime.UTC().Format(sqliteTimeLayout), exitTime,
		t.Fees.String(), pnl, t.OrderID, t.Fingerprint, string(t.Source),
	}
}

func (s *SQLiteLedgerStore) FindByFingerprint(accountID int64, fingerprint string) (*models.Trade, error) {
	row := s.db.QueryRow(`SELECT `+tradeColumns+` FROM trades WHERE account_id = ? AND fingerprint = ?`,
		accountID, fingerprint)
	t, err := scanTrade(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return t, err
}

func (s *SQLiteLedgerStore) FindByOrderID(accountID int64, source models.SourceTag, orderID string) (*models.Trade, error) {
	if orderID == "" {
		return nil, nil
	}
	row := s.db.QueryRow(`SELECT `+tradeColumns+` FROM trades WHERE account_id = ? AND source = ? AND order_id = ?`,
		accountID, string(source), orderID)
	t, err := scanTrade(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return t, err
}

func (s *SQLiteLedgerStore) Insert(t *models.Trade) (int64, error) {
	args := append(tradeArgs(t), time.Now().UTC().Format(sqliteTimeLayout))
	res, err := s.db.Exec(`INSERT INTO trades
		(user_id, account_id, symbol, side, quantity, entry_price, exit_price,
		 entry_time, exit_time, fees, pnl, order_id, fingerprint, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *SQLiteLedgerStore) Update(id int64, t *models.Trade) error {
	args := append(tradeArgs(t), id)
	_, err := s.db.Exec(`UPDATE trades SET
		user_id = ?, account_id = ?, symbol = ?, side = ?, quantity = ?,
		entry_price = ?, exit_price = ?, entry_time = ?, exit_time = ?,
		fees = ?, pnl = ?, order_id = ?, fingerprint = ?, source = ?
		WHERE id = ?`, args...)
	return err
}

func (s *SQLiteLedgerStore) ListByAccount(userID, accountID int64) ([]models.Trade, error) {
	rows, err := s.db.Query(`SELECT `+tradeColumns+` FROM trades
		WHERE user_id = ? AND account_id = ? ORDER BY entry_time ASC, id ASC`,
		userID, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTrades(rows)
}

func (s *SQLiteLedgerStore) ListByAccountDate(userID, accountID int64, date string) ([]models.Trade, error) {
	rows, err := s.db.Query(`SELECT `+tradeColumns+` FROM trades
		WHERE user_id = ? AND account_id = ? AND date(entry_time) = ?
		ORDER BY entry_time ASC, id ASC`,
		userID, accountID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTrades(rows)
}

func collectTrades(rows *sql.Rows) ([]models.Trade, error) {
	var trades []models.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		trades = append(trades, *t)
	}
	return trades, rows.Err()
}

// --- Metrics ---

type SQLiteMetricsStore struct {
	db *sql.DB
}

func NewSQLiteMetricsStore(db *sql.DB) *SQLiteMetricsStore {
	return &SQLiteMetricsStore{db: db}
}

func (s *SQLiteMetricsStore) FindByDay(userID, accountID int64, date string) (*models.DailyMetric, error) {
	var m models.DailyMetric
	var gross, net, updatedAt string
	err := s.db.QueryRow(`SELECT id, user_id, account_id, date, gross_pnl, net_pnl,
		win_count, loss_count, trade_count, updated_at
		FROM daily_metrics WHERE user_id = ? AND account_id = ? AND date = ?`,
		userID, accountID, date).
		Scan(&m.ID, &m.UserID, &m.AccountID, &m.Date, &gross, &net,
			&m.WinCount, &m.LossCount, &m.TradeCount, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if m.GrossPnL, err = decimal.NewFromString(gross); err != nil {
		return nil, fmt.Errorf("bad gross pnl in metric %d: %w", m.ID, err)
	}
	if m.NetPnL, err = decimal.NewFromString(net); err != nil {
		return nil, fmt.Errorf("bad net pnl in metric %d: %w", m.ID, err)
	}
	if ut, err := time.Parse(sqliteTimeLayout, updatedAt); err == nil {
		m.UpdatedAt = ut
	}
	return &m, nil
}

func (s *SQLiteMetricsStore) Upsert(m *models.DailyMetric) error {
	_, err := s.db.Exec(`INSERT INTO daily_metrics
		(user_id, account_id, date, gross_pnl, net_pnl, win_count, loss_count, trade_count, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, account_id, date) DO UPDATE SET
			gross_pnl = excluded.gross_pnl,
			net_pnl = excluded.net_pnl,
			win_count = excluded.win_count,
			loss_count = excluded.loss_count,
			trade_count = excluded.trade_count,
			updated_at = excluded.updated_at`,
		m.UserID, m.AccountID, m.Date, m.GrossPnL.String(), m.NetPnL.String(),
		m.WinCount, m.LossCount, m.TradeCount, m.UpdatedAt.UTC().Format(sqliteTimeLayout))
	return err
}

// --- Mapping profiles ---

type SQLiteMappingStore struct {
	db *sql.DB
}

func NewSQLiteMappingStore(db *sql.DB) *SQLiteMappingStore {
	return &SQLiteMappingStore{db: db}
}

func (s *SQLiteMappingStore) Save(p *models.MappingProfile) error {
	mapping, err := json.Marshal(p.Mapping)
	if err != nil {
		return err
	}
	res, err := s.db.Exec(`INSERT INTO mapping_profiles (user_id, name, source, mapping)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, name) DO UPDATE SET source = excluded.source, mapping = excluded.mapping`,
		p.UserID, p.Name, p.Source, string(mapping))
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil {
		p.ID = id
	}
	return nil
}

func (s *SQLiteMappingStore) ListByUser(userID int64) ([]models.MappingProfile, error) {
	rows, err := s.db.Query(`SELECT id, user_id, name, source, mapping
		FROM mapping_profiles WHERE user_id = ? ORDER BY name ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []models.MappingProfile
	for rows.Next() {
		var p models.MappingProfile
		var mapping string
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.Source, &mapping); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(mapping), &p.Mapping); err != nil {
			return nil, fmt.Errorf("bad mapping json in profile %d: %w", p.ID, err)
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

func (s *SQLiteMappingStore) FindByName(userID int64, name string) (*models.MappingProfile, error) {
	var p models.MappingProfile
	var mapping string
	err := s.db.QueryRow(`SELECT id, user_id, name, source, mapping
		FROM mapping_profiles WHERE user_id = ? AND name = ?`, userID, name).
		Scan(&p.ID, &p.UserID, &p.Name, &p.Source, &mapping)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(mapping), &p.Mapping); err != nil {
		return nil, fmt.Errorf("bad mapping json in profile %d: %w", p.ID, err)
	}
	return &p, nil
}

// --- Ingestion tokens ---

type SQLiteTokenStore struct {
	db *sql.DB
}

func NewSQLiteTokenStore(db *sql.DB) *SQLiteTokenStore {
	return &SQLiteTokenStore{db: db}
}

func (s *SQLiteTokenStore) ResolveUserByToken(token string) (int64, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, ErrNotFound
	}
	var userID int64
	err := s.db.QueryRow(`SELECT user_id FROM ingestion_tokens WHERE token = ? AND active`, token).
		Scan(&userID)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return userID, nil
}

// Rotate deactivates the user's prior token and issues a fresh one. One
// active token per user.
func (s *SQLiteTokenStore) Rotate(userID int64) (string, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE ingestion_tokens SET active = FALSE WHERE user_id = ?`, userID); err != nil {
		return "", err
	}
	token := uuid.NewString()
	if _, err := tx.Exec(`INSERT INTO ingestion_tokens (user_id, token, active) VALUES (?, ?, TRUE)`,
		userID, token); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return token, nil
}

// --- Accounts ---

type SQLiteAccountStore struct {
	db *sql.DB
}

func NewSQLiteAccountStore(db *sql.DB) *SQLiteAccountStore {
	return &SQLiteAccountStore{db: db}
}

func (s *SQLiteAccountStore) FindByTag(userID int64, tag string) (*models.Account, error) {
	var a models.Account
	err := s.db.QueryRow(`SELECT id, user_id, tag, name FROM accounts WHERE user_id = ? AND tag = ?`,
		userID, strings.ToLower(strings.TrimSpace(tag))).
		Scan(&a.ID, &a.UserID, &a.Tag, &a.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// EnsureDefault returns the user's fallback account, creating it on first use.
func (s *SQLiteAccountStore) EnsureDefault(userID int64) (*models.Account, error) {
	if a, err := s.FindByTag(userID, "default"); err != nil || a != nil {
		return a, err
	}
	res, err := s.db.Exec(`INSERT INTO accounts (user_id, tag, name) VALUES (?, 'default', 'Default Account')`,
		userID)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &models.Account{ID: id, UserID: userID, Tag: "default", Name: "Default Account"}, nil
}

// --- Journal entries ---

type SQLiteJournalStore struct {
	db *sql.DB
}

func NewSQLiteJournalStore(db *sql.DB) *SQLiteJournalStore {
	return &SQLiteJournalStore{db: db}
}

func (s *SQLiteJournalStore) Insert(e *models.JournalEntry) error {
	_, err := s.db.Exec(`INSERT INTO journal_entries
		(id, user_id, account_id, date, text, attachment_path, trade_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.AccountID, e.Date, e.Text, e.AttachmentPath, e.TradeID,
		time.Now().UTC().Format(sqliteTimeLayout))
	return err
}

func (s *SQLiteJournalStore) ListByUserDate(userID int64, date string) ([]models.JournalEntry, error) {
	rows, err := s.db.Query(`SELECT id, user_id, account_id, date, text, attachment_path, trade_id
		FROM journal_entries WHERE user_id = ? AND date = ? ORDER BY created_at ASC`,
		userID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.JournalEntry
	for rows.Next() {
		var e models.JournalEntry
		var attachment, text sql.NullString
		var tradeID sql.NullInt64
		if err := rows.Scan(&e.ID, &e.UserID, &e.AccountID, &e.Date, &text, &attachment, &tradeID); err != nil {
			return nil, err
		}
		e.Text = text.String
		e.AttachmentPath = attachment.String
		e.TradeID = tradeID.Int64
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
