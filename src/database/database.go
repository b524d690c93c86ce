package database

import (
	"database/sql"
	stdlog "log"

	"github.com/username/tradevault/src/logger"
	_ "modernc.org/sqlite"
)

var DB *sql.DB

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	tag TEXT NOT NULL,
	name TEXT NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(user_id, tag)
);

CREATE TABLE IF NOT EXISTS trades (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	account_id INTEGER NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	quantity TEXT NOT NULL,
	entry_price TEXT NOT NULL,
	exit_price TEXT,
	entry_time TIMESTAMP NOT NULL,
	exit_time TIMESTAMP,
	fees TEXT NOT NULL DEFAULT '0',
	pnl TEXT,
	order_id TEXT,
	fingerprint TEXT NOT NULL,
	source TEXT NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(user_id, account_id, fingerprint)
);
CREATE INDEX IF NOT EXISTS idx_trades_account_entry ON trades(account_id, entry_time);

CREATE TABLE IF NOT EXISTS daily_metrics (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	account_id INTEGER NOT NULL,
	date TEXT NOT NULL,
	gross_pnl TEXT NOT NULL,
	net_pnl TEXT NOT NULL,
	win_count INTEGER NOT NULL,
	loss_count INTEGER NOT NULL,
	trade_count INTEGER NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	UNIQUE(user_id, account_id, date)
);

CREATE TABLE IF NOT EXISTS mapping_profiles (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	name TEXT NOT NULL,
	source TEXT NOT NULL,
	mapping TEXT NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(user_id, name)
);

CREATE TABLE IF NOT EXISTS ingestion_tokens (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	token TEXT NOT NULL UNIQUE,
	active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS journal_entries (
	id TEXT PRIMARY KEY,
	user_id INTEGER NOT NULL,
	account_id INTEGER NOT NULL,
	date TEXT NOT NULL,
	text TEXT,
	attachment_path TEXT,
	trade_id INTEGER,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

// InitDB opens the sqlite database and ensures the schema exists.
func InitDB(databasePath string) {
	db, err := sql.Open("sqlite", databasePath)
	if err != nil {
		stdlog.Fatalf("failed to open database at %s: %v", databasePath, err)
	}
	DB = db

	if _, err := DB.Exec(schema); err != nil {
		logger.L.Error("failed to create tables", "error", err)
		stdlog.Fatalf("failed to create tables: %v", err)
	}
	logger.L.Info("Database tables ensured/created.", "path", databasePath)
}
