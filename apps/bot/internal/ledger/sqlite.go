package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const defaultLocalDBName = "nerts_local.db"

type SQLiteService struct {
	sqlStore
}

// NewSQLiteService opens (creating if needed) a local ledger database. An
// empty path falls back to data/nerts_local.db under the working directory.
func NewSQLiteService(dbPath string, log *zap.Logger) (*SQLiteService, error) {
	if log == nil {
		log = zap.NewNop()
	}
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		dbPath = filepath.Join("data", defaultLocalDBName)
	}
	if dbPath != ":memory:" {
		parent := filepath.Dir(dbPath)
		if parent != "" && parent != "." {
			if err := os.MkdirAll(parent, 0o755); err != nil {
				return nil, err
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, pragma := range []string{
		`PRAGMA busy_timeout = 5000;`,
		`PRAGMA journal_mode = WAL;`,
		`PRAGMA foreign_keys = ON;`,
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite %s: %w", strings.TrimSuffix(pragma, ";"), err)
		}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ensureSQLiteLedgerSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	log.Info("sqlite ledger ready", zap.String("path", dbPath))
	return &SQLiteService{sqlStore: sqlStore{db: db, log: log}}, nil
}

func ensureSQLiteLedgerSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`
CREATE TABLE IF NOT EXISTS bot_sessions (
    session_id TEXT PRIMARY KEY,
    self_id INTEGER NOT NULL,
    server_id INTEGER NOT NULL,
    seed INTEGER NOT NULL,
    brain TEXT NOT NULL DEFAULT '',
    started_at_ms INTEGER NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_bot_sessions_started ON bot_sessions(started_at_ms DESC)`,
		`
CREATE TABLE IF NOT EXISTS bot_ticks (
    session_id TEXT NOT NULL REFERENCES bot_sessions(session_id) ON DELETE CASCADE,
    seq INTEGER NOT NULL,
    peer INTEGER NOT NULL,
    phase TEXT NOT NULL DEFAULT '',
    payload_b64 TEXT NOT NULL,
    created_at_ms INTEGER NOT NULL,
    PRIMARY KEY (session_id, seq)
)`,
		`
CREATE TABLE IF NOT EXISTS bot_decisions (
    session_id TEXT NOT NULL REFERENCES bot_sessions(session_id) ON DELETE CASCADE,
    seq INTEGER NOT NULL,
    kind TEXT NOT NULL,
    reason TEXT NOT NULL DEFAULT '',
    created_at_ms INTEGER NOT NULL,
    PRIMARY KEY (session_id, seq)
)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
