package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// PostgresService expects the schema from apps/bot/migrations to be applied.
type PostgresService struct {
	sqlStore
}

func NewPostgresService(dsn string, log *zap.Logger) (*PostgresService, error) {
	if log == nil {
		log = zap.NewNop()
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	for _, table := range []string{"bot_sessions", "bot_ticks", "bot_decisions"} {
		var ready bool
		if err := db.QueryRowContext(ctx, `
SELECT EXISTS (
    SELECT 1
    FROM information_schema.tables
    WHERE table_schema = 'public'
      AND table_name = $1
)`, table).Scan(&ready); err != nil {
			_ = db.Close()
			return nil, err
		}
		if !ready {
			_ = db.Close()
			return nil, fmt.Errorf("ledger schema not initialized: missing table %s", table)
		}
	}

	return &PostgresService{sqlStore: sqlStore{db: db, log: log, numbered: true}}, nil
}
