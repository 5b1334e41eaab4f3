package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// Store 把交易记录和每日指标写入 Postgres，供看板查询。
// DSN 为空时不启用，CSV 日志仍然独立工作。
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS trades (
	id         BIGSERIAL PRIMARY KEY,
	ts         TIMESTAMPTZ NOT NULL,
	symbol     TEXT NOT NULL,
	action     TEXT NOT NULL,
	entry      DOUBLE PRECISION NOT NULL,
	stop_loss  DOUBLE PRECISION NOT NULL,
	take_profit DOUBLE PRECISION NOT NULL,
	size       DOUBLE PRECISION NOT NULL,
	reason     TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS daily_metrics (
	day            DATE PRIMARY KEY,
	start_balance  DOUBLE PRECISION NOT NULL,
	last_balance   DOUBLE PRECISION NOT NULL,
	pnl_ratio      DOUBLE PRECISION NOT NULL,
	signals        INTEGER NOT NULL DEFAULT 0,
	orders         INTEGER NOT NULL DEFAULT 0,
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);`

func NewStore(dsn string, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres schema: %w", err)
	}

	return &Store{
		db:     db,
		logger: logger.With(zap.String("component", "journal_store")),
	}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// RecordTrade 插入一笔下单记录。
func (s *Store) RecordTrade(ctx context.Context, entry Entry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO trades (ts, symbol, action, entry, stop_loss, take_profit, size, reason)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.Timestamp.UTC(), entry.Symbol, entry.Action.String(),
		entry.Entry, entry.StopLoss, entry.TakeProf, entry.Size, entry.Reason)
	if err != nil {
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

// DailyMetrics 是单个 UTC 交易日的汇总。
type DailyMetrics struct {
	Day          time.Time
	StartBalance float64
	LastBalance  float64
	PnLRatio     float64
	Signals      int
	Orders       int
}

// UpsertDailyMetrics 每个交易日一行，重复写入时覆盖。
func (s *Store) UpsertDailyMetrics(ctx context.Context, m DailyMetrics) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO daily_metrics (day, start_balance, last_balance, pnl_ratio, signals, orders, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, now())
		 ON CONFLICT (day) DO UPDATE SET
			start_balance = EXCLUDED.start_balance,
			last_balance  = EXCLUDED.last_balance,
			pnl_ratio     = EXCLUDED.pnl_ratio,
			signals       = EXCLUDED.signals,
			orders        = EXCLUDED.orders,
			updated_at    = now()`,
		m.Day.UTC().Truncate(24*time.Hour), m.StartBalance, m.LastBalance,
		m.PnLRatio, m.Signals, m.Orders)
	if err != nil {
		return fmt.Errorf("upsert daily metrics: %w", err)
	}
	return nil
}
