package service

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"signal_trader/internal/models"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS trades (
	broker      TEXT    NOT NULL,
	trade_id    TEXT    NOT NULL,
	direction   TEXT    NOT NULL,
	asset       TEXT    NOT NULL,
	amount      TEXT    NOT NULL,
	duration_s  INTEGER NOT NULL,
	is_catchup  INTEGER NOT NULL DEFAULT 0,
	cycle       INTEGER NOT NULL,
	placed_at   TEXT    NOT NULL,
	result      TEXT    NOT NULL,
	profit      TEXT,
	settled_at  TEXT,
	PRIMARY KEY (broker, trade_id)
)`

const sqliteUpsert = `
INSERT INTO trades (broker, trade_id, direction, asset, amount, duration_s, is_catchup, cycle, placed_at, result, profit, settled_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (broker, trade_id) DO UPDATE SET
	result     = excluded.result,
	profit     = excluded.profit,
	settled_at = excluded.settled_at`

// фиксированная ширина: порядок строк совпадает с порядком времени
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLite: локальный журнал в файле.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// один писатель
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create trades table: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) RecordTrade(ctx context.Context, t models.Trade) error {
	r := toRow(t)
	var settled *string
	if r.settledAt != nil {
		v := r.settledAt.Format(tsLayout)
		settled = &v
	}
	_, err := s.db.ExecContext(ctx, sqliteUpsert,
		r.broker, r.tradeID, r.direction, r.asset, r.amount, r.duration, r.catchUp, r.cycle,
		r.placedAt.Format(tsLayout), r.result, r.profit, settled,
	)
	if err != nil {
		return fmt.Errorf("upsert trade %s/%s: %w", r.broker, r.tradeID, err)
	}
	return nil
}

// Trades отдаёт последние сделки брокера, новые первыми.
func (s *SQLite) Trades(ctx context.Context, broker string, limit int) ([]models.Trade, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT trade_id, direction, asset, amount, duration_s, is_catchup, cycle, placed_at, result, profit, settled_at
FROM trades WHERE broker = ? ORDER BY placed_at DESC LIMIT ?`, broker, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Trade
	for rows.Next() {
		var (
			t                  models.Trade
			dir, amount        string
			placed, result     string
			durS, cycle        int64
			profit, settledStr sql.NullString
		)
		if err := rows.Scan(&t.ID, &dir, &t.Asset, &amount, &durS, &t.IsCatchUp, &cycle, &placed, &result, &profit, &settledStr); err != nil {
			return nil, err
		}
		t.Broker = broker
		t.Direction = models.Direction(dir)
		t.Duration = time.Duration(durS) * time.Second
		t.Cycle = uint64(cycle)
		if t.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, err
		}
		if t.PlacedAt, err = time.Parse(tsLayout, placed); err != nil {
			return nil, err
		}
		if t.Result, err = models.ParseResult(result); err != nil {
			return nil, err
		}
		if profit.Valid {
			d, err := decimal.NewFromString(profit.String)
			if err != nil {
				return nil, err
			}
			t.Profit.Decimal, t.Profit.Valid = d, true
		}
		if settledStr.Valid {
			if t.SettledAt, err = time.Parse(tsLayout, settledStr.String); err != nil {
				return nil, err
			}
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
