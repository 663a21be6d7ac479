package service

import (
	"context"
	"fmt"

	"signal_trader/internal/models"
	"signal_trader/pkg/db"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS trades (
	broker      TEXT        NOT NULL,
	trade_id    TEXT        NOT NULL,
	direction   TEXT        NOT NULL,
	asset       TEXT        NOT NULL,
	amount      NUMERIC     NOT NULL,
	duration_s  BIGINT      NOT NULL,
	is_catchup  BOOLEAN     NOT NULL DEFAULT FALSE,
	cycle       BIGINT      NOT NULL,
	placed_at   TIMESTAMPTZ NOT NULL,
	result      TEXT        NOT NULL,
	profit      NUMERIC,
	settled_at  TIMESTAMPTZ,
	PRIMARY KEY (broker, trade_id)
)`

const pgUpsert = `
INSERT INTO trades (broker, trade_id, direction, asset, amount, duration_s, is_catchup, cycle, placed_at, result, profit, settled_at)
VALUES ($1, $2, $3, $4, $5::text::numeric, $6, $7, $8, $9, $10, $11::text::numeric, $12)
ON CONFLICT (broker, trade_id) DO UPDATE SET
	result     = EXCLUDED.result,
	profit     = EXCLUDED.profit,
	settled_at = EXCLUDED.settled_at`

// Postgres пишет сделки через пул pgx.
type Postgres struct {
	tx db.TxManager
}

func NewPostgres(ctx context.Context, tx db.TxManager) (*Postgres, error) {
	if _, err := tx.Conn().Exec(ctx, pgSchema); err != nil {
		return nil, fmt.Errorf("create trades table: %w", err)
	}
	return &Postgres{tx: tx}, nil
}

func (p *Postgres) RecordTrade(ctx context.Context, t models.Trade) error {
	r := toRow(t)
	return p.tx.RunMaster(ctx, func(ctxTx context.Context, tx db.Transaction) error {
		_, err := tx.Exec(ctxTx, pgUpsert,
			r.broker, r.tradeID, r.direction, r.asset, r.amount, r.duration, r.catchUp, r.cycle,
			r.placedAt, r.result, r.profit, r.settledAt,
		)
		return err
	})
}

func (p *Postgres) Close() error {
	p.tx.Close()
	return nil
}
