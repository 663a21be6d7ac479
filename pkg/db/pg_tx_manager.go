package db

import (
	"context"
	"fmt"
	"time"

	"signal_trader/pkg/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PoolConfig struct {
	DSN      string
	MaxConns int32
}

type PgTxManager struct {
	pool *pgxpool.Pool
}

var _ TxManager = (*PgTxManager)(nil)

func NewPgTxManager(pool *pgxpool.Pool) *PgTxManager {
	return &PgTxManager{pool: pool}
}

// NewPool поднимает пул и сразу пингует базу.
func NewPool(ctx context.Context, conf PoolConfig) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(conf.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if conf.MaxConns > 0 {
		pcfg.MaxConns = conf.MaxConns
	}
	pcfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}

func (m *PgTxManager) Close() {
	m.pool.Close()
}

func (m *PgTxManager) Conn() Transaction {
	return m.pool
}

func (m *PgTxManager) RunMaster(ctx context.Context, fn func(ctxTx context.Context, tx Transaction) error) error {
	return m.inTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, fn)
}

func (m *PgTxManager) inTx(
	ctx context.Context,
	options pgx.TxOptions,
	fn func(ctxTx context.Context, tx Transaction) error,
) (err error) {
	tx, err := m.pool.BeginTx(ctx, options)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			logger.Error("[DB] panic in tx: %v", p)
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if cErr := tx.Commit(ctx); cErr != nil {
			err = fmt.Errorf("commit: %w", cErr)
		}
	}()

	if err = fn(ctx, tx); err != nil {
		return fmt.Errorf("failed to run fn: %w", err)
	}
	return nil
}
