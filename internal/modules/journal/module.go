package journal

import (
	"context"
	"fmt"

	"signal_trader/internal/modules/config"
	"signal_trader/internal/modules/journal/service"
	"signal_trader/internal/runner"
	"signal_trader/pkg/db"
	"signal_trader/pkg/logger"

	"go.uber.org/fx"
)

type closer interface {
	runner.Journal
	Close() error
}

func Module() fx.Option {
	return fx.Module("journal",
		fx.Provide(
			newJournal,
			func(j closer) runner.Journal { return j },
		),
		fx.Invoke(func(lc fx.Lifecycle, j closer) {
			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					return j.Close()
				},
			})
		}),
	)
}

// newJournal выбирает хранилище по db.driver.
func newJournal(ctx context.Context, cfg *config.Config) (closer, error) {
	switch cfg.DB.Driver {
	case "", config.DBDriverNone:
		logger.Info("[JOURNAL] disabled")
		return service.Noop{}, nil

	case config.DBDriverPostgres:
		pool, err := db.NewPool(ctx, db.PoolConfig{DSN: cfg.DB.DSN, MaxConns: cfg.DB.MaxConns})
		if err != nil {
			return nil, fmt.Errorf("failed to create pool: %w", err)
		}
		j, err := service.NewPostgres(ctx, db.NewPgTxManager(pool))
		if err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("[JOURNAL] postgres")
		return j, nil

	case config.DBDriverSQLite:
		j, err := service.NewSQLite(ctx, cfg.DB.DSN)
		if err != nil {
			return nil, err
		}
		logger.Info("[JOURNAL] sqlite %s", cfg.DB.DSN)
		return j, nil
	}
	return nil, fmt.Errorf("unknown db driver %q", cfg.DB.Driver)
}
