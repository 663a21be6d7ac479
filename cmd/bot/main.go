package main

import (
	"context"
	"log"

	"signal_trader/internal/modules/bootstrap"
	"signal_trader/internal/modules/broker"
	"signal_trader/internal/modules/config"
	"signal_trader/internal/modules/health"
	"signal_trader/internal/modules/journal"
	"signal_trader/internal/modules/ranking"
	telegram "signal_trader/internal/modules/telegram_bot"
	"signal_trader/internal/runner"
	"signal_trader/pkg/logger"
	"signal_trader/pkg/tracing"

	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
		),
		config.Module(),
		observability(),
		journal.Module(),
		ranking.Module(),
		// хуки останавливаются в обратном порядке: цикл сообщений раньше брокеров
		broker.Module(),
		runner.Module(),
		bootstrap.Module(),
		telegram.Module(),
		health.Module(),
	)
	if err := app.Err(); err != nil {
		log.Fatal(err)
	}
	app.Run()
}

// observability поднимает логгер и трейсер до остальных модулей.
func observability() fx.Option {
	return fx.Module("observability",
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config) error {
			if err := logger.Init(cfg.Log.Level); err != nil {
				return err
			}
			_, closeTracer, err := tracing.InitTracer(tracing.Config{
				Enabled: cfg.Tracing.Enabled,
				Host:    cfg.Tracing.Host,
				Port:    cfg.Tracing.Port,
			})
			if err != nil {
				return err
			}
			logger.Info("[BOOT] starting: brokers=%d assets=%d", len(cfg.Brokers), len(cfg.Assets))

			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					closeTracer()
					logger.Sync()
					return nil
				},
			})
			return nil
		}),
	)
}
