package broker

import (
	"context"
	"time"

	"signal_trader/internal/modules/broker/service"
	"signal_trader/internal/modules/config"
	"signal_trader/internal/runner"
	"signal_trader/pkg/logger"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("broker",
		fx.Provide(
			service.NewFactory, // -> runner.BrokerFactory
			newSwitch,          // *service.Switch
		),
		fx.Invoke(func(
			lc fx.Lifecycle,
			cfg *config.Config,
			reg *runner.Registry,
			e *runner.Engine,
			factory runner.BrokerFactory,
			sw *service.Switch,
			w *config.Watcher,
		) {
			timeout := cfg.Engine.BrokerTimeout
			if timeout <= 0 {
				timeout = 10 * time.Second
			}

			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					// брокер, который не поднялся, не мешает остальным
					if err := reg.Sync(ctx, sw.SetAccounts(cfg.Brokers), factory, timeout); err != nil {
						logger.Error("[BROKER] initial sync: %v", err)
					}
					logger.Info("[BROKER] %d broker(s) registered", reg.Len())

					w.OnBrokersChange(func(accounts []config.BrokerAccount) {
						syncCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
						defer cancel()
						if err := reg.Sync(syncCtx, sw.SetAccounts(accounts), factory, timeout); err != nil {
							logger.Error("[BROKER] resync: %v", err)
						}
						logger.Info("[BROKER] resynced, %d broker(s) registered", reg.Len())
					})
					w.Start()
					return nil
				},
				OnStop: func(ctx context.Context) error {
					return stopBrokers(ctx, e, reg)
				},
			})
		}),
	)
}

func newSwitch(cfg *config.Config, factory runner.BrokerFactory, e *runner.Engine) *service.Switch {
	return service.NewSwitch(cfg, factory, e)
}

const disconnectGrace = 5 * time.Second

type drainer interface {
	Close(ctx context.Context) error
}

// stopBrokers: мониторы опрашивают брокеров, поэтому сначала дренаж, потом отключение.
// Если дренаж съел дедлайн, на отключение даётся отдельное время.
func stopBrokers(ctx context.Context, e drainer, reg *runner.Registry) error {
	err := e.Close(ctx)
	if err != nil {
		logger.Warn("[BROKER] drain before disconnect: %v", err)
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.WithoutCancel(ctx), disconnectGrace)
		defer cancel()
	}
	reg.Close(ctx)
	return err
}
