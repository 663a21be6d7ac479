package telegram

import (
	"context"

	"signal_trader/internal/models"
	brokersvc "signal_trader/internal/modules/broker/service"
	"signal_trader/internal/modules/config"
	"signal_trader/internal/modules/telegram_bot/service"
	"signal_trader/internal/runner"
	"signal_trader/pkg/logger"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("telegram",
		fx.Provide(
			newTelegram, // *service.Telegram, nil без токена
		),
		fx.Invoke(
			func(lc fx.Lifecycle, parent context.Context, t *service.Telegram, e *runner.Engine, sw *brokersvc.Switch) {
				if t == nil {
					logger.Warn("[TG] telegram.token is empty, bot disabled")
					return
				}
				e.SetNotifier(t)
				t.SetBrokerSwitch(sw)

				lc.Append(fx.Hook{
					OnStart: func(context.Context) error {
						// контекст OnStart живёт только на время старта
						t.Start(parent)
						return nil
					},
					OnStop: func(context.Context) error {
						t.Stop()
						return nil
					},
				})
			},
		),
	)
}

func newTelegram(cfg *config.Config, inbox chan<- models.InboundMessage, e *runner.Engine, w *config.Watcher) (*service.Telegram, error) {
	if cfg.Telegram.Token == "" {
		return nil, nil
	}
	return service.NewTelegram(cfg, inbox, e, w.Reload)
}
