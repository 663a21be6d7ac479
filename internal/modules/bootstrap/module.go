package bootstrap

import (
	"context"

	bootstrap "signal_trader/internal/modules/bootstrap/service"
	"signal_trader/internal/modules/config"
	"signal_trader/internal/runner"
	"signal_trader/pkg/logger"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("bootstrap",
		fx.Provide(
			fx.Annotate(bootstrap.NewWarmuper, fx.As(new(runner.Warmer))),
		),
		fx.Invoke(func(lc fx.Lifecycle, parent context.Context, cfg *config.Config, e *runner.Engine) {
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					if !cfg.Engine.AutoSelect {
						return nil
					}
					// рейтинг считается долго, старт не держим
					go func() {
						if err := e.ToggleAutoSelect(parent, true); err != nil {
							logger.Warn("[BOOT] auto-select on start: %v", err)
							return
						}
						logger.Info("[BOOT] auto-select enabled: %s", e.Status().CurrentAsset)
					}()
					return nil
				},
			})
		}),
	)
}
