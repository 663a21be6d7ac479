package ranking

import (
	"signal_trader/internal/modules/ranking/service"
	"signal_trader/internal/runner"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("ranking",
		fx.Provide(
			fx.Annotate(service.NewYahoo, fx.As(new(runner.Ranker))),
		),
	)
}
