package runner

import (
	"context"

	"signal_trader/internal/models"
	"signal_trader/internal/modules/config"
	"signal_trader/internal/parser"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("runner",
		fx.Provide(
			newInbox,        // chan models.InboundMessage
			asSendOnlyInbox, // chan<- models.InboundMessage
			NewRegistry,     // *Registry
			newEngine,       // *Engine
		),
		fx.Invoke(runLoop),
	)
}

func newInbox(cfg *config.Config) chan models.InboundMessage {
	size := cfg.Engine.InboxSize
	if size <= 0 {
		size = 1024
	}
	return make(chan models.InboundMessage, size)
}

func asSendOnlyInbox(ch chan models.InboundMessage) chan<- models.InboundMessage {
	return ch
}

type engineParams struct {
	fx.In

	Cfg      *config.Config
	Registry *Registry
	Ranker   Ranker  `optional:"true"`
	Warmer   Warmer  `optional:"true"`
	Journal  Journal `optional:"true"`
}

func newEngine(p engineParams) *Engine {
	var opts []Option
	if p.Ranker != nil {
		opts = append(opts, WithRanker(p.Ranker))
	}
	if p.Warmer != nil {
		opts = append(opts, WithWarmer(p.Warmer))
	}
	if p.Journal != nil {
		opts = append(opts, WithJournal(p.Journal))
	}
	return NewEngine(NewConfig(p.Cfg), parser.NewAssets(p.Cfg.Assets), p.Registry, opts...)
}

// runLoop: сообщения обрабатываются строго по одному.
func runLoop(lc fx.Lifecycle, parent context.Context, e *Engine, inbox chan models.InboundMessage) {
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go func() {
				defer close(done)
				for {
					select {
					case <-ctx.Done():
						return
					case msg := <-inbox:
						e.HandleMessage(ctx, msg)
					}
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
			}
			return e.Close(stopCtx)
		},
	})
}
