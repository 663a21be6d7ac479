package health

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	brokersvc "signal_trader/internal/modules/broker/service"
	"signal_trader/internal/modules/config"
	"signal_trader/internal/modules/health/service"
	"signal_trader/internal/runner"
	"signal_trader/pkg/logger"

	"go.uber.org/fx"
)

type Config struct {
	Addr string // например ":8080"
}

func NewConfig(cfg *config.Config) Config {
	return Config{Addr: fmt.Sprintf("%s:%d", cfg.Service.Host, cfg.Service.PublicPort)}
}

func newMux(parent context.Context, state *service.State, e *runner.Engine, sw *brokersvc.Switch) *http.ServeMux {
	mux := service.NewMux(parent, state, e)
	service.HandleBrokerSwitch(mux, sw)
	return mux
}

func RunHTTP(lc fx.Lifecycle, cfg Config, mux *http.ServeMux, state *service.State) {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", cfg.Addr)
			if err != nil {
				return err
			}
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("[HTTP] serve: %v", err)
				}
			}()
			state.SetReady(true)
			logger.Info("[HTTP] listening on %s", cfg.Addr)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			state.SetReady(false)
			return srv.Shutdown(ctx)
		},
	})
}

func Module() fx.Option {
	return fx.Module("health",
		fx.Provide(
			service.NewState,
			NewConfig,
			newMux,
		),
		fx.Invoke(RunHTTP),
	)
}
