package service

import (
	"context"

	"signal_trader/internal/modules/config"
	"signal_trader/internal/runner"

	"github.com/pkg/errors"
)

// NewFactory собирает адаптер по kind аккаунта.
func NewFactory() runner.BrokerFactory {
	return func(_ context.Context, acc config.BrokerAccount) (runner.Broker, error) {
		switch acc.Kind {
		case config.BrokerKindGateway, "":
			if acc.URL == "" {
				return nil, errors.Errorf("broker %s: empty gateway url", acc.Identity)
			}
			return NewGateway(acc), nil
		case config.BrokerKindPaper:
			return NewPaper(acc), nil
		}
		return nil, errors.Errorf("broker %s: unknown kind %q", acc.Identity, acc.Kind)
	}
}
