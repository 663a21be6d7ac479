package runner

import (
	"context"

	"signal_trader/internal/models"
	"signal_trader/internal/modules/config"
	"signal_trader/internal/runner/sessions"
)

type (
	Broker         = sessions.Broker
	HistoryFetcher = sessions.HistoryFetcher
)

// BrokerFactory собирает адаптер брокера по записи из конфига.
type BrokerFactory func(ctx context.Context, acc config.BrokerAccount) (Broker, error)

// Ranker отдаёт активы от лучшего к худшему. Может работать долго.
type Ranker interface {
	RankAssets(ctx context.Context) ([]string, error)
}

// Warmer подгружает историю нового актива.
type Warmer interface {
	Warmup(ctx context.Context, asset string) error
}

// Journal пишет сделку; повторная запись той же сделки обновляет её.
type Journal interface {
	RecordTrade(ctx context.Context, t models.Trade) error
}

type Notifier interface {
	Notify(ctx context.Context, format string, args ...any)
}
