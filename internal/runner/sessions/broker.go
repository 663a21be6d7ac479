package sessions

import (
	"context"
	"time"

	"signal_trader/internal/models"

	"github.com/shopspring/decimal"
)

// Broker: единый интерфейс торгового аккаунта. Различия конкретных API
// (buy/sell против call/put) разруливаются внутри адаптера.
type Broker interface {
	Connect(ctx context.Context) error
	Balance(ctx context.Context) (decimal.Decimal, error)
	Place(ctx context.Context, req models.PlaceRequest) (models.PlaceResult, error)
	CheckResult(ctx context.Context, tradeID string) (models.Settlement, error)
	Disconnect(ctx context.Context) error
}

// HistoryFetcher: необязательная возможность брокера отдать свечи (прогрев актива).
type HistoryFetcher interface {
	History(ctx context.Context, asset string, period time.Duration, count int) ([]models.Candle, error)
}
