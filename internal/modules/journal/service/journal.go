package service

import (
	"context"
	"time"

	"signal_trader/internal/models"
)

// Noop: журнал выключен (db.driver: none).
type Noop struct{}

func (Noop) RecordTrade(context.Context, models.Trade) error { return nil }
func (Noop) Close() error                                    { return nil }

// row: сделка в виде колонок таблицы trades.
type row struct {
	broker    string
	tradeID   string
	direction string
	asset     string
	amount    string
	duration  int64
	catchUp   bool
	cycle     int64
	placedAt  time.Time
	result    string
	profit    *string
	settledAt *time.Time
}

func toRow(t models.Trade) row {
	r := row{
		broker:    t.Broker,
		tradeID:   t.ID,
		direction: string(t.Direction),
		asset:     t.Asset,
		amount:    t.Amount.StringFixed(2),
		duration:  int64(t.Duration / time.Second),
		catchUp:   t.IsCatchUp,
		cycle:     int64(t.Cycle),
		placedAt:  t.PlacedAt.UTC(),
		result:    t.Result.String(),
	}
	if t.Profit.Valid {
		p := t.Profit.Decimal.String()
		r.profit = &p
	}
	if !t.SettledAt.IsZero() {
		s := t.SettledAt.UTC()
		r.settledAt = &s
	}
	return r
}
