package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"signal_trader/internal/models"
	"signal_trader/internal/runner/sessions"
	"signal_trader/pkg/logger"
	"signal_trader/pkg/tracing"
)

// Execute ставит одну сделку параллельно на всех брокерах.
// Ждёт только размещения; результат забирают мониторы.
// override > 0 задаёт длительность явно, иначе берётся текущий таймфрейм или дефолт.
func (e *Engine) Execute(ctx context.Context, dir models.Direction, isCatchUp bool, override time.Duration) error {
	if !dir.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidDirection, dir)
	}

	tc := e.state.tradeContext()
	if tc.asset == "" {
		return ErrNoAsset
	}

	duration := override
	if duration <= 0 {
		duration = time.Duration(tc.timeframe) * time.Second
	}
	if duration <= 0 {
		duration = e.cfg.DefaultDuration
	}

	brokers := e.registry.List()
	if len(brokers) == 0 {
		return ErrNoBrokers
	}

	cycle := e.cycles.Add(1)
	span, ctx := tracing.StartSpan(ctx, "trade.dispatch", map[string]any{
		"cycle":     cycle,
		"asset":     tc.asset,
		"direction": string(dir),
		"catchup":   isCatchUp,
		"brokers":   len(brokers),
	})
	defer span.Finish()

	req := models.PlaceRequest{
		Direction: dir,
		Asset:     tc.asset,
		Duration:  duration,
	}

	logger.Info("[TRADE] cycle=%d %s %s %s catchup=%v brokers=%d",
		cycle, dir, tc.asset, duration, isCatchUp, len(brokers))

	var (
		wg     sync.WaitGroup
		placed atomic.Int32
	)
	for _, s := range brokers {
		wg.Add(1)
		go func(s *sessions.BrokerSession) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					logger.Error("[TRADE] %s panic: %v", s.Identity(), r)
				}
			}()
			if e.placeOne(ctx, s, req, cycle, isCatchUp) {
				placed.Add(1)
			}
		}(s)
	}
	wg.Wait()

	logger.Info("[TRADE] cycle=%d placed %d/%d", cycle, placed.Load(), len(brokers))
	return nil
}

func (e *Engine) placeOne(ctx context.Context, s *sessions.BrokerSession, req models.PlaceRequest, cycle uint64, isCatchUp bool) bool {
	span, ctx := tracing.StartSpan(ctx, "trade.place", map[string]any{"broker": s.Identity()})
	defer span.Finish()

	order, err := s.PrepareOrder(ctx, e.cfg.BrokerTimeout, isCatchUp)
	if err != nil {
		if errors.Is(err, sessions.ErrInsufficientFunds) {
			logger.Warn("[TRADE] %s skipped: %v", s.Identity(), err)
		} else {
			logger.Error("[TRADE] %s staking: %v", s.Identity(), err)
		}
		tracing.Fail(span, err)
		return false
	}
	req.Amount = order.Amount

	pctx, cancel := context.WithTimeout(ctx, e.cfg.BrokerTimeout)
	res, err := s.Broker().Place(pctx, req)
	cancel()
	if err == nil && res.TradeID == "" {
		err = errors.New("broker returned empty trade id")
	}
	if err != nil {
		logger.Error("[TRADE] %s place %s %s %s: %v", s.Identity(), req.Direction, req.Asset, order.Amount, err)
		tracing.Fail(span, err)
		return false
	}

	gen := s.RecordPlaced(order.Amount, res.TradeID)
	trade := models.Trade{
		ID:        res.TradeID,
		Broker:    s.Identity(),
		Direction: req.Direction,
		Asset:     req.Asset,
		Amount:    order.Amount,
		Duration:  req.Duration,
		IsCatchUp: isCatchUp,
		Cycle:     cycle,
		PlacedAt:  e.now(),
		Result:    models.ResultPending,
	}
	span.SetTag("trade_id", trade.ID)

	logger.Info("[TRADE] %s placed %s %s amount=%s basis=%s id=%s",
		s.Identity(), trade.Direction, trade.Asset, trade.Amount, order.Basis, trade.ID)
	e.record(ctx, trade)
	e.notify(ctx, "📈 %s: %s %s %s (%s) id=%s", trade.Broker, trade.Direction, trade.Asset, trade.Amount, trade.Duration, trade.ID)

	if !e.tasks.Go(func(tctx context.Context) { e.monitor(tctx, s, trade, gen) }) {
		logger.Warn("[TRADE] %s monitor for %s not scheduled (task set full or closed)", s.Identity(), trade.ID)
	}
	return true
}
