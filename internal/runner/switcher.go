package runner

import (
	"context"
	"fmt"

	"signal_trader/internal/models"
	"signal_trader/pkg/logger"
)

// trackOutcome ведёт серию проигрышей при автовыборе и переключает актив на пороге.
func (e *Engine) trackOutcome(ctx context.Context, cycle uint64, result models.Result) {
	if e.state.countOutcome(cycle, result, e.cfg.LossStreak) {
		logger.Info("[AUTO] %d consecutive losses, switching asset", e.cfg.LossStreak)
		e.SwitchToNextAsset(ctx)
	}
}

// SwitchToNextAsset переходит к следующему активу рейтинга.
// Состояние мартингейла брокеров не сбрасывается.
func (e *Engine) SwitchToNextAsset(ctx context.Context) {
	e.switchMu.Lock()
	defer e.switchMu.Unlock()

	if e.state.rankedLen() == 0 {
		logger.Warn("[AUTO] ranking is empty, refreshing; switch deferred")
		if err := e.RefreshRanking(ctx); err != nil {
			logger.Warn("[AUTO] ranking refresh failed: %v", err)
		}
		return
	}

	index := 0
	if _, next, ok := e.state.nextRanked(); ok {
		index = next
	} else {
		logger.Info("[AUTO] end of ranking, refreshing")
		if err := e.RefreshRanking(ctx); err != nil {
			logger.Warn("[AUTO] ranking refresh failed, keeping current asset: %v", err)
			return
		}
	}

	asset, ok := e.state.selectRanked(index)
	if !ok {
		return
	}
	logger.Info("[AUTO] switched to %s (#%d)", asset, index+1)
	e.notify(ctx, "🔄 Auto-switch: %s", asset)
	e.warmup(asset)
}

// RefreshRanking запрашивает новый рейтинг. Вызывать вне цикла сообщений.
func (e *Engine) RefreshRanking(ctx context.Context) error {
	if e.ranker == nil {
		return ErrNoRanker
	}

	e.refreshMu.Lock()
	defer e.refreshMu.Unlock()

	ranked, err := e.ranker.RankAssets(ctx)
	if err != nil {
		return fmt.Errorf("rank assets: %w", err)
	}
	if len(ranked) == 0 {
		return ErrEmptyRanking
	}
	e.state.setRanking(ranked)
	logger.Info("[AUTO] ranking refreshed: %v", ranked)
	return nil
}

func (e *Engine) warmup(asset string) {
	if e.warmer == nil {
		return
	}
	ok := e.tasks.Go(func(ctx context.Context) {
		if err := e.warmer.Warmup(ctx, asset); err != nil {
			logger.Warn("[AUTO] warmup %s: %v", asset, err)
		}
	})
	if !ok {
		logger.Warn("[AUTO] warmup %s not scheduled", asset)
	}
}
