package runner

import (
	"context"
	"errors"
	"strings"
	"time"

	"signal_trader/internal/models"
	"signal_trader/internal/parser"
	"signal_trader/pkg/logger"
)

// HandleMessage классифицирует одно входящее сообщение и выполняет его.
// Сообщения должны подаваться строго по одному (цикл в module.go).
func (e *Engine) HandleMessage(ctx context.Context, msg models.InboundMessage) models.MessageKind {
	kind := e.classify(ctx, msg)
	e.state.remember(models.RecentMessage{
		Time: e.now(),
		Text: msg.Text,
		Kind: kind,
	})
	return kind
}

func (e *Engine) classify(ctx context.Context, msg models.InboundMessage) models.MessageKind {
	// 1. дубли
	if !e.state.markSeen(msg.ID) {
		logger.Debug("[SIGNAL] duplicate message id=%s", msg.ID)
		return models.KindDuplicate
	}

	// 2. протухшие
	if !msg.Timestamp.IsZero() && e.cfg.Staleness > 0 {
		if age := e.now().Sub(msg.Timestamp); age > e.cfg.Staleness {
			logger.Info("[SIGNAL] stale message id=%s age=%s", msg.ID, age.Truncate(time.Second))
			return models.KindStale
		}
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return models.KindUnrecognized
	}

	// 3. маркеры сессии
	if parser.HasMarker(text, e.cfg.StartMarker) {
		e.state.setTradingActive(true)
		if sec, ok := parser.ParseTimeframe(text); ok {
			e.state.setTimeframe(sec)
		}
		logger.Info("[SIGNAL] session started")
		return models.KindSessionStart
	}
	if parser.HasMarker(text, e.cfg.StopMarker) {
		e.state.setTradingActive(false)
		logger.Info("[SIGNAL] session stopped")
		return models.KindSessionStop
	}

	// 4. догон
	if c, ok := parser.ParseCatchUp(text); ok {
		e.handleCatchUp(ctx, c)
		return models.KindCatchUp
	}

	// 5. отчёты о результате
	if parser.IsResult(text) {
		logger.Debug("[SIGNAL] result notice ignored: %q", text)
		return models.KindResult
	}

	// 6. таймфрейм
	if sec, ok := parser.ParseTimeframe(text); ok {
		e.state.setTimeframe(sec)
		logger.Info("[SIGNAL] timeframe=%ds", sec)
		return models.KindTimeframe
	}

	// 7. актив
	if asset, ok := e.assets.Match(text); ok {
		if e.state.setAssetFromText(asset) {
			logger.Info("[SIGNAL] asset=%s", asset)
		} else {
			logger.Info("[SIGNAL] asset %s ignored, auto-select is on", asset)
		}
		return models.KindAsset
	}

	// 8. направление
	if dir, ok := parser.ParseDirection(text); ok {
		e.handleDirection(ctx, dir)
		return models.KindDirection
	}

	logger.Info("[SIGNAL] unrecognized message: %q", text)
	return models.KindUnrecognized
}

func (e *Engine) handleCatchUp(ctx context.Context, c parser.CatchUp) {
	if !c.HasDirection() {
		logger.Info("[SIGNAL] catch-up without direction, skipped")
		return
	}
	if !e.state.tradeContext().tradingActive {
		logger.Warn("[SIGNAL] catch-up %s skipped: trading session inactive", c.Direction)
		return
	}

	override := time.Duration(c.Seconds) * time.Second
	if err := e.Execute(ctx, c.Direction, true, override); err != nil {
		logCondition("catch-up", c.Direction, err)
	}
}

func (e *Engine) handleDirection(ctx context.Context, dir models.Direction) {
	tc := e.state.tradeContext()
	if tc.asset == "" || tc.timeframe <= 0 {
		logger.Warn("[SIGNAL] %s skipped: asset=%q timeframe=%d", dir, tc.asset, tc.timeframe)
		return
	}
	if !tc.tradingActive {
		logger.Warn("[SIGNAL] %s skipped: trading session inactive", dir)
		return
	}
	if err := e.Execute(ctx, dir, false, 0); err != nil {
		logCondition("signal", dir, err)
	}
}

func logCondition(what string, dir models.Direction, err error) {
	if errors.Is(err, ErrNoAsset) || errors.Is(err, ErrNoBrokers) {
		logger.Warn("[SIGNAL] %s %s skipped: %v", what, dir, err)
		return
	}
	logger.Error("[SIGNAL] %s %s failed: %v", what, dir, err)
}
