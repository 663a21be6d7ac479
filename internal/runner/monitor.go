package runner

import (
	"context"
	"time"

	"signal_trader/internal/models"
	"signal_trader/internal/runner/sessions"
	"signal_trader/pkg/logger"
	"signal_trader/pkg/tracing"

	"github.com/shopspring/decimal"
)

// monitor дожидается экспирации, опрашивает результат и обновляет брокера.
// Ошибки только логируются.
func (e *Engine) monitor(ctx context.Context, s *sessions.BrokerSession, trade models.Trade, gen uint64) {
	span, ctx := tracing.StartSpan(ctx, "trade.monitor", map[string]any{
		"broker":   trade.Broker,
		"trade_id": trade.ID,
		"cycle":    trade.Cycle,
	})
	defer span.Finish()

	if !sleepCtx(ctx, trade.Duration+e.cfg.SettleBuffer) {
		logger.Warn("[MONITOR] %s %s abandoned before settlement", trade.Broker, trade.ID)
		return
	}

	st, polled := e.pollSettlement(ctx, s, trade.ID)
	result := classifySettlement(st, polled)

	if !s.Settle(gen, result) {
		logger.Info("[MONITOR] %s %s settled as %s after a newer trade, state kept", trade.Broker, trade.ID, result)
	}
	span.SetTag("result", result.String())

	trade.Result = result
	trade.Profit = st.Profit
	trade.SettledAt = e.now()
	logger.Info("[MONITOR] %s %s %s profit=%s", trade.Broker, trade.ID, result, profitString(st.Profit))

	e.trackOutcome(ctx, trade.Cycle, result)
	e.refreshBalance(ctx, s)

	e.record(ctx, trade)
	e.notify(ctx, "%s %s: %s %s → %s (%s)", resultIcon(result), trade.Broker, trade.Direction, trade.Asset, result, profitString(st.Profit))
}

// pollSettlement опрашивает брокера, пока не придёт win/loss или не кончатся попытки.
func (e *Engine) pollSettlement(ctx context.Context, s *sessions.BrokerSession, tradeID string) (models.Settlement, bool) {
	var (
		last   models.Settlement
		polled bool
	)
	attempts := e.cfg.PollAttempts
	if attempts <= 0 {
		attempts = 1
	}

	for i := 1; i <= attempts; i++ {
		cctx, cancel := context.WithTimeout(ctx, e.cfg.BrokerTimeout)
		st, err := s.Broker().CheckResult(cctx, tradeID)
		cancel()

		if err != nil {
			logger.Warn("[MONITOR] %s check %s attempt %d/%d: %v", s.Identity(), tradeID, i, attempts, err)
		} else {
			last, polled = st, true
			if st.Result == models.ResultWin || st.Result == models.ResultLoss {
				break
			}
		}

		if i < attempts && !sleepCtx(ctx, e.cfg.PollInterval) {
			break
		}
	}
	return last, polled
}

// classifySettlement сводит ответ брокера к исходу.
// Нулевой профит считается ничьей только у закрытой сделки.
func classifySettlement(st models.Settlement, polled bool) models.Result {
	if !polled {
		return models.ResultUnknown
	}
	switch st.Result {
	case models.ResultWin, models.ResultLoss:
		return st.Result
	}
	if st.Profit.Valid {
		switch st.Profit.Decimal.Sign() {
		case 1:
			return models.ResultWin
		case -1:
			return models.ResultLoss
		}
	}
	if st.Result == models.ResultTie {
		return models.ResultTie
	}
	if st.Profit.Valid && st.Result != models.ResultPending {
		return models.ResultTie
	}
	return models.ResultUnknown
}

func (e *Engine) refreshBalance(ctx context.Context, s *sessions.BrokerSession) {
	cctx, cancel := context.WithTimeout(ctx, e.cfg.BrokerTimeout)
	defer cancel()

	bal, err := s.Broker().Balance(cctx)
	if err != nil {
		logger.Warn("[MONITOR] %s balance refresh: %v", s.Identity(), err)
		return
	}
	s.SetBalance(bal)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func resultIcon(r models.Result) string {
	switch r {
	case models.ResultWin:
		return "✅"
	case models.ResultLoss:
		return "❌"
	case models.ResultTie:
		return "➖"
	default:
		return "❔"
	}
}

func profitString(p decimal.NullDecimal) string {
	if !p.Valid {
		return "n/a"
	}
	return p.Decimal.StringFixed(2)
}
