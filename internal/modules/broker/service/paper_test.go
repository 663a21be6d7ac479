package service

import (
	"context"
	"testing"
	"time"

	"signal_trader/internal/models"
	"signal_trader/internal/modules/config"

	"github.com/shopspring/decimal"
)

func newTestPaper(winRate float64) (*Paper, *time.Time) {
	p := NewPaper(config.BrokerAccount{Identity: "paper", StartBalance: 100, Payout: 0.8, WinRate: winRate, Seed: 7})
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }
	return p, &now
}

func TestPaperRequiresConnect(t *testing.T) {
	p, _ := newTestPaper(1)
	if _, err := p.Balance(context.Background()); err == nil {
		t.Fatal("expected error before Connect")
	}
}

func TestPaperWinSettlement(t *testing.T) {
	p, now := newTestPaper(1)
	ctx := context.Background()
	_ = p.Connect(ctx)

	res, err := p.Place(ctx, models.PlaceRequest{
		Direction: models.DirectionCall,
		Asset:     "EURUSD_otc",
		Amount:    decimal.NewFromInt(10),
		Duration:  time.Minute,
	})
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	if bal, _ := p.Balance(ctx); !bal.Equal(decimal.NewFromInt(90)) {
		t.Fatalf("balance after place = %s", bal)
	}

	st, err := p.CheckResult(ctx, res.TradeID)
	if err != nil || st.Result != models.ResultPending {
		t.Fatalf("before expiry: %+v, %v", st, err)
	}

	*now = now.Add(time.Minute)
	st, err = p.CheckResult(ctx, res.TradeID)
	if err != nil {
		t.Fatalf("CheckResult: %v", err)
	}
	if st.Result != models.ResultWin || !st.Profit.Decimal.Equal(decimal.NewFromInt(8)) {
		t.Fatalf("settlement = %+v", st)
	}
	// повторная проверка не начисляет выплату ещё раз
	_, _ = p.CheckResult(ctx, res.TradeID)
	if bal, _ := p.Balance(ctx); !bal.Equal(decimal.NewFromInt(108)) {
		t.Fatalf("balance after win = %s", bal)
	}
}

func TestPaperLossAndValidation(t *testing.T) {
	p, now := newTestPaper(0.0000001)
	ctx := context.Background()
	_ = p.Connect(ctx)

	if _, err := p.Place(ctx, models.PlaceRequest{Direction: models.DirectionPut, Amount: decimal.NewFromInt(500)}); err == nil {
		t.Fatal("expected error for amount over balance")
	}
	if _, err := p.Place(ctx, models.PlaceRequest{Direction: models.DirectionNone, Amount: decimal.NewFromInt(1)}); err == nil {
		t.Fatal("expected error for empty direction")
	}

	res, err := p.Place(ctx, models.PlaceRequest{Direction: models.DirectionPut, Amount: decimal.NewFromInt(20)})
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	*now = now.Add(time.Second)
	st, _ := p.CheckResult(ctx, res.TradeID)
	if st.Result != models.ResultLoss || !st.Profit.Decimal.Equal(decimal.NewFromInt(-20)) {
		t.Fatalf("settlement = %+v", st)
	}
	if bal, _ := p.Balance(ctx); !bal.Equal(decimal.NewFromInt(80)) {
		t.Fatalf("balance = %s", bal)
	}
}

func TestPaperHistory(t *testing.T) {
	p, _ := newTestPaper(0.5)
	candles, err := p.History(context.Background(), "EURUSD_otc", 2*time.Minute, 30)
	if err != nil || len(candles) != 30 {
		t.Fatalf("History = %d, %v", len(candles), err)
	}
	for i, c := range candles {
		if c.High < c.Low || c.High < c.Close || c.Low > c.Close {
			t.Fatalf("candle %d inconsistent: %+v", i, c)
		}
	}
}
