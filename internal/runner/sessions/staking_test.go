package sessions

import (
	"context"
	"errors"
	"testing"
	"time"

	"signal_trader/internal/models"

	"github.com/shopspring/decimal"
)

type balanceBroker struct {
	balance decimal.Decimal
	err     error
	delay   time.Duration
}

func (b *balanceBroker) Connect(context.Context) error { return nil }

func (b *balanceBroker) Balance(ctx context.Context) (decimal.Decimal, error) {
	if b.delay > 0 {
		select {
		case <-time.After(b.delay):
		case <-ctx.Done():
			return decimal.Zero, ctx.Err()
		}
	}
	return b.balance, b.err
}

func (b *balanceBroker) Place(context.Context, models.PlaceRequest) (models.PlaceResult, error) {
	return models.PlaceResult{}, nil
}

func (b *balanceBroker) CheckResult(context.Context, string) (models.Settlement, error) {
	return models.Settlement{}, nil
}

func (b *balanceBroker) Disconnect(context.Context) error { return nil }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestNextAmount(t *testing.T) {
	base := dec("10")
	last := decimal.NewNullDecimal(dec("7.5"))

	tests := []struct {
		name   string
		result models.Result
		last   decimal.NullDecimal
		want   string
	}{
		{"loss doubles", models.ResultLoss, last, "15"},
		{"tie repeats", models.ResultTie, last, "7.5"},
		{"win resets", models.ResultWin, last, "10"},
		{"unknown resets", models.ResultUnknown, last, "10"},
		{"pending resets", models.ResultPending, last, "10"},
		{"no history", models.ResultLoss, decimal.NullDecimal{}, "10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextAmount(tt.result, tt.last, base)
			if !got.Equal(dec(tt.want)) {
				t.Fatalf("NextAmount = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestPrepareOrder(t *testing.T) {
	tests := []struct {
		name      string
		sizing    models.Sizing
		balance   string
		result    models.Result
		last      string
		catchUp   bool
		want      string
		wantErrIs error
	}{
		{"percentage base", models.PercentageSizing(1), "1000", models.ResultUnknown, "", false, "10", nil},
		{"percentage rounds to cents", models.PercentageSizing(1.5), "333.33", models.ResultUnknown, "", false, "5", nil},
		{"fixed base", models.FixedSizing(25), "1000", models.ResultWin, "80", false, "25", nil},
		{"loss doubles regardless of balance", models.PercentageSizing(1), "5000", models.ResultLoss, "40", false, "80", nil},
		{"win resets to fresh base", models.PercentageSizing(2), "500", models.ResultWin, "40", false, "10", nil},
		{"tie repeats", models.FixedSizing(5), "100", models.ResultTie, "20", false, "20", nil},
		{"catch up on pending doubles", models.FixedSizing(5), "100", models.ResultPending, "20", true, "40", nil},
		{"plain signal on pending uses base", models.FixedSizing(5), "100", models.ResultPending, "20", false, "5", nil},
		{"insufficient funds", models.FixedSizing(5), "100", models.ResultLoss, "60", false, "120", ErrInsufficientFunds},
		{"zero balance percentage", models.PercentageSizing(1), "0", models.ResultUnknown, "", false, "0", ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewBrokerSession("acc", &balanceBroker{balance: dec(tt.balance)}, tt.sizing)
			if tt.last != "" {
				gen := s.RecordPlaced(dec(tt.last), "prev")
				if tt.result != models.ResultPending {
					s.Settle(gen, tt.result)
				}
			} else {
				s.lastResult = tt.result
			}

			order, err := s.PrepareOrder(context.Background(), time.Second, tt.catchUp)
			if tt.wantErrIs != nil {
				if !errors.Is(err, tt.wantErrIs) {
					t.Fatalf("err = %v, want %v", err, tt.wantErrIs)
				}
			} else if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if !order.Amount.Equal(dec(tt.want)) {
				t.Fatalf("amount = %s, want %s", order.Amount, tt.want)
			}
		})
	}
}

func TestPrepareOrderInsufficientFundsKeepsState(t *testing.T) {
	s := NewBrokerSession("acc", &balanceBroker{balance: dec("50")}, models.FixedSizing(5))
	gen := s.RecordPlaced(dec("40"), "t1")
	s.Settle(gen, models.ResultLoss)

	if _, err := s.PrepareOrder(context.Background(), time.Second, false); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("err = %v, want insufficient funds", err)
	}

	snap := s.Snapshot()
	if snap.LastResult != models.ResultLoss || !snap.LastTradeAmount.Decimal.Equal(dec("40")) {
		t.Fatalf("state changed: %+v", snap)
	}
	if !snap.LastBalance.Valid || !snap.LastBalance.Decimal.Equal(dec("50")) {
		t.Fatalf("balance not observed: %+v", snap.LastBalance)
	}
}

func TestPrepareOrderBalanceTimeout(t *testing.T) {
	s := NewBrokerSession("slow", &balanceBroker{balance: dec("100"), delay: time.Second}, models.FixedSizing(1))

	start := time.Now()
	_, err := s.PrepareOrder(context.Background(), 20*time.Millisecond, false)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Fatal("balance call was not time-boxed")
	}
}

func TestSettleIgnoresStaleGeneration(t *testing.T) {
	s := NewBrokerSession("acc", &balanceBroker{balance: dec("100")}, models.FixedSizing(1))

	first := s.RecordPlaced(dec("1"), "t1")
	second := s.RecordPlaced(dec("2"), "t2")

	if s.Settle(first, models.ResultWin) {
		t.Fatal("stale settlement applied")
	}
	if s.LastResult() != models.ResultPending {
		t.Fatalf("result = %s, want pending", s.LastResult())
	}
	if !s.Settle(second, models.ResultLoss) {
		t.Fatal("current settlement rejected")
	}
	if s.LastResult() != models.ResultLoss {
		t.Fatalf("result = %s, want loss", s.LastResult())
	}
}
