package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"signal_trader/internal/models"

	"github.com/shopspring/decimal"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("invalid trade amount")
)

var two = decimal.NewFromInt(2)

// Order: рассчитанная ставка для одного брокера.
type Order struct {
	Amount  decimal.Decimal
	Base    decimal.Decimal
	Balance decimal.Decimal
	// от какого результата считали (после поправки на догон)
	Basis models.Result
}

// NextAmount: правило мартингейла: после проигрыша удваиваем,
// после ничьей повторяем, в остальных случаях возвращаемся к базе.
func NextAmount(result models.Result, last decimal.NullDecimal, base decimal.Decimal) decimal.Decimal {
	if !last.Valid {
		return base
	}
	switch result {
	case models.ResultLoss:
		return last.Decimal.Mul(two)
	case models.ResultTie:
		return last.Decimal
	default:
		return base
	}
}

// PrepareOrder берёт баланс (с таймаутом) и считает следующую ставку.
// Догон поверх ещё не рассчитанной сделки считается как догон после проигрыша.
func (s *BrokerSession) PrepareOrder(ctx context.Context, timeout time.Duration, isCatchUp bool) (Order, error) {
	balCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		balCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	balance, err := s.broker.Balance(balCtx)
	if err != nil {
		return Order{}, fmt.Errorf("balance: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastBalance = decimal.NewNullDecimal(balance)

	basis := s.lastResult
	if isCatchUp && basis == models.ResultPending {
		basis = models.ResultLoss
	}

	base := s.sizing.Base(balance)
	amount := NextAmount(basis, s.lastAmount, base)

	order := Order{Amount: amount, Base: base, Balance: balance, Basis: basis}
	if !amount.IsPositive() {
		return order, fmt.Errorf("%w: %s", ErrInvalidAmount, amount)
	}
	if amount.GreaterThan(balance) {
		return order, fmt.Errorf("%w: need %s, balance %s", ErrInsufficientFunds, amount, balance)
	}
	return order, nil
}
