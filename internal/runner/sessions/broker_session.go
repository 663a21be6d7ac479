package sessions

import (
	"sync"

	"signal_trader/internal/models"

	"github.com/shopspring/decimal"
)

// BrokerSession: зарегистрированный аккаунт и его состояние мартингейла.
type BrokerSession struct {
	mu sync.Mutex

	identity string
	broker   Broker
	sizing   models.Sizing

	lastAmount  decimal.NullDecimal
	lastBalance decimal.NullDecimal
	lastResult  models.Result
	lastTradeID string

	// растёт на каждую размещённую сделку; монитор пишет результат только своей
	generation uint64
}

func NewBrokerSession(identity string, b Broker, sizing models.Sizing) *BrokerSession {
	return &BrokerSession{
		identity:   identity,
		broker:     b,
		sizing:     sizing,
		lastResult: models.ResultUnknown,
	}
}

func (s *BrokerSession) Identity() string { return s.identity }
func (s *BrokerSession) Broker() Broker   { return s.broker }

func (s *BrokerSession) Sizing() models.Sizing {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sizing
}

// SetSizing меняет только базовый размер; история сделок остаётся.
func (s *BrokerSession) SetSizing(sizing models.Sizing) {
	s.mu.Lock()
	s.sizing = sizing
	s.mu.Unlock()
}

func (s *BrokerSession) SetBalance(balance decimal.Decimal) {
	s.mu.Lock()
	s.lastBalance = decimal.NewNullDecimal(balance)
	s.mu.Unlock()
}

func (s *BrokerSession) LastResult() models.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastResult
}

func (s *BrokerSession) LastAmount() decimal.NullDecimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAmount
}

// RecordPlaced фиксирует размещённую сделку: сумма, Pending, id. Возвращает поколение сделки.
func (s *BrokerSession) RecordPlaced(amount decimal.Decimal, tradeID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	s.lastAmount = decimal.NewNullDecimal(amount)
	s.lastResult = models.ResultPending
	s.lastTradeID = tradeID
	return s.generation
}

// Settle записывает исход сделки поколения gen. Если после неё уже
// размещена новая сделка, результат устарел и состояние не трогается.
func (s *BrokerSession) Settle(gen uint64, result models.Result) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		return false
	}
	s.lastResult = result
	return true
}

func (s *BrokerSession) Snapshot() models.BrokerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	return models.BrokerStatus{
		Identity:        s.identity,
		Sizing:          s.sizing.String(),
		LastBalance:     s.lastBalance,
		LastResult:      s.lastResult,
		LastTradeAmount: s.lastAmount,
		LastTradeID:     s.lastTradeID,
	}
}
