package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Result: закрытый набор исходов сделки.
type Result int

const (
	ResultUnknown Result = iota
	ResultPending
	ResultWin
	ResultLoss
	ResultTie
)

func (r Result) String() string {
	switch r {
	case ResultPending:
		return "pending"
	case ResultWin:
		return "win"
	case ResultLoss:
		return "loss"
	case ResultTie:
		return "tie"
	default:
		return "unknown"
	}
}

func (r Result) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Result) UnmarshalText(b []byte) error {
	v, err := ParseResult(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// ParseResult разбирает статус брокера. Пустая строка: unknown.
func ParseResult(s string) (Result, error) {
	switch s {
	case "win", "won", "WIN":
		return ResultWin, nil
	case "loss", "lose", "lost", "LOSS":
		return ResultLoss, nil
	case "tie", "draw", "refund", "TIE":
		return ResultTie, nil
	case "pending", "open", "PENDING":
		return ResultPending, nil
	case "", "unknown", "UNKNOWN":
		return ResultUnknown, nil
	}
	return ResultUnknown, fmt.Errorf("unknown result %q", s)
}

// PlaceRequest: заявка на бинарную сделку.
type PlaceRequest struct {
	Direction Direction
	Asset     string
	Amount    decimal.Decimal
	Duration  time.Duration
}

type PlaceResult struct {
	TradeID string
	Info    map[string]any
}

// Settlement: ответ брокера на check_result. Profit невалиден, если брокер его не прислал.
type Settlement struct {
	Result Result
	Profit decimal.NullDecimal
}

// Trade живёт от размещения до записи результата монитором.
type Trade struct {
	ID        string              `json:"id"`
	Broker    string              `json:"broker"`
	Direction Direction           `json:"direction"`
	Asset     string              `json:"asset"`
	Amount    decimal.Decimal     `json:"amount"`
	Duration  time.Duration       `json:"duration"`
	IsCatchUp bool                `json:"is_catchup"`
	Cycle     uint64              `json:"cycle"`
	PlacedAt  time.Time           `json:"placed_at"`
	Result    Result              `json:"result"`
	Profit    decimal.NullDecimal `json:"profit"`
	SettledAt time.Time           `json:"settled_at"`
}
