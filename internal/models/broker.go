package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Sizing: базовый размер ставки: процент от баланса или фиксированная сумма.
type Sizing struct {
	Percentage decimal.Decimal
	Fixed      decimal.Decimal
}

func PercentageSizing(p float64) Sizing {
	return Sizing{Percentage: decimal.NewFromFloat(p)}
}

func FixedSizing(amount float64) Sizing {
	return Sizing{Fixed: decimal.NewFromFloat(amount)}
}

func (s Sizing) IsFixed() bool { return s.Fixed.IsPositive() }

func (s Sizing) Validate() error {
	if s.IsFixed() {
		return nil
	}
	if !s.Percentage.IsPositive() || s.Percentage.GreaterThan(hundred) {
		return fmt.Errorf("percentage must be in (0, 100], got %s", s.Percentage)
	}
	return nil
}

// Base считает базовую сумму от текущего баланса, с точностью до цента.
func (s Sizing) Base(balance decimal.Decimal) decimal.Decimal {
	if s.IsFixed() {
		return s.Fixed
	}
	return balance.Mul(s.Percentage).Div(hundred).Round(2)
}

func (s Sizing) String() string {
	if s.IsFixed() {
		return s.Fixed.String() + " fixed"
	}
	return s.Percentage.String() + "%"
}

type BrokerStatus struct {
	Identity        string              `json:"identity"`
	Sizing          string              `json:"sizing"`
	LastBalance     decimal.NullDecimal `json:"last_balance"`
	LastResult      Result              `json:"last_result"`
	LastTradeAmount decimal.NullDecimal `json:"last_trade_amount"`
	LastTradeID     string              `json:"last_trade_id,omitempty"`
}

// Status: снимок состояния движка для /status и телеграма.
type Status struct {
	CurrentAsset      string          `json:"current_asset"`
	CurrentTimeframe  int             `json:"current_timeframe"`
	TradingActive     bool            `json:"trading_active"`
	AutoSelectEnabled bool            `json:"auto_select_enabled"`
	RankedAssets      []string        `json:"ranked_assets"`
	AssetIndex        int             `json:"asset_index"`
	ConsecutiveLosses int             `json:"consecutive_losses"`
	InFlightMonitors  int             `json:"in_flight_monitors"`
	RecentMessages    []RecentMessage `json:"recent_messages"`
	Brokers           []BrokerStatus  `json:"brokers"`
}

type Candle struct {
	Time  int64   `json:"time"`
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}
