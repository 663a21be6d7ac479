package service

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"signal_trader/internal/models"
	"signal_trader/internal/modules/config"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var ErrNotConnected = errors.New("broker is not connected")

type paperTrade struct {
	amount    decimal.Decimal
	expiresAt time.Time
	outcome   models.Result
	settled   bool
	profit    decimal.Decimal
}

// Paper: брокер-симулятор для сухого прогона: баланс в памяти, исход сделки
// разыгрывается при размещении и открывается после экспирации.
type Paper struct {
	identity string

	mu        sync.Mutex
	connected bool
	balance   decimal.Decimal
	payout    decimal.Decimal
	winRate   float64
	rnd       *rand.Rand
	trades    map[string]*paperTrade
	now       func() time.Time
}

func NewPaper(acc config.BrokerAccount) *Paper {
	start := acc.StartBalance
	if start <= 0 {
		start = 1000
	}
	payout := acc.Payout
	if payout <= 0 {
		payout = 0.8
	}
	winRate := acc.WinRate
	if winRate <= 0 || winRate > 1 {
		winRate = 0.5
	}
	seed := acc.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Paper{
		identity: acc.Identity,
		balance:  decimal.NewFromFloat(start),
		payout:   decimal.NewFromFloat(payout),
		winRate:  winRate,
		rnd:      rand.New(rand.NewSource(seed)),
		trades:   make(map[string]*paperTrade),
		now:      time.Now,
	}
}

func (p *Paper) Connect(context.Context) error {
	p.mu.Lock()
	p.connected = true
	p.mu.Unlock()
	return nil
}

func (p *Paper) Disconnect(context.Context) error {
	p.mu.Lock()
	p.connected = false
	p.mu.Unlock()
	return nil
}

func (p *Paper) Balance(context.Context) (decimal.Decimal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected {
		return decimal.Zero, ErrNotConnected
	}
	return p.balance, nil
}

func (p *Paper) Place(_ context.Context, req models.PlaceRequest) (models.PlaceResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.connected {
		return models.PlaceResult{}, ErrNotConnected
	}
	if !req.Direction.Valid() {
		return models.PlaceResult{}, errors.Errorf("unsupported direction %q", req.Direction)
	}
	if !req.Amount.IsPositive() || req.Amount.GreaterThan(p.balance) {
		return models.PlaceResult{}, errors.Errorf("invalid amount %s (balance %s)", req.Amount, p.balance)
	}

	outcome := models.ResultLoss
	if p.rnd.Float64() < p.winRate {
		outcome = models.ResultWin
	}

	id := uuid.NewString()
	p.balance = p.balance.Sub(req.Amount)
	p.trades[id] = &paperTrade{
		amount:    req.Amount,
		expiresAt: p.now().Add(req.Duration),
		outcome:   outcome,
	}
	return models.PlaceResult{
		TradeID: id,
		Info: map[string]any{
			"asset":  req.Asset,
			"action": string(req.Direction),
			"paper":  true,
		},
	}, nil
}

func (p *Paper) CheckResult(_ context.Context, tradeID string) (models.Settlement, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	t, ok := p.trades[tradeID]
	if !ok {
		return models.Settlement{}, errors.Errorf("unknown trade %s", tradeID)
	}
	if p.now().Before(t.expiresAt) {
		return models.Settlement{Result: models.ResultPending}, nil
	}

	if !t.settled {
		t.settled = true
		switch t.outcome {
		case models.ResultWin:
			t.profit = t.amount.Mul(p.payout).Round(2)
			p.balance = p.balance.Add(t.amount).Add(t.profit)
		default:
			t.profit = t.amount.Neg()
		}
	}
	return models.Settlement{Result: t.outcome, Profit: decimal.NewNullDecimal(t.profit)}, nil
}

// History: синтетические свечи случайного блуждания, для прогрева.
func (p *Paper) History(_ context.Context, asset string, period time.Duration, count int) ([]models.Candle, error) {
	if count <= 0 {
		return nil, nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]models.Candle, 0, count)
	price := 1.0 + float64(len(asset))/100
	start := p.now().Add(-time.Duration(count) * period)
	for i := 0; i < count; i++ {
		open := price
		price = math.Max(0.0001, price*(1+(p.rnd.Float64()-0.5)/500))
		high := math.Max(open, price) * (1 + p.rnd.Float64()/2000)
		low := math.Min(open, price) * (1 - p.rnd.Float64()/2000)
		out = append(out, models.Candle{
			Time:  start.Add(time.Duration(i) * period).Unix(),
			Open:  open,
			High:  high,
			Low:   low,
			Close: price,
		})
	}
	return out, nil
}
