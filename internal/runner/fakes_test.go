package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"signal_trader/internal/models"
	"signal_trader/internal/parser"

	"github.com/shopspring/decimal"
)

type fakeBroker struct {
	name string

	mu           sync.Mutex
	balance      decimal.Decimal
	balanceErr   error
	placeErr     error
	settlement   models.Settlement
	checkErr     error
	placed       []models.PlaceRequest
	checks       int
	connected    bool
	disconnected bool
}

func newFakeBroker(name string) *fakeBroker {
	return &fakeBroker{
		name:       name,
		balance:    decimal.NewFromInt(1000),
		settlement: models.Settlement{Result: models.ResultWin},
	}
}

func (f *fakeBroker) Connect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = true
	return nil
}

func (f *fakeBroker) Balance(context.Context) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balance, f.balanceErr
}

func (f *fakeBroker) Place(_ context.Context, req models.PlaceRequest) (models.PlaceResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.placeErr != nil {
		return models.PlaceResult{}, f.placeErr
	}
	f.placed = append(f.placed, req)
	return models.PlaceResult{TradeID: fmt.Sprintf("%s-%d", f.name, len(f.placed))}, nil
}

func (f *fakeBroker) CheckResult(context.Context, string) (models.Settlement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checks++
	if f.checkErr != nil {
		return models.Settlement{}, f.checkErr
	}
	return f.settlement, nil
}

func (f *fakeBroker) Disconnect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnected = true
	return nil
}

func (f *fakeBroker) setOutcome(r models.Result) {
	f.mu.Lock()
	f.settlement = models.Settlement{Result: r}
	f.mu.Unlock()
}

func (f *fakeBroker) placements() []models.PlaceRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.PlaceRequest(nil), f.placed...)
}

func (f *fakeBroker) isDisconnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disconnected
}

type fakeRanker struct {
	mu    sync.Mutex
	lists [][]string
	errs  []error
	calls int
}

func (r *fakeRanker) RankAssets(context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.calls
	r.calls++
	if i < len(r.errs) && r.errs[i] != nil {
		return nil, r.errs[i]
	}
	if len(r.lists) == 0 {
		return nil, errors.New("no rankings")
	}
	if i >= len(r.lists) {
		i = len(r.lists) - 1
	}
	return r.lists[i], nil
}

type recordingJournal struct {
	mu     sync.Mutex
	trades []models.Trade
}

func (j *recordingJournal) RecordTrade(_ context.Context, t models.Trade) error {
	j.mu.Lock()
	j.trades = append(j.trades, t)
	j.mu.Unlock()
	return nil
}

func (j *recordingJournal) all() []models.Trade {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]models.Trade(nil), j.trades...)
}

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testConfig() Config {
	c := DefaultConfig()
	c.SettleBuffer = 0
	c.PollInterval = time.Millisecond
	c.PollAttempts = 3
	c.BrokerTimeout = time.Second
	return c
}

var testAssets = []string{"EUR/USD OTC", "AUD/CAD OTC", "CHF/JPY"}

func newTestEngine(t *testing.T, opts []Option, brokers ...*fakeBroker) *Engine {
	t.Helper()

	reg := NewRegistry()
	for _, b := range brokers {
		reg.Register(b.name, b, models.FixedSizing(1))
	}
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	e := NewEngine(testConfig(), parser.NewAssets(testAssets), reg, opts...)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_ = e.Close(ctx)
	})
	return e
}

// msg собирает сообщение с уникальным id и свежим временем.
func msg(id, text string) models.InboundMessage {
	return models.InboundMessage{ID: id, Text: text, Timestamp: testNow.Add(-time.Second)}
}

// prime открывает сессию и ставит актив с таймфреймом.
func prime(t *testing.T, e *Engine) {
	t.Helper()
	ctx := context.Background()
	steps := []struct {
		text string
		want models.MessageKind
	}{
		{"📊 Trading settings opened", models.KindSessionStart},
		{"EUR/USD OTC", models.KindAsset},
		{"2 min", models.KindTimeframe},
	}
	for i, s := range steps {
		if got := e.HandleMessage(ctx, msg(fmt.Sprintf("prime-%d", i), s.text)); got != s.want {
			t.Fatalf("prime %q: kind = %s, want %s", s.text, got, s.want)
		}
	}
}
