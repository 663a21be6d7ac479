package runner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"signal_trader/internal/models"
	"signal_trader/internal/modules/config"
	"signal_trader/internal/parser"
	"signal_trader/internal/runner/sessions"
	"signal_trader/pkg/logger"
)

var (
	ErrNoAsset           = errors.New("current asset is not set")
	ErrNoBrokers         = errors.New("no brokers registered")
	ErrNoRanker          = errors.New("asset ranker is not configured")
	ErrEmptyRanking      = errors.New("asset ranking is empty")
	ErrInvalidDirection  = errors.New("invalid direction")
	ErrInsufficientFunds = sessions.ErrInsufficientFunds
)

// Config: рабочие параметры движка.
type Config struct {
	Staleness       time.Duration
	LossStreak      int
	SettleBuffer    time.Duration
	PollAttempts    int
	PollInterval    time.Duration
	DefaultDuration time.Duration
	BrokerTimeout   time.Duration
	MaxMonitors     int
	RecentMessages  int
	StartMarker     string
	StopMarker      string
}

func DefaultConfig() Config {
	return Config{
		Staleness:       120 * time.Second,
		LossStreak:      4,
		SettleBuffer:    2 * time.Second,
		PollAttempts:    5,
		PollInterval:    2 * time.Second,
		DefaultDuration: 60 * time.Second,
		BrokerTimeout:   10 * time.Second,
		MaxMonitors:     256,
		RecentMessages:  10,
		StartMarker:     "trading settings",
		StopMarker:      "balance after trading",
	}
}

// NewConfig переносит секцию engine; пустые значения берутся из DefaultConfig.
func NewConfig(cfg *config.Config) Config {
	c := DefaultConfig()
	e := cfg.Engine

	if e.Staleness > 0 {
		c.Staleness = e.Staleness
	}
	if e.LossStreak > 0 {
		c.LossStreak = e.LossStreak
	}
	if e.SettleBuffer > 0 {
		c.SettleBuffer = e.SettleBuffer
	}
	if e.PollAttempts > 0 {
		c.PollAttempts = e.PollAttempts
	}
	if e.PollInterval > 0 {
		c.PollInterval = e.PollInterval
	}
	if e.DefaultDuration > 0 {
		c.DefaultDuration = e.DefaultDuration
	}
	if e.BrokerTimeout > 0 {
		c.BrokerTimeout = e.BrokerTimeout
	}
	if e.MaxMonitors > 0 {
		c.MaxMonitors = e.MaxMonitors
	}
	if e.RecentMessages > 0 {
		c.RecentMessages = e.RecentMessages
	}
	if e.StartMarker != "" {
		c.StartMarker = e.StartMarker
	}
	if e.StopMarker != "" {
		c.StopMarker = e.StopMarker
	}
	return c
}

// Engine: интерпретатор сигналов и исполнение по всем брокерам.
type Engine struct {
	cfg      Config
	assets   *parser.Assets
	state    *signalState
	registry *Registry
	tasks    *TaskSet

	ranker  Ranker
	warmer  Warmer
	journal Journal

	nmu      sync.RWMutex
	notifier Notifier

	now func() time.Time

	cycles    atomic.Uint64
	refreshMu sync.Mutex
	switchMu  sync.Mutex
}

type Option func(*Engine)

func WithRanker(r Ranker) Option   { return func(e *Engine) { e.ranker = r } }
func WithWarmer(w Warmer) Option   { return func(e *Engine) { e.warmer = w } }
func WithJournal(j Journal) Option { return func(e *Engine) { e.journal = j } }

func WithNotifier(n Notifier) Option { return func(e *Engine) { e.notifier = n } }

func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

func NewEngine(cfg Config, assets *parser.Assets, registry *Registry, opts ...Option) *Engine {
	if registry == nil {
		registry = NewRegistry()
	}
	e := &Engine{
		cfg:      cfg,
		assets:   assets,
		state:    newSignalState(cfg.RecentMessages),
		registry: registry,
		tasks:    NewTaskSet(cfg.MaxMonitors),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Registry() *Registry { return e.registry }

// SetNotifier подключает уведомления после старта (телеграм создаётся позже движка).
func (e *Engine) SetNotifier(n Notifier) {
	e.nmu.Lock()
	e.notifier = n
	e.nmu.Unlock()
}

func (e *Engine) notify(ctx context.Context, format string, args ...any) {
	e.nmu.RLock()
	n := e.notifier
	e.nmu.RUnlock()
	if n != nil {
		n.Notify(ctx, format, args...)
	}
}

func (e *Engine) record(ctx context.Context, t models.Trade) {
	if e.journal == nil {
		return
	}
	if err := e.journal.RecordTrade(ctx, t); err != nil {
		logger.Error("[JOURNAL] %s trade %s: %v", t.Broker, t.ID, err)
	}
}

// SetTradingActive: ручное включение/выключение торговой сессии.
func (e *Engine) SetTradingActive(active bool) {
	e.state.setTradingActive(active)
	logger.Info("[CONTROL] trading_active=%v", active)
}

// ToggleAutoSelect включает автовыбор: обновляет рейтинг и ставит лучший актив.
// При ошибке рейтинга автовыбор остаётся включённым, актив не меняется.
func (e *Engine) ToggleAutoSelect(ctx context.Context, enabled bool) error {
	e.state.setAutoSelect(enabled)
	logger.Info("[CONTROL] auto_select=%v", enabled)
	if !enabled {
		return nil
	}

	e.switchMu.Lock()
	defer e.switchMu.Unlock()

	if err := e.RefreshRanking(ctx); err != nil {
		logger.Warn("[AUTO] ranking refresh failed, keeping current asset: %v", err)
		return err
	}
	if asset, ok := e.state.selectRanked(0); ok {
		logger.Info("[AUTO] selected top asset %s", asset)
		e.notify(ctx, "🎯 Auto-select: %s", asset)
		e.warmup(asset)
	}
	return nil
}

// RegisterBroker подключает аккаунт и добавляет в реестр.
// Повторная регистрация того же identity сохраняет его состояние мартингейла.
func (e *Engine) RegisterBroker(ctx context.Context, identity string, b Broker, sizing models.Sizing) error {
	if err := sizing.Validate(); err != nil {
		return err
	}
	if existing, ok := e.registry.Get(identity); ok {
		existing.SetSizing(sizing)
		if existing.Broker() != b {
			_ = b.Disconnect(ctx)
		}
		logger.Info("[BROKER] %s already registered, sizing updated to %s", identity, sizing)
		return nil
	}

	cctx, cancel := context.WithTimeout(ctx, e.cfg.BrokerTimeout)
	defer cancel()
	if err := b.Connect(cctx); err != nil {
		return err
	}
	if _, created := e.registry.Register(identity, b, sizing); !created {
		_ = b.Disconnect(ctx)
		return nil
	}
	logger.Info("[BROKER] %s registered (%s)", identity, sizing)
	return nil
}

func (e *Engine) DeregisterBroker(ctx context.Context, identity string) error {
	return e.registry.Deregister(ctx, identity)
}

func (e *Engine) Status() models.Status {
	st := e.state.snapshot()
	st.Brokers = e.registry.Snapshot()
	st.InFlightMonitors = e.tasks.Len()
	return st
}

// Close ждёт фоновые задачи до дедлайна ctx.
func (e *Engine) Close(ctx context.Context) error {
	return e.tasks.Drain(ctx)
}
