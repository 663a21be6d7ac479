package service

import (
	"context"
	"sync"

	"signal_trader/internal/models"
	"signal_trader/internal/modules/config"
	"signal_trader/internal/runner"
	"signal_trader/pkg/logger"

	"github.com/pkg/errors"
)

var ErrUnknownAccount = errors.New("broker account not in config")

// Engine: регистрация брокеров в работающем движке.
type Engine interface {
	RegisterBroker(ctx context.Context, identity string, b runner.Broker, sizing models.Sizing) error
	DeregisterBroker(ctx context.Context, identity string) error
}

// Switch включает и выключает брокеров из конфига без перезапуска.
// Выключенный брокер остаётся выключенным и после перечитывания конфига.
type Switch struct {
	mu       sync.Mutex
	accounts map[string]config.BrokerAccount
	disabled map[string]struct{}

	factory runner.BrokerFactory
	engine  Engine
}

func NewSwitch(cfg *config.Config, factory runner.BrokerFactory, engine Engine) *Switch {
	s := &Switch{
		disabled: make(map[string]struct{}),
		factory:  factory,
		engine:   engine,
	}
	s.SetAccounts(cfg.Brokers)
	return s
}

// SetAccounts запоминает свежий список аккаунтов и возвращает включённые.
func (s *Switch) SetAccounts(accounts []config.BrokerAccount) []config.BrokerAccount {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.accounts = make(map[string]config.BrokerAccount, len(accounts))
	active := make([]config.BrokerAccount, 0, len(accounts))
	for _, acc := range accounts {
		s.accounts[acc.Identity] = acc
		if _, off := s.disabled[acc.Identity]; !off {
			active = append(active, acc)
		}
	}
	return active
}

// Enable поднимает брокера по его аккаунту и регистрирует в движке.
func (s *Switch) Enable(ctx context.Context, identity string) error {
	s.mu.Lock()
	acc, ok := s.accounts[identity]
	s.mu.Unlock()
	if !ok {
		return errors.Wrap(ErrUnknownAccount, identity)
	}

	b, err := s.factory(ctx, acc)
	if err != nil {
		return errors.Wrapf(err, "broker %s", identity)
	}
	if err := s.engine.RegisterBroker(ctx, identity, b, acc.Sizing()); err != nil {
		return errors.Wrapf(err, "broker %s", identity)
	}

	s.mu.Lock()
	delete(s.disabled, identity)
	s.mu.Unlock()
	logger.Info("[BROKER] %s enabled", identity)
	return nil
}

// Disable снимает брокера с торговли. Мониторы его сделок доживают сами.
func (s *Switch) Disable(ctx context.Context, identity string) error {
	s.mu.Lock()
	_, known := s.accounts[identity]
	if known {
		s.disabled[identity] = struct{}{}
	}
	s.mu.Unlock()

	err := s.engine.DeregisterBroker(ctx, identity)
	if errors.Is(err, runner.ErrUnknownBroker) && known {
		// уже отключён: не поднялся при старте или выключен раньше
		err = nil
	}
	if err != nil {
		return err
	}
	logger.Info("[BROKER] %s disabled", identity)
	return nil
}

// SetEnabled: общий вход для команд бота и HTTP.
func (s *Switch) SetEnabled(ctx context.Context, identity string, enabled bool) error {
	if enabled {
		return s.Enable(ctx, identity)
	}
	return s.Disable(ctx, identity)
}
