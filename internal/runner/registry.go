package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"signal_trader/internal/models"
	"signal_trader/internal/modules/config"
	"signal_trader/internal/runner/sessions"
	"signal_trader/pkg/logger"
)

var ErrUnknownBroker = errors.New("unknown broker")

// Registry управляет сессиями брокеров. Порядок регистрации сохраняется.
type Registry struct {
	mu       sync.RWMutex
	order    []string
	sessions map[string]*sessions.BrokerSession
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*sessions.BrokerSession),
	}
}

// Register добавляет брокера со свежим состоянием. Если identity уже есть,
// обновляется только sizing, а handle и история остаются прежними (created=false).
func (r *Registry) Register(identity string, b Broker, sizing models.Sizing) (*sessions.BrokerSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[identity]; ok {
		s.SetSizing(sizing)
		return s, false
	}

	s := sessions.NewBrokerSession(identity, b, sizing)
	r.sessions[identity] = s
	r.order = append(r.order, identity)
	return s, true
}

// Deregister удаляет брокера и отключает его вне мьютекса.
func (r *Registry) Deregister(ctx context.Context, identity string) error {
	r.mu.Lock()
	s, ok := r.sessions[identity]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownBroker, identity)
	}
	r.removeLocked(identity)
	r.mu.Unlock()

	disconnect(ctx, s)
	return nil
}

// DeregisterMissing убирает всех, кого нет в identities. Остальных не трогает.
func (r *Registry) DeregisterMissing(ctx context.Context, identities []string) []string {
	keep := make(map[string]struct{}, len(identities))
	for _, id := range identities {
		keep[id] = struct{}{}
	}

	r.mu.Lock()
	var removed []*sessions.BrokerSession
	for _, id := range append([]string(nil), r.order...) {
		if _, ok := keep[id]; ok {
			continue
		}
		removed = append(removed, r.sessions[id])
		r.removeLocked(id)
	}
	r.mu.Unlock()

	ids := make([]string, 0, len(removed))
	for _, s := range removed {
		disconnect(ctx, s)
		ids = append(ids, s.Identity())
	}
	return ids
}

func (r *Registry) removeLocked(identity string) {
	delete(r.sessions, identity)
	for i, id := range r.order {
		if id == identity {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

func disconnect(ctx context.Context, s *sessions.BrokerSession) {
	if err := s.Broker().Disconnect(ctx); err != nil {
		logger.Warn("[BROKER] %s disconnect: %v", s.Identity(), err)
		return
	}
	logger.Info("[BROKER] %s deregistered", s.Identity())
}

func (r *Registry) Get(identity string) (*sessions.BrokerSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[identity]
	return s, ok
}

// List: копия списка сессий в порядке регистрации.
func (r *Registry) List() []*sessions.BrokerSession {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*sessions.BrokerSession, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.sessions[id])
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

func (r *Registry) Snapshot() []models.BrokerStatus {
	list := r.List()
	out := make([]models.BrokerStatus, 0, len(list))
	for _, s := range list {
		out = append(out, s.Snapshot())
	}
	return out
}

// Sync приводит реестр к списку аккаунтов из конфига: новых подключает,
// пропавших отключает, у оставшихся меняет только sizing.
func (r *Registry) Sync(ctx context.Context, accounts []config.BrokerAccount, factory BrokerFactory, timeout time.Duration) error {
	ids := make([]string, 0, len(accounts))
	for _, acc := range accounts {
		ids = append(ids, acc.Identity)
	}
	if removed := r.DeregisterMissing(ctx, ids); len(removed) > 0 {
		logger.Info("[BROKER] removed from config: %v", removed)
	}

	var errs []error
	for _, acc := range accounts {
		if s, ok := r.Get(acc.Identity); ok {
			s.SetSizing(acc.Sizing())
			continue
		}

		b, err := factory(ctx, acc)
		if err != nil {
			errs = append(errs, fmt.Errorf("broker %s: %w", acc.Identity, err))
			continue
		}

		cctx, cancel := context.WithTimeout(ctx, timeout)
		err = b.Connect(cctx)
		cancel()
		if err != nil {
			errs = append(errs, fmt.Errorf("broker %s connect: %w", acc.Identity, err))
			continue
		}

		if _, created := r.Register(acc.Identity, b, acc.Sizing()); !created {
			_ = b.Disconnect(ctx)
			continue
		}
		logger.Info("[BROKER] %s connected (%s, %s)", acc.Identity, acc.Kind, acc.Sizing())
	}
	return errors.Join(errs...)
}

// Close отключает всех брокеров.
func (r *Registry) Close(ctx context.Context) {
	r.DeregisterMissing(ctx, nil)
}
