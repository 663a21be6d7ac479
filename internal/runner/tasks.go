package runner

import (
	"context"
	"sync"

	"signal_trader/pkg/logger"
)

// TaskSet: ограниченный набор фоновых задач (мониторы сделок, прогрев).
// Задачи получают общий контекст, который отменяется при Drain по дедлайну.
type TaskSet struct {
	ctx    context.Context
	cancel context.CancelFunc

	slots chan struct{}
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func NewTaskSet(limit int) *TaskSet {
	if limit <= 0 {
		limit = 256
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &TaskSet{
		ctx:    ctx,
		cancel: cancel,
		slots:  make(chan struct{}, limit),
	}
}

// Go запускает задачу, если набор открыт и есть свободный слот.
func (t *TaskSet) Go(fn func(ctx context.Context)) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return false
	}
	select {
	case t.slots <- struct{}{}:
	default:
		return false
	}

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer func() { <-t.slots }()
		defer func() {
			if r := recover(); r != nil {
				logger.Error("[TASKS] task panic: %v", r)
			}
		}()
		fn(t.ctx)
	}()
	return true
}

// Len: сколько задач сейчас в полёте.
func (t *TaskSet) Len() int { return len(t.slots) }

func (t *TaskSet) Wait() { t.wg.Wait() }

// Drain закрывает набор и ждёт задачи до дедлайна ctx.
// По дедлайну оставшиеся задачи отменяются и бросаются.
func (t *TaskSet) Drain(ctx context.Context) error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.cancel()
		return nil
	case <-ctx.Done():
		t.cancel()
		logger.Warn("[TASKS] drain deadline, abandoning %d task(s)", t.Len())
		return ctx.Err()
	}
}
