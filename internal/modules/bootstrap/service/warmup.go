package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"signal_trader/internal/modules/config"
	"signal_trader/internal/runner"
	"signal_trader/pkg/logger"
)

const warmupPeriod = 2 * time.Minute

// Warmuper подгружает историю нового актива у всех брокеров, которые это умеют.
type Warmuper struct {
	reg   *runner.Registry
	count int

	// ограничитель параллелизма, чтобы не словить rate limit
	sem chan struct{}
}

func NewWarmuper(reg *runner.Registry, cfg *config.Config) *Warmuper {
	count := cfg.Engine.WarmupCandles
	if count <= 0 {
		count = 100
	}
	return &Warmuper{
		reg:   reg,
		count: count,
		sem:   make(chan struct{}, 4),
	}
}

func (w *Warmuper) Warmup(ctx context.Context, asset string) error {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
		loaded   int
	)

	for _, s := range w.reg.List() {
		hf, ok := s.Broker().(runner.HistoryFetcher)
		if !ok {
			continue
		}
		id := s.Identity()

		wg.Add(1)
		go func() {
			defer wg.Done()
			select {
			case w.sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-w.sem }()

			candles, err := hf.History(ctx, asset, warmupPeriod, w.count)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("warmup %s on %s: %w", asset, id, err)
				}
				return
			}
			loaded += len(candles)
		}()
	}
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	logger.Info("[BOOT] warmup %s done: %d candles", asset, loaded)
	return nil
}
