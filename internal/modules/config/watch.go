package config

import (
	"sync"

	"signal_trader/pkg/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Watcher перечитывает файл конфига при сохранении и раздаёт новый список брокеров.
type Watcher struct {
	v *viper.Viper

	mu        sync.Mutex
	listeners []func([]BrokerAccount)
	started   bool
}

func NewWatcher(v *viper.Viper) *Watcher {
	return &Watcher{v: v}
}

// OnBrokersChange подписывает на изменение секции brokers.
func (w *Watcher) OnBrokersChange(fn func([]BrokerAccount)) {
	w.mu.Lock()
	w.listeners = append(w.listeners, fn)
	w.mu.Unlock()
}

func (w *Watcher) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started || w.v == nil {
		return
	}
	w.started = true

	w.v.OnConfigChange(func(e fsnotify.Event) {
		if err := w.apply(e.Name); err != nil {
			logger.Error("[CONFIG] reload %s: %v", e.Name, err)
		}
	})
	w.v.WatchConfig()
}

// Reload: ручное перечитывание (команда /reload).
func (w *Watcher) Reload() error {
	if w.v == nil {
		return errors.New("config is not file-backed")
	}
	if err := w.v.ReadInConfig(); err != nil {
		return errors.Wrap(err, "read config")
	}
	return w.apply(w.v.ConfigFileUsed())
}

func (w *Watcher) apply(source string) error {
	cfg, err := decode(w.v)
	if err != nil {
		return err
	}
	logger.Info("[CONFIG] reloaded %s: brokers=%d", source, len(cfg.Brokers))

	w.mu.Lock()
	ls := append([]func([]BrokerAccount){}, w.listeners...)
	w.mu.Unlock()

	for _, fn := range ls {
		fn(cfg.Brokers)
	}
	return nil
}
