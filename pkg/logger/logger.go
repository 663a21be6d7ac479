package logger

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu          sync.RWMutex
	base        *zap.Logger
	serviceName = "signal_trader"
)

func SetServiceName(newName string) string {
	mu.Lock()
	defer mu.Unlock()

	oldName := serviceName
	serviceName = newName

	return oldName
}

// Init собирает production-логгер zap с нужным уровнем ("debug", "info", "warn", "error").
func Init(level string) error {
	lvl := zapcore.InfoLevel
	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return fmt.Errorf("parse log level %q: %w", level, err)
		}
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return fmt.Errorf("build zap logger: %w", err)
	}

	mu.Lock()
	base = l
	mu.Unlock()
	return nil
}

// Base отдаёт текущий zap-логгер; до Init отдаёт no-op.
func Base() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if base == nil {
		return zap.NewNop()
	}
	return base.With(zap.String("service", serviceName))
}

func Sync() {
	mu.RLock()
	l := base
	mu.RUnlock()
	if l != nil {
		_ = l.Sync()
	}
}

func Debug(format string, args ...interface{}) {
	Base().Debug(fmt.Sprintf(format, args...))
}

func Info(format string, args ...interface{}) {
	Base().Info(fmt.Sprintf(format, args...))
}

func Warn(format string, args ...interface{}) {
	Base().Warn(fmt.Sprintf(format, args...))
}

func Error(format string, args ...interface{}) {
	Base().Error(fmt.Sprintf(format, args...))
}

func Fatal(format string, args ...interface{}) {
	Base().Fatal(fmt.Sprintf(format, args...))
}
