// Package logger holds the process-wide zap logger.
package logger

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu            sync.RWMutex
	defaultLogger *zap.Logger
)

// Setup builds the default logger. level is one of debug, info, warn or error;
// format is console or json. Output always goes to stderr.
func Setup(level, format string) *zap.Logger {
	lvl := zapcore.InfoLevel
	switch strings.ToLower(level) {
	case "debug":
		lvl = zapcore.DebugLevel
	case "warn":
		lvl = zapcore.WarnLevel
	case "error":
		lvl = zapcore.ErrorLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var enc zapcore.Encoder
	if strings.ToLower(format) == "json" {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	l := zap.New(zapcore.NewCore(enc, zapcore.Lock(os.Stderr), lvl))

	mu.Lock()
	defaultLogger = l
	mu.Unlock()
	return l
}

// L returns the default logger, building one from LOG_LEVEL and LOG_FORMAT
// if Setup was never called.
func L() *zap.Logger {
	mu.RLock()
	l := defaultLogger
	mu.RUnlock()
	if l != nil {
		return l
	}
	return Setup(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
}

// Replace swaps the default logger, mostly for tests.
func Replace(l *zap.Logger) {
	mu.Lock()
	defaultLogger = l
	mu.Unlock()
}

// Sync flushes the default logger.
func Sync() {
	_ = L().Sync()
}
