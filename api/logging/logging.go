package logging

import (
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/blocinbloc/native-bluetooth/api/config"
)

var (
	logger   *zap.Logger
	loggerMu sync.RWMutex
)

// Logger returns the package-wide logger.
// It uses a no-op logger until SetLogger is called.
func Logger() *zap.Logger {
	loggerMu.RLock()
	l := logger
	loggerMu.RUnlock()

	if l == nil {
		return zap.NewNop()
	}

	return l
}

// SetLogger replaces the package-wide logger. A nil logger disables logging.
func SetLogger(l *zap.Logger) {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	logger = l
}

// New builds a logger from the log level and format of the configuration.
// Logs are written to stderr.
func New(cfg config.Configuration) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if strings.ToLower(cfg.LogFormat) != "json" {
		zc = zap.NewDevelopmentConfig()
	}

	zc.Level = zap.NewAtomicLevelAt(ParseLevel(cfg.LogLevel))
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	zc.DisableStacktrace = true

	return zc.Build()
}

// ParseLevel converts a string level to a zap level.
func ParseLevel(s string) zapcore.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
