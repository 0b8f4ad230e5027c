// Package log builds the zap loggers used by the featurino command and tests.
package log

import (
	"fmt"
	"os"
	"sort"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level defines the severity level for log messages.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

func (l Level) zapLevel() (zapcore.Level, error) {
	switch l {
	case LevelDebug:
		return zap.DebugLevel, nil
	case LevelInfo, "":
		return zap.InfoLevel, nil
	case LevelWarn:
		return zap.WarnLevel, nil
	case LevelError:
		return zap.ErrorLevel, nil
	default:
		return zap.InfoLevel, fmt.Errorf("unknown log level %q", l)
	}
}

// New builds a JSON production logger, or a console logger when development is set.
func New(level Level, development bool) (*zap.Logger, error) {
	lvl, err := level.zapLevel()
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

// NewTest returns a debug console logger writing to stdout.
func NewTest() *zap.Logger {
	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.Lock(os.Stdout),
		zap.DebugLevel,
	)
	return zap.New(consoleCore)
}

// Fields turns a map into zap fields, sorted by key so output is stable.
func Fields(m map[string]interface{}) []zap.Field {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]zap.Field, 0, len(m))
	for _, k := range keys {
		fields = append(fields, zap.Any(k, m[k]))
	}
	return fields
}

// Sync flushes logger, reporting failures on the logger itself.
func Sync(logger *zap.Logger) {
	if err := logger.Sync(); err != nil {
		logger.Debug("failed to sync logger", zap.Error(err))
	}
}
