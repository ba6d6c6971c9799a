package log

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Fields carries structured context attached to a log line.
type Fields map[string]any

// Logger is the logging facade used throughout siplocate. The locator
// only ever reports and continues, so there is no Panic level.
type Logger interface {
	Debug(msg string, fields Fields)
	Info(msg string, fields Fields)
	Warn(msg string, fields Fields)
	Error(msg string, fields Fields)
	Fatal(msg string, fields Fields)
}

var global Logger = newZapLogger(false, zapcore.InfoLevel)

// SetLogger replaces the global logger. Intended for tests.
func SetLogger(l Logger) {
	global = l
}

// GetLogger returns the current global logger.
func GetLogger() Logger {
	return global
}

// Configure rebuilds the global logger for the given environment
// ("dev" or "prod") and level name.
func Configure(env, level string) error {
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	global = newZapLogger(env != "prod", lvl)
	return nil
}

// Debug logs at debug level using the global logger.
func Debug(msg string, fields Fields) { global.Debug(msg, fields) }

// Info logs at info level using the global logger.
func Info(msg string, fields Fields) { global.Info(msg, fields) }

// Warn logs at warn level using the global logger.
func Warn(msg string, fields Fields) { global.Warn(msg, fields) }

// Error logs at error level using the global logger.
func Error(msg string, fields Fields) { global.Error(msg, fields) }

// Fatal logs at fatal level using the global logger and exits.
func Fatal(msg string, fields Fields) { global.Fatal(msg, fields) }

type zapLogger struct {
	base *zap.Logger
}

func newZapLogger(dev bool, level zapcore.Level) Logger {
	var cfg zap.Config
	if dev {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "msg"
	cfg.EncoderConfig.LevelKey = "level"

	logger, _ := cfg.Build(zap.AddCallerSkip(1))
	return &zapLogger{base: logger}
}

func (l *zapLogger) Debug(msg string, fields Fields) { l.base.Debug(msg, zapFields(fields)...) }
func (l *zapLogger) Info(msg string, fields Fields)  { l.base.Info(msg, zapFields(fields)...) }
func (l *zapLogger) Warn(msg string, fields Fields)  { l.base.Warn(msg, zapFields(fields)...) }
func (l *zapLogger) Error(msg string, fields Fields) { l.base.Error(msg, zapFields(fields)...) }
func (l *zapLogger) Fatal(msg string, fields Fields) { l.base.Fatal(msg, zapFields(fields)...) }

func zapFields(m Fields) []zap.Field {
	fields := make([]zap.Field, 0, len(m))
	for k, v := range m {
		fields = append(fields, zap.Any(k, v))
	}
	return fields
}

type nopLogger struct{}

func (nopLogger) Debug(string, Fields) {}
func (nopLogger) Info(string, Fields)  {}
func (nopLogger) Warn(string, Fields)  {}
func (nopLogger) Error(string, Fields) {}
func (nopLogger) Fatal(string, Fields) {}

// NewNop returns a Logger that discards everything.
func NewNop() Logger {
	return nopLogger{}
}
