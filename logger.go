package meaning

import (
	"go.uber.org/zap"
)

// LogLevel is the severity of a log message.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l LogLevel) zapLevel() zap.AtomicLevel {
	switch l {
	case LevelDebug:
		return zap.NewAtomicLevelAt(zap.DebugLevel)
	case LevelWarn:
		return zap.NewAtomicLevelAt(zap.WarnLevel)
	case LevelError:
		return zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		return zap.NewAtomicLevelAt(zap.InfoLevel)
	}
}

// Logger is the facade's logging dependency. Init's lifecycle
// transitions and rebuildIndex's per-entry skips (model mismatch,
// missing record, corrupt body) go through it, keyed by the dimension
// id and the object/value/node id involved so a rebuild's log line can
// be traced back to the record that caused it.
type Logger interface {
	Debug(msg string, keyvals ...any)
	Info(msg string, keyvals ...any)
	Warn(msg string, keyvals ...any)
	Error(msg string, keyvals ...any)
	With(keyvals ...any) Logger
}

// zapLogger adapts a zap.SugaredLogger's Xw(msg, keysAndValues...)
// methods to Logger, so Facade doesn't depend on zap's types directly.
type zapLogger struct {
	s *zap.SugaredLogger
}

// NewLogger returns a Logger backed by zap's production encoder
// (JSON output, epoch-seconds timestamps), logging at or above minLevel.
func NewLogger(minLevel LogLevel) (Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = minLevel.zapLevel()
	base, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &zapLogger{s: base.Sugar()}, nil
}

// NewStdLogger returns a Logger backed by zap's development encoder
// (human-readable console output), logging at or above minLevel. It
// never fails to build, making it convenient for tests and the CLI.
func NewStdLogger(minLevel LogLevel) Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = minLevel.zapLevel()
	base, err := cfg.Build()
	if err != nil {
		// zap's development config is static and known-good; this
		// path only exists to satisfy the constructor's error-free
		// contract.
		base = zap.NewExample()
	}
	return &zapLogger{s: base.Sugar()}
}

func (l *zapLogger) Debug(msg string, keyvals ...any) { l.s.Debugw(msg, keyvals...) }
func (l *zapLogger) Info(msg string, keyvals ...any)  { l.s.Infow(msg, keyvals...) }
func (l *zapLogger) Warn(msg string, keyvals ...any)  { l.s.Warnw(msg, keyvals...) }
func (l *zapLogger) Error(msg string, keyvals ...any) { l.s.Errorw(msg, keyvals...) }

func (l *zapLogger) With(keyvals ...any) Logger {
	return &zapLogger{s: l.s.With(keyvals...)}
}

type nopLogger struct{}

func (nopLogger) Debug(msg string, keyvals ...any) {}
func (nopLogger) Info(msg string, keyvals ...any)  {}
func (nopLogger) Warn(msg string, keyvals ...any)  {}
func (nopLogger) Error(msg string, keyvals ...any) {}
func (n nopLogger) With(keyvals ...any) Logger      { return n }

// NopLogger discards everything. It is the facade's default when no
// Logger is supplied.
func NopLogger() Logger {
	return nopLogger{}
}
