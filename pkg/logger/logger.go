package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var log *zap.SugaredLogger

// Init configures the process-wide logger. In development the output is
// colored console text; in production it is JSON. Must be called before
// any other function in this package.
func Init(environment string, debug bool) {
	var cfg zap.Config
	if environment == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		panic(err)
	}
	log = l.Sugar()
}

func get() *zap.SugaredLogger {
	if log == nil {
		// Fall back to a development logger so early call sites
		// (tests, init paths) never panic.
		l, _ := zap.NewDevelopment(zap.AddCallerSkip(1))
		log = l.Sugar()
	}
	return log
}

func Debug(msg string, keysAndValues ...any) {
	get().Debugw(msg, keysAndValues...)
}

func Info(msg string, keysAndValues ...any) {
	get().Infow(msg, keysAndValues...)
}

func Warn(msg string, keysAndValues ...any) {
	get().Warnw(msg, keysAndValues...)
}

func Error(msg string, err error, keysAndValues ...any) {
	if err != nil {
		keysAndValues = append(keysAndValues, "error", err)
	}
	get().Errorw(msg, keysAndValues...)
}

func Fatal(msg string, err error, keysAndValues ...any) {
	if err != nil {
		keysAndValues = append(keysAndValues, "error", err)
	}
	get().Fatalw(msg, keysAndValues...)
}

// Sync flushes buffered log entries. Safe to call on shutdown.
func Sync() {
	if log != nil {
		_ = log.Sync()
	}
}
