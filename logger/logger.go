package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Log struct {
	Level       zapcore.Level `envconfig:"LOG_LEVEL" default:"info"`
	Development bool          `envconfig:"LOG_DEVELOPMENT"`
}

// NewLogger builds a zap logger for the named service. Output goes to stderr
// so it never interleaves with the interactive menu on stdout.
func NewLogger(cfg Log, name string) *zap.Logger {
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(cfg.Level)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}

	log, err := zc.Build()
	if err != nil {
		log = zap.NewNop()
	}
	return log.Named(name)
}
