package bridge

import (
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/native-bridge/config"
	"github.com/wippyai/native-bridge/display"
	"github.com/wippyai/native-bridge/errors"
	"github.com/wippyai/native-bridge/file"
	"github.com/wippyai/native-bridge/handle"
	"github.com/wippyai/native-bridge/serial"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// Logger returns the package logger. Defaults to no-op.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger configures the package logger.
func SetLogger(l *zap.Logger) {
	logger = l
}

// NewLogger builds a zap logger from the log section.
func NewLogger(c config.Log) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(c.Level)
	if err != nil {
		return nil, errors.New(errors.PhaseConfig, errors.KindInvalidArgument).
			Op("logger").
			Detail("log level %q", c.Level).
			Cause(err).
			Build()
	}
	zc := zap.NewProductionConfig()
	if c.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level
	return zc.Build()
}

// InstallLogger sets l as the logger of every bridge package.
func InstallLogger(l *zap.Logger) {
	SetLogger(l)
	handle.SetLogger(l.Named("handle"))
	file.SetLogger(l.Named("file"))
	serial.SetLogger(l.Named("serial"))
	display.SetLogger(l.Named("display"))
}
