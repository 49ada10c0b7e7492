// Package logging builds the process logger.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/parisxmas/oxisite/internal/gelf"
)

// New returns a production JSON logger at the given level. When gelfAddr is
// set, every entry is also shipped to that GELF UDP endpoint. The returned
// close func flushes the logger and releases the GELF socket.
func New(level, gelfAddr string) (*zap.Logger, func(), error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, nil, fmt.Errorf("logging: %w", err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	logger, err := cfg.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("logging: build: %w", err)
	}

	if gelfAddr == "" {
		return logger, func() { _ = logger.Sync() }, nil
	}

	w, err := gelf.New(gelfAddr, "oxisite")
	if err != nil {
		logger.Warn("gelf disabled", zap.String("addr", gelfAddr), zap.Error(err))
		return logger, func() { _ = logger.Sync() }, nil
	}
	gelfCore := zapcore.NewCore(zapcore.NewJSONEncoder(cfg.EncoderConfig), w, lvl)
	logger = logger.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, gelfCore)
	}))
	logger.Info("gelf logging enabled", zap.String("addr", gelfAddr))
	return logger, func() {
		_ = logger.Sync()
		_ = w.Close()
	}, nil
}
