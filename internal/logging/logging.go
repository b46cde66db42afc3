// Package logging bootstraps the zap logger every node shares, following
// the teacher's stock/main.go pattern (zap.NewProduction + ReplaceGlobals)
// generalized to all three node kinds and to a configurable level.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production-style JSON logger tagged with the node's kind and
// identity, and installs it as zap's global logger so library code that
// reaches for zap.L() gets it too.
func New(nodeKind, nodeID, level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("logging: build zap logger: %w", err)
	}
	logger = logger.With(
		zap.String("node_kind", nodeKind),
		zap.String("node_id", nodeID),
	)
	zap.ReplaceGlobals(logger)
	return logger, nil
}
