// Package logging wires zap into the surfaces that want observation: the
// CLI, the HTTP server and the join observer. The reconciliation core
// never logs on its own.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/My-Advanced-Machine-Learning-Project/urban-risk-lens/internal/join"
)

// New creates a zap logger for the requested level and format.
func New(level, format string) (*zap.Logger, error) {
	var cfg zap.Config
	if level == "debug" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	if format == "console" {
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		cfg.DisableStacktrace = true
	} else {
		cfg.Encoding = "json"
	}

	return cfg.Build()
}

// JoinObserver adapts a zap logger to the join.Observer interface, so
// join progress becomes structured log output the caller opted into.
type JoinObserver struct {
	log *zap.Logger
}

// NewJoinObserver wraps a logger as a join observer.
func NewJoinObserver(log *zap.Logger) *JoinObserver {
	return &JoinObserver{log: log}
}

// KeysResolved logs the column pairing the resolver selected.
func (o *JoinObserver) KeysResolved(res join.KeyResolution) {
	o.log.Info("join keys resolved",
		zap.String("tabular_key", res.TabularKey),
		zap.String("geometry_key", res.GeometryKey),
		zap.Int("sample_matches", res.MatchCount),
	)
}

// JoinCompleted logs the final join diagnostics.
func (o *JoinObserver) JoinCompleted(diag join.Diagnostics) {
	o.log.Info("join completed",
		zap.String("strategy", diag.Strategy.String()),
		zap.Int("matched", diag.Matched),
		zap.Int("missing", diag.Missing),
		zap.Int("total_features", diag.TotalFeatures),
		zap.Strings("sample_missing_keys", diag.SampleMissingKeys),
	)
}
