// Package sinks implements race event consumers: structured logging,
// Prometheus collectors and the visitor store.
package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/Zachkp/marathon-portfolio/internal/progress"
)

// LogSink writes every race event as a structured log line.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each event in the batch.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		s.logger.Info("race event",
			zap.String("session_id", evt.SessionID.String()),
			zap.String("stage", string(evt.Stage)),
			zap.String("section", evt.Section),
			zap.Float64("progress_pct", evt.ProgressPct),
			zap.Float64("distance_km", evt.DistanceKm),
			zap.Float64("pace_min_per_km", evt.PaceMinPerKm),
			zap.Duration("elapsed", evt.Elapsed),
		)
	}
	return nil
}

// Close is a no-op.
func (s *LogSink) Close(context.Context) error {
	return nil
}
