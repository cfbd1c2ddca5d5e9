package sinks

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Zachkp/marathon-portfolio/internal/progress"
	"github.com/Zachkp/marathon-portfolio/internal/visitors"
)

// RunRepository persists completed scroll sessions.
type RunRepository interface {
	RecordRun(ctx context.Context, run visitors.Run) error
}

// StoreSink turns SESSION_END events into stored runs. Other stages are
// ignored; the end event carries everything a run needs.
type StoreSink struct {
	repo   RunRepository
	logger *zap.Logger
}

// NewStoreSink constructs a StoreSink for repo.
func NewStoreSink(repo RunRepository, logger *zap.Logger) *StoreSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StoreSink{repo: repo, logger: logger}
}

// Consume records one run per SESSION_END in the batch.
func (s *StoreSink) Consume(ctx context.Context, batch []progress.Event) error {
	if s == nil || s.repo == nil {
		return nil
	}
	for _, evt := range batch {
		if evt.Stage != progress.StageSessionEnd {
			continue
		}
		run := visitors.Run{
			SessionID:   evt.SessionID.String(),
			StartedAt:   evt.TS.Add(-evt.Elapsed),
			EndedAt:     evt.TS,
			FurthestPct: evt.ProgressPct,
			DistanceKm:  evt.DistanceKm,
			Finished:    evt.ProgressPct >= 100,
		}
		if err := s.repo.RecordRun(ctx, run); err != nil {
			return fmt.Errorf("record run %s: %w", run.SessionID, err)
		}
		s.logger.Debug("run recorded", zap.String("session_id", run.SessionID), zap.Bool("finished", run.Finished))
	}
	return nil
}

// Close is a no-op; the repository is owned by the caller.
func (s *StoreSink) Close(context.Context) error {
	return nil
}
