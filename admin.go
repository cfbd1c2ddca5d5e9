package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Zachkp/marathon-portfolio/internal/config"
	"github.com/Zachkp/marathon-portfolio/internal/visitors"
)

const cleanupInterval = 24 * time.Hour

// openVisitors opens the analytics store and keeps it within the retention
// window: once at startup, then daily until ctx is done.
func openVisitors(ctx context.Context, cfg config.Config, logger *zap.Logger) (*visitors.Store, error) {
	store, err := visitors.Open(ctx, cfg.DB.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("open visitor store: %w", err)
	}
	if cfg.Tracking.Enabled {
		logger.Info("visitor tracking enabled with hashed IP addresses", zap.String("db", cfg.DB.Path))
	}
	logger.Info("admin access available", zap.String("path", "/admin/login"))

	go retainVisitors(ctx, store, cfg.DB.Retention, cleanupInterval, logger)
	return store, nil
}

func retainVisitors(ctx context.Context, store *visitors.Store, retention, every time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		if _, err := store.Cleanup(ctx, retention); err != nil && ctx.Err() == nil {
			logger.Warn("privacy cleanup", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
