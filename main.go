package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Zachkp/marathon-portfolio/internal/config"
	"github.com/Zachkp/marathon-portfolio/internal/contact"
	"github.com/Zachkp/marathon-portfolio/internal/content"
	"github.com/Zachkp/marathon-portfolio/internal/logging"
	"github.com/Zachkp/marathon-portfolio/internal/metrics"
	"github.com/Zachkp/marathon-portfolio/internal/progress"
	"github.com/Zachkp/marathon-portfolio/internal/progress/sinks"
	"github.com/Zachkp/marathon-portfolio/internal/web"
	"github.com/Zachkp/marathon-portfolio/internal/ws"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:   "portfolio",
		Short: "Marathon-themed portfolio server",
		Long: `portfolio serves a single-page portfolio whose navigation tracks the
reader's scroll position as progress along a marathon course.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cfgFile)
		},
	}
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	cmd.AddCommand(newServeCmd(&cfgFile), newReplayCmd(&cfgFile))
	return cmd
}

func newServeCmd(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server (default)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), *cfgFile)
		},
	}
}

func runServe(ctx context.Context, cfgFile string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	gin.SetMode(cfg.Server.Mode)
	metrics.Init()
	course, err := cfg.Track()
	if err != nil {
		return err
	}

	portfolio, err := loadContent(ctx, cfg, logger)
	if err != nil {
		return err
	}

	store, err := openVisitors(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	events, err := newEventHub(cfg, store, logger)
	if err != nil {
		return err
	}

	live := ws.New(course, ws.Options{Frame: cfg.Scroll.Frame, Emitter: events, Logger: logger})
	router, err := web.NewRouter(web.Deps{
		Course:        course,
		Content:       portfolio,
		Contact:       contact.NewSMTPSender(contact.SMTPConfig(cfg.SMTP), logger),
		Visitors:      store,
		Live:          live,
		Logger:        logger,
		Mode:          cfg.Server.Mode,
		AdminUsername: cfg.Admin.Username,
		AdminPassword: cfg.Admin.Password,
		Tracking:      cfg.Tracking.Enabled,
		Retention:     cfg.DB.Retention,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("portfolio listening", zap.String("addr", srv.Addr), zap.String("mode", cfg.Server.Mode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	// Hijacked WebSocket connections outlive Shutdown; close them so every
	// session ends before the event hub drains.
	if err := live.Shutdown(shutdownCtx); err != nil {
		logger.Warn("live views", zap.Error(err))
	}
	if err := events.Close(shutdownCtx); err != nil {
		logger.Warn("race event hub", zap.Error(err))
	}
	logger.Info("stopped")
	return nil
}

// newEventHub fans race events out to metrics, the run store and optionally
// the log.
func newEventHub(cfg config.Config, runs sinks.RunRepository, logger *zap.Logger) (*progress.Hub, error) {
	promSink, err := sinks.NewPrometheusSink(nil)
	if err != nil {
		return nil, err
	}
	list := []progress.Sink{promSink, sinks.NewStoreSink(runs, logger)}
	if cfg.Events.LogEvents {
		list = append(list, sinks.NewLogSink(logger))
	}
	return progress.NewHub(progress.Config{
		BufferSize:     cfg.Events.BufferSize,
		MaxBatchEvents: cfg.Events.MaxBatchEvents,
		MaxBatchWait:   cfg.Events.MaxBatchWait,
		Logger:         logger,
	}, list...), nil
}

// loadContent returns the portfolio store, reading and watching the
// configured file when there is one.
func loadContent(ctx context.Context, cfg config.Config, logger *zap.Logger) (*content.Store, error) {
	if cfg.Content.Path == "" {
		return content.NewStore(content.Default()), nil
	}
	p, err := content.Load(cfg.Content.Path)
	if err != nil {
		return nil, err
	}
	store := content.NewStore(p)
	if cfg.Content.Watch {
		go func() {
			if err := content.Watch(ctx, cfg.Content.Path, logger, store.Set); err != nil {
				logger.Error("content watch stopped", zap.Error(err))
			}
		}()
	}
	return store, nil
}
