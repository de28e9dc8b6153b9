package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"recap/internal/config"
	"recap/internal/extraction"
	"recap/internal/ingest"
	"recap/internal/logging"
	"recap/internal/notifications"
	"recap/internal/pricing"
	"recap/internal/processing"
	"recap/internal/queue"
	"recap/internal/services/chat"
	"recap/internal/services/transcribe"
	"recap/internal/storage"
	"recap/internal/summarization"
	"recap/internal/transcription"
	"recap/internal/workflow"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the processing daemon",
		Long:  "Run the queue-polling daemon that drives submitted recordings through the pipeline.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.Logging.Level = logLevel
			}
			return runDaemon(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override the configured log level")
	return cmd
}

func runDaemon(cmdCtx context.Context, cfg *config.Config) error {
	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	lock := flock.New(filepath.Join(cfg.Paths.LogDir, "recap.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire daemon lock: %w", err)
	}
	if !locked {
		return errors.New("another recap daemon instance is already running")
	}
	defer lock.Unlock()

	logger, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", filepath.Join(cfg.Paths.LogDir, "recap.log")},
	})
	if err != nil {
		return err
	}

	store, err := queue.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	objects, err := storage.NewStore(cfg)
	if err != nil {
		return err
	}

	manager := buildManager(cfg, store, objects, logger)
	if err := manager.Start(signalCtx); err != nil {
		return err
	}
	defer manager.Stop()

	metricsDone, err := serveMetrics(signalCtx, cfg, logger)
	if err != nil {
		return err
	}

	logger.Info("recap daemon started",
		logging.String("queue_db", store.Path()),
		logging.String("metrics_bind", cfg.Paths.MetricsBind))

	<-signalCtx.Done()
	logger.Info("recap daemon shutting down")
	if metricsDone != nil {
		<-metricsDone
	}
	return nil
}

// buildManager wires the stage handlers with caller-constructed provider
// clients.
func buildManager(cfg *config.Config, store *queue.Store, objects *storage.Store, logger *slog.Logger) *workflow.Manager {
	calc := pricing.NewCalculator(cfg.Pricing)

	transcribeClient := transcribe.NewClient(transcribe.Config{
		APIKey:         cfg.Providers.APIKey,
		BaseURL:        cfg.Providers.TranscribeBaseURL,
		Model:          cfg.Providers.TranscribeModel,
		TimeoutSeconds: cfg.Providers.RequestTimeout,
	})
	chatClient := chat.NewClient(chat.Config{
		APIKey:         cfg.Providers.APIKey,
		BaseURL:        cfg.Providers.ChatBaseURL,
		Model:          cfg.Providers.ChatModel,
		TimeoutSeconds: cfg.Providers.RequestTimeout,
	})

	transcriber := transcription.NewStage(transcribeClient, objects, calc, logger)
	summarizer := summarization.NewStage(chatClient, objects, calc, logger)

	stages := workflow.Stages(
		ingest.NewStage(cfg, objects, logger),
		extraction.NewStage(cfg, objects, logger),
		processing.NewStage(cfg, objects, transcriber, summarizer, logger),
	)
	return workflow.NewManager(cfg, store, objects, notifications.NewService(cfg), logger, stages...)
}

// serveMetrics exposes the Prometheus endpoint when a bind address is
// configured. The returned channel closes once the server has shut down.
func serveMetrics(ctx context.Context, cfg *config.Config, logger *slog.Logger) (<-chan struct{}, error) {
	bind := cfg.Paths.MetricsBind
	if bind == "" {
		return nil, nil
	}

	listener, err := net.Listen("tcp", bind)
	if err != nil {
		return nil, fmt.Errorf("bind metrics endpoint: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Handler: mux}

	done := make(chan struct{})
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", logging.Error(err))
		}
	}()
	go func() {
		defer close(done)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics endpoint listening", logging.String("addr", listener.Addr().String()))
	return done, nil
}
