package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/pii-sentinel/internal/bootstrap"
	"github.com/kirillkom/pii-sentinel/internal/config"
	"github.com/kirillkom/pii-sentinel/internal/observability/logging"
	"github.com/kirillkom/pii-sentinel/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("worker", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger, bootstrap.Recorders{})
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	watcher := app.NewJobWatcher(workerMetrics)

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("worker_metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker_subscribed", "subject", cfg.NATSSubmittedSubject)
	err = app.Queue.SubscribeUploadSubmitted(ctx, func(handlerCtx context.Context, jobID string) error {
		workerMetrics.StartWatch()
		defer workerMetrics.FinishWatch()

		job, err := watcher.Watch(handlerCtx, jobID)
		if err != nil {
			workerMetrics.RecordWatchError()
			return err
		}
		logger.Info("job_watch_finished", "job_id", job.ID, "status", job.Status, "batch_id", job.BatchID)
		return nil
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}
