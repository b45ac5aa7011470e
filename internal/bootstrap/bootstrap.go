package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/kirillkom/pii-sentinel/internal/config"
	"github.com/kirillkom/pii-sentinel/internal/core/analytics"
	"github.com/kirillkom/pii-sentinel/internal/core/ports"
	"github.com/kirillkom/pii-sentinel/internal/core/usecase"
	"github.com/kirillkom/pii-sentinel/internal/infrastructure/cache/redis"
	"github.com/kirillkom/pii-sentinel/internal/infrastructure/checkout"
	"github.com/kirillkom/pii-sentinel/internal/infrastructure/pdfmeta"
	"github.com/kirillkom/pii-sentinel/internal/infrastructure/queue/nats"
	"github.com/kirillkom/pii-sentinel/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/pii-sentinel/internal/infrastructure/resilience"
	"github.com/kirillkom/pii-sentinel/internal/infrastructure/sentinelapi"
	"github.com/kirillkom/pii-sentinel/internal/infrastructure/storage/localfs"
)

// Recorders are the metric sinks services report to. Nil fields disable
// recording.
type Recorders struct {
	Risk    ports.RiskRecorder
	Archive ports.ArchiveRecorder
}

type App struct {
	Config  config.Config
	Logger  *slog.Logger
	Weights analytics.WeightTable

	API   *sentinelapi.Client
	Queue *nats.Queue
	Jobs  *postgres.JobRepository

	Analysis *usecase.AnalysisService
	Uploads  *usecase.UploadService
	Archives *usecase.ArchiveService
	Exports  *usecase.ExportService
	Billing  *usecase.BillingService
	Sessions *usecase.SessionService

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger, recorders Recorders) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	weights, err := LoadWeights(cfg.RiskWeightsFile)
	if err != nil {
		return nil, err
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	jobs := postgres.NewJobRepository(db)
	billingRepo := postgres.NewBillingRepository(db)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	cache, err := redis.New(ctx, redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, nats.Subjects{
		Submitted: cfg.NATSSubmittedSubject,
		Completed: cfg.NATSCompletedSubject,
	}, nats.Options{
		ResilienceExecutor: resilience.NewExecutor(resilienceConfig(cfg, "nats", logger)),
		Logger:             logger,
	})
	if err != nil {
		_ = cache.Close()
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	api := NewUpstream(cfg, logger)
	gateway := checkout.New(cfg.CheckoutURL, cfg.CheckoutKeyID, cfg.CheckoutKeySecret,
		resilience.NewExecutor(resilienceConfig(cfg, "checkout", logger)))

	return &App{
		Config:  cfg,
		Logger:  logger,
		Weights: weights,

		API:   api,
		Queue: queue,
		Jobs:  jobs,

		Analysis: usecase.NewAnalysisService(api, weights, cfg.DetailPageSize, recorders.Risk),
		Uploads:  usecase.NewUploadService(api, jobs, queue, pdfmeta.New(), logger),
		Archives: usecase.NewArchiveService(api, storage, usecase.ArchiveOptions{
			Concurrency: cfg.ArchiveDownloadConcurrency,
			Recorder:    recorders.Archive,
			Logger:      logger,
		}),
		Exports:  usecase.NewExportService(api, storage),
		Billing:  usecase.NewBillingService(gateway, billingRepo, cache, usecase.BillingOptions{Logger: logger}),
		Sessions: usecase.NewSessionService(cache, cfg.SessionTTL, logger),

		closeFn: func() {
			queue.Close()
			_ = cache.Close()
			_ = db.Close()
		},
	}, nil
}

// NewJobWatcher builds the watcher the worker runs per submitted job.
func (a *App) NewJobWatcher(recorder ports.JobWatchRecorder) *usecase.JobWatchService {
	return usecase.NewJobWatchService(a.API, a.Jobs, a.Queue, usecase.JobWatchOptions{
		Interval: a.Config.JobPollInterval,
		Timeout:  a.Config.JobPollTimeout,
		Recorder: recorder,
		Logger:   a.Logger,
	})
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

// NewUpstream builds the detection API client. It needs no local
// infrastructure, so the CLI and MCP server use it directly.
func NewUpstream(cfg config.Config, logger *slog.Logger) *sentinelapi.Client {
	return sentinelapi.New(cfg.SentinelAPIURL, cfg.SentinelAPIKey, sentinelapi.Options{
		Executor: resilience.NewExecutor(resilienceConfig(cfg, "sentinelapi", logger)),
	})
}

// LoadWeights reads risk weight overrides from path. An empty path yields
// the built-in table.
func LoadWeights(path string) (analytics.WeightTable, error) {
	if path == "" {
		return analytics.DefaultWeights(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open risk weights: %w", err)
	}
	defer f.Close()
	weights, err := analytics.LoadWeights(f)
	if err != nil {
		return nil, fmt.Errorf("load risk weights %s: %w", path, err)
	}
	return weights, nil
}

func resilienceConfig(cfg config.Config, component string, logger *slog.Logger) resilience.Config {
	return resilience.ForComponent(component, cfg.UpstreamRetryMaxAttempts, cfg.UpstreamBreakerEnabled, logger)
}
