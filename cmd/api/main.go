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

	httpadapter "github.com/kirillkom/pii-sentinel/internal/adapters/http"
	"github.com/kirillkom/pii-sentinel/internal/bootstrap"
	"github.com/kirillkom/pii-sentinel/internal/config"
	"github.com/kirillkom/pii-sentinel/internal/observability/logging"
	"github.com/kirillkom/pii-sentinel/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("api", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpMetrics := metrics.NewHTTPServerMetrics("api")
	app, err := bootstrap.New(ctx, cfg, logger, bootstrap.Recorders{
		Risk:    httpMetrics,
		Archive: httpMetrics,
	})
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	router, err := httpadapter.NewRouter(httpadapter.Services{
		Batches:  app.Analysis,
		Analysis: app.Analysis,
		Uploads:  app.Uploads,
		Jobs:     app.Uploads,
		Archives: app.Archives,
		Exports:  app.Exports,
		Billing:  app.Billing,
		Sessions: app.Sessions,
	}, httpadapter.Options{
		JWTSecret:        cfg.JWTSecret,
		RateLimitRPS:     cfg.APIRateLimitRPS,
		RateLimitBurst:   cfg.APIRateLimitBurst,
		MaxInFlight:      cfg.APIMaxInFlight,
		BackpressureWait: cfg.APIBackpressure,
		MaxUploadBytes:   cfg.MaxUploadBytes,
		CheckoutKeyID:    cfg.CheckoutKeyID,
		Observer:         httpMetrics,
	}).Handler()
	if err != nil {
		log.Fatalf("router error: %v", err)
	}

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("api_listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("api server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("api shutdown error: %v", err)
	}
}
