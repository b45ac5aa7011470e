package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"

	mcpadapter "github.com/kirillkom/pii-sentinel/internal/adapters/mcp"
	"github.com/kirillkom/pii-sentinel/internal/bootstrap"
	"github.com/kirillkom/pii-sentinel/internal/config"
	"github.com/kirillkom/pii-sentinel/internal/core/usecase"
	"github.com/kirillkom/pii-sentinel/internal/observability/logging"
)

const version = "1.0.0"

func main() {
	cfg := config.Load()
	// stdout carries the protocol.
	logger := logging.NewJSONLoggerTo(os.Stderr, "mcp", cfg.LogLevel)
	slog.SetDefault(logger)

	weights, err := bootstrap.LoadWeights(cfg.RiskWeightsFile)
	if err != nil {
		log.Fatalf("risk weights error: %v", err)
	}

	analysis := usecase.NewAnalysisService(bootstrap.NewUpstream(cfg, logger), weights, cfg.DetailPageSize, nil)
	tools := mcpadapter.NewTools(analysis, usecase.NewSelection(analysis, weights))

	if err := server.ServeStdio(mcpadapter.NewServer(version, tools)); err != nil {
		log.Fatalf("mcp server error: %v", err)
	}
}
