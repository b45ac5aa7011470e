package bootstrap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kirillkom/pii-sentinel/internal/config"
	"github.com/kirillkom/pii-sentinel/internal/core/analytics"
)

func TestLoadWeightsEmptyPathUsesDefaults(t *testing.T) {
	weights, err := LoadWeights("")
	if err != nil {
		t.Fatalf("LoadWeights: %v", err)
	}
	defaults := analytics.DefaultWeights()
	if len(weights) != len(defaults) {
		t.Fatalf("expected %d default weights, got %d", len(defaults), len(weights))
	}
}

func TestLoadWeightsMergesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.yaml")
	if err := os.WriteFile(path, []byte("weights:\n  CUSTOM_ID: 7\n"), 0o644); err != nil {
		t.Fatalf("write weights: %v", err)
	}

	weights, err := LoadWeights(path)
	if err != nil {
		t.Fatalf("LoadWeights: %v", err)
	}
	if weights["CUSTOM_ID"] != 7 {
		t.Fatalf("expected override weight 7, got %d", weights["CUSTOM_ID"])
	}
}

func TestLoadWeightsMissingFile(t *testing.T) {
	if _, err := LoadWeights(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing weights file")
	}
}

func TestResilienceConfigFollowsSettings(t *testing.T) {
	rc := resilienceConfig(config.Config{UpstreamRetryMaxAttempts: 5, UpstreamBreakerEnabled: false}, "sentinelapi", nil)
	if rc.RetryMaxAttempts != 5 || rc.BreakerEnabled || rc.Component != "sentinelapi" {
		t.Fatalf("unexpected resilience config: %+v", rc)
	}
}
