package config_test

import (
	"os"
	"testing"

	"github.com/harshithgowdakt/mtqueue/internal/config"
)

func TestLoadAppliesDefaultsAndEnvOverrides(t *testing.T) {
	os.Setenv("MTQUEUE_TABLE", "events")
	os.Setenv("MTQUEUE_REPLICA", "r1")
	os.Setenv("MTQUEUE_DATA_DIR", "/tmp/mtqueue-data")
	defer os.Unsetenv("MTQUEUE_TABLE")
	defer os.Unsetenv("MTQUEUE_REPLICA")
	defer os.Unsetenv("MTQUEUE_DATA_DIR")

	cfg, err := config.Load("MTQUEUE_")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Table != "events" {
		t.Fatalf("expected table events, got %q", cfg.Table)
	}
	if cfg.Replica != "r1" {
		t.Fatalf("expected replica r1, got %q", cfg.Replica)
	}
	if cfg.DataDir != "/tmp/mtqueue-data" {
		t.Fatalf("expected data dir override, got %q", cfg.DataDir)
	}
	if cfg.BatchSize != 100 {
		t.Fatalf("expected default batch size 100, got %d", cfg.BatchSize)
	}
	if len(cfg.ZKEnsemble) != 1 || cfg.ZKEnsemble[0] != "127.0.0.1:2181" {
		t.Fatalf("expected default zk ensemble, got %v", cfg.ZKEnsemble)
	}
}

func TestLoadRequiresTable(t *testing.T) {
	os.Setenv("MTQUEUE_REPLICA", "r1")
	os.Setenv("MTQUEUE_DATA_DIR", "/tmp/mtqueue-data")
	defer os.Unsetenv("MTQUEUE_REPLICA")
	defer os.Unsetenv("MTQUEUE_DATA_DIR")

	if _, err := config.Load("MTQUEUE_"); err == nil {
		t.Fatal("expected an error when table is not set")
	}
}
