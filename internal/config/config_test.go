package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"image-jobs/internal/config"
)

func TestMustLoadFromEnvDefaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("POLLER_MAX_ATTEMPTS", "5")
	t.Chdir(t.TempDir())

	cfg, err := config.MustLoad()
	if err != nil {
		t.Fatalf("MustLoad: %v", err)
	}

	if cfg.Server.Addr != "8080" || cfg.Worker.Concurrency != 4 {
		t.Fatalf("unexpected defaults: %+v", cfg.Server)
	}
	if cfg.Poller.Interval != 2*time.Second || cfg.Poller.MaxAttempts != 5 {
		t.Fatalf("poller = %+v", cfg.Poller)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Fatalf("brokers = %v", cfg.Kafka.Brokers)
	}
	if got := cfg.SingleShotStrategy().Attempts; got != 1 {
		t.Fatalf("single shot attempts = %d", got)
	}
	if got := cfg.DefaultRetryStrategy().Attempts; got != 3 {
		t.Fatalf("default attempts = %d", got)
	}
}

func TestMustLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  addr: "9090"
db:
  host: db.internal
  name: jobs
worker:
  concurrency: 8
poller:
  interval: 500ms
  max_attempts: 10
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv("CONFIG_PATH", path)
	t.Chdir(dir)

	cfg, err := config.MustLoad()
	if err != nil {
		t.Fatalf("MustLoad: %v", err)
	}
	if cfg.Server.Addr != "9090" || cfg.Worker.Concurrency != 8 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Poller.Interval != 500*time.Millisecond || cfg.Poller.MaxAttempts != 10 {
		t.Fatalf("poller = %+v", cfg.Poller)
	}
	want := "host=db.internal port=5432 user=postgres password=postgres dbname=jobs sslmode=disable"
	if cfg.DBDSN() != want {
		t.Fatalf("dsn = %q", cfg.DBDSN())
	}
}

func TestMustLoadMissingFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "absent.yaml"))
	t.Chdir(t.TempDir())

	if _, err := config.MustLoad(); err == nil {
		t.Fatalf("expected an error for a missing config file")
	}
}

func TestMustLoadRejectsBadConcurrency(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("WORKER_CONCURRENCY", "0")
	t.Chdir(t.TempDir())

	if _, err := config.MustLoad(); err == nil {
		t.Fatalf("expected a validation error")
	}
}
