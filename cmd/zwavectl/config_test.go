package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danmuck/zwavectl/internal/driver"
	"github.com/danmuck/zwavectl/internal/testutil/testlog"
)

func TestLoadRuntimeConfigDefaultsAndOverrides(t *testing.T) {
	testlog.Start(t)
	cfg, err := loadRuntimeConfig("ex.config.toml")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	defaults := driver.DefaultConfig()

	if cfg.Driver.Port != "tcp://127.0.0.1:7001" {
		t.Fatalf("unexpected port: %q", cfg.Driver.Port)
	}
	if cfg.Driver.Baud != defaults.Baud {
		t.Fatalf("baud got=%d want default %d", cfg.Driver.Baud, defaults.Baud)
	}
	if cfg.Driver.FrameTimeout != 2*time.Second {
		t.Fatalf("unexpected frame timeout: %v", cfg.Driver.FrameTimeout)
	}
	tx := cfg.Driver.Transaction
	if tx.AckTimeout != time.Second || tx.ResponseTimeout != defaults.Transaction.ResponseTimeout {
		t.Fatalf("unexpected timeouts: %+v", tx)
	}
	if tx.MaxSendAttempts != 5 || tx.Backoff.InitialDelay != 250*time.Millisecond {
		t.Fatalf("unexpected retry settings: %+v", tx)
	}
	if tx.Backoff.MaxDelay != defaults.Transaction.Backoff.MaxDelay {
		t.Fatalf("max delay got=%v want default", tx.Backoff.MaxDelay)
	}
	if !tx.TolerateCallbackFunctionMismatch {
		t.Fatalf("expected alias tolerance enabled")
	}
	if cfg.DeadAfterFailures != 4 || cfg.StatusListenAddr != "127.0.0.1:9481" {
		t.Fatalf("unexpected status settings: %+v", cfg)
	}
	if len(cfg.StatusCorsOrigins) != 1 || cfg.StatusCorsOrigins[0] != "http://localhost:5173" {
		t.Fatalf("unexpected cors origins: %v", cfg.StatusCorsOrigins)
	}
}

func TestLoadRuntimeConfigRejectsUnknownKeysAndBadDurations(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	cases := map[string]string{
		"unknown":  "prot = \"/dev/ttyUSB0\"\n",
		"duration": "ack_timeout = \"fast\"\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".toml")
			if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
				t.Fatalf("write: %v", err)
			}
			if _, err := loadRuntimeConfig(path); err == nil {
				t.Fatalf("expected error for %q", body)
			}
		})
	}
}
