package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/zwavectl/internal/config"
	"github.com/danmuck/zwavectl/internal/driver"
	"github.com/danmuck/zwavectl/internal/nodestatus"
)

type runtimeConfig struct {
	Driver            driver.Config
	DeadAfterFailures int
	StatusListenAddr  string
	StatusCorsOrigins []string
}

func defaultRuntimeConfig() runtimeConfig {
	return runtimeConfig{
		Driver:            driver.DefaultConfig(),
		DeadAfterFailures: nodestatus.DefaultDeadAfter,
		StatusListenAddr:  config.DefaultStatusListenAddr,
		StatusCorsOrigins: []string{"http://localhost:3000"},
	}
}

// loadRuntimeConfig applies only the keys present in path over the defaults.
func loadRuntimeConfig(path string) (runtimeConfig, error) {
	cfg := defaultRuntimeConfig()

	var raw config.File
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return runtimeConfig{}, fmt.Errorf("load zwavectl config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return runtimeConfig{}, fmt.Errorf("load zwavectl config: unknown keys %v", undecoded)
	}

	tx := &cfg.Driver.Transaction
	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"read_timeout", raw.ReadTimeout, &cfg.Driver.ReadTimeout},
		{"frame_timeout", raw.FrameTimeout, &cfg.Driver.FrameTimeout},
		{"ack_timeout", raw.AckTimeout, &tx.AckTimeout},
		{"response_timeout", raw.ResponseTimeout, &tx.ResponseTimeout},
		{"callback_timeout", raw.CallbackTimeout, &tx.CallbackTimeout},
		{"retry_initial_delay", raw.RetryInitialDelay, &tx.Backoff.InitialDelay},
		{"retry_max_delay", raw.RetryMaxDelay, &tx.Backoff.MaxDelay},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key) {
			continue
		}
		v, err := config.ParseDuration(d.raw)
		if err != nil {
			return runtimeConfig{}, fmt.Errorf("parse %s: %w", d.key, err)
		}
		if v > 0 {
			*d.dst = v
		}
	}

	if meta.IsDefined("port") {
		if port := strings.TrimSpace(raw.Port); port != "" {
			cfg.Driver.Port = port
		}
	}
	if meta.IsDefined("baud") && raw.Baud > 0 {
		cfg.Driver.Baud = raw.Baud
	}
	if meta.IsDefined("max_send_attempts") && raw.MaxSendAttempts > 0 {
		tx.MaxSendAttempts = raw.MaxSendAttempts
	}
	if meta.IsDefined("tolerate_callback_function_mismatch") {
		tx.TolerateCallbackFunctionMismatch = raw.TolerateCallbackFunctionMismatch
	}
	if meta.IsDefined("dead_after_failures") && raw.DeadAfterFailures > 0 {
		cfg.DeadAfterFailures = raw.DeadAfterFailures
	}
	if meta.IsDefined("status_listen_addr") {
		cfg.StatusListenAddr = strings.TrimSpace(raw.StatusListenAddr)
	}
	if meta.IsDefined("status_cors_origins") {
		cfg.StatusCorsOrigins = normalizeOrigins(raw.StatusCorsOrigins)
	}
	return cfg, nil
}

func normalizeOrigins(in []string) []string {
	out := make([]string, 0, len(in))
	for _, origin := range in {
		v := strings.TrimSpace(origin)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
