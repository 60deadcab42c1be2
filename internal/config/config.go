package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/danmuck/zwavectl/internal/driver"
	"github.com/danmuck/zwavectl/internal/nodestatus"
	"github.com/pelletier/go-toml/v2"
)

var ErrInvalidConfig = errors.New("config: invalid")

// File mirrors the zwavectl TOML file. Durations are Go duration strings.
type File struct {
	Port                             string   `toml:"port"`
	Baud                             int      `toml:"baud"`
	ReadTimeout                      string   `toml:"read_timeout"`
	FrameTimeout                     string   `toml:"frame_timeout"`
	AckTimeout                       string   `toml:"ack_timeout"`
	ResponseTimeout                  string   `toml:"response_timeout"`
	CallbackTimeout                  string   `toml:"callback_timeout"`
	MaxSendAttempts                  int      `toml:"max_send_attempts"`
	RetryInitialDelay                string   `toml:"retry_initial_delay"`
	RetryMaxDelay                    string   `toml:"retry_max_delay"`
	TolerateCallbackFunctionMismatch bool     `toml:"tolerate_callback_function_mismatch"`
	DeadAfterFailures                int      `toml:"dead_after_failures"`
	StatusListenAddr                 string   `toml:"status_listen_addr"`
	StatusCorsOrigins                []string `toml:"status_cors_origins"`
}

const DefaultStatusListenAddr = "127.0.0.1:9480"

// Defaults renders the built-in driver settings as a File.
func Defaults() File {
	d := driver.DefaultConfig()
	tx := d.Transaction
	return File{
		Port:                             d.Port,
		Baud:                             d.Baud,
		ReadTimeout:                      d.ReadTimeout.String(),
		FrameTimeout:                     d.FrameTimeout.String(),
		AckTimeout:                       tx.AckTimeout.String(),
		ResponseTimeout:                  tx.ResponseTimeout.String(),
		CallbackTimeout:                  tx.CallbackTimeout.String(),
		MaxSendAttempts:                  tx.MaxSendAttempts,
		RetryInitialDelay:                tx.Backoff.InitialDelay.String(),
		RetryMaxDelay:                    tx.Backoff.MaxDelay.String(),
		TolerateCallbackFunctionMismatch: tx.TolerateCallbackFunctionMismatch,
		DeadAfterFailures:                nodestatus.DefaultDeadAfter,
		StatusListenAddr:                 DefaultStatusListenAddr,
		StatusCorsOrigins:                []string{"http://localhost:3000"},
	}
}

// Load reads a complete config file and validates it.
func Load(path string) (File, error) {
	var cfg File
	if err := loadToml(path, &cfg); err != nil {
		return File{}, err
	}
	if err := Validate(cfg); err != nil {
		return File{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

// Validate checks fields that are set. Empty fields fall back to defaults
// when the file is applied.
func Validate(cfg File) error {
	for key, v := range map[string]string{
		"read_timeout":        cfg.ReadTimeout,
		"frame_timeout":       cfg.FrameTimeout,
		"ack_timeout":         cfg.AckTimeout,
		"response_timeout":    cfg.ResponseTimeout,
		"callback_timeout":    cfg.CallbackTimeout,
		"retry_initial_delay": cfg.RetryInitialDelay,
		"retry_max_delay":     cfg.RetryMaxDelay,
	} {
		if _, err := ParseDuration(v); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, key, err)
		}
	}
	if cfg.Baud < 0 {
		return fmt.Errorf("%w: baud must not be negative", ErrInvalidConfig)
	}
	if cfg.MaxSendAttempts < 0 {
		return fmt.Errorf("%w: max_send_attempts must not be negative", ErrInvalidConfig)
	}
	if cfg.DeadAfterFailures < 0 {
		return fmt.Errorf("%w: dead_after_failures must not be negative", ErrInvalidConfig)
	}
	return nil
}

// ParseDuration accepts an empty string as zero and rejects negatives.
func ParseDuration(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", v)
	}
	return d, nil
}
