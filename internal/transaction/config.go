package transaction

import "time"

// BackoffConfig defines retry backoff behavior.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

// Config defines queue timing and retry limits.
type Config struct {
	// AckTimeout bounds the wait for ACK/NAK/CAN after each transmission.
	AckTimeout time.Duration
	// ResponseTimeout bounds the wait for the reply after the ACK.
	ResponseTimeout time.Duration
	// CallbackTimeout bounds the wait between callbacks.
	CallbackTimeout time.Duration
	// MaxSendAttempts counts transmissions, the first one included.
	MaxSendAttempts int
	Backoff         BackoffConfig
	// TolerateCallbackFunctionMismatch accepts callbacks that carry an
	// aliased function code when the callback id matches.
	TolerateCallbackFunctionMismatch bool
}

func DefaultConfig() Config {
	return Config{
		AckTimeout:      1600 * time.Millisecond,
		ResponseTimeout: 10 * time.Second,
		CallbackTimeout: 65 * time.Second,
		MaxSendAttempts: 3,
		Backoff: BackoffConfig{
			InitialDelay: 100 * time.Millisecond,
			Multiplier:   10.0,
			MaxDelay:     1100 * time.Millisecond,
		},
	}
}

// WithDefaults fills unset fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.AckTimeout <= 0 {
		c.AckTimeout = d.AckTimeout
	}
	if c.ResponseTimeout <= 0 {
		c.ResponseTimeout = d.ResponseTimeout
	}
	if c.CallbackTimeout <= 0 {
		c.CallbackTimeout = d.CallbackTimeout
	}
	if c.MaxSendAttempts <= 0 {
		c.MaxSendAttempts = d.MaxSendAttempts
	}
	if c.Backoff == (BackoffConfig{}) {
		c.Backoff = d.Backoff
	}
	return c
}
