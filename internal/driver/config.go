package driver

import (
	"time"

	"github.com/danmuck/zwavectl/internal/serialport"
	"github.com/danmuck/zwavectl/internal/transaction"
)

// Config defines the controller link and the transaction queue settings.
type Config struct {
	Port        string
	Baud        int
	ReadTimeout time.Duration
	// FrameTimeout drops a partial data frame that saw no bytes for this long.
	FrameTimeout time.Duration
	Transaction  transaction.Config
}

func DefaultConfig() Config {
	return Config{
		Port:         "/dev/ttyACM0",
		Baud:         serialport.DefaultBaud,
		ReadTimeout:  serialport.DefaultReadTimeout,
		FrameTimeout: 1500 * time.Millisecond,
		Transaction:  transaction.DefaultConfig(),
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Baud <= 0 {
		c.Baud = d.Baud
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = d.ReadTimeout
	}
	if c.FrameTimeout <= 0 {
		c.FrameTimeout = d.FrameTimeout
	}
	c.Transaction = c.Transaction.WithDefaults()
	return c
}
