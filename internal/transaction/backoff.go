package transaction

import (
	"math/rand"
	"time"
)

// Delay is the pause before retransmitting a frame that has already been
// sent `sent` times. It starts at InitialDelay, grows by Multiplier per
// transmission and stops at MaxDelay. Jitter spreads it over [d/2, 3d/2).
func (b BackoffConfig) Delay(sent int, rng *rand.Rand) time.Duration {
	d := b.InitialDelay
	if d <= 0 {
		return 0
	}
	growth := max(b.Multiplier, 1.0)
	for i := 1; i < sent; i++ {
		if b.MaxDelay > 0 && d >= b.MaxDelay {
			break
		}
		d = time.Duration(float64(d) * growth)
	}
	if b.MaxDelay > 0 {
		d = min(d, b.MaxDelay)
	}
	if !b.Jitter {
		return d
	}
	if rng == nil {
		return d / 2
	}
	return d/2 + time.Duration(rng.Int63n(int64(d)))
}
