package talespin

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// ReconnectStrategy decides what happens after a transport handle closes. A strategy
// belongs to a single Session and may keep state across calls.
//
// uptime is how long the closed handle stayed open, zero if it never opened.
// Returning false stops the session for good.
type ReconnectStrategy interface {
	Next(uptime time.Duration) (delay time.Duration, retry bool)
}

type retryForever struct{}

func (retryForever) Next(time.Duration) (time.Duration, bool) { return 0, true }

// RetryForever reconnects immediately and never gives up.
func RetryForever() ReconnectStrategy { return retryForever{} }

// BackoffConfig tunes ExponentialBackoff.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
	// MaxAttempts stops reconnecting after that many consecutive failures. Zero means no limit.
	MaxAttempts int
	// HealthyUptime resets the failure count when a handle stayed open at least this long.
	HealthyUptime time.Duration
}

func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		InitialDelay:  500 * time.Millisecond,
		Multiplier:    2,
		MaxDelay:      30 * time.Second,
		Jitter:        true,
		HealthyUptime: 10 * time.Second,
	}
}

type exponentialBackoff struct {
	cfg BackoffConfig

	mu       sync.Mutex
	attempts int
	rng      *rand.Rand
}

// ExponentialBackoff waits InitialDelay*Multiplier^(attempt-1), capped at MaxDelay.
func ExponentialBackoff(cfg BackoffConfig) ReconnectStrategy {
	return &exponentialBackoff{
		cfg: cfg,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (b *exponentialBackoff) Next(uptime time.Duration) (time.Duration, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cfg.HealthyUptime > 0 && uptime >= b.cfg.HealthyUptime {
		// the connection was healthy and died of natural causes, try again asap
		b.attempts = 0
	}
	b.attempts++

	if b.cfg.MaxAttempts > 0 && b.attempts > b.cfg.MaxAttempts {
		return 0, false
	}
	return NextBackoffDelay(b.cfg, b.attempts, b.rng), true
}

// NextBackoffDelay returns the retry delay for attempt N (1-based).
func NextBackoffDelay(cfg BackoffConfig, attempt int, rng *rand.Rand) time.Duration {
	if cfg.InitialDelay <= 0 {
		return 0
	}
	if attempt < 1 {
		attempt = 1
	}
	if cfg.Multiplier < 1.0 {
		cfg.Multiplier = 1.0
	}

	delay := float64(cfg.InitialDelay) * math.Pow(cfg.Multiplier, float64(attempt-1))
	if cfg.MaxDelay > 0 && delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	if cfg.Jitter {
		f := 0.5
		if rng != nil {
			f = 0.5 + rng.Float64()
		}
		delay = delay * f
	}
	return time.Duration(delay)
}
