package client

import (
	"context"
	"sync"
	"time"
)

// Throttle is a token bucket limiting how many requests per second leave the pipeline.
// A nil Throttle never blocks.
type Throttle struct {
	mu     sync.Mutex
	rate   float64 // requests per second
	burst  float64
	tokens float64
	last   time.Time
}

// NewThrottle returns a Throttle allowing rps requests per second, or nil when rps <= 0.
func NewThrottle(rps float64) *Throttle {
	if rps <= 0 {
		return nil
	}
	burst := rps
	if burst < 1 {
		burst = 1
	}
	return &Throttle{rate: rps, burst: burst, tokens: burst, last: time.Now()}
}

// Wait blocks until a request may be sent or ctx is done.
func (t *Throttle) Wait(ctx context.Context) error {
	if t == nil {
		return nil
	}
	for {
		t.mu.Lock()
		// Refill tokens
		now := time.Now()
		if elapsed := now.Sub(t.last).Seconds(); elapsed > 0 {
			t.tokens += elapsed * t.rate
			if t.tokens > t.burst {
				t.tokens = t.burst
			}
			t.last = now
		}
		if t.tokens >= 1 {
			t.tokens--
			t.mu.Unlock()
			return nil
		}
		wait := time.Duration((1 - t.tokens) / t.rate * float64(time.Second))
		t.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
