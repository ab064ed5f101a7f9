package upstream

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TokenBucket admits outbound upstream calls at a bounded rate. Fixed
// capacity C, refill rate R tokens per period P. tryConsume atomically
// refills based on wall-clock elapsed periods, then decrements if ≥ n
// tokens remain.
//
// Invariants: the bucket never holds more than C tokens; over any
// window W much larger than P, the admitted rate is bounded by
// R*(W/P) + C.
type TokenBucket struct {
	mu       sync.Mutex
	capacity float64
	tokens   float64
	refill   float64 // tokens added per period
	period   time.Duration
	last     time.Time
	now      func() time.Time

	admissions *prometheus.CounterVec
}

// WithAdmissionRecorder attaches an "outcome"-labeled counter vec
// tracking every TryConsume/WaitAndConsume decision; nil is safe and
// simply disables recording.
func (b *TokenBucket) WithAdmissionRecorder(c *prometheus.CounterVec) *TokenBucket {
	b.admissions = c
	return b
}

func (b *TokenBucket) recordAdmission(outcome string) {
	if b.admissions == nil {
		return
	}
	b.admissions.WithLabelValues(outcome).Inc()
}

// NewTokenBucket constructs a bucket starting at full capacity.
func NewTokenBucket(capacity, refill int, period time.Duration) *TokenBucket {
	return &TokenBucket{
		capacity: float64(capacity),
		tokens:   float64(capacity),
		refill:   float64(refill),
		period:   period,
		last:     time.Now(),
		now:      time.Now,
	}
}

// refillLocked advances the bucket's clock and adds refill tokens in
// proportion to the time elapsed since the last refill, fractions of a
// period included. Caller must hold mu.
func (b *TokenBucket) refillLocked() {
	now := b.now()
	elapsed := now.Sub(b.last)
	if elapsed <= 0 || b.period <= 0 {
		return
	}
	periods := float64(elapsed) / float64(b.period)
	if periods <= 0 {
		return
	}
	b.tokens += periods * b.refill
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}
	b.last = now
}

// TryConsume attempts to remove n tokens. It reports success and, on
// failure, how long the caller would need to wait for n tokens to
// become available.
func (b *TokenBucket) TryConsume(n int) (ok bool, wait time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refillLocked()

	need := float64(n)
	if b.tokens >= need {
		b.tokens -= need
		b.recordAdmission("admitted")
		return true, 0
	}
	b.recordAdmission("throttled")

	deficit := need - b.tokens
	if b.refill <= 0 {
		return false, time.Duration(1<<62 - 1) // effectively unbounded
	}
	periodsNeeded := deficit / b.refill
	waitFor := time.Duration(periodsNeeded * float64(b.period))
	return false, waitFor
}

// WaitAndConsume blocks until n tokens are available (or ctx is
// cancelled), then consumes them. Recursion is bounded by the
// arithmetic of the period: each retry either succeeds or reports a
// strictly positive wait, which monotonically shrinks the deficit.
func (b *TokenBucket) WaitAndConsume(ctx Canceller, n int) bool {
	for {
		ok, wait := b.TryConsume(n)
		if ok {
			return true
		}
		if wait <= 0 {
			wait = time.Millisecond
		}
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
			continue
		case <-ctx.Done():
			timer.Stop()
			return false
		}
	}
}

// Canceller is the minimal subset of context.Context WaitAndConsume
// needs, so callers can pass a context.Context directly.
type Canceller interface {
	Done() <-chan struct{}
}
