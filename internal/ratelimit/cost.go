package ratelimit

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rawblock/substrate-graph-sleuth/internal/apierr"
)

// Operation costs (spec.md §4.7).
const (
	CostGraphQuery   = 50
	CostSearch       = 10
	CostAccountFetch = 5
	CostSave         = 20
)

type admission struct {
	cost      int
	timestamp time.Time
}

// CostLimiter enforces a per-caller sliding-window cost budget: each
// admission is charged its operation cost, and the sum of costs within
// the trailing window must not exceed the budget.
type CostLimiter struct {
	mu      sync.Mutex
	window  time.Duration
	budget  int
	callers map[string][]admission
	now     func() time.Time

	rejections prometheus.Counter
}

// WithRejectionRecorder attaches a counter incremented once per budget
// rejection. Optional: a nil *CostLimiter receiver never happens, and
// an unset recorder is simply never incremented.
func (l *CostLimiter) WithRejectionRecorder(c prometheus.Counter) *CostLimiter {
	l.rejections = c
	return l
}

// NewCostLimiter builds a limiter with the given window and budget.
// Defaults per spec.md §4.7: window=60s, budget=100.
func NewCostLimiter(window time.Duration, budget int) *CostLimiter {
	if window <= 0 {
		window = 60 * time.Second
	}
	if budget <= 0 {
		budget = 100
	}
	return &CostLimiter{
		window:  window,
		budget:  budget,
		callers: make(map[string][]admission),
		now:     time.Now,
	}
}

// Admit charges cost against caller's sliding window. On rejection it
// returns a CodeRateLimited error carrying limit/remaining/reset-at/
// retry-after details.
func (l *CostLimiter) Admit(caller string, cost int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	entries := l.callers[caller]
	kept := entries[:0]
	sum := 0
	for _, e := range entries {
		if e.timestamp.After(cutoff) {
			kept = append(kept, e)
			sum += e.cost
		}
	}

	if sum+cost > l.budget {
		resetAt := now
		if len(kept) > 0 {
			resetAt = kept[0].timestamp.Add(l.window)
		}
		retryAfter := resetAt.Sub(now)
		if retryAfter < 0 {
			retryAfter = 0
		}
		l.callers[caller] = kept
		if l.rejections != nil {
			l.rejections.Inc()
		}
		return apierr.New(apierr.CodeRateLimited, "cost budget exceeded for caller").
			WithDetails(map[string]interface{}{
				"limit":      l.budget,
				"remaining":  l.budget - sum,
				"reset_at":   resetAt,
				"retry_after": retryAfter.String(),
			})
	}

	kept = append(kept, admission{cost: cost, timestamp: now})
	l.callers[caller] = kept
	return nil
}
