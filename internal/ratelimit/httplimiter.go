// Package ratelimit holds the two distinct limiters this service runs:
// an ambient per-IP HTTP limiter guarding the whole API surface, and a
// per-caller cost-weighted sliding-window limiter guarding individual
// operations by their relative expense.
package ratelimit

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
)

const cleanupIdleDuration = 10 * time.Minute

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// HTTPLimiter is a per-IP token bucket built on golang.org/x/time/rate,
// guarding the whole API surface ahead of the cost-weighted per-caller
// limiter in cost.go.
type HTTPLimiter struct {
	mu         sync.Mutex
	limiters   map[string]*ipLimiter
	rps        rate.Limit
	burst      int
	rejections prometheus.Counter
}

// WithRejectionRecorder attaches a counter incremented once per
// rejected request. Optional: nil recorder is simply never incremented.
func (l *HTTPLimiter) WithRejectionRecorder(c prometheus.Counter) *HTTPLimiter {
	l.rejections = c
	return l
}

// NewHTTPLimiter allows ratePerMin requests per minute per IP, with the
// given burst capacity.
func NewHTTPLimiter(ratePerMin, burst int) *HTTPLimiter {
	l := &HTTPLimiter{
		limiters: make(map[string]*ipLimiter),
		rps:      rate.Limit(float64(ratePerMin) / 60.0),
		burst:    burst,
	}
	go l.cleanupLoop()
	return l
}

func (l *HTTPLimiter) allow(ip string) (bool, time.Duration) {
	l.mu.Lock()
	entry, ok := l.limiters[ip]
	if !ok {
		entry = &ipLimiter{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.limiters[ip] = entry
	}
	entry.lastSeen = time.Now()
	l.mu.Unlock()

	reservation := entry.limiter.Reserve()
	if !reservation.OK() {
		return false, 0
	}
	delay := reservation.Delay()
	if delay == 0 {
		return true, 0
	}
	reservation.Cancel()
	return false, delay
}

// Middleware returns a Gin handler enforcing the per-IP limit.
func (l *HTTPLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, retryAfter := l.allow(c.ClientIP())
		if !allowed {
			if l.rejections != nil {
				l.rejections.Inc()
			}
			c.Header("Retry-After", retryAfter.String())
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":      "RATE_LIMITED",
				"retryAfter": retryAfter.String(),
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

func (l *HTTPLimiter) cleanupLoop() {
	ticker := time.NewTicker(cleanupIdleDuration)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-cleanupIdleDuration)
		l.mu.Lock()
		for ip, entry := range l.limiters {
			if entry.lastSeen.Before(cutoff) {
				delete(l.limiters, ip)
			}
		}
		l.mu.Unlock()
	}
}
