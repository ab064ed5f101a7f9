// Package guard implements the recursive-query guard: it wraps a
// streaming result producer with unique-in-flight tracking, a timeout,
// a row cap, and a process memory-delta cap, always releasing its slot
// on exit.
package guard

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rawblock/substrate-graph-sleuth/internal/apierr"
	"github.com/rs/zerolog"
)

const (
	DefaultTimeout     = 5 * time.Second
	DefaultMaxRows     = 10_000
	DefaultMaxMemoryMB = 100
)

// Options configures one guarded invocation. Zero values fall back to
// the defaults above.
type Options struct {
	QueryID       string
	Timeout       time.Duration
	MaxRows       int
	MaxMemoryMiB  int64
}

// Row is emitted by a Producer for each record it streams out.
type Row = interface{}

// Producer streams rows to out, respecting ctx cancellation. It returns
// when the underlying read completes or ctx is cancelled.
type Producer func(ctx context.Context, out chan<- Row) error

// Guard tracks in-flight query ids so a caller can never run the same
// recursive query twice concurrently.
type Guard struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
	log      zerolog.Logger
	aborts   *prometheus.CounterVec
	duration prometheus.Histogram
}

// New builds a Guard.
func New(log zerolog.Logger) *Guard {
	return &Guard{inFlight: make(map[string]struct{}), log: log}
}

// WithAbortRecorder attaches a "reason"-labeled counter vec for abort
// observability; nil is safe and simply disables recording.
func (g *Guard) WithAbortRecorder(c *prometheus.CounterVec) *Guard {
	g.aborts = c
	return g
}

// WithDurationRecorder attaches a histogram observing every Run's wall
// time regardless of outcome; nil is safe and simply disables recording.
func (g *Guard) WithDurationRecorder(h prometheus.Histogram) *Guard {
	g.duration = h
	return g
}

func (g *Guard) recordAbort(reason string) {
	if g.aborts == nil {
		return
	}
	g.aborts.WithLabelValues(reason).Inc()
}

func (g *Guard) acquire(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.inFlight[id]; ok {
		return false
	}
	g.inFlight[id] = struct{}{}
	return true
}

func (g *Guard) release(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.inFlight, id)
}

// Run executes producer under the guard's limits, returning the
// collected rows or a typed error naming which limit tripped. The slot
// for opts.QueryID is always released before Run returns, including on
// panic recovery inside the producer goroutine.
func (g *Guard) Run(ctx context.Context, opts Options, producer Producer) (rows []Row, err error) {
	start := time.Now()
	if g.duration != nil {
		defer func() { g.duration.Observe(time.Since(start).Seconds()) }()
	}

	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxRows <= 0 {
		opts.MaxRows = DefaultMaxRows
	}
	if opts.MaxMemoryMiB <= 0 {
		opts.MaxMemoryMiB = DefaultMaxMemoryMB
	}

	if !g.acquire(opts.QueryID) {
		g.recordAbort("concurrent")
		return nil, apierr.New(apierr.CodeConcurrentQuery, "query id already in flight: "+opts.QueryID)
	}
	defer g.release(opts.QueryID)

	var startMem runtime.MemStats
	runtime.ReadMemStats(&startMem)

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	out := make(chan Row, 256)
	producerErr := make(chan error, 1)
	go func() {
		defer close(out)
		defer func() {
			if r := recover(); r != nil {
				producerErr <- apierr.New(apierr.CodeInternalError, fmt.Sprintf("query producer panicked: %v", r))
			}
		}()
		producerErr <- producer(ctx, out)
	}()

	memCheckTicker := time.NewTicker(500 * time.Millisecond)
	defer memCheckTicker.Stop()

	collected := make([]Row, 0, 256)
	for {
		select {
		case row, ok := <-out:
			if !ok {
				if perr := <-producerErr; perr != nil && perr != context.Canceled {
					return collected, perr
				}
				return collected, nil
			}
			collected = append(collected, row)
			if len(collected) > opts.MaxRows {
				cancel()
				g.recordAbort("row_limit")
				g.log.Warn().Str("query_id", opts.QueryID).Int("rows", len(collected)).Msg("recursive query aborted: row cap exceeded")
				return collected, apierr.New(apierr.CodeRowLimitExceeded, "query exceeded maximum row count")
			}

		case <-memCheckTicker.C:
			var cur runtime.MemStats
			runtime.ReadMemStats(&cur)
			deltaMiB := (int64(cur.Alloc) - int64(startMem.Alloc)) / (1024 * 1024)
			if deltaMiB > opts.MaxMemoryMiB {
				cancel()
				g.recordAbort("memory_limit")
				g.log.Warn().Str("query_id", opts.QueryID).Int64("delta_mib", deltaMiB).Msg("recursive query aborted: memory cap exceeded")
				return collected, apierr.New(apierr.CodeMemoryLimitExceeded, "query exceeded maximum memory delta")
			}

		case <-ctx.Done():
			g.recordAbort("timeout")
			g.log.Warn().Str("query_id", opts.QueryID).Msg("recursive query aborted: timeout")
			return collected, apierr.New(apierr.CodeQueryTimeout, "query timed out")
		}
	}
}
