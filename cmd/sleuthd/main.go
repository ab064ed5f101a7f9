// Command sleuthd runs the address-relationship analysis service: an
// HTTP/WebSocket API backed by an embedded SQLite store, a rate
// limited and circuit-broken upstream indexer client, and the graph
// assembly and pattern-analysis engines underneath it.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rawblock/substrate-graph-sleuth/internal/analysis"
	"github.com/rawblock/substrate-graph-sleuth/internal/api"
	"github.com/rawblock/substrate-graph-sleuth/internal/assembler"
	"github.com/rawblock/substrate-graph-sleuth/internal/config"
	"github.com/rawblock/substrate-graph-sleuth/internal/graphquery"
	"github.com/rawblock/substrate-graph-sleuth/internal/guard"
	"github.com/rawblock/substrate-graph-sleuth/internal/investigation"
	"github.com/rawblock/substrate-graph-sleuth/internal/logging"
	"github.com/rawblock/substrate-graph-sleuth/internal/ratelimit"
	"github.com/rawblock/substrate-graph-sleuth/internal/security"
	"github.com/rawblock/substrate-graph-sleuth/internal/store"
	"github.com/rawblock/substrate-graph-sleuth/internal/stream"
	"github.com/rawblock/substrate-graph-sleuth/internal/telemetry"
	"github.com/rawblock/substrate-graph-sleuth/internal/upstream"
	"go.uber.org/automaxprocs/maxprocs"
)

// pollBreakerState mirrors the upstream circuit breaker's state into
// the exported gauge and counts every transition into the open state
// as a trip, since CircuitBreaker itself has no subscriber hook.
func pollBreakerState(breaker *upstream.CircuitBreaker, telem *telemetry.Collectors) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	last := upstream.StateClosed
	for range ticker.C {
		state := breaker.State()
		telem.BreakerState.Set(float64(state))
		if state == upstream.StateOpen && last != upstream.StateOpen {
			telem.BreakerTrips.Inc()
		}
		last = state
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(cfg.LogLevel, os.Stdout)

	if _, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
		log.Info().Msgf(format, args...)
	})); err != nil {
		log.Warn().Err(err).Msg("failed to set GOMAXPROCS from cgroup limits")
	}

	db, err := store.Open(cfg.DatabasePath, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open store")
	}
	defer db.Close()

	telem := telemetry.New()

	var upstreamClient *upstream.Client
	var breaker *upstream.CircuitBreaker
	if !cfg.SkipUpstream && cfg.UpstreamEndpoint != "" {
		bucket := upstream.NewTokenBucket(cfg.BucketCapacity, cfg.BucketRefill, cfg.BucketPeriod).
			WithAdmissionRecorder(telem.BucketAdmissions)
		breaker = upstream.NewCircuitBreaker(cfg.BreakerFailureThreshold, cfg.BreakerRecoveryTimeout)
		upstreamClient = upstream.NewClient(upstream.Config{
			Endpoint: cfg.UpstreamEndpoint,
			APIKey:   cfg.UpstreamAPIKey,
		}, bucket, breaker, log).
			WithRequestRecorder(telem.UpstreamRequests, telem.UpstreamLatency).
			WithBackpressure(cfg.QueueMaxDepth, cfg.QueueMediumHoldTimeout)
		go pollBreakerState(breaker, telem)
	} else {
		log.Info().Msg("upstream fetch disabled: serving strictly from the local store")
	}

	costLimiter := ratelimit.NewCostLimiter(cfg.CostWindow, cfg.CostBudget).
		WithRejectionRecorder(telem.CostRejections)
	httpLimiter := ratelimit.NewHTTPLimiter(120, 20).
		WithRejectionRecorder(telem.HTTPRejections)
	queryGuard := guard.New(log).WithAbortRecorder(telem.GuardAborts).WithDurationRecorder(telem.GuardDuration)

	engine := graphquery.New(db)
	asm := assembler.New(db, costLimiter, queryGuard, upstreamClient, cfg.ComplexityCap, log)
	analyzer := analysis.NewAnalyzer(db, engine)
	invManager := investigation.NewManager(db.DB())
	anonymizer := security.NewAnonymizer(cfg.AnonymizationSalt)
	streamManager := stream.NewManager(log, security.AllowOrigin(cfg.AllowedOrigins)).
		WithSessionRecorder(telem.StreamSessions, telem.StreamSessionsTotal)

	router := api.Router(db, engine, asm, analyzer, invManager, streamManager, anonymizer,
		cfg.APIAuthToken, cfg.AllowedOrigins, httpLimiter, log)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("sleuthd listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
