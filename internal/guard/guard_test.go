package guard_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/rawblock/substrate-graph-sleuth/internal/apierr"
	"github.com/rawblock/substrate-graph-sleuth/internal/guard"
)

func TestGuard_CollectsAllRows(t *testing.T) {
	g := guard.New(zerolog.Nop())
	rows, err := g.Run(context.Background(), guard.Options{QueryID: "q1"}, func(ctx context.Context, out chan<- guard.Row) error {
		out <- 1
		out <- 2
		out <- 3
		return nil
	})
	require.NoError(t, err)
	require.Len(t, rows, 3)
}

func TestGuard_RejectsConcurrentSameQueryID(t *testing.T) {
	g := guard.New(zerolog.Nop())
	started := make(chan struct{})
	release := make(chan struct{})

	go func() {
		_, _ = g.Run(context.Background(), guard.Options{QueryID: "dup"}, func(ctx context.Context, out chan<- guard.Row) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	_, err := g.Run(context.Background(), guard.Options{QueryID: "dup"}, func(ctx context.Context, out chan<- guard.Row) error {
		return nil
	})
	require.Error(t, err)
	apiErr, ok := err.(*apierr.Error)
	require.True(t, ok)
	require.Equal(t, apierr.CodeConcurrentQuery, apiErr.Code)

	close(release)
}

func TestGuard_AbortsOnRowLimit(t *testing.T) {
	g := guard.New(zerolog.Nop())
	_, err := g.Run(context.Background(), guard.Options{QueryID: "rows", MaxRows: 2}, func(ctx context.Context, out chan<- guard.Row) error {
		for i := 0; i < 10; i++ {
			select {
			case out <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})
	require.Error(t, err)
	apiErr, ok := err.(*apierr.Error)
	require.True(t, ok)
	require.Equal(t, apierr.CodeRowLimitExceeded, apiErr.Code)
}

func TestGuard_AbortsOnTimeout(t *testing.T) {
	g := guard.New(zerolog.Nop())
	_, err := g.Run(context.Background(), guard.Options{QueryID: "slow", Timeout: 10 * time.Millisecond}, func(ctx context.Context, out chan<- guard.Row) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.Error(t, err)
	apiErr, ok := err.(*apierr.Error)
	require.True(t, ok)
	require.Equal(t, apierr.CodeQueryTimeout, apiErr.Code)
}

func TestGuard_ReleasesSlotAfterCompletion(t *testing.T) {
	g := guard.New(zerolog.Nop())
	_, err := g.Run(context.Background(), guard.Options{QueryID: "reuse"}, func(ctx context.Context, out chan<- guard.Row) error {
		return nil
	})
	require.NoError(t, err)

	_, err = g.Run(context.Background(), guard.Options{QueryID: "reuse"}, func(ctx context.Context, out chan<- guard.Row) error {
		return nil
	})
	require.NoError(t, err, "slot must be released so the same query id can run again")
}
