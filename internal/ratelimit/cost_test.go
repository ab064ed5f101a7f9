package ratelimit_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rawblock/substrate-graph-sleuth/internal/apierr"
	"github.com/rawblock/substrate-graph-sleuth/internal/ratelimit"
)

func TestCostLimiter_AdmitsWithinBudget(t *testing.T) {
	l := ratelimit.NewCostLimiter(time.Minute, 100)
	require.NoError(t, l.Admit("caller-a", ratelimit.CostGraphQuery))
	require.NoError(t, l.Admit("caller-a", ratelimit.CostSearch))
}

func TestCostLimiter_RejectsOverBudget(t *testing.T) {
	l := ratelimit.NewCostLimiter(time.Minute, 60)
	require.NoError(t, l.Admit("caller-a", ratelimit.CostGraphQuery))

	err := l.Admit("caller-a", ratelimit.CostGraphQuery)
	require.Error(t, err)

	apiErr, ok := err.(*apierr.Error)
	require.True(t, ok)
	require.Equal(t, apierr.CodeRateLimited, apiErr.Code)
}

func TestCostLimiter_BudgetIsPerCaller(t *testing.T) {
	l := ratelimit.NewCostLimiter(time.Minute, 60)
	require.NoError(t, l.Admit("caller-a", ratelimit.CostGraphQuery))
	// A different caller has its own independent budget.
	require.NoError(t, l.Admit("caller-b", ratelimit.CostGraphQuery))
}
