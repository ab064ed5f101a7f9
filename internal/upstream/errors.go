package upstream

import "github.com/rawblock/substrate-graph-sleuth/internal/apierr"

// Error taxonomy exposed to upstream-client callers (spec.md §4.4).
// Each carries a user-facing message; the underlying cause is attached
// via apierr.Wrap for logging only.

func errRateLimited(cause error) *apierr.Error {
	return apierr.Wrap(apierr.CodeRateLimitedUpstream, "upstream indexer rate limit exceeded", cause)
}

func errAPIUnavailable(cause error) *apierr.Error {
	return apierr.Wrap(apierr.CodeAPIUnavailable, "upstream indexer API is unavailable", cause)
}

func errInvalidAddress(addr string) *apierr.Error {
	return apierr.New(apierr.CodeInvalidAddress, "address rejected by upstream indexer: "+addr)
}

func errNoData(cause error) *apierr.Error {
	return apierr.Wrap(apierr.CodeNoData, "upstream indexer returned no data", cause)
}

func errNetwork(cause error) *apierr.Error {
	return apierr.Wrap(apierr.CodeNetworkError, "network error contacting upstream indexer", cause)
}

func errAPIKeyInvalid(cause error) *apierr.Error {
	return apierr.Wrap(apierr.CodeAPIKeyInvalid, "upstream indexer rejected the API key", cause)
}

func errCircuitOpen() *apierr.Error {
	return apierr.New(apierr.CodeCircuitBreakerOpen, "upstream circuit breaker is open")
}

func errQueueOverflow() *apierr.Error {
	return apierr.New(apierr.CodeRateLimitedUpstream, "upstream request queue is over capacity and was shed")
}

func errQueueHoldTimeout() *apierr.Error {
	return apierr.New(apierr.CodeRateLimitedUpstream, "upstream request waited in queue past its hold timeout and was dropped")
}
