package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rawblock/substrate-graph-sleuth/internal/apierr"
	"github.com/rs/zerolog"
)

const maxAttempts = 3

// Config configures the Client's connection to the upstream indexer.
type Config struct {
	Endpoint string
	APIKey   string
}

// Client composes the token bucket, circuit breaker, and priority queue
// into typed calls against the upstream indexer API. It is the single
// shared gateway for this process — the bucket and breaker are global
// per the spec.md §5 shared-resource model.
type Client struct {
	cfg     Config
	http    *http.Client
	bucket  *TokenBucket
	breaker *CircuitBreaker
	queue   *PriorityQueue
	log     zerolog.Logger

	work chan struct{} // signals the drain worker there is new work

	maxQueueDepth     int           // 0 = unbounded
	mediumHoldTimeout time.Duration // 0 = never dropped by hold timeout

	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// WithBackpressure configures the spec.md §5 backpressure policy:
// once the queue's total length exceeds maxDepth, the oldest
// LOW-priority items are shed; a MEDIUM-priority item still queued
// after mediumHoldTimeout is dropped the next time it's examined.
// HIGH and CRITICAL items are never shed by either policy. Zero
// either argument to disable that half of the policy.
func (c *Client) WithBackpressure(maxDepth int, mediumHoldTimeout time.Duration) *Client {
	c.maxQueueDepth = maxDepth
	c.mediumHoldTimeout = mediumHoldTimeout
	return c
}

// WithRequestRecorder attaches counters/histograms recording every
// upstream HTTP call by outcome and endpoint. Optional: an unset
// recorder is simply never observed.
func (c *Client) WithRequestRecorder(requests *prometheus.CounterVec, latency *prometheus.HistogramVec) *Client {
	c.requests = requests
	c.latency = latency
	return c
}

// job is one queued outbound call.
type job struct {
	priority   int
	ctx        context.Context
	execute    func(ctx context.Context) error
	done       chan struct{}
	enqueuedAt time.Time
	err        error // set by runJob or a backpressure drop before done closes
}

func (j *job) finish(err error) {
	j.err = err
	close(j.done)
}

// NewClient wires a bucket, breaker, and queue into a Client and starts
// its single drain worker.
func NewClient(cfg Config, bucket *TokenBucket, breaker *CircuitBreaker, log zerolog.Logger) *Client {
	c := &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: 10 * time.Second},
		bucket:  bucket,
		breaker: breaker,
		queue:   NewPriorityQueue(),
		log:     log,
		work:    make(chan struct{}, 1),
	}
	go c.drain()
	return c
}

// drain is the single worker that continuously pulls from the priority
// queue. The TryStartDraining guard prevents a second drain() from
// running concurrently if this is ever called more than once.
func (c *Client) drain() {
	if !c.queue.TryStartDraining() {
		return
	}
	defer c.queue.StopDraining()

	for range c.work {
		for {
			item, ok := c.queue.Next()
			if !ok {
				break
			}
			j := item.(*job)
			if j.priority == PriorityMedium && c.mediumHoldTimeout > 0 && time.Since(j.enqueuedAt) > c.mediumHoldTimeout {
				j.finish(errQueueHoldTimeout())
				continue
			}
			c.runJob(j)
		}
	}
}

func (c *Client) runJob(j *job) {
	ctx := j.ctx
	if ctx.Err() != nil {
		j.finish(ctx.Err())
		return
	}
	if !c.bucket.WaitAndConsume(ctx, 1) {
		j.finish(ctx.Err())
		return
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		lastErr = c.breaker.Call(func() error {
			return j.execute(ctx)
		})
		if lastErr == nil {
			j.finish(nil)
			return
		}
		if lastErr == ErrCircuitOpen {
			j.finish(lastErr)
			return
		}
		if !shouldRetry(lastErr) || attempt == maxAttempts-1 {
			j.finish(lastErr)
			return
		}
		backoff := retryDelay(attempt)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			j.finish(ctx.Err())
			return
		}
		if !c.bucket.WaitAndConsume(ctx, 1) {
			j.finish(ctx.Err())
			return
		}
	}
}

// retryDelay computes baseDelay * 2^attempt * (1 + U[0,0.3]) per
// spec.md §4.4.
func retryDelay(attempt int) time.Duration {
	const base = 200 * time.Millisecond
	mult := 1 << attempt
	jitter := 1.0 + rand.Float64()*0.3
	return time.Duration(float64(base) * float64(mult) * jitter)
}

func shouldRetry(err error) bool {
	apiErr, ok := err.(*apierr.Error)
	if !ok {
		return false
	}
	switch apiErr.Code {
	case apierr.CodeNetworkError, apierr.CodeAPIUnavailable, apierr.CodeRateLimitedUpstream:
		return true
	}
	return false
}

// submit enqueues a call at priority and blocks until it completes.
// The job runs under ctx: if ctx is cancelled before or during
// execution (including while waiting on the token bucket or between
// retries), runJob stops instead of completing the call regardless.
func (c *Client) submit(ctx context.Context, priority int, execute func(ctx context.Context) error) error {
	j := &job{
		priority:   priority,
		ctx:        ctx,
		execute:    execute,
		done:       make(chan struct{}),
		enqueuedAt: time.Now(),
	}
	c.queue.Add(j, priority)
	c.queue.DropExcessLow(c.maxQueueDepth, func(item interface{}) {
		item.(*job).finish(errQueueOverflow())
	})
	select {
	case c.work <- struct{}{}:
	default:
	}
	select {
	case <-j.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return j.err
}

func (c *Client) doRequest(ctx context.Context, endpoint, path string, query url.Values, out interface{}) error {
	start := time.Now()
	outcome := "error"
	defer func() {
		if c.requests != nil {
			c.requests.WithLabelValues(outcome).Inc()
		}
		if c.latency != nil {
			c.latency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
		}
	}()

	u := c.cfg.Endpoint + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return errNetwork(err)
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errNetwork(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errNetwork(err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return errAPIKeyInvalid(fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode == http.StatusTooManyRequests:
		return errRateLimited(fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode == http.StatusNotFound:
		return errNoData(fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode >= 500:
		return errAPIUnavailable(fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode >= 400:
		return errInvalidAddress(path)
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return errNoData(err)
		}
	}
	outcome = "success"
	return nil
}

// AccountResponse is the upstream shape for a single account lookup.
type AccountResponse struct {
	Address  string `json:"address"`
	Balance  string `json:"balance"`
	Identity *struct {
		Display    string `json:"display"`
		Verified   bool   `json:"verified"`
	} `json:"identity"`
	FirstSeenBlock int64 `json:"firstSeenBlock"`
	LastSeenBlock  int64 `json:"lastSeenBlock"`
}

// GetAccount fetches a single account at CRITICAL priority.
func (c *Client) GetAccount(ctx context.Context, addr string) (*AccountResponse, error) {
	var out AccountResponse
	err := c.submit(ctx, PriorityCritical, func(ctx context.Context) error {
		return c.doRequest(ctx, "account", "/accounts/"+addr, nil, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// TransferDirection filters a transfer page by direction.
type TransferDirection string

const (
	DirectionSent     TransferDirection = "sent"
	DirectionReceived TransferDirection = "received"
	DirectionBoth     TransferDirection = "both"
)

// TransferQuery parameters for GetTransfers.
type TransferQuery struct {
	Page          int
	Rows          int
	Direction     TransferDirection
	FromBlock     int64
	ToBlock       int64
}

// TransferResponse is one page of upstream transfers.
type TransferResponse struct {
	Transfers []struct {
		BlockNumber int64  `json:"blockNumber"`
		Timestamp   int64  `json:"timestamp"`
		From        string `json:"from"`
		To          string `json:"to"`
		Amount      string `json:"amount"`
		TxHash      string `json:"txHash"`
		EventIndex  int    `json:"eventIndex"`
	} `json:"transfers"`
	HasMore bool `json:"hasMore"`
}

// GetTransfers fetches a page of transfers for addr at HIGH priority.
func (c *Client) GetTransfers(ctx context.Context, addr string, q TransferQuery) (*TransferResponse, error) {
	values := url.Values{}
	values.Set("page", strconv.Itoa(q.Page))
	values.Set("rows", strconv.Itoa(q.Rows))
	values.Set("direction", string(q.Direction))
	if q.FromBlock > 0 {
		values.Set("fromBlock", strconv.FormatInt(q.FromBlock, 10))
	}
	if q.ToBlock > 0 {
		values.Set("toBlock", strconv.FormatInt(q.ToBlock, 10))
	}

	var out TransferResponse
	err := c.submit(ctx, PriorityHigh, func(ctx context.Context) error {
		return c.doRequest(ctx, "transfers", "/accounts/"+addr+"/transfers", values, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Relationship is a derived aggregate between a center address and a
// counterparty, sorted by total volume desc.
type Relationship struct {
	Counterparty string
	SentAmount   string
	ReceivedAmount string
	TotalVolume  float64 // used only for sort ordering; not serialized as-is
	TransferCount int
}

// GetRelationships derives aggregated counterparties from two bounded
// transfer scans (sent + received). It tolerates partial failure: if
// only one direction succeeds, it returns what's available rather than
// failing the whole call.
func (c *Client) GetRelationships(ctx context.Context, addr string, limit int) ([]Relationship, error) {
	sentResp, sentErr := c.GetTransfers(ctx, addr, TransferQuery{Page: 1, Rows: limit, Direction: DirectionSent})
	recvResp, recvErr := c.GetTransfers(ctx, addr, TransferQuery{Page: 1, Rows: limit, Direction: DirectionReceived})

	if sentErr != nil && recvErr != nil {
		return nil, sentErr
	}

	agg := make(map[string]*Relationship)
	get := func(cp string) *Relationship {
		r, ok := agg[cp]
		if !ok {
			r = &Relationship{Counterparty: cp}
			agg[cp] = r
		}
		return r
	}

	if sentResp != nil {
		for _, t := range sentResp.Transfers {
			r := get(t.To)
			r.TransferCount++
			amt, _ := strconv.ParseFloat(t.Amount, 64)
			r.TotalVolume += amt
		}
	}
	if recvResp != nil {
		for _, t := range recvResp.Transfers {
			r := get(t.From)
			r.TransferCount++
			amt, _ := strconv.ParseFloat(t.Amount, 64)
			r.TotalVolume += amt
		}
	}

	out := make([]Relationship, 0, len(agg))
	for _, r := range agg {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TotalVolume > out[j].TotalVolume })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
