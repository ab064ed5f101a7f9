package analysis

import (
	"context"
	"math/big"
	"sort"

	"github.com/rawblock/substrate-graph-sleuth/internal/graphquery"
	"github.com/rawblock/substrate-graph-sleuth/internal/store"
	"github.com/rawblock/substrate-graph-sleuth/pkg/models"
)

// Analyzer ties the graph-pattern detectors and centrality metrics to
// the store, so handlers need only the center address.
type Analyzer struct {
	store *store.Store
	query *graphquery.Engine
}

func NewAnalyzer(s *store.Store, q *graphquery.Engine) *Analyzer {
	return &Analyzer{store: s, query: q}
}

// DefaultRapidSequentialWindowSeconds is the co-occurrence window
// spec.md §4.11 uses to flag rapid sequential transfers out of one
// address when the caller doesn't supply timeWindow.
const DefaultRapidSequentialWindowSeconds = 300

// defaultRoundNumberThreshold is the round-number fraction threshold
// (spec.md §4.11) used when the caller doesn't supply sensitivity.
const defaultRoundNumberThreshold = 0.3

// sensitivityToThreshold maps the caller's 0-100 sensitivity dial (spec.md
// §6's patterns endpoint) onto the round-number fraction threshold: higher
// sensitivity lowers the threshold, flagging more addresses. 0 (unset)
// keeps defaultRoundNumberThreshold.
func sensitivityToThreshold(sensitivity int) float64 {
	if sensitivity <= 0 {
		return defaultRoundNumberThreshold
	}
	threshold := 1.0 - float64(sensitivity)/100.0
	switch {
	case threshold < 0.05:
		return 0.05
	case threshold > 0.95:
		return 0.95
	default:
		return threshold
	}
}

// Patterns runs every detector over center's local transaction history
// and synthesizes a single risk assessment. maxDepth bounds the
// circular-flow DFS (spec.md §4.11); timeWindowSeconds and sensitivity
// tune the rapid-sequential and round-number detectors respectively
// (spec.md §6's timeWindow/sensitivity query parameters).
func (a *Analyzer) Patterns(ctx context.Context, center string, maxDepth int, timeWindowSeconds int64, sensitivity int) (models.RiskAssessment, error) {
	var patterns []models.Pattern

	if timeWindowSeconds <= 0 {
		timeWindowSeconds = DefaultRapidSequentialWindowSeconds
	}

	cycles, err := a.query.CircularFlows(ctx, center, big.NewInt(0), maxDepth)
	if err != nil {
		return models.RiskAssessment{}, err
	}
	patterns = append(patterns, CirclesToPatterns(cycles, maxDepth)...)

	transfers, err := a.store.TransfersForAddress(ctx, center, "sent", 1000, 0)
	if err != nil {
		return models.RiskAssessment{}, err
	}
	events := toTransferEvents(transfers)

	if p := DetectRapidSequential(center, events, timeWindowSeconds); p != nil {
		patterns = append(patterns, *p)
	}
	if p := DetectRoundNumber(center, events, sensitivityToThreshold(sensitivity)); p != nil {
		patterns = append(patterns, *p)
	}

	return AssessRisk(patterns), nil
}

func toTransferEvents(transfers []models.Transfer) []TransferEvent {
	events := make([]TransferEvent, 0, len(transfers))
	for _, t := range transfers {
		amount, ok := new(big.Int).SetString(t.Amount, 10)
		if !ok {
			amount = big.NewInt(0)
		}
		events = append(events, TransferEvent{
			BlockTime:   t.BlockTime.Unix(),
			FromAddress: t.FromAddress,
			ToAddress:   t.ToAddress,
			Amount:      amount,
		})
	}
	return events
}

// Ranked is one address's position within a centrality bundle.
type Ranked struct {
	Address    string  `json:"address"`
	Score      float64 `json:"score"`
	Influence  string  `json:"influence"` // low/medium/high
}

// MetricsReport is the response shape for the per-address metrics
// endpoint (spec.md §6): the raw centrality bundle plus a ranked,
// classified view of the addresses present in the local snapshot.
type MetricsReport struct {
	Bundle  CentralityBundle `json:"bundle"`
	Ranking []Ranked         `json:"ranking"`
}

// Metrics computes the full centrality bundle over center's direct
// graph neighborhood and ranks every node by a combined score of
// degree, betweenness, and PageRank.
func (a *Analyzer) Metrics(ctx context.Context, center string, maxNodes int) (MetricsReport, error) {
	result, err := a.query.Direct(ctx, center, big.NewInt(0), maxNodes)
	if err != nil {
		return MetricsReport{}, err
	}

	nodes := result.Nodes

	degree := DegreeCentrality(nodes, result.Edges)
	betweenness := Betweenness(nodes, result.Edges)
	pagerank := PageRank(nodes, result.Edges, 20, 0.85)
	closeness := Closeness(nodes, result.Edges)

	bundle := CentralityBundle{
		Degree:      degree[center],
		Betweenness: betweenness[center],
		PageRank:    pagerank[center],
		Closeness:   closeness[center],
		Scope:       ApproximationBound,
		Approximate: true,
	}

	ranking := rankNodes(nodes, degree, betweenness, pagerank)

	return MetricsReport{Bundle: bundle, Ranking: ranking}, nil
}

func rankNodes(nodes []graphquery.Node, degree map[string]*Degree, betweenness, pagerank map[string]float64) []Ranked {
	ranked := make([]Ranked, 0, len(nodes))
	for _, n := range nodes {
		addr := n.Address
		var degScore float64
		if d, ok := degree[addr]; ok {
			degScore = float64(d.TotalDegree)
		}
		score := degScore + 10*betweenness[addr] + 50*pagerank[addr]
		ranked = append(ranked, Ranked{Address: addr, Score: score, Influence: influenceBand(score)})
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	return ranked
}

// ShortestPath resolves the best route between two addresses within
// the local graph snapshot reachable from `from` within maxDepth hops.
// It expands a multi-hop neighborhood around `from` first (hoping `to`
// falls within it) and only reports a path if one exists within that
// bounded snapshot — this never searches beyond the local graph.
func (a *Analyzer) ShortestPath(ctx context.Context, from, to, mode string, maxDepth int) (Path, bool, error) {
	result, err := a.query.MultiHop(ctx, from, big.NewInt(0), maxDepth, 500)
	if err != nil {
		return Path{}, false, err
	}
	path, found := ShortestPath(from, to, result.Edges, mode, maxDepth)
	return path, found, nil
}

func influenceBand(score float64) string {
	switch {
	case score >= 20:
		return "high"
	case score >= 5:
		return "medium"
	default:
		return "low"
	}
}
