package models

import "time"

// GraphNode is a transient view over an Account during graph assembly.
type GraphNode struct {
	Address          string   `json:"address"`
	Identity         *IdentitySummary `json:"identity,omitempty"`
	Balance          Balance  `json:"balance"`
	NodeType         string   `json:"nodeType"`
	HopLevel         int      `json:"hopLevel"`
	Degree           int      `json:"degree"`
	InDegree         int      `json:"inDegree"`
	OutDegree        int      `json:"outDegree"`
	TotalVolume      string   `json:"totalVolume"`
	SuggestedSize    float64  `json:"suggestedSize"`
	SuggestedColor   string   `json:"suggestedColor"`
	FirstSeen        *time.Time `json:"firstSeen,omitempty"`
	LastActive       *time.Time `json:"lastActive,omitempty"`
	RiskScore        *int     `json:"riskScore,omitempty"`
	RiskFactors      []string `json:"riskFactors,omitempty"`
	ImportanceScore  *float64 `json:"importanceScore,omitempty"`
}

// IdentitySummary is the reduced identity view placed on a GraphNode.
type IdentitySummary struct {
	Display     string `json:"display,omitempty"`
	IsConfirmed bool   `json:"isConfirmed"`
	IsInvalid   bool   `json:"isInvalid"`
}

// Balance splits an account's balance into the free/reserved/frozen
// components the chain's accounting model exposes.
type Balance struct {
	Free     string `json:"free"`
	Reserved string `json:"reserved"`
	Frozen   string `json:"frozen"`
}

const (
	EdgeTypeTransfer = "transfer"
	EdgeTypeInferred = "inferred"
)

// GraphEdge is a transient aggregated relationship between two nodes
// present in the same graph payload.
type GraphEdge struct {
	ID                string     `json:"id"`
	Source            string     `json:"source"`
	Target            string     `json:"target"`
	Count             int64      `json:"count"`
	Volume            string     `json:"volume"`
	EdgeType          string     `json:"edgeType"`
	FirstTransfer     *time.Time `json:"firstTransfer,omitempty"`
	LastTransfer      *time.Time `json:"lastTransfer,omitempty"`
	SuspiciousPattern bool       `json:"suspiciousPattern"`
	PatternType       string     `json:"patternType,omitempty"`
	SuggestedWidth    float64    `json:"suggestedWidth"`
	SuggestedColor    string     `json:"suggestedColor"`
	SuggestedOpacity  float64    `json:"suggestedOpacity"`
	Animated          bool       `json:"animated"`
	Bidirectional     bool       `json:"bidirectional"`
	DominantDirection string     `json:"dominantDirection,omitempty"`
}

// ForceParameters configures the client-side force-directed layout.
type ForceParameters struct {
	ChargeStrength float64 `json:"chargeStrength"`
	LinkDistance   float64 `json:"linkDistance"`
	LinkStrength   float64 `json:"linkStrength"`
	CenterX        float64 `json:"centerX"`
	CenterY        float64 `json:"centerY"`
}

// Layout bundles the force parameters with any fixed node positions.
type Layout struct {
	ForceParameters ForceParameters    `json:"forceParameters"`
	FixedPositions  map[string][2]float64 `json:"fixedPositions,omitempty"`
}

// Cluster groups a set of node addresses discovered by the clustering
// pass, for client-side shading/grouping.
type Cluster struct {
	ID        string   `json:"id"`
	Addresses []string `json:"addresses"`
	Label     string   `json:"label,omitempty"`
}

// GraphMetadata carries the summary statistics and pagination state for
// a graph payload.
type GraphMetadata struct {
	TotalNodes                  int        `json:"totalNodes"`
	TotalEdges                  int        `json:"totalEdges"`
	NetworkDensity               float64   `json:"networkDensity"`
	AverageClusteringCoefficient float64   `json:"averageClusteringCoefficient"`
	CenterNode                  string     `json:"centerNode"`
	RequestedDepth               int       `json:"requestedDepth"`
	ActualDepth                  int       `json:"actualDepth"`
	HasMore                      bool      `json:"hasMore"`
	NextCursor                   string     `json:"nextCursor,omitempty"`
	NodesOmitted                  int      `json:"nodesOmitted"`
	EdgesOmitted                   int     `json:"edgesOmitted"`
	RenderingComplexity           string    `json:"renderingComplexity"`
	SuggestedLayout               string    `json:"suggestedLayout"`
	HighRiskNodeCount              int     `json:"highRiskNodeCount"`
	SuspiciousEdgeCount             int    `json:"suspiciousEdgeCount"`
	EarliestTransfer              *time.Time `json:"earliestTransfer,omitempty"`
	LatestTransfer                *time.Time `json:"latestTransfer,omitempty"`
}

// GraphPayload is the full response shape for graph/expand endpoints.
type GraphPayload struct {
	Nodes    []GraphNode   `json:"nodes"`
	Edges    []GraphEdge   `json:"edges"`
	Layout   Layout        `json:"layout"`
	Clusters []Cluster     `json:"clusters,omitempty"`
	Metadata GraphMetadata `json:"metadata"`
}
