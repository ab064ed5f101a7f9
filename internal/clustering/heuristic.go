package clustering

import (
	"math/big"
	"sort"

	"github.com/rawblock/substrate-graph-sleuth/internal/graphquery"
	"github.com/rawblock/substrate-graph-sleuth/pkg/models"
)

// tightBidirectionalMinCount is the minimum transfer count of a
// bidirectional edge before it is treated as common-control evidence
// rather than an ordinary counterparty relationship. The count is the
// edge's combined total across both directions; the per-direction split
// is not checked.
const tightBidirectionalMinCount = 3

// ClusterGraph merges nodes joined by edges strong enough to suggest
// common control: a bidirectional edge with at least
// tightBidirectionalMinCount transfers in total across both directions,
// or an edge carrying more than highVolumeFactor times the
// snapshot's median volume. Nodes joined by a single low-volume,
// one-directional edge are left unclustered — that's the common case
// of two unrelated accounts that happened to transact once.
func ClusterGraph(edges []graphquery.Edge, highVolumeFactor float64) []models.Cluster {
	if len(edges) == 0 {
		return nil
	}

	median := medianVolume(edges)
	engine := NewEngine()

	for _, e := range edges {
		if e.Bidirectional && e.Count >= tightBidirectionalMinCount {
			engine.Union(e.From, e.To)
			continue
		}
		if median.Sign() > 0 && isHighVolume(e.Volume, median, highVolumeFactor) {
			engine.Union(e.From, e.To)
		}
	}

	clusters := engine.Clusters()
	ids := make([]string, 0, len(clusters))
	for id := range clusters {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]models.Cluster, 0, len(ids))
	for i, id := range ids {
		out = append(out, models.Cluster{
			ID:        clusterLabel(i),
			Addresses: clusters[id],
		})
	}
	return out
}

// clusterLabel assigns cluster i a letter-based id (cluster_a,
// cluster_b, ... cluster_z, cluster_aa, cluster_ab, ...), the same
// bijective base-26 scheme spreadsheet columns use, so distinct
// clusters never collide on the same id past the 26th.
func clusterLabel(i int) string {
	const letters = "abcdefghijklmnopqrstuvwxyz"
	n := i + 1
	var suffix []byte
	for n > 0 {
		n--
		suffix = append([]byte{letters[n%26]}, suffix...)
		n /= 26
	}
	return "cluster_" + string(suffix)
}

func medianVolume(edges []graphquery.Edge) *big.Int {
	vols := make([]*big.Int, 0, len(edges))
	for _, e := range edges {
		if e.Volume != nil {
			vols = append(vols, e.Volume)
		}
	}
	if len(vols) == 0 {
		return big.NewInt(0)
	}
	sort.Slice(vols, func(i, j int) bool { return vols[i].Cmp(vols[j]) < 0 })
	return vols[len(vols)/2]
}

func isHighVolume(v, median *big.Int, factor float64) bool {
	if median.Sign() == 0 {
		return false
	}
	threshold := new(big.Float).Mul(new(big.Float).SetInt(median), big.NewFloat(factor))
	vf := new(big.Float).SetInt(v)
	return vf.Cmp(threshold) > 0
}
