package clustering

import (
	"math"

	"github.com/rawblock/substrate-graph-sleuth/pkg/models"
)

// Agreement scores how well ClusterGraph's common-control heuristic
// agrees with an investigator's manual tagging within one
// investigation, over the addresses present in both. An investigator
// tagging addresses "suspect"/"exchange"/"service" is, implicitly,
// asserting a ground-truth partition; this compares it against what
// the heuristic would have grouped on its own, so a maintainer tuning
// tightBidirectionalMinCount or highVolumeFactor can see whether a
// change helps or hurts against real investigator judgment.
type Agreement struct {
	AddressCount int     `json:"addressCount"`
	ARI          float64 `json:"adjustedRandIndex"`
	VI           float64 `json:"variationOfInformation"`
}

// ScoreAgainstTags builds integer-labeled partitions from clusters and
// from tagsByAddress (address -> investigator-assigned role/label),
// restricted to the addresses both sides opine on, and scores their
// agreement. Fewer than two common addresses yields a zero Agreement,
// since no partition comparison is meaningful below that.
func ScoreAgainstTags(clusters []models.Cluster, tagsByAddress map[string]string) Agreement {
	clusterOf := make(map[string]int, len(clusters))
	for i, c := range clusters {
		for _, addr := range c.Addresses {
			clusterOf[addr] = i
		}
	}

	var predicted, groundTruth []int
	labelIDs := make(map[string]int)
	for addr, label := range tagsByAddress {
		clusterID, ok := clusterOf[addr]
		if !ok {
			continue
		}
		id, seen := labelIDs[label]
		if !seen {
			id = len(labelIDs)
			labelIDs[label] = id
		}
		predicted = append(predicted, clusterID)
		groundTruth = append(groundTruth, id)
	}

	if len(predicted) < 2 {
		return Agreement{AddressCount: len(predicted)}
	}
	return Agreement{
		AddressCount: len(predicted),
		ARI:          adjustedRandIndex(predicted, groundTruth),
		VI:           variationOfInformation(predicted, groundTruth),
	}
}

// adjustedRandIndex scores how well a detected clustering agrees with
// a reference partition.
//
// ARI = (RI - Expected_RI) / (Max_RI - Expected_RI)
// where RI = (a + b) / C(n, 2)
//   a = number of pairs in the same cluster under both partitions
//   b = number of pairs in different clusters under both partitions
//
// Values range from -1 (worse than random) to 1 (perfect agreement). 0 = random.
func adjustedRandIndex(predicted, groundTruth []int) float64 {
	n := len(predicted)
	if n != len(groundTruth) || n < 2 {
		return 0.0
	}

	predLabels := uniqueLabels(predicted)
	gtLabels := uniqueLabels(groundTruth)

	predMap := make(map[int]int)
	for i, l := range predLabels {
		predMap[l] = i
	}
	gtMap := make(map[int]int)
	for i, l := range gtLabels {
		gtMap[l] = i
	}

	nij := make([][]int, len(predLabels))
	for i := range nij {
		nij[i] = make([]int, len(gtLabels))
	}
	for k := 0; k < n; k++ {
		nij[predMap[predicted[k]]][gtMap[groundTruth[k]]]++
	}

	rowSums := make([]int, len(predLabels))
	colSums := make([]int, len(gtLabels))
	for i := range nij {
		for j := range nij[i] {
			rowSums[i] += nij[i][j]
			colSums[j] += nij[i][j]
		}
	}

	sumNijC2 := 0.0
	for i := range nij {
		for j := range nij[i] {
			sumNijC2 += comb2(nij[i][j])
		}
	}
	sumAiC2 := 0.0
	for _, a := range rowSums {
		sumAiC2 += comb2(a)
	}
	sumBjC2 := 0.0
	for _, b := range colSums {
		sumBjC2 += comb2(b)
	}

	nC2 := comb2(n)
	if nC2 == 0 {
		return 0.0
	}

	expectedIndex := (sumAiC2 * sumBjC2) / nC2
	maxIndex := 0.5 * (sumAiC2 + sumBjC2)

	denominator := maxIndex - expectedIndex
	if math.Abs(denominator) < 1e-12 {
		return 1.0
	}
	return (sumNijC2 - expectedIndex) / denominator
}

// variationOfInformation computes the information-theoretic distance
// between a detected clustering and a reference partition: how much
// information is lost and gained moving from one to the other.
//
// VI(C, C') = H(C|C') + H(C'|C)
//
// Lower is better. 0 means identical partitions.
func variationOfInformation(predicted, groundTruth []int) float64 {
	n := len(predicted)
	if n != len(groundTruth) || n < 2 {
		return 0.0
	}
	nf := float64(n)

	predLabels := uniqueLabels(predicted)
	gtLabels := uniqueLabels(groundTruth)

	predMap := make(map[int]int)
	for i, l := range predLabels {
		predMap[l] = i
	}
	gtMap := make(map[int]int)
	for i, l := range gtLabels {
		gtMap[l] = i
	}

	nij := make([][]int, len(predLabels))
	for i := range nij {
		nij[i] = make([]int, len(gtLabels))
	}
	for k := 0; k < n; k++ {
		nij[predMap[predicted[k]]][gtMap[groundTruth[k]]]++
	}

	rowSums := make([]int, len(predLabels))
	colSums := make([]int, len(gtLabels))
	for i := range nij {
		for j := range nij[i] {
			rowSums[i] += nij[i][j]
			colSums[j] += nij[i][j]
		}
	}

	hCgivenCp := 0.0
	for i := range nij {
		for j := range nij[i] {
			if nij[i][j] > 0 && colSums[j] > 0 {
				pij := float64(nij[i][j]) / nf
				hCgivenCp -= pij * math.Log2(float64(nij[i][j])/float64(colSums[j]))
			}
		}
	}

	hCpgivenC := 0.0
	for i := range nij {
		for j := range nij[i] {
			if nij[i][j] > 0 && rowSums[i] > 0 {
				pij := float64(nij[i][j]) / nf
				hCpgivenC -= pij * math.Log2(float64(nij[i][j])/float64(rowSums[i]))
			}
		}
	}

	return hCgivenCp + hCpgivenC
}

func comb2(n int) float64 {
	if n < 2 {
		return 0
	}
	return float64(n) * float64(n-1) / 2.0
}

func uniqueLabels(labels []int) []int {
	seen := make(map[int]bool)
	var result []int
	for _, l := range labels {
		if !seen[l] {
			seen[l] = true
			result = append(result, l)
		}
	}
	return result
}
