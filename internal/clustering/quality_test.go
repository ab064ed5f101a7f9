package clustering

import (
	"math"
	"testing"

	"github.com/rawblock/substrate-graph-sleuth/pkg/models"
)

func TestScoreAgainstTags_PerfectAgreement(t *testing.T) {
	clusters := []models.Cluster{
		{ID: "cluster_a", Addresses: []string{"5A", "5B"}},
		{ID: "cluster_b", Addresses: []string{"5C", "5D"}},
	}
	tags := map[string]string{
		"5A": "exchange", "5B": "exchange",
		"5C": "suspect", "5D": "suspect",
	}

	agreement := ScoreAgainstTags(clusters, tags)

	if agreement.AddressCount != 4 {
		t.Fatalf("expected 4 addresses scored, got %d", agreement.AddressCount)
	}
	if math.Abs(agreement.ARI-1.0) > 0.01 {
		t.Errorf("expected ARI=1.0 for perfect agreement, got %f", agreement.ARI)
	}
	if agreement.VI > 0.01 {
		t.Errorf("expected VI=0.0 for perfect agreement, got %f", agreement.VI)
	}
}

func TestScoreAgainstTags_Disagreement(t *testing.T) {
	clusters := []models.Cluster{
		{ID: "cluster_a", Addresses: []string{"5A", "5B", "5C"}},
	}
	tags := map[string]string{
		"5A": "exchange", "5B": "suspect", "5C": "service",
	}

	agreement := ScoreAgainstTags(clusters, tags)

	if agreement.AddressCount != 3 {
		t.Fatalf("expected 3 addresses scored, got %d", agreement.AddressCount)
	}
	if agreement.ARI > 0.5 {
		t.Errorf("expected low ARI when one cluster splits into three tags, got %f", agreement.ARI)
	}
	if agreement.VI <= 0 {
		t.Errorf("expected VI > 0 for disagreeing partitions, got %f", agreement.VI)
	}
}

func TestScoreAgainstTags_IgnoresUntaggedAndUnclusteredAddresses(t *testing.T) {
	clusters := []models.Cluster{
		{ID: "cluster_a", Addresses: []string{"5A", "5B"}},
	}
	tags := map[string]string{
		"5A": "exchange", "5B": "exchange", "5Z": "suspect", // 5Z never clustered
	}

	agreement := ScoreAgainstTags(clusters, tags)
	if agreement.AddressCount != 2 {
		t.Fatalf("expected untagged/unclustered addresses excluded, got count %d", agreement.AddressCount)
	}
}

func TestScoreAgainstTags_TooFewAddressesIsZeroValue(t *testing.T) {
	clusters := []models.Cluster{{ID: "cluster_a", Addresses: []string{"5A"}}}
	tags := map[string]string{"5A": "exchange"}

	agreement := ScoreAgainstTags(clusters, tags)
	if agreement.ARI != 0 || agreement.VI != 0 {
		t.Errorf("expected zero-value agreement below 2 addresses, got %+v", agreement)
	}
}
