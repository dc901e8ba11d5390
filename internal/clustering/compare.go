package clustering

import "github.com/lfca/lfca/internal/models"

// ComparisonResult summarizes how two ClusteringSnapshots differ —
// a supplemented operation not named by the distilled clustering
// algorithm list but natural once snapshots are versioned artifacts.
type ComparisonResult struct {
	FilesMoved     int     `json:"files_moved"`
	ClustersSplit  int     `json:"clusters_split"`
	ClustersMerged int     `json:"clusters_merged"`
	StabilityScore float64 `json:"stability_score"`
}

// Compare reports how b's partition differs from a's, over identities
// present in both. StabilityScore is the fraction of co-clustered pairs
// in a that remain co-clustered in b.
func Compare(a, b []models.ClusterMember) ComparisonResult {
	clusterOfA := make(map[int64]int)
	clusterOfB := make(map[int64]int)
	for _, m := range a {
		clusterOfA[m.IdentityID] = m.ClusterID
	}
	for _, m := range b {
		clusterOfB[m.IdentityID] = m.ClusterID
	}

	var shared []int64
	for id := range clusterOfA {
		if _, ok := clusterOfB[id]; ok {
			shared = append(shared, id)
		}
	}

	moved := 0
	groupsA := make(map[int][]int64)
	groupsB := make(map[int][]int64)
	for _, id := range shared {
		groupsA[clusterOfA[id]] = append(groupsA[clusterOfA[id]], id)
		groupsB[clusterOfB[id]] = append(groupsB[clusterOfB[id]], id)
	}

	split, merged := countSplitsAndMerges(groupsA, clusterOfB)

	var totalPairs, stablePairs int64
	for i := 0; i < len(shared); i++ {
		for j := i + 1; j < len(shared); j++ {
			coA := clusterOfA[shared[i]] == clusterOfA[shared[j]]
			coB := clusterOfB[shared[i]] == clusterOfB[shared[j]]
			if coA {
				totalPairs++
				if coB {
					stablePairs++
				}
			}
		}
	}

	for _, id := range shared {
		if clusterOfA[id] != clusterOfB[id] {
			moved++
		}
	}

	stability := 1.0
	if totalPairs > 0 {
		stability = round6(float64(stablePairs) / float64(totalPairs))
	}

	return ComparisonResult{
		FilesMoved:     moved,
		ClustersSplit:  split,
		ClustersMerged: merged,
		StabilityScore: stability,
	}
}

// countSplitsAndMerges: a cluster from a "splits" if its members land in
// more than one b-cluster; a b-cluster "merges" inputs if it receives
// members from more than one a-cluster.
func countSplitsAndMerges(groupsA map[int][]int64, clusterOfB map[int64]int) (split, merged int) {
	destinationsPerA := make(map[int]map[int]bool)
	for cidA, members := range groupsA {
		destinationsPerA[cidA] = make(map[int]bool)
		for _, id := range members {
			destinationsPerA[cidA][clusterOfB[id]] = true
		}
		if len(destinationsPerA[cidA]) > 1 {
			split++
		}
	}

	sourcesPerB := make(map[int]map[int]bool)
	for cidA, members := range groupsA {
		for _, id := range members {
			cidB := clusterOfB[id]
			if sourcesPerB[cidB] == nil {
				sourcesPerB[cidB] = make(map[int]bool)
			}
			sourcesPerB[cidB][cidA] = true
		}
	}
	for _, sources := range sourcesPerB {
		if len(sources) > 1 {
			merged++
		}
	}
	return split, merged
}
