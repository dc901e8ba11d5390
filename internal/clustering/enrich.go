package clustering

import (
	"sort"

	"github.com/lfca/lfca/internal/extractor"
	"github.com/lfca/lfca/internal/models"
)

// computeEnrichments derives ClusterEnrichment records for each cluster in
// assignment (§4.7's per-cluster statistics, plus the bus-factor
// supplement named in the GLOSSARY's 50%-share definition).
func computeEnrichments(commits []extractor.ExtractedCommit, identities map[int64]*models.FileIdentity, edges []models.Edge, assignment map[int64]int) []models.ClusterEnrichment {
	clusters := make(map[int]map[int64]bool)
	for id, cid := range assignment {
		if clusters[cid] == nil {
			clusters[cid] = make(map[int64]bool)
		}
		clusters[cid][id] = true
	}

	commitFileCount := make(map[int][]struct {
		id    string
		count int
	})
	authorRevisions := make(map[int]map[string]int64)
	commitCountByID := make(map[int]map[string]int)

	for _, ec := range commits {
		touched := make(map[int]map[int64]bool)
		for _, ch := range ec.Changes {
			cid, ok := assignment[ch.IdentityID]
			if !ok {
				continue
			}
			if touched[cid] == nil {
				touched[cid] = make(map[int64]bool)
			}
			touched[cid][ch.IdentityID] = true

			if authorRevisions[cid] == nil {
				authorRevisions[cid] = make(map[string]int64)
			}
			authorRevisions[cid][ec.Commit.AuthorEmail]++
		}
		for cid, files := range touched {
			if commitCountByID[cid] == nil {
				commitCountByID[cid] = make(map[string]int)
			}
			commitCountByID[cid][ec.Commit.ID] += len(files)
		}
	}
	for cid, byCommit := range commitCountByID {
		for id, count := range byCommit {
			commitFileCount[cid] = append(commitFileCount[cid], struct {
				id    string
				count int
			}{id, count})
		}
	}

	edgeByCluster := make(map[int][]models.Edge)
	for _, e := range edges {
		csrc, oksrc := assignment[e.Src]
		cdst, okdst := assignment[e.Dst]
		if oksrc && okdst && csrc == cdst {
			edgeByCluster[csrc] = append(edgeByCluster[csrc], e)
		}
	}

	var clusterIDs []int
	for cid := range clusters {
		clusterIDs = append(clusterIDs, cid)
	}
	sort.Ints(clusterIDs)

	enrichments := make([]models.ClusterEnrichment, 0, len(clusterIDs))
	for _, cid := range clusterIDs {
		enrichments = append(enrichments, models.ClusterEnrichment{
			ClusterID:     cid,
			AvgCoupling:   avgJaccard(edgeByCluster[cid]),
			TotalChurn:    totalChurn(clusters[cid], identities),
			HotFiles:      hotFiles(clusters[cid], identities),
			TopCommits:    topCommits(commitFileCount[cid]),
			CommonAuthors: commonAuthors(authorRevisions[cid]),
			BusFactor:     busFactor(authorRevisions[cid]),
		})
	}
	return enrichments
}

func avgJaccard(edges []models.Edge) float64 {
	if len(edges) == 0 {
		return 0
	}
	var sum float64
	for _, e := range edges {
		sum += e.Jaccard
	}
	return round6(sum / float64(len(edges)))
}

func round6(v float64) float64 {
	return float64(int64(v*1e6+0.5)) / 1e6
}

func totalChurn(members map[int64]bool, identities map[int64]*models.FileIdentity) int64 {
	var sum int64
	for id := range members {
		if fi := identities[id]; fi != nil {
			sum += fi.Revisions
		}
	}
	return sum
}

func hotFiles(members map[int64]bool, identities map[int64]*models.FileIdentity) []int64 {
	type entry struct {
		id  int64
		rev int64
	}
	var entries []entry
	for id := range members {
		if fi := identities[id]; fi != nil {
			entries = append(entries, entry{id, fi.Revisions})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].rev != entries[j].rev {
			return entries[i].rev > entries[j].rev
		}
		return entries[i].id < entries[j].id
	})
	limit := 5
	if len(entries) < limit {
		limit = len(entries)
	}
	out := make([]int64, limit)
	for i := 0; i < limit; i++ {
		out[i] = entries[i].id
	}
	return out
}

func topCommits(counts []struct {
	id    string
	count int
}) []string {
	sorted := append([]struct {
		id    string
		count int
	}{}, counts...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].count != sorted[j].count {
			return sorted[i].count > sorted[j].count
		}
		return sorted[i].id < sorted[j].id
	})
	limit := 5
	if len(sorted) < limit {
		limit = len(sorted)
	}
	out := make([]string, limit)
	for i := 0; i < limit; i++ {
		out[i] = sorted[i].id
	}
	return out
}

func commonAuthors(revisions map[string]int64) []string {
	type entry struct {
		author string
		count  int64
	}
	var entries []entry
	for a, c := range revisions {
		entries = append(entries, entry{a, c})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].author < entries[j].author
	})
	limit := 5
	if len(entries) < limit {
		limit = len(entries)
	}
	out := make([]string, limit)
	for i := 0; i < limit; i++ {
		out[i] = entries[i].author
	}
	return out
}

// busFactor is the smallest number of authors whose combined revision
// share exceeds half of the cluster's total revisions (GLOSSARY).
func busFactor(revisions map[string]int64) int {
	var total int64
	counts := make([]int64, 0, len(revisions))
	for _, c := range revisions {
		total += c
		counts = append(counts, c)
	}
	if total == 0 {
		return 0
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i] > counts[j] })

	var running int64
	for i, c := range counts {
		running += c
		if float64(running) > float64(total)/2 {
			return i + 1
		}
	}
	return len(counts)
}
