// Package clustering implements the Clustering Runtime component (§4.7):
// Louvain, hierarchical agglomerative, DBSCAN, label propagation, and
// connected-components over a read-only snapshot of the coupling graph,
// each producing a persistable ClusteringSnapshot with per-cluster
// enrichments.
//
// Hand-rolled throughout: no community-detection or graph-algorithm
// library exists anywhere in the retrieved example pack (confirmed by
// grep across every go.mod), so this package is stdlib-only by
// necessity rather than by choice — see DESIGN.md.
package clustering

import (
	"sort"
	"strings"

	"github.com/lfca/lfca/internal/models"
)

// graph is the in-memory working representation the algorithms share: an
// adjacency list over identity ids, weighted by jaccard.
type graph struct {
	nodes     []int64
	neighbors map[int64]map[int64]float64
}

// buildGraph filters edges by minWeight and an optional folder-prefix
// restriction (identities whose PathCurrent doesn't start with prefix are
// excluded entirely, along with any edge touching them), then builds an
// adjacency list. Every surviving identity is included as a node even if
// it ends up with no surviving edges (a singleton cluster).
func buildGraph(edges []models.Edge, identities map[int64]*models.FileIdentity, prefix string, minWeight float64) *graph {
	included := make(map[int64]bool)
	for id, fi := range identities {
		if prefix == "" || strings.HasPrefix(fi.PathCurrent, prefix) {
			included[id] = true
		}
	}

	g := &graph{neighbors: make(map[int64]map[int64]float64)}
	for id := range included {
		g.neighbors[id] = make(map[int64]float64)
	}

	for _, e := range edges {
		if !included[e.Src] || !included[e.Dst] {
			continue
		}
		if e.Jaccard < minWeight {
			continue
		}
		g.neighbors[e.Src][e.Dst] = e.Jaccard
		g.neighbors[e.Dst][e.Src] = e.Jaccard
	}

	g.nodes = make([]int64, 0, len(included))
	for id := range included {
		g.nodes = append(g.nodes, id)
	}
	sort.Slice(g.nodes, func(i, j int) bool { return g.nodes[i] < g.nodes[j] })

	return g
}

// degree returns the weighted degree of node (sum of incident edge
// weights), used by modularity-based algorithms.
func (g *graph) degree(node int64) float64 {
	var sum float64
	for _, w := range g.neighbors[node] {
		sum += w
	}
	return sum
}

// totalWeight returns the sum of all edge weights, counted once per edge.
func (g *graph) totalWeight() float64 {
	var sum float64
	for _, nbrs := range g.neighbors {
		for _, w := range nbrs {
			sum += w
		}
	}
	return sum / 2
}
