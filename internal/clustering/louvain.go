package clustering

// runLouvain performs single-level greedy modularity optimization: each
// node repeatedly moves to the neighboring community that most increases
// modularity (scaled by resolution), until no move improves it. This is
// the one-pass core of Louvain without the multi-level graph-aggregation
// step full implementations add once communities stabilize — aggregation
// would only matter on graphs far larger than a single repository's
// coupling graph tends to produce, so it's left as a known simplification
// (see DESIGN.md).
func runLouvain(g *graph, resolution float64) (map[int64]int, *float64) {
	community := make(map[int64]int64, len(g.nodes))
	for _, n := range g.nodes {
		community[n] = n
	}

	m2 := g.totalWeight() * 2
	if m2 == 0 {
		return normalizeLabels(community), nil
	}

	degree := make(map[int64]float64, len(g.nodes))
	for _, n := range g.nodes {
		degree[n] = g.degree(n)
	}

	communityDegree := make(map[int64]float64, len(g.nodes))
	for _, n := range g.nodes {
		communityDegree[community[n]] += degree[n]
	}

	improved := true
	for improved {
		improved = false
		for _, node := range g.nodes {
			currentComm := community[node]
			communityDegree[currentComm] -= degree[node]

			neighborWeight := make(map[int64]float64)
			for nbr, w := range g.neighbors[node] {
				if nbr == node {
					continue
				}
				neighborWeight[community[nbr]] += w
			}

			bestComm := currentComm
			bestGain := neighborWeight[currentComm] - resolution*communityDegree[currentComm]*degree[node]/m2

			for comm, w := range neighborWeight {
				gain := w - resolution*communityDegree[comm]*degree[node]/m2
				if gain > bestGain {
					bestGain = gain
					bestComm = comm
				}
			}

			community[node] = bestComm
			communityDegree[bestComm] += degree[node]
			if bestComm != currentComm {
				improved = true
			}
		}
	}

	assignment := normalizeLabels(community)
	q := modularity(g, assignment, resolution)
	return assignment, &q
}

// modularity computes Newman's modularity Q for the given assignment.
func modularity(g *graph, assignment map[int64]int, resolution float64) float64 {
	m2 := g.totalWeight() * 2
	if m2 == 0 {
		return 0
	}

	degree := make(map[int64]float64, len(g.nodes))
	for _, n := range g.nodes {
		degree[n] = g.degree(n)
	}

	var q float64
	communityDegree := make(map[int]float64)
	for _, node := range g.nodes {
		communityDegree[assignment[node]] += degree[node]
		for nbr, w := range g.neighbors[node] {
			if assignment[node] != assignment[nbr] {
				continue
			}
			q += w
		}
	}
	for _, d := range communityDegree {
		q -= resolution * d * d / m2
	}
	return q / m2
}
