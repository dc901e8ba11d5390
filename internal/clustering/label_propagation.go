package clustering

import "sort"

// runLabelPropagation starts every node in its own label and repeatedly
// adopts the weighted-majority label among its neighbors, until stable or
// maxIterations is reached. A node keeps its current label when that label
// ties for the maximum; other ties go to the smallest label id, for
// determinism.
func runLabelPropagation(g *graph, maxIterations int) map[int64]int64 {
	label := make(map[int64]int64, len(g.nodes))
	for _, n := range g.nodes {
		label[n] = n
	}

	order := make([]int64, len(g.nodes))
	copy(order, g.nodes)

	for iter := 0; iter < maxIterations; iter++ {
		changed := false
		for _, node := range order {
			nbrs := g.neighbors[node]
			if len(nbrs) == 0 {
				continue
			}
			weight := make(map[int64]float64)
			for nbr, w := range nbrs {
				weight[label[nbr]] += w
			}

			best := label[node]
			bestWeight := weight[best]
			labels := make([]int64, 0, len(weight))
			for l := range weight {
				labels = append(labels, l)
			}
			sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })
			for _, l := range labels {
				if weight[l] > bestWeight {
					best = l
					bestWeight = weight[l]
				}
			}
			if best != label[node] {
				label[node] = best
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	return normalizeLabels(label)
}

// normalizeLabels remaps arbitrary label ids to dense 0..k-1 ids,
// ordered by the smallest member id in each group for determinism.
func normalizeLabels(label map[int64]int64) map[int64]int {
	groups := make(map[int64][]int64)
	for node, l := range label {
		groups[l] = append(groups[l], node)
	}

	type group struct {
		min     int64
		members []int64
	}
	var gs []group
	for _, members := range groups {
		min := members[0]
		for _, m := range members {
			if m < min {
				min = m
			}
		}
		gs = append(gs, group{min: min, members: members})
	}
	sort.Slice(gs, func(i, j int) bool { return gs[i].min < gs[j].min })

	result := make(map[int64]int)
	for id, g := range gs {
		for _, m := range g.members {
			result[m] = id
		}
	}
	return result
}
