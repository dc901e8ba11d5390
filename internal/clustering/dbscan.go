package clustering

import "sort"

// noiseCluster is the reserved cluster id for points DBSCAN could not
// assign to any dense region (§4.7 edge case: "DBSCAN may produce a noise
// cluster; it is represented, not dropped").
const noiseCluster = -1

// runDBSCAN treats 1-jaccard as the distance between directly coupled
// files and only considers graph edges as candidate neighbors (files with
// no recorded co-change are infinitely far apart, never merged by density
// reachability). A point's eps-neighborhood is the set of edges with
// distance <= eps, i.e. jaccard >= 1-eps.
func runDBSCAN(g *graph, eps float64, minSamples int) map[int64]int {
	state := make(map[int64]int8, len(g.nodes)) // 0=unvisited, 1=visited
	assignment := make(map[int64]int, len(g.nodes))
	for _, n := range g.nodes {
		assignment[n] = noiseCluster
	}

	neighborsWithin := func(node int64) []int64 {
		var out []int64
		for nbr, w := range g.neighbors[node] {
			if 1-w <= eps {
				out = append(out, nbr)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
		return out
	}

	nextCluster := 0
	for _, node := range g.nodes {
		if state[node] != 0 {
			continue
		}
		state[node] = 1

		neighbors := neighborsWithin(node)
		if len(neighbors)+1 < minSamples {
			continue // stays noise, may be re-claimed later as a border point
		}

		cluster := nextCluster
		nextCluster++
		assignment[node] = cluster

		seeds := append([]int64{}, neighbors...)
		for i := 0; i < len(seeds); i++ {
			cur := seeds[i]
			if state[cur] == 0 {
				state[cur] = 1
				curNeighbors := neighborsWithin(cur)
				if len(curNeighbors)+1 >= minSamples {
					for _, n := range curNeighbors {
						if assignment[n] == noiseCluster {
							seeds = append(seeds, n)
						}
					}
				}
			}
			if assignment[cur] == noiseCluster {
				assignment[cur] = cluster
			}
		}
	}

	return assignment
}
