// Package graphbuild implements the Graph Builder component (§4.4): it
// consumes the resolved Change stream grouped by commit and produces the
// weighted co-change graph — per-pair Jaccard and conditional-probability
// statistics, top-K truncated per identity, plus folder-level
// ComponentEdge aggregates at depths 1-3.
//
// Grounded on the teacher's CalculateCoChanges (internal/temporal/co_change.go):
// the pair/file counting shape (alphabetical pair key, per-file counts,
// frequency = co / max) is kept, generalized to identity ids, commit
// weights, and the full statistic set §4.4 requires. Pair counting is
// sharded over disjoint commit ranges and merged by summation, matching
// §5's "pair counting is parallelizable over disjoint commit shards".
package graphbuild

import (
	"context"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/lfca/lfca/internal/extractor"
	"github.com/lfca/lfca/internal/lfcaerrors"
	"github.com/lfca/lfca/internal/models"
)

// pairKey canonically orders an unordered identity pair with src < dst.
type pairKey struct {
	src, dst int64
}

func canonicalPair(a, b int64) pairKey {
	if a < b {
		return pairKey{a, b}
	}
	return pairKey{b, a}
}

// Options configures one build pass. Mirrors the resolved Thresholds
// carried on an AnalysisRun so a build is fully reproducible from them.
type Options struct {
	MinRevisions             int
	MinCooccurrence          int
	TopKEdgesPerFile         int
	MinComponentCooccurrence int
	// Shards bounds how many disjoint commit ranges pair counting fans
	// out over; each shard accumulates its own counts independently and
	// the partials are merged by summation. <= 1 runs single-shard.
	Shards int
}

// Result is the Graph Builder's output, ready for the Catalog to persist.
type Result struct {
	Edges          []models.Edge
	ComponentEdges []models.ComponentEdge
}

// shardCounts is one shard's independent accumulation: a commit's pairs
// only ever touch identities from that same commit, so shards never need
// to coordinate mid-pass — only the final merge-by-summation does.
type shardCounts struct {
	srcCount   map[int64]int64
	srcWeight  map[int64]float64
	pairCount  map[pairKey]int64
	pairWeight map[pairKey]float64
}

func accumulateShard(commits []extractor.ExtractedCommit) shardCounts {
	sc := shardCounts{
		srcCount:   make(map[int64]int64),
		srcWeight:  make(map[int64]float64),
		pairCount:  make(map[pairKey]int64),
		pairWeight: make(map[pairKey]float64),
	}

	for _, ec := range commits {
		if ec.Weight == 0 || len(ec.Changes) == 0 {
			continue
		}

		distinct := distinctIdentities(ec.Changes)
		if len(distinct) == 0 {
			continue
		}

		for f := range distinct {
			sc.srcCount[f]++
			sc.srcWeight[f] += ec.Weight
		}

		ids := make([]int64, 0, len(distinct))
		for f := range distinct {
			ids = append(ids, f)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		perCommitDenom := float64(len(ids))
		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				key := canonicalPair(ids[i], ids[j])
				sc.pairCount[key]++
				sc.pairWeight[key] += ec.Weight / perCommitDenom
			}
		}
	}

	return sc
}

// shardRanges splits commits into up to n contiguous, roughly equal
// ranges. Order within a shard doesn't matter for counting, so a
// contiguous split (rather than round-robin) keeps each goroutine's
// slice access pattern sequential.
func shardRanges(total, n int) [][2]int {
	if n <= 1 || total <= 1 {
		return [][2]int{{0, total}}
	}
	if n > total {
		n = total
	}
	size := (total + n - 1) / n
	var ranges [][2]int
	for start := 0; start < total; start += size {
		end := start + size
		if end > total {
			end = total
		}
		ranges = append(ranges, [2]int{start, end})
	}
	return ranges
}

// Build runs the full §4.4 algorithm over extracted, identity-annotated
// commits. identities must already carry resolved IdentityID values for
// every Change (i.e. the Identity Resolver has run) and paths current as
// of the end of the walk, since ComponentEdge aggregation groups by the
// identity's PathCurrent.
func Build(commits []extractor.ExtractedCommit, identities map[int64]*models.FileIdentity, opts Options) (*Result, error) {
	ranges := shardRanges(len(commits), opts.Shards)
	partials := make([]shardCounts, len(ranges))

	g, _ := errgroup.WithContext(context.Background())
	for i, r := range ranges {
		i, r := i, r
		g.Go(func() error {
			partials[i] = accumulateShard(commits[r[0]:r[1]])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	srcCount := make(map[int64]int64)
	srcWeight := make(map[int64]float64)
	pairCount := make(map[pairKey]int64)
	pairWeight := make(map[pairKey]float64)
	for _, p := range partials {
		for id, c := range p.srcCount {
			srcCount[id] += c
		}
		for id, w := range p.srcWeight {
			srcWeight[id] += w
		}
		for key, c := range p.pairCount {
			pairCount[key] += c
		}
		for key, w := range p.pairWeight {
			pairWeight[key] += w
		}
	}

	minRevisions := opts.MinRevisions
	if minRevisions <= 0 {
		minRevisions = 5
	}
	minCooccurrence := opts.MinCooccurrence
	if minCooccurrence <= 0 {
		minCooccurrence = 5
	}
	topK := opts.TopKEdgesPerFile
	if topK <= 0 {
		topK = 50
	}

	surviving := make(map[int64]bool)
	for f, count := range srcCount {
		if count >= int64(minRevisions) {
			surviving[f] = true
			if fi := identities[f]; fi != nil {
				fi.Revisions = count
			}
		}
	}

	var edges []models.Edge
	for key, pc := range pairCount {
		if !surviving[key.src] || !surviving[key.dst] {
			continue
		}
		if pc < int64(minCooccurrence) {
			continue
		}

		edge, err := computeEdge(key, pc, pairWeight[key], srcCount, srcWeight)
		if err != nil {
			return nil, err
		}
		edges = append(edges, edge)
	}

	edges = truncateTopK(edges, topK)

	componentEdges := buildComponentEdges(edges, identities, opts.MinComponentCooccurrence)

	return &Result{Edges: edges, ComponentEdges: componentEdges}, nil
}

func distinctIdentities(changes []models.Change) map[int64]struct{} {
	set := make(map[int64]struct{}, len(changes))
	for _, ch := range changes {
		if ch.IdentityID != 0 {
			set[ch.IdentityID] = struct{}{}
		}
	}
	return set
}

// computeEdge derives the full statistic set for one surviving pair.
// Divisions that the invariants forbid for a surviving pair (identity
// counts of zero) fail closed rather than producing NaN/Inf.
func computeEdge(key pairKey, pairCnt int64, pairWt float64, srcCount map[int64]int64, srcWeight map[int64]float64) (models.Edge, error) {
	srcC, dstC := srcCount[key.src], srcCount[key.dst]
	if srcC == 0 || dstC == 0 {
		return models.Edge{}, lfcaerrors.Statef("surviving pair (%d,%d) has a zero-count endpoint", key.src, key.dst)
	}

	union := srcC + dstC - pairCnt
	if union <= 0 {
		return models.Edge{}, lfcaerrors.Statef("surviving pair (%d,%d) has non-positive union %d", key.src, key.dst, union)
	}

	srcW, dstW := srcWeight[key.src], srcWeight[key.dst]
	unionW := srcW + dstW - pairWt
	var jaccardWeighted float64
	if unionW > 0 {
		jaccardWeighted = pairWt / unionW
	}

	return models.Edge{
		Src:             key.src,
		Dst:             key.dst,
		PairCount:       pairCnt,
		PairWeight:      round6(pairWt),
		SrcCount:        srcC,
		DstCount:        dstC,
		Jaccard:         round6(float64(pairCnt) / float64(union)),
		JaccardWeighted: round6(jaccardWeighted),
		PDstGivenSrc:    round6(float64(pairCnt) / float64(srcC)),
		PSrcGivenDst:    round6(float64(pairCnt) / float64(dstC)),
	}, nil
}

// round6 rounds to six decimal places, matching §4.4's
// minimum-precision requirement without pretending to more precision than
// the double-precision computation actually carries.
func round6(v float64) float64 {
	const scale = 1e6
	return float64(int64(v*scale+0.5)) / scale
}

// truncateTopK keeps, for each identity (as either endpoint), at most k
// strongest edges by jaccard, ties broken by pair_count then by the other
// endpoint's identity id — deterministic per §4.4. An edge survives only
// if it ranks within the top k of both of its endpoints.
func truncateTopK(edges []models.Edge, k int) []models.Edge {
	byIdentity := make(map[int64][]models.Edge)
	for _, e := range edges {
		byIdentity[e.Src] = append(byIdentity[e.Src], e)
		byIdentity[e.Dst] = append(byIdentity[e.Dst], e)
	}

	keep := make(map[pairKey]int)
	for id, es := range byIdentity {
		sort.Slice(es, func(i, j int) bool {
			if es[i].Jaccard != es[j].Jaccard {
				return es[i].Jaccard > es[j].Jaccard
			}
			if es[i].PairCount != es[j].PairCount {
				return es[i].PairCount > es[j].PairCount
			}
			return other(es[i], id) < other(es[j], id)
		})
		limit := k
		if limit > len(es) {
			limit = len(es)
		}
		for i := 0; i < limit; i++ {
			keep[canonicalPair(es[i].Src, es[i].Dst)]++
		}
	}

	var result []models.Edge
	for _, e := range edges {
		if keep[canonicalPair(e.Src, e.Dst)] == 2 {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Src != result[j].Src {
			return result[i].Src < result[j].Src
		}
		return result[i].Dst < result[j].Dst
	})
	return result
}

func other(e models.Edge, id int64) int64 {
	if e.Src == id {
		return e.Dst
	}
	return e.Src
}

// buildComponentEdges aggregates pair_count by folder-prefix pairs at
// depths 1, 2, and 3, filtered by min_component_cooccurrence.
func buildComponentEdges(edges []models.Edge, identities map[int64]*models.FileIdentity, minComponentCooccurrence int) []models.ComponentEdge {
	if minComponentCooccurrence <= 0 {
		minComponentCooccurrence = 3
	}

	type aggKey struct {
		depth    int
		src, dst string
	}
	sums := make(map[aggKey]int64)

	for _, e := range edges {
		srcFi, dstFi := identities[e.Src], identities[e.Dst]
		if srcFi == nil || dstFi == nil {
			continue
		}
		for depth := 1; depth <= 3; depth++ {
			srcComp := componentPrefix(srcFi.PathCurrent, depth)
			dstComp := componentPrefix(dstFi.PathCurrent, depth)
			if srcComp == dstComp {
				continue
			}
			a, b := srcComp, dstComp
			if a > b {
				a, b = b, a
			}
			sums[aggKey{depth, a, b}] += e.PairCount
		}
	}

	// componentRevisions[depth][component] is the sum of Revisions across
	// every surviving identity that folds into that component, the
	// component-level analogue of srcCount/dstCount in computeEdge. Derived
	// from the full identity set, not just the edges, since a component's
	// revision total includes files that never paired with anything.
	componentRevisions := make(map[int]map[string]int64)
	for depth := 1; depth <= 3; depth++ {
		componentRevisions[depth] = make(map[string]int64)
	}
	for _, fi := range identities {
		if fi == nil {
			continue
		}
		for depth := 1; depth <= 3; depth++ {
			comp := componentPrefix(fi.PathCurrent, depth)
			componentRevisions[depth][comp] += fi.Revisions
		}
	}

	var result []models.ComponentEdge
	for key, sum := range sums {
		if sum < int64(minComponentCooccurrence) {
			continue
		}
		srcTotal := componentRevisions[key.depth][key.src]
		dstTotal := componentRevisions[key.depth][key.dst]
		var jaccard float64
		if union := srcTotal + dstTotal - sum; union > 0 {
			jaccard = round6(float64(sum) / float64(union))
		}
		result = append(result, models.ComponentEdge{
			Depth:        key.depth,
			SrcComponent: key.src,
			DstComponent: key.dst,
			CoChangeSum:  sum,
			Jaccard:      jaccard,
		})
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Depth != result[j].Depth {
			return result[i].Depth < result[j].Depth
		}
		if result[i].SrcComponent != result[j].SrcComponent {
			return result[i].SrcComponent < result[j].SrcComponent
		}
		return result[i].DstComponent < result[j].DstComponent
	})
	return result
}

// componentPrefix returns the first `depth` path segments of path, joined
// by "/". A path shallower than depth returns its full directory chain.
func componentPrefix(path string, depth int) string {
	segments := strings.Split(path, "/")
	if len(segments) > 0 {
		segments = segments[:len(segments)-1] // drop the filename itself
	}
	if len(segments) == 0 {
		return "."
	}
	if depth > len(segments) {
		depth = len(segments)
	}
	return strings.Join(segments[:depth], "/")
}
