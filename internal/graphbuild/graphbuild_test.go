package graphbuild

import (
	"testing"

	"github.com/lfca/lfca/internal/extractor"
	"github.com/lfca/lfca/internal/models"
)

func commitTouching(id string, identities ...int64) extractor.ExtractedCommit {
	changes := make([]models.Change, len(identities))
	for i, fid := range identities {
		changes[i] = models.Change{CommitID: id, IdentityID: fid, Kind: models.ChangeKindModified}
	}
	return extractor.ExtractedCommit{
		Commit:  models.Commit{ID: id},
		Changes: changes,
		Weight:  1.0,
	}
}

func fixtureIdentities() map[int64]*models.FileIdentity {
	return map[int64]*models.FileIdentity{
		1: {ID: 1, PathCurrent: "a/one.go"},
		2: {ID: 2, PathCurrent: "a/two.go"},
		3: {ID: 3, PathCurrent: "b/three.go"},
	}
}

func TestBuildComputesJaccardForSurvivingPair(t *testing.T) {
	var commits []extractor.ExtractedCommit
	for i := 0; i < 5; i++ {
		commits = append(commits, commitTouching("c", 1, 2))
	}

	result, err := Build(commits, fixtureIdentities(), Options{MinRevisions: 5, MinCooccurrence: 5, TopKEdgesPerFile: 50, MinComponentCooccurrence: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Edges) != 1 {
		t.Fatalf("expected 1 edge, got %d", len(result.Edges))
	}
	e := result.Edges[0]
	if e.PairCount != 5 || e.SrcCount != 5 || e.DstCount != 5 {
		t.Fatalf("unexpected counts: %+v", e)
	}
	if e.Jaccard != 1.0 {
		t.Errorf("expected jaccard 1.0 for identical co-occurrence, got %f", e.Jaccard)
	}
}

func TestBuildDropsPairsBelowMinCooccurrence(t *testing.T) {
	var commits []extractor.ExtractedCommit
	for i := 0; i < 5; i++ {
		commits = append(commits, commitTouching("c", 1, 2))
	}

	result, err := Build(commits, fixtureIdentities(), Options{MinRevisions: 5, MinCooccurrence: 6, TopKEdgesPerFile: 50})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Edges) != 0 {
		t.Fatalf("expected 0 edges when pair_count < min_cooccurrence, got %d", len(result.Edges))
	}
}

func TestBuildDropsIdentitiesBelowMinRevisions(t *testing.T) {
	commits := []extractor.ExtractedCommit{commitTouching("c1", 1, 2)}

	result, err := Build(commits, fixtureIdentities(), Options{MinRevisions: 5, MinCooccurrence: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Edges) != 0 {
		t.Fatalf("expected identities with 1 revision to be dropped under min_revisions=5, got %d edges", len(result.Edges))
	}
}

func TestBuildTopKTruncation(t *testing.T) {
	identities := fixtureIdentities()
	identities[4] = &models.FileIdentity{ID: 4, PathCurrent: "a/four.go"}

	var commits []extractor.ExtractedCommit
	for i := 0; i < 5; i++ {
		commits = append(commits, commitTouching("c12", 1, 2))
	}
	for i := 0; i < 5; i++ {
		commits = append(commits, commitTouching("c13", 1, 3))
	}
	for i := 0; i < 5; i++ {
		commits = append(commits, commitTouching("c14", 1, 4))
	}

	result, err := Build(commits, identities, Options{MinRevisions: 5, MinCooccurrence: 5, TopKEdgesPerFile: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	count := 0
	for _, e := range result.Edges {
		if e.Src == 1 || e.Dst == 1 {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected identity 1 to retain exactly 1 edge under topk=1, got %d", count)
	}
}

func TestBuildShardedMatchesSingleShard(t *testing.T) {
	var commits []extractor.ExtractedCommit
	for i := 0; i < 9; i++ {
		commits = append(commits, commitTouching("c", 1, 2))
	}
	opts := Options{MinRevisions: 5, MinCooccurrence: 5, TopKEdgesPerFile: 50, MinComponentCooccurrence: 1}

	single, err := Build(commits, fixtureIdentities(), opts)
	if err != nil {
		t.Fatalf("unexpected error building single-shard: %v", err)
	}

	sharded := opts
	sharded.Shards = 4
	result, err := Build(commits, fixtureIdentities(), sharded)
	if err != nil {
		t.Fatalf("unexpected error building sharded: %v", err)
	}

	if len(result.Edges) != len(single.Edges) {
		t.Fatalf("sharded build produced %d edges, single-shard produced %d", len(result.Edges), len(single.Edges))
	}
	if result.Edges[0].PairCount != single.Edges[0].PairCount || result.Edges[0].Jaccard != single.Edges[0].Jaccard {
		t.Fatalf("sharded build diverged from single-shard: %+v vs %+v", result.Edges[0], single.Edges[0])
	}
}

func TestBuildComponentEdgesCrossFolder(t *testing.T) {
	var commits []extractor.ExtractedCommit
	for i := 0; i < 5; i++ {
		commits = append(commits, commitTouching("c", 1, 3))
	}

	result, err := Build(commits, fixtureIdentities(), Options{MinRevisions: 5, MinCooccurrence: 5, TopKEdgesPerFile: 50, MinComponentCooccurrence: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.ComponentEdges) == 0 {
		t.Fatal("expected at least one ComponentEdge for a cross-folder pair")
	}
	found := false
	for _, ce := range result.ComponentEdges {
		if ce.Depth == 1 && ((ce.SrcComponent == "a" && ce.DstComponent == "b") || (ce.SrcComponent == "b" && ce.DstComponent == "a")) {
			found = true
			if ce.Jaccard <= 0 {
				t.Errorf("expected a positive component-level jaccard, got %f", ce.Jaccard)
			}
		}
	}
	if !found {
		t.Error("expected a depth-1 ComponentEdge between folders a and b")
	}
}

func TestBuildSkipsZeroWeightCommits(t *testing.T) {
	c := commitTouching("dropped", 1, 2)
	c.Weight = 0
	result, err := Build([]extractor.ExtractedCommit{c}, fixtureIdentities(), Options{MinRevisions: 1, MinCooccurrence: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Edges) != 0 {
		t.Errorf("expected zero-weight commits to contribute nothing, got %d edges", len(result.Edges))
	}
}
