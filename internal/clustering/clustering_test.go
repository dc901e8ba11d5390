package clustering

import (
	"testing"
	"time"

	"github.com/lfca/lfca/internal/extractor"
	"github.com/lfca/lfca/internal/models"
)

func fixtureEdge(src, dst int64, jaccard float64) models.Edge {
	return models.Edge{Src: src, Dst: dst, Jaccard: jaccard, PairCount: 1, SrcCount: 1, DstCount: 1}
}

func fixtureIdentities(ids ...int64) map[int64]*models.FileIdentity {
	out := make(map[int64]*models.FileIdentity, len(ids))
	for _, id := range ids {
		out[id] = &models.FileIdentity{ID: id, PathCurrent: "pkg/file.go", Revisions: 1}
	}
	return out
}

// Two tight pairs (1,2) and (3,4), with a weak bridge between 2 and 3 —
// every algorithm below should keep the two pairs apart at reasonable
// thresholds.
func twoPairGraph() ([]models.Edge, map[int64]*models.FileIdentity) {
	edges := []models.Edge{
		fixtureEdge(1, 2, 0.9),
		fixtureEdge(3, 4, 0.9),
		fixtureEdge(2, 3, 0.05),
	}
	identities := fixtureIdentities(1, 2, 3, 4)
	return edges, identities
}

func TestConnectedComponentsSeparatesDisjointGroups(t *testing.T) {
	edges, identities := twoPairGraph()
	g := buildGraph(edges, identities, "", 0.1)
	assignment := runConnectedComponents(g)

	if assignment[1] != assignment[2] {
		t.Fatalf("expected 1 and 2 in same component")
	}
	if assignment[1] == assignment[3] {
		t.Fatalf("expected 1 and 3 in different components")
	}
}

func TestLabelPropagationConverges(t *testing.T) {
	edges, identities := twoPairGraph()
	g := buildGraph(edges, identities, "", 0)
	assignment := runLabelPropagation(g, 100)

	if assignment[1] != assignment[2] {
		t.Fatalf("expected 1 and 2 co-labeled")
	}
	if assignment[3] != assignment[4] {
		t.Fatalf("expected 3 and 4 co-labeled")
	}
}

func TestLouvainFindsTwoCommunities(t *testing.T) {
	edges, identities := twoPairGraph()
	g := buildGraph(edges, identities, "", 0)
	assignment, modularity := runLouvain(g, 1.0)

	if modularity == nil {
		t.Fatalf("expected non-nil modularity for a non-empty graph")
	}
	if assignment[1] != assignment[2] {
		t.Fatalf("expected 1 and 2 co-clustered")
	}
	if assignment[1] == assignment[4] {
		t.Fatalf("expected 1 and 4 in different clusters")
	}
}

func TestDBSCANAssignsNoiseForSparsePoints(t *testing.T) {
	edges, identities := twoPairGraph()
	g := buildGraph(edges, identities, "", 0)
	assignment := runDBSCAN(g, 0.5, 2)

	if assignment[1] == noiseCluster {
		t.Fatalf("expected 1 to join a dense cluster with 2")
	}
	if assignment[1] != assignment[2] {
		t.Fatalf("expected 1 and 2 co-clustered")
	}
}

func TestDBSCANRequiresDensity(t *testing.T) {
	edges, identities := twoPairGraph()
	g := buildGraph(edges, identities, "", 0)
	assignment := runDBSCAN(g, 0.5, 10)

	for _, id := range g.nodes {
		if assignment[id] != noiseCluster {
			t.Fatalf("expected node %d to be noise with an unreachable min_samples", id)
		}
	}
}

func TestHierarchicalByNClusters(t *testing.T) {
	edges, identities := twoPairGraph()
	g := buildGraph(edges, identities, "", 0)
	assignment := runHierarchical(g, LinkageAverage, true, 2, false, 0)

	if assignment[1] != assignment[2] {
		t.Fatalf("expected 1 and 2 co-clustered")
	}
	if assignment[1] == assignment[3] {
		t.Fatalf("expected 1 and 3 in different clusters")
	}
}

func TestHierarchicalByDistanceThreshold(t *testing.T) {
	edges, identities := twoPairGraph()
	g := buildGraph(edges, identities, "", 0)
	assignment := runHierarchical(g, LinkageSingle, false, 0, true, 0.5)

	if assignment[1] != assignment[2] {
		t.Fatalf("expected 1 and 2 co-clustered under a 0.5 distance threshold")
	}
}

func TestResolveParamsRejectsUnknownAlgorithm(t *testing.T) {
	_, err := ResolveParams(Algorithm("made_up"), map[string]any{})
	if err == nil {
		t.Fatalf("expected validation error for unknown algorithm")
	}
}

func TestResolveParamsRequiresDBSCANEps(t *testing.T) {
	_, err := ResolveParams(DBSCAN, map[string]any{"min_samples": 2.0})
	if err == nil {
		t.Fatalf("expected validation error for missing eps")
	}
}

func TestResolveParamsRequiresHierarchicalChoice(t *testing.T) {
	_, err := ResolveParams(Hierarchical, map[string]any{})
	if err == nil {
		t.Fatalf("expected validation error when neither n_clusters nor distance_threshold is given")
	}
}

func TestRuntimeRunProducesSnapshot(t *testing.T) {
	edges, identities := twoPairGraph()
	commits := []extractor.ExtractedCommit{
		{
			Commit: models.Commit{ID: "c1", AuthorEmail: "a@example.com"},
			Changes: []models.Change{
				{CommitID: "c1", IdentityID: 1},
				{CommitID: "c1", IdentityID: 2},
			},
		},
	}

	params, err := ResolveParams(ConnectedComponents, map[string]any{})
	if err != nil {
		t.Fatalf("unexpected error resolving params: %v", err)
	}

	rt := New(nil)
	snap, err := rt.Run("snap-1", Input{Edges: edges, Identities: identities, Commits: commits}, params, time.Unix(0, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snap.Members) != 4 {
		t.Fatalf("expected 4 members, got %d", len(snap.Members))
	}
	if len(snap.Enrichments) == 0 {
		t.Fatalf("expected at least one enrichment")
	}
}

func TestCompareDetectsSplitAndStability(t *testing.T) {
	before := []models.ClusterMember{
		{ClusterID: 0, IdentityID: 1},
		{ClusterID: 0, IdentityID: 2},
		{ClusterID: 1, IdentityID: 3},
	}
	after := []models.ClusterMember{
		{ClusterID: 0, IdentityID: 1},
		{ClusterID: 1, IdentityID: 2},
		{ClusterID: 1, IdentityID: 3},
	}

	result := Compare(before, after)
	if result.ClustersSplit != 1 {
		t.Fatalf("expected 1 split, got %d", result.ClustersSplit)
	}
	if result.StabilityScore != 0 {
		t.Fatalf("expected stability 0 for the only pair splitting, got %f", result.StabilityScore)
	}
}

func TestBusFactorMajorityContributor(t *testing.T) {
	bf := busFactor(map[string]int64{"a": 8, "b": 1, "c": 1})
	if bf != 1 {
		t.Fatalf("expected bus factor 1 when one author holds 80%%, got %d", bf)
	}
}

func TestBusFactorEvenSplit(t *testing.T) {
	bf := busFactor(map[string]int64{"a": 1, "b": 1})
	if bf != 2 {
		t.Fatalf("expected bus factor 2 when no single author exceeds 50%%, got %d", bf)
	}
}
