package query

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/lfca/lfca/internal/catalog"
	"github.com/lfca/lfca/internal/models"
)

func seededEngine(t *testing.T) *Engine {
	t.Helper()
	store, err := catalog.OpenSQLite(filepath.Join(t.TempDir(), "catalog.db"), nil)
	if err != nil {
		t.Fatalf("failed to open catalog: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	now := time.Now().UTC().Truncate(time.Second)
	artifacts := catalog.RunArtifacts{
		Commits: []models.Commit{
			{ID: "c1", Timestamp: now, AuthorName: "alice", AuthorEmail: "alice@example.com", ParentCount: 1, ChangesetSize: 2},
			{ID: "c2", Timestamp: now.Add(time.Hour), AuthorName: "bob", AuthorEmail: "bob@example.com", ParentCount: 1, ChangesetSize: 2},
		},
		Changes: []models.Change{
			{CommitID: "c1", Path: "a/one.go", Kind: models.ChangeKindAdded, IdentityID: 1},
			{CommitID: "c1", Path: "a/two.go", Kind: models.ChangeKindAdded, IdentityID: 2},
			{CommitID: "c2", Path: "a/one.go", Kind: models.ChangeKindModified, IdentityID: 1},
			{CommitID: "c2", Path: "a/two.go", Kind: models.ChangeKindModified, IdentityID: 2},
		},
		Identities: []*models.FileIdentity{
			{ID: 1, PathCurrent: "a/one.go", PathLatestObserved: "a/one.go", ExistsAtHead: true, Revisions: 2, UnfilteredRevisions: 2, FirstSeen: now, LastSeen: now},
			{ID: 2, PathCurrent: "a/two.go", PathLatestObserved: "a/two.go", ExistsAtHead: true, Revisions: 2, UnfilteredRevisions: 2, FirstSeen: now, LastSeen: now},
		},
		Edges: []models.Edge{
			{Src: 1, Dst: 2, PairCount: 2, PairWeight: 2.0, SrcCount: 2, DstCount: 2, Jaccard: 1.0, JaccardWeighted: 1.0, PDstGivenSrc: 1.0, PSrcGivenDst: 1.0},
		},
	}
	if err := store.WriteRun(context.Background(), artifacts); err != nil {
		t.Fatalf("WriteRun failed: %v", err)
	}
	return New(store)
}

func TestCoupling(t *testing.T) {
	e := seededEngine(t)
	coupled, err := e.Coupling(context.Background(), "a/two.go", "jaccard", 0, 0, false)
	if err != nil {
		t.Fatalf("Coupling failed: %v", err)
	}
	if len(coupled) != 1 {
		t.Fatalf("expected 1 coupled file, got %d", len(coupled))
	}
	if coupled[0].Path != "a/one.go" || coupled[0].Value != 1.0 {
		t.Errorf("unexpected result: %+v", coupled[0])
	}
}

func TestCouplingEmptyWhenNoEdges(t *testing.T) {
	e := seededEngine(t)
	coupled, err := e.Coupling(context.Background(), "a/one.go", "jaccard", 10, 0, false)
	if err != nil {
		t.Fatalf("Coupling failed: %v", err)
	}
	if len(coupled) != 0 {
		t.Fatalf("expected empty sequence once min_weight excludes the only edge, got %d", len(coupled))
	}
}

func TestCouplingUnknownMetricIsValidationError(t *testing.T) {
	e := seededEngine(t)
	if _, err := e.Coupling(context.Background(), "a/one.go", "bogus", 0, 0, false); err == nil {
		t.Fatal("expected a validation error for an unrecognized metric")
	}
}

func TestCouplingGraphIncludesNeighborEdges(t *testing.T) {
	e := seededEngine(t)
	graph, err := e.CouplingGraph(context.Background(), "a/one.go", 0)
	if err != nil {
		t.Fatalf("CouplingGraph failed: %v", err)
	}
	if graph.Focus != "a/one.go" {
		t.Errorf("unexpected focus: %s", graph.Focus)
	}
	if len(graph.Nodes) != 2 {
		t.Fatalf("expected 2 nodes (focus + neighbor), got %d", len(graph.Nodes))
	}
	if len(graph.Edges) != 1 {
		t.Fatalf("expected 1 edge, got %d", len(graph.Edges))
	}
}

func TestFileDetailsIncludesLanguage(t *testing.T) {
	e := seededEngine(t)
	detail, err := e.FileDetails(context.Background(), "a/one.go")
	if err != nil {
		t.Fatalf("FileDetails failed: %v", err)
	}
	if detail.Language != "Go" {
		t.Errorf("expected language Go, got %q", detail.Language)
	}
}

func TestCouplingEvidence(t *testing.T) {
	e := seededEngine(t)
	evidence, err := e.CouplingEvidence(context.Background(), "a/one.go", "a/two.go", 0)
	if err != nil {
		t.Fatalf("CouplingEvidence failed: %v", err)
	}
	if len(evidence) != 2 {
		t.Fatalf("expected 2 shared commits, got %d", len(evidence))
	}
}

func TestFileAuthors(t *testing.T) {
	e := seededEngine(t)
	authors, err := e.FileAuthors(context.Background(), "a/one.go")
	if err != nil {
		t.Fatalf("FileAuthors failed: %v", err)
	}
	if len(authors) != 2 {
		t.Fatalf("expected 2 distinct authors, got %d", len(authors))
	}
}

func TestFolderDetailsRejectsInvalidDepth(t *testing.T) {
	e := seededEngine(t)
	if _, err := e.FolderDetails(context.Background(), "a", 4); err == nil {
		t.Fatal("expected a validation error for depth 4")
	}
}

func TestFilesPrefixFilter(t *testing.T) {
	e := seededEngine(t)
	files, err := e.Files(context.Background(), catalog.ListFilesOptions{Prefix: "a/"})
	if err != nil {
		t.Fatalf("Files failed: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 files under a/, got %d", len(files))
	}
}
