package catalog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/lfca/lfca/internal/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.db")
	store, err := OpenSQLite(path, nil)
	if err != nil {
		t.Fatalf("failed to open test catalog: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestWriteRunAndReadBack(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	artifacts := RunArtifacts{
		Commits: []models.Commit{{ID: "c1", Timestamp: now, AuthorName: "a", AuthorEmail: "a@example.com", ParentCount: 1, ChangesetSize: 2}},
		Changes: []models.Change{
			{CommitID: "c1", Path: "a.go", Kind: models.ChangeKindAdded, IdentityID: 1},
			{CommitID: "c1", Path: "b.go", Kind: models.ChangeKindAdded, IdentityID: 2},
		},
		Identities: []*models.FileIdentity{
			{ID: 1, PathCurrent: "a.go", PathLatestObserved: "a.go", ExistsAtHead: true, Revisions: 5, UnfilteredRevisions: 5, FirstSeen: now, LastSeen: now},
			{ID: 2, PathCurrent: "b.go", PathLatestObserved: "b.go", ExistsAtHead: true, Revisions: 5, UnfilteredRevisions: 5, FirstSeen: now, LastSeen: now},
		},
		Edges: []models.Edge{
			{Src: 1, Dst: 2, PairCount: 5, PairWeight: 5.0, SrcCount: 5, DstCount: 5, Jaccard: 1.0, JaccardWeighted: 1.0, PDstGivenSrc: 1.0, PSrcGivenDst: 1.0},
		},
		ComponentEdges: []models.ComponentEdge{
			{Depth: 1, SrcComponent: ".", DstComponent: ".", CoChangeSum: 5, Jaccard: 0},
		},
	}

	if err := store.WriteRun(ctx, artifacts); err != nil {
		t.Fatalf("WriteRun failed: %v", err)
	}

	fi, err := store.GetFileIdentity(ctx, 1)
	if err != nil {
		t.Fatalf("GetFileIdentity failed: %v", err)
	}
	if fi.PathCurrent != "a.go" || fi.Revisions != 5 {
		t.Errorf("unexpected file identity: %+v", fi)
	}

	edge, err := store.GetEdge(ctx, 2, 1)
	if err != nil {
		t.Fatalf("GetEdge failed: %v", err)
	}
	if edge.Jaccard != 1.0 {
		t.Errorf("unexpected edge jaccard: %f", edge.Jaccard)
	}

	commit, err := store.GetCommit(ctx, "c1")
	if err != nil {
		t.Fatalf("GetCommit failed: %v", err)
	}
	if commit.AuthorEmail != "a@example.com" {
		t.Errorf("unexpected commit: %+v", commit)
	}

	changes, err := store.ListChangesForIdentity(ctx, 1, 0)
	if err != nil {
		t.Fatalf("ListChangesForIdentity failed: %v", err)
	}
	if len(changes) != 1 {
		t.Fatalf("expected 1 change for identity 1, got %d", len(changes))
	}
}

func TestGetFileIdentityNotFound(t *testing.T) {
	store := openTestStore(t)
	_, err := store.GetFileIdentity(context.Background(), 999)
	if err == nil {
		t.Fatal("expected a not-found error for a nonexistent identity")
	}
}

func TestListFilesFiltersByPrefix(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	err := store.WriteRun(ctx, RunArtifacts{
		Identities: []*models.FileIdentity{
			{ID: 1, PathCurrent: "internal/a.go", PathLatestObserved: "internal/a.go", ExistsAtHead: true, Revisions: 5, FirstSeen: now, LastSeen: now},
			{ID: 2, PathCurrent: "cmd/b.go", PathLatestObserved: "cmd/b.go", ExistsAtHead: true, Revisions: 5, FirstSeen: now, LastSeen: now},
		},
	})
	if err != nil {
		t.Fatalf("WriteRun failed: %v", err)
	}

	files, err := store.ListFiles(ctx, ListFilesOptions{Prefix: "internal/"})
	if err != nil {
		t.Fatalf("ListFiles failed: %v", err)
	}
	if len(files) != 1 || files[0].PathCurrent != "internal/a.go" {
		t.Fatalf("unexpected filtered files: %+v", files)
	}
}

func TestSaveAndGetAnalysisRun(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	run := models.AnalysisRun{
		ID: "run1", RepoID: "repo1", Stage: models.StageBuild, Percentage: 42,
		Counts:     models.RunCounts{Commits: 10, Files: 5, Edges: 3},
		Thresholds: models.Thresholds{MinRevisions: 5, MinCooccurrence: 5, TopKEdgesPerFile: 50},
		StartedAt:  now, UpdatedAt: now,
	}
	if err := store.SaveAnalysisRun(ctx, run); err != nil {
		t.Fatalf("SaveAnalysisRun failed: %v", err)
	}

	got, err := store.GetAnalysisRun(ctx, "run1")
	if err != nil {
		t.Fatalf("GetAnalysisRun failed: %v", err)
	}
	if got.Percentage != 42 || got.Counts.Commits != 10 || got.Thresholds.MinRevisions != 5 {
		t.Fatalf("unexpected run record: %+v", got)
	}
}
