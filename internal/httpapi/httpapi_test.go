package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/lfca/lfca/internal/catalog"
	"github.com/lfca/lfca/internal/config"
	"github.com/lfca/lfca/internal/models"
	"github.com/lfca/lfca/internal/orchestrator"
	"github.com/lfca/lfca/internal/query"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.DataDir = dir
	cfg.Catalog.Backend = "sqlite"
	cfg.Mirror.CacheDir = filepath.Join(dir, "mirrors")
	orch := orchestrator.New(cfg, nil)
	t.Cleanup(orch.Shutdown)
	return New(orch, nil)
}

// seedRepo opens repoID's catalog through the orchestrator's registry (the
// same path the real pipeline writes through) and populates it with a
// small fixture dataset.
func seedRepo(t *testing.T, s *Server, repoID string) {
	t.Helper()
	store, err := s.orch.Registry().Get(repoID)
	if err != nil {
		t.Fatalf("failed to open store for %s: %v", repoID, err)
	}
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
		t.Fatalf("failed to seed fixture data: %v", err)
	}
}

func doRequest(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRepositoryLifecycle(t *testing.T) {
	s := testServer(t)
	h := s.Handler()

	rec := doRequest(t, h, http.MethodPost, "/repositories", map[string]string{"source": "/tmp/repo"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var repo models.Repository
	if err := json.Unmarshal(rec.Body.Bytes(), &repo); err != nil {
		t.Fatalf("failed to decode repository: %v", err)
	}
	if repo.ID == "" {
		t.Fatalf("expected a generated repository id")
	}

	// GET on the single-resource route must return the record, not 405 —
	// the behavior a prior QA pass flagged as missing.
	rec = doRequest(t, h, http.MethodGet, "/repositories/"+repo.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on GET /repositories/{id}, got %d", rec.Code)
	}

	rec = doRequest(t, h, http.MethodGet, "/repositories", nil)
	var list []models.Repository
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("failed to decode repository list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected one repository, got %d", len(list))
	}

	rec = doRequest(t, h, http.MethodDelete, "/repositories/"+repo.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 on delete, got %d", rec.Code)
	}

	rec = doRequest(t, h, http.MethodGet, "/repositories/"+repo.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for deleted repository, got %d", rec.Code)
	}
	var envelope map[string]map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("failed to decode error envelope: %v", err)
	}
	if envelope["error"]["code"] != "HTTP_404" {
		t.Fatalf("expected HTTP_404, got %v", envelope["error"])
	}
}

func TestFileAndCouplingEndpoints(t *testing.T) {
	s := testServer(t)
	seedRepo(t, s, "repo1")
	h := s.Handler()

	rec := doRequest(t, h, http.MethodGet, "/repositories/repo1/files", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var files []models.FileIdentity
	if err := json.Unmarshal(rec.Body.Bytes(), &files); err != nil {
		t.Fatalf("failed to decode files: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(files))
	}

	rec = doRequest(t, h, http.MethodGet, "/repositories/repo1/coupling?path=a/one.go&metric=jaccard", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var coupled []query.CoupledFile
	if err := json.Unmarshal(rec.Body.Bytes(), &coupled); err != nil {
		t.Fatalf("failed to decode coupled files: %v", err)
	}
	if len(coupled) != 1 || coupled[0].Path != "a/two.go" || coupled[0].Value != 1.0 {
		t.Fatalf("unexpected coupling result: %+v", coupled)
	}

	rec = doRequest(t, h, http.MethodGet, "/repositories/repo1/coupling?path=a/one.go&metric=jaccard&min_weight=10", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var excluded []query.CoupledFile
	if err := json.Unmarshal(rec.Body.Bytes(), &excluded); err != nil {
		t.Fatalf("failed to decode coupled files: %v", err)
	}
	if len(excluded) != 0 {
		t.Fatalf("expected empty sequence once min_weight excludes the only edge, got %d", len(excluded))
	}

	rec = doRequest(t, h, http.MethodGet, "/repositories/repo1/coupling", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing path, got %d", rec.Code)
	}

	rec = doRequest(t, h, http.MethodGet, "/repositories/repo1/hotspots", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var hotspots []models.FileIdentity
	if err := json.Unmarshal(rec.Body.Bytes(), &hotspots); err != nil {
		t.Fatalf("failed to decode hotspots: %v", err)
	}
	if len(hotspots) != 2 {
		t.Fatalf("expected hotspots as a flat array of 2, got %d", len(hotspots))
	}

	rec = doRequest(t, h, http.MethodGet, "/repositories/repo1/stats", nil)
	var stats repoStats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("failed to decode stats: %v", err)
	}
	if stats.Commits != 2 || stats.Files != 2 || stats.Edges != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestClusteringRunAndCompare(t *testing.T) {
	s := testServer(t)
	seedRepo(t, s, "repo1")
	h := s.Handler()

	rec := doRequest(t, h, http.MethodPost, "/repositories/repo1/clustering/run", map[string]any{
		"algorithm": "connected_components",
		"name":      "first",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var snapA models.ClusteringSnapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snapA); err != nil {
		t.Fatalf("failed to decode snapshot: %v", err)
	}
	if len(snapA.Enrichments) == 0 {
		t.Fatalf("expected at least one cluster enrichment")
	}

	rec = doRequest(t, h, http.MethodGet, "/repositories/repo1/clustering/snapshots", nil)
	var snaps []models.ClusteringSnapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snaps); err != nil {
		t.Fatalf("failed to decode snapshot list: %v", err)
	}
	if len(snaps) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(snaps))
	}

	rec = doRequest(t, h, http.MethodPost, "/repositories/repo1/clustering/run", map[string]any{
		"algorithm": "connected_components",
		"name":      "second",
	})
	var snapB models.ClusteringSnapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snapB); err != nil {
		t.Fatalf("failed to decode second snapshot: %v", err)
	}

	rec = doRequest(t, h, http.MethodPost, "/repositories/repo1/clustering/compare", map[string]string{
		"snapshot_a": snapA.ID,
		"snapshot_b": snapB.ID,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, h, http.MethodDelete, "/repositories/repo1/clustering/snapshots/"+snapA.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	rec = doRequest(t, h, http.MethodGet, "/repositories/repo1/clustering/snapshots/"+snapA.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for deleted snapshot, got %d", rec.Code)
	}
}
