package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lfca/lfca/internal/config"
	"github.com/lfca/lfca/internal/lfcaerrors"
	"github.com/lfca/lfca/internal/models"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.DataDir = dir
	cfg.Catalog.Backend = "sqlite"
	cfg.Mirror.CacheDir = filepath.Join(dir, "mirrors")
	return cfg
}

func TestStartRejectsConcurrentRun(t *testing.T) {
	o := New(testConfig(t), nil)
	o.running["repo1"] = func() {}

	_, err := o.Start("repo1", "irrelevant")
	if err == nil {
		t.Fatalf("expected an error for a concurrent start")
	}
	if lfcaerrors.GetKind(err) != lfcaerrors.KindState {
		t.Fatalf("expected a StateError, got %v", err)
	}
}

func TestStatusSynthesizesNotStartedForUnknownRepository(t *testing.T) {
	o := New(testConfig(t), nil)

	run, err := o.Status(context.Background(), "never-analyzed")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.Stage != models.StageNotStarted {
		t.Fatalf("expected not_started, got %s", run.Stage)
	}
}

func TestCancelUnknownRepositoryReturnsNotFound(t *testing.T) {
	o := New(testConfig(t), nil)

	err := o.Cancel("nope")
	if err == nil {
		t.Fatalf("expected an error canceling an unknown repository")
	}
	if lfcaerrors.GetKind(err) != lfcaerrors.KindNotFound {
		t.Fatalf("expected a NotFound error, got %v", err)
	}
}

func TestDeleteTombstonesRepositoryData(t *testing.T) {
	cfg := testConfig(t)
	o := New(cfg, nil)

	dir := repoDataDir(cfg, "repo1")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("failed to set up fixture directory: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "catalog.db"), []byte("fixture"), 0o644); err != nil {
		t.Fatalf("failed to write fixture file: %v", err)
	}

	if err := o.Delete("repo1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("expected original directory to be gone")
	}

	entries, err := os.ReadDir(filepath.Join(cfg.DataDir, "tombstones"))
	if err != nil {
		t.Fatalf("failed to read tombstones directory: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly one tombstone, got %d", len(entries))
	}
}

func TestStartFailsOnNonGitSource(t *testing.T) {
	cfg := testConfig(t)
	o := New(cfg, nil)

	source := t.TempDir() // exists, but has no .git directory

	run, err := o.Start("repo-bad-source", source)
	if err != nil {
		t.Fatalf("unexpected synchronous error: %v", err)
	}
	if run.Stage != models.StageQueued {
		t.Fatalf("expected the initial record to be queued, got %s", run.Stage)
	}

	deadline := time.Now().Add(2 * time.Second)
	var final *models.AnalysisRun
	for time.Now().Before(deadline) {
		final, err = o.Status(context.Background(), "repo-bad-source")
		if err != nil {
			t.Fatalf("unexpected error polling status: %v", err)
		}
		if final.Stage == models.StageFailed {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	if final.Stage != models.StageFailed {
		t.Fatalf("expected the run to fail against a non-git source, got %s", final.Stage)
	}
	if final.ErrorKind != lfcaerrors.KindIO.String() {
		t.Fatalf("expected an IOError, got %s", final.ErrorKind)
	}
}
