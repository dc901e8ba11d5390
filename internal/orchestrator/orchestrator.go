// Package orchestrator implements the Analysis Orchestrator component
// (§4.8): it drives one repository's analysis run through the
// mirror->extract->resolve->build pipeline, enforces one active run per
// repository, supports cooperative cancellation at stage boundaries, and
// tombstones a repository's data if it is deleted mid-run.
//
// Grounded on the teacher's internal/ingestion/orchestrator.go (phased
// pipeline, errgroup fan-out for independent writes, logrus progress
// logging), generalized from a two-phase GitHub-ingestion flow into the
// five-stage commit-pipeline state machine §4.8 specifies.
package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/lfca/lfca/internal/catalog"
	"github.com/lfca/lfca/internal/config"
	"github.com/lfca/lfca/internal/extractor"
	"github.com/lfca/lfca/internal/graphbuild"
	"github.com/lfca/lfca/internal/identity"
	"github.com/lfca/lfca/internal/lfcaerrors"
	"github.com/lfca/lfca/internal/logging"
	"github.com/lfca/lfca/internal/mirror"
	"github.com/lfca/lfca/internal/models"
)

// Orchestrator owns the set of currently-running analyses and the
// catalog handle registry every stage reads and writes through.
type Orchestrator struct {
	cfg      *config.Config
	logger   *logrus.Logger
	registry *Registry

	mu      sync.Mutex
	running map[string]context.CancelFunc
	last    map[string]*models.AnalysisRun
}

// New constructs an Orchestrator bound to cfg.
func New(cfg *config.Config, logger *logrus.Logger) *Orchestrator {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Orchestrator{
		cfg:      cfg,
		logger:   logger,
		registry: NewRegistry(cfg, logger),
		running:  make(map[string]context.CancelFunc),
		last:     make(map[string]*models.AnalysisRun),
	}
}

// Registry exposes the orchestrator's catalog-handle registry so callers
// (the Query Engine, httpapi) can read committed state without opening
// their own competing handles.
func (o *Orchestrator) Registry() *Registry {
	return o.registry
}

// Start begins a new analysis run for repoID against source (a local path
// or clone URL), returning immediately with the queued run record. A
// second Start while a run for the same repository is active returns a
// StateError, per §4.8's single-active-run-per-repository invariant.
func (o *Orchestrator) Start(repoID, source string) (*models.AnalysisRun, error) {
	o.mu.Lock()
	if _, ok := o.running[repoID]; ok {
		o.mu.Unlock()
		return nil, lfcaerrors.State("analysis already running")
	}

	now := time.Now()
	run := &models.AnalysisRun{
		ID:         uuid.NewString(),
		RepoID:     repoID,
		Stage:      models.StageQueued,
		Percentage: 0,
		Thresholds: o.resolveThresholds(),
		StartedAt:  now,
		UpdatedAt:  now,
	}

	runCtx, cancel := context.WithCancel(context.Background())
	o.running[repoID] = cancel
	o.last[repoID] = run
	o.mu.Unlock()

	go o.execute(runCtx, run, source)

	return run, nil
}

func (o *Orchestrator) resolveThresholds() models.Thresholds {
	return models.Thresholds{
		MinRevisions:              o.cfg.Graph.MinRevisions,
		MaxChangesetSize:          o.cfg.Extractor.MaxChangesetSize,
		MinCooccurrence:           o.cfg.Graph.MinCooccurrence,
		MinComponentCooccurrence:  o.cfg.Graph.MinComponentCooccurrence,
		TopKEdgesPerFile:          o.cfg.Graph.TopKEdgesPerFile,
		RenameSimilarityThreshold: o.cfg.Extractor.RenameSimilarityThreshold,
		MergeWeight:               o.cfg.Extractor.MergeWeight,
	}
}

// Cancel requests cooperative cancellation of repoID's active run. The
// run stops at its next stage boundary rather than mid-stage.
func (o *Orchestrator) Cancel(repoID string) error {
	o.mu.Lock()
	cancel, ok := o.running[repoID]
	o.mu.Unlock()
	if !ok {
		return lfcaerrors.NotFoundf("no running analysis for repository %q", repoID)
	}
	cancel()
	return nil
}

// Status returns repoID's most recent run record: the in-memory record
// while a run is active or was the last one this process drove, falling
// back to the persisted catalog record, and finally a synthesized
// not_started record if the repository has never been analyzed.
func (o *Orchestrator) Status(ctx context.Context, repoID string) (*models.AnalysisRun, error) {
	o.mu.Lock()
	run, ok := o.last[repoID]
	o.mu.Unlock()
	if ok {
		runCopy := *run
		return &runCopy, nil
	}

	store, err := o.registry.Get(repoID)
	if err != nil {
		return nil, err
	}
	persisted, err := store.GetLatestAnalysisRun(ctx, repoID)
	if err != nil {
		if lfcaerrors.GetKind(err) == lfcaerrors.KindNotFound {
			return &models.AnalysisRun{RepoID: repoID, Stage: models.StageNotStarted}, nil
		}
		return nil, err
	}
	return persisted, nil
}

// Delete cancels any active run for repoID and moves its on-disk data to
// a timestamped tombstone directory rather than removing it outright.
func (o *Orchestrator) Delete(repoID string) error {
	o.mu.Lock()
	if cancel, ok := o.running[repoID]; ok {
		cancel()
	}
	delete(o.running, repoID)
	delete(o.last, repoID)
	o.mu.Unlock()

	o.registry.Close(repoID)

	dir := repoDataDir(o.cfg, repoID)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil
	}

	tombstoneRoot := filepath.Join(o.cfg.DataDir, "tombstones")
	if err := os.MkdirAll(tombstoneRoot, 0o755); err != nil {
		return lfcaerrors.IOf(err, "failed to create tombstone directory")
	}

	dest := filepath.Join(tombstoneRoot, sanitizeRepoID(repoID)+"-"+time.Now().UTC().Format("20060102T150405"))
	if err := os.Rename(dir, dest); err != nil {
		return lfcaerrors.IOf(err, "failed to tombstone repository data for %q", repoID)
	}
	return nil
}

// Shutdown releases every cached catalog handle.
func (o *Orchestrator) Shutdown() {
	o.registry.CloseAll()
}

func (o *Orchestrator) execute(ctx context.Context, run *models.AnalysisRun, source string) {
	logger := o.logger.WithFields(logrus.Fields{"run_id": run.ID, "repo_id": run.RepoID})

	defer func() {
		o.mu.Lock()
		delete(o.running, run.RepoID)
		o.mu.Unlock()
	}()

	if o.canceled(ctx, run) {
		return
	}

	handle, err := mirror.Mirror(source, o.cfg.Mirror.CacheDir, o.cfg.Mirror.ShallowDepth, o.logger)
	if err != nil {
		o.fail(run, err)
		return
	}
	o.advance(run, models.StageMirror, 10)
	logger.Info("mirror stage complete")

	if o.canceled(ctx, run) {
		return
	}

	mergePolicy, err := extractor.ParseMergePolicy(o.cfg.Extractor.MergePolicy)
	if err != nil {
		o.fail(run, err)
		return
	}
	bulkPolicy, err := extractor.ParseBulkPolicy(o.cfg.Extractor.BulkPolicy)
	if err != nil {
		o.fail(run, err)
		return
	}

	raw, rawErr := handle.Walk(mirror.WalkOptions{RenameSimilarityThreshold: run.Thresholds.RenameSimilarityThreshold})
	ex := extractor.New(extractor.Options{
		RenameSimilarityThreshold: run.Thresholds.RenameSimilarityThreshold,
		MergePolicy:               mergePolicy,
		MergeWeight:               run.Thresholds.MergeWeight,
		MaxChangesetSize:          run.Thresholds.MaxChangesetSize,
		BulkPolicy:                bulkPolicy,
	}, o.logger)

	commits, renames, err := ex.Extract(raw, rawErr)
	if err != nil {
		o.fail(run, err)
		return
	}

	o.mu.Lock()
	run.Counts.Commits = int64(len(commits))
	o.mu.Unlock()
	o.advance(run, models.StageExtract, 40)
	logger.WithField("commits", len(commits)).Info("extract stage complete")

	if o.canceled(ctx, run) {
		return
	}

	resolver := identity.New()
	for i := range commits {
		for j := range commits[i].Changes {
			if rej := resolver.Observe(&commits[i].Changes[j], commits[i].Commit.Timestamp); rej != nil {
				logger.WithFields(logrus.Fields{
					"old_path": rej.OldPath,
					"new_path": rej.NewPath,
				}).Warn("cyclic rename treated as independent")
			}
		}
	}
	if headPaths, herr := handle.ListHeadPaths(); herr != nil {
		logger.WithError(herr).Warn("failed to list head paths, ExistsAtHead may be stale")
	} else {
		resolver.ReconcileHeads(headPaths)
	}

	identities := resolver.Identities()
	o.mu.Lock()
	run.Counts.Files = int64(len(identities))
	o.mu.Unlock()
	o.advance(run, models.StageResolve, 60)
	logger.WithField("files", len(identities)).Info("resolve stage complete")

	if o.canceled(ctx, run) {
		return
	}

	result, err := graphbuild.Build(commits, identities, graphbuild.Options{
		MinRevisions:             run.Thresholds.MinRevisions,
		MinCooccurrence:          run.Thresholds.MinCooccurrence,
		TopKEdgesPerFile:         run.Thresholds.TopKEdgesPerFile,
		MinComponentCooccurrence: run.Thresholds.MinComponentCooccurrence,
		Shards:                   o.cfg.Concurrency.BuildShards,
	})
	if err != nil {
		o.fail(run, err)
		return
	}

	o.mu.Lock()
	run.Counts.Edges = int64(len(result.Edges))
	o.mu.Unlock()
	o.advance(run, models.StageBuild, 80)
	logger.WithField("edges", len(result.Edges)).Info("build stage complete")

	if o.canceled(ctx, run) {
		return
	}

	finalRun := *run
	finalRun.Stage = models.StageDone
	finalRun.Percentage = 100
	finalRun.UpdatedAt = time.Now()

	artifacts := catalog.RunArtifacts{
		Commits:        flattenCommits(commits),
		Changes:        flattenChanges(commits),
		Identities:     flattenIdentities(identities),
		Renames:        renames,
		Edges:          result.Edges,
		ComponentEdges: result.ComponentEdges,
	}

	if err := o.persist(ctx, &finalRun, artifacts); err != nil {
		o.fail(run, err)
		return
	}

	o.mu.Lock()
	*run = finalRun
	o.mu.Unlock()

	o.logger.WithFields(logging.RunFields(run.ID, run.RepoID, string(run.Stage))).WithFields(logrus.Fields{
		"commits": run.Counts.Commits,
		"files":   run.Counts.Files,
		"edges":   run.Counts.Edges,
	}).Info("analysis run complete")
}

// persist writes artifacts and the terminal run record, atomically
// swapping them into place for SQLite (staging directory -> rename). For
// Postgres the artifacts are committed in one transaction and the run
// record is saved after it, in a separate write.
func (o *Orchestrator) persist(ctx context.Context, run *models.AnalysisRun, artifacts catalog.RunArtifacts) error {
	if o.cfg.Catalog.Backend == "postgres" {
		store, err := o.registry.Get(run.RepoID)
		if err != nil {
			return err
		}
		if err := store.WriteRun(ctx, artifacts); err != nil {
			return err
		}
		return store.SaveAnalysisRun(ctx, *run)
	}

	dir := repoDataDir(o.cfg, run.RepoID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return lfcaerrors.IOf(err, "failed to create repository data directory %s", dir)
	}

	stagingStore, stagingPath, err := catalog.OpenSQLiteStaging(dir, run.ID, o.logger)
	if err != nil {
		return err
	}
	if o.cfg.Catalog.GraphIndexURI != "" {
		w, gerr := catalog.NewGraphIndexWriter(ctx, o.cfg.Catalog.GraphIndexURI, o.cfg.Catalog.GraphIndexUser, o.cfg.Catalog.GraphIndexPassword, o.cfg.Catalog.GraphIndexDatabase)
		if gerr != nil {
			o.logger.WithError(gerr).Warn("failed to attach graph index backend, continuing without it")
		} else {
			stagingStore = stagingStore.WithGraphIndex(w)
		}
	}

	if err := stagingStore.WriteRun(ctx, artifacts); err != nil {
		catalog.DiscardSQLiteStaging(stagingStore, stagingPath)
		return err
	}
	if err := stagingStore.SaveAnalysisRun(ctx, *run); err != nil {
		catalog.DiscardSQLiteStaging(stagingStore, stagingPath)
		return err
	}
	if err := catalog.PromoteSQLiteStaging(stagingStore, stagingPath, dir); err != nil {
		return err
	}

	// Any cached handle for this repository now points at the replaced
	// file's pre-rename content; drop it so the next read reopens fresh.
	o.registry.Reopen(run.RepoID)
	return nil
}

func (o *Orchestrator) advance(run *models.AnalysisRun, stage models.RunStage, percentage int) {
	o.mu.Lock()
	run.Stage = stage
	run.Percentage = percentage
	run.UpdatedAt = time.Now()
	o.mu.Unlock()
}

func (o *Orchestrator) fail(run *models.AnalysisRun, err error) {
	kind := lfcaerrors.GetKind(err)

	o.mu.Lock()
	run.Stage = models.StageFailed
	run.ErrorKind = kind.String()
	run.ErrorMsg = err.Error()
	run.UpdatedAt = time.Now()
	failedCopy := *run
	o.mu.Unlock()

	o.logger.WithFields(logrus.Fields{
		"run_id":     run.ID,
		"repo_id":    run.RepoID,
		"error_kind": kind.String(),
	}).WithError(err).Error("analysis run failed")

	// Best-effort: persist the failure so status survives after this run
	// falls out of the in-memory map (e.g. a later Start for the same
	// repository replaces the map entry).
	if store, serr := o.registry.Get(run.RepoID); serr == nil {
		store.SaveAnalysisRun(context.Background(), failedCopy)
	}
}

func (o *Orchestrator) canceled(ctx context.Context, run *models.AnalysisRun) bool {
	select {
	case <-ctx.Done():
		o.mu.Lock()
		run.Stage = models.StageFailed
		run.ErrorKind = lfcaerrors.KindState.String()
		run.ErrorMsg = "canceled"
		run.UpdatedAt = time.Now()
		o.mu.Unlock()
		return true
	default:
		return false
	}
}
