package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/lfca/lfca/internal/catalog"
	"github.com/lfca/lfca/internal/config"
	"github.com/lfca/lfca/internal/lfcaerrors"
)

// Registry is the "small process-local registry of open catalog handles"
// named in §6's environment contract: it lazily opens and caches one
// *catalog.Store per repository (SQLite) — or one shared Store for the
// whole process (Postgres, since a single DSN names one database rather
// than a per-repo one; multi-repo Postgres deployments are expected to
// run one LFCA process per database, a deliberate limitation noted in
// DESIGN.md) — and drops a cached handle on Reopen so a later Get picks
// up a just-promoted catalog file rather than continuing to read the
// file descriptor's pre-rename content.
type Registry struct {
	cfg    *config.Config
	logger *logrus.Logger

	mu     sync.Mutex
	stores map[string]*catalog.Store
}

// NewRegistry constructs an empty Registry.
func NewRegistry(cfg *config.Config, logger *logrus.Logger) *Registry {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Registry{cfg: cfg, logger: logger, stores: make(map[string]*catalog.Store)}
}

func (r *Registry) key(repoID string) string {
	if r.cfg.Catalog.Backend == "postgres" {
		return "__postgres__"
	}
	return repoID
}

// Get returns the cached Store for repoID, opening (and, for SQLite,
// creating the repository's data directory) if necessary.
func (r *Registry) Get(repoID string) (*catalog.Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := r.key(repoID)
	if s, ok := r.stores[k]; ok {
		return s, nil
	}

	store, err := r.open(repoID)
	if err != nil {
		return nil, err
	}
	r.stores[k] = store
	return store, nil
}

func (r *Registry) open(repoID string) (*catalog.Store, error) {
	var store *catalog.Store
	var err error

	switch r.cfg.Catalog.Backend {
	case "postgres":
		store, err = catalog.OpenPostgres(r.cfg.Catalog.PostgresDSN, r.logger)
	default:
		dir := repoDataDir(r.cfg, repoID)
		if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
			return nil, lfcaerrors.IOf(mkErr, "failed to create repository data directory %s", dir)
		}
		store, err = catalog.OpenSQLite(filepath.Join(dir, "catalog.db"), r.logger)
	}
	if err != nil {
		return nil, err
	}

	if r.cfg.Catalog.GraphIndexURI != "" {
		w, gerr := catalog.NewGraphIndexWriter(context.Background(), r.cfg.Catalog.GraphIndexURI, r.cfg.Catalog.GraphIndexUser, r.cfg.Catalog.GraphIndexPassword, r.cfg.Catalog.GraphIndexDatabase)
		if gerr != nil {
			r.logger.WithError(gerr).Warn("failed to attach graph index backend, continuing without it")
		} else {
			store = store.WithGraphIndex(w)
		}
	}

	return store, nil
}

// Reopen closes and discards repoID's cached handle, if any, so the next
// Get reflects an on-disk swap made outside this handle (e.g.
// PromoteSQLiteStaging's atomic rename).
func (r *Registry) Reopen(repoID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := r.key(repoID)
	if s, ok := r.stores[k]; ok {
		s.Close()
		delete(r.stores, k)
	}
}

// Close is Reopen's public name for the delete path: drop and release the
// cached handle without expecting a new one to replace it immediately.
func (r *Registry) Close(repoID string) {
	r.Reopen(repoID)
}

// CloseAll releases every cached handle, for process shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, s := range r.stores {
		s.Close()
		delete(r.stores, k)
	}
}
