package orchestrator

import (
	"path/filepath"
	"strings"

	"github.com/lfca/lfca/internal/config"
)

// repoDataDir returns the per-repository data directory under cfg.DataDir
// — "per repository, a bulk store ... and a catalog store" — so each
// SQLite-backed repository gets its own catalog.db rather than sharing
// one file keyed by a repo_id column.
func repoDataDir(cfg *config.Config, repoID string) string {
	return filepath.Join(cfg.DataDir, "repos", sanitizeRepoID(repoID))
}

func sanitizeRepoID(repoID string) string {
	return strings.NewReplacer("/", "_", "\\", "_", ":", "_", " ", "_").Replace(repoID)
}
