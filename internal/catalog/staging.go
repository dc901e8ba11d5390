package catalog

import (
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/lfca/lfca/internal/lfcaerrors"
)

// OpenSQLiteStaging opens a fresh SQLite catalog under dataDir's staging
// subdirectory for runID, with schema initialized but no prior run's
// data. Writers fill it via WriteRun; PromoteSQLiteStaging then swaps it
// into place as the canonical catalog, so readers of the live catalog
// never observe a partially-written run (§4.5's "partial writes are not
// observable" contract).
func OpenSQLiteStaging(dataDir, runID string, logger *logrus.Logger) (*Store, string, error) {
	stagingDir := filepath.Join(dataDir, "staging")
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return nil, "", lfcaerrors.IOf(err, "failed to create staging directory")
	}

	stagingPath := filepath.Join(stagingDir, runID+".db")
	os.Remove(stagingPath) // a retried run starts from a clean staging file

	store, err := OpenSQLite(stagingPath, logger)
	if err != nil {
		return nil, "", err
	}
	return store, stagingPath, nil
}

// PromoteSQLiteStaging closes the staging Store and atomically replaces
// dataDir's live catalog.db with it via os.Rename (atomic on the same
// filesystem, which dataDir/staging and dataDir always share).
func PromoteSQLiteStaging(store *Store, stagingPath, dataDir string) error {
	if err := store.db.Close(); err != nil {
		return lfcaerrors.IOf(err, "failed to close staging catalog before promotion")
	}

	livePath := filepath.Join(dataDir, "catalog.db")
	if err := os.Rename(stagingPath, livePath); err != nil {
		return lfcaerrors.IOf(err, "failed to promote staging catalog to %s", livePath)
	}
	// SQLite's WAL/SHM sidecar files belong to the now-discarded staging
	// handle; stale ones would otherwise shadow the promoted file's own.
	os.Remove(livePath + "-wal")
	os.Remove(livePath + "-shm")
	os.Remove(stagingPath + "-wal")
	os.Remove(stagingPath + "-shm")
	return nil
}

// DiscardSQLiteStaging closes and removes a staging catalog that a failed
// run should not promote.
func DiscardSQLiteStaging(store *Store, stagingPath string) {
	store.db.Close()
	os.Remove(stagingPath)
	os.Remove(stagingPath + "-wal")
	os.Remove(stagingPath + "-shm")
}
