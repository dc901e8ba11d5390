package catalog

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/lfca/lfca/internal/lfcaerrors"
	"github.com/lfca/lfca/internal/models"
)

// RunArtifacts bundles everything one analysis run produces, the unit
// WriteRun persists atomically.
type RunArtifacts struct {
	Commits        []models.Commit
	Changes        []models.Change
	Identities     []*models.FileIdentity
	Renames        []models.RenameEvent
	Edges          []models.Edge
	ComponentEdges []models.ComponentEdge
}

// WriteRun persists one run's artifacts in a single transaction: on a
// SQLite-staging Store this is writing into an as-yet-unpromoted file, on
// Postgres this is a delete-then-insert scoped to nothing else (the
// catalog holds exactly one logical snapshot at a time, matching §4.5's
// "one run writes one consistent set of artifacts"). Either way, readers
// never observe a partial write: SQLite readers only ever see the
// promoted file, Postgres readers only ever see a committed transaction.
func (s *Store) WriteRun(ctx context.Context, artifacts RunArtifacts) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return lfcaerrors.IOf(err, "failed to begin catalog write transaction")
	}
	defer tx.Rollback()

	if s.backend == BackendPostgres {
		for _, table := range []string{"commits", "changes", "file_identities", "rename_lineage", "edges", "component_edges"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return lfcaerrors.IOf(err, "failed to clear %s before catalog write", table)
			}
		}
	}

	if err := writeCommits(ctx, tx, s, artifacts.Commits); err != nil {
		return err
	}
	if err := writeChanges(ctx, tx, s, artifacts.Changes); err != nil {
		return err
	}
	if err := writeIdentities(ctx, tx, s, artifacts.Identities); err != nil {
		return err
	}
	if err := writeRenames(ctx, tx, s, artifacts.Renames); err != nil {
		return err
	}
	if err := writeEdges(ctx, tx, s, artifacts.Edges); err != nil {
		return err
	}
	if err := writeComponentEdges(ctx, tx, s, artifacts.ComponentEdges); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return lfcaerrors.IOf(err, "failed to commit catalog write transaction")
	}

	if s.graphIndex != nil {
		if err := s.graphIndex.WriteEdges(ctx, artifacts.Edges, artifacts.Identities); err != nil {
			s.logger.WithError(err).Warn("graph index mirror write failed; SQL catalog remains authoritative")
		}
	}

	return nil
}

func writeCommits(ctx context.Context, tx txExecer, s *Store, commits []models.Commit) error {
	if len(commits) == 0 {
		return nil
	}
	query := s.rebind(`INSERT INTO commits (id, timestamp, author_name, author_email, parent_count, changeset_size)
		VALUES (?, ?, ?, ?, ?, ?)`)
	for _, c := range commits {
		if _, err := tx.ExecContext(ctx, query, c.ID, c.Timestamp, c.AuthorName, c.AuthorEmail, c.ParentCount, c.ChangesetSize); err != nil {
			return lfcaerrors.IOf(err, "failed to insert commit %s", c.ID)
		}
	}
	return nil
}

func writeChanges(ctx context.Context, tx txExecer, s *Store, changes []models.Change) error {
	if len(changes) == 0 {
		return nil
	}
	query := s.rebind(`INSERT INTO changes (commit_id, path, kind, old_path, similarity, identity_id)
		VALUES (?, ?, ?, ?, ?, ?)`)
	for _, c := range changes {
		var oldPath *string
		var similarity *int
		if c.Rename != nil {
			oldPath = &c.Rename.OldPath
			similarity = &c.Rename.Similarity
		}
		if _, err := tx.ExecContext(ctx, query, c.CommitID, c.Path, int(c.Kind), oldPath, similarity, c.IdentityID); err != nil {
			return lfcaerrors.IOf(err, "failed to insert change for commit %s path %s", c.CommitID, c.Path)
		}
	}
	return nil
}

func writeIdentities(ctx context.Context, tx txExecer, s *Store, identities []*models.FileIdentity) error {
	if len(identities) == 0 {
		return nil
	}
	query := s.rebind(`INSERT INTO file_identities
		(id, path_current, path_latest_observed, exists_at_head, revisions, unfiltered_revisions, first_seen, last_seen)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	for _, fi := range identities {
		if _, err := tx.ExecContext(ctx, query, fi.ID, fi.PathCurrent, fi.PathLatestObserved, fi.ExistsAtHead,
			fi.Revisions, fi.UnfilteredRevisions, fi.FirstSeen, fi.LastSeen); err != nil {
			return lfcaerrors.IOf(err, "failed to insert file identity %d", fi.ID)
		}
	}
	return nil
}

func writeRenames(ctx context.Context, tx txExecer, s *Store, renames []models.RenameEvent) error {
	if len(renames) == 0 {
		return nil
	}
	query := s.rebind(`INSERT INTO rename_lineage (commit_id, old_path, new_path, similarity) VALUES (?, ?, ?, ?)`)
	for _, r := range renames {
		if _, err := tx.ExecContext(ctx, query, r.CommitID, r.OldPath, r.NewPath, r.Similarity); err != nil {
			return lfcaerrors.IOf(err, "failed to insert rename lineage entry for commit %s", r.CommitID)
		}
	}
	return nil
}

func writeEdges(ctx context.Context, tx txExecer, s *Store, edges []models.Edge) error {
	if len(edges) == 0 {
		return nil
	}
	query := s.rebind(`INSERT INTO edges
		(src, dst, pair_count, pair_weight, src_count, dst_count, jaccard, jaccard_weighted, p_dst_given_src, p_src_given_dst)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	for _, e := range edges {
		if _, err := tx.ExecContext(ctx, query, e.Src, e.Dst, e.PairCount, e.PairWeight, e.SrcCount, e.DstCount,
			e.Jaccard, e.JaccardWeighted, e.PDstGivenSrc, e.PSrcGivenDst); err != nil {
			return lfcaerrors.IOf(err, "failed to insert edge (%d,%d)", e.Src, e.Dst)
		}
	}
	return nil
}

func writeComponentEdges(ctx context.Context, tx txExecer, s *Store, edges []models.ComponentEdge) error {
	if len(edges) == 0 {
		return nil
	}
	query := s.rebind(`INSERT INTO component_edges (depth, src_component, dst_component, co_change_sum, jaccard)
		VALUES (?, ?, ?, ?, ?)`)
	for _, e := range edges {
		if _, err := tx.ExecContext(ctx, query, e.Depth, e.SrcComponent, e.DstComponent, e.CoChangeSum, e.Jaccard); err != nil {
			return lfcaerrors.IOf(err, "failed to insert component edge (%s,%s) at depth %d", e.SrcComponent, e.DstComponent, e.Depth)
		}
	}
	return nil
}

// SaveAnalysisRun upserts the AnalysisRun record tracking pipeline
// progress; called far more often than WriteRun (every stage/percentage
// transition), independent of the bulk/catalog artifact write.
func (s *Store) SaveAnalysisRun(ctx context.Context, run models.AnalysisRun) error {
	counts, err := json.Marshal(run.Counts)
	if err != nil {
		return lfcaerrors.Wrap(err, lfcaerrors.KindInternal, "failed to marshal run counts")
	}
	thresholds, err := json.Marshal(run.Thresholds)
	if err != nil {
		return lfcaerrors.Wrap(err, lfcaerrors.KindInternal, "failed to marshal run thresholds")
	}

	query := s.rebind(`INSERT INTO analysis_runs
		(id, repo_id, stage, percentage, counts, thresholds, error_kind, error_message, started_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			stage = excluded.stage, percentage = excluded.percentage, counts = excluded.counts,
			thresholds = excluded.thresholds, error_kind = excluded.error_kind,
			error_message = excluded.error_message, updated_at = excluded.updated_at`)

	_, err = s.db.ExecContext(ctx, query, run.ID, run.RepoID, string(run.Stage), run.Percentage,
		string(counts), string(thresholds), run.ErrorKind, run.ErrorMsg, run.StartedAt, run.UpdatedAt)
	if err != nil {
		return lfcaerrors.IOf(err, "failed to save analysis run %s", run.ID)
	}
	return nil
}

// txExecer is satisfied by *sqlx.Tx; declared so write helpers take the
// narrowest interface they need.
type txExecer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}
