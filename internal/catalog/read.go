package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/lfca/lfca/internal/lfcaerrors"
	"github.com/lfca/lfca/internal/models"
)

// GetFileIdentity looks up one identity by id.
func (s *Store) GetFileIdentity(ctx context.Context, id int64) (*models.FileIdentity, error) {
	var fi models.FileIdentity
	err := s.db.GetContext(ctx, &fi, s.rebind(`SELECT * FROM file_identities WHERE id = ?`), id)
	if err != nil {
		if isNoRows(err) {
			return nil, lfcaerrors.NotFoundf("file identity %d not found", id)
		}
		return nil, lfcaerrors.IOf(err, "failed to load file identity %d", id)
	}
	return &fi, nil
}

// GetFileIdentityByPath resolves the identity currently mapped to path.
func (s *Store) GetFileIdentityByPath(ctx context.Context, path string) (*models.FileIdentity, error) {
	var fi models.FileIdentity
	err := s.db.GetContext(ctx, &fi, s.rebind(`SELECT * FROM file_identities WHERE path_current = ?`), path)
	if err != nil {
		if isNoRows(err) {
			return nil, lfcaerrors.NotFoundf("no file identity currently at path %q", path)
		}
		return nil, lfcaerrors.IOf(err, "failed to load file identity for path %q", path)
	}
	return &fi, nil
}

// ListFilesOptions controls the `files` query's filtering, sorting, and
// pagination (§4.6).
type ListFilesOptions struct {
	Prefix      string
	Search      string
	CurrentOnly bool
	SortBy      string // "path", "commits", or "risk" (§4.6's sort_by enum)
	SortDir     string // "asc", "desc"
	Offset      int
	Limit       int
}

// Risk score constants for the `risk` sort_by option (§4.6): a fixed
// linear blend of a file's commit count and how many other files it's
// coupled to. Chosen so a heavily-coupled file outranks one that's merely
// been touched often — coupling breadth is the riskier signal.
const (
	riskAlpha = 1.0
	riskBeta  = 3.0
)

// sortExpressions maps the files() operation's sort_by enum to the SQL
// ordering expression backing it. "risk" has no column of its own; it's
// computed from revisions and a correlated count of the identity's edges.
var sortExpressions = map[string]string{
	"path":    "path_current",
	"commits": "revisions",
	"risk": fmt.Sprintf(
		"(%g * revisions + %g * (SELECT COUNT(*) FROM edges e WHERE e.src = file_identities.id OR e.dst = file_identities.id))",
		riskAlpha, riskBeta,
	),
}

// ListFiles returns file identities matching opts, deterministically
// ordered and paginated.
func (s *Store) ListFiles(ctx context.Context, opts ListFilesOptions) ([]models.FileIdentity, error) {
	var where []string
	var args []any

	if opts.Prefix != "" {
		where = append(where, "path_current LIKE ?")
		args = append(args, opts.Prefix+"%")
	}
	if opts.Search != "" {
		where = append(where, "path_current LIKE ?")
		args = append(args, "%"+opts.Search+"%")
	}
	if opts.CurrentOnly {
		where = append(where, "exists_at_head = ?")
		args = append(args, true)
	}

	sortExpr, ok := sortExpressions[opts.SortBy]
	if !ok {
		sortExpr = sortExpressions["path"]
	}
	sortDir := "ASC"
	if strings.EqualFold(opts.SortDir, "desc") {
		sortDir = "DESC"
	}

	limit := opts.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	query := "SELECT * FROM file_identities"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY %s %s, id ASC LIMIT ? OFFSET ?", sortExpr, sortDir)
	args = append(args, limit, opts.Offset)

	var files []models.FileIdentity
	if err := s.db.SelectContext(ctx, &files, s.rebind(query), args...); err != nil {
		return nil, lfcaerrors.IOf(err, "failed to list files")
	}
	return files, nil
}

// GetEdge returns the coupling edge between two identities, canonically
// ordered.
func (s *Store) GetEdge(ctx context.Context, a, b int64) (*models.Edge, error) {
	if a > b {
		a, b = b, a
	}
	var e models.Edge
	err := s.db.GetContext(ctx, &e, s.rebind(`SELECT * FROM edges WHERE src = ? AND dst = ?`), a, b)
	if err != nil {
		if isNoRows(err) {
			return nil, lfcaerrors.NotFoundf("no edge between identities %d and %d", a, b)
		}
		return nil, lfcaerrors.IOf(err, "failed to load edge (%d,%d)", a, b)
	}
	return &e, nil
}

// ListEdgesForIdentity returns every edge touching identity id (as either
// endpoint), ordered by jaccard descending, limited to limit rows (0
// means no limit beyond the per-file top-K already applied at build
// time).
func (s *Store) ListEdgesForIdentity(ctx context.Context, id int64, limit int) ([]models.Edge, error) {
	query := `SELECT * FROM edges WHERE src = ? OR dst = ? ORDER BY jaccard DESC, pair_count DESC`
	args := []any{id, id}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	var edges []models.Edge
	if err := s.db.SelectContext(ctx, &edges, s.rebind(query), args...); err != nil {
		return nil, lfcaerrors.IOf(err, "failed to list edges for identity %d", id)
	}
	return edges, nil
}

// GetCommit returns one commit by id.
func (s *Store) GetCommit(ctx context.Context, id string) (*models.Commit, error) {
	var c models.Commit
	err := s.db.GetContext(ctx, &c, s.rebind(`SELECT * FROM commits WHERE id = ?`), id)
	if err != nil {
		if isNoRows(err) {
			return nil, lfcaerrors.NotFoundf("commit %s not found", id)
		}
		return nil, lfcaerrors.IOf(err, "failed to load commit %s", id)
	}
	return &c, nil
}

// ListChangesForIdentity returns every Change recorded against identity
// id, newest first — the per-file revision history (§4.6 file_history).
func (s *Store) ListChangesForIdentity(ctx context.Context, id int64, limit int) ([]models.Change, error) {
	query := `SELECT ch.commit_id, ch.path, ch.kind, ch.old_path, ch.similarity, ch.identity_id
		FROM changes ch JOIN commits c ON c.id = ch.commit_id
		WHERE ch.identity_id = ? ORDER BY c.timestamp DESC`
	args := []any{id}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryxContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, lfcaerrors.IOf(err, "failed to list changes for identity %d", id)
	}
	defer rows.Close()

	var changes []models.Change
	for rows.Next() {
		var ch models.Change
		var oldPath *string
		var similarity *int
		var kind int
		if err := rows.Scan(&ch.CommitID, &ch.Path, &kind, &oldPath, &similarity, &ch.IdentityID); err != nil {
			return nil, lfcaerrors.IOf(err, "failed to scan change row")
		}
		ch.Kind = models.ChangeKind(kind)
		if oldPath != nil {
			ch.Rename = &models.RenameDetail{OldPath: *oldPath}
			if similarity != nil {
				ch.Rename.Similarity = *similarity
			}
		}
		changes = append(changes, ch)
	}
	return changes, rows.Err()
}

// ListRenameLineage returns the rename hints recorded for new_path,
// newest first — used to answer file_lineage.
func (s *Store) ListRenameLineage(ctx context.Context, path string) ([]models.RenameEvent, error) {
	var events []models.RenameEvent
	query := `SELECT rl.commit_id, rl.old_path, rl.new_path, rl.similarity
		FROM rename_lineage rl JOIN commits c ON c.id = rl.commit_id
		WHERE rl.new_path = ? ORDER BY c.timestamp DESC`
	if err := s.db.SelectContext(ctx, &events, s.rebind(query), path); err != nil {
		return nil, lfcaerrors.IOf(err, "failed to list rename lineage for %q", path)
	}
	return events, nil
}

// ListComponentEdges returns ComponentEdge rows at depth touching
// component (as either endpoint), or every row at depth if component is
// empty.
func (s *Store) ListComponentEdges(ctx context.Context, depth int, component string) ([]models.ComponentEdge, error) {
	var edges []models.ComponentEdge
	if component == "" {
		err := s.db.SelectContext(ctx, &edges, s.rebind(`SELECT * FROM component_edges WHERE depth = ? ORDER BY co_change_sum DESC`), depth)
		if err != nil {
			return nil, lfcaerrors.IOf(err, "failed to list component edges at depth %d", depth)
		}
		return edges, nil
	}
	query := `SELECT * FROM component_edges WHERE depth = ? AND (src_component = ? OR dst_component = ?) ORDER BY co_change_sum DESC`
	if err := s.db.SelectContext(ctx, &edges, s.rebind(query), depth, component, component); err != nil {
		return nil, lfcaerrors.IOf(err, "failed to list component edges for %q at depth %d", component, depth)
	}
	return edges, nil
}

// ListComponents returns the distinct component prefixes observed at
// depth, across both endpoints.
func (s *Store) ListComponents(ctx context.Context, depth int) ([]string, error) {
	query := `SELECT DISTINCT c FROM (
		SELECT src_component AS c FROM component_edges WHERE depth = ?
		UNION
		SELECT dst_component AS c FROM component_edges WHERE depth = ?
	) AS components ORDER BY c ASC`
	var components []string
	if err := s.db.SelectContext(ctx, &components, s.rebind(query), depth, depth); err != nil {
		return nil, lfcaerrors.IOf(err, "failed to list components at depth %d", depth)
	}
	return components, nil
}

// ListAllIdentities returns every file identity in the catalog, without
// the pagination `files` applies — the clustering runtime needs the full
// population to rebuild its working graph.
func (s *Store) ListAllIdentities(ctx context.Context) ([]models.FileIdentity, error) {
	var files []models.FileIdentity
	if err := s.db.SelectContext(ctx, &files, `SELECT * FROM file_identities ORDER BY id ASC`); err != nil {
		return nil, lfcaerrors.IOf(err, "failed to list all file identities")
	}
	return files, nil
}

// ListAllEdges returns every coupling edge in the catalog.
func (s *Store) ListAllEdges(ctx context.Context) ([]models.Edge, error) {
	var edges []models.Edge
	if err := s.db.SelectContext(ctx, &edges, `SELECT * FROM edges ORDER BY src ASC, dst ASC`); err != nil {
		return nil, lfcaerrors.IOf(err, "failed to list all edges")
	}
	return edges, nil
}

// CommitWithChanges pairs a commit with the per-file changes recorded
// against it, reconstructed from the catalog for a clustering re-run.
type CommitWithChanges struct {
	Commit  models.Commit
	Changes []models.Change
}

// ListAllCommitsWithChanges reconstructs every commit and its changes for
// re-running clustering against already-persisted data. It cannot recover
// the original per-commit merge/bulk downweighting (that weight lives only
// in the Edge rows it already shaped); reconstructed commits always carry
// weight 1, so enrichment statistics computed from them (top_commits,
// common_authors) reflect raw per-commit activity rather than the original
// downweighted view.
func (s *Store) ListAllCommitsWithChanges(ctx context.Context) ([]CommitWithChanges, error) {
	var commits []models.Commit
	if err := s.db.SelectContext(ctx, &commits, `SELECT * FROM commits ORDER BY timestamp ASC`); err != nil {
		return nil, lfcaerrors.IOf(err, "failed to list all commits")
	}

	rows, err := s.db.QueryxContext(ctx, `SELECT commit_id, path, kind, old_path, similarity, identity_id FROM changes`)
	if err != nil {
		return nil, lfcaerrors.IOf(err, "failed to list all changes")
	}
	defer rows.Close()

	byCommit := make(map[string][]models.Change, len(commits))
	for rows.Next() {
		var ch models.Change
		var oldPath *string
		var similarity *int
		var kind int
		if err := rows.Scan(&ch.CommitID, &ch.Path, &kind, &oldPath, &similarity, &ch.IdentityID); err != nil {
			return nil, lfcaerrors.IOf(err, "failed to scan change row")
		}
		ch.Kind = models.ChangeKind(kind)
		if oldPath != nil {
			ch.Rename = &models.RenameDetail{OldPath: *oldPath}
			if similarity != nil {
				ch.Rename.Similarity = *similarity
			}
		}
		byCommit[ch.CommitID] = append(byCommit[ch.CommitID], ch)
	}
	if err := rows.Err(); err != nil {
		return nil, lfcaerrors.IOf(err, "failed to read change rows")
	}

	result := make([]CommitWithChanges, 0, len(commits))
	for _, c := range commits {
		result = append(result, CommitWithChanges{Commit: c, Changes: byCommit[c.ID]})
	}
	return result, nil
}

// GetAnalysisRun returns one run record by id.
func (s *Store) GetAnalysisRun(ctx context.Context, id string) (*models.AnalysisRun, error) {
	var raw analysisRunRow
	err := s.db.GetContext(ctx, &raw, s.rebind(`SELECT * FROM analysis_runs WHERE id = ?`), id)
	if err != nil {
		if isNoRows(err) {
			return nil, lfcaerrors.NotFoundf("analysis run %s not found", id)
		}
		return nil, lfcaerrors.IOf(err, "failed to load analysis run %s", id)
	}
	return raw.toModel()
}

// GetLatestAnalysisRun returns the most recently started run for repoID.
func (s *Store) GetLatestAnalysisRun(ctx context.Context, repoID string) (*models.AnalysisRun, error) {
	var raw analysisRunRow
	query := `SELECT * FROM analysis_runs WHERE repo_id = ? ORDER BY started_at DESC LIMIT 1`
	err := s.db.GetContext(ctx, &raw, s.rebind(query), repoID)
	if err != nil {
		if isNoRows(err) {
			return nil, lfcaerrors.NotFoundf("no analysis run found for repo %s", repoID)
		}
		return nil, lfcaerrors.IOf(err, "failed to load latest analysis run for repo %s", repoID)
	}
	return raw.toModel()
}
