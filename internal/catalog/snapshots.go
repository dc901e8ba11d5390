package catalog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/lfca/lfca/internal/lfcaerrors"
	"github.com/lfca/lfca/internal/models"
)

// SaveClusteringSnapshot persists a full ClusteringSnapshot (metadata,
// members, and enrichments) in one transaction.
func (s *Store) SaveClusteringSnapshot(ctx context.Context, snap models.ClusteringSnapshot) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return lfcaerrors.IOf(err, "failed to begin snapshot write transaction")
	}
	defer tx.Rollback()

	params, err := json.Marshal(snap.Parameters)
	if err != nil {
		return lfcaerrors.Wrap(err, lfcaerrors.KindInternal, "failed to marshal snapshot parameters")
	}

	query := s.rebind(`INSERT INTO clustering_snapshots (id, name, algorithm, parameters, created_at, modularity, description)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if _, err := tx.ExecContext(ctx, query, snap.ID, snap.Name, snap.Algorithm, string(params), snap.CreatedAt, snap.Modularity, snap.Description); err != nil {
		return lfcaerrors.IOf(err, "failed to insert clustering snapshot %s", snap.ID)
	}

	memberQuery := s.rebind(`INSERT INTO cluster_members (snapshot_id, cluster_id, identity_id) VALUES (?, ?, ?)`)
	for _, m := range snap.Members {
		if _, err := tx.ExecContext(ctx, memberQuery, snap.ID, m.ClusterID, m.IdentityID); err != nil {
			return lfcaerrors.IOf(err, "failed to insert cluster member (snapshot=%s cluster=%d identity=%d)", snap.ID, m.ClusterID, m.IdentityID)
		}
	}

	enrichQuery := s.rebind(`INSERT INTO cluster_enrichments
		(snapshot_id, cluster_id, avg_coupling, total_churn, hot_files, top_commits, common_authors, bus_factor)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	for _, en := range snap.Enrichments {
		hotFiles, _ := json.Marshal(en.HotFiles)
		topCommits, _ := json.Marshal(en.TopCommits)
		commonAuthors, _ := json.Marshal(en.CommonAuthors)
		if _, err := tx.ExecContext(ctx, enrichQuery, snap.ID, en.ClusterID, en.AvgCoupling, en.TotalChurn,
			string(hotFiles), string(topCommits), string(commonAuthors), en.BusFactor); err != nil {
			return lfcaerrors.IOf(err, "failed to insert cluster enrichment (snapshot=%s cluster=%d)", snap.ID, en.ClusterID)
		}
	}

	if err := tx.Commit(); err != nil {
		return lfcaerrors.IOf(err, "failed to commit snapshot write transaction")
	}
	return nil
}

// GetClusteringSnapshot loads a snapshot's metadata, members, and
// enrichments.
func (s *Store) GetClusteringSnapshot(ctx context.Context, id string) (*models.ClusteringSnapshot, error) {
	var row snapshotRow
	err := s.db.GetContext(ctx, &row, s.rebind(`SELECT * FROM clustering_snapshots WHERE id = ?`), id)
	if err != nil {
		if isNoRows(err) {
			return nil, lfcaerrors.NotFoundf("clustering snapshot %s not found", id)
		}
		return nil, lfcaerrors.IOf(err, "failed to load clustering snapshot %s", id)
	}
	snap, err := row.toModel()
	if err != nil {
		return nil, err
	}

	if err := s.db.SelectContext(ctx, &snap.Members, s.rebind(`SELECT * FROM cluster_members WHERE snapshot_id = ?`), id); err != nil {
		return nil, lfcaerrors.IOf(err, "failed to load cluster members for snapshot %s", id)
	}

	var enrichRows []enrichmentRow
	if err := s.db.SelectContext(ctx, &enrichRows, s.rebind(`SELECT * FROM cluster_enrichments WHERE snapshot_id = ?`), id); err != nil {
		return nil, lfcaerrors.IOf(err, "failed to load cluster enrichments for snapshot %s", id)
	}
	for _, er := range enrichRows {
		enrichment, err := er.toModel()
		if err != nil {
			return nil, err
		}
		snap.Enrichments = append(snap.Enrichments, *enrichment)
	}

	return snap, nil
}

// ListClusteringSnapshots returns every snapshot's metadata (no members
// or enrichments), newest first.
func (s *Store) ListClusteringSnapshots(ctx context.Context) ([]models.ClusteringSnapshot, error) {
	var rows []snapshotRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM clustering_snapshots ORDER BY created_at DESC`); err != nil {
		return nil, lfcaerrors.IOf(err, "failed to list clustering snapshots")
	}
	snaps := make([]models.ClusteringSnapshot, 0, len(rows))
	for _, r := range rows {
		snap, err := r.toModel()
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, *snap)
	}
	return snaps, nil
}

// DeleteClusteringSnapshot removes a snapshot and its members and
// enrichments.
func (s *Store) DeleteClusteringSnapshot(ctx context.Context, id string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return lfcaerrors.IOf(err, "failed to begin snapshot delete transaction")
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM clustering_snapshots WHERE id = ?`), id)
	if err != nil {
		return lfcaerrors.IOf(err, "failed to delete clustering snapshot %s", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return lfcaerrors.NotFoundf("clustering snapshot %s not found", id)
	}
	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM cluster_members WHERE snapshot_id = ?`), id); err != nil {
		return lfcaerrors.IOf(err, "failed to delete cluster members for snapshot %s", id)
	}
	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM cluster_enrichments WHERE snapshot_id = ?`), id); err != nil {
		return lfcaerrors.IOf(err, "failed to delete cluster enrichments for snapshot %s", id)
	}

	if err := tx.Commit(); err != nil {
		return lfcaerrors.IOf(err, "failed to commit snapshot delete transaction")
	}
	return nil
}

type snapshotRow struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	Algorithm   string    `db:"algorithm"`
	Parameters  string    `db:"parameters"`
	CreatedAt   time.Time `db:"created_at"`
	Modularity  *float64  `db:"modularity"`
	Description string    `db:"description"`
}

func (r snapshotRow) toModel() (*models.ClusteringSnapshot, error) {
	snap := &models.ClusteringSnapshot{
		ID:          r.ID,
		Name:        r.Name,
		Algorithm:   r.Algorithm,
		CreatedAt:   r.CreatedAt,
		Modularity:  r.Modularity,
		Description: r.Description,
	}
	if r.Parameters != "" {
		if err := json.Unmarshal([]byte(r.Parameters), &snap.Parameters); err != nil {
			return nil, lfcaerrors.Wrap(err, lfcaerrors.KindInternal, "failed to decode snapshot parameters")
		}
	}
	return snap, nil
}

type enrichmentRow struct {
	SnapshotID    string  `db:"snapshot_id"`
	ClusterID     int     `db:"cluster_id"`
	AvgCoupling   float64 `db:"avg_coupling"`
	TotalChurn    int64   `db:"total_churn"`
	HotFiles      string  `db:"hot_files"`
	TopCommits    string  `db:"top_commits"`
	CommonAuthors string  `db:"common_authors"`
	BusFactor     int     `db:"bus_factor"`
}

func (r enrichmentRow) toModel() (*models.ClusterEnrichment, error) {
	en := &models.ClusterEnrichment{
		ClusterID:   r.ClusterID,
		AvgCoupling: r.AvgCoupling,
		TotalChurn:  r.TotalChurn,
		BusFactor:   r.BusFactor,
	}
	if r.HotFiles != "" {
		if err := json.Unmarshal([]byte(r.HotFiles), &en.HotFiles); err != nil {
			return nil, lfcaerrors.Wrap(err, lfcaerrors.KindInternal, "failed to decode hot files")
		}
	}
	if r.TopCommits != "" {
		if err := json.Unmarshal([]byte(r.TopCommits), &en.TopCommits); err != nil {
			return nil, lfcaerrors.Wrap(err, lfcaerrors.KindInternal, "failed to decode top commits")
		}
	}
	if r.CommonAuthors != "" {
		if err := json.Unmarshal([]byte(r.CommonAuthors), &en.CommonAuthors); err != nil {
			return nil, lfcaerrors.Wrap(err, lfcaerrors.KindInternal, "failed to decode common authors")
		}
	}
	return en, nil
}
