package httpapi

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/lfca/lfca/internal/catalog"
	"github.com/lfca/lfca/internal/clustering"
	"github.com/lfca/lfca/internal/extractor"
	"github.com/lfca/lfca/internal/models"
)

// algorithmCatalog is the static §4.7 algorithm listing: name plus the
// recognized parameter keys clustering.ResolveParams accepts for it.
var algorithmCatalog = []map[string]any{
	{"algorithm": string(clustering.Louvain), "parameters": []string{"resolution", "random_state", "min_weight", "folder_prefix"}},
	{"algorithm": string(clustering.Hierarchical), "parameters": []string{"n_clusters", "distance_threshold", "linkage", "min_weight", "folder_prefix"}},
	{"algorithm": string(clustering.DBSCAN), "parameters": []string{"eps", "min_samples", "min_weight", "folder_prefix"}},
	{"algorithm": string(clustering.LabelPropagation), "parameters": []string{"max_iterations", "min_weight", "folder_prefix"}},
	{"algorithm": string(clustering.ConnectedComponents), "parameters": []string{"min_weight", "folder_prefix"}},
}

func (s *Server) clusteringAlgorithms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, algorithmCatalog)
}

func (s *Server) clusteringRun(w http.ResponseWriter, r *http.Request) {
	store, err := s.orch.Registry().Get(r.PathValue("repoID"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	var body struct {
		Algorithm  string         `json:"algorithm"`
		Parameters map[string]any `json:"parameters"`
		Name       string         `json:"name"`
	}
	if err := decodeJSON(r, &body); err != nil {
		badRequest(w, err.Error())
		return
	}
	if body.Algorithm == "" {
		badRequest(w, "algorithm is required")
		return
	}

	params, err := clustering.ResolveParams(clustering.Algorithm(body.Algorithm), body.Parameters)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	in, err := s.loadClusteringInput(r, store)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	snapshotID := uuid.NewString()
	snap, err := s.cluster.Run(snapshotID, in, params, time.Now())
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	snap.Name = body.Name

	if err := store.SaveClusteringSnapshot(r.Context(), *snap); err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

// loadClusteringInput rebuilds a clustering.Input from whatever the
// catalog currently holds. Reconstructed commits always carry weight 1
// (see catalog.ListAllCommitsWithChanges) — a re-run's cluster assignment
// is unaffected since it's driven by the already-weighted Edge rows, but
// its enrichment commit/author statistics reflect raw activity rather than
// the original run's merge/bulk downweighting.
func (s *Server) loadClusteringInput(r *http.Request, store *catalog.Store) (clustering.Input, error) {
	edges, err := store.ListAllEdges(r.Context())
	if err != nil {
		return clustering.Input{}, err
	}
	identityList, err := store.ListAllIdentities(r.Context())
	if err != nil {
		return clustering.Input{}, err
	}
	identities := make(map[int64]*models.FileIdentity, len(identityList))
	for i := range identityList {
		identities[identityList[i].ID] = &identityList[i]
	}
	rows, err := store.ListAllCommitsWithChanges(r.Context())
	if err != nil {
		return clustering.Input{}, err
	}
	commits := make([]extractor.ExtractedCommit, 0, len(rows))
	for _, row := range rows {
		commits = append(commits, extractor.ExtractedCommit{
			Commit:      row.Commit,
			Changes:     row.Changes,
			Weight:      1,
			SizeDivisor: 1,
		})
	}
	return clustering.Input{Edges: edges, Identities: identities, Commits: commits}, nil
}

func (s *Server) listSnapshots(w http.ResponseWriter, r *http.Request) {
	store, err := s.orch.Registry().Get(r.PathValue("repoID"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	snaps, err := store.ListClusteringSnapshots(r.Context())
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, snaps)
}

func (s *Server) getSnapshot(w http.ResponseWriter, r *http.Request) {
	store, err := s.orch.Registry().Get(r.PathValue("repoID"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	snap, err := store.GetClusteringSnapshot(r.Context(), r.PathValue("snapshotID"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) deleteSnapshot(w http.ResponseWriter, r *http.Request) {
	store, err := s.orch.Registry().Get(r.PathValue("repoID"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	if err := store.DeleteClusteringSnapshot(r.Context(), r.PathValue("snapshotID")); err != nil {
		writeError(w, s.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) snapshotEdges(w http.ResponseWriter, r *http.Request) {
	store, err := s.orch.Registry().Get(r.PathValue("repoID"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	snap, err := store.GetClusteringSnapshot(r.Context(), r.PathValue("snapshotID"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	clusterID := queryInt(r, "cluster_id", 0)
	hasCluster := r.URL.Query().Get("cluster_id") != ""

	clusterOf := make(map[int64]int, len(snap.Members))
	for _, m := range snap.Members {
		clusterOf[m.IdentityID] = m.ClusterID
	}

	allEdges, err := store.ListAllEdges(r.Context())
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	var result []models.Edge
	for _, e := range allEdges {
		ca, okA := clusterOf[e.Src]
		cb, okB := clusterOf[e.Dst]
		if !okA || !okB || ca != cb {
			continue
		}
		if hasCluster && ca != clusterID {
			continue
		}
		result = append(result, e)
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) clusteringCompare(w http.ResponseWriter, r *http.Request) {
	store, err := s.orch.Registry().Get(r.PathValue("repoID"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	var body struct {
		SnapshotA string `json:"snapshot_a"`
		SnapshotB string `json:"snapshot_b"`
	}
	if err := decodeJSON(r, &body); err != nil {
		badRequest(w, err.Error())
		return
	}
	if body.SnapshotA == "" || body.SnapshotB == "" {
		badRequest(w, "snapshot_a and snapshot_b are required")
		return
	}

	a, err := store.GetClusteringSnapshot(r.Context(), body.SnapshotA)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	b, err := store.GetClusteringSnapshot(r.Context(), body.SnapshotB)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	result := clustering.Compare(a.Members, b.Members)
	writeJSON(w, http.StatusOK, result)
}
