package httpapi

import (
	"net/http"

	"github.com/lfca/lfca/internal/catalog"
)

// repoStats is the flat summary §6's `stats` operation returns.
type repoStats struct {
	Commits   int `json:"commits"`
	Files     int `json:"files"`
	Edges     int `json:"edges"`
	Snapshots int `json:"clustering_snapshots"`
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	store, err := s.orch.Registry().Get(r.PathValue("repoID"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	commits, err := store.ListAllCommitsWithChanges(r.Context())
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	identities, err := store.ListAllIdentities(r.Context())
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	edges, err := store.ListAllEdges(r.Context())
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	snapshots, err := store.ListClusteringSnapshots(r.Context())
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, repoStats{
		Commits:   len(commits),
		Files:     len(identities),
		Edges:     len(edges),
		Snapshots: len(snapshots),
	})
}

// hotspots returns the files with the most revisions, as a bare array —
// QA finding E2E-004 flagged an earlier draft that wrapped this in a
// {"hotspots": [...]} envelope that no other list endpoint used.
func (s *Server) hotspots(w http.ResponseWriter, r *http.Request) {
	eng, err := s.engineFor(r.PathValue("repoID"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	files, err := eng.Files(r.Context(), catalog.ListFilesOptions{
		SortBy:  "commits",
		SortDir: "desc",
		Limit:   queryInt(r, "limit", 20),
	})
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, files)
}

func (s *Server) modules(w http.ResponseWriter, r *http.Request) {
	eng, err := s.engineFor(r.PathValue("repoID"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	depth := queryInt(r, "depth", 1)
	components, err := eng.Folders(r.Context(), depth)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"modules": components, "depth": depth})
}
