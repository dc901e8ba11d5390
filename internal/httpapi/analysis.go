package httpapi

import "net/http"

func (s *Server) startAnalysis(w http.ResponseWriter, r *http.Request) {
	repoID := r.PathValue("repoID")
	repo, err := s.repos.get(repoID)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	run, err := s.orch.Start(repo.ID, repo.Source)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusAccepted, run)
}

func (s *Server) analysisStatus(w http.ResponseWriter, r *http.Request) {
	repoID := r.PathValue("repoID")
	if _, err := s.repos.get(repoID); err != nil {
		writeError(w, s.logger, err)
		return
	}

	run, err := s.orch.Status(r.Context(), repoID)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) cancelAnalysis(w http.ResponseWriter, r *http.Request) {
	repoID := r.PathValue("repoID")
	if err := s.orch.Cancel(repoID); err != nil {
		writeError(w, s.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
