package httpapi

import "net/http"

func (s *Server) coupling(w http.ResponseWriter, r *http.Request) {
	eng, path, ok := s.requireFilePath(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	metric := q.Get("metric")
	if metric == "" {
		metric = "jaccard"
	}
	coupled, err := eng.Coupling(r.Context(), path, metric, queryFloat(r, "min_weight", 0), queryInt(r, "limit", 0), q.Get("current_only") == "true")
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, coupled)
}

func (s *Server) couplingGraph(w http.ResponseWriter, r *http.Request) {
	eng, path, ok := s.requireFilePath(w, r)
	if !ok {
		return
	}
	graph, err := eng.CouplingGraph(r.Context(), path, queryInt(r, "limit", 0))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, graph)
}

func (s *Server) couplingEvidence(w http.ResponseWriter, r *http.Request) {
	eng, err := s.engineFor(r.PathValue("repoID"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	pathA, pathB := r.URL.Query().Get("path_a"), r.URL.Query().Get("path_b")
	if pathA == "" || pathB == "" {
		badRequest(w, "path_a and path_b are required")
		return
	}
	commits, err := eng.CouplingEvidence(r.Context(), pathA, pathB, queryInt(r, "limit", 0))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, commits)
}

func (s *Server) couplingComponents(w http.ResponseWriter, r *http.Request) {
	eng, err := s.engineFor(r.PathValue("repoID"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	depth := queryInt(r, "depth", 1)
	component := r.URL.Query().Get("component")
	if component == "" {
		components, err := eng.Folders(r.Context(), depth)
		if err != nil {
			writeError(w, s.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, components)
		return
	}
	detail, err := eng.ComponentDetails(r.Context(), component, depth)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}
