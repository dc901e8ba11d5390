package httpapi

import (
	"net/http"

	"github.com/lfca/lfca/internal/catalog"
	"github.com/lfca/lfca/internal/query"
)

func (s *Server) listFiles(w http.ResponseWriter, r *http.Request) {
	eng, err := s.engineFor(r.PathValue("repoID"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	q := r.URL.Query()
	opts := catalog.ListFilesOptions{
		Prefix:      q.Get("prefix"),
		Search:      q.Get("search"),
		CurrentOnly: q.Get("current_only") == "true",
		SortBy:      q.Get("sort_by"),
		SortDir:     q.Get("sort_dir"),
		Offset:      queryInt(r, "offset", 0),
		Limit:       queryInt(r, "limit", 100),
	}
	files, err := eng.Files(r.Context(), opts)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, files)
}

func (s *Server) filesTree(w http.ResponseWriter, r *http.Request) {
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
	writeJSON(w, http.StatusOK, components)
}

func (s *Server) fileDetails(w http.ResponseWriter, r *http.Request) {
	eng, path, ok := s.requireFilePath(w, r)
	if !ok {
		return
	}
	fi, err := eng.FileDetails(r.Context(), path)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, fi)
}

func (s *Server) fileHistory(w http.ResponseWriter, r *http.Request) {
	eng, path, ok := s.requireFilePath(w, r)
	if !ok {
		return
	}
	changes, err := eng.FileHistory(r.Context(), path, queryInt(r, "limit", 0))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, changes)
}

func (s *Server) fileCommits(w http.ResponseWriter, r *http.Request) {
	eng, path, ok := s.requireFilePath(w, r)
	if !ok {
		return
	}
	commits, err := eng.FileCommits(r.Context(), path, queryInt(r, "limit", 0))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, commits)
}

func (s *Server) fileLineage(w http.ResponseWriter, r *http.Request) {
	eng, path, ok := s.requireFilePath(w, r)
	if !ok {
		return
	}
	events, err := eng.FileLineage(r.Context(), path)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) fileActivity(w http.ResponseWriter, r *http.Request) {
	eng, path, ok := s.requireFilePath(w, r)
	if !ok {
		return
	}
	fi, err := eng.FileActivity(r.Context(), path)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, fi)
}

func (s *Server) fileAuthors(w http.ResponseWriter, r *http.Request) {
	eng, path, ok := s.requireFilePath(w, r)
	if !ok {
		return
	}
	authors, err := eng.FileAuthors(r.Context(), path)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, authors)
}

// requireFilePath resolves the query Engine for the request's repository
// and extracts its required `path` query parameter, writing a response
// and returning ok=false if either step fails.
func (s *Server) requireFilePath(w http.ResponseWriter, r *http.Request) (*query.Engine, string, bool) {
	eng, err := s.engineFor(r.PathValue("repoID"))
	if err != nil {
		writeError(w, s.logger, err)
		return nil, "", false
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		badRequest(w, "path is required")
		return nil, "", false
	}
	return eng, path, true
}
