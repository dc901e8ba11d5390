package httpapi

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lfca/lfca/internal/lfcaerrors"
	"github.com/lfca/lfca/internal/models"
)

// repositoryRegistry tracks the set of registered analysis targets — a
// repository ID to its source mapping. It is intentionally not backed by
// the catalog: §3's schema models one repository's own data, not a
// cross-repository index of them (see models.Repository).
type repositoryRegistry struct {
	mu    sync.Mutex
	byID  map[string]models.Repository
	order []string
}

func newRepositoryRegistry() *repositoryRegistry {
	return &repositoryRegistry{byID: make(map[string]models.Repository)}
}

func (r *repositoryRegistry) create(source string) models.Repository {
	r.mu.Lock()
	defer r.mu.Unlock()
	repo := models.Repository{ID: uuid.NewString(), Source: source, CreatedAt: time.Now()}
	r.byID[repo.ID] = repo
	r.order = append(r.order, repo.ID)
	return repo
}

func (r *repositoryRegistry) get(id string) (models.Repository, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	repo, ok := r.byID[id]
	if !ok {
		return models.Repository{}, lfcaerrors.NotFoundf("repository %q not registered", id)
	}
	return repo, nil
}

func (r *repositoryRegistry) list() []models.Repository {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]models.Repository, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, r.byID[id])
	}
	return result
}

func (r *repositoryRegistry) delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return lfcaerrors.NotFoundf("repository %q not registered", id)
	}
	delete(r.byID, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Server) createRepository(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Source string `json:"source"`
	}
	if err := decodeJSON(r, &body); err != nil {
		badRequest(w, err.Error())
		return
	}
	if body.Source == "" {
		badRequest(w, "source is required")
		return
	}
	repo := s.repos.create(body.Source)
	writeJSON(w, http.StatusCreated, repo)
}

func (s *Server) listRepositories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.repos.list())
}

func (s *Server) getRepository(w http.ResponseWriter, r *http.Request) {
	repo, err := s.repos.get(r.PathValue("repoID"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, repo)
}

func (s *Server) deleteRepository(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("repoID")
	if err := s.repos.delete(id); err != nil {
		writeError(w, s.logger, err)
		return
	}
	if err := s.orch.Delete(id); err != nil {
		writeError(w, s.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
