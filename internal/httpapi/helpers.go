package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/lfca/lfca/internal/lfcaerrors"
	"github.com/lfca/lfca/internal/query"
)

// decodeJSON decodes r's body into dst, tolerating an empty body (treated
// as a zero-value dst rather than an error, since several endpoints
// accept an all-default request).
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if err == io.EOF {
			return nil
		}
		return lfcaerrors.Validationf("invalid request body: %v", err)
	}
	return nil
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func queryFloat(r *http.Request, key string, def float64) float64 {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return f
}

// engineFor resolves the query Engine wired to repoID's catalog store via
// the orchestrator's registry, so httpapi never opens a competing handle.
func (s *Server) engineFor(repoID string) (*query.Engine, error) {
	store, err := s.orch.Registry().Get(repoID)
	if err != nil {
		return nil, err
	}
	return query.New(store), nil
}
