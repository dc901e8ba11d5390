// Package httpapi implements the HTTP surface named in §6: a thin REST
// adapter over the Query Engine, the Analysis Orchestrator, and the
// Clustering Runtime. It owns no analysis logic of its own — every
// handler validates its request, delegates to the component that answers
// it, and maps the result (or error) through the uniform envelope in
// errors.go.
//
// Routes are registered on a stdlib http.ServeMux using Go 1.22+'s
// method- and path-parameter patterns, which gives the "deterministic
// route ordering" §6 asks for for free: ServeMux always prefers the most
// specific matching pattern over a less specific one, regardless of
// registration order.
package httpapi

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/lfca/lfca/internal/clustering"
	"github.com/lfca/lfca/internal/orchestrator"
)

// Server holds the handlers' shared dependencies.
type Server struct {
	orch    *orchestrator.Orchestrator
	cluster *clustering.Runtime
	repos   *repositoryRegistry
	logger  *logrus.Logger
}

// New constructs a Server wrapping orch. A nil logger falls back to
// logrus's standard instance.
func New(orch *orchestrator.Orchestrator, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Server{
		orch:    orch,
		cluster: clustering.New(logger),
		repos:   newRepositoryRegistry(),
		logger:  logger,
	}
}

// Handler builds the routed mux. It is kept separate from New so tests
// can construct a Server and mount it under their own test harness.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /repositories", s.createRepository)
	mux.HandleFunc("GET /repositories", s.listRepositories)
	mux.HandleFunc("GET /repositories/{repoID}", s.getRepository)
	mux.HandleFunc("DELETE /repositories/{repoID}", s.deleteRepository)

	mux.HandleFunc("POST /repositories/{repoID}/analysis/start", s.startAnalysis)
	mux.HandleFunc("GET /repositories/{repoID}/analysis/status", s.analysisStatus)
	mux.HandleFunc("POST /repositories/{repoID}/analysis/cancel", s.cancelAnalysis)

	mux.HandleFunc("GET /repositories/{repoID}/files", s.listFiles)
	mux.HandleFunc("GET /repositories/{repoID}/files/tree", s.filesTree)
	mux.HandleFunc("GET /repositories/{repoID}/files/details", s.fileDetails)
	mux.HandleFunc("GET /repositories/{repoID}/files/history", s.fileHistory)
	mux.HandleFunc("GET /repositories/{repoID}/files/commits", s.fileCommits)
	mux.HandleFunc("GET /repositories/{repoID}/files/lineage", s.fileLineage)
	mux.HandleFunc("GET /repositories/{repoID}/files/activity", s.fileActivity)
	mux.HandleFunc("GET /repositories/{repoID}/files/authors", s.fileAuthors)

	mux.HandleFunc("GET /repositories/{repoID}/coupling", s.coupling)
	mux.HandleFunc("GET /repositories/{repoID}/coupling/graph", s.couplingGraph)
	mux.HandleFunc("GET /repositories/{repoID}/coupling/evidence", s.couplingEvidence)
	mux.HandleFunc("GET /repositories/{repoID}/coupling/components", s.couplingComponents)

	mux.HandleFunc("GET /repositories/{repoID}/clustering/algorithms", s.clusteringAlgorithms)
	mux.HandleFunc("POST /repositories/{repoID}/clustering/run", s.clusteringRun)
	mux.HandleFunc("GET /repositories/{repoID}/clustering/snapshots", s.listSnapshots)
	mux.HandleFunc("GET /repositories/{repoID}/clustering/snapshots/{snapshotID}", s.getSnapshot)
	mux.HandleFunc("DELETE /repositories/{repoID}/clustering/snapshots/{snapshotID}", s.deleteSnapshot)
	mux.HandleFunc("GET /repositories/{repoID}/clustering/snapshots/{snapshotID}/edges", s.snapshotEdges)
	mux.HandleFunc("POST /repositories/{repoID}/clustering/compare", s.clusteringCompare)

	mux.HandleFunc("GET /repositories/{repoID}/stats", s.stats)
	mux.HandleFunc("GET /repositories/{repoID}/hotspots", s.hotspots)
	mux.HandleFunc("GET /repositories/{repoID}/modules", s.modules)

	return mux
}
