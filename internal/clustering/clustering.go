package clustering

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lfca/lfca/internal/extractor"
	"github.com/lfca/lfca/internal/lfcaerrors"
	"github.com/lfca/lfca/internal/models"
)

// Runtime dispatches a clustering request to the algorithm it names,
// builds the working graph, runs it, and assembles the resulting
// ClusteringSnapshot with enrichments — the component query.go and
// httpapi hand requests off to once parameters have been resolved.
type Runtime struct {
	logger *logrus.Logger
}

// New returns a Runtime. A nil logger falls back to logrus's standard
// instance, matching the teacher's convention elsewhere in the module.
func New(logger *logrus.Logger) *Runtime {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Runtime{logger: logger}
}

// Input bundles everything a clustering run needs: the edges and
// identities already persisted by the Graph Builder, plus the raw
// extracted commits (enrichment needs per-commit author/file detail the
// edge table doesn't carry).
type Input struct {
	Edges      []models.Edge
	Identities map[int64]*models.FileIdentity
	Commits    []extractor.ExtractedCommit
}

// Run executes one clustering algorithm over in and returns a
// ClusteringSnapshot ready for catalog.SaveClusteringSnapshot. id and
// createdAt are supplied by the caller (IDs and wall-clock time aren't
// generated inside packages that must stay deterministically testable).
func (r *Runtime) Run(id string, in Input, params Params, createdAt time.Time) (*models.ClusteringSnapshot, error) {
	g := buildGraph(in.Edges, in.Identities, params.FolderPrefix, params.MinWeight)

	var assignment map[int64]int
	var modularity *float64

	switch params.Algorithm {
	case Louvain:
		assignment, modularity = runLouvain(g, params.Resolution)
	case Hierarchical:
		assignment = runHierarchical(g, params.LinkageKind, params.HasNClusters, params.NClusters, params.HasDistanceThreshold, params.DistanceThreshold)
	case DBSCAN:
		assignment = runDBSCAN(g, params.Eps, params.MinSamples)
	case LabelPropagation:
		assignment = runLabelPropagation(g, params.MaxIterations)
	case ConnectedComponents:
		assignment = runConnectedComponents(g)
	default:
		return nil, lfcaerrors.Validationf("unknown clustering algorithm %q", params.Algorithm)
	}

	members := make([]models.ClusterMember, 0, len(assignment))
	for identityID, clusterID := range assignment {
		members = append(members, models.ClusterMember{
			SnapshotID: id,
			ClusterID:  clusterID,
			IdentityID: identityID,
		})
	}

	enrichments := computeEnrichments(in.Commits, in.Identities, in.Edges, assignment)

	r.logger.WithFields(logrus.Fields{
		"snapshot_id": id,
		"algorithm":   params.Algorithm,
		"clusters":    len(enrichments),
		"nodes":       len(g.nodes),
	}).Info("clustering run complete")

	return &models.ClusteringSnapshot{
		ID:          id,
		Algorithm:   string(params.Algorithm),
		Parameters:  params.ToMap(),
		CreatedAt:   createdAt,
		Modularity:  modularity,
		Members:     members,
		Enrichments: enrichments,
	}, nil
}
