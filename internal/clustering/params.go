package clustering

import (
	"github.com/lfca/lfca/internal/lfcaerrors"
)

// Algorithm names a recognized clustering algorithm (§4.7's catalog).
type Algorithm string

const (
	Louvain            Algorithm = "louvain"
	Hierarchical       Algorithm = "hierarchical"
	DBSCAN             Algorithm = "dbscan"
	LabelPropagation   Algorithm = "label_propagation"
	ConnectedComponents Algorithm = "connected_components"
)

// Linkage names a hierarchical-agglomerative linkage criterion.
type Linkage string

const (
	LinkageWard     Linkage = "ward"
	LinkageComplete Linkage = "complete"
	LinkageAverage  Linkage = "average"
	LinkageSingle   Linkage = "single"
)

// Params is the resolved, validated parameter bag for one clustering run
// — a superset covering every algorithm's recognized parameters, with
// only the fields relevant to the chosen Algorithm populated from
// defaults or caller input.
type Params struct {
	Algorithm   Algorithm
	MinWeight   float64
	FolderPrefix string

	// Louvain
	Resolution  float64
	RandomState int64

	// Hierarchical
	NClusters         int
	DistanceThreshold float64
	HasNClusters      bool
	HasDistanceThreshold bool
	LinkageKind       Linkage

	// DBSCAN
	Eps        float64
	MinSamples int

	// Label propagation
	MaxIterations int
}

// ResolveParams validates raw (as decoded from a request body or CLI
// flags) against algo's recognized parameter set and fills in defaults,
// returning a *lfcaerrors.Error (KindValidation) for anything invalid or
// missing, per §4.7's "validation error, not a 500" requirement.
func ResolveParams(algo Algorithm, raw map[string]any) (Params, error) {
	p := Params{Algorithm: algo, MinWeight: getFloat(raw, "min_weight", 0)}
	if prefix, ok := raw["folder_prefix"].(string); ok {
		p.FolderPrefix = prefix
	}

	switch algo {
	case Louvain:
		p.Resolution = getFloat(raw, "resolution", 1.0)
		p.RandomState = int64(getFloat(raw, "random_state", 0))
		return p, nil

	case Hierarchical:
		_, hasN := raw["n_clusters"]
		_, hasD := raw["distance_threshold"]
		if !hasN && !hasD {
			return p, lfcaerrors.Validation("hierarchical clustering requires either n_clusters or distance_threshold")
		}
		if hasN {
			p.NClusters = int(getFloat(raw, "n_clusters", 0))
			p.HasNClusters = true
			if p.NClusters < 1 {
				return p, lfcaerrors.Validationf("n_clusters must be >= 1, got %d", p.NClusters)
			}
		}
		if hasD {
			p.DistanceThreshold = getFloat(raw, "distance_threshold", 0)
			p.HasDistanceThreshold = true
		}
		linkage, _ := raw["linkage"].(string)
		if linkage == "" {
			linkage = string(LinkageAverage)
		}
		switch Linkage(linkage) {
		case LinkageWard, LinkageComplete, LinkageAverage, LinkageSingle:
			p.LinkageKind = Linkage(linkage)
		default:
			return p, lfcaerrors.Validationf("unknown linkage %q (want ward, complete, average, or single)", linkage)
		}
		return p, nil

	case DBSCAN:
		if _, ok := raw["eps"]; !ok {
			return p, lfcaerrors.Validation("dbscan requires eps")
		}
		if _, ok := raw["min_samples"]; !ok {
			return p, lfcaerrors.Validation("dbscan requires min_samples")
		}
		p.Eps = getFloat(raw, "eps", 0)
		p.MinSamples = int(getFloat(raw, "min_samples", 1))
		if p.MinSamples < 1 {
			return p, lfcaerrors.Validationf("min_samples must be >= 1, got %d", p.MinSamples)
		}
		return p, nil

	case LabelPropagation:
		p.MaxIterations = int(getFloat(raw, "max_iterations", 100))
		if p.MaxIterations < 1 {
			return p, lfcaerrors.Validationf("max_iterations must be >= 1, got %d", p.MaxIterations)
		}
		return p, nil

	case ConnectedComponents:
		return p, nil

	default:
		return p, lfcaerrors.Validationf("unknown clustering algorithm %q", algo)
	}
}

// ToMap renders the resolved parameters actually used, for persistence
// on the ClusteringSnapshot record (§4.7: "carries the actual parameter
// bag used, including resolved defaults").
func (p Params) ToMap() map[string]any {
	m := map[string]any{"min_weight": p.MinWeight}
	if p.FolderPrefix != "" {
		m["folder_prefix"] = p.FolderPrefix
	}
	switch p.Algorithm {
	case Louvain:
		m["resolution"] = p.Resolution
		m["random_state"] = p.RandomState
	case Hierarchical:
		if p.HasNClusters {
			m["n_clusters"] = p.NClusters
		}
		if p.HasDistanceThreshold {
			m["distance_threshold"] = p.DistanceThreshold
		}
		m["linkage"] = string(p.LinkageKind)
	case DBSCAN:
		m["eps"] = p.Eps
		m["min_samples"] = p.MinSamples
	case LabelPropagation:
		m["max_iterations"] = p.MaxIterations
	}
	return m
}

func getFloat(raw map[string]any, key string, def float64) float64 {
	v, ok := raw[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return def
	}
}
