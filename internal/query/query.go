// Package query implements the Query Engine component (§4.6): a thin,
// read-only layer over the Catalog answering coupling, file, folder, and
// component questions with the error taxonomy from §7 (NotFound,
// Validation, State).
package query

import (
	"context"
	"sort"

	"github.com/lfca/lfca/internal/catalog"
	"github.com/lfca/lfca/internal/git"
	"github.com/lfca/lfca/internal/lfcaerrors"
	"github.com/lfca/lfca/internal/models"
)

// Engine answers read-only queries against one catalog Store.
type Engine struct {
	store *catalog.Store
}

// New creates a query Engine over store.
func New(store *catalog.Store) *Engine {
	return &Engine{store: store}
}

// couplingMetrics is the closed vocabulary of metrics coupling() accepts.
var couplingMetrics = map[string]bool{
	"jaccard": true, "jaccard_weighted": true, "pair_count": true,
	"p_dst_given_src": true, "p_src_given_dst": true,
}

// CoupledFile is one neighbor of a coupling() query: its current path,
// the requested metric and its value, and the full edge statistics so a
// caller doesn't need a second round trip to see the other four.
type CoupledFile struct {
	Path            string  `json:"path"`
	Metric          string  `json:"metric"`
	Value           float64 `json:"value"`
	PairCount       int64   `json:"pair_count"`
	PairWeight      float64 `json:"pair_weight"`
	Jaccard         float64 `json:"jaccard"`
	JaccardWeighted float64 `json:"jaccard_weighted"`
	PDstGivenSrc    float64 `json:"p_dst_given_src"`
	PSrcGivenDst    float64 `json:"p_src_given_dst"`
}

// couplingMetricValue resolves metric to the value seen from path's own
// point of view, regardless of which side of the canonical src<dst
// ordering path landed on: p_dst_given_src always means "probability the
// neighbor changes given path changes," p_src_given_dst the reverse.
func couplingMetricValue(edge models.Edge, focusIsSrc bool, metric string) float64 {
	switch metric {
	case "jaccard":
		return edge.Jaccard
	case "jaccard_weighted":
		return edge.JaccardWeighted
	case "pair_count":
		return float64(edge.PairCount)
	case "p_dst_given_src":
		if focusIsSrc {
			return edge.PDstGivenSrc
		}
		return edge.PSrcGivenDst
	case "p_src_given_dst":
		if focusIsSrc {
			return edge.PSrcGivenDst
		}
		return edge.PDstGivenSrc
	default:
		return 0
	}
}

// Coupling returns path's coupled files ranked by metric descending (ties
// broken by neighbor path ascending), keeping only edges whose pair_weight
// is at least minWeight and, if currentOnly, whose neighbor still exists
// at head. Returns an empty sequence, not an error, when path has no
// surviving edges; fails with NotFound only if path resolves to no
// identity.
func (e *Engine) Coupling(ctx context.Context, path, metric string, minWeight float64, limit int, currentOnly bool) ([]CoupledFile, error) {
	if !couplingMetrics[metric] {
		return nil, lfcaerrors.Validationf("unknown coupling metric %q", metric)
	}
	fi, err := e.store.GetFileIdentityByPath(ctx, path)
	if err != nil {
		return nil, err
	}
	edges, err := e.store.ListEdgesForIdentity(ctx, fi.ID, 0)
	if err != nil {
		return nil, err
	}

	result := make([]CoupledFile, 0, len(edges))
	for _, edge := range edges {
		if edge.PairWeight < minWeight {
			continue
		}
		focusIsSrc := edge.Src == fi.ID
		neighborID := edge.Dst
		if !focusIsSrc {
			neighborID = edge.Src
		}
		neighbor, err := e.store.GetFileIdentity(ctx, neighborID)
		if err != nil {
			continue
		}
		if currentOnly && !neighbor.ExistsAtHead {
			continue
		}
		result = append(result, CoupledFile{
			Path:            neighbor.PathCurrent,
			Metric:          metric,
			Value:           couplingMetricValue(edge, focusIsSrc, metric),
			PairCount:       edge.PairCount,
			PairWeight:      edge.PairWeight,
			Jaccard:         edge.Jaccard,
			JaccardWeighted: edge.JaccardWeighted,
			PDstGivenSrc:    edge.PDstGivenSrc,
			PSrcGivenDst:    edge.PSrcGivenDst,
		})
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Value != result[j].Value {
			return result[i].Value > result[j].Value
		}
		return result[i].Path < result[j].Path
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// CouplingGraphResult is coupling_graph's {focus, nodes, edges} envelope.
type CouplingGraphResult struct {
	Focus string        `json:"focus"`
	Nodes []string      `json:"nodes"`
	Edges []models.Edge `json:"edges"`
}

// CouplingGraph returns path's neighborhood: the focus plus its top-limit
// neighbors by jaccard as nodes, and every edge that exists in the catalog
// between any two nodes in that set — including neighbor-neighbor edges,
// not just the focus's own.
func (e *Engine) CouplingGraph(ctx context.Context, path string, limit int) (*CouplingGraphResult, error) {
	fi, err := e.store.GetFileIdentityByPath(ctx, path)
	if err != nil {
		return nil, err
	}
	focusEdges, err := e.store.ListEdgesForIdentity(ctx, fi.ID, limit)
	if err != nil {
		return nil, err
	}

	nodeIDs := map[int64]bool{fi.ID: true}
	nodes := []string{fi.PathCurrent}
	neighborIDs := make([]int64, 0, len(focusEdges))
	for _, edge := range focusEdges {
		neighborID := edge.Dst
		if edge.Src != fi.ID {
			neighborID = edge.Src
		}
		if nodeIDs[neighborID] {
			continue
		}
		neighbor, err := e.store.GetFileIdentity(ctx, neighborID)
		if err != nil {
			continue
		}
		nodeIDs[neighborID] = true
		nodes = append(nodes, neighbor.PathCurrent)
		neighborIDs = append(neighborIDs, neighborID)
	}

	seen := make(map[[2]int64]bool, len(focusEdges))
	edges := make([]models.Edge, 0, len(focusEdges))
	for _, edge := range focusEdges {
		seen[[2]int64{edge.Src, edge.Dst}] = true
		edges = append(edges, edge)
	}
	for _, neighborID := range neighborIDs {
		neighborEdges, err := e.store.ListEdgesForIdentity(ctx, neighborID, 0)
		if err != nil {
			continue
		}
		for _, edge := range neighborEdges {
			if !nodeIDs[edge.Src] || !nodeIDs[edge.Dst] {
				continue
			}
			key := [2]int64{edge.Src, edge.Dst}
			if seen[key] {
				continue
			}
			seen[key] = true
			edges = append(edges, edge)
		}
	}

	return &CouplingGraphResult{Focus: fi.PathCurrent, Nodes: nodes, Edges: edges}, nil
}

// CouplingEvidence returns the commits that co-changed pathA and pathB —
// the concrete audit trail behind a coupling edge.
func (e *Engine) CouplingEvidence(ctx context.Context, pathA, pathB string, limit int) ([]models.Commit, error) {
	fiA, err := e.store.GetFileIdentityByPath(ctx, pathA)
	if err != nil {
		return nil, err
	}
	fiB, err := e.store.GetFileIdentityByPath(ctx, pathB)
	if err != nil {
		return nil, err
	}

	changesA, err := e.store.ListChangesForIdentity(ctx, fiA.ID, 0)
	if err != nil {
		return nil, err
	}
	commitsB := make(map[string]bool)
	changesB, err := e.store.ListChangesForIdentity(ctx, fiB.ID, 0)
	if err != nil {
		return nil, err
	}
	for _, ch := range changesB {
		commitsB[ch.CommitID] = true
	}

	var evidence []models.Commit
	for _, ch := range changesA {
		if !commitsB[ch.CommitID] {
			continue
		}
		c, err := e.store.GetCommit(ctx, ch.CommitID)
		if err != nil {
			continue
		}
		evidence = append(evidence, *c)
		if limit > 0 && len(evidence) >= limit {
			break
		}
	}
	return evidence, nil
}

// FileDetails returns a file's current identity record.
func (e *Engine) FileDetails(ctx context.Context, path string) (*FileDetail, error) {
	fi, err := e.store.GetFileIdentityByPath(ctx, path)
	if err != nil {
		return nil, err
	}
	return &FileDetail{FileIdentity: fi, Language: git.DetectLanguage(fi.PathCurrent)}, nil
}

// FileDetail augments a catalog FileIdentity with its language, derived
// from the path's extension at read time rather than persisted — a pure
// function of path_current, not a fact the graph builder needs to store.
type FileDetail struct {
	*models.FileIdentity
	Language string `json:"language"`
}

// FileHistory returns path's per-commit change history, newest first.
func (e *Engine) FileHistory(ctx context.Context, path string, limit int) ([]models.Change, error) {
	fi, err := e.store.GetFileIdentityByPath(ctx, path)
	if err != nil {
		return nil, err
	}
	return e.store.ListChangesForIdentity(ctx, fi.ID, limit)
}

// FileLineage returns the rename hints that led to path's current name.
func (e *Engine) FileLineage(ctx context.Context, path string) ([]models.RenameEvent, error) {
	return e.store.ListRenameLineage(ctx, path)
}

// FileAuthors returns the distinct authors who have touched path, most
// frequent first.
func (e *Engine) FileAuthors(ctx context.Context, path string) ([]AuthorCount, error) {
	fi, err := e.store.GetFileIdentityByPath(ctx, path)
	if err != nil {
		return nil, err
	}
	changes, err := e.store.ListChangesForIdentity(ctx, fi.ID, 0)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64)
	order := make([]string, 0)
	for _, ch := range changes {
		c, err := e.store.GetCommit(ctx, ch.CommitID)
		if err != nil {
			continue
		}
		if _, seen := counts[c.AuthorEmail]; !seen {
			order = append(order, c.AuthorEmail)
		}
		counts[c.AuthorEmail]++
	}

	result := make([]AuthorCount, 0, len(order))
	for _, author := range order {
		result = append(result, AuthorCount{Author: author, Commits: counts[author]})
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Commits > result[j].Commits })
	return result, nil
}

// FileCommits returns the actual commit records that touched path, newest
// first — the supplemented elaboration of file_history that hands back
// full Commit rows (author, timestamp, merge/changeset shape) rather than
// just the per-file Change rows.
func (e *Engine) FileCommits(ctx context.Context, path string, limit int) ([]models.Commit, error) {
	fi, err := e.store.GetFileIdentityByPath(ctx, path)
	if err != nil {
		return nil, err
	}
	changes, err := e.store.ListChangesForIdentity(ctx, fi.ID, 0)
	if err != nil {
		return nil, err
	}

	var commits []models.Commit
	for _, ch := range changes {
		c, err := e.store.GetCommit(ctx, ch.CommitID)
		if err != nil {
			continue
		}
		commits = append(commits, *c)
		if limit > 0 && len(commits) >= limit {
			break
		}
	}
	return commits, nil
}

// AuthorCount is one author's contribution count to a file or cluster.
type AuthorCount struct {
	Author  string `json:"author"`
	Commits int64  `json:"commits"`
}

// FileActivity returns path's revision counts (filtered and unfiltered).
func (e *Engine) FileActivity(ctx context.Context, path string) (*models.FileIdentity, error) {
	return e.store.GetFileIdentityByPath(ctx, path)
}

// FolderDetails returns the ComponentEdge rows touching component at
// depth.
func (e *Engine) FolderDetails(ctx context.Context, component string, depth int) ([]models.ComponentEdge, error) {
	if depth < 1 || depth > 3 {
		return nil, lfcaerrors.Validationf("depth must be 1, 2, or 3, got %d", depth)
	}
	return e.store.ListComponentEdges(ctx, depth, component)
}

// Folders lists every component observed at depth.
func (e *Engine) Folders(ctx context.Context, depth int) ([]string, error) {
	if depth < 1 || depth > 3 {
		return nil, lfcaerrors.Validationf("depth must be 1, 2, or 3, got %d", depth)
	}
	return e.store.ListComponents(ctx, depth)
}

// Files lists file identities under the given filter/sort/pagination
// options (§4.6's `files` operation).
func (e *Engine) Files(ctx context.Context, opts catalog.ListFilesOptions) ([]models.FileIdentity, error) {
	return e.store.ListFiles(ctx, opts)
}

// ListComponents is an alias for Folders kept for callers that prefer the
// spec's own operation name.
func (e *Engine) ListComponents(ctx context.Context, depth int) ([]string, error) {
	return e.Folders(ctx, depth)
}

// ComponentDetails is the supplemented same-meaning elaboration of
// list_components: it returns both the component's own ComponentEdge
// rows and the individual files currently rooted under it, letting a
// caller drill from a folder-level aggregate down to its members without
// a second round trip through `files`.
func (e *Engine) ComponentDetails(ctx context.Context, component string, depth int) (*ComponentDetail, error) {
	edges, err := e.FolderDetails(ctx, component, depth)
	if err != nil {
		return nil, err
	}
	files, err := e.store.ListFiles(ctx, catalog.ListFilesOptions{Prefix: component + "/", Limit: 1000})
	if err != nil {
		return nil, err
	}
	return &ComponentDetail{Component: component, Depth: depth, Edges: edges, Files: files}, nil
}

// ComponentDetail is ComponentDetails' return shape.
type ComponentDetail struct {
	Component string                 `json:"component"`
	Depth     int                    `json:"depth"`
	Edges     []models.ComponentEdge `json:"edges"`
	Files     []models.FileIdentity  `json:"files"`
}
