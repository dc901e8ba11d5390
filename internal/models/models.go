// Package models defines the entities persisted by the catalog: commits,
// per-file changes, file identities, rename events, coupling edges,
// component aggregates, clustering snapshots, and analysis runs.
package models

import "time"

// ChangeKind is the closed vocabulary a Change's kind is drawn from. It is
// never a free-text string column: modeling it as a tagged variant makes a
// misaligned tabular column a compile-time type error instead of a value
// that silently leaks "M"/"A"/timestamps/emails into persisted data.
type ChangeKind int

const (
	ChangeKindUnknown ChangeKind = iota
	ChangeKindAdded
	ChangeKindModified
	ChangeKindDeleted
	ChangeKindRenamed
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeKindAdded:
		return "Added"
	case ChangeKindModified:
		return "Modified"
	case ChangeKindDeleted:
		return "Deleted"
	case ChangeKindRenamed:
		return "Renamed"
	default:
		return "Unknown"
	}
}

// RenameDetail is the payload attached to a Change whose Kind is
// ChangeKindRenamed.
type RenameDetail struct {
	OldPath    string `json:"old_path" db:"old_path"`
	Similarity int    `json:"similarity" db:"similarity"`
}

// Commit is a single version-control commit, immutable once extracted.
type Commit struct {
	ID            string    `json:"id" db:"id"`
	Timestamp     time.Time `json:"timestamp" db:"timestamp"`
	AuthorName    string    `json:"author_name" db:"author_name"`
	AuthorEmail   string    `json:"author_email" db:"author_email"`
	ParentCount   int       `json:"parent_count" db:"parent_count"`
	ChangesetSize int       `json:"changeset_size" db:"changeset_size"`
}

// IsMerge reports whether the commit has more than one parent.
func (c Commit) IsMerge() bool { return c.ParentCount > 1 }

// Change is a per-file observation within a commit.
type Change struct {
	CommitID   string        `json:"commit_id" db:"commit_id"`
	Path       string        `json:"path" db:"path"`
	Kind       ChangeKind    `json:"kind" db:"kind"`
	Rename     *RenameDetail `json:"rename,omitempty"`
	IdentityID int64         `json:"identity_id" db:"identity_id"`
}

// FileIdentity is a stable logical file across its rename history.
type FileIdentity struct {
	ID                  int64     `json:"id" db:"id"`
	PathCurrent         string    `json:"path_current" db:"path_current"`
	PathLatestObserved  string    `json:"path_latest_observed" db:"path_latest_observed"`
	ExistsAtHead        bool      `json:"exists_at_head" db:"exists_at_head"`
	Revisions           int64     `json:"revisions" db:"revisions"`
	UnfilteredRevisions int64     `json:"unfiltered_revisions" db:"unfiltered_revisions"`
	FirstSeen           time.Time `json:"first_seen" db:"first_seen"`
	LastSeen            time.Time `json:"last_seen" db:"last_seen"`
}

// RenameEvent records a single rename hint captured during extraction.
type RenameEvent struct {
	CommitID   string `json:"commit_id" db:"commit_id"`
	OldPath    string `json:"old_path" db:"old_path"`
	NewPath    string `json:"new_path" db:"new_path"`
	Similarity int    `json:"similarity" db:"similarity"`
}

// Edge is an undirected coupling relationship between two file identities,
// stored with a canonical src < dst ordering so each unordered pair has
// exactly one row.
type Edge struct {
	Src             int64   `json:"src" db:"src"`
	Dst             int64   `json:"dst" db:"dst"`
	PairCount       int64   `json:"pair_count" db:"pair_count"`
	PairWeight      float64 `json:"pair_weight" db:"pair_weight"`
	SrcCount        int64   `json:"src_count" db:"src_count"`
	DstCount        int64   `json:"dst_count" db:"dst_count"`
	Jaccard         float64 `json:"jaccard" db:"jaccard"`
	JaccardWeighted float64 `json:"jaccard_weighted" db:"jaccard_weighted"`
	PDstGivenSrc    float64 `json:"p_dst_given_src" db:"p_dst_given_src"`
	PSrcGivenDst    float64 `json:"p_src_given_dst" db:"p_src_given_dst"`
}

// ComponentEdge is a folder-level aggregate of Edge rows at a fixed prefix
// depth, with the same canonical ordering convention as Edge.
type ComponentEdge struct {
	Depth        int     `json:"depth" db:"depth"`
	SrcComponent string  `json:"src_component" db:"src_component"`
	DstComponent string  `json:"dst_component" db:"dst_component"`
	CoChangeSum  int64   `json:"co_change_sum" db:"co_change_sum"`
	Jaccard      float64 `json:"jaccard" db:"jaccard"`
}

// ClusterMember is one file identity's membership in a cluster within a
// ClusteringSnapshot.
type ClusterMember struct {
	SnapshotID string `json:"snapshot_id" db:"snapshot_id"`
	ClusterID  int    `json:"cluster_id" db:"cluster_id"`
	IdentityID int64  `json:"identity_id" db:"identity_id"`
}

// ClusterEnrichment holds the derived per-cluster statistics computed by
// the clustering runtime.
type ClusterEnrichment struct {
	ClusterID     int      `json:"cluster_id"`
	AvgCoupling   float64  `json:"avg_coupling"`
	TotalChurn    int64    `json:"total_churn"`
	HotFiles      []int64  `json:"hot_files"`
	TopCommits    []string `json:"top_commits"`
	CommonAuthors []string `json:"common_authors"`
	BusFactor     int      `json:"bus_factor"`
}

// ClusteringSnapshot is a persisted partition of identities into clusters
// produced by one run of a clustering algorithm.
type ClusteringSnapshot struct {
	ID          string             `json:"id" db:"id"`
	Name        string             `json:"name" db:"name"`
	Algorithm   string             `json:"algorithm" db:"algorithm"`
	Parameters  map[string]any     `json:"parameters"`
	CreatedAt   time.Time          `json:"created_at" db:"created_at"`
	Modularity  *float64           `json:"modularity,omitempty" db:"modularity"`
	Members     []ClusterMember    `json:"members,omitempty"`
	Enrichments []ClusterEnrichment `json:"enrichments,omitempty"`
	Tags        []string           `json:"tags,omitempty"`
	Description string             `json:"description,omitempty" db:"description"`
}

// RunStage is the AnalysisRun's stage within the running state.
type RunStage string

const (
	StageNotStarted RunStage = "not_started"
	StageQueued     RunStage = "queued"
	StageMirror     RunStage = "mirror"
	StageExtract    RunStage = "extract"
	StageResolve    RunStage = "resolve"
	StageBuild      RunStage = "build"
	StageDone       RunStage = "done"
	StageFailed     RunStage = "failed"
)

// RunCounts are the monotonically non-decreasing counters tracked per stage.
type RunCounts struct {
	Commits int64 `json:"commits"`
	Files   int64 `json:"files"`
	Edges   int64 `json:"edges"`
}

// Thresholds is the resolved parameter bag actually used for a run, kept on
// the AnalysisRun record so "filtered" and "didn't happen" are never
// ambiguous to a caller inspecting run status or stats.
type Thresholds struct {
	MinRevisions              int     `json:"min_revisions"`
	MaxChangesetSize          int     `json:"max_changeset_size"`
	MinCooccurrence           int     `json:"min_cooccurrence"`
	MinComponentCooccurrence  int     `json:"min_component_cooccurrence"`
	TopKEdgesPerFile          int     `json:"topk_edges_per_file"`
	RenameSimilarityThreshold int     `json:"rename_similarity_threshold"`
	MergeWeight               float64 `json:"merge_weight"`
}

// AnalysisRun tracks one run of the analysis pipeline for a repository.
type AnalysisRun struct {
	ID         string     `json:"id" db:"id"`
	RepoID     string     `json:"repo_id" db:"repo_id"`
	Stage      RunStage   `json:"stage" db:"stage"`
	Percentage int        `json:"percentage" db:"percentage"`
	Counts     RunCounts  `json:"counts"`
	Thresholds Thresholds `json:"thresholds"`
	ErrorKind  string     `json:"error_kind,omitempty" db:"error_kind"`
	ErrorMsg   string     `json:"error_message,omitempty" db:"error_message"`
	StartedAt  time.Time  `json:"started_at" db:"started_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}

// Repository is a registered analysis target: a stable ID the rest of the
// system keys its per-repository catalog directory on, plus the source
// (a local path or clone URL) the mirror resolves it from. It is tracked
// by the HTTP surface's repository registry rather than the catalog
// schema, since §3's schema models one repository's own data, not a
// cross-repository index of them.
type Repository struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}
