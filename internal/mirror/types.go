// Package mirror implements the Repo Mirror component (§4.1): it
// materializes a local, read-only image of a target repository and
// exposes the current head file listing plus a commit walk with
// per-commit file changes and rename hints. All version-control-specific
// I/O is isolated behind this package so the rest of the pipeline never
// parses raw git tool output.
package mirror

import "time"

// RawChangeKind is the vocabulary the mirror reports before the Extractor
// applies its own strict parsing and rejection rules (§4.2). It is a
// closed Go type, not a string, for the same reason models.ChangeKind is.
type RawChangeKind int

const (
	RawAdded RawChangeKind = iota
	RawModified
	RawDeleted
	RawRenamed
)

// RawChange is one file observation within a RawCommit, as reported by
// the mirror's walk, prior to Extractor policy application.
type RawChange struct {
	Path       string
	Kind       RawChangeKind
	OldPath    string // non-empty iff Kind == RawRenamed
	Similarity int    // 0-100, meaningful iff Kind == RawRenamed
}

// RawCommit is one commit as reported by the mirror's walk.
type RawCommit struct {
	ID          string
	Timestamp   time.Time
	AuthorName  string
	AuthorEmail string
	ParentCount int
	Changes     []RawChange
}

// WalkOptions controls the commit walk's traversal.
type WalkOptions struct {
	// Forward requests chronological (oldest-first) order; the default is
	// reverse-chronological, matching go-git's native log order.
	Forward bool
	// RenameSimilarityThreshold gates which delete/insert pairs within a
	// commit are reported as RawRenamed rather than independent
	// RawDeleted+RawAdded observations.
	RenameSimilarityThreshold int
}
