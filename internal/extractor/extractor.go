// Package extractor implements the Extractor component (§4.2): it
// consumes the mirror's raw commit walk and emits one Commit plus an
// ordered sequence of Change records per commit, applying strict change-
// kind parsing, merge policy, and changeset-size (bulk) policy.
package extractor

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/lfca/lfca/internal/lfcaerrors"
	"github.com/lfca/lfca/internal/mirror"
	"github.com/lfca/lfca/internal/models"
)

// MergePolicy controls how commits with more than one parent are handled.
type MergePolicy string

const (
	MergeInclude   MergePolicy = "include"
	MergeExclude   MergePolicy = "exclude"
	MergeDownweight MergePolicy = "downweight"
)

// BulkPolicy controls how commits whose changeset exceeds MaxChangesetSize
// are handled.
type BulkPolicy string

const (
	BulkKeep       BulkPolicy = "keep"
	BulkDrop       BulkPolicy = "drop"
	BulkDownweight BulkPolicy = "downweight"
)

// Options configures a single extraction run.
type Options struct {
	RenameSimilarityThreshold int
	MergePolicy               MergePolicy
	MergeWeight               float64
	MaxChangesetSize          int
	BulkPolicy                BulkPolicy
}

// DefaultOptions returns the spec's stated defaults (§4.2).
func DefaultOptions() Options {
	return Options{
		RenameSimilarityThreshold: 80,
		MergePolicy:               MergeInclude,
		MergeWeight:               0.5,
		MaxChangesetSize:          50,
		BulkPolicy:                BulkKeep,
	}
}

// ExtractedCommit bundles a Commit with its Changes and its weight — 1.0
// unless the merge-downweight or bulk-downweight policy applies (§4.2,
// §4.4). The Graph Builder applies the weight to its weighted sums
// (pair_weight and the per-identity weight totals); pair_count and the
// per-identity counts stay unweighted, and a weight-0 commit is skipped.
type ExtractedCommit struct {
	Commit  models.Commit
	Changes []models.Change
	Weight  float64
	// SizeDivisor is |changes(commit)|; only meaningful when
	// len(Changes) > 0. The Graph Builder does not read it: its pair_weight
	// term divides by the commit's count of distinct identities.
	SizeDivisor int
}

// changeKindTokens is the closed vocabulary a path is forbidden from
// colliding with — this is the leakage class flagged by QA #004/#007: a
// status token, author email, or raw timestamp ending up in the path
// column because a positional field was misread as a path.
var changeKindTokens = map[string]bool{
	"A": true, "M": true, "D": true, "R": true,
	"Added": true, "Modified": true, "Deleted": true, "Renamed": true,
}

var emailLikeRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
var numericTimestampRe = regexp.MustCompile(`^\d{9,13}$`)
var controlCharRe = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F]`)

// Extractor runs the strict-parsing, merge, and bulk policies over a
// mirror's raw commit stream.
type Extractor struct {
	opts   Options
	logger *logrus.Logger

	consecutiveParseErrors int
}

// New creates an Extractor with the given options.
func New(opts Options, logger *logrus.Logger) *Extractor {
	if logger == nil {
		logger = logrus.New()
	}
	return &Extractor{opts: opts, logger: logger}
}

// Extract runs the pipeline to completion, returning one ExtractedCommit
// per surviving raw commit, plus the RenameEvents observed across the
// whole run (forwarded to the Identity Resolver). Three consecutive
// parse errors abort the run per §4.2's failure semantics.
func (e *Extractor) Extract(raw <-chan mirror.RawCommit, rawErr <-chan error) ([]ExtractedCommit, []models.RenameEvent, error) {
	var out []ExtractedCommit
	var renames []models.RenameEvent

	for rc := range raw {
		ec, evs, err := e.extractOne(rc)
		if err != nil {
			e.consecutiveParseErrors++
			e.logger.WithFields(logrus.Fields{"commit_id": rc.ID, "error": err.Error()}).Warn("skipping commit: parse error")
			if e.consecutiveParseErrors >= 3 {
				return out, renames, lfcaerrors.Statef("three consecutive parse errors, aborting at commit %s", rc.ID)
			}
			continue
		}
		e.consecutiveParseErrors = 0
		if ec != nil {
			out = append(out, *ec)
		}
		renames = append(renames, evs...)
	}

	if err := <-rawErr; err != nil {
		return out, renames, err
	}

	return out, renames, nil
}

func (e *Extractor) extractOne(rc mirror.RawCommit) (*ExtractedCommit, []models.RenameEvent, error) {
	isMerge := rc.ParentCount > 1

	if isMerge && e.opts.MergePolicy == MergeExclude {
		return &ExtractedCommit{
			Commit: models.Commit{
				ID: rc.ID, Timestamp: rc.Timestamp, AuthorName: rc.AuthorName,
				AuthorEmail: rc.AuthorEmail, ParentCount: rc.ParentCount, ChangesetSize: 0,
			},
			Weight: 1.0,
		}, nil, nil
	}

	changes := make([]models.Change, 0, len(rc.Changes))
	var renameEvents []models.RenameEvent

	for _, rawCh := range rc.Changes {
		ch, err := e.parseChange(rc.ID, rawCh)
		if err != nil {
			return nil, nil, err
		}
		changes = append(changes, ch)
		if ch.Kind == models.ChangeKindRenamed {
			renameEvents = append(renameEvents, models.RenameEvent{
				CommitID:   rc.ID,
				OldPath:    ch.Rename.OldPath,
				NewPath:    ch.Path,
				Similarity: ch.Rename.Similarity,
			})
		}
	}

	weight := 1.0
	if isMerge && e.opts.MergePolicy == MergeDownweight {
		weight *= e.opts.MergeWeight
	}

	if e.opts.MaxChangesetSize > 0 && len(changes) > e.opts.MaxChangesetSize {
		switch e.opts.BulkPolicy {
		case BulkDrop:
			return &ExtractedCommit{
				Commit: models.Commit{
					ID: rc.ID, Timestamp: rc.Timestamp, AuthorName: rc.AuthorName,
					AuthorEmail: rc.AuthorEmail, ParentCount: rc.ParentCount, ChangesetSize: len(changes),
				},
				Weight: 0, // dropped from pair counting entirely
			}, renameEvents, nil
		case BulkDownweight:
			weight *= 1.0 / float64(len(changes))
		}
	}

	commit := models.Commit{
		ID:            rc.ID,
		Timestamp:     rc.Timestamp,
		AuthorName:    rc.AuthorName,
		AuthorEmail:   rc.AuthorEmail,
		ParentCount:   rc.ParentCount,
		ChangesetSize: len(changes),
	}

	return &ExtractedCommit{
		Commit:      commit,
		Changes:     changes,
		Weight:      weight,
		SizeDivisor: len(changes),
	}, renameEvents, nil
}

func (e *Extractor) parseChange(commitID string, rawCh mirror.RawChange) (models.Change, error) {
	if err := validatePath(rawCh.Path); err != nil {
		return models.Change{}, err
	}

	switch rawCh.Kind {
	case mirror.RawAdded:
		return models.Change{CommitID: commitID, Path: rawCh.Path, Kind: models.ChangeKindAdded}, nil
	case mirror.RawModified:
		return models.Change{CommitID: commitID, Path: rawCh.Path, Kind: models.ChangeKindModified}, nil
	case mirror.RawDeleted:
		return models.Change{CommitID: commitID, Path: rawCh.Path, Kind: models.ChangeKindDeleted}, nil
	case mirror.RawRenamed:
		if err := validatePath(rawCh.OldPath); err != nil {
			return models.Change{}, err
		}
		threshold := e.opts.RenameSimilarityThreshold
		if threshold <= 0 {
			threshold = 80
		}
		if rawCh.Similarity < threshold {
			// Below the configured threshold: not a rename hint worth
			// capturing, treat as an independent delete + add.
			e.logger.WithFields(logrus.Fields{
				"commit_id":  commitID,
				"old_path":   rawCh.OldPath,
				"new_path":   rawCh.Path,
				"similarity": formatSimilarity(rawCh.Similarity),
			}).Debug("rename similarity below threshold, treating as add")
			return models.Change{CommitID: commitID, Path: rawCh.Path, Kind: models.ChangeKindAdded}, nil
		}
		e.logger.WithFields(logrus.Fields{
			"commit_id":  commitID,
			"old_path":   rawCh.OldPath,
			"new_path":   rawCh.Path,
			"similarity": formatSimilarity(rawCh.Similarity),
		}).Debug("rename detected")
		return models.Change{
			CommitID: commitID,
			Path:     rawCh.Path,
			Kind:     models.ChangeKindRenamed,
			Rename:   &models.RenameDetail{OldPath: rawCh.OldPath, Similarity: rawCh.Similarity},
		}, nil
	default:
		return models.Change{}, lfcaerrors.Parsef("unrecognized change kind for path %q in commit %s", rawCh.Path, commitID)
	}
}

// validatePath rejects the class of corruption flagged by QA #004/#007:
// a path that is actually a change-kind token, an email address, or a
// bare numeric timestamp that leaked in from a misaligned column, plus
// any path carrying control characters.
func validatePath(path string) error {
	if path == "" {
		return lfcaerrors.Parse("empty path in change record")
	}
	if controlCharRe.MatchString(path) {
		return lfcaerrors.Parsef("path %q contains control characters", path)
	}
	if changeKindTokens[path] {
		return lfcaerrors.Parsef("path %q is a reserved change-kind token", path)
	}
	if emailLikeRe.MatchString(path) {
		return lfcaerrors.Parsef("path %q looks like an email address", path)
	}
	if numericTimestampRe.MatchString(path) {
		return lfcaerrors.Parsef("path %q looks like a raw numeric timestamp", path)
	}
	return nil
}

// ParseMergePolicy validates and converts a string into a MergePolicy.
func ParseMergePolicy(s string) (MergePolicy, error) {
	switch MergePolicy(strings.ToLower(s)) {
	case MergeInclude:
		return MergeInclude, nil
	case MergeExclude:
		return MergeExclude, nil
	case MergeDownweight:
		return MergeDownweight, nil
	default:
		return "", lfcaerrors.Validationf("unknown merge policy %q (want include, exclude, or downweight)", s)
	}
}

// ParseBulkPolicy validates and converts a string into a BulkPolicy.
func ParseBulkPolicy(s string) (BulkPolicy, error) {
	switch BulkPolicy(strings.ToLower(s)) {
	case BulkKeep:
		return BulkKeep, nil
	case BulkDrop:
		return BulkDrop, nil
	case BulkDownweight:
		return BulkDownweight, nil
	default:
		return "", lfcaerrors.Validationf("unknown bulk policy %q (want keep, drop, or downweight)", s)
	}
}

// formatSimilarity renders a similarity score for log messages.
func formatSimilarity(score int) string {
	return strconv.Itoa(score) + "%"
}
