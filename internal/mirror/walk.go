package mirror

import (
	"context"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	lfcagit "github.com/lfca/lfca/internal/git"
	"github.com/lfca/lfca/internal/lfcaerrors"
)

// Walk streams RawCommits in reverse-chronological order (or forward, per
// opts.Forward), with per-commit file changes computed by diffing each
// commit's tree against its first parent's tree, as
// davetashner-stringer's gitlog collector does. Changes are delivered on
// the returned channel; the caller must drain it to completion or the
// producer goroutine leaks. Errors are delivered on the error channel and
// terminate the walk.
func (h *MirrorHandle) Walk(opts WalkOptions) (<-chan RawCommit, <-chan error) {
	out := make(chan RawCommit, 64)
	errc := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errc)

		head, err := h.repo.Head()
		if err != nil {
			errc <- lfcaerrors.IOf(err, "failed to resolve HEAD")
			return
		}

		order := git.LogOrderCommitterTime
		iter, err := h.repo.Log(&git.LogOptions{From: head.Hash(), Order: order})
		if err != nil {
			errc <- lfcaerrors.IOf(err, "failed to walk commit history")
			return
		}
		defer iter.Close()

		var commits []*object.Commit
		walkErr := iter.ForEach(func(c *object.Commit) error {
			commits = append(commits, c)
			return nil
		})
		if walkErr != nil {
			errc <- lfcaerrors.IOf(walkErr, "commit walk aborted")
			return
		}

		if opts.Forward {
			sortForward(commits, h.path)
		}

		threshold := opts.RenameSimilarityThreshold
		if threshold <= 0 {
			threshold = 80
		}

		for _, c := range commits {
			raw, err := toRawCommit(c, threshold)
			if err != nil {
				errc <- err
				return
			}
			out <- raw
		}
	}()

	return out, errc
}

// sortForward orders commits parents-before-children using git's own
// topological sort, falling back to a plain committer-time reversal if that
// order cannot be computed (e.g. the git binary isn't available) — a
// best-effort ordering is better than failing the whole walk over a
// forward-order nicety. Commits missing from git's order (e.g. in a
// shallow clone) compare as unordered against the others.
func sortForward(commits []*object.Commit, repoPath string) {
	order, err := lfcagit.NewTopologicalSorter(repoPath).ComputeTopologicalOrder(context.Background())
	if err != nil {
		for i, j := 0, len(commits)-1; i < j; i, j = i+1, j-1 {
			commits[i], commits[j] = commits[j], commits[i]
		}
		return
	}

	sort.SliceStable(commits, func(i, j int) bool {
		oi, oki := order[commits[i].Hash.String()]
		oj, okj := order[commits[j].Hash.String()]
		if !oki || !okj {
			return false
		}
		return oi < oj
	})
}

func toRawCommit(c *object.Commit, renameThreshold int) (RawCommit, error) {
	raw := RawCommit{
		ID:          c.Hash.String(),
		Timestamp:   c.Author.When,
		AuthorName:  c.Author.Name,
		AuthorEmail: c.Author.Email,
		ParentCount: c.NumParents(),
	}

	if c.NumParents() == 0 {
		tree, err := c.Tree()
		if err != nil {
			return raw, lfcaerrors.IOf(err, "failed to load tree for root commit %s", c.Hash)
		}
		raw.Changes = rawChangesFromRootTree(tree)
		return raw, nil
	}

	// §4.2's merge/bulk policies are the Extractor's job; the mirror
	// reports the first-parent diff for every commit (including merges),
	// which is the conventional "what did this commit change" view.
	parent, err := c.Parent(0)
	if err != nil {
		return raw, lfcaerrors.IOf(err, "failed to load parent of %s", c.Hash)
	}
	parentTree, err := parent.Tree()
	if err != nil {
		return raw, lfcaerrors.IOf(err, "failed to load parent tree for %s", c.Hash)
	}
	commitTree, err := c.Tree()
	if err != nil {
		return raw, lfcaerrors.IOf(err, "failed to load tree for %s", c.Hash)
	}
	changes, err := parentTree.Diff(commitTree)
	if err != nil {
		return raw, lfcaerrors.IOf(err, "failed to diff commit %s", c.Hash)
	}

	raw.Changes = rawChangesFromDiff(changes, renameThreshold)
	return raw, nil
}

// rawChangesFromRootTree reports every blob in a repository's first commit
// as an Added change — there is no parent tree to diff against.
func rawChangesFromRootTree(tree *object.Tree) []RawChange {
	var adds []RawChange
	files := tree.Files()
	defer files.Close()
	for {
		f, err := files.Next()
		if err != nil {
			break
		}
		adds = append(adds, RawChange{Path: f.Name, Kind: RawAdded})
	}
	return adds
}

// rawChangesFromDiff classifies each tree Change as Add/Modify/Delete, then
// pairs up same-commit Delete+Add changes whose blob content is similar
// enough to report as a Rename — go-git's merkletrie diff reports renames
// as a delete plus an insert, so pairing is done here rather than relying
// on a rename-aware diff API.
func rawChangesFromDiff(changes object.Changes, renameThreshold int) []RawChange {
	var adds, dels, mods []RawChange
	addContent := map[string]string{}
	delContent := map[string]string{}

	for _, ch := range changes {
		action, err := ch.Action()
		if err != nil {
			continue
		}
		from, to, ferr := ch.Files()
		if ferr != nil {
			continue
		}

		switch action.String() {
		case "Insert":
			if to != nil {
				adds = append(adds, RawChange{Path: to.Name, Kind: RawAdded})
				if content, err := to.Contents(); err == nil {
					addContent[to.Name] = content
				}
			}
		case "Delete":
			if from != nil {
				dels = append(dels, RawChange{Path: from.Name, Kind: RawDeleted})
				if content, err := from.Contents(); err == nil {
					delContent[from.Name] = content
				}
			}
		default: // "Modify"
			if to != nil {
				mods = append(mods, RawChange{Path: to.Name, Kind: RawModified})
			}
		}
	}

	renamed, remainingAdds, remainingDels := pairRenames(adds, dels, addContent, delContent, renameThreshold)

	result := make([]RawChange, 0, len(remainingAdds)+len(remainingDels)+len(mods)+len(renamed))
	result = append(result, renamed...)
	result = append(result, remainingAdds...)
	result = append(result, remainingDels...)
	result = append(result, mods...)
	return result
}

// pairRenames greedily matches each delete against the most-similar
// remaining add whose similarity clears renameThreshold (0-100), computed
// as a line-overlap ratio between the two blobs' contents.
func pairRenames(adds, dels []RawChange, addContent, delContent map[string]string, renameThreshold int) (renamed, remainingAdds, remainingDels []RawChange) {
	usedAdds := make(map[int]bool)

	for _, d := range dels {
		bestIdx := -1
		bestScore := -1
		for i, a := range adds {
			if usedAdds[i] {
				continue
			}
			score := lineOverlapScore(delContent[d.Path], addContent[a.Path])
			if score > bestScore {
				bestScore = score
				bestIdx = i
			}
		}
		if bestIdx >= 0 && bestScore >= renameThreshold {
			usedAdds[bestIdx] = true
			renamed = append(renamed, RawChange{
				Path:       adds[bestIdx].Path,
				Kind:       RawRenamed,
				OldPath:    d.Path,
				Similarity: bestScore,
			})
		} else {
			remainingDels = append(remainingDels, d)
		}
	}

	for i, a := range adds {
		if !usedAdds[i] {
			remainingAdds = append(remainingAdds, a)
		}
	}
	return renamed, remainingAdds, remainingDels
}

// lineOverlapScore returns an integer 0-100 similarity between two texts
// as the Jaccard overlap of their line sets, scaled to a percentage. Empty
// inputs never match (both must have at least one line in common).
func lineOverlapScore(a, b string) int {
	if a == "" || b == "" {
		return 0
	}
	setA := lineSet(a)
	setB := lineSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	common := 0
	for line := range setA {
		if setB[line] {
			common++
		}
	}
	union := len(setA) + len(setB) - common
	if union == 0 {
		return 0
	}
	return (common * 100) / union
}

func lineSet(text string) map[string]bool {
	lines := strings.Split(text, "\n")
	set := make(map[string]bool, len(lines))
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l != "" {
			set[l] = true
		}
	}
	return set
}
