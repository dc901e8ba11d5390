package mirror

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/sirupsen/logrus"

	lfcagit "github.com/lfca/lfca/internal/git"
	"github.com/lfca/lfca/internal/lfcaerrors"
)

// MirrorHandle is a materialized, read-only local image of a repository.
type MirrorHandle struct {
	repo     *git.Repository
	path     string
	source   string
	logger   *logrus.Logger
}

// Mirror produces a local mirror of source. A local path is opened in
// place at its git root; a clone URL is cloned under cacheDir, reusing an
// existing mirror if one is already present for this source. Grounded on
// the teacher's clone.go cache-by-hash scheme.
func Mirror(source, cacheDir string, shallowDepth int, logger *logrus.Logger) (*MirrorHandle, error) {
	if logger == nil {
		logger = logrus.New()
	}

	if isLocalPath(source) {
		root, err := lfcagit.FindGitRoot(source)
		if err != nil {
			return nil, lfcaerrors.IOf(err, "source is not inside a git repository: %s", source)
		}
		repo, err := git.PlainOpen(root)
		if err != nil {
			return nil, lfcaerrors.IOf(err, "source is not a git repository: %s", source)
		}
		return &MirrorHandle{repo: repo, path: root, source: source, logger: logger}, nil
	}

	mirrorPath := filepath.Join(cacheDir, cacheKey(source))
	if repo, err := git.PlainOpen(mirrorPath); err == nil {
		logger.WithFields(logrus.Fields{"source": source, "path": mirrorPath}).Info("reusing existing mirror")
		return &MirrorHandle{repo: repo, path: mirrorPath, source: source, logger: logger}, nil
	}

	if err := os.MkdirAll(filepath.Dir(mirrorPath), 0o755); err != nil {
		return nil, lfcaerrors.IOf(err, "failed to create mirror cache directory")
	}

	opts := &git.CloneOptions{URL: source}
	if shallowDepth > 0 {
		opts.Depth = shallowDepth
		opts.SingleBranch = true
	}

	logger.WithFields(logrus.Fields{"source": source, "path": mirrorPath}).Info("cloning mirror")
	repo, err := git.PlainClone(mirrorPath, false, opts)
	if err != nil {
		return nil, lfcaerrors.IOf(err, "failed to clone %s", source)
	}

	return &MirrorHandle{repo: repo, path: mirrorPath, source: source, logger: logger}, nil
}

func isLocalPath(source string) bool {
	if strings.Contains(source, "://") || strings.HasPrefix(source, "git@") {
		return false
	}
	info, err := os.Stat(source)
	return err == nil && info.IsDir()
}

// cacheKey derives the mirror's cache subdirectory name, preferring a
// readable "org_repo" form (adapted from the teacher's remote-URL
// parser) and falling back to a content hash for URL shapes it doesn't
// recognize — e.g. a URL without an org/repo path, or a local bundle path
// passed as a URL.
func cacheKey(source string) string {
	if org, repo, err := lfcagit.ParseRepoURL(source); err == nil {
		return org + "_" + repo
	}
	return hashSource(source)
}

func hashSource(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])[:16]
}

// Path returns the mirror's on-disk location.
func (h *MirrorHandle) Path() string { return h.path }

// ListHeadPaths returns every file path present in the repository's
// current HEAD snapshot, independent of the commit walk — the
// authoritative source for FileIdentity.ExistsAtHead reconciliation
// (invariant 4 in §8).
func (h *MirrorHandle) ListHeadPaths() (map[string]struct{}, error) {
	head, err := h.repo.Head()
	if err != nil {
		return nil, lfcaerrors.IOf(err, "failed to resolve HEAD")
	}
	commit, err := h.repo.CommitObject(head.Hash())
	if err != nil {
		return nil, lfcaerrors.IOf(err, "failed to load HEAD commit")
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, lfcaerrors.IOf(err, "failed to load HEAD tree")
	}

	paths := make(map[string]struct{})
	files := tree.Files()
	defer files.Close()
	for {
		f, err := files.Next()
		if err != nil {
			break
		}
		paths[f.Name] = struct{}{}
	}
	return paths, nil
}

func (h *MirrorHandle) String() string {
	return fmt.Sprintf("MirrorHandle{source=%s path=%s}", h.source, h.path)
}
