package git

import (
	"os/exec"
	"strings"
)

// FindGitRoot returns the root directory of the git repository containing
// dir, resolving a subdirectory up to its repo root — the mirror's
// local-path handling uses this so pointing the analyzer at a subdirectory
// still covers the whole repository's history.
// Uses git rev-parse --show-toplevel to find repo root
func FindGitRoot(dir string) (string, error) {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(output)), nil
}
