package git

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// TopologicalSorter handles git topological ordering operations
type TopologicalSorter struct {
	repoPath string
}

// NewTopologicalSorter creates a new topological sorter for the given repo
func NewTopologicalSorter(repoPath string) *TopologicalSorter {
	return &TopologicalSorter{
		repoPath: repoPath,
	}
}

// ComputeTopologicalOrder computes topological ordering for all commits
// Returns map of commit SHA -> topological_index (0-based)
// Parents always have lower index than children
func (ts *TopologicalSorter) ComputeTopologicalOrder(ctx context.Context) (map[string]int, error) {
	// Execute: git rev-list --topo-order --reverse HEAD
	// This gives us commits in topological order: parents before children
	cmd := exec.CommandContext(ctx, "git", "rev-list", "--topo-order", "--reverse", "HEAD")
	cmd.Dir = ts.repoPath

	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git rev-list failed: %w", err)
	}

	// Parse output and build index map
	result := make(map[string]int)
	scanner := bufio.NewScanner(bytes.NewReader(output))
	index := 0

	for scanner.Scan() {
		sha := strings.TrimSpace(scanner.Text())
		if sha != "" {
			result[sha] = index
			index++
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to parse git output: %w", err)
	}

	return result, nil
}
