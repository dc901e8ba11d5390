package git

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func TestFindGitRoot(t *testing.T) {
	// Create a temporary directory for test repo
	tmpDir := t.TempDir()
	oldDir, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(oldDir)

	// Change to temp directory
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatal(err)
	}

	// Test 1: Not in a git repo
	_, err = FindGitRoot(tmpDir)
	if err == nil {
		t.Error("Expected error when not in git repo")
	}

	// Test 2: In a git repo
	if err := exec.Command("git", "init").Run(); err != nil {
		t.Skip("git not available")
	}

	root, err := FindGitRoot(tmpDir)
	if err != nil {
		t.Fatalf("FindGitRoot() error = %v", err)
	}

	// Resolve both paths to compare (use EvalSymlinks for macOS /var -> /private/var)
	expectedRoot, _ := filepath.EvalSymlinks(tmpDir)
	actualRoot, _ := filepath.EvalSymlinks(root)
	if actualRoot != expectedRoot {
		t.Errorf("Expected root %s, got %s", expectedRoot, actualRoot)
	}

	// Test 3: In subdirectory of git repo
	subDir := filepath.Join(tmpDir, "subdir")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(subDir); err != nil {
		t.Fatal(err)
	}

	root, err = FindGitRoot(subDir)
	if err != nil {
		t.Fatalf("FindGitRoot() error = %v", err)
	}

	actualRoot, _ = filepath.EvalSymlinks(root)
	if actualRoot != expectedRoot {
		t.Errorf("From subdirectory, expected root %s, got %s", expectedRoot, actualRoot)
	}
}
