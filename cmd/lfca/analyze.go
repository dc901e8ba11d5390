package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lfca/lfca/internal/git"
	"github.com/lfca/lfca/internal/models"
	"github.com/lfca/lfca/internal/orchestrator"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [repo-id] [source]",
	Short: "Start an analysis run and wait for it to finish",
	Long: `analyze mirrors source (a local path or clone URL), extracts its commit
history, resolves file identities, and builds the coupling graph, reporting
stage progress until the run reaches done or failed.

source defaults to the current directory's git remote URL when omitted.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runAnalyze,
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	repoID := args[0]
	source := ""
	if len(args) == 2 {
		source = args[1]
	} else {
		if err := git.DetectGitRepo(); err != nil {
			return fmt.Errorf("source not given and %w", err)
		}
		remote, err := git.GetRemoteURL()
		if err != nil {
			return fmt.Errorf("source not given and no git remote configured: %w", err)
		}
		source = remote

		if branch, err := git.GetCurrentBranch(); err == nil {
			fmt.Printf("using local git remote %s (branch %s)\n", source, branch)
		}
	}

	orch := orchestrator.New(cfg, logger)
	defer orch.Shutdown()

	run, err := orch.Start(repoID, source)
	if err != nil {
		return err
	}
	fmt.Printf("started run %s for %s (source: %s)\n", run.ID, repoID, source)

	ctx := context.Background()
	for {
		time.Sleep(500 * time.Millisecond)
		run, err = orch.Status(ctx, repoID)
		if err != nil {
			return err
		}
		fmt.Printf("  [%s] %3d%% commits=%d files=%d edges=%d\n",
			run.Stage, run.Percentage, run.Counts.Commits, run.Counts.Files, run.Counts.Edges)
		if run.Stage == models.StageDone {
			fmt.Println("analysis complete")
			return nil
		}
		if run.Stage == models.StageFailed {
			return fmt.Errorf("analysis failed (%s): %s", run.ErrorKind, run.ErrorMsg)
		}
	}
}
