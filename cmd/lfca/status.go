package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lfca/lfca/internal/orchestrator"
)

var statusCmd = &cobra.Command{
	Use:   "status [repo-id]",
	Short: "Show the latest analysis run for a repository",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	orch := orchestrator.New(cfg, logger)
	defer orch.Shutdown()

	run, err := orch.Status(context.Background(), args[0])
	if err != nil {
		return err
	}

	fmt.Printf("repository: %s\n", run.RepoID)
	fmt.Printf("stage:      %s (%d%%)\n", run.Stage, run.Percentage)
	fmt.Printf("commits:    %d\n", run.Counts.Commits)
	fmt.Printf("files:      %d\n", run.Counts.Files)
	fmt.Printf("edges:      %d\n", run.Counts.Edges)
	if run.ErrorMsg != "" {
		fmt.Printf("error:      [%s] %s\n", run.ErrorKind, run.ErrorMsg)
	}
	return nil
}
