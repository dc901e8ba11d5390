package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lfca/lfca/internal/catalog"
	lfcagit "github.com/lfca/lfca/internal/git"
	"github.com/lfca/lfca/internal/mirror"
	"github.com/lfca/lfca/internal/orchestrator"
	"github.com/lfca/lfca/internal/query"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Read coupling and file data out of a repository's catalog",
}

var couplingMetric string

var couplingCmd = &cobra.Command{
	Use:   "coupling [repo-id] [path]",
	Short: "Show a file's coupled files, ranked by the selected metric",
	Args:  cobra.ExactArgs(2),
	RunE:  runCoupling,
}

var fileHistoryCmd = &cobra.Command{
	Use:   "history [repo-id] [path]",
	Short: "Show a file's change history",
	Args:  cobra.ExactArgs(2),
	RunE:  runFileHistory,
}

var resolveSource string

var resolveCmd = &cobra.Command{
	Use:   "resolve [repo-id] [path]",
	Short: "Resolve a current path to its historical graph paths (exact + git log --follow)",
	Long: `resolve bridges a current file path to the paths it was known as in the
graph index, combining an exact lookup with git's own rename-follow
history — useful when a path was renamed after the catalog was built, or
when driving a lookup against historical commit data that predates a
rename. Requires a Neo4j graph index (catalog.graph_index_uri) since the
SQL catalog resolves by current path only.`,
	Args: cobra.ExactArgs(2),
	RunE: runResolve,
}

func init() {
	couplingCmd.Flags().StringVar(&couplingMetric, "metric", "jaccard", "coupling metric: jaccard, jaccard_weighted, pair_count, p_dst_given_src, p_src_given_dst")
	resolveCmd.Flags().StringVar(&resolveSource, "source", "", "mirror source (local path or clone URL); defaults to the repository's own mirror cache")
	queryCmd.AddCommand(couplingCmd)
	queryCmd.AddCommand(fileHistoryCmd)
	queryCmd.AddCommand(resolveCmd)
}

func engineForCmd(repoID string) (*query.Engine, func(), error) {
	orch := orchestrator.New(cfg, logger)
	store, err := orch.Registry().Get(repoID)
	if err != nil {
		orch.Shutdown()
		return nil, nil, err
	}
	return query.New(store), orch.Shutdown, nil
}

func runCoupling(cmd *cobra.Command, args []string) error {
	eng, cleanup, err := engineForCmd(args[0])
	if err != nil {
		return err
	}
	defer cleanup()

	coupled, err := eng.Coupling(context.Background(), args[1], couplingMetric, 0, 0, false)
	if err != nil {
		return err
	}
	if len(coupled) == 0 {
		fmt.Println("no surviving edges")
		return nil
	}
	for _, c := range coupled {
		fmt.Printf("%-40s %s=%.4f  pair_count=%d jaccard=%.4f jaccard_weighted=%.4f p(dst|src)=%.4f p(src|dst)=%.4f\n",
			c.Path, c.Metric, c.Value, c.PairCount, c.Jaccard, c.JaccardWeighted, c.PDstGivenSrc, c.PSrcGivenDst)
	}
	return nil
}

// runResolve answers "what current/historical paths correspond to this
// path", combining an exact graph-index lookup with git.FileResolver's
// git-log-follow fallback.
func runResolve(cmd *cobra.Command, args []string) error {
	repoID, path := args[0], args[1]
	if cfg.Catalog.GraphIndexURI == "" {
		return fmt.Errorf("resolve requires a graph index (set catalog.graph_index_uri)")
	}

	source := resolveSource
	if source == "" {
		source = repoID
	}
	handle, err := mirror.Mirror(source, cfg.Mirror.CacheDir, cfg.Mirror.ShallowDepth, logger)
	if err != nil {
		return fmt.Errorf("failed to open mirror for %s: %w", source, err)
	}

	ctx := context.Background()
	graphIndex, err := catalog.NewGraphIndexWriter(ctx, cfg.Catalog.GraphIndexURI, cfg.Catalog.GraphIndexUser, cfg.Catalog.GraphIndexPassword, cfg.Catalog.GraphIndexDatabase)
	if err != nil {
		return fmt.Errorf("failed to connect to graph index: %w", err)
	}
	defer graphIndex.Close(ctx)

	resolver := lfcagit.NewFileResolver(handle.Path(), graphIndex)
	matches, err := resolver.Resolve(ctx, path)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		fmt.Println("no matches found")
		return nil
	}
	for _, m := range matches {
		fmt.Printf("%-40s confidence=%.2f method=%s\n", m.HistoricalPath, m.Confidence, m.Method)
	}
	return nil
}

func runFileHistory(cmd *cobra.Command, args []string) error {
	eng, cleanup, err := engineForCmd(args[0])
	if err != nil {
		return err
	}
	defer cleanup()

	changes, err := eng.FileHistory(context.Background(), args[1], 20)
	if err != nil {
		return err
	}
	for _, ch := range changes {
		fmt.Printf("%s  %-10s  %s\n", ch.CommitID, ch.Kind, ch.Path)
	}
	return nil
}
