package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/lfca/lfca/internal/clustering"
	"github.com/lfca/lfca/internal/extractor"
	"github.com/lfca/lfca/internal/models"
	"github.com/lfca/lfca/internal/orchestrator"
)

// runSpec is the decoded shape of a `cluster run --spec=file.yaml` run
// descriptor: an algorithm name plus its raw parameter bag, read from disk
// instead of assembled from individual flags.
type runSpec struct {
	Algorithm  string         `yaml:"algorithm"`
	Name       string         `yaml:"name"`
	Parameters map[string]any `yaml:"parameters"`
}

func loadRunSpec(path string) (runSpec, error) {
	var spec runSpec
	data, err := os.ReadFile(path)
	if err != nil {
		return spec, fmt.Errorf("reading spec file: %w", err)
	}
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return spec, fmt.Errorf("parsing spec file: %w", err)
	}
	return spec, nil
}

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Run and inspect clustering snapshots",
}

var (
	clusterAlgorithm string
	clusterName      string
	clusterEps       float64
	clusterMinSample int
	clusterNClusters int
	clusterLinkage   string
	clusterResolution float64
	clusterSpecFile  string
)

var clusterRunCmd = &cobra.Command{
	Use:   "run [repo-id]",
	Short: "Run a clustering algorithm against a repository's coupling graph",
	Args:  cobra.ExactArgs(1),
	RunE:  runClusterRun,
}

var clusterListCmd = &cobra.Command{
	Use:   "list [repo-id]",
	Short: "List clustering snapshots for a repository",
	Args:  cobra.ExactArgs(1),
	RunE:  runClusterList,
}

func init() {
	clusterRunCmd.Flags().StringVar(&clusterAlgorithm, "algorithm", string(clustering.Louvain), "louvain, hierarchical, dbscan, label_propagation, connected_components")
	clusterRunCmd.Flags().StringVar(&clusterName, "name", "", "snapshot name")
	clusterRunCmd.Flags().Float64Var(&clusterEps, "eps", 0, "dbscan: neighbor distance threshold")
	clusterRunCmd.Flags().IntVar(&clusterMinSample, "min-samples", 1, "dbscan: minimum neighborhood size for a core point, the point itself included")
	clusterRunCmd.Flags().IntVar(&clusterNClusters, "n-clusters", 0, "hierarchical: target cluster count")
	clusterRunCmd.Flags().StringVar(&clusterLinkage, "linkage", "average", "hierarchical: ward, complete, average, single")
	clusterRunCmd.Flags().Float64Var(&clusterResolution, "resolution", 1.0, "louvain: modularity resolution")
	clusterRunCmd.Flags().StringVar(&clusterSpecFile, "spec", "", "YAML run-spec file (algorithm, name, parameters) instead of individual flags")

	clusterCmd.AddCommand(clusterRunCmd)
	clusterCmd.AddCommand(clusterListCmd)
}

func runClusterRun(cmd *cobra.Command, args []string) error {
	repoID := args[0]

	algo := clustering.Algorithm(clusterAlgorithm)
	raw := map[string]any{}
	name := clusterName

	if clusterSpecFile != "" {
		spec, err := loadRunSpec(clusterSpecFile)
		if err != nil {
			return err
		}
		algo = clustering.Algorithm(spec.Algorithm)
		raw = spec.Parameters
		name = spec.Name
	} else {
		switch algo {
		case clustering.DBSCAN:
			raw["eps"] = clusterEps
			raw["min_samples"] = clusterMinSample
		case clustering.Hierarchical:
			if clusterNClusters > 0 {
				raw["n_clusters"] = clusterNClusters
			}
			raw["linkage"] = clusterLinkage
		case clustering.Louvain:
			raw["resolution"] = clusterResolution
		}
	}

	params, err := clustering.ResolveParams(algo, raw)
	if err != nil {
		return err
	}

	orch := orchestrator.New(cfg, logger)
	defer orch.Shutdown()

	store, err := orch.Registry().Get(repoID)
	if err != nil {
		return err
	}

	ctx := context.Background()
	edges, err := store.ListAllEdges(ctx)
	if err != nil {
		return err
	}
	identityList, err := store.ListAllIdentities(ctx)
	if err != nil {
		return err
	}
	identities := make(map[int64]*models.FileIdentity, len(identityList))
	for i := range identityList {
		identities[identityList[i].ID] = &identityList[i]
	}
	rows, err := store.ListAllCommitsWithChanges(ctx)
	if err != nil {
		return err
	}
	commits := make([]extractor.ExtractedCommit, 0, len(rows))
	for _, row := range rows {
		commits = append(commits, extractor.ExtractedCommit{Commit: row.Commit, Changes: row.Changes, Weight: 1, SizeDivisor: 1})
	}

	runtime := clustering.New(logger)
	snap, err := runtime.Run(uuid.NewString(), clustering.Input{Edges: edges, Identities: identities, Commits: commits}, params, time.Now())
	if err != nil {
		return err
	}
	snap.Name = name

	if err := store.SaveClusteringSnapshot(ctx, *snap); err != nil {
		return err
	}

	fmt.Printf("snapshot %s: %d clusters\n", snap.ID, len(snap.Enrichments))
	if snap.Modularity != nil {
		fmt.Printf("modularity: %.4f\n", *snap.Modularity)
	}
	return nil
}

func runClusterList(cmd *cobra.Command, args []string) error {
	orch := orchestrator.New(cfg, logger)
	defer orch.Shutdown()

	store, err := orch.Registry().Get(args[0])
	if err != nil {
		return err
	}
	snaps, err := store.ListClusteringSnapshots(context.Background())
	if err != nil {
		return err
	}
	for _, s := range snaps {
		fmt.Printf("%s  %-20s  %s  %s\n", s.ID, s.Algorithm, s.Name, s.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}
