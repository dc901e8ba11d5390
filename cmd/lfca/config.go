package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lfca/lfca/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View and initialize lfca configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the resolved configuration",
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	RunE:  runConfigInit,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	fmt.Printf("data_dir:               %s\n", cfg.DataDir)
	fmt.Printf("catalog.backend:        %s\n", cfg.Catalog.Backend)
	fmt.Printf("catalog.sqlite_path:    %s\n", cfg.Catalog.SQLitePath)
	fmt.Printf("mirror.cache_dir:       %s\n", cfg.Mirror.CacheDir)
	fmt.Printf("mirror.shallow_depth:   %d\n", cfg.Mirror.ShallowDepth)
	fmt.Printf("extractor.merge_policy: %s\n", cfg.Extractor.MergePolicy)
	fmt.Printf("extractor.bulk_policy:  %s\n", cfg.Extractor.BulkPolicy)
	fmt.Printf("graph.min_revisions:    %d\n", cfg.Graph.MinRevisions)
	fmt.Printf("concurrency.max_readers: %d\n", cfg.Concurrency.MaxReaders)
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := cfgFile
	if path == "" {
		path = ".lfca/config.yaml"
	}
	def := config.Default()
	if err := def.Save(path); err != nil {
		return err
	}
	fmt.Printf("wrote default configuration to %s\n", path)
	return nil
}
