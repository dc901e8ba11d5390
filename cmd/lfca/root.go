package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/lfca/lfca/internal/config"
	"github.com/lfca/lfca/internal/logging"
)

var (
	// Version is set by build flags.
	Version = "dev"

	cfgFile string
	verbose bool
	logger  *logrus.Logger
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:     "lfca",
	Short:   "LFCA - logical file coupling analysis over a git history",
	Long:    `lfca mirrors a repository's commit history, resolves file identities across renames, and surfaces which files tend to change together.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = logging.NewLogrus(verbose)

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			logger.WithError(err).Warn("failed to load config, using defaults")
			cfg = config.Default()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .lfca/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(clusterCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
}
