package main

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/lfca/lfca/internal/httpapi"
	"github.com/lfca/lfca/internal/orchestrator"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "address to listen on")
}

func runServe(cmd *cobra.Command, args []string) error {
	orch := orchestrator.New(cfg, logger)
	defer orch.Shutdown()

	server := httpapi.New(orch, logger)
	logger.WithField("addr", serveAddr).Info("starting http api server")
	return http.ListenAndServe(serveAddr, server.Handler())
}
