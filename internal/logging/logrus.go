package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogrus builds the primary structured logger used by the orchestrator,
// mirror, extractor, and catalog. verbose selects debug-level output;
// matches the level/verbosity wiring in cmd/lfca's root command.
func NewLogrus(verbose bool) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if verbose {
		l.SetLevel(logrus.DebugLevel)
	} else {
		l.SetLevel(logrus.InfoLevel)
	}
	return l
}

// RunFields returns the logrus.Fields identifying an analysis run and its
// stage; the orchestrator attaches them to its "analysis run complete" line.
func RunFields(runID, repoID string, stage string) logrus.Fields {
	return logrus.Fields{
		"run_id":  runID,
		"repo_id": repoID,
		"stage":   stage,
	}
}
