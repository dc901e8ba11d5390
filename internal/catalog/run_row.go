package catalog

import (
	"encoding/json"
	"time"

	"github.com/lfca/lfca/internal/lfcaerrors"
	"github.com/lfca/lfca/internal/models"
)

// analysisRunRow is the flat, driver-scannable shape of an analysis_runs
// row; Counts/Thresholds are stored as JSON text/JSONB and decoded into
// their struct form by toModel.
type analysisRunRow struct {
	ID           string    `db:"id"`
	RepoID       string    `db:"repo_id"`
	Stage        string    `db:"stage"`
	Percentage   int       `db:"percentage"`
	Counts       string    `db:"counts"`
	Thresholds   string    `db:"thresholds"`
	ErrorKind    *string   `db:"error_kind"`
	ErrorMessage *string   `db:"error_message"`
	StartedAt    time.Time `db:"started_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r analysisRunRow) toModel() (*models.AnalysisRun, error) {
	run := &models.AnalysisRun{
		ID:         r.ID,
		RepoID:     r.RepoID,
		Stage:      models.RunStage(r.Stage),
		Percentage: r.Percentage,
		StartedAt:  r.StartedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	if r.ErrorKind != nil {
		run.ErrorKind = *r.ErrorKind
	}
	if r.ErrorMessage != nil {
		run.ErrorMsg = *r.ErrorMessage
	}
	if r.Counts != "" {
		if err := json.Unmarshal([]byte(r.Counts), &run.Counts); err != nil {
			return nil, lfcaerrors.Wrap(err, lfcaerrors.KindInternal, "failed to decode run counts")
		}
	}
	if r.Thresholds != "" {
		if err := json.Unmarshal([]byte(r.Thresholds), &run.Thresholds); err != nil {
			return nil, lfcaerrors.Wrap(err, lfcaerrors.KindInternal, "failed to decode run thresholds")
		}
	}
	return run, nil
}
