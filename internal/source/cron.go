package source

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/vfa-khuongdv/opsboard/pkg/jobtable"
)

// defaultHealthJobs is shown when state/crons.json has not been written yet
var defaultHealthJobs = []HealthJob{
	{Name: "apexform tests", Schedule: "0 0 * * *", Status: "ok"},
	{Name: "hamono tests", Schedule: "0 2 * * *", Status: "ok"},
	{Name: "shootrebook tests", Schedule: "0 3 * * *", Status: "ok"},
	{Name: "stitchai tests", Schedule: "0 4 * * *", Status: "ok"},
}

// JobRecords runs the job listing command and parses its table
func (w *Workspace) JobRecords(ctx context.Context) ([]jobtable.JobRecord, error) {
	argv := w.cfg.Commands.CronList
	if len(argv) == 0 {
		return nil, fmt.Errorf("cron list command is not configured")
	}

	output, err := w.runner.Run(ctx, "", argv[0], argv[1:]...)
	if err != nil {
		return []jobtable.JobRecord{}, fmt.Errorf("failed to list cron jobs: %w", err)
	}

	records := w.parser.Parse(string(output))
	w.logger.Debug("Parsed cron job listing", zap.Int("jobs", len(records)))
	return records, nil
}

// CronJobs returns the job listing with personas attached. The slice is never
// nil, even when the command fails.
func (w *Workspace) CronJobs(ctx context.Context) ([]CronJob, error) {
	records, err := w.JobRecords(ctx)

	jobs := make([]CronJob, 0, len(records))
	for _, record := range records {
		jobs = append(jobs, CronJob{
			JobRecord: record,
			Persona:   w.personas.Lookup(record.Name),
		})
	}

	return jobs, err
}

// CronHealth reads state/crons.json, falling back to the default jobs
func (w *Workspace) CronHealth(ctx context.Context) (*CronHealth, error) {
	var jobs []HealthJob
	found, err := readJSONFile(w.statePath("crons.json"), &jobs)
	if err != nil {
		return nil, err
	}
	if !found {
		jobs = append([]HealthJob(nil), defaultHealthJobs...)
	}
	if jobs == nil {
		jobs = []HealthJob{}
	}

	return &CronHealth{
		Jobs:        jobs,
		LastUpdated: w.nowMillis(),
	}, nil
}
