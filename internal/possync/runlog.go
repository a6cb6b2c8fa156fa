package possync

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Trigger kinds recorded on sync runs.
const (
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
)

// RunSummary reports what one sync pass did.
type RunSummary struct {
	RunID     snowflake.ID `json:"run_id"`
	Processed int          `json:"processed"`
	Applied   int          `json:"applied"`
	Skipped   int          `json:"skipped"`
	Failed    int          `json:"failed"`
	Aborted   bool         `json:"aborted"`
	Error     string       `json:"error,omitempty"`
}

func (w *Worker) startRun(ctx context.Context, trigger string, now time.Time) (snowflake.ID, error) {
	id := w.genID.Generate()
	err := w.db.WithContext(ctx).Exec(
		`INSERT INTO sync_runs (id, trigger_kind, started_at) VALUES (?, ?, ?)`,
		id,
		trigger,
		now,
	).Error
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (w *Worker) finishRun(ctx context.Context, id snowflake.ID, summary RunSummary, now time.Time) error {
	var lastError any
	if summary.Error != "" {
		lastError = summary.Error
	}
	return w.db.WithContext(ctx).Exec(
		`UPDATE sync_runs
		 SET finished_at = ?, processed = ?, applied = ?, skipped = ?, failed = ?, last_error = ?
		 WHERE id = ?`,
		now,
		summary.Processed,
		summary.Applied,
		summary.Skipped,
		summary.Failed,
		lastError,
		id,
	).Error
}
