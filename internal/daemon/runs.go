package daemon

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"automerge/internal/api"
	"automerge/internal/logging"
	"automerge/internal/notifications"
	"automerge/internal/tasks"
)

// Trigger kinds recorded on each run.
const (
	TriggerManual   = "manual"
	TriggerInterval = "interval"
	TriggerChange   = "library_change"
)

const runningStatus = "running"

// runRegistry keeps the latest run of each task.
type runRegistry struct {
	mu   sync.Mutex
	runs map[string]*api.RunSummary
}

func newRunRegistry() *runRegistry {
	return &runRegistry{runs: make(map[string]*api.RunSummary)}
}

// begin records a new run unless the stored run of key is still running,
// in which case it reports false and leaves that run in place.
func (r *runRegistry) begin(key, trigger, runID string, started time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if run, ok := r.runs[key]; ok && run.Status == runningStatus {
		return false
	}
	r.runs[key] = &api.RunSummary{
		RunID:     runID,
		Task:      key,
		Trigger:   trigger,
		Status:    runningStatus,
		StartedAt: api.FormatTime(started),
	}
	return true
}

// record stores a finished run that begin turned away.
func (r *runRegistry) record(summary api.RunSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if run, ok := r.runs[summary.Task]; ok && run.Status == runningStatus {
		return
	}
	r.runs[summary.Task] = &summary
}

func (r *runRegistry) progress(key, runID string, fraction float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if run, ok := r.runs[key]; ok && run.RunID == runID {
		run.Progress = fraction
	}
}

func (r *runRegistry) finish(key, runID string, outcome tasks.Outcome, finished time.Time) api.RunSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[key]
	if !ok || run.RunID != runID {
		return api.RunSummary{}
	}
	api.ApplyOutcome(run, outcome, finished)
	return *run
}

func (r *runRegistry) last(key string) *api.RunSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[key]
	if !ok {
		return nil
	}
	copied := *run
	return &copied
}

func newRunID() string {
	return uuid.NewString()
}

func (d *Daemon) runContext(ctx context.Context, key, runID string) context.Context {
	return logging.WithRunID(logging.WithTask(ctx, key), runID)
}

// RunTask executes the task on the caller's goroutine and returns its summary.
// A task that is already running yields a skipped summary.
func (d *Daemon) RunTask(ctx context.Context, key, trigger string) (api.RunSummary, error) {
	task, _, err := d.task(key)
	if err != nil {
		return api.RunSummary{}, err
	}
	return d.execute(ctx, task, key, trigger, newRunID()), nil
}

// TriggerTask starts the task in the background. It fails with
// tasks.ErrAlreadyRunning when a run is in flight so explicit triggers can
// report a conflict instead of a silent skip.
func (d *Daemon) TriggerTask(key, trigger string) (string, error) {
	task, running, err := d.task(key)
	if err != nil {
		return "", err
	}
	if !d.running.Load() || d.ctx == nil {
		return "", ErrNotRunning
	}
	if running() {
		return "", tasks.ErrAlreadyRunning
	}
	runID := newRunID()
	ctx := d.ctx
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.execute(ctx, task, key, trigger, runID)
	}()
	return runID, nil
}

func (d *Daemon) execute(ctx context.Context, task tasks.Task, key, trigger, runID string) api.RunSummary {
	ctx = d.runContext(ctx, key, runID)
	started := time.Now()
	registered := d.runs.begin(key, trigger, runID, started)
	logging.WithContext(ctx, d.logger).Info("task run starting",
		logging.String("trigger", trigger),
		logging.String(logging.FieldEventType, "run_started"),
	)
	outcome := task.Execute(ctx, func(fraction float64) {
		d.runs.progress(key, runID, fraction)
	})
	if outcome.Status == tasks.StatusFailed {
		logging.ErrorWithContext(logging.WithContext(ctx, d.logger), "task run failed", "run_failed",
			logging.String("trigger", trigger),
			logging.Error(outcome.Err),
			logging.String(logging.FieldErrorHint, "run 'automerge doctor' to check catalog access"),
		)
	}
	finished := time.Now()
	d.publish(ctx, key, outcome, finished.Sub(started))
	if registered {
		return d.runs.finish(key, runID, outcome, finished)
	}

	summary := api.RunSummary{
		RunID:     runID,
		Task:      key,
		Trigger:   trigger,
		StartedAt: api.FormatTime(started),
	}
	api.ApplyOutcome(&summary, outcome, finished)
	if outcome.Status != tasks.StatusSkipped {
		d.runs.record(summary)
	}
	return summary
}

// publish sends the run result to the notifier. Skipped and canceled runs
// are not reported.
func (d *Daemon) publish(ctx context.Context, key string, outcome tasks.Outcome, elapsed time.Duration) {
	var event notifications.Event
	payload := notifications.Payload{
		"task":      key,
		"processed": outcome.Processed,
		"total":     outcome.Total,
		"duration":  elapsed,
	}
	switch {
	case outcome.Status == tasks.StatusFailed:
		event = notifications.EventTaskFailed
		payload["error"] = outcome.Err
	case outcome.Status != tasks.StatusCompleted:
		return
	case key == tasks.MergeKey:
		event = notifications.EventMergeCompleted
	default:
		event = notifications.EventSplitCompleted
	}
	if err := d.notify.Publish(context.WithoutCancel(ctx), event, payload); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, d.logger), "task notification failed", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run result was not pushed to ntfy"),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
		)
	}
}
