package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"automerge/internal/catalog"
	"automerge/internal/grouping"
	"automerge/internal/logging"
)

// SplitKey identifies the split task.
const SplitKey = "split"

// SplitTask separates merged movies back into standalone records.
type SplitTask struct {
	store  catalog.Store
	opts   Options
	logger *slog.Logger
	guard  Guard
}

// NewSplitTask constructs a split task over store.
func NewSplitTask(store catalog.Store, opts Options, logger *slog.Logger) *SplitTask {
	return &SplitTask{
		store:  store,
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "split"),
	}
}

// Metadata returns the localized task description.
func (t *SplitTask) Metadata() Metadata {
	return describe(SplitKey, t.opts.UICulture, t.logger)
}

// DefaultTriggers is empty; the daemon owns scheduling.
func (t *SplitTask) DefaultTriggers() []Trigger {
	return []Trigger{}
}

// Running reports whether a bulk split is in flight.
func (t *SplitTask) Running() bool {
	return t.guard.Running()
}

// Candidates lists the records a bulk split would detach and those kept
// because they are tied to a locked record.
func (t *SplitTask) Candidates(ctx context.Context) (kept, excluded []catalog.MovieRecord, err error) {
	records, err := t.store.ListRecords(ctx, catalog.Query{})
	if err != nil {
		return nil, nil, fmt.Errorf("list movies: %w", err)
	}
	kept, excluded = grouping.SplitCandidates(records, t.opts.RespectLocks)
	return kept, excluded, nil
}

// Execute splits every merged movie across all libraries. A concurrent
// invocation returns StatusSkipped without touching the store.
func (t *SplitTask) Execute(ctx context.Context, progress ProgressFunc) Outcome {
	logger := withRun(ctx, t.logger)
	logger.Info("split task started", logging.String(logging.FieldEventType, "task_started"))

	if !t.guard.TryAcquire() {
		logger.Info("split task already running; skipping", logging.String(logging.FieldEventType, "task_skipped"))
		return Outcome{Status: StatusSkipped}
	}
	defer t.guard.Release()

	outcome := t.run(ctx, logger, progress)
	logger.Info("split task finished",
		logging.String("status", string(outcome.Status)),
		logging.Int("split", outcome.Processed),
		logging.Int("planned", outcome.Total),
		logging.String(logging.FieldEventType, "task_finished"),
	)
	return outcome
}

func (t *SplitTask) run(ctx context.Context, logger *slog.Logger, progress ProgressFunc) Outcome {
	if err := ctx.Err(); err != nil {
		return Outcome{Status: StatusCanceled, Err: err}
	}
	kept, excluded, err := t.Candidates(ctx)
	if err != nil {
		logging.ErrorWithContext(logger, "split planning failed", "split_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check catalog connectivity with 'automerge doctor'"),
		)
		return Outcome{Status: StatusFailed, Err: err}
	}
	if t.opts.RespectLocks && len(excluded) > 0 {
		logger.Info("excluding locked items",
			logging.Strings("record_ids", catalog.RecordIDs(excluded)),
			logging.String(logging.FieldEventType, "locked_excluded"),
		)
	}

	outcome := Outcome{Total: len(kept)}
	sampler := logging.NewProgressSampler(10)
	for i, record := range kept {
		if err := ctx.Err(); err != nil {
			logger.Info("cancellation requested", logging.String(logging.FieldEventType, "task_canceled"))
			outcome.Status = StatusCanceled
			outcome.Err = err
			return outcome
		}
		if err := t.splitRecord(ctx, logger, record); err != nil {
			outcome.Status = StatusFailed
			outcome.Err = err
			return outcome
		}
		outcome.Processed++
		progress.report(i+1, len(kept))
		if sampler.ShouldLog(float64(i+1) / float64(len(kept)) * 100) {
			logger.Debug("split progress",
				logging.Int("done", i+1),
				logging.Int("total", len(kept)),
				logging.String(logging.FieldEventType, "task_progress"),
			)
		}
	}
	outcome.Status = StatusCompleted
	return outcome
}

// SplitByProvider splits every movie carrying the provider id that currently
// has alternate versions. It reports whether anything was split. Locks are
// not consulted: the caller asked for this movie explicitly.
func (t *SplitTask) SplitByProvider(ctx context.Context, providerType, providerValue string) (bool, error) {
	logger := withRun(ctx, t.logger)
	providerType = strings.TrimSpace(providerType)
	providerValue = strings.TrimSpace(providerValue)
	logger.Info("split requested",
		logging.String("provider_type", providerType),
		logging.String("provider_value", providerValue),
		logging.String(logging.FieldEventType, "split_requested"),
	)
	if providerType == "" || providerValue == "" {
		logging.ErrorWithContext(logger, "provider type or id is empty", "split_invalid",
			logging.String(logging.FieldErrorHint, "pass both a provider type and a provider id"),
		)
		return false, ErrInvalidInput
	}

	records, err := t.store.ListRecords(ctx, catalog.Query{ProviderType: providerType, ProviderValue: providerValue})
	if err != nil {
		return false, fmt.Errorf("list movies for %s/%s: %w", providerType, providerValue, err)
	}
	split := false
	for _, record := range records {
		if !record.HasAlternateVersions() {
			continue
		}
		if err := t.splitRecord(ctx, logger, record); err != nil {
			return split, err
		}
		split = true
	}
	return split, nil
}

func (t *SplitTask) splitRecord(ctx context.Context, logger *slog.Logger, record catalog.MovieRecord) error {
	logger = logger.With(logging.String(logging.FieldRecordID, record.ID))
	if err := t.store.SplitRecord(ctx, record); err != nil {
		logging.ErrorWithContext(logger, "split failed; earlier splits are kept", "split_failed",
			logging.String("name", record.Name),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "inspect the record in the catalog and rerun the split"),
		)
		return fmt.Errorf("split %s: %w", record.ID, err)
	}
	logger.Info("movie split",
		logging.String("name", record.Name),
		logging.Strings("alternate_ids", record.AlternateVersionIDs),
		logging.String(logging.FieldEventType, "record_split"),
	)
	return nil
}
