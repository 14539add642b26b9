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

// MergeKey identifies the merge task.
const MergeKey = "merge"

// ScopePlan is the grouping result for one scope.
type ScopePlan struct {
	Scope    Scope
	Eligible int
	Skipped  []grouping.Skipped
	Index    grouping.Index
	Classes  []grouping.Class
}

// MergeTask merges every equivalence class of movie records into one movie
// with several versions.
type MergeTask struct {
	store  catalog.Store
	opts   Options
	allow  grouping.AllowList
	logger *slog.Logger
	guard  Guard
}

// NewMergeTask constructs a merge task over store.
func NewMergeTask(store catalog.Store, opts Options, logger *slog.Logger) *MergeTask {
	return &MergeTask{
		store:  store,
		opts:   opts,
		allow:  grouping.NewAllowList(opts.AllowedProviderTypes),
		logger: logging.NewComponentLogger(logger, "merge"),
	}
}

// Metadata returns the localized task description.
func (t *MergeTask) Metadata() Metadata {
	return describe(MergeKey, t.opts.UICulture, t.logger)
}

// DefaultTriggers is empty; the daemon owns scheduling.
func (t *MergeTask) DefaultTriggers() []Trigger {
	return []Trigger{}
}

// Running reports whether a merge is in flight.
func (t *MergeTask) Running() bool {
	return t.guard.Running()
}

// Plan computes the classes each scope would merge without touching the store.
func (t *MergeTask) Plan(ctx context.Context) ([]ScopePlan, error) {
	return t.plan(ctx, withRun(ctx, t.logger))
}

func (t *MergeTask) plan(ctx context.Context, logger *slog.Logger) ([]ScopePlan, error) {
	scopes, err := resolveScopes(ctx, t.store, t.opts, logger)
	if err != nil {
		return nil, err
	}
	plans := make([]ScopePlan, 0, len(scopes))
	for _, scope := range scopes {
		eligible, skipped := grouping.FilterEligible(scope.Records, t.opts.RespectLocks)
		for _, s := range skipped {
			if s.Reason == grouping.SkipLocked {
				logger.Info("ignoring locked item",
					logging.String(logging.FieldRecordID, s.Record.ID),
					logging.String("name", s.Record.Name),
					logging.String(logging.FieldEventType, "record_skipped"),
				)
				continue
			}
			logger.Debug("record not eligible",
				logging.String(logging.FieldRecordID, s.Record.ID),
				logging.String("reason", string(s.Reason)),
				logging.String(logging.FieldEventType, "record_skipped"),
			)
		}
		idx := grouping.BuildIndex(eligible, t.allow)
		classes := grouping.BuildClasses(idx)
		logger.Info("scope grouped",
			logging.String("scope", scope.Label()),
			logging.Int("eligible", len(eligible)),
			logging.Strings("providers", idx.Providers),
			logging.Int("buckets", len(idx.Buckets)),
			logging.Int("already_merged", idx.AlreadyMerged),
			logging.Int("classes", len(classes)),
			logging.String(logging.FieldEventType, "scope_grouped"),
		)
		plans = append(plans, ScopePlan{
			Scope:    scope,
			Eligible: len(eligible),
			Skipped:  skipped,
			Index:    idx,
			Classes:  classes,
		})
	}
	return plans, nil
}

// Execute merges every class that needs it. A concurrent invocation returns
// StatusSkipped without touching the store. Cancellation is checked before
// each class; classes merged earlier stay merged.
func (t *MergeTask) Execute(ctx context.Context, progress ProgressFunc) Outcome {
	logger := withRun(ctx, t.logger)
	logger.Info("merge task started", logging.String(logging.FieldEventType, "task_started"))

	if !t.guard.TryAcquire() {
		logger.Info("merge task already running; skipping", logging.String(logging.FieldEventType, "task_skipped"))
		return Outcome{Status: StatusSkipped}
	}
	defer t.guard.Release()

	outcome := t.run(ctx, logger, progress)
	logger.Info("merge task finished",
		logging.String("status", string(outcome.Status)),
		logging.Int("merged", outcome.Processed),
		logging.Int("planned", outcome.Total),
		logging.String(logging.FieldEventType, "task_finished"),
	)
	return outcome
}

func (t *MergeTask) run(ctx context.Context, logger *slog.Logger, progress ProgressFunc) Outcome {
	if err := ctx.Err(); err != nil {
		return Outcome{Status: StatusCanceled, Err: err}
	}
	plans, err := t.plan(ctx, logger)
	if err != nil {
		logging.ErrorWithContext(logger, "merge planning failed", "merge_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check catalog connectivity with 'automerge doctor'"),
		)
		return Outcome{Status: StatusFailed, Err: err}
	}

	var outcome Outcome
	for _, plan := range plans {
		outcome.Total += len(plan.Classes)
	}

	sampler := logging.NewProgressSampler(10)
	for _, plan := range plans {
		if len(plan.Classes) == 0 {
			logger.Info("no movies with ungrouped versions",
				logging.String("scope", plan.Scope.Label()),
				logging.String(logging.FieldEventType, "scope_clean"),
			)
			continue
		}
		sampler.Reset()
		scopeLogger := logger
		if plan.Scope.LibraryID != "" {
			scopeLogger = logger.With(logging.String(logging.FieldLibraryID, plan.Scope.LibraryID))
		}
		for i, class := range plan.Classes {
			if err := ctx.Err(); err != nil {
				scopeLogger.Info("cancellation requested", logging.String(logging.FieldEventType, "task_canceled"))
				outcome.Status = StatusCanceled
				outcome.Err = err
				return outcome
			}
			if err := t.mergeClass(ctx, scopeLogger, plan.Scope, class); err != nil {
				outcome.Status = StatusFailed
				outcome.Err = err
				return outcome
			}
			outcome.Processed++
			progress.report(i+1, len(plan.Classes))
			if pct := float64(i+1) / float64(len(plan.Classes)) * 100; sampler.ShouldLog(pct) {
				scopeLogger.Debug("merge progress",
					logging.String("scope", plan.Scope.Label()),
					logging.Int("done", i+1),
					logging.Int("total", len(plan.Classes)),
					logging.String(logging.FieldEventType, "task_progress"),
				)
			}
		}
	}
	outcome.Status = StatusCompleted
	return outcome
}

func (t *MergeTask) mergeClass(ctx context.Context, logger *slog.Logger, scope Scope, class grouping.Class) error {
	if class.Size() == 0 {
		return nil
	}
	logger = logger.With(logging.String(logging.FieldClassKey, class.Label()))
	msg := fmt.Sprintf("updating movie %q with %d separate versions", class.Members[0].Name, class.Size())
	if scope.LibraryName != "" {
		msg = fmt.Sprintf("updating movie %q from %s with %d separate versions", class.Members[0].Name, scope.LibraryName, class.Size())
	}
	logger.Info(msg,
		logging.Strings("record_ids", class.IDs()),
		logging.String(logging.FieldEventType, "class_merge"),
	)
	if err := t.store.MergeRecords(ctx, class.Members); err != nil {
		logging.ErrorWithContext(logger, "merge failed; earlier merges are kept", "merge_failed",
			logging.Strings("record_ids", class.IDs()),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "inspect the catalog for the listed records and rerun the merge"),
		)
		return fmt.Errorf("merge %s (%s): %w", class.Label(), strings.Join(class.IDs(), ","), err)
	}
	return nil
}
