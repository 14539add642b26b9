package logging

import (
	"context"
	"log/slog"
	"strings"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldTask names the running task (merge or split).
	FieldTask = "task"
	// FieldRunID identifies a single task execution.
	FieldRunID = "run_id"
	// FieldLibraryID is the catalog library a record or scope belongs to.
	FieldLibraryID = "library_id"
	// FieldClassKey labels an equivalence class by its first provider key.
	FieldClassKey = "class_key"
	// FieldRecordID is the catalog identifier of a movie record.
	FieldRecordID = "record_id"
	// FieldEventType classifies log lines for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint suggests a next step to the operator.
	FieldErrorHint = "error_hint"
	// FieldImpact describes the user-facing consequence of a warning.
	FieldImpact = "impact"
)

type contextKey string

const (
	runIDKey contextKey = "run_id"
	taskKey  contextKey = "task"
)

// WithRunID tags ctx with the identifier of the current task run.
func WithRunID(ctx context.Context, id string) context.Context {
	id = strings.TrimSpace(id)
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext returns the run identifier stored on ctx.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(runIDKey).(string)
	return id, ok && id != ""
}

// WithTask tags ctx with the task name.
func WithTask(ctx context.Context, task string) context.Context {
	task = strings.TrimSpace(task)
	if task == "" {
		return ctx
	}
	return context.WithValue(ctx, taskKey, task)
}

// TaskFromContext returns the task name stored on ctx.
func TaskFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	task, ok := ctx.Value(taskKey).(string)
	return task, ok && task != ""
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if task, ok := TaskFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldTask, task))
	}
	if id, ok := RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
