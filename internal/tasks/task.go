package tasks

import (
	"context"
	"errors"
	"log/slog"

	"automerge/internal/config"
	"automerge/internal/i18n"
	"automerge/internal/logging"
)

// Status is the terminal state of one task run.
type Status string

const (
	StatusCompleted Status = "completed"
	// StatusSkipped means another run of the same task was in flight.
	StatusSkipped  Status = "skipped"
	StatusCanceled Status = "canceled"
	StatusFailed   Status = "failed"
)

var (
	// ErrAlreadyRunning reports a trigger that arrived while the task was running.
	ErrAlreadyRunning = errors.New("task already running")
	// ErrInvalidInput reports a blank provider type or value.
	ErrInvalidInput = errors.New("provider type and value are required")
)

// Outcome summarizes a task run. Processed counts merged classes or split
// records; Total is the number planned.
type Outcome struct {
	Status    Status
	Err       error
	Processed int
	Total     int
}

// OK reports whether the run finished without failure or cancellation.
func (o Outcome) OK() bool {
	return o.Status == StatusCompleted || o.Status == StatusSkipped
}

// ProgressFunc receives the fraction of work done, from 0 to 1.
type ProgressFunc func(fraction float64)

func (p ProgressFunc) report(done, total int) {
	if p == nil || total <= 0 {
		return
	}
	p(float64(done) / float64(total))
}

// Metadata describes a task to schedulers and UIs.
type Metadata struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Hidden      bool   `json:"hidden"`
	Enabled     bool   `json:"enabled"`
	Logged      bool   `json:"logged"`
}

// Trigger is a default schedule a host may install for a task.
type Trigger struct {
	Kind     string `json:"kind"`
	Interval string `json:"interval,omitempty"`
}

// Task is the surface a scheduler drives.
type Task interface {
	Metadata() Metadata
	DefaultTriggers() []Trigger
	Execute(ctx context.Context, progress ProgressFunc) Outcome
}

// Options is the merge and split policy.
type Options struct {
	MergeAcrossLibraries bool
	RespectLocks         bool
	AllowedProviderTypes []string
	ExcludedLibraries    []string
	UICulture            string
}

// OptionsFromConfig extracts task options from the loaded configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	if cfg == nil {
		d := config.Default()
		cfg = &d
	}
	return Options{
		MergeAcrossLibraries: cfg.Merge.MergeAcrossLibraries,
		RespectLocks:         cfg.Merge.RespectLocks,
		AllowedProviderTypes: append([]string(nil), cfg.Merge.AllowedProviderTypes...),
		ExcludedLibraries:    append([]string(nil), cfg.Merge.ExcludedLibraries...),
		UICulture:            cfg.Daemon.UICulture,
	}
}

func describe(key, culture string, logger *slog.Logger) Metadata {
	meta := Metadata{Key: key, Name: key, Enabled: true, Logged: true}
	catalog, err := i18n.For(key)
	if err == nil {
		var t i18n.Translation
		if t, err = catalog.Lookup(culture); err == nil {
			meta.Name = t.Name
			meta.Description = t.Description
			meta.Category = t.Category
			return meta
		}
	}
	logging.WarnWithContext(logger, "task translation unavailable; using key as name", "translation_missing",
		logging.String("culture", culture),
		logging.Error(err),
		logging.String(logging.FieldImpact, "task name is shown untranslated"),
	)
	return meta
}

// withRun tags the logger with run details carried on ctx.
func withRun(ctx context.Context, logger *slog.Logger) *slog.Logger {
	return logging.WithContext(ctx, logger)
}
