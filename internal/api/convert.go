package api

import (
	"time"

	"automerge/internal/tasks"
)

// FormatTime renders t for API payloads; the zero time renders empty.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

// ParseTime parses a timestamp produced by FormatTime.
func ParseTime(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(dateTimeFormat, value)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ApplyOutcome copies a finished run's outcome into summary.
func ApplyOutcome(summary *RunSummary, outcome tasks.Outcome, finished time.Time) {
	if summary == nil {
		return
	}
	summary.Status = string(outcome.Status)
	summary.Processed = outcome.Processed
	summary.Total = outcome.Total
	summary.FinishedAt = FormatTime(finished)
	if outcome.Err != nil {
		summary.Error = outcome.Err.Error()
	}
	if outcome.Status == tasks.StatusCompleted {
		summary.Progress = 1
	}
}

// FromMetadata converts task metadata into a TaskStatus.
func FromMetadata(meta tasks.Metadata, running bool, last *RunSummary) TaskStatus {
	return TaskStatus{
		Key:         meta.Key,
		Name:        meta.Name,
		Description: meta.Description,
		Category:    meta.Category,
		Running:     running,
		LastRun:     last,
	}
}

// FromPlans flattens merge plans into groups in plan order.
func FromPlans(plans []tasks.ScopePlan) []Group {
	var groups []Group
	for _, plan := range plans {
		for _, class := range plan.Classes {
			group := Group{Scope: plan.Scope.Label(), Key: class.Label()}
			for _, r := range class.Members {
				group.Members = append(group.Members, Member{
					ID:        r.ID,
					Name:      r.Name,
					LibraryID: r.LibraryID,
					Providers: r.ProviderIDs,
				})
			}
			groups = append(groups, group)
		}
	}
	return groups
}
