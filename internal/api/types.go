package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// RunSummary describes one task run.
type RunSummary struct {
	RunID      string  `json:"runId"`
	Task       string  `json:"task"`
	Trigger    string  `json:"trigger"`
	Status     string  `json:"status"`
	Progress   float64 `json:"progress"`
	Processed  int     `json:"processed"`
	Total      int     `json:"total"`
	Error      string  `json:"error,omitempty"`
	StartedAt  string  `json:"startedAt,omitempty"`
	FinishedAt string  `json:"finishedAt,omitempty"`
	LogPath    string  `json:"logPath,omitempty"`
}

// TaskStatus combines localized task metadata with runtime state.
type TaskStatus struct {
	Key         string      `json:"key"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Category    string      `json:"category"`
	Running     bool        `json:"running"`
	LastRun     *RunSummary `json:"lastRun,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool         `json:"running"`
	PID          int          `json:"pid"`
	StartedAt    string       `json:"startedAt,omitempty"`
	Backend      string       `json:"backend"`
	LockFilePath string       `json:"lockFilePath"`
	AutoMerge    bool         `json:"autoMerge"`
	Tasks        []TaskStatus `json:"tasks"`
}

// TriggerResponse acknowledges a task trigger.
type TriggerResponse struct {
	Task     string `json:"task"`
	RunID    string `json:"runId"`
	Accepted bool   `json:"accepted"`
}

// SplitRequest asks for a targeted split by provider id.
type SplitRequest struct {
	ProviderType  string `json:"providerType"`
	ProviderValue string `json:"providerValue"`
}

// SplitResponse reports whether anything was split.
type SplitResponse struct {
	Split bool `json:"split"`
}

// ProvidersResponse lists the provider types present in the catalog.
type ProvidersResponse struct {
	Providers []string `json:"providers"`
}

// Member is one record of a group.
type Member struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	LibraryID string            `json:"libraryId,omitempty"`
	Providers map[string]string `json:"providers,omitempty"`
}

// Group is an equivalence class a merge would consolidate.
type Group struct {
	Scope   string   `json:"scope"`
	Key     string   `json:"key"`
	Members []Member `json:"members"`
}

// GroupsResponse wraps the planned groups.
type GroupsResponse struct {
	Groups []Group `json:"groups"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}
