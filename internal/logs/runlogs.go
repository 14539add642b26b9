package logs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"automerge/internal/logging"
)

// CurrentDaemonLog is the link daemonrun keeps pointing at the active daemon log.
const CurrentDaemonLog = "automerge.log"

// ErrNoRunLogs reports that no run log matched.
var ErrNoRunLogs = errors.New("no run logs found")

const runLogTimeFormat = "20060102T150405Z"

// RunLog describes one per-run log file.
type RunLog struct {
	Path    string
	Task    string
	RunID   string
	Started time.Time
}

// ParseRunLogName splits a run log file name into its parts.
func ParseRunLogName(name string) (RunLog, bool) {
	base := filepath.Base(name)
	if matched, err := filepath.Match(logging.RunLogPattern, base); err != nil || !matched {
		return RunLog{}, false
	}
	stem := strings.TrimSuffix(strings.TrimPrefix(base, "automerge-"), ".log")
	parts := strings.Split(stem, "-")
	if len(parts) < 3 {
		return RunLog{}, false
	}
	started, err := time.Parse(runLogTimeFormat, parts[0])
	if err != nil {
		return RunLog{}, false
	}
	return RunLog{
		Path:    name,
		Task:    strings.Join(parts[1:len(parts)-1], "-"),
		RunID:   parts[len(parts)-1],
		Started: started,
	}, true
}

// List returns the run logs in dir, newest first. An empty task matches all.
func List(dir, task string) ([]RunLog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read log dir: %w", err)
	}
	task = strings.TrimSpace(task)
	var runs []RunLog
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		run, ok := ParseRunLogName(filepath.Join(dir, entry.Name()))
		if !ok {
			continue
		}
		if task != "" && !strings.EqualFold(run.Task, task) {
			continue
		}
		runs = append(runs, run)
	}
	slices.SortFunc(runs, func(a, b RunLog) int {
		if c := b.Started.Compare(a.Started); c != 0 {
			return c
		}
		return strings.Compare(b.Path, a.Path)
	})
	return runs, nil
}

// Latest returns the newest run log for task. For the daemon the current log
// link wins when it exists.
func Latest(dir, task string) (string, error) {
	if task == "" || task == "daemon" {
		current := filepath.Join(dir, CurrentDaemonLog)
		if _, err := os.Stat(current); err == nil {
			return current, nil
		}
		task = "daemon"
	}
	runs, err := List(dir, task)
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", fmt.Errorf("%w for %s in %s", ErrNoRunLogs, task, dir)
	}
	return runs[0].Path, nil
}
