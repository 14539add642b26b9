package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"automerge/internal/catalogaccess"
	"automerge/internal/config"
	"automerge/internal/daemonctl"
	"automerge/internal/logging"
	"automerge/internal/tasks"
)

type commandContext struct {
	configFlag *string
	verbose    *bool

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(configFlag *string, verbose *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		verbose:    verbose,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

func (c *commandContext) daemonClient() *daemonctl.Client {
	return daemonctl.FromConfig(c.configValue())
}

// withCatalog opens the configured catalog for the duration of fn.
func (c *commandContext) withCatalog(fn func(catalogaccess.Session) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	session, err := catalogaccess.Open(cfg)
	if err != nil {
		return err
	}
	defer session.Close()
	return fn(session)
}

// taskRun carries the logger and context of one in-process task run.
type taskRun struct {
	ctx     context.Context
	logger  *slog.Logger
	runID   string
	logPath string
	started time.Time
}

// newTaskRun tags ctx with a fresh run id and opens a per-run log file.
// Task logs go to stderr only with --verbose so stdout stays parseable.
func (c *commandContext) newTaskRun(ctx context.Context, task string) (*taskRun, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	runID := uuid.NewString()
	started := time.Now()
	logPath := logging.RunLogPath(cfg.Paths.LogDir, task, runID, started)
	outputs := []string{logPath}
	if c.verbose != nil && *c.verbose {
		outputs = append(outputs, "stderr")
	}
	logger, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: outputs,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	logging.PruneRunLogs(logger, cfg.Paths.LogDir, cfg.Logging.RetentionDays, logPath)
	return &taskRun{
		ctx:     logging.WithRunID(logging.WithTask(ctx, task), runID),
		logger:  logger,
		runID:   runID,
		logPath: logPath,
		started: started,
	}, nil
}

// triggerDaemon asks a running daemon to start the task. handled is false
// when no daemon answered and the caller should run the task itself.
func (c *commandContext) triggerDaemon(cmd *cobra.Command, key string) (handled bool, runID string, err error) {
	resp, err := c.daemonClient().Trigger(cmd.Context(), key)
	switch {
	case errors.Is(err, daemonctl.ErrDaemonNotRunning):
		return false, "", nil
	case errors.Is(err, tasks.ErrAlreadyRunning):
		return true, "", fmt.Errorf("%s is already running in the daemon", key)
	case err != nil:
		return true, "", err
	}
	return true, resp.RunID, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
