package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"automerge/internal/api"
	"automerge/internal/config"
	"automerge/internal/daemonctl"
	"automerge/internal/daemonrun"
	"automerge/internal/library"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	var logLevel string
	runCmd := &cobra.Command{
		Use:    "daemon",
		Short:  "Run the automerge daemon in the foreground",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{LogLevel: logLevel})
		},
	}
	runCmd.Flags().StringVar(&logLevel, "log-level", "", "Override logging.level for this run")

	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the automerge daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			exe, err := os.Executable()
			if err != nil {
				return fmt.Errorf("resolve executable: %w", err)
			}
			if resolved, err := filepath.EvalSymlinks(exe); err == nil {
				exe = resolved
			}
			result, err := daemonctl.EnsureStarted(
				cmd.Context(),
				ctx.daemonClient(),
				exe,
				daemonctl.LaunchOptions{ConfigPath: ctx.configPath},
				10*time.Second,
			)
			stdout := cmd.OutOrStdout()
			if result.Launched {
				fmt.Fprintln(stdout, "Daemon not running, launching...")
			}
			if err != nil {
				return err
			}
			if result.AlreadyRunning {
				fmt.Fprintln(stdout, "Daemon already running")
				return nil
			}
			fmt.Fprintln(stdout, "Daemon started")
			return nil
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the automerge daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			pid, err := daemonctl.Stop(cmd.Context(), ctx.daemonClient(), 5*time.Second)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "Daemon stopped (pid %d)\n", pid)
			return nil
		},
	}

	var statusJSON bool
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and catalog status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			status, err := ctx.daemonClient().Status(cmd.Context())
			if err != nil && !errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				return err
			}
			if status == nil {
				status = &api.DaemonStatus{Backend: cfg.Catalog.Backend, LockFilePath: cfg.LockPath()}
			}
			if statusJSON {
				return writeJSON(cmd, status)
			}
			out := cmd.OutOrStdout()
			printDaemonStatus(cmd.Context(), out, cfg, status, shouldColorize(out))
			return nil
		},
	}
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output as JSON")

	return []*cobra.Command{runCmd, startCmd, stopCmd, statusCmd}
}

func printDaemonStatus(ctx context.Context, out io.Writer, cfg *config.Config, status *api.DaemonStatus, colorize bool) {
	printSection(out, "Daemon", colorize)
	if status.Running {
		fmt.Fprintln(out, renderStatusLine("Automerge", statusOK, fmt.Sprintf("Running (pid %d)", status.PID), colorize))
		if status.StartedAt != "" {
			fmt.Fprintln(out, renderStatusLine("Started", statusInfo, status.StartedAt, colorize))
		}
		fmt.Fprintln(out, renderStatusLine("Auto merge", statusInfo, yesNo(status.AutoMerge), colorize))
	} else {
		fmt.Fprintln(out, renderStatusLine("Automerge", statusWarn, "Not running", colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Backend", statusInfo, status.Backend, colorize))
	fmt.Fprintln(out, renderStatusLine("Lock file", statusInfo, status.LockFilePath, colorize))
	fmt.Fprintln(out)

	if len(status.Tasks) > 0 {
		printSection(out, "Tasks", colorize)
		rows := make([][]string, 0, len(status.Tasks))
		for _, task := range status.Tasks {
			last := "never"
			if task.LastRun != nil {
				last = fmt.Sprintf("%s %s (%d/%d)", task.LastRun.Status, task.LastRun.FinishedAt, task.LastRun.Processed, task.LastRun.Total)
			}
			rows = append(rows, []string{task.Key, task.Name, yesNo(task.Running), last})
		}
		fmt.Fprint(out, renderTable([]string{"Key", "Name", "Running", "Last run"}, rows, nil))
		fmt.Fprintln(out)
	}

	if status.Running || cfg.Catalog.Backend != config.BackendSQLite {
		return
	}
	store, err := library.Open(cfg)
	if err != nil {
		fmt.Fprintln(out, renderStatusLine("Catalog", statusError, err.Error(), colorize))
		return
	}
	defer store.Close()
	stats, err := store.Stats(ctx)
	if err != nil {
		fmt.Fprintln(out, renderStatusLine("Catalog", statusError, err.Error(), colorize))
		return
	}
	printSection(out, "Catalog", colorize)
	fmt.Fprint(out, renderTable(
		[]string{"Libraries", "Movies", "Merged groups", "Merged movies"},
		[][]string{{
			strconv.Itoa(stats.Libraries),
			strconv.Itoa(stats.Movies),
			strconv.Itoa(stats.MergedGroups),
			strconv.Itoa(stats.MergedMovies),
		}},
		[]columnAlignment{alignRight, alignRight, alignRight, alignRight},
	))
}
