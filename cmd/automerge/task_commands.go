package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"automerge/internal/api"
	"automerge/internal/catalog"
	"automerge/internal/catalogaccess"
	"automerge/internal/config"
	"automerge/internal/daemonctl"
	"automerge/internal/logging"
	"automerge/internal/tasks"
)

type taskFlags struct {
	local   bool
	jsonOut bool
}

func (f *taskFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.local, "local", false, "Run in this process even if the daemon is running")
	cmd.Flags().BoolVar(&f.jsonOut, "json", false, "Output as JSON")
}

func newMergeCommand(ctx *commandContext) *cobra.Command {
	var flags taskFlags
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge every movie sharing a provider id into one movie with several versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dryRun {
				return runGroups(cmd, ctx, flags)
			}
			return runTask(cmd, ctx, tasks.MergeKey, flags)
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show the groups that would be merged without merging")
	return cmd
}

func newSplitCommand(ctx *commandContext) *cobra.Command {
	var flags taskFlags

	cmd := &cobra.Command{
		Use:   "split",
		Short: "Split every merged movie back into separate movies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTask(cmd, ctx, tasks.SplitKey, flags)
		},
	}
	flags.register(cmd)
	return cmd
}

func newSplitProviderCommand(ctx *commandContext) *cobra.Command {
	var flags taskFlags

	cmd := &cobra.Command{
		Use:   "split-provider <type> <value>",
		Short: "Split the movies carrying one provider id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			providerType := strings.TrimSpace(args[0])
			providerValue := strings.TrimSpace(args[1])

			split, err := splitByProvider(cmd, ctx, flags, providerType, providerValue)
			if err != nil {
				return err
			}
			if flags.jsonOut {
				return writeJSON(cmd, api.SplitResponse{Split: split})
			}
			out := cmd.OutOrStdout()
			if split {
				fmt.Fprintf(out, "Split alternate versions of %s/%s\n", providerType, providerValue)
			} else {
				fmt.Fprintf(out, "Nothing to split for %s/%s\n", providerType, providerValue)
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func splitByProvider(cmd *cobra.Command, ctx *commandContext, flags taskFlags, providerType, providerValue string) (bool, error) {
	if !flags.local {
		split, err := ctx.daemonClient().Split(cmd.Context(), providerType, providerValue)
		if !errors.Is(err, daemonctl.ErrDaemonNotRunning) {
			return split, err
		}
	}
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return false, err
	}
	run, err := ctx.newTaskRun(cmd.Context(), tasks.SplitKey)
	if err != nil {
		return false, err
	}
	var split bool
	err = ctx.withCatalog(func(session catalogaccess.Session) error {
		task := tasks.NewSplitTask(session.Store, tasks.OptionsFromConfig(cfg), run.logger)
		split, err = task.SplitByProvider(run.ctx, providerType, providerValue)
		return err
	})
	return split, err
}

func newGroupsCommand(ctx *commandContext) *cobra.Command {
	var flags taskFlags

	cmd := &cobra.Command{
		Use:   "groups",
		Short: "Show the groups a merge would consolidate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGroups(cmd, ctx, flags)
		},
	}
	flags.register(cmd)
	return cmd
}

func runGroups(cmd *cobra.Command, ctx *commandContext, flags taskFlags) error {
	groups, err := loadGroups(cmd.Context(), ctx, flags.local)
	if err != nil {
		return err
	}
	if flags.jsonOut {
		if groups == nil {
			groups = []api.Group{}
		}
		return writeJSON(cmd, api.GroupsResponse{Groups: groups})
	}
	out := cmd.OutOrStdout()
	if len(groups) == 0 {
		fmt.Fprintln(out, "No movies to merge")
		return nil
	}
	fmt.Fprint(out, renderGroups(groups))
	return nil
}

func loadGroups(ctx context.Context, cmdCtx *commandContext, local bool) ([]api.Group, error) {
	if !local {
		groups, err := cmdCtx.daemonClient().Groups(ctx)
		if !errors.Is(err, daemonctl.ErrDaemonNotRunning) {
			return groups, err
		}
	}
	cfg, err := cmdCtx.ensureConfig()
	if err != nil {
		return nil, err
	}
	var groups []api.Group
	err = cmdCtx.withCatalog(func(session catalogaccess.Session) error {
		task := tasks.NewMergeTask(session.Store, tasks.OptionsFromConfig(cfg), logging.NewNop())
		plans, err := task.Plan(ctx)
		if err != nil {
			return err
		}
		groups = api.FromPlans(plans)
		return nil
	})
	return groups, err
}

func renderGroups(groups []api.Group) string {
	rows := make([][]string, 0, len(groups))
	for _, g := range groups {
		names := make([]string, 0, len(g.Members))
		for _, m := range g.Members {
			label := m.ID
			if strings.TrimSpace(m.Name) != "" {
				label = fmt.Sprintf("%s (%s)", m.Name, m.ID)
			}
			names = append(names, label)
		}
		rows = append(rows, []string{g.Scope, g.Key, strconv.Itoa(len(g.Members)), strings.Join(names, "\n")})
	}
	return renderTable(
		[]string{"Scope", "Key", "Versions", "Members"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
	)
}

func newProvidersCommand(ctx *commandContext) *cobra.Command {
	var flags taskFlags

	cmd := &cobra.Command{
		Use:   "providers",
		Short: "List the provider types present in the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			providers, err := loadProviders(cmd.Context(), ctx, flags.local)
			if err != nil {
				return err
			}
			if flags.jsonOut {
				if providers == nil {
					providers = []string{}
				}
				return writeJSON(cmd, api.ProvidersResponse{Providers: providers})
			}
			out := cmd.OutOrStdout()
			if len(providers) == 0 {
				fmt.Fprintln(out, "No provider ids in the catalog")
				return nil
			}
			for _, p := range providers {
				fmt.Fprintln(out, p)
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func loadProviders(ctx context.Context, cmdCtx *commandContext, local bool) ([]string, error) {
	if !local {
		providers, err := cmdCtx.daemonClient().Providers(ctx)
		if !errors.Is(err, daemonctl.ErrDaemonNotRunning) {
			return providers, err
		}
	}
	var providers []string
	err := cmdCtx.withCatalog(func(session catalogaccess.Session) error {
		records, err := session.Store.ListRecords(ctx, catalog.Query{})
		if err != nil {
			return fmt.Errorf("list movies: %w", err)
		}
		providers = catalog.ProviderTypes(records)
		return nil
	})
	return providers, err
}

// runTask hands the task to a running daemon, or runs it here when no
// daemon answers or --local is set.
func runTask(cmd *cobra.Command, ctx *commandContext, key string, flags taskFlags) error {
	if !flags.local {
		handled, runID, err := ctx.triggerDaemon(cmd, key)
		if err != nil {
			return err
		}
		if handled {
			if flags.jsonOut {
				return writeJSON(cmd, api.TriggerResponse{Task: key, RunID: runID, Accepted: true})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Started %s in the daemon (run %s)\n", key, runID)
			return nil
		}
	}

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	summary, err := runLocalTask(cmd.Context(), ctx, cfg, key)
	if err != nil {
		return err
	}
	if flags.jsonOut {
		if err := writeJSON(cmd, summary); err != nil {
			return err
		}
	} else {
		printRunSummary(cmd.OutOrStdout(), summary, shouldColorize(cmd.OutOrStdout()))
	}
	if summary.Status == string(tasks.StatusFailed) {
		return fmt.Errorf("%s failed: %s", key, summary.Error)
	}
	return nil
}

func runLocalTask(ctx context.Context, cmdCtx *commandContext, cfg *config.Config, key string) (api.RunSummary, error) {
	run, err := cmdCtx.newTaskRun(ctx, key)
	if err != nil {
		return api.RunSummary{}, err
	}
	summary := api.RunSummary{
		RunID:     run.runID,
		Task:      key,
		Trigger:   "manual",
		StartedAt: api.FormatTime(run.started),
		LogPath:   run.logPath,
	}
	err = cmdCtx.withCatalog(func(session catalogaccess.Session) error {
		opts := tasks.OptionsFromConfig(cfg)
		var task tasks.Task
		switch key {
		case tasks.MergeKey:
			task = tasks.NewMergeTask(session.Store, opts, run.logger)
		case tasks.SplitKey:
			task = tasks.NewSplitTask(session.Store, opts, run.logger)
		default:
			return fmt.Errorf("unknown task %q", key)
		}
		outcome := task.Execute(run.ctx, nil)
		api.ApplyOutcome(&summary, outcome, time.Now())
		return nil
	})
	return summary, err
}

func printRunSummary(out io.Writer, summary api.RunSummary, colorize bool) {
	message := fmt.Sprintf("%s, %d of %d processed", summary.Status, summary.Processed, summary.Total)
	if summary.Error != "" {
		message += ": " + summary.Error
	}
	fmt.Fprintln(out, renderStatusLine(summary.Task, runStatusKind(summary.Status), message, colorize))
	if summary.LogPath != "" {
		fmt.Fprintf(out, "%s%-*s %s\n", statusIndent, statusLabelWidth, "Log:", summary.LogPath)
	}
}
