package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"automerge/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var task string
	var lines int
	var follow bool
	var list bool

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the latest daemon or task run log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if list {
				runs, err := logs.List(cfg.Paths.LogDir, task)
				if err != nil {
					return err
				}
				if len(runs) == 0 {
					fmt.Fprintln(out, "No run logs")
					return nil
				}
				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					rows = append(rows, []string{run.Started.Local().Format(time.DateTime), run.Task, run.RunID, run.Path})
				}
				fmt.Fprint(out, renderTable([]string{"Started", "Task", "Run", "Path"}, rows, nil))
				return nil
			}

			path, err := logs.Latest(cfg.Paths.LogDir, task)
			if err != nil {
				return err
			}
			tail, offset, err := logs.Last(path, lines)
			if err != nil {
				return err
			}
			for _, line := range tail {
				fmt.Fprintln(out, line)
			}
			if !follow {
				return nil
			}

			followCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return logs.Follow(followCtx, path, offset, 250*time.Millisecond, func(line string) {
				fmt.Fprintln(out, line)
			})
		},
	}

	cmd.Flags().StringVarP(&task, "task", "t", "", "Task whose latest run to show (merge, split, daemon)")
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to print")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines until interrupted")
	cmd.Flags().BoolVar(&list, "list", false, "List run logs instead of printing one")
	return cmd
}
