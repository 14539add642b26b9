package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"automerge/internal/catalogaccess"
	"automerge/internal/config"
	"automerge/internal/fileutil"
	"automerge/internal/library"
	"automerge/internal/preflight"
)

// openLibrary opens the SQLite catalog. Import and export only make sense
// for the local backend.
func openLibrary(ctx *commandContext) (*library.Store, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Catalog.Backend != config.BackendSQLite {
		return nil, fmt.Errorf("catalog backend is %q; import and export need %q", cfg.Catalog.Backend, config.BackendSQLite)
	}
	return library.Open(cfg)
}

func newImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Load a catalog snapshot into the SQLite catalog (use - for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if path := strings.TrimSpace(args[0]); path != "-" {
				f, err := os.Open(path)
				if err != nil {
					return fmt.Errorf("open snapshot: %w", err)
				}
				defer f.Close()
				in = f
			}
			snap, err := library.ReadSnapshot(in)
			if err != nil {
				return err
			}

			store, err := openLibrary(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			result, err := store.Import(cmd.Context(), snap)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d libraries, %d movies, %d version links\n",
				result.Libraries, result.Movies, result.Links)
			return nil
		},
	}
}

func newExportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Write the SQLite catalog as a snapshot (stdout by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openLibrary(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			snap, err := store.Export(cmd.Context())
			if err != nil {
				return err
			}

			if len(args) == 0 || strings.TrimSpace(args[0]) == "-" {
				return library.WriteSnapshot(cmd.OutOrStdout(), snap)
			}
			path := strings.TrimSpace(args[0])
			err = fileutil.WriteAtomic(path, 0o644, func(w io.Writer) error {
				return library.WriteSnapshot(w, snap)
			})
			if err != nil {
				return fmt.Errorf("write snapshot: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d movies to %s\n", len(snap.Movies), path)
			return nil
		},
	}
}

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check directories and catalog connectivity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			session, openErr := catalogaccess.Open(cfg)
			if openErr == nil {
				defer session.Close()
			}
			results := preflight.RunAll(cmd.Context(), cfg, session.Store)
			if openErr != nil {
				results = append(results, preflight.Result{Name: "Catalog open", Detail: openErr.Error()})
			}

			rows := make([][]string, 0, len(results))
			for _, r := range results {
				state := "ok"
				if !r.Passed {
					state = "FAIL"
				}
				rows = append(rows, []string{r.Name, state, r.Detail})
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTable([]string{"Check", "Result", "Detail"}, rows, nil))

			if !preflight.AllPassed(results) {
				return fmt.Errorf("preflight checks failed")
			}
			return nil
		},
	}
}
