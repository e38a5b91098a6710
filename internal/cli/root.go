// Package cli implements studioctl, the operator command line for batch jobs.
package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"studio/internal/adapters/storage"
	"studio/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	DBPath  string // overrides config db_path when set

	Config config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for studioctl.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

// Execute runs studioctl with os.Args, reports any error in the selected
// format and returns the process exit code.
func Execute() int {
	opts := &RootOptions{}
	cmd := newRootCommand(opts)
	err := cmd.Execute()
	if err == nil {
		return ExitSuccess
	}
	// cobra's own flag and argument errors are not ExitErrors.
	code := ExitCommandError
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.Code
	}
	f := &OutputFormatter{Format: opts.Format, Writer: cmd.ErrOrStderr()}
	if !slices.Contains(ValidFormats, opts.Format) {
		f.Format = "text"
	}
	_ = f.Error(errorCode(code), err.Error())
	return code
}

func errorCode(exit int) string {
	if exit == ExitFailure {
		return "job_failed"
	}
	return "command_error"
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "studioctl",
		Short:         "studioctl - studio scheduling operations",
		Long:          "Run reconciliation, replication and proration jobs against the studio database.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			cfg, err := config.Load()
			if err != nil {
				return WrapExitError(ExitCommandError, "load config", err)
			}
			if opts.DBPath != "" {
				cfg.DBPath = opts.DBPath
			}
			opts.Config = cfg
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "", "database path (defaults to config db_path)")

	// Add subcommands
	cmd.AddCommand(NewReconcileCommand(opts))
	cmd.AddCommand(NewReplicateCommand(opts))
	cmd.AddCommand(NewProrateCommand(opts))
	cmd.AddCommand(NewDayCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))

	return cmd
}

// formatter builds the output formatter for cmd.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// openDB opens the configured database.
func (o *RootOptions) openDB() (*sql.DB, error) {
	db, err := storage.Open(o.Config.DBPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open database "+o.Config.DBPath, err)
	}
	return db, nil
}
