package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	calendarStore "studio/internal/adapters/storage/calendar"
	"studio/internal/application/orchestrators"
)

// DayOptions holds flags for the day command.
type DayOptions struct {
	*RootOptions
	TenantID string
	Disable  bool
}

// NewDayCommand creates the day command.
func NewDayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "day <YYYY-MM-DD>...",
		Short: "Enable or disable calendar days",
		Long: `Enable calendar days so slots can be created on them, or disable them.

Example:
  studioctl day --tenant t1 2026-02-02 2026-02-04
  studioctl day --tenant t1 --disable 2026-02-04`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDay(cmd, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.TenantID, "tenant", "", "tenant ID (required)")
	cmd.Flags().BoolVar(&opts.Disable, "disable", false, "disable instead of enable")
	_ = cmd.MarkFlagRequired("tenant")

	return cmd
}

type dayResult struct {
	DayID  string `json:"day_id"`
	Date   string `json:"date"`
	Active bool   `json:"active"`
}

func runDay(cmd *cobra.Command, opts *DayOptions, dates []string) error {
	db, err := opts.openDB()
	if err != nil {
		return err
	}
	defer db.Close()
	deps := orchestrators.SaveDayDeps{DayStore: calendarStore.NewSQLiteStore(db)}

	saved := make([]dayResult, 0, len(dates))
	for _, date := range dates {
		d, err := orchestrators.ExecuteSaveDay(cmd.Context(), orchestrators.SaveDayInput{
			TenantID: opts.TenantID,
			Date:     date,
			Active:   !opts.Disable,
		}, deps)
		if err != nil {
			return WrapExitError(ExitCommandError, "save day "+date, err)
		}
		saved = append(saved, dayResult{DayID: d.ID, Date: d.Date, Active: d.Active})
	}

	return opts.formatter(cmd).Success(saved, func(w io.Writer) {
		for _, d := range saved {
			state := "enabled"
			if !d.Active {
				state = "disabled"
			}
			fmt.Fprintf(w, "%s %s (%s)\n", d.Date, state, d.DayID)
		}
	})
}
