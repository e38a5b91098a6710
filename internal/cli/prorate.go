package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	planStore "studio/internal/adapters/storage/plan"
	"studio/internal/application/orchestrators"
)

// ProrateOptions holds flags for the prorate command.
type ProrateOptions struct {
	*RootOptions
	TenantID string
	From     string
	To       string
	Due      string
}

// NewProrateCommand creates the prorate command.
func NewProrateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ProrateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "prorate",
		Short: "Price a mid-cycle plan change",
		Long: `Compute the charge or credit of switching plans before the due date.

Example:
  studioctl prorate --tenant t1 --from basic --to premium --due 2026-01-30`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProrate(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.TenantID, "tenant", "", "tenant ID (required)")
	cmd.Flags().StringVar(&opts.From, "from", "", "current plan ID (required)")
	cmd.Flags().StringVar(&opts.To, "to", "", "new plan ID (required)")
	cmd.Flags().StringVar(&opts.Due, "due", "", "next due date of the current plan, YYYY-MM-DD (required)")
	for _, name := range []string{"tenant", "from", "to", "due"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

func runProrate(cmd *cobra.Command, opts *ProrateOptions) error {
	db, err := opts.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	p, err := orchestrators.ExecuteCalculateProration(cmd.Context(), orchestrators.CalculateProrationInput{
		TenantID:       opts.TenantID,
		PreviousPlanID: opts.From,
		NewPlanID:      opts.To,
		DueDate:        opts.Due,
	}, orchestrators.CalculateProrationDeps{
		PlanStore: planStore.NewSQLiteStore(db),
		Location:  opts.Config.Location(),
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "prorate", err)
	}

	data := map[string]any{
		"delta":          p.Delta,
		"direction":      p.Direction,
		"amount":         p.Amount,
		"remaining_days": p.RemainingDays,
	}
	return opts.formatter(cmd).Success(data, func(w io.Writer) {
		fmt.Fprintf(w, "%s: %.2f over %d days (delta %+.2f)\n", p.Direction, p.Amount, p.RemainingDays, p.Delta)
	})
}
