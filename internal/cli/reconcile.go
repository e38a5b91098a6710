package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"studio/internal/adapters/email"
	enrollmentStore "studio/internal/adapters/storage/enrollment"
	"studio/internal/application/orchestrators"
)

// ReconcileOptions holds flags for the reconcile command.
type ReconcileOptions struct {
	*RootOptions
	TenantID string
	Report   bool
}

// NewReconcileCommand creates the reconcile command.
func NewReconcileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReconcileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Cancel duplicate open enrollments",
		Long: `Keep one open enrollment per member and modality and cancel the rest.

Without --tenant every tenant is swept. --report mails the result to the
configured report recipients (global sweeps only).

Example:
  studioctl reconcile --tenant t1
  studioctl reconcile --report --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.TenantID, "tenant", "", "tenant to reconcile (default: all tenants)")
	cmd.Flags().BoolVar(&opts.Report, "report", false, "email the sweep report")

	return cmd
}

func runReconcile(cmd *cobra.Command, opts *ReconcileOptions) error {
	out := opts.formatter(cmd)
	if opts.Report && opts.TenantID != "" {
		return NewExitError(ExitCommandError, "--report applies to global sweeps; drop --tenant")
	}

	db, err := opts.openDB()
	if err != nil {
		return err
	}
	defer db.Close()
	store := enrollmentStore.NewSQLiteStore(db)

	var result orchestrators.ReconcileResult
	if opts.Report {
		var sender email.Sender = email.NewNoopSender()
		if opts.Config.ResendKey != "" {
			sender = email.NewResendSender(opts.Config.ResendKey, opts.Config.EmailFrom)
		}
		out.VerboseLog("mailing report to %v", opts.Config.ReportRecipients)
		result, err = orchestrators.RunReconcileSweep(cmd.Context(), orchestrators.ReconcileSweepDeps{
			EnrollmentStore: store,
			Sender:          sender,
			Recipients:      opts.Config.ReportRecipients,
		})
	} else {
		result, err = orchestrators.ExecuteReconcileEnrollments(cmd.Context(),
			orchestrators.ReconcileEnrollmentsInput{TenantID: opts.TenantID},
			orchestrators.ReconcileEnrollmentsDeps{EnrollmentStore: store})
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "reconcile", err)
	}

	data := map[string]int{
		"cancelled_count":   result.CancelledCount,
		"groups_processed":  result.GroupsProcessed,
		"groups_reconciled": result.GroupsReconciled,
		"failed_groups":     result.FailedGroups,
	}
	if err := out.Success(data, func(w io.Writer) {
		fmt.Fprintf(w, "groups processed:  %d\n", result.GroupsProcessed)
		fmt.Fprintf(w, "groups reconciled: %d\n", result.GroupsReconciled)
		fmt.Fprintf(w, "cancelled:         %d\n", result.CancelledCount)
		fmt.Fprintf(w, "failed groups:     %d\n", result.FailedGroups)
	}); err != nil {
		return err
	}
	if result.FailedGroups > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d groups failed and were rolled back", result.FailedGroups))
	}
	return nil
}
