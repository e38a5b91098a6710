package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	calendarStore "studio/internal/adapters/storage/calendar"
	slotStore "studio/internal/adapters/storage/slot"
	"studio/internal/application/orchestrators"
)

// ReplicateOptions holds flags for the replicate command.
type ReplicateOptions struct {
	*RootOptions
	TenantID    string
	SourceDayID string
	Rule        string
	Weekdays    []int
	Month       string
	ModalityID  string
	Workers     int
}

// NewReplicateCommand creates the replicate command.
func NewReplicateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplicateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replicate",
		Short: "Copy a day's slots onto other days",
		Long: `Copy the active slots of a source day onto the days a rule selects.

Rules:
  next_week   the next enabled day on the same weekday
  full_month  every enabled day of --month (default: the source month) on --weekday
              (default: the source weekday)
  custom      every enabled day of --month on the listed --weekday values

Existing slots with the same range are skipped, so reruns are safe.

Example:
  studioctl replicate --tenant t1 --source-day d1 --rule custom --month 2026-02 --weekday 1 --weekday 3`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplicate(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.TenantID, "tenant", "", "tenant ID (required)")
	cmd.Flags().StringVar(&opts.SourceDayID, "source-day", "", "source day ID (required)")
	cmd.Flags().StringVar(&opts.Rule, "rule", string(orchestrators.RuleNextWeek), "next_week|full_month|custom")
	cmd.Flags().IntSliceVar(&opts.Weekdays, "weekday", nil, "target weekday, 0=Sunday (repeatable)")
	cmd.Flags().StringVar(&opts.Month, "month", "", "target month YYYY-MM")
	cmd.Flags().StringVar(&opts.ModalityID, "modality", "", "only copy slots of this modality")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "concurrent copies (default: config replication_workers)")
	_ = cmd.MarkFlagRequired("tenant")
	_ = cmd.MarkFlagRequired("source-day")

	return cmd
}

type slotCopies struct {
	SlotID       string   `json:"slot_id"`
	StartTime    string   `json:"start_time"`
	EndTime      string   `json:"end_time"`
	CreatedDates []string `json:"created_dates"`
	Skipped      int      `json:"skipped"`
	Failed       int      `json:"failed"`
}

type replicateResult struct {
	Created int          `json:"created"`
	Skipped int          `json:"skipped"`
	Failed  int          `json:"failed"`
	PerSlot []slotCopies `json:"per_slot"`
}

func runReplicate(cmd *cobra.Command, opts *ReplicateOptions) error {
	out := opts.formatter(cmd)
	db, err := opts.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	workers := opts.Workers
	if workers <= 0 {
		workers = opts.Config.ReplicationWorkers
	}
	out.VerboseLog("replicating %s with rule %s using %d workers", opts.SourceDayID, opts.Rule, workers)

	result, err := orchestrators.ExecuteReplicateSlots(cmd.Context(), orchestrators.ReplicateSlotsInput{
		TenantID:    opts.TenantID,
		SourceDayID: opts.SourceDayID,
		Rule:        orchestrators.ReplicationRule(opts.Rule),
		Weekdays:    opts.Weekdays,
		Month:       opts.Month,
		ModalityID:  opts.ModalityID,
	}, orchestrators.ReplicateSlotsDeps{
		SlotStore: slotStore.NewSQLiteStore(db),
		DayStore:  calendarStore.NewSQLiteStore(db),
		Location:  opts.Config.Location(),
		Workers:   workers,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "replicate", err)
	}

	data := replicateResult{Created: result.Created, Skipped: result.Skipped, Failed: result.Failed}
	for _, s := range result.PerSlot {
		data.PerSlot = append(data.PerSlot, slotCopies(s))
	}
	if err := out.Success(data, func(w io.Writer) {
		fmt.Fprintf(w, "created %d, skipped %d, failed %d\n", result.Created, result.Skipped, result.Failed)
		for _, s := range result.PerSlot {
			dates := "-"
			if len(s.CreatedDates) > 0 {
				dates = strings.Join(s.CreatedDates, ", ")
			}
			fmt.Fprintf(w, "  %s %s-%s: %s (skipped %d, failed %d)\n",
				s.SlotID, s.StartTime, s.EndTime, dates, s.Skipped, s.Failed)
		}
	}); err != nil {
		return err
	}
	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d copies failed", result.Failed))
	}
	return nil
}
