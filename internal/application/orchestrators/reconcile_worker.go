package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"studio/internal/adapters/email"
)

// ReconcileSweepDeps holds dependencies for the scheduled global sweep.
type ReconcileSweepDeps struct {
	EnrollmentStore EnrollmentStoreForReconcile
	Sender          email.Sender // optional: nil disables the report
	Recipients      []string
	Now             func() time.Time
}

// RunReconcileSweep reconciles every tenant and mails a report when the sweep
// changed something or had failures. A failed report is logged, not returned.
// PRE: none
// POST: Same as ExecuteReconcileEnrollments with an empty tenant
func RunReconcileSweep(ctx context.Context, deps ReconcileSweepDeps) (ReconcileResult, error) {
	result, err := ExecuteReconcileEnrollments(ctx, ReconcileEnrollmentsInput{}, ReconcileEnrollmentsDeps{
		EnrollmentStore: deps.EnrollmentStore,
	})
	if err != nil {
		return result, err
	}
	if deps.Sender == nil || len(deps.Recipients) == 0 {
		return result, nil
	}
	if result.CancelledCount == 0 && result.FailedGroups == 0 {
		return result, nil
	}

	html, err := email.RenderMarkdown(ReconcileReport(result, now(deps.Now)))
	if err != nil {
		slog.Error("enrollment_event", "event", "reconcile_report_failed", "error", err.Error())
		return result, nil
	}
	if _, err := deps.Sender.Send(ctx, email.Message{
		To:      deps.Recipients,
		Subject: "Enrollment reconciliation report",
		HTML:    html,
	}); err != nil {
		slog.Error("enrollment_event", "event", "reconcile_report_failed", "error", err.Error())
	}
	return result, nil
}

// ReconcileReport renders a sweep result as markdown.
func ReconcileReport(r ReconcileResult, at time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Enrollment reconciliation\n\nRun at %s.\n\n", at.UTC().Format(time.RFC3339))
	b.WriteString("| groups processed | groups reconciled | enrollments cancelled | failed groups |\n")
	b.WriteString("|---|---|---|---|\n")
	fmt.Fprintf(&b, "| %d | %d | %d | %d |\n", r.GroupsProcessed, r.GroupsReconciled, r.CancelledCount, r.FailedGroups)
	if r.FailedGroups > 0 {
		b.WriteString("\nFailed groups were rolled back and will be retried on the next sweep. See the server log for `reconcile_group_failed`.\n")
	}
	return b.String()
}

// StartReconcileWorker runs RunReconcileSweep every interval until stopCh is closed.
// PRE: interval > 0
func StartReconcileWorker(deps ReconcileSweepDeps, interval time.Duration, stopCh <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
				if _, err := RunReconcileSweep(ctx, deps); err != nil {
					slog.Error("enrollment_event", "event", "reconcile_sweep_failed", "error", err.Error())
				}
				cancel()
			case <-stopCh:
				slog.Info("reconcile_worker_stopped")
				return
			}
		}
	}()
}
