package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"studio/internal/adapters/email"
	web "studio/internal/adapters/http"
	"studio/internal/adapters/http/perf"
	"studio/internal/adapters/storage"
	calendarStore "studio/internal/adapters/storage/calendar"
	checkinStore "studio/internal/adapters/storage/checkin"
	enrollmentStore "studio/internal/adapters/storage/enrollment"
	planStore "studio/internal/adapters/storage/plan"
	slotStore "studio/internal/adapters/storage/slot"
	"studio/internal/application/orchestrators"
	"studio/internal/config"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := run(); err != nil {
		slog.Error("server_failed", "error", err.Error())
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))
	if cfg.JWTSecret == "" {
		slog.Warn("jwt_secret_missing", "detail", "every bearer token will be rejected until STUDIO_JWT_SECRET is set")
	}

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	// Performance instrumentation: wrap DB with timing, create collector
	collector := perf.NewCollector(perf.DefaultWindow)
	timedDB := storage.NewTimedDB(db, collector, cfg.SlowQuery)

	stores := &web.Stores{
		DayStore:        calendarStore.NewSQLiteStore(timedDB),
		SlotStore:       slotStore.NewSQLiteStore(timedDB),
		CheckInStore:    checkinStore.NewSQLiteStore(timedDB),
		PlanStore:       planStore.NewSQLiteStore(timedDB),
		EnrollmentStore: enrollmentStore.NewSQLiteStore(timedDB),
	}

	// Configure email sender
	var sender email.Sender
	if cfg.ResendKey != "" {
		sender = email.NewResendSender(cfg.ResendKey, cfg.EmailFrom)
		slog.Info("email_sender_configured", "provider", "resend")
	} else {
		sender = email.NewNoopSender()
		if cfg.IsProduction() {
			slog.Warn("email_sender_configured", "provider", "noop", "detail", "STUDIO_RESEND_KEY is not set, reconcile reports are not delivered")
		}
	}

	// Scheduled global enrollment reconciliation
	stopCh := make(chan struct{})
	defer close(stopCh)
	if cfg.ReconcileInterval > 0 {
		orchestrators.StartReconcileWorker(orchestrators.ReconcileSweepDeps{
			EnrollmentStore: stores.EnrollmentStore,
			Sender:          sender,
			Recipients:      cfg.ReportRecipients,
		}, cfg.ReconcileInterval, stopCh)
		slog.Info("reconcile_worker_started", "interval", cfg.ReconcileInterval.String())
	}

	csrfKey, err := web.ResolveCSRFKey(cfg.CSRFKey, cfg.IsProduction())
	if err != nil {
		return err
	}
	handler := web.NewMux(stores, web.Options{
		JWTSecret:     []byte(cfg.JWTSecret),
		CSRFKey:       csrfKey,
		Secure:        cfg.IsProduction(),
		CORSOrigins:   cfg.CORSOrigins,
		RatePerSecond: cfg.RatePerSec,
		RateBurst:     cfg.RateBurst,
		SlowRequest:   cfg.SlowRequest,
		Location:      cfg.Location(),
		Tolerances: orchestrators.Tolerances{
			Before: cfg.ToleranceBeforeMinutes,
			After:  cfg.ToleranceAfterMinutes,
		},
		ReplicationWorkers: cfg.ReplicationWorkers,
	}, collector)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server_starting", "version", version, "addr", cfg.Addr, "env", cfg.Env,
			"schema", storage.SchemaVersion, "timezone", cfg.Timezone)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("server_stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
