package web

import (
	"crypto/rand"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"studio/internal/adapters/http/middleware"
	"studio/internal/adapters/http/perf"
	calendarStore "studio/internal/adapters/storage/calendar"
	checkinStore "studio/internal/adapters/storage/checkin"
	enrollmentStore "studio/internal/adapters/storage/enrollment"
	planStore "studio/internal/adapters/storage/plan"
	slotStore "studio/internal/adapters/storage/slot"
	"studio/internal/application/orchestrators"
)

// Stores holds all storage dependencies.
type Stores struct {
	DayStore        calendarStore.Store
	SlotStore       slotStore.Store
	CheckInStore    checkinStore.Store
	PlanStore       planStore.Store
	EnrollmentStore enrollmentStore.Store
}

// Options carries the request-surface settings resolved from config.
type Options struct {
	JWTSecret          []byte
	CSRFKey            []byte // 32 bytes, see ResolveCSRFKey
	Secure             bool   // production: secure cookies, strict CSRF origin checks
	CORSOrigins        []string
	RatePerSecond      float64
	RateBurst          int
	SlowRequest        time.Duration
	Location           *time.Location // studio timezone; nil means UTC
	Tolerances         orchestrators.Tolerances
	ReplicationWorkers int
}

// ResolveCSRFKey returns the configured 32-byte key. In production the key MUST be set.
// In development, a random key is generated per startup.
func ResolveCSRFKey(configured string, production bool) ([]byte, error) {
	if configured != "" {
		if len(configured) != 32 {
			return nil, errors.New("csrf key must be exactly 32 bytes")
		}
		return []byte(configured), nil
	}
	if production {
		return nil, errors.New("csrf key is required in production")
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	slog.Warn("csrf_key_generated", "detail", "kiosk form tokens will not survive a restart")
	return key, nil
}

// Global stores instance (set by NewMux)
var stores *Stores

// Global request-surface settings (set by NewMux)
var settings Options

// Global perf collector (set by NewMux)
var perfCollector *perf.Collector

// clock is the time source of admission and calendar defaults. Tests pin it.
var clock = time.Now

// NewMux wires HTTP handlers for the app.
func NewMux(s *Stores, opts Options, collector *perf.Collector) http.Handler {
	stores = s
	settings = opts
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	perfCollector = collector

	mux := http.NewServeMux()
	registerRoutes(mux)

	limiter := middleware.NewRateLimiter(opts.RatePerSecond, opts.RateBurst)

	// Apply middleware: CORS -> SecurityHeaders -> CSRF -> Authenticate -> RateLimit -> Timing -> Mux
	return middleware.Chain(mux,
		middleware.Timing(collector, opts.SlowRequest),
		middleware.RateLimit(limiter),
		middleware.Authenticate(opts.JWTSecret),
		middleware.CSRF(opts.CSRFKey, opts.Secure, opts.CORSOrigins),
		middleware.SecurityHeaders,
		middleware.CORS(opts.CORSOrigins),
	)
}
