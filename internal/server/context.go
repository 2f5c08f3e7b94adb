package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"google.golang.org/api/option"

	"github.com/teemow/appointments/internal/calendar"
	"github.com/teemow/appointments/internal/google"
	"github.com/teemow/appointments/internal/instrumentation"
)

// CredentialStatus is implemented by credential sources that can report
// readiness without refreshing, such as *google.Manager.
type CredentialStatus interface {
	Status(ctx context.Context) google.Status
}

// ContextConfig configures a ServerContext.
type ContextConfig struct {
	Credentials google.CredentialSource

	// CalendarID defaults to "primary".
	CalendarID string

	// MaxResults bounds how many upcoming events a read returns.
	// Defaults to calendar.DefaultMaxResults.
	MaxResults int64

	// CalendarOptions are passed to every Calendar client.
	CalendarOptions []option.ClientOption

	Metrics *instrumentation.Metrics
	Audit   *instrumentation.AuditLogger
	Logger  *slog.Logger

	// Now defaults to time.Now.
	Now func() time.Time
}

// ServerContext holds the dependencies shared by the HTTP handlers and
// the MCP tools.
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc

	credentials     google.CredentialSource
	calendarID      string
	maxResults      int64
	calendarOptions []option.ClientOption
	metrics         *instrumentation.Metrics
	audit           *instrumentation.AuditLogger
	logger          *slog.Logger
	now             func() time.Time

	mu       sync.RWMutex
	shutdown bool
}

// NewServerContext creates a new server context.
func NewServerContext(ctx context.Context, cfg ContextConfig) (*ServerContext, error) {
	if cfg.Credentials == nil {
		return nil, errors.New("credential source is required")
	}

	shutdownCtx, cancel := context.WithCancel(ctx)
	sc := &ServerContext{
		ctx:             shutdownCtx,
		cancel:          cancel,
		credentials:     cfg.Credentials,
		calendarID:      cfg.CalendarID,
		maxResults:      cfg.MaxResults,
		calendarOptions: cfg.CalendarOptions,
		metrics:         cfg.Metrics,
		audit:           cfg.Audit,
		logger:          cfg.Logger,
		now:             cfg.Now,
	}
	if sc.calendarID == "" {
		sc.calendarID = "primary"
	}
	if sc.maxResults <= 0 {
		sc.maxResults = calendar.DefaultMaxResults
	}
	if sc.logger == nil {
		sc.logger = slog.Default()
	}
	if sc.now == nil {
		sc.now = time.Now
	}
	return sc, nil
}

// Context returns the server context.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// CalendarClient acquires a credential and returns a Calendar client
// authorized with it. A new client is built per call so every request
// sees the current credential.
func (sc *ServerContext) CalendarClient(ctx context.Context) (*calendar.Client, error) {
	ts, err := google.TokenSource(ctx, sc.credentials)
	if err != nil {
		return nil, err
	}
	return calendar.NewClient(ctx, ts, calendar.ClientConfig{
		CalendarID: sc.calendarID,
		Metrics:    sc.metrics,
		Options:    sc.calendarOptions,
	})
}

// CredentialStatus reports the credential readiness when the configured
// source supports it.
func (sc *ServerContext) CredentialStatus(ctx context.Context) (google.Status, bool) {
	s, ok := sc.credentials.(CredentialStatus)
	if !ok {
		return google.Status{}, false
	}
	return s.Status(ctx), true
}

// CalendarID returns the calendar requests are proxied to.
func (sc *ServerContext) CalendarID() string {
	return sc.calendarID
}

// MaxResults returns the upcoming events limit.
func (sc *ServerContext) MaxResults() int64 {
	return sc.maxResults
}

// Metrics returns the metrics recorder. It may be nil.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.metrics
}

// AuditLogger returns the audit logger. It may be nil.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	return sc.audit
}

// Logger returns the base logger.
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// Now returns the current time from the configured clock.
func (sc *ServerContext) Now() time.Time {
	return sc.now()
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown marks the context as shut down and cancels it.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
