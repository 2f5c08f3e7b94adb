package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// AppointmentChange captures a mutating calendar operation for audit logging.
// Reads are not audited.
//
// # Privacy Considerations
//
// Attendees holds attendee email addresses, which are PII. Without
// IncludePII only their domains are logged.
type AppointmentChange struct {
	// Surface is where the change came from (SurfaceHTTP or SurfaceMCP).
	Surface string

	// Operation is OperationCreate or OperationDelete.
	Operation  string
	CalendarID string
	EventID    string
	Attendees  []string

	// Execution details
	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string

	// Tracing context
	TraceID   string
	SpanID    string
	RequestID string
}

// NewAppointmentChange creates a new AppointmentChange with timing started.
// Call Complete() when the calendar operation finishes.
func NewAppointmentChange(surface, operation, calendarID string) *AppointmentChange {
	return &AppointmentChange{
		Surface:    surface,
		Operation:  operation,
		CalendarID: calendarID,
		StartTime:  time.Now(),
	}
}

// WithEvent sets the affected event ID.
func (c *AppointmentChange) WithEvent(eventID string) *AppointmentChange {
	c.EventID = eventID
	return c
}

// WithAttendees records the attendee emails of a created event.
func (c *AppointmentChange) WithAttendees(emails []string) *AppointmentChange {
	c.Attendees = emails
	return c
}

// WithRequestID sets the correlation ID of the originating HTTP request.
func (c *AppointmentChange) WithRequestID(id string) *AppointmentChange {
	c.RequestID = id
	return c
}

// WithSpanContext extracts trace context from the current span.
func (c *AppointmentChange) WithSpanContext(ctx context.Context) *AppointmentChange {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		c.TraceID = span.SpanContext().TraceID().String()
		c.SpanID = span.SpanContext().SpanID().String()
	}
	return c
}

// Complete marks the change as finished and calculates duration.
func (c *AppointmentChange) Complete(err error) *AppointmentChange {
	c.Duration = time.Since(c.StartTime)
	c.Success = err == nil
	if err != nil {
		c.Error = err.Error()
	}
	return c
}

// Status returns "success" or "error" based on the Success field.
func (c *AppointmentChange) Status() string {
	if c.Success {
		return StatusSuccess
	}
	return StatusError
}

// LogAttrs returns slog attributes for the change. Attendees are
// reduced to their domains unless includePII is set.
func (c *AppointmentChange) LogAttrs(includePII bool) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("surface", c.Surface),
		slog.String("operation", c.Operation),
		slog.String("calendar_id", c.CalendarID),
		slog.Duration("duration", c.Duration),
		slog.Bool("success", c.Success),
	}

	if c.EventID != "" {
		attrs = append(attrs, slog.String("event_id", c.EventID))
	}
	if len(c.Attendees) > 0 {
		if includePII {
			attrs = append(attrs, slog.Any("attendees", c.Attendees))
		} else {
			attrs = append(attrs, slog.Any("attendee_domains", attendeeDomains(c.Attendees)))
		}
	}
	if c.RequestID != "" {
		attrs = append(attrs, slog.String("request_id", c.RequestID))
	}
	if c.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", c.TraceID))
	}
	if includePII && c.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", c.SpanID))
	}
	if c.Error != "" {
		attrs = append(attrs, slog.String("error", c.Error))
	}

	return attrs
}

func attendeeDomains(emails []string) []string {
	seen := make(map[string]struct{}, len(emails))
	domains := make([]string, 0, len(emails))
	for _, e := range emails {
		d := ExtractUserDomain(e)
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		domains = append(domains, d)
	}
	return domains
}

// AuditLogger writes appointment change records.
// A nil *AuditLogger discards everything.
type AuditLogger struct {
	logger     *slog.Logger
	includePII bool
	enabled    bool
}

// NewAuditLogger creates a new AuditLogger with the given configuration.
func NewAuditLogger(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger.With("component", "audit"),
		includePII: config.IncludePII,
		enabled:    config.Enabled,
	}
}

// LogChange writes one record for the change.
func (al *AuditLogger) LogChange(c *AppointmentChange) {
	if al == nil || !al.enabled || c == nil {
		return
	}

	attrs := c.LogAttrs(al.includePII)
	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}

	if c.Success {
		al.logger.Info("appointment_changed", args...)
	} else {
		al.logger.Warn("appointment_change_failed", args...)
	}
}
