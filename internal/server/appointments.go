package server

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
	calendarv3 "google.golang.org/api/calendar/v3"

	"github.com/teemow/appointments/internal/calendar"
	"github.com/teemow/appointments/internal/instrumentation"
	"github.com/teemow/appointments/internal/logging"
)

// The appointment operations below are shared by the HTTP handlers and
// the MCP tools. surface is instrumentation.SurfaceHTTP or SurfaceMCP.

// CreateAppointment validates req, acquires a credential and inserts the
// event into the configured calendar.
func (sc *ServerContext) CreateAppointment(ctx context.Context, surface string, req *calendar.AppointmentRequest) (*calendarv3.Event, error) {
	ctx, span := instrumentation.StartSpan(ctx, "appointments.create")
	defer span.End()

	change := instrumentation.NewAppointmentChange(surface, instrumentation.OperationCreate, sc.calendarID).
		WithRequestID(RequestIDFromContext(ctx))
	logger := sc.operationLogger(ctx, "appointments.create")

	ev, err := req.ToEvent()
	if err != nil {
		return nil, sc.fail(ctx, span, change, logger, err)
	}
	change.WithAttendees(calendar.AttendeeEmails(ev))
	logger.Debug("received appointment", slog.String("summary", ev.Summary), slog.Int("attendees", len(ev.Attendees)))

	client, err := sc.CalendarClient(ctx)
	if err != nil {
		return nil, sc.fail(ctx, span, change, logger, err)
	}
	created, err := client.CreateEvent(ctx, ev)
	if err != nil {
		return nil, sc.fail(ctx, span, change, logger, err)
	}

	change.WithEvent(created.Id)
	sc.audit.LogChange(change.WithSpanContext(ctx).Complete(nil))
	instrumentation.SetSpanSuccess(span)
	logger.Info("event created", logging.EventID(created.Id), slog.String("event_link", created.HtmlLink))
	return created, nil
}

// ListAppointments returns the next upcoming events of the configured
// calendar, starting now.
func (sc *ServerContext) ListAppointments(ctx context.Context) ([]*calendarv3.Event, error) {
	ctx, span := instrumentation.StartSpan(ctx, "appointments.list")
	defer span.End()
	logger := sc.operationLogger(ctx, "appointments.list")

	client, err := sc.CalendarClient(ctx)
	if err != nil {
		return nil, sc.fail(ctx, span, nil, logger, err)
	}
	events, err := client.ListUpcoming(ctx, sc.Now(), sc.maxResults)
	if err != nil {
		return nil, sc.fail(ctx, span, nil, logger, err)
	}

	instrumentation.SetSpanSuccess(span)
	logger.Info("retrieved events", slog.Int("count", len(events)))
	return events, nil
}

// DeleteAppointment removes eventID from the configured calendar.
func (sc *ServerContext) DeleteAppointment(ctx context.Context, surface, eventID string) error {
	ctx, span := instrumentation.StartSpan(ctx, "appointments.delete")
	defer span.End()

	change := instrumentation.NewAppointmentChange(surface, instrumentation.OperationDelete, sc.calendarID).
		WithEvent(eventID).
		WithRequestID(RequestIDFromContext(ctx))
	logger := sc.operationLogger(ctx, "appointments.delete").With(logging.EventID(eventID))

	client, err := sc.CalendarClient(ctx)
	if err != nil {
		return sc.fail(ctx, span, change, logger, err)
	}
	if err := client.DeleteEvent(ctx, eventID); err != nil {
		if calendar.IsNotFound(err) {
			logger = logger.With(slog.Bool("not_found", true))
		}
		return sc.fail(ctx, span, change, logger, err)
	}

	sc.audit.LogChange(change.WithSpanContext(ctx).Complete(nil))
	instrumentation.SetSpanSuccess(span)
	logger.Info("event deleted", logging.Status(logging.StatusSuccess), slog.String("message", "Event deleted"))
	return nil
}

// operationLogger tags log lines with the request and, when tracing is
// on, the trace and span of the operation.
func (sc *ServerContext) operationLogger(ctx context.Context, operation string) *slog.Logger {
	logger := logging.WithRequestID(logging.WithOperation(sc.logger, operation), RequestIDFromContext(ctx)).
		With(logging.CalendarID(sc.calendarID))
	if traceID := instrumentation.GetTraceID(ctx); traceID != "" {
		logger = logger.With(
			slog.String("trace_id", traceID),
			slog.String("span_id", instrumentation.GetSpanID(ctx)))
	}
	return logger
}

// fail records err on the span, the audit log (when change is set) and
// the operation log, and returns it unchanged.
func (sc *ServerContext) fail(ctx context.Context, span trace.Span, change *instrumentation.AppointmentChange, logger *slog.Logger, err error) error {
	instrumentation.SetSpanError(span, err)
	if change != nil {
		sc.audit.LogChange(change.WithSpanContext(ctx).Complete(err))
	}
	logger.Error("an error occurred", logging.Err(err))
	return err
}
