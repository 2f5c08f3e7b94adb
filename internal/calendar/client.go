package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/teemow/appointments/internal/instrumentation"
)

// DefaultMaxResults is how many upcoming events ListUpcoming returns when
// the caller passes zero.
const DefaultMaxResults = 10

// ClientConfig configures a Client.
type ClientConfig struct {
	// CalendarID defaults to "primary".
	CalendarID string

	Metrics *instrumentation.Metrics

	// Options are appended to the service options, e.g. option.WithEndpoint
	// to point the client at a fake server.
	Options []option.ClientOption
}

// Client wraps the Google Calendar events service for one calendar.
type Client struct {
	svc        *calendar.Service
	calendarID string
	metrics    *instrumentation.Metrics
}

// NewClient creates a Calendar client that authorizes requests with ts.
func NewClient(ctx context.Context, ts oauth2.TokenSource, cfg ClientConfig) (*Client, error) {
	if ts == nil {
		return nil, errors.New("token source cannot be nil")
	}

	opts := append([]option.ClientOption{option.WithHTTPClient(oauth2.NewClient(ctx, ts))}, cfg.Options...)
	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}

	calendarID := cfg.CalendarID
	if calendarID == "" {
		calendarID = "primary"
	}

	return &Client{
		svc:        svc,
		calendarID: calendarID,
		metrics:    cfg.Metrics,
	}, nil
}

// CalendarID returns the calendar this client operates on.
func (c *Client) CalendarID() string {
	return c.calendarID
}

// CreateEvent inserts ev and returns the event as stored by Google,
// including its htmlLink.
func (c *Client) CreateEvent(ctx context.Context, ev *calendar.Event) (*calendar.Event, error) {
	ctx, span := instrumentation.StartCalendarSpan(ctx, instrumentation.OperationCreate, c.calendarID)
	defer span.End()
	start := time.Now()

	created, err := c.svc.Events.Insert(c.calendarID, ev).Context(ctx).Do()
	c.finish(ctx, span, instrumentation.OperationCreate, start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	span.SetAttributes(attribute.String(instrumentation.SpanAttrEventID, created.Id))
	return created, nil
}

// ListUpcoming returns at most maxResults single events starting at or
// after now, ordered by start time. The result is never nil.
func (c *Client) ListUpcoming(ctx context.Context, now time.Time, maxResults int64) ([]*calendar.Event, error) {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	ctx, span := instrumentation.StartCalendarSpan(ctx, instrumentation.OperationList, c.calendarID,
		attribute.Int64("calendar.max_results", maxResults))
	defer span.End()
	start := time.Now()

	events, err := c.svc.Events.List(c.calendarID).
		TimeMin(now.UTC().Format(time.RFC3339)).
		MaxResults(maxResults).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	c.finish(ctx, span, instrumentation.OperationList, start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	if events.Items == nil {
		return []*calendar.Event{}, nil
	}
	span.SetAttributes(attribute.Int("calendar.event_count", len(events.Items)))
	return events.Items, nil
}

// DeleteEvent removes the event with the given id.
func (c *Client) DeleteEvent(ctx context.Context, eventID string) error {
	if eventID == "" {
		return fmt.Errorf("%w: event_id", ErrMissingField)
	}

	ctx, span := instrumentation.StartCalendarSpan(ctx, instrumentation.OperationDelete, c.calendarID,
		attribute.String(instrumentation.SpanAttrEventID, eventID))
	defer span.End()
	start := time.Now()

	err := c.svc.Events.Delete(c.calendarID, eventID).Context(ctx).Do()
	c.finish(ctx, span, instrumentation.OperationDelete, start, err)
	if err != nil {
		return fmt.Errorf("failed to delete event %s: %w", eventID, err)
	}
	return nil
}

func (c *Client) finish(ctx context.Context, span trace.Span, operation string, start time.Time, err error) {
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		if code := StatusCode(err); code != 0 {
			span.SetAttributes(attribute.Int("http.response.status_code", code))
		}
		instrumentation.SetSpanError(span, err)
	} else {
		instrumentation.SetSpanSuccess(span)
	}
	c.metrics.RecordCalendarOperation(ctx, c.calendarID, operation, status, time.Since(start))
}

// StatusCode extracts the HTTP status of a Google API error, or 0.
func StatusCode(err error) int {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code
	}
	return 0
}

// IsNotFound reports whether err is a 404 or 410 from the Calendar API.
// Deleted events answer 410 Gone.
func IsNotFound(err error) bool {
	code := StatusCode(err)
	return code == http.StatusNotFound || code == http.StatusGone
}
