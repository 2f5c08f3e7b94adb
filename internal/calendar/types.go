package calendar

import (
	"errors"
	"fmt"

	calendar "google.golang.org/api/calendar/v3"
)

// DefaultSummary is used when a request carries no summary at all.
const DefaultSummary = "No Title"

// ErrMissingField is returned by AppointmentRequest.ToEvent when a
// required field is absent.
var ErrMissingField = errors.New("missing required field")

// EventTime is the start or end of an appointment. Both keys must be
// present; their values, empty ones included, go to the API unchecked.
type EventTime struct {
	DateTime *string `json:"dateTime"`
	TimeZone *string `json:"timeZone"`
}

// NewEventTime returns an EventTime with both keys set.
func NewEventTime(dateTime, timeZone string) *EventTime {
	return &EventTime{DateTime: &dateTime, TimeZone: &timeZone}
}

// toAPI copies t onto the API type. Empty values are force-sent so they
// reach Google as given instead of being dropped as zero values.
func (t *EventTime) toAPI() *calendar.EventDateTime {
	edt := &calendar.EventDateTime{DateTime: *t.DateTime, TimeZone: *t.TimeZone}
	if edt.DateTime == "" {
		edt.ForceSendFields = append(edt.ForceSendFields, "DateTime")
	}
	if edt.TimeZone == "" {
		edt.ForceSendFields = append(edt.ForceSendFields, "TimeZone")
	}
	return edt
}

// AppointmentRequest is the inbound body of a create request.
//
// Pointer and nil-slice fields distinguish "absent" from "empty" so
// defaults only apply when a key is missing.
type AppointmentRequest struct {
	Summary     *string                   `json:"summary"`
	Location    string                    `json:"location"`
	Description string                    `json:"description"`
	Start       *EventTime                `json:"start"`
	End         *EventTime                `json:"end"`
	Recurrence  []string                  `json:"recurrence"`
	Attendees   []*calendar.EventAttendee `json:"attendees"`
	Reminders   *calendar.EventReminders  `json:"reminders"`
}

// DefaultReminders is an email one day ahead and a popup ten minutes ahead.
func DefaultReminders() *calendar.EventReminders {
	return &calendar.EventReminders{
		UseDefault: false,
		Overrides: []*calendar.EventReminder{
			{Method: "email", Minutes: 24 * 60},
			{Method: "popup", Minutes: 10},
		},
		ForceSendFields: []string{"UseDefault"},
	}
}

// Validate checks that the start and end times carry both keys.
func (r *AppointmentRequest) Validate() error {
	if err := checkTime("start", r.Start); err != nil {
		return err
	}
	return checkTime("end", r.End)
}

func checkTime(name string, t *EventTime) error {
	switch {
	case t == nil:
		return fmt.Errorf("%w: %s", ErrMissingField, name)
	case t.DateTime == nil:
		return fmt.Errorf("%w: %s.dateTime", ErrMissingField, name)
	case t.TimeZone == nil:
		return fmt.Errorf("%w: %s.timeZone", ErrMissingField, name)
	}
	return nil
}

// ToEvent validates r and maps it onto a Calendar API event, filling in
// defaults for absent optional fields.
func (r *AppointmentRequest) ToEvent() (*calendar.Event, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	summary := DefaultSummary
	if r.Summary != nil {
		summary = *r.Summary
	}

	reminders := r.Reminders
	if reminders == nil {
		reminders = DefaultReminders()
	} else {
		// an explicit "useDefault": false must reach the API
		reminders.ForceSendFields = append(reminders.ForceSendFields, "UseDefault")
	}

	recurrence := r.Recurrence
	if recurrence == nil {
		recurrence = []string{}
	}
	attendees := r.Attendees
	if attendees == nil {
		attendees = []*calendar.EventAttendee{}
	}

	return &calendar.Event{
		Summary:     summary,
		Location:    r.Location,
		Description: r.Description,
		Start:       r.Start.toAPI(),
		End:         r.End.toAPI(),
		Recurrence:  recurrence,
		Attendees:   attendees,
		Reminders:   reminders,
	}, nil
}

// AttendeeEmails returns the addresses of an event's attendees.
func AttendeeEmails(ev *calendar.Event) []string {
	if ev == nil {
		return nil
	}
	emails := make([]string, 0, len(ev.Attendees))
	for _, a := range ev.Attendees {
		if a != nil && a.Email != "" {
			emails = append(emails, a.Email)
		}
	}
	return emails
}
