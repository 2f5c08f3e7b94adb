// Package calendar wraps the Google Calendar v3 events API for the three
// appointment operations: create, list upcoming and delete.
//
// A Client is bound to one calendar and authorizes with an
// oauth2.TokenSource, so callers build one per request from a freshly
// acquired credential:
//
//	ts, err := google.TokenSource(ctx, manager)
//	if err != nil {
//	    return err
//	}
//	client, err := calendar.NewClient(ctx, ts, calendar.ClientConfig{CalendarID: "primary"})
//	if err != nil {
//	    return err
//	}
//	events, err := client.ListUpcoming(ctx, time.Now(), 10)
//
// AppointmentRequest maps the inbound create body onto a calendar.Event,
// and WriteICS renders events as an iCalendar document.
package calendar
