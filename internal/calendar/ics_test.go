package calendar

import (
	"bytes"
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	calendar "google.golang.org/api/calendar/v3"
)

func TestWriteICS(t *testing.T) {
	events := []*calendar.Event{
		{
			Id:          "timed",
			ICalUID:     "timed@google.com",
			Summary:     "Dentist",
			Location:    "Main St, 1",
			Description: "Checkup",
			Start:       &calendar.EventDateTime{DateTime: "2030-01-02T10:00:00+01:00"},
			End:         &calendar.EventDateTime{DateTime: "2030-01-02T11:00:00+01:00"},
			Attendees:   []*calendar.EventAttendee{{Email: "jane@example.com"}},
		},
		{
			Id:      "allday",
			Summary: "Holiday",
			Start:   &calendar.EventDateTime{Date: "2030-01-05"},
			End:     &calendar.EventDateTime{Date: "2030-01-06"},
		},
		{Id: "nostart", Summary: "Broken"},
	}

	var buf bytes.Buffer
	stamp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, WriteICS(&buf, events, stamp))

	out := buf.String()
	assert.Contains(t, out, "BEGIN:VCALENDAR")
	assert.Contains(t, out, "PRODID:"+icsProductID)

	cal, err := ical.NewDecoder(bytes.NewReader(buf.Bytes())).Decode()
	require.NoError(t, err)

	vevents := cal.Events()
	require.Len(t, vevents, 2, "events without a start are skipped")

	timed := vevents[0]
	uid, err := timed.Props.Text(ical.PropUID)
	require.NoError(t, err)
	assert.Equal(t, "timed@google.com", uid)
	summary, err := timed.Props.Text(ical.PropSummary)
	require.NoError(t, err)
	assert.Equal(t, "Dentist", summary)
	location, err := timed.Props.Text(ical.PropLocation)
	require.NoError(t, err)
	assert.Equal(t, "Main St, 1", location)
	start, err := timed.DateTimeStart(time.UTC)
	require.NoError(t, err)
	assert.True(t, start.Equal(time.Date(2030, 1, 2, 9, 0, 0, 0, time.UTC)))
	assert.NotNil(t, timed.Props.Get(ical.PropAttendee))

	allDay := vevents[1]
	uid, err = allDay.Props.Text(ical.PropUID)
	require.NoError(t, err)
	assert.Equal(t, "allday@google.com", uid)
	dtstart := allDay.Props.Get(ical.PropDateTimeStart)
	require.NotNil(t, dtstart)
	assert.Equal(t, ical.ValueDate, dtstart.ValueType())
}
