package calendar

import (
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"
	calendar "google.golang.org/api/calendar/v3"
)

// ICSContentType is the media type of an iCalendar document.
const ICSContentType = "text/calendar; charset=utf-8"

const icsProductID = "-//teemow//appointments//EN"

// WriteICS encodes events as a VCALENDAR document. Events without a
// usable start time are skipped. stamp becomes every event's DTSTAMP.
func WriteICS(w io.Writer, events []*calendar.Event, stamp time.Time) error {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, icsProductID)

	for _, ev := range events {
		vevent, ok := toVEvent(ev, stamp)
		if !ok {
			continue
		}
		cal.Children = append(cal.Children, vevent)
	}

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("failed to encode calendar: %w", err)
	}
	return nil
}

func toVEvent(ev *calendar.Event, stamp time.Time) (*ical.Component, bool) {
	if ev == nil || ev.Start == nil {
		return nil, false
	}

	vevent := ical.NewComponent(ical.CompEvent)
	uid := ev.ICalUID
	if uid == "" {
		uid = ev.Id + "@google.com"
	}
	vevent.Props.SetText(ical.PropUID, uid)
	vevent.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())

	if !setEventTime(vevent, ical.PropDateTimeStart, ev.Start) {
		return nil, false
	}
	if ev.End != nil {
		setEventTime(vevent, ical.PropDateTimeEnd, ev.End)
	}

	if ev.Summary != "" {
		vevent.Props.SetText(ical.PropSummary, ev.Summary)
	}
	if ev.Description != "" {
		vevent.Props.SetText(ical.PropDescription, ev.Description)
	}
	if ev.Location != "" {
		vevent.Props.SetText(ical.PropLocation, ev.Location)
	}
	for _, a := range ev.Attendees {
		if a == nil || a.Email == "" {
			continue
		}
		p := ical.NewProp(ical.PropAttendee)
		p.SetText("mailto:" + a.Email)
		vevent.Props.Add(p)
	}
	return vevent, true
}

// setEventTime writes an all-day DATE or a DATE-TIME property depending
// on which field Google populated.
func setEventTime(vevent *ical.Component, name string, t *calendar.EventDateTime) bool {
	switch {
	case t.Date != "":
		d, err := time.Parse(time.DateOnly, t.Date)
		if err != nil {
			return false
		}
		p := ical.NewProp(name)
		p.SetDate(d)
		vevent.Props.Set(p)
	case t.DateTime != "":
		dt, err := time.Parse(time.RFC3339, t.DateTime)
		if err != nil {
			return false
		}
		vevent.Props.SetDateTime(name, dt.UTC())
	default:
		return false
	}
	return true
}
