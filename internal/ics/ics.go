// Package ics renders an event's candidate dates as iCalendar data.
package ics

import (
	"datepoll/internal/models"
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"
)

const productID = "-//datepoll//EN"

// UID returns the iCalendar UID of one candidate of an event.
func UID(eventID string, candidateID int) string {
	return fmt.Sprintf("%s-%d@datepoll", eventID, candidateID)
}

// Calendar builds a calendar with one tentative VEVENT per candidate.
func Calendar(event models.Event) *ical.Calendar {
	cal := newCalendar()
	for _, d := range event.Dates {
		cal.Children = append(cal.Children, Candidate(event, d, UID(event.ID, d.ID)))
	}
	return cal
}

// CandidateCalendar wraps a single candidate in its own calendar object, as
// CalDAV servers store one event per resource.
func CandidateCalendar(event models.Event, d models.DateCandidate, uid string) *ical.Calendar {
	cal := newCalendar()
	cal.Children = append(cal.Children, Candidate(event, d, uid))
	return cal
}

// Candidate converts one candidate date to a VEVENT component.
func Candidate(event models.Event, d models.DateCandidate, uid string) *ical.Component {
	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, uid)
	ve.Props.SetText(ical.PropSummary, event.Title)
	ve.Props.SetText(ical.PropStatus, "TENTATIVE")
	ve.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
	ve.Props.SetDateTime(ical.PropDateTimeStart, d.From)
	if d.To != nil {
		ve.Props.SetDateTime(ical.PropDateTimeEnd, *d.To)
	}
	if event.Description != "" {
		ve.Props.SetText(ical.PropDescription, event.Description)
	}
	return ve
}

// Encode writes cal to w.
func Encode(w io.Writer, cal *ical.Calendar) error {
	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("failed to encode calendar: %w", err)
	}
	return nil
}

func newCalendar() *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	return cal
}
