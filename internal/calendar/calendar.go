// Package calendar renders a user's enrolled events as an iCalendar feed.
package calendar

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Shivanand-hulikatti/event-signup/internal/model"
	"github.com/emersion/go-ical"
)

const productID = "-//event-signup//enrolled events//EN"

// DefaultDuration is used as the length of every exported event.
const DefaultDuration = 2 * time.Hour

// Build converts events into a VCALENDAR. Events whose date or time does not
// parse are skipped.
func Build(events []model.Event, stamp time.Time) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)

	for _, e := range events {
		start, err := e.StartsAt()
		if err != nil {
			continue
		}
		ev := ical.NewEvent()
		ev.Props.SetText(ical.PropUID, e.ID+"@event-signup")
		ev.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
		ev.Props.SetDateTime(ical.PropDateTimeStart, start.UTC())
		ev.Props.SetDateTime(ical.PropDateTimeEnd, start.Add(DefaultDuration).UTC())
		ev.Props.SetText(ical.PropSummary, e.Title)
		if e.Description != "" {
			ev.Props.SetText(ical.PropDescription, e.Description)
		}
		if e.Category != "" {
			ev.Props.SetText(ical.PropCategories, e.Category)
		}
		cal.Children = append(cal.Children, ev.Component)
	}
	return cal
}

// ErrNoEvents is returned by Write when there is nothing to export; an
// iCalendar object must contain at least one component.
var ErrNoEvents = errors.New("no events to export")

// Write encodes events as iCalendar text to w.
func Write(w io.Writer, events []model.Event, stamp time.Time) error {
	cal := Build(events, stamp)
	if len(cal.Children) == 0 {
		return ErrNoEvents
	}
	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("encode calendar: %w", err)
	}
	return nil
}
