package calendar

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/event-signup/internal/model"
	"github.com/emersion/go-ical"
)

func TestWriteRoundTrip(t *testing.T) {
	t.Parallel()

	events := []model.Event{
		{ID: "e1", Title: "LAN party", Category: "torneo", Date: "2026-05-01", Time: "18:30", Description: "Bring a PC"},
		{ID: "e2", Title: "Broken", Date: "not-a-date", Time: "xx"},
	}
	stamp := time.Date(2026, time.April, 1, 9, 0, 0, 0, time.UTC)

	var buf bytes.Buffer
	if err := Write(&buf, events, stamp); err != nil {
		t.Fatalf("write: %v", err)
	}

	cal, err := ical.NewDecoder(&buf).Decode()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	vevents := cal.Events()
	if len(vevents) != 1 {
		t.Fatalf("events = %d, want 1", len(vevents))
	}
	ev := vevents[0]
	summary, err := ev.Props.Text(ical.PropSummary)
	if err != nil || summary != "LAN party" {
		t.Fatalf("summary = %q, %v", summary, err)
	}
	start, err := ev.DateTimeStart(time.UTC)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if want := time.Date(2026, time.May, 1, 18, 30, 0, 0, time.UTC); !start.Equal(want) {
		t.Fatalf("start = %v, want %v", start, want)
	}
	end, err := ev.DateTimeEnd(time.UTC)
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if !end.Equal(start.Add(DefaultDuration)) {
		t.Fatalf("end = %v, want %v", end, start.Add(DefaultDuration))
	}
}

func TestWriteWithoutEventsReportsNoEvents(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := Write(&buf, []model.Event{{ID: "x", Date: "bad"}}, time.Now())
	if !errors.Is(err, ErrNoEvents) {
		t.Fatalf("write error = %v, want %v", err, ErrNoEvents)
	}
	if buf.Len() != 0 {
		t.Fatalf("unexpected output %q", buf.String())
	}
}
