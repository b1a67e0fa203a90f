package eld

import (
	"bytes"
	"encoding/json"
	"math"
	"testing"
	"time"

	"eldtrip/internal/hos"
)

func dayAt(t *testing.T, periods ...hos.DutyPeriod) hos.DailySummary {
	t.Helper()
	return hos.DailySummary{
		Date:        time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		DayNumber:   1,
		DutyPeriods: periods,
	}
}

func at(t *testing.T, hour, minute int) time.Time {
	t.Helper()
	return time.Date(2025, 6, 2, hour, minute, 0, 0, time.UTC)
}

func TestRenderDayTilesFullDay(t *testing.T) {
	r := NewRenderer("", "")
	day := dayAt(t,
		hos.DutyPeriod{Status: hos.OnDutyNotDriving, Start: at(t, 8, 0), End: at(t, 9, 0), Location: "Dock A", Remarks: "Pickup - loading cargo"},
		hos.DutyPeriod{Status: hos.Driving, Start: at(t, 9, 0), End: at(t, 13, 30)},
	)

	log := r.RenderDay(day, hos.Locations{})

	if len(log.Entries) != 4 {
		t.Fatalf("got %d entries, want 4 (filler, on-duty, driving, filler): %+v", len(log.Entries), log.Entries)
	}
	if log.Entries[0].DutyStatus != "off_duty" || log.Entries[0].StartHour != 0 {
		t.Fatalf("first entry should be off-duty filler from midnight: %+v", log.Entries[0])
	}
	last := log.Entries[len(log.Entries)-1]
	if last.EndHour != 24.0 || last.EndTime != "24:00" {
		t.Fatalf("last entry should end at 24:00: %+v", last)
	}

	cursor := 0.0
	for i, e := range log.Entries {
		if e.StartHour != cursor {
			t.Fatalf("entry %d starts at %v, want %v (entries must tile)", i, e.StartHour, cursor)
		}
		cursor = e.EndHour
	}
	if cursor != 24.0 {
		t.Fatalf("entries end at %v, want 24", cursor)
	}

	if math.Abs(log.Summary.Total-24.0) > 1e-9 {
		t.Fatalf("summary total = %v, want 24", log.Summary.Total)
	}
	if log.Summary.Driving != 4.5 {
		t.Fatalf("driving summary = %v, want 4.5", log.Summary.Driving)
	}
}

func TestRenderDayEmptyIsFullOffDuty(t *testing.T) {
	r := NewRenderer("", "")
	log := r.RenderDay(dayAt(t), hos.Locations{})

	if len(log.Entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(log.Entries))
	}
	e := log.Entries[0]
	if e.DutyStatus != "off_duty" || e.StartHour != 0 || e.EndHour != 24 || e.DurationHours != 24 {
		t.Fatalf("unexpected full-day entry: %+v", e)
	}
	if log.StartingLocation != "Unknown" || log.EndingLocation != "Unknown" {
		t.Fatalf("locations = %q/%q, want Unknown/Unknown", log.StartingLocation, log.EndingLocation)
	}
}

func TestRenderDayMidnightWrap(t *testing.T) {
	r := NewRenderer("", "")
	// A sleeper period clipped at next midnight ends at 00:00 on the
	// following day and must render as 24.0 on this sheet.
	day := dayAt(t, hos.DutyPeriod{
		Status: hos.SleeperBerth,
		Start:  at(t, 20, 0),
		End:    time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC),
	})

	log := r.RenderDay(day, hos.Locations{})
	var sleeper LogEntry
	for _, e := range log.Entries {
		if e.DutyStatus == "sleeper_berth" {
			sleeper = e
		}
	}
	if sleeper.EndHour != 24.0 {
		t.Fatalf("sleeper EndHour = %v, want 24", sleeper.EndHour)
	}
	if sleeper.DurationHours != 4.0 {
		t.Fatalf("sleeper duration = %v, want 4", sleeper.DurationHours)
	}
}

func TestGridTransitions(t *testing.T) {
	r := NewRenderer("", "")
	day := dayAt(t,
		hos.DutyPeriod{Status: hos.Driving, Start: at(t, 0, 0), End: at(t, 4, 0)},
		hos.DutyPeriod{Status: hos.Driving, Start: at(t, 4, 0), End: at(t, 8, 0)},
		hos.DutyPeriod{Status: hos.OnDutyNotDriving, Start: at(t, 8, 0), End: at(t, 9, 0)},
	)

	log := r.RenderDay(day, hos.Locations{})
	grid := log.GridData

	if len(grid.Segments) != len(log.Entries) {
		t.Fatalf("segments = %d, entries = %d", len(grid.Segments), len(log.Entries))
	}
	// driving->driving draws no vertical line; driving->on_duty and
	// on_duty->off_duty filler do.
	if len(grid.Transitions) != 2 {
		t.Fatalf("got %d transitions, want 2: %+v", len(grid.Transitions), grid.Transitions)
	}
	first := grid.Transitions[0]
	if first.X != 8.0 || first.FromRow != 3 || first.ToRow != 4 {
		t.Fatalf("unexpected first transition: %+v", first)
	}

	if len(grid.Hours) != 25 || grid.Hours[0] != 0 || grid.Hours[24] != 24 {
		t.Fatalf("unexpected hours axis: %v", grid.Hours)
	}
	if len(grid.Rows) != 4 || grid.Rows[0].Short != "OFF" || grid.Rows[3].Short != "ON" {
		t.Fatalf("unexpected row metadata: %+v", grid.Rows)
	}
}

func TestRenderDayOutOfOrderPeriodsAreSorted(t *testing.T) {
	r := NewRenderer("", "")
	day := dayAt(t,
		hos.DutyPeriod{Status: hos.Driving, Start: at(t, 10, 0), End: at(t, 12, 0)},
		hos.DutyPeriod{Status: hos.OnDutyNotDriving, Start: at(t, 8, 0), End: at(t, 10, 0)},
	)

	log := r.RenderDay(day, hos.Locations{})
	prev := -1.0
	for i, e := range log.Entries {
		if e.StartHour < prev {
			t.Fatalf("entry %d out of order: %+v", i, log.Entries)
		}
		prev = e.StartHour
	}
}

func TestRenderDayDeterministic(t *testing.T) {
	r := NewRenderer("", "")
	day := dayAt(t,
		hos.DutyPeriod{Status: hos.Driving, Start: at(t, 10, 0), End: at(t, 12, 0), Remarks: "Driving 110.0 miles"},
		hos.DutyPeriod{Status: hos.OnDutyNotDriving, Start: at(t, 8, 0), End: at(t, 10, 0), Location: "Dock A", Remarks: "Pickup - loading cargo"},
		hos.DutyPeriod{Status: hos.SleeperBerth, Start: at(t, 20, 0), End: time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)},
	)

	first, err := json.Marshal(r.RenderDay(day, hos.Locations{}))
	if err != nil {
		t.Fatalf("marshal first render: %v", err)
	}
	second, err := json.Marshal(r.RenderDay(day, hos.Locations{}))
	if err != nil {
		t.Fatalf("marshal second render: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("renders of the same day differ:\n%s\n%s", first, second)
	}
	// The input summary must come back untouched.
	if day.DutyPeriods[0].Status != hos.Driving || day.DutyPeriods[1].Location != "Dock A" {
		t.Fatalf("input duty periods mutated: %+v", day.DutyPeriods)
	}
}

func TestAnchorLocationFallbacks(t *testing.T) {
	r := NewRenderer("", "")
	locs := hos.Locations{
		Current: &hos.Location{Address: "Chicago, IL"},
		Dropoff: &hos.Location{Address: "Denver, CO"},
	}
	day := dayAt(t,
		hos.DutyPeriod{Status: hos.Driving, Start: at(t, 8, 0), End: at(t, 10, 0)},
		hos.DutyPeriod{Status: hos.OnDutyNotDriving, Start: at(t, 10, 0), End: at(t, 11, 0), Location: "Warehouse 9"},
	)

	log := r.RenderDay(day, locs)
	if log.StartingLocation != "Chicago, IL" {
		t.Fatalf("StartingLocation = %q, want trip current address", log.StartingLocation)
	}
	if log.EndingLocation != "Warehouse 9" {
		t.Fatalf("EndingLocation = %q, want last period location", log.EndingLocation)
	}
}

func TestRendererDefaults(t *testing.T) {
	r := NewRenderer("", "")
	if r.CarrierName != "ELD Trip Planner Demo" || r.DriverName != "Demo Driver" {
		t.Fatalf("unexpected defaults: %q / %q", r.CarrierName, r.DriverName)
	}
	custom := NewRenderer("Acme Freight", "J. Smith")
	log := custom.RenderDay(dayAt(t), hos.Locations{})
	if log.CarrierName != "Acme Freight" || log.DriverName != "J. Smith" {
		t.Fatalf("header not stamped: %+v", log)
	}
}

func TestPrintableCollectsRemarks(t *testing.T) {
	r := NewRenderer("", "")
	day := dayAt(t,
		hos.DutyPeriod{Status: hos.OnDutyNotDriving, Start: at(t, 8, 0), End: at(t, 9, 0), Remarks: "Pickup - loading cargo"},
		hos.DutyPeriod{Status: hos.Driving, Start: at(t, 9, 0), End: at(t, 11, 0), Remarks: "Driving 110.0 miles"},
	)

	p := Printable(r.RenderDay(day, hos.Locations{}))
	if p.Header.Date != "2025-06-02" || p.Header.DayOfWeek != "Monday" {
		t.Fatalf("unexpected header: %+v", p.Header)
	}
	if len(p.Remarks) != 2 {
		t.Fatalf("got %d remarks, want 2 (fillers carry none): %v", len(p.Remarks), p.Remarks)
	}
	if len(p.Graph.Entries) != len(p.Graph.Grid.Segments) {
		t.Fatalf("graph entries and segments disagree: %d vs %d", len(p.Graph.Entries), len(p.Graph.Grid.Segments))
	}
}

func TestHourToClock(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "00:00"},
		{8.5, "08:30"},
		{13.75, "13:45"},
		{24, "00:00"},
	}
	for _, tc := range cases {
		if got := hourToClock(tc.in); got != tc.want {
			t.Fatalf("hourToClock(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
