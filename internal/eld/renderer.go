// Package eld renders HOS plans into daily driver log sheets: the 24-hour
// four-lane grid plus entry list and summary totals, structured for direct
// frontend rendering.
package eld

import (
	"fmt"
	"math"
	"sort"

	"eldtrip/internal/hos"
)

// LogEntry is one contiguous block of a single duty status on the 24-hour
// timeline of one day. Hours are decimal (8.5 means 08:30).
type LogEntry struct {
	StartTime     string  `json:"start_time"`
	EndTime       string  `json:"end_time"`
	StartHour     float64 `json:"start_hour"`
	EndHour       float64 `json:"end_hour"`
	DurationHours float64 `json:"duration_hours"`
	DutyStatus    string  `json:"duty_status"`
	StatusDisplay string  `json:"duty_status_display"`
	Location      string  `json:"location"`
	Remarks       string  `json:"remarks"`
	GridRow       int     `json:"grid_row"`
}

// SummaryHours is the per-status hour box on the right side of a log sheet.
// Total always equals 24 for a gap-filled day.
type SummaryHours struct {
	OffDuty          float64 `json:"off_duty"`
	SleeperBerth     float64 `json:"sleeper_berth"`
	Driving          float64 `json:"driving"`
	OnDutyNotDriving float64 `json:"on_duty_not_driving"`
	Total            float64 `json:"total"`
}

// GridSegment is one horizontal line of the grid plot.
type GridSegment struct {
	Row           int     `json:"row"`
	StartX        float64 `json:"start_x"`
	EndX          float64 `json:"end_x"`
	Status        string  `json:"status"`
	StatusDisplay string  `json:"status_display"`
	Duration      float64 `json:"duration"`
	StartTime     string  `json:"start_time"`
	EndTime       string  `json:"end_time"`
	Remarks       string  `json:"remarks"`
}

// GridTransition is a vertical connector drawn where consecutive entries sit
// on different grid rows.
type GridTransition struct {
	X          float64 `json:"x"`
	FromRow    int     `json:"from_row"`
	ToRow      int     `json:"to_row"`
	FromStatus string  `json:"from_status"`
	ToStatus   string  `json:"to_status"`
}

// GridRowMeta labels one of the four grid lanes.
type GridRowMeta struct {
	ID    int    `json:"id"`
	Label string `json:"label"`
	Short string `json:"short"`
}

// GridData carries everything a frontend needs to draw the grid.
type GridData struct {
	Segments    []GridSegment    `json:"segments"`
	Transitions []GridTransition `json:"transitions"`
	Hours       []int            `json:"hours"`
	Rows        []GridRowMeta    `json:"rows"`
}

// DailyLog is the complete rendered log sheet for one calendar day.
type DailyLog struct {
	Date             string       `json:"date"`
	DayNumber        int          `json:"day_number"`
	DayOfWeek        string       `json:"day_of_week"`
	Entries          []LogEntry   `json:"entries"`
	Summary          SummaryHours `json:"summary"`
	TotalMiles       float64      `json:"total_miles"`
	StartingLocation string       `json:"starting_location"`
	EndingLocation   string       `json:"ending_location"`
	CarrierName      string       `json:"carrier_name"`
	DriverName       string       `json:"driver_name"`
	GridData         GridData     `json:"grid_data"`
}

// Renderer turns plan output into daily log sheets. Carrier and driver are
// stamped into every sheet's header.
type Renderer struct {
	CarrierName string
	DriverName  string
}

// NewRenderer returns a Renderer with demo header defaults for any blank
// field.
func NewRenderer(carrier, driver string) *Renderer {
	if carrier == "" {
		carrier = "ELD Trip Planner Demo"
	}
	if driver == "" {
		driver = "Demo Driver"
	}
	return &Renderer{CarrierName: carrier, DriverName: driver}
}

// RenderPlan renders one log sheet per daily summary, in day order.
func (r *Renderer) RenderPlan(plan *hos.Plan, locations hos.Locations) []DailyLog {
	logs := make([]DailyLog, 0, len(plan.DailySummaries))
	for _, day := range plan.DailySummaries {
		logs = append(logs, r.RenderDay(day, locations))
	}
	return logs
}

// RenderDay renders a single daily summary into a log sheet. The day's
// entries are sorted, gap-filled with off-duty time, and always tile the
// full 24 hours.
func (r *Renderer) RenderDay(day hos.DailySummary, locations hos.Locations) DailyLog {
	entries := make([]LogEntry, 0, len(day.DutyPeriods)+2)
	for _, per := range day.DutyPeriods {
		entries = append(entries, newLogEntry(per))
	}
	sortEntries(entries)
	entries = fillGaps(entries)

	return DailyLog{
		Date:             day.Date.Format("2006-01-02"),
		DayNumber:        day.DayNumber,
		DayOfWeek:        day.Date.Format("Monday"),
		Entries:          entries,
		Summary:          summarize(entries),
		TotalMiles:       round1(day.MilesDriven),
		StartingLocation: anchorLocation(day.DutyPeriods, true, locations),
		EndingLocation:   anchorLocation(day.DutyPeriods, false, locations),
		CarrierName:      r.CarrierName,
		DriverName:       r.DriverName,
		GridData:         buildGrid(entries),
	}
}

func newLogEntry(per hos.DutyPeriod) LogEntry {
	startHour := float64(per.Start.Hour()) + float64(per.Start.Minute())/60
	endHour := float64(per.End.Hour()) + float64(per.End.Minute())/60
	// A period ending at or past midnight renders to the end of the sheet.
	if endHour < startHour {
		endHour = 24.0
	}
	return LogEntry{
		StartTime:     per.Start.Format("15:04"),
		EndTime:       per.End.Format("15:04"),
		StartHour:     round2(startHour),
		EndHour:       round2(endHour),
		DurationHours: round2(per.DurationHours()),
		DutyStatus:    per.Status.String(),
		StatusDisplay: per.Status.Display(),
		Location:      per.Location,
		Remarks:       per.Remarks,
		GridRow:       per.Status.GridRow(),
	}
}

func sortEntries(entries []LogEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].StartHour < entries[j].StartHour
	})
}

func offDutyFiller(startHour, endHour float64) LogEntry {
	return LogEntry{
		StartTime:     hourToClock(startHour),
		EndTime:       hourToClock(endHour),
		StartHour:     startHour,
		EndHour:       endHour,
		DurationHours: round2(endHour - startHour),
		DutyStatus:    hos.OffDuty.String(),
		StatusDisplay: hos.OffDuty.Display(),
		GridRow:       hos.OffDuty.GridRow(),
	}
}

// fillGaps pads uncovered time with off-duty entries so the returned slice
// tiles [0, 24] exactly. An empty input yields a single full-day off-duty
// entry.
func fillGaps(entries []LogEntry) []LogEntry {
	if len(entries) == 0 {
		full := offDutyFiller(0, 24)
		full.EndTime = "24:00"
		return []LogEntry{full}
	}

	filled := make([]LogEntry, 0, len(entries)*2)
	cursor := 0.0
	for _, e := range entries {
		if e.StartHour > cursor {
			filled = append(filled, offDutyFiller(cursor, e.StartHour))
		}
		filled = append(filled, e)
		cursor = e.EndHour
	}
	if cursor < 24.0 {
		tail := offDutyFiller(cursor, 24)
		tail.EndTime = "24:00"
		filled = append(filled, tail)
	}
	return filled
}

// hourToClock formats a decimal hour as HH:MM, wrapping 24 to 00.
func hourToClock(hour float64) string {
	h := int(hour)
	m := int((hour - float64(h)) * 60)
	if h >= 24 {
		h = 0
	}
	return fmt.Sprintf("%02d:%02d", h, m)
}

func summarize(entries []LogEntry) SummaryHours {
	var s SummaryHours
	for _, e := range entries {
		switch e.DutyStatus {
		case hos.OffDuty.String():
			s.OffDuty += e.DurationHours
		case hos.SleeperBerth.String():
			s.SleeperBerth += e.DurationHours
		case hos.Driving.String():
			s.Driving += e.DurationHours
		case hos.OnDutyNotDriving.String():
			s.OnDutyNotDriving += e.DurationHours
		}
		s.Total += e.DurationHours
	}
	s.OffDuty = round2(s.OffDuty)
	s.SleeperBerth = round2(s.SleeperBerth)
	s.Driving = round2(s.Driving)
	s.OnDutyNotDriving = round2(s.OnDutyNotDriving)
	s.Total = round2(s.Total)
	return s
}

func buildGrid(entries []LogEntry) GridData {
	segments := make([]GridSegment, 0, len(entries))
	for _, e := range entries {
		segments = append(segments, GridSegment{
			Row:           e.GridRow,
			StartX:        e.StartHour,
			EndX:          e.EndHour,
			Status:        e.DutyStatus,
			StatusDisplay: e.StatusDisplay,
			Duration:      e.DurationHours,
			StartTime:     e.StartTime,
			EndTime:       e.EndTime,
			Remarks:       e.Remarks,
		})
	}

	transitions := []GridTransition{}
	for i := 0; i+1 < len(entries); i++ {
		cur, next := entries[i], entries[i+1]
		if cur.GridRow == next.GridRow {
			continue
		}
		transitions = append(transitions, GridTransition{
			X:          cur.EndHour,
			FromRow:    cur.GridRow,
			ToRow:      next.GridRow,
			FromStatus: cur.DutyStatus,
			ToStatus:   next.DutyStatus,
		})
	}

	hours := make([]int, 25)
	for i := range hours {
		hours[i] = i
	}

	rows := make([]GridRowMeta, 0, 4)
	for _, s := range hos.AllStatuses() {
		rows = append(rows, GridRowMeta{ID: s.GridRow(), Label: s.Display(), Short: s.Short()})
	}

	return GridData{Segments: segments, Transitions: transitions, Hours: hours, Rows: rows}
}

// anchorLocation resolves the sheet's "from" or "to" field: the first (or
// last) period's own location, then the trip anchor address, then a generic
// placeholder.
func anchorLocation(periods []hos.DutyPeriod, first bool, locations hos.Locations) string {
	if len(periods) == 0 {
		return "Unknown"
	}
	if first {
		if loc := periods[0].Location; loc != "" {
			return loc
		}
		if locations.Current != nil && locations.Current.Address != "" {
			return locations.Current.Address
		}
		return "Starting Location"
	}
	if loc := periods[len(periods)-1].Location; loc != "" {
		return loc
	}
	if locations.Dropoff != nil && locations.Dropoff.Address != "" {
		return locations.Dropoff.Address
	}
	return "Ending Location"
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
