package hos

import (
	"time"

	"eldtrip/internal/route"
)

// StopKind classifies a planned stop.
type StopKind string

const (
	StopRest    StopKind = "rest"
	StopBreak   StopKind = "break"
	StopFuel    StopKind = "fuel"
	StopPickup  StopKind = "pickup"
	StopDropoff StopKind = "dropoff"
)

// Location is a resolved place: an address plus coordinates.
type Location struct {
	Address   string  `json:"address"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Locations carries the three trip anchor points. Nil entries fall back to
// generic placeholders when stops and log sheets are rendered.
type Locations struct {
	Current *Location `json:"current,omitempty"`
	Pickup  *Location `json:"pickup,omitempty"`
	Dropoff *Location `json:"dropoff,omitempty"`
}

// DutyPeriod is a maximal contiguous interval of one duty status. Engine
// output periods are contiguous: each period starts where the previous ended.
type DutyPeriod struct {
	Status   DutyStatus `json:"status"`
	Start    time.Time  `json:"start_time"`
	End      time.Time  `json:"end_time"`
	Location string     `json:"location,omitempty"`
	Remarks  string     `json:"remarks,omitempty"`
}

// DurationHours returns the period length in decimal hours.
func (p DutyPeriod) DurationHours() float64 {
	return p.End.Sub(p.Start).Hours()
}

// PlannedStop is a concrete stop event on the schedule, in non-decreasing
// mile-marker and timestamp order.
type PlannedStop struct {
	Kind           StopKind  `json:"stop_type"`
	Location       string    `json:"location"`
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	Arrival        time.Time `json:"arrival_time"`
	Departure      time.Time `json:"departure_time"`
	DurationHours  float64   `json:"duration_hours"`
	MilesFromStart float64   `json:"miles_from_start"`
	DayNumber      int       `json:"day_number"`
	Remarks        string    `json:"remarks,omitempty"`
}

// DailySummary aggregates one calendar day (local midnight to midnight).
// The four status-hour fields always sum to 24: any shortfall is booked as
// off-duty time.
type DailySummary struct {
	Date              time.Time    `json:"date"`
	DayNumber         int          `json:"day_number"`
	DrivingHours      float64      `json:"driving_hours"`
	OnDutyHours       float64      `json:"on_duty_hours"`
	OffDutyHours      float64      `json:"off_duty_hours"`
	SleeperBerthHours float64      `json:"sleeper_berth_hours"`
	MilesDriven       float64      `json:"miles_driven"`
	DutyPeriods       []DutyPeriod `json:"duty_periods"`
}

// TotalHours sums the four status buckets.
func (s DailySummary) TotalHours() float64 {
	return s.DrivingHours + s.OnDutyHours + s.OffDutyHours + s.SleeperBerthHours
}

// TripInput is the fully resolved input of one simulation run. All routing
// and geocoding has already happened upstream.
type TripInput struct {
	TotalDistanceMiles    float64
	PickupMilesFromStart  float64
	CurrentCycleUsedHours float64
	Departure             time.Time
	Locations             Locations
	RouteCoordinates      []route.Coordinate

	// Exception toggles
	AdverseConditions bool
	ShortHaul         bool
	SplitSleeper      bool
}

// Plan is the complete result of one simulation run. It is immutable once
// returned and shares no state with other runs.
type Plan struct {
	Stops               []PlannedStop  `json:"planned_stops"`
	DailySummaries      []DailySummary `json:"daily_summaries"`
	TotalDrivingHours   float64        `json:"total_driving_hours"`
	TotalOnDutyHours    float64        `json:"total_on_duty_hours"`
	TotalTripDays       int            `json:"total_trip_days"`
	Departure           time.Time      `json:"departure_time"`
	Arrival             time.Time      `json:"arrival_time"`
	CycleHoursRemaining float64        `json:"cycle_hours_remaining"`
}

// CountStops returns the number of planned stops of the given kind.
func (p *Plan) CountStops(kind StopKind) int {
	n := 0
	for _, s := range p.Stops {
		if s.Kind == kind {
			n++
		}
	}
	return n
}
