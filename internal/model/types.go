package model

import (
	"time"

	"eldtrip/internal/eld"
	"eldtrip/internal/hos"
	"eldtrip/internal/route"
)

// Wire types for the trip-planning API.

// TripRequest is the body of POST /v1/trips. Route distances and
// coordinates are supplied by the caller; this service does no geocoding.
type TripRequest struct {
	CurrentLocation string `json:"current_location"`
	PickupLocation  string `json:"pickup_location"`
	DropoffLocation string `json:"dropoff_location"`

	Locations        hos.Locations      `json:"locations,omitempty"`
	RouteCoordinates []route.Coordinate `json:"route_coordinates,omitempty"`

	TotalDistanceMiles    float64    `json:"total_distance_miles"`
	PickupMilesFromStart  float64    `json:"pickup_miles_from_start"`
	CurrentCycleUsedHours float64    `json:"current_cycle_used_hours"`
	DepartureTime         *time.Time `json:"departure_time,omitempty"`

	UseAdverseDrivingConditions bool `json:"use_adverse_driving_conditions,omitempty"`
	UseShortHaulCDL             bool `json:"use_short_haul_cdl,omitempty"`
	UseSplitSleeper             bool `json:"use_split_sleeper,omitempty"`
}

// PlanResponse is the full planning result returned on trip creation.
type PlanResponse struct {
	ID                     string               `json:"id"`
	TripID                 string               `json:"trip_id"`
	TotalDistanceMiles     float64              `json:"total_distance_miles"`
	TotalTripDurationHours float64              `json:"total_trip_duration_hours"`
	EstimatedDays          int                  `json:"estimated_days"`
	RouteCoordinates       []route.Coordinate   `json:"route_coordinates,omitempty"`
	PlannedStops           []hos.PlannedStop    `json:"planned_stops"`
	DailyLogs              []eld.DailyLog       `json:"daily_logs"`
	TotalDrivingHours      float64              `json:"total_driving_hours"`
	TotalOnDutyHours       float64              `json:"total_on_duty_hours"`
	TotalRestStops         int                  `json:"total_rest_stops"`
	TotalFuelStops         int                  `json:"total_fuel_stops"`
	DepartureTime          time.Time            `json:"departure_time"`
	EstimatedArrivalTime   time.Time            `json:"estimated_arrival_time"`
	CycleHoursRemaining    float64              `json:"cycle_hours_remaining"`
	Compliance             hos.ValidationResult `json:"compliance"`
	CreatedAt              time.Time            `json:"created_at"`
}

// PreviewRequest is the body of POST /v1/plan/preview. Field names follow
// the legacy generate endpoint; zero values fall back to demo defaults.
type PreviewRequest struct {
	TripID               string   `json:"tripId,omitempty"`
	TotalDistanceMiles   *float64 `json:"totalDistanceMiles,omitempty"`
	PickupMilesFromStart *float64 `json:"pickupMilesFromStart,omitempty"`
	CurrentCycleUsed     *float64 `json:"currentCycleUsed,omitempty"`
}

// PreviewSummary is the condensed totals block of a preview response.
type PreviewSummary struct {
	TotalDays           int     `json:"totalDays"`
	TotalDrivingHours   float64 `json:"totalDrivingHours"`
	TotalOnDutyHours    float64 `json:"totalOnDutyHours"`
	CycleHoursRemaining float64 `json:"cycleHoursRemaining"`
}

type PreviewResponse struct {
	Logs    []eld.DailyLog `json:"logs"`
	Summary PreviewSummary `json:"summary"`
}

// Trip is the persisted trip record with its planning artifacts.
type Trip struct {
	ID                     string               `json:"id"`
	TenantID               string               `json:"tenant_id"`
	CurrentLocation        string               `json:"current_location"`
	PickupLocation         string               `json:"pickup_location"`
	DropoffLocation        string               `json:"dropoff_location"`
	Locations              hos.Locations        `json:"locations"`
	CurrentCycleUsedHours  float64              `json:"current_cycle_used_hours"`
	TotalDistanceMiles     float64              `json:"total_distance_miles"`
	TotalTripDurationHours float64              `json:"total_trip_duration_hours"`
	EstimatedDays          int                  `json:"estimated_days"`
	Stops                  []hos.PlannedStop    `json:"stops,omitempty"`
	DailySummaries         []hos.DailySummary   `json:"daily_summaries,omitempty"`
	DailyLogs              []eld.DailyLog       `json:"daily_logs,omitempty"`
	Compliance             hos.ValidationResult `json:"compliance"`
	CreatedAt              time.Time            `json:"created_at"`
	UpdatedAt              time.Time            `json:"updated_at"`
}

// TripOut is the list-view projection of a Trip.
type TripOut struct {
	ID                 string    `json:"id"`
	CurrentLocation    string    `json:"current_location"`
	PickupLocation     string    `json:"pickup_location"`
	DropoffLocation    string    `json:"dropoff_location"`
	TotalDistanceMiles float64   `json:"total_distance_miles"`
	EstimatedDays      int       `json:"estimated_days"`
	CreatedAt          time.Time `json:"created_at"`
}

// CycleDay is one day of the rolling-cycle breakdown.
type CycleDay struct {
	Date         string  `json:"date"`
	DrivingHours float64 `json:"driving_hours"`
	OnDutyHours  float64 `json:"on_duty_hours"`
	TotalHours   float64 `json:"total_hours"`
}

// CycleStatus reports the rolling 70-hour/8-day position.
type CycleStatus struct {
	CycleType        string     `json:"cycle_type"`
	CycleLimit       float64    `json:"cycle_limit"`
	HoursUsed        float64    `json:"hours_used"`
	HoursRemaining   float64    `json:"hours_remaining"`
	PercentageUsed   float64    `json:"percentage_used"`
	Last8Days        []CycleDay `json:"last_8_days"`
	NeedsRestart     bool       `json:"needs_restart"`
	RestartAvailable bool       `json:"restart_available"`
}

// SubscriptionRequest registers a webhook endpoint for trip events.
type SubscriptionRequest struct {
	TenantID string   `json:"tenantId"`
	URL      string   `json:"url"`
	Events   []string `json:"events"`
	Secret   string   `json:"secret"`
}

type Subscription struct {
	ID       string   `json:"id"`
	TenantID string   `json:"tenantId"`
	URL      string   `json:"url"`
	Events   []string `json:"events"`
	Secret   string   `json:"secret,omitempty"`
}

// TripEvent is the payload published to SSE, WebSocket, and webhook
// subscribers when a trip changes.
type TripEvent struct {
	Type    string         `json:"type"`
	TripID  string         `json:"tripId"`
	TS      string         `json:"ts"`
	Payload map[string]any `json:"payload,omitempty"`
}
