package hos

import (
	"errors"
	"fmt"
	"math"
	"time"

	"eldtrip/internal/route"
)

// ErrScheduleStuck reports a simulation that can no longer make forward
// progress: either a drive segment came out non-positive with no rule check
// firing, or the iteration bound tripped (a rule keeps re-firing without the
// odometer advancing, which happens when the split-sleeper exemption pins the
// driving-hours counter at its cap).
var ErrScheduleStuck = errors.New("hos: schedule cannot make forward progress")

// maxIterations bounds the simulation loop. The loop is finite for every
// well-formed input (each iteration either inserts a stop or drives miles),
// so hitting the bound always indicates an inconsistent rule/exception
// combination and is reported as ErrScheduleStuck.
const maxIterations = 20000

// Planner computes HOS-compliant trip schedules from a fixed rule Config.
// Planner is stateless across calls; each PlanTrip run owns its loop-local
// counters, so a single Planner may be used from many goroutines.
type Planner struct {
	Config   Config
	Observer Observer
}

// NewPlanner returns a Planner over the given rule configuration.
func NewPlanner(cfg Config) *Planner {
	return &Planner{Config: cfg}
}

func (p *Planner) observe(name string, fields map[string]any) {
	if p.Observer != nil {
		p.Observer.Event(name, fields)
	}
}

// limits are the per-run constraint constants after exception toggles have
// been applied. They never change during a run.
type limits struct {
	maxDriving float64 // 11h cap, +2 under adverse conditions
	maxWindow  float64 // 14h window, +2 under adverse conditions
	breakAfter float64 // 8h break threshold, +Inf under short-haul
}

func applyExceptions(cfg Config, in TripInput) limits {
	l := limits{
		maxDriving: cfg.MaxDrivingHours,
		maxWindow:  cfg.MaxOnDutyHours,
		breakAfter: cfg.BreakRequiredAfterHours,
	}
	if in.AdverseConditions {
		l.maxDriving += 2.0
		l.maxWindow += 2.0
	}
	if in.ShortHaul {
		l.breakAfter = math.Inf(1)
	}
	return l
}

// simState is the mutable loop state of one simulation run. Each rule is a
// discrete step method so the fixed priority order stays visible in the loop
// and every rule can be unit-tested in isolation.
type simState struct {
	cfg Config
	lim limits
	in  TripInput

	now   time.Time
	miles float64

	drivingSinceBreak float64 // hours driven since the last 30-minute break
	drivingInEpisode  float64 // hours driven since the last full daily reset
	windowStart       time.Time
	cycleUsed         float64
	milesSinceFuel    float64
	passedPickup      bool
	dayNumber         int

	stops   []PlannedStop
	periods []DutyPeriod
}

func newSimState(cfg Config, lim limits, in TripInput) *simState {
	return &simState{
		cfg:         cfg,
		lim:         lim,
		in:          in,
		now:         in.Departure,
		windowStart: in.Departure,
		cycleUsed:   in.CurrentCycleUsedHours,
		dayNumber:   1,
	}
}

func (st *simState) hoursInWindow() float64 { return st.now.Sub(st.windowStart).Hours() }

func (st *simState) locate(miles float64) route.Coordinate {
	return route.LocateAt(st.in.RouteCoordinates, miles, st.in.TotalDistanceMiles)
}

func addHours(t time.Time, h float64) time.Time {
	return t.Add(time.Duration(h * float64(time.Hour)))
}

// PlanTrip runs the forward time/mileage simulation and returns the complete
// schedule. It fails fast on out-of-range inputs and returns
// ErrScheduleStuck if the loop cannot make progress.
func (p *Planner) PlanTrip(in TripInput) (*Plan, error) {
	cfg := p.Config
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rule config: %w", err)
	}
	if err := validateInput(cfg, in); err != nil {
		return nil, err
	}
	if in.Departure.IsZero() {
		in.Departure = time.Now().Truncate(time.Minute)
	}

	lim := applyExceptions(cfg, in)
	st := newSimState(cfg, lim, in)

	p.observe("plan.start", map[string]any{
		"distance_miles": in.TotalDistanceMiles,
		"pickup_miles":   in.PickupMilesFromStart,
		"cycle_used":     in.CurrentCycleUsedHours,
	})

	for iter := 0; st.miles < in.TotalDistanceMiles; iter++ {
		if iter >= maxIterations {
			return nil, fmt.Errorf("%w: no mileage progress after %d iterations at mile %.1f", ErrScheduleStuck, iter, st.miles)
		}
		if st.applyBreakCheck() {
			p.observe("stop.break", map[string]any{"mile": st.miles})
			continue
		}
		if st.applyDrivingLimitCheck() {
			p.observe("stop.rest", map[string]any{"mile": st.miles, "trigger": "driving_limit"})
			continue
		}
		if st.applyWindowCheck() {
			p.observe("stop.rest", map[string]any{"mile": st.miles, "trigger": "duty_window"})
			continue
		}
		if st.applyCycleCheck() {
			p.observe("stop.restart", map[string]any{"mile": st.miles})
			continue
		}
		if st.applyFuelCheck() {
			p.observe("stop.fuel", map[string]any{"mile": st.miles})
			continue
		}
		if st.applyPickupCheck() {
			p.observe("stop.pickup", map[string]any{"mile": st.miles})
			continue
		}
		if err := st.applyDriveSegment(); err != nil {
			return nil, err
		}
	}

	st.applyDropoff()

	summaries := buildDailySummaries(cfg, st.periods, in.Departure, st.dayNumber)

	totalDriving := 0.0
	totalOnDuty := 0.0
	for _, per := range st.periods {
		switch per.Status {
		case Driving:
			totalDriving += per.DurationHours()
			totalOnDuty += per.DurationHours()
		case OnDutyNotDriving:
			totalOnDuty += per.DurationHours()
		case OffDuty, SleeperBerth:
			// rest time does not count toward on-duty totals
		}
	}

	plan := &Plan{
		Stops:               st.stops,
		DailySummaries:      summaries,
		TotalDrivingHours:   totalDriving,
		TotalOnDutyHours:    totalOnDuty,
		TotalTripDays:       st.dayNumber,
		Departure:           in.Departure,
		Arrival:             st.now,
		CycleHoursRemaining: cfg.CycleHours - st.cycleUsed,
	}
	p.observe("plan.done", map[string]any{
		"stops":       len(plan.Stops),
		"days":        plan.TotalTripDays,
		"driving_hrs": plan.TotalDrivingHours,
	})
	return plan, nil
}

func validateInput(cfg Config, in TripInput) error {
	if in.TotalDistanceMiles < 0 {
		return fmt.Errorf("total_distance_miles must be >= 0, got %v", in.TotalDistanceMiles)
	}
	if in.PickupMilesFromStart < 0 || in.PickupMilesFromStart > in.TotalDistanceMiles {
		return fmt.Errorf("pickup_miles_from_start must be within [0, %v], got %v", in.TotalDistanceMiles, in.PickupMilesFromStart)
	}
	if in.CurrentCycleUsedHours < 0 || in.CurrentCycleUsedHours > cfg.CycleHours {
		return fmt.Errorf("current_cycle_used_hours must be within [0, %v], got %v", cfg.CycleHours, in.CurrentCycleUsedHours)
	}
	return nil
}

// applyBreakCheck inserts the mandatory 30-minute break once cumulative
// driving since the last break reaches the threshold.
func (st *simState) applyBreakCheck() bool {
	if st.drivingSinceBreak < st.lim.breakAfter {
		return false
	}
	coord := st.locate(st.miles)
	stop := PlannedStop{
		Kind:           StopBreak,
		Location:       fmt.Sprintf("Rest Area at mile %.0f", st.miles),
		Latitude:       coord.Latitude,
		Longitude:      coord.Longitude,
		Arrival:        st.now,
		Departure:      addHours(st.now, st.cfg.BreakDurationHours),
		DurationHours:  st.cfg.BreakDurationHours,
		MilesFromStart: st.miles,
		DayNumber:      st.dayNumber,
		Remarks:        "30-minute break required after 8 hours driving",
	}
	st.stops = append(st.stops, stop)
	st.periods = append(st.periods, DutyPeriod{
		Status:   OffDuty,
		Start:    stop.Arrival,
		End:      stop.Departure,
		Location: stop.Location,
		Remarks:  "30-minute break (8-hour driving rule)",
	})
	st.now = stop.Departure
	st.drivingSinceBreak = 0
	return true
}

// applyDrivingLimitCheck handles the 11-hour driving cap: either a full
// 10-hour rest or, under the split-sleeper exemption, a 7h+3h pair.
func (st *simState) applyDrivingLimitCheck() bool {
	if st.drivingInEpisode < st.lim.maxDriving {
		return false
	}
	if st.in.SplitSleeper {
		st.insertSplitSleeperPair()
		return true
	}
	st.insertRestStop("10-hour rest (11-hour driving limit)")
	return true
}

// applyWindowCheck handles the 14-hour on-duty window with the same two
// alternatives as the driving cap.
func (st *simState) applyWindowCheck() bool {
	if st.hoursInWindow() < st.lim.maxWindow {
		return false
	}
	if st.in.SplitSleeper {
		st.insertSplitSleeperPair()
		return true
	}
	st.insertRestStop("10-hour rest (14-hour window limit)")
	return true
}

// insertRestStop adds a full off-duty reset: sleeper-berth period, daily
// counters cleared, 14-hour window restarted, next calendar day begun.
func (st *simState) insertRestStop(remark string) {
	coord := st.locate(st.miles)
	stop := PlannedStop{
		Kind:           StopRest,
		Location:       fmt.Sprintf("Truck Stop at mile %.0f", st.miles),
		Latitude:       coord.Latitude,
		Longitude:      coord.Longitude,
		Arrival:        st.now,
		Departure:      addHours(st.now, st.cfg.OffDutyResetHours),
		DurationHours:  st.cfg.OffDutyResetHours,
		MilesFromStart: st.miles,
		DayNumber:      st.dayNumber,
		Remarks:        "10-hour off-duty rest period",
	}
	st.stops = append(st.stops, stop)
	st.periods = append(st.periods, DutyPeriod{
		Status:   SleeperBerth,
		Start:    stop.Arrival,
		End:      stop.Departure,
		Location: stop.Location,
		Remarks:  remark,
	})
	st.now = stop.Departure
	st.dayNumber++
	st.drivingInEpisode = 0
	st.drivingSinceBreak = 0
	st.windowStart = st.now
}

// insertSplitSleeperPair adds the 7h sleeper-berth + 3h off-duty pair. The
// pair is excluded from the 14-hour window, so the window start advances by
// its total duration. The episode driving counter and the day counter are
// deliberately left untouched; see DESIGN.md on split-sleeper semantics.
func (st *simState) insertSplitSleeperPair() {
	coord := st.locate(st.miles)
	sleeper := PlannedStop{
		Kind:           StopRest,
		Location:       fmt.Sprintf("Sleeper berth (split) at mile %.0f", st.miles),
		Latitude:       coord.Latitude,
		Longitude:      coord.Longitude,
		Arrival:        st.now,
		Departure:      addHours(st.now, 7.0),
		DurationHours:  7.0,
		MilesFromStart: st.miles,
		DayNumber:      st.dayNumber,
		Remarks:        "Sleeper berth split period (7h)",
	}
	offDuty := PlannedStop{
		Kind:           StopBreak,
		Location:       fmt.Sprintf("Off duty (split) at mile %.0f", st.miles),
		Latitude:       coord.Latitude,
		Longitude:      coord.Longitude,
		Arrival:        sleeper.Departure,
		Departure:      addHours(sleeper.Departure, 3.0),
		DurationHours:  3.0,
		MilesFromStart: st.miles,
		DayNumber:      st.dayNumber,
		Remarks:        "Off-duty split period (3h)",
	}
	st.stops = append(st.stops, sleeper, offDuty)
	st.periods = append(st.periods,
		DutyPeriod{Status: SleeperBerth, Start: sleeper.Arrival, End: sleeper.Departure, Location: sleeper.Location, Remarks: "Sleeper berth (split pair)"},
		DutyPeriod{Status: OffDuty, Start: offDuty.Arrival, End: offDuty.Departure, Location: offDuty.Location, Remarks: "Off duty (split pair)"},
	)
	st.now = offDuty.Departure
	st.drivingSinceBreak = 0
	st.windowStart = addHours(st.windowStart, sleeper.DurationHours+offDuty.DurationHours)
}

// applyCycleCheck inserts a 34-hour restart when the rolling cycle cap is
// reached, resetting cycle hours to zero.
func (st *simState) applyCycleCheck() bool {
	if st.cycleUsed < st.cfg.CycleHours {
		return false
	}
	coord := st.locate(st.miles)
	stop := PlannedStop{
		Kind:           StopRest,
		Location:       fmt.Sprintf("34-hour restart at mile %.0f", st.miles),
		Latitude:       coord.Latitude,
		Longitude:      coord.Longitude,
		Arrival:        st.now,
		Departure:      addHours(st.now, st.cfg.RestartHours),
		DurationHours:  st.cfg.RestartHours,
		MilesFromStart: st.miles,
		DayNumber:      st.dayNumber,
		Remarks:        "34-hour restart per 49 CFR 395.3(c)",
	}
	st.stops = append(st.stops, stop)
	st.periods = append(st.periods, DutyPeriod{
		Status:   OffDuty,
		Start:    stop.Arrival,
		End:      stop.Departure,
		Location: fmt.Sprintf("Restart at mile %.0f", st.miles),
		Remarks:  "34-hour restart",
	})
	st.now = stop.Departure
	st.dayNumber += int(st.cfg.RestartHours / 24)
	st.drivingInEpisode = 0
	st.drivingSinceBreak = 0
	st.windowStart = st.now
	st.cycleUsed = 0
	return true
}

// applyFuelCheck inserts an on-duty fuel stop every FuelIntervalMiles.
func (st *simState) applyFuelCheck() bool {
	if st.milesSinceFuel < st.cfg.FuelIntervalMiles {
		return false
	}
	coord := st.locate(st.miles)
	stop := PlannedStop{
		Kind:           StopFuel,
		Location:       fmt.Sprintf("Fuel Station at mile %.0f", st.miles),
		Latitude:       coord.Latitude,
		Longitude:      coord.Longitude,
		Arrival:        st.now,
		Departure:      addHours(st.now, st.cfg.FuelStopDurationHours),
		DurationHours:  st.cfg.FuelStopDurationHours,
		MilesFromStart: st.miles,
		DayNumber:      st.dayNumber,
		Remarks:        "Fuel stop",
	}
	st.stops = append(st.stops, stop)
	st.periods = append(st.periods, DutyPeriod{
		Status:   OnDutyNotDriving,
		Start:    stop.Arrival,
		End:      stop.Departure,
		Location: stop.Location,
		Remarks:  "Fuel stop",
	})
	st.now = stop.Departure
	st.milesSinceFuel = 0
	return true
}

// applyPickupCheck records the loading stop the first time the odometer
// reaches the pickup mile marker.
func (st *simState) applyPickupCheck() bool {
	if st.passedPickup || st.miles < st.in.PickupMilesFromStart {
		return false
	}
	name, lat, lng := "Pickup Location", 0.0, 0.0
	if loc := st.in.Locations.Pickup; loc != nil {
		if loc.Address != "" {
			name = loc.Address
		}
		lat, lng = loc.Latitude, loc.Longitude
	}
	stop := PlannedStop{
		Kind:           StopPickup,
		Location:       name,
		Latitude:       lat,
		Longitude:      lng,
		Arrival:        st.now,
		Departure:      addHours(st.now, st.cfg.PickupDurationHours),
		DurationHours:  st.cfg.PickupDurationHours,
		MilesFromStart: st.in.PickupMilesFromStart,
		DayNumber:      st.dayNumber,
		Remarks:        "Loading cargo at pickup location",
	}
	st.stops = append(st.stops, stop)
	st.periods = append(st.periods, DutyPeriod{
		Status:   OnDutyNotDriving,
		Start:    stop.Arrival,
		End:      stop.Departure,
		Location: stop.Location,
		Remarks:  "Pickup - loading cargo",
	})
	st.now = stop.Departure
	st.passedPickup = true
	return true
}

// applyDriveSegment drives as far as the tightest remaining time budget
// allows, clipped so the segment never crosses the pickup point, the fuel
// interval, or the destination. Reaching this step with no drivable distance
// means no rule fired either, which is a scheduling inconsistency.
func (st *simState) applyDriveSegment() error {
	budget := math.Min(st.lim.maxDriving-st.drivingInEpisode,
		math.Min(st.lim.breakAfter-st.drivingSinceBreak, st.lim.maxWindow-st.hoursInWindow()))

	miles := budget * st.cfg.AverageSpeedMPH
	if !st.passedPickup && st.miles+miles >= st.in.PickupMilesFromStart {
		miles = st.in.PickupMilesFromStart - st.miles
	}
	if st.miles+miles >= st.in.TotalDistanceMiles {
		miles = st.in.TotalDistanceMiles - st.miles
	}
	if st.milesSinceFuel+miles >= st.cfg.FuelIntervalMiles {
		miles = st.cfg.FuelIntervalMiles - st.milesSinceFuel
	}
	if miles <= 0 {
		return fmt.Errorf("%w: computed %.2f drivable miles at mile %.1f with no rule firing", ErrScheduleStuck, miles, st.miles)
	}

	hours := miles / st.cfg.AverageSpeedMPH
	end := addHours(st.now, hours)
	st.periods = append(st.periods, DutyPeriod{
		Status:  Driving,
		Start:   st.now,
		End:     end,
		Remarks: fmt.Sprintf("Driving %.1f miles", miles),
	})
	st.now = end
	st.miles += miles
	st.milesSinceFuel += miles
	st.drivingInEpisode += hours
	st.drivingSinceBreak += hours
	st.cycleUsed += hours
	return nil
}

// applyDropoff appends the unconditional unloading stop at the destination.
func (st *simState) applyDropoff() {
	name, lat, lng := "Dropoff Location", 0.0, 0.0
	if loc := st.in.Locations.Dropoff; loc != nil {
		if loc.Address != "" {
			name = loc.Address
		}
		lat, lng = loc.Latitude, loc.Longitude
	}
	stop := PlannedStop{
		Kind:           StopDropoff,
		Location:       name,
		Latitude:       lat,
		Longitude:      lng,
		Arrival:        st.now,
		Departure:      addHours(st.now, st.cfg.DropoffDurationHours),
		DurationHours:  st.cfg.DropoffDurationHours,
		MilesFromStart: st.in.TotalDistanceMiles,
		DayNumber:      st.dayNumber,
		Remarks:        "Unloading cargo at destination",
	}
	st.stops = append(st.stops, stop)
	st.periods = append(st.periods, DutyPeriod{
		Status:   OnDutyNotDriving,
		Start:    stop.Arrival,
		End:      stop.Departure,
		Location: stop.Location,
		Remarks:  "Dropoff - unloading cargo",
	})
	st.now = stop.Departure
}
