package hos

import (
	"encoding/json"
	"fmt"
)

// DutyStatus is the closed set of FMCSA driver duty states.
type DutyStatus int

const (
	OffDuty DutyStatus = iota
	SleeperBerth
	Driving
	OnDutyNotDriving

	statusCount // sentinel, keep last
)

// statusMeta is the single source of truth for per-status rendering and wire
// data. Adding a DutyStatus without extending this table fails to compile.
var statusMeta = [statusCount]struct {
	wire    string
	display string
	short   string
	gridRow int
}{
	OffDuty:          {"off_duty", "Off Duty", "OFF", 1},
	SleeperBerth:     {"sleeper_berth", "Sleeper Berth", "SB", 2},
	Driving:          {"driving", "Driving", "D", 3},
	OnDutyNotDriving: {"on_duty_not_driving", "On Duty (Not Driving)", "ON", 4},
}

// AllStatuses lists every duty status in grid-row order.
func AllStatuses() [statusCount]DutyStatus {
	return [statusCount]DutyStatus{OffDuty, SleeperBerth, Driving, OnDutyNotDriving}
}

func (s DutyStatus) valid() bool { return s >= 0 && s < statusCount }

// String returns the wire form, e.g. "sleeper_berth".
func (s DutyStatus) String() string {
	if !s.valid() {
		return fmt.Sprintf("duty_status(%d)", int(s))
	}
	return statusMeta[s].wire
}

// Display returns the human-readable label used on log sheets.
func (s DutyStatus) Display() string {
	if !s.valid() {
		return s.String()
	}
	return statusMeta[s].display
}

// Short returns the two-letter grid code (OFF, SB, D, ON).
func (s DutyStatus) Short() string {
	if !s.valid() {
		return s.String()
	}
	return statusMeta[s].short
}

// GridRow returns the ELD grid lane for the status (1..4).
func (s DutyStatus) GridRow() int {
	if !s.valid() {
		return 1
	}
	return statusMeta[s].gridRow
}

// ParseDutyStatus converts a wire string back into a DutyStatus.
func ParseDutyStatus(v string) (DutyStatus, error) {
	for _, s := range AllStatuses() {
		if statusMeta[s].wire == v {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown duty status %q", v)
}

func (s DutyStatus) MarshalJSON() ([]byte, error) {
	if !s.valid() {
		return nil, fmt.Errorf("cannot marshal invalid duty status %d", int(s))
	}
	return json.Marshal(statusMeta[s].wire)
}

func (s *DutyStatus) UnmarshalJSON(b []byte) error {
	var v string
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	parsed, err := ParseDutyStatus(v)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
