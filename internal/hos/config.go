package hos

import (
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v3"
)

// Config holds the numeric rule parameters for property-carrying drivers.
// A Config is fully specified and immutable once handed to a Planner; there
// is no hidden default singleton.
type Config struct {
	// Cycle limits (70-hour/8-day rule)
	CycleDays  int     `json:"cycle_days" yaml:"cycle_days"`
	CycleHours float64 `json:"cycle_hours" yaml:"cycle_hours"`

	// Daily limits
	MaxDrivingHours float64 `json:"max_driving_hours" yaml:"max_driving_hours"`
	MaxOnDutyHours  float64 `json:"max_on_duty_hours" yaml:"max_on_duty_hours"`

	// 30-minute break rule
	BreakRequiredAfterHours float64 `json:"break_required_after_hours" yaml:"break_required_after_hours"`
	BreakDurationHours      float64 `json:"break_duration_hours" yaml:"break_duration_hours"`

	// Resets
	OffDutyResetHours float64 `json:"off_duty_reset_hours" yaml:"off_duty_reset_hours"`
	RestartHours      float64 `json:"restart_hours" yaml:"restart_hours"`

	// Practical stops
	FuelIntervalMiles     float64 `json:"fuel_interval_miles" yaml:"fuel_interval_miles"`
	FuelStopDurationHours float64 `json:"fuel_stop_duration_hours" yaml:"fuel_stop_duration_hours"`

	// Loading/unloading
	PickupDurationHours  float64 `json:"pickup_duration_hours" yaml:"pickup_duration_hours"`
	DropoffDurationHours float64 `json:"dropoff_duration_hours" yaml:"dropoff_duration_hours"`

	// Planning speed assumption
	AverageSpeedMPH float64 `json:"average_speed_mph" yaml:"average_speed_mph"`
}

// DefaultConfig returns the standard 70h/8d property-carrying rule set.
func DefaultConfig() Config {
	return Config{
		CycleDays:               8,
		CycleHours:              70.0,
		MaxDrivingHours:         11.0,
		MaxOnDutyHours:          14.0,
		BreakRequiredAfterHours: 8.0,
		BreakDurationHours:      0.5,
		OffDutyResetHours:       10.0,
		RestartHours:            34.0,
		FuelIntervalMiles:       1000.0,
		FuelStopDurationHours:   0.5,
		PickupDurationHours:     1.0,
		DropoffDurationHours:    1.0,
		AverageSpeedMPH:         55.0,
	}
}

// LoadConfig overlays a YAML rule file on the defaults. Missing keys keep
// their default values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read hos config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse hos config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks that every parameter a simulation divides by or counts
// down from is positive.
func (c Config) Validate() error {
	switch {
	case c.CycleHours <= 0:
		return fmt.Errorf("cycle_hours must be > 0, got %v", c.CycleHours)
	case c.MaxDrivingHours <= 0:
		return fmt.Errorf("max_driving_hours must be > 0, got %v", c.MaxDrivingHours)
	case c.MaxOnDutyHours <= 0:
		return fmt.Errorf("max_on_duty_hours must be > 0, got %v", c.MaxOnDutyHours)
	case c.BreakRequiredAfterHours <= 0:
		return fmt.Errorf("break_required_after_hours must be > 0, got %v", c.BreakRequiredAfterHours)
	case c.OffDutyResetHours <= 0:
		return fmt.Errorf("off_duty_reset_hours must be > 0, got %v", c.OffDutyResetHours)
	case c.RestartHours <= 0:
		return fmt.Errorf("restart_hours must be > 0, got %v", c.RestartHours)
	case c.FuelIntervalMiles <= 0:
		return fmt.Errorf("fuel_interval_miles must be > 0, got %v", c.FuelIntervalMiles)
	case c.AverageSpeedMPH <= 0:
		return fmt.Errorf("average_speed_mph must be > 0, got %v", c.AverageSpeedMPH)
	}
	return nil
}
