package hos

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigOverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hos.yaml")
	data := "max_driving_hours: 10\nfuel_interval_miles: 800\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.MaxDrivingHours != 10 {
		t.Fatalf("MaxDrivingHours = %v, want 10", cfg.MaxDrivingHours)
	}
	if cfg.FuelIntervalMiles != 800 {
		t.Fatalf("FuelIntervalMiles = %v, want 800", cfg.FuelIntervalMiles)
	}
	// Keys absent from the file keep their defaults.
	if cfg.CycleHours != 70 {
		t.Fatalf("CycleHours = %v, want 70", cfg.CycleHours)
	}
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hos.yaml")
	if err := os.WriteFile(path, []byte("average_speed_mph: 0\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected validation error for zero speed")
	}
}

func TestParseDutyStatusRoundTrip(t *testing.T) {
	for _, s := range AllStatuses() {
		parsed, err := ParseDutyStatus(s.String())
		if err != nil {
			t.Fatalf("ParseDutyStatus(%q): %v", s.String(), err)
		}
		if parsed != s {
			t.Fatalf("round trip %v -> %v", s, parsed)
		}
	}
	if _, err := ParseDutyStatus("napping"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}
