package hos

import (
	"strings"
	"testing"
)

func TestValidatePlanCompliant(t *testing.T) {
	cfg := DefaultConfig()
	res := ValidatePlan(cfg, []DailySummary{
		{DayNumber: 1, DrivingHours: 10.5, OnDutyHours: 2.0, OffDutyHours: 11.5},
	})
	if !res.Compliant {
		t.Fatalf("expected compliant, got violations %v", res.Violations)
	}
	if res.Violations == nil {
		t.Fatal("Violations should be an empty slice, not nil")
	}
}

func TestValidatePlanDrivingViolation(t *testing.T) {
	cfg := DefaultConfig()
	res := ValidatePlan(cfg, []DailySummary{
		{DayNumber: 2, DrivingHours: 12.0, OnDutyHours: 1.0},
	})
	if res.Compliant {
		t.Fatal("expected non-compliant result")
	}
	if len(res.Violations) != 1 {
		t.Fatalf("got %d violations, want 1: %v", len(res.Violations), res.Violations)
	}
	if !strings.Contains(res.Violations[0], "Day 2") || !strings.Contains(res.Violations[0], "Driving hours") {
		t.Fatalf("unexpected violation text: %q", res.Violations[0])
	}
}

func TestValidatePlanWindowViolation(t *testing.T) {
	cfg := DefaultConfig()
	res := ValidatePlan(cfg, []DailySummary{
		{DayNumber: 1, DrivingHours: 10.0, OnDutyHours: 5.0},
	})
	if res.Compliant {
		t.Fatal("expected non-compliant result")
	}
	if len(res.Violations) != 1 {
		t.Fatalf("got %d violations, want 1: %v", len(res.Violations), res.Violations)
	}
	if !strings.Contains(res.Violations[0], "On-duty hours") {
		t.Fatalf("unexpected violation text: %q", res.Violations[0])
	}
}

func TestValidatePlanIgnoresExceptions(t *testing.T) {
	// The audit uses the fixed baseline: a plan built under adverse
	// conditions may legally drive 13h yet still reports a violation here.
	cfg := DefaultConfig()
	res := ValidatePlan(cfg, []DailySummary{
		{DayNumber: 1, DrivingHours: 13.0},
	})
	if res.Compliant {
		t.Fatal("13 driving hours should violate the 11h baseline")
	}
}
