package hos

import "fmt"

// ValidationResult reports whether a set of daily summaries respects the
// baseline daily limits.
type ValidationResult struct {
	Compliant  bool     `json:"compliant"`
	Violations []string `json:"violations"`
}

// ValidatePlan checks each day's totals against the unmodified daily limits.
// Exception toggles are intentionally ignored here: the check is a fixed
// baseline audit, so a plan built under adverse conditions can legitimately
// report violations.
func ValidatePlan(cfg Config, summaries []DailySummary) ValidationResult {
	res := ValidationResult{Compliant: true, Violations: []string{}}
	for _, day := range summaries {
		if day.DrivingHours > cfg.MaxDrivingHours {
			res.Violations = append(res.Violations, fmt.Sprintf(
				"Day %d: Driving hours (%.1f) exceed %gh limit",
				day.DayNumber, day.DrivingHours, cfg.MaxDrivingHours))
		}
		if day.DrivingHours+day.OnDutyHours > cfg.MaxOnDutyHours {
			res.Violations = append(res.Violations, fmt.Sprintf(
				"Day %d: On-duty hours (%.1f) exceed %gh limit",
				day.DayNumber, day.DrivingHours+day.OnDutyHours, cfg.MaxOnDutyHours))
		}
	}
	res.Compliant = len(res.Violations) == 0
	return res
}
