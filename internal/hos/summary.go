package hos

import "time"

// buildDailySummaries aggregates engine duty periods into per-calendar-day
// totals. Days run midnight to midnight in the departure's location. Every
// day between departure and totalDays gets a summary even if no period
// touches it; hours not covered by any period are booked as off-duty so each
// day totals 24 hours.
func buildDailySummaries(cfg Config, periods []DutyPeriod, departure time.Time, totalDays int) []DailySummary {
	if totalDays < 1 {
		totalDays = 1
	}
	startOfDay := time.Date(departure.Year(), departure.Month(), departure.Day(), 0, 0, 0, 0, departure.Location())

	summaries := make([]DailySummary, 0, totalDays)
	for day := 1; day <= totalDays; day++ {
		dayStart := startOfDay.AddDate(0, 0, day-1)
		dayEnd := dayStart.AddDate(0, 0, 1)

		sum := DailySummary{Date: dayStart, DayNumber: day}
		for _, per := range periods {
			start, end := per.Start, per.End
			if start.Before(dayStart) {
				start = dayStart
			}
			if end.After(dayEnd) {
				end = dayEnd
			}
			if !end.After(start) {
				continue
			}
			hours := end.Sub(start).Hours()
			clipped := per
			clipped.Start, clipped.End = start, end
			sum.DutyPeriods = append(sum.DutyPeriods, clipped)

			switch per.Status {
			case Driving:
				sum.DrivingHours += hours
				sum.MilesDriven += hours * cfg.AverageSpeedMPH
			case OnDutyNotDriving:
				sum.OnDutyHours += hours
			case SleeperBerth:
				sum.SleeperBerthHours += hours
			case OffDuty:
				sum.OffDutyHours += hours
			}
		}

		if shortfall := 24.0 - sum.TotalHours(); shortfall > 0 {
			sum.OffDutyHours += shortfall
		}
		summaries = append(summaries, sum)
	}
	return summaries
}
