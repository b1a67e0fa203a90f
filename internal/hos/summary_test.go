package hos

import (
	"math"
	"testing"
	"time"
)

func TestBuildDailySummariesClipsAtMidnight(t *testing.T) {
	cfg := DefaultConfig()
	// Driving from 22:00 to 02:00 spans two calendar days.
	start := time.Date(2025, 6, 2, 22, 0, 0, 0, time.UTC)
	periods := []DutyPeriod{
		{Status: Driving, Start: start, End: start.Add(4 * time.Hour)},
	}

	summaries := buildDailySummaries(cfg, periods, start, 2)
	if len(summaries) != 2 {
		t.Fatalf("got %d summaries, want 2", len(summaries))
	}

	almostEqual(t, "day 1 driving", summaries[0].DrivingHours, 2.0)
	almostEqual(t, "day 2 driving", summaries[1].DrivingHours, 2.0)
	almostEqual(t, "day 1 miles", summaries[0].MilesDriven, 2.0*cfg.AverageSpeedMPH)
	for _, day := range summaries {
		if math.Abs(day.TotalHours()-24.0) > 1e-6 {
			t.Fatalf("day %d totals %.4f hours, want 24", day.DayNumber, day.TotalHours())
		}
	}
}

func TestBuildDailySummariesPadsEmptyDay(t *testing.T) {
	cfg := DefaultConfig()
	start := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)

	summaries := buildDailySummaries(cfg, nil, start, 1)
	if len(summaries) != 1 {
		t.Fatalf("got %d summaries, want 1", len(summaries))
	}
	almostEqual(t, "off-duty padding", summaries[0].OffDutyHours, 24.0)
	if len(summaries[0].DutyPeriods) != 0 {
		t.Fatalf("empty day should carry no duty periods, got %d", len(summaries[0].DutyPeriods))
	}
}

func TestBuildDailySummariesDayNumbering(t *testing.T) {
	cfg := DefaultConfig()
	start := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)

	summaries := buildDailySummaries(cfg, nil, start, 3)
	for i, day := range summaries {
		if day.DayNumber != i+1 {
			t.Fatalf("summary %d has DayNumber %d", i, day.DayNumber)
		}
		wantDate := time.Date(2025, 6, 2+i, 0, 0, 0, 0, time.UTC)
		if !day.Date.Equal(wantDate) {
			t.Fatalf("summary %d date = %v, want %v", i, day.Date, wantDate)
		}
	}
}
