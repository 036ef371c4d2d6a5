package weather

import (
	"testing"

	"github.com/kjstillabower/skyhue-weather/internal/client"
	"github.com/kjstillabower/skyhue-weather/internal/models"
)

const (
	march10 int64 = 1710028800 // 2024-03-10 00:00 UTC, a Sunday
	step    int64 = 3 * 3600
)

func forecastEntry(dt int64, temp float64, code int, icon string, pop float64) client.ForecastEntry {
	var e client.ForecastEntry
	e.Dt = dt
	e.Main.Temp = temp
	e.Weather = []client.ConditionEntry{{ID: code, Main: "Clear", Icon: icon}}
	e.Pop = pop
	return e
}

// threeDays returns 24 entries at 3-hour steps spanning three UTC dates.
func threeDays() []client.ForecastEntry {
	entries := make([]client.ForecastEntry, 0, 24)
	for i := 0; i < 24; i++ {
		pop := 0.0
		switch {
		case i < 8:
			pop = 0.25
		case i < 16 && i%2 == 1:
			pop = 1
		}
		code, icon := 800, "01d"
		switch i {
		case 4: // 12:00 UTC day one
			code, icon = 500, "10d"
		case 6: // 18:00 UTC day one, 13:00 at UTC-5
			code, icon = 200, "11d"
		}
		entries = append(entries, forecastEntry(march10+int64(i)*step, 50+float64(i), code, icon, pop))
	}
	return entries
}

func TestBuildHourly(t *testing.T) {
	hourly := BuildHourly(threeDays(), 0)

	if len(hourly) != HourlySlots {
		t.Fatalf("len(hourly) = %d, want %d", len(hourly), HourlySlots)
	}
	if hourly[0].Time != NowLabel || !hourly[0].IsNow {
		t.Errorf("first slot = %+v, want Now", hourly[0])
	}
	for i, h := range hourly[1:] {
		if h.IsNow {
			t.Errorf("slot %d flagged as now", i+1)
		}
	}
	if hourly[1].Time != "3 AM" {
		t.Errorf("hourly[1].Time = %q, want 3 AM", hourly[1].Time)
	}
	if hourly[8].Time != "12 AM" {
		t.Errorf("hourly[8].Time = %q, want 12 AM", hourly[8].Time)
	}
	if hourly[0].Precipitation != 25 || hourly[0].Temperature != 50 {
		t.Errorf("hourly[0] = %+v", hourly[0])
	}
	if hourly[4].Condition != models.ConditionRainy {
		t.Errorf("hourly[4].Condition = %q, want rainy", hourly[4].Condition)
	}
}

func TestBuildHourlyShortList(t *testing.T) {
	entries := threeDays()[:3]
	if got := BuildHourly(entries, 0); len(got) != 3 {
		t.Errorf("len = %d, want 3", len(got))
	}
	if got := BuildHourly(nil, 0); len(got) != 0 {
		t.Errorf("len = %d, want 0", len(got))
	}
}

func TestBuildDaily(t *testing.T) {
	daily := BuildDaily(threeDays(), 0)

	if len(daily) != 3 {
		t.Fatalf("len(daily) = %d, want 3", len(daily))
	}

	want := []models.DaySummary{
		{Day: "Today", Date: "Mar 10", Condition: models.ConditionRainy, Precipitation: 25, High: 57, Low: 50, IsToday: true},
		{Day: "Mon", Date: "Mar 11", Condition: models.ConditionSunny, Precipitation: 50, High: 65, Low: 58},
		{Day: "Tue", Date: "Mar 12", Condition: models.ConditionSunny, Precipitation: 0, High: 73, Low: 66},
	}
	for i := range want {
		if daily[i] != want[i] {
			t.Errorf("daily[%d] = %+v, want %+v", i, daily[i], want[i])
		}
	}
}

func TestBuildDailyMiddayUsesLocationOffset(t *testing.T) {
	daily := BuildDaily(threeDays(), estOffset)
	if daily[0].Condition != models.ConditionStormy {
		t.Errorf("daily[0].Condition = %q, want stormy", daily[0].Condition)
	}
}

func TestBuildDailyFallsBackToFirstEntry(t *testing.T) {
	entries := []client.ForecastEntry{
		forecastEntry(march10, 40, 600, "13n", 0),
		forecastEntry(march10+step, 42, 800, "01n", 0),
	}
	daily := BuildDaily(entries, 0)
	if len(daily) != 1 || daily[0].Condition != models.ConditionSnowy {
		t.Errorf("daily = %+v, want one snowy day", daily)
	}
}

func TestBuildDailyCapsAtSevenDays(t *testing.T) {
	var entries []client.ForecastEntry
	for d := int64(0); d < 10; d++ {
		entries = append(entries, forecastEntry(march10+d*24*3600, 60, 800, "01d", 0))
	}
	daily := BuildDaily(entries, 0)
	if len(daily) != MaxDays {
		t.Fatalf("len(daily) = %d, want %d", len(daily), MaxDays)
	}
	for i, d := range daily {
		if d.IsToday != (i == 0) {
			t.Errorf("daily[%d].IsToday = %v", i, d.IsToday)
		}
	}
}
