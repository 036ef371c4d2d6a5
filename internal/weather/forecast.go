package weather

import (
	"time"

	"github.com/kjstillabower/skyhue-weather/internal/client"
	"github.com/kjstillabower/skyhue-weather/internal/models"
)

const (
	// HourlySlots covers 24 hours at the provider's 3-hour step, plus "now".
	HourlySlots = 9
	MaxDays     = 7

	middayStartHour = 12
	middayEndHour   = 15
)

// NowLabel is the label of the first hourly slot.
const NowLabel = "Now"

// BuildHourly takes the first HourlySlots forecast entries. Hour labels are
// rendered at the given UTC offset.
func BuildHourly(entries []client.ForecastEntry, offset int) []models.HourSlice {
	n := min(len(entries), HourlySlots)
	hourly := make([]models.HourSlice, 0, n)
	for i, e := range entries[:n] {
		cond := e.PrimaryCondition()
		label := NowLabel
		if i > 0 {
			label = FormatHour(e.Dt, offset)
		}
		hourly = append(hourly, models.HourSlice{
			Time:          label,
			Temperature:   models.Round(e.Main.Temp),
			Condition:     MapConditionIcon(cond.ID, cond.Icon),
			Precipitation: models.Round(e.Pop * 100),
			IsNow:         i == 0,
		})
	}
	return hourly
}

type dayGroup struct {
	key     string
	entries []client.ForecastEntry
}

// dayKey is the UTC calendar date of an entry. Grouping is by UTC date while
// the midday check and labels use the location offset.
func dayKey(ts int64) string {
	return time.Unix(ts, 0).UTC().Format(time.DateOnly)
}

func groupByDay(entries []client.ForecastEntry) []dayGroup {
	var groups []dayGroup
	index := make(map[string]int)
	for _, e := range entries {
		key := dayKey(e.Dt)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, dayGroup{key: key})
		}
		groups[i].entries = append(groups[i].entries, e)
	}
	return groups
}

// BuildDaily folds forecast entries into at most MaxDays summaries in
// encounter order. The first summary is today.
func BuildDaily(entries []client.ForecastEntry, offset int) []models.DaySummary {
	groups := groupByDay(entries)
	if len(groups) > MaxDays {
		groups = groups[:MaxDays]
	}

	daily := make([]models.DaySummary, 0, len(groups))
	for i, g := range groups {
		daily = append(daily, summarizeDay(g.entries, offset, i == 0))
	}
	return daily
}

func summarizeDay(entries []client.ForecastEntry, offset int, isToday bool) models.DaySummary {
	high, low := entries[0].Main.Temp, entries[0].Main.Temp
	var popSum float64
	for _, e := range entries {
		high = max(high, e.Main.Temp)
		low = min(low, e.Main.Temp)
		popSum += e.Pop
	}

	rep := entries[0]
	for _, e := range entries {
		h := LocalHour(e.Dt, offset)
		if h >= middayStartHour && h <= middayEndHour {
			rep = e
			break
		}
	}
	cond := rep.PrimaryCondition()
	first := entries[0].Dt

	return models.DaySummary{
		Day:           FormatShortDay(first, offset, isToday),
		Date:          FormatShortDate(first, offset),
		Condition:     MapConditionIcon(cond.ID, cond.Icon),
		Precipitation: models.Round(popSum / float64(len(entries)) * 100),
		High:          models.Round(high),
		Low:           models.Round(low),
		IsToday:       isToday,
	}
}
