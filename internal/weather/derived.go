package weather

import (
	"math"
	"time"

	"github.com/kjstillabower/skyhue-weather/internal/models"
)

// UVIndex is a coarse latitude band estimate; the provider's free tier has no UV data.
// Not a physical model.
func UVIndex(lat float64) int {
	absLat := math.Abs(lat)
	switch {
	case absLat < 23.5:
		return 8
	case absLat < 35:
		return 6
	case absLat < 50:
		return 4
	}
	return 2
}

// DewPoint approximates the dew point as temp - (100-humidity)/5, in the
// temperature's own unit.
func DewPoint(temp, humidity int) int {
	return models.Round(float64(temp) - float64(100-humidity)/5)
}

var windDirections = [8]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

// WindDirection buckets degrees into an 8-point compass.
func WindDirection(deg float64) string {
	idx := models.Round(deg/45) % 8
	if idx < 0 {
		idx += 8
	}
	return windDirections[idx]
}

const metersPerMile = 1609.34

// VisibilityMiles converts the provider's meters to whole miles.
func VisibilityMiles(meters float64) int {
	return models.Round(meters / metersPerMile)
}

const (
	synodicMonth = 29.53
	// Julian day of the reference new moon, 2000-01-06.
	referenceNewMoonJD = 2451549.5
)

// Moon phase names, in cycle order.
const (
	MoonNew            = "New Moon"
	MoonWaxingCrescent = "Waxing Crescent"
	MoonFirstQuarter   = "First Quarter"
	MoonWaxingGibbous  = "Waxing Gibbous"
	MoonFull           = "Full Moon"
	MoonWaningGibbous  = "Waning Gibbous"
	MoonLastQuarter    = "Last Quarter"
	MoonWaningCrescent = "Waning Crescent"
)

// julianDay is the simplified civil-to-Julian conversion used for moon phase.
// It skips the January/February year adjustment of the full algorithm.
func julianDay(year, month, day int) float64 {
	c := math.Floor(float64(year-1900) / 100)
	e := 2 - c + math.Floor(c/4)
	return math.Floor(365.25*float64(year+4716)) +
		math.Floor(30.6001*float64(month+1)) +
		float64(day) + e - 1524.5
}

// MoonPhase names the lunar phase for the calendar date of now, in now's location.
// Callers pass the wall clock, not the snapshot's date.
func MoonPhase(now time.Time) string {
	year, month, day := now.Date()
	daysSinceNew := math.Mod(julianDay(year, int(month), day)-referenceNewMoonJD, synodicMonth)

	switch {
	case daysSinceNew < 1.8:
		return MoonNew
	case daysSinceNew < 7.4:
		return MoonWaxingCrescent
	case daysSinceNew < 9.1:
		return MoonFirstQuarter
	case daysSinceNew < 14.8:
		return MoonWaxingGibbous
	case daysSinceNew < 16.6:
		return MoonFull
	case daysSinceNew < 22.1:
		return MoonWaningGibbous
	case daysSinceNew < 23.9:
		return MoonLastQuarter
	}
	return MoonWaningCrescent
}
