package weather

import (
	"strings"

	"github.com/kjstillabower/skyhue-weather/internal/models"
)

// MapCondition translates an OpenWeather condition code into a WeatherCondition.
// Ranges are checked in a fixed order and the first match wins; codes outside
// every range fall back to sunny.
func MapCondition(code int, isNight bool) models.WeatherCondition {
	switch {
	case code >= 200 && code < 300:
		return models.ConditionStormy
	case code >= 300 && code < 400:
		return models.ConditionDrizzle
	case code >= 500 && code < 600:
		return models.ConditionRainy
	case code >= 600 && code < 700:
		return models.ConditionSnowy
	case code >= 700 && code < 800:
		return models.ConditionFoggy
	case code == 800:
		if isNight {
			return models.ConditionClearNight
		}
		return models.ConditionSunny
	case code > 800 && code < 803:
		if isNight {
			return models.ConditionPartlyCloudyNight
		}
		return models.ConditionPartlyCloudy
	case code >= 803:
		return models.ConditionCloudy
	}
	return models.ConditionSunny
}

// IsNightIcon reports whether a provider icon id ("01n", "10d") is a night variant.
func IsNightIcon(icon string) bool {
	return strings.Contains(icon, "n")
}

// MapConditionIcon is MapCondition with the night flag taken from the icon id.
func MapConditionIcon(code int, icon string) models.WeatherCondition {
	return MapCondition(code, IsNightIcon(icon))
}
