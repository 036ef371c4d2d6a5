package models

import "time"

// WeatherCondition is the app's closed set of semantic conditions.
type WeatherCondition string

const (
	ConditionSunny             WeatherCondition = "sunny"
	ConditionClearNight        WeatherCondition = "clear-night"
	ConditionPartlyCloudy      WeatherCondition = "partly-cloudy"
	ConditionPartlyCloudyNight WeatherCondition = "partly-cloudy-night"
	ConditionCloudy            WeatherCondition = "cloudy"
	ConditionRainy             WeatherCondition = "rainy"
	ConditionDrizzle           WeatherCondition = "drizzle"
	ConditionStormy            WeatherCondition = "stormy"
	ConditionSnowy             WeatherCondition = "snowy"
	ConditionFoggy             WeatherCondition = "foggy"
	ConditionWindy             WeatherCondition = "windy"
)

// AllConditions lists every member of WeatherCondition.
var AllConditions = []WeatherCondition{
	ConditionSunny, ConditionClearNight, ConditionPartlyCloudy, ConditionPartlyCloudyNight,
	ConditionCloudy, ConditionRainy, ConditionDrizzle, ConditionStormy,
	ConditionSnowy, ConditionFoggy, ConditionWindy,
}

// Valid reports whether c is a member of the closed set.
func (c WeatherCondition) Valid() bool {
	for _, m := range AllConditions {
		if c == m {
			return true
		}
	}
	return false
}

type CurrentSnapshot struct {
	City          string           `json:"city"`
	Time          string           `json:"time"`
	Date          string           `json:"date"`
	Temperature   int              `json:"temperature"`
	Condition     WeatherCondition `json:"condition"`
	ConditionText string           `json:"conditionText"`
	FeelsLike     int              `json:"feelsLike"`
	High          int              `json:"high"`
	Low           int              `json:"low"`
	Timezone      int              `json:"timezone"` // UTC offset in seconds
}

type HourSlice struct {
	Time          string           `json:"time"`
	Temperature   int              `json:"temperature"`
	Condition     WeatherCondition `json:"condition"`
	Precipitation int              `json:"precipitation"`
	IsNow         bool             `json:"isNow"`
}

type DaySummary struct {
	Day           string           `json:"day"`
	Date          string           `json:"date"`
	Condition     WeatherCondition `json:"condition"`
	Precipitation int              `json:"precipitation"`
	High          int              `json:"high"`
	Low           int              `json:"low"`
	IsToday       bool             `json:"isToday"`
}

// PressureTrendSteady is the only trend reported; the provider has no trend signal.
const PressureTrendSteady = "steady"

type WeatherDetails struct {
	Humidity      int    `json:"humidity"`
	WindSpeed     int    `json:"windSpeed"`
	WindDirection string `json:"windDirection"`
	UVIndex       int    `json:"uvIndex"`
	Visibility    int    `json:"visibility"` // miles
	Pressure      int    `json:"pressure"`
	PressureTrend string `json:"pressureTrend"`
	DewPoint      int    `json:"dewPoint"`
	Sunrise       string `json:"sunrise"`
	Sunset        string `json:"sunset"`
	MoonPhase     string `json:"moonPhase"`
}

// WeatherSnapshot is one complete weather result for one location at one fetch time.
// It is built fresh on every fetch and never mutated afterwards.
type WeatherSnapshot struct {
	Current   CurrentSnapshot `json:"current"`
	Hourly    []HourSlice     `json:"hourly"`
	Daily     []DaySummary    `json:"daily"`
	Details   WeatherDetails  `json:"details"`
	FetchedAt time.Time       `json:"fetchedAt"`
}
