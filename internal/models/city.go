package models

import "strconv"

// CurrentLocationID is the fixed id of the device-location record.
const CurrentLocationID = "current_location"

// SavedCity is one entry of the persisted favorites list.
// Identity for deduplication is the (Lat, Lon) pair, not ID.
type SavedCity struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	State             string  `json:"state,omitempty"`
	Country           string  `json:"country"`
	Lat               float64 `json:"lat"`
	Lon               float64 `json:"lon"`
	IsCurrentLocation bool    `json:"isCurrentLocation,omitempty"`
}

// SameCoordinates reports whether both records point at the same place.
func (c SavedCity) SameCoordinates(other SavedCity) bool {
	return c.Lat == other.Lat && c.Lon == other.Lon
}

// Region returns "State, Country" or just the country.
func (c SavedCity) Region() string {
	if c.State != "" {
		return c.State + ", " + c.Country
	}
	return c.Country
}

// CityWithWeather is a SavedCity plus the last fetched weather.
// Weather fields stay nil until the first successful fetch.
type CityWithWeather struct {
	SavedCity
	Temperature *int              `json:"temperature,omitempty"`
	Condition   *WeatherCondition `json:"condition,omitempty"`
	Weather     *WeatherSnapshot  `json:"weatherData,omitempty"`
}

// WithSnapshot returns a copy of c carrying snap.
func (c CityWithWeather) WithSnapshot(snap WeatherSnapshot) CityWithWeather {
	temp := snap.Current.Temperature
	cond := snap.Current.Condition
	c.Temperature = &temp
	c.Condition = &cond
	c.Weather = &snap
	return c
}

// CityCandidate is a normalized geocoding result.
type CityCandidate struct {
	Name    string  `json:"name"`
	State   string  `json:"state,omitempty"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// CityID forms the id used for searched cities: "<lat>_<lon>".
func CityID(lat, lon float64) string {
	return strconv.FormatFloat(lat, 'f', -1, 64) + "_" + strconv.FormatFloat(lon, 'f', -1, 64)
}

// ToSavedCity converts a search result into a record ready for the City Store.
func (c CityCandidate) ToSavedCity() SavedCity {
	return SavedCity{
		ID:      CityID(c.Lat, c.Lon),
		Name:    c.Name,
		State:   c.State,
		Country: c.Country,
		Lat:     c.Lat,
		Lon:     c.Lon,
	}
}
