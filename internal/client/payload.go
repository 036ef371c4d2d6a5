package client

// ConditionEntry is one element of the provider's "weather" array.
type ConditionEntry struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// CurrentConditions is the /weather response.
type CurrentConditions struct {
	Weather []ConditionEntry `json:"weather"`
	Main    struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		TempMin   float64 `json:"temp_min"`
		TempMax   float64 `json:"temp_max"`
		Pressure  float64 `json:"pressure"`
		Humidity  float64 `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
		Deg   float64 `json:"deg"`
	} `json:"wind"`
	Sys struct {
		Sunrise int64 `json:"sunrise"`
		Sunset  int64 `json:"sunset"`
	} `json:"sys"`
	Visibility float64 `json:"visibility"` // meters
	Dt         int64   `json:"dt"`
	Timezone   int     `json:"timezone"`
	Name       string  `json:"name"`
}

// PrimaryCondition returns the first condition entry, or a zero entry when absent.
func (c CurrentConditions) PrimaryCondition() ConditionEntry {
	if len(c.Weather) == 0 {
		return ConditionEntry{}
	}
	return c.Weather[0]
}

// ForecastEntry is one 3-hour slot of the /forecast list.
type ForecastEntry struct {
	Dt   int64 `json:"dt"`
	Main struct {
		Temp     float64 `json:"temp"`
		TempMin  float64 `json:"temp_min"`
		TempMax  float64 `json:"temp_max"`
		Humidity float64 `json:"humidity"`
		Pressure float64 `json:"pressure"`
	} `json:"main"`
	Weather []ConditionEntry `json:"weather"`
	Wind    struct {
		Speed float64 `json:"speed"`
		Deg   float64 `json:"deg"`
	} `json:"wind"`
	Pop   float64 `json:"pop"` // probability of precipitation, 0..1
	DtTxt string  `json:"dt_txt"`
}

func (e ForecastEntry) PrimaryCondition() ConditionEntry {
	if len(e.Weather) == 0 {
		return ConditionEntry{}
	}
	return e.Weather[0]
}

// Forecast is the /forecast response.
type Forecast struct {
	List []ForecastEntry `json:"list"`
	City struct {
		Name     string `json:"name"`
		Timezone int    `json:"timezone"`
		Sunrise  int64  `json:"sunrise"`
		Sunset   int64  `json:"sunset"`
	} `json:"city"`
}

// geocodingResult is one element of the /direct or /reverse arrays.
type geocodingResult struct {
	Name    string  `json:"name"`
	State   string  `json:"state"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}
