package models

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// TemperatureUnit is the display unit preference.
type TemperatureUnit string

const (
	Fahrenheit TemperatureUnit = "F"
	Celsius    TemperatureUnit = "C"
)

// DefaultTemperatureUnit applies at first run.
const DefaultTemperatureUnit = Fahrenheit

var ErrInvalidUnit = errors.New("invalid temperature unit")

// ParseTemperatureUnit accepts "F"/"C" in any case.
func ParseTemperatureUnit(s string) (TemperatureUnit, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "F":
		return Fahrenheit, nil
	case "C":
		return Celsius, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidUnit, s)
}

// FahrenheitToCelsius returns round((f-32)*5/9). Converting back with
// CelsiusToFahrenheit lands within one degree of f.
func FahrenheitToCelsius(f int) int {
	return Round(float64(f-32) * 5 / 9)
}

func CelsiusToFahrenheit(c int) int {
	return Round(float64(c)*9/5 + 32)
}

// Round rounds half up (toward positive infinity), so -2.5 becomes -2.
// Every displayed integer in the model goes through it.
func Round(x float64) int {
	return int(math.Floor(x + 0.5))
}

// ConvertTemperature converts a Fahrenheit reading for display in unit.
func ConvertTemperature(f int, unit TemperatureUnit) int {
	if unit == Celsius {
		return FahrenheitToCelsius(f)
	}
	return f
}
