package validation

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxQueryLength bounds search input, in runes.
const MaxQueryLength = 100

var (
	ErrQueryTooLong      = errors.New("query too long")
	ErrQueryInvalidChars = errors.New("query contains invalid characters")

	ErrCoordinatesMissing  = errors.New("lat and lon are required")
	ErrCoordinatesInvalid  = errors.New("coordinates must be numbers")
	ErrLatitudeOutOfRange  = errors.New("latitude must be between -90 and 90")
	ErrLongitudeOutOfRange = errors.New("longitude must be between -180 and 180")
)

// ValidateQuery trims a place-name search and restricts it to letters (Unicode),
// digits, space, comma, hyphen, period and apostrophe. Short or empty queries
// are valid; the geocoder answers them with no results.
func ValidateQuery(input string) (string, error) {
	s := strings.TrimSpace(input)
	if utf8.RuneCountInString(s) > MaxQueryLength {
		return "", ErrQueryTooLong
	}
	for _, c := range s {
		if !isAllowedQueryRune(c) {
			return "", ErrQueryInvalidChars
		}
	}
	return s, nil
}

func isAllowedQueryRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsMark(r) {
		return true
	}
	switch r {
	case ' ', ',', '-', '.', '\'':
		return true
	}
	return false
}

// ParseCoordinates parses query-string coordinates and range-checks them.
func ParseCoordinates(latStr, lonStr string) (float64, float64, error) {
	latStr, lonStr = strings.TrimSpace(latStr), strings.TrimSpace(lonStr)
	if latStr == "" || lonStr == "" {
		return 0, 0, ErrCoordinatesMissing
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return 0, 0, ErrCoordinatesInvalid
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return 0, 0, ErrCoordinatesInvalid
	}
	if err := CheckCoordinates(lat, lon); err != nil {
		return 0, 0, err
	}
	return lat, lon, nil
}

// CheckCoordinates range-checks decoded coordinates. NaN and infinities are rejected.
func CheckCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return ErrCoordinatesInvalid
	}
	if lat < -90 || lat > 90 {
		return ErrLatitudeOutOfRange
	}
	if lon < -180 || lon > 180 {
		return ErrLongitudeOutOfRange
	}
	return nil
}
