package weather

import (
	"fmt"
	"time"
)

// Every formatter shifts the epoch by the location's UTC offset and reads the
// result as UTC, so no timezone database is involved.
func shifted(ts int64, offset int) time.Time {
	return time.Unix(ts+int64(offset), 0).UTC()
}

func hour12(h int) (int, string) {
	suffix := "AM"
	if h >= 12 {
		suffix = "PM"
	}
	h %= 12
	if h == 0 {
		h = 12
	}
	return h, suffix
}

// FormatClock renders "7:05 PM".
func FormatClock(ts int64, offset int) string {
	t := shifted(ts, offset)
	h, suffix := hour12(t.Hour())
	return fmt.Sprintf("%d:%02d %s", h, t.Minute(), suffix)
}

// FormatHour renders an hour-only label, "7 PM".
func FormatHour(ts int64, offset int) string {
	h, suffix := hour12(shifted(ts, offset).Hour())
	return fmt.Sprintf("%d %s", h, suffix)
}

// FormatLongDate renders "Tuesday, January 7".
func FormatLongDate(ts int64, offset int) string {
	t := shifted(ts, offset)
	return fmt.Sprintf("%s, %s %d", t.Weekday(), t.Month(), t.Day())
}

// FormatShortDay renders "Today" when isToday is set, otherwise "Tue".
func FormatShortDay(ts int64, offset int, isToday bool) string {
	if isToday {
		return "Today"
	}
	return shifted(ts, offset).Weekday().String()[:3]
}

// FormatShortDate renders "Jan 7".
func FormatShortDate(ts int64, offset int) string {
	t := shifted(ts, offset)
	return fmt.Sprintf("%s %d", t.Month().String()[:3], t.Day())
}

// LocalHour is the 0-23 hour at the location.
func LocalHour(ts int64, offset int) int {
	return shifted(ts, offset).Hour()
}
