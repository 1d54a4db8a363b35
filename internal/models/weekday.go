package models

import "strings"

// Weekday indexes the seven days of a schedule week, Monday first. The fixed
// order matters: weekly preference vectors and shift enumeration both follow
// it.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

// Weekdays lists all days in canonical order.
var Weekdays = [7]Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

var weekdayCodes = [7]string{"m", "tu", "w", "th", "f", "sa", "su"}

var weekdayNames = [7]string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// Code returns the short wire code for the day ("m", "tu", ...).
func (w Weekday) Code() string {
	if w < Monday || w > Sunday {
		return ""
	}
	return weekdayCodes[w]
}

// Name returns the lowercase full day name used as a document key.
func (w Weekday) Name() string {
	if w < Monday || w > Sunday {
		return ""
	}
	return weekdayNames[w]
}

// ParseWeekdayCode resolves a short day code, case-insensitively.
func ParseWeekdayCode(code string) (Weekday, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	for i, c := range weekdayCodes {
		if c == code {
			return Weekday(i), true
		}
	}
	return 0, false
}
