package service

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/campus-hq/ta-scheduler-api/internal/models"
	appErrors "github.com/campus-hq/ta-scheduler-api/pkg/errors"
)

// Preference wire format: "<day>:<HH:MM>-<HH:MM>:<level>", e.g. "m:7:00-8:30:2".
var timeRangePattern = regexp.MustCompile(`^\d{1,2}:\d{2}-\d{1,2}:\d{2}$`)

// EncodePreference renders one slot preference in wire form.
func EncodePreference(day models.Weekday, startTime, endTime string, level models.PreferenceLevel) string {
	return fmt.Sprintf("%s:%s-%s:%d", day.Code(), startTime, endTime, level)
}

// DecodePreference parses a wire-form preference string. The shift ID is left
// unresolved; it is bound to a concrete shift only once a schedule grid
// exists.
func DecodePreference(raw string) (models.PreferenceEntry, error) {
	lastColon := strings.LastIndex(raw, ":")
	if lastColon == -1 || lastColon == len(raw)-1 {
		return models.PreferenceEntry{}, appErrors.Clone(appErrors.ErrMalformedPreference, fmt.Sprintf("missing preference level in %q", raw))
	}

	levelRaw := raw[lastColon+1:]
	level, err := strconv.Atoi(levelRaw)
	if err != nil || !models.PreferenceLevel(level).Valid() {
		return models.PreferenceEntry{}, appErrors.Clone(appErrors.ErrMalformedPreference, fmt.Sprintf("preference level must be 0, 1 or 2 in %q", raw))
	}

	timeSlot := raw[:lastColon]
	firstColon := strings.Index(timeSlot, ":")
	if firstColon == -1 {
		return models.PreferenceEntry{}, appErrors.Clone(appErrors.ErrMalformedPreference, fmt.Sprintf("missing day code in %q", raw))
	}

	dayCode := timeSlot[:firstColon]
	timeRange := timeSlot[firstColon+1:]

	day, ok := models.ParseWeekdayCode(dayCode)
	if !ok {
		return models.PreferenceEntry{}, appErrors.Clone(appErrors.ErrMalformedPreference, fmt.Sprintf("unknown day code %q", dayCode))
	}
	if !timeRangePattern.MatchString(timeRange) {
		return models.PreferenceEntry{}, appErrors.Clone(appErrors.ErrMalformedPreference, fmt.Sprintf("invalid time range %q", timeRange))
	}

	return models.PreferenceEntry{
		ShiftID:  "",
		TimeSlot: day.Code() + ":" + timeRange,
		Level:    models.PreferenceLevel(level),
	}, nil
}

// SplitTimeSlot breaks a stored "<day>:<HH:MM>-<HH:MM>" value into the day
// and the start/end times.
func SplitTimeSlot(timeSlot string) (day models.Weekday, startTime, endTime string, err error) {
	firstColon := strings.Index(timeSlot, ":")
	if firstColon == -1 {
		return 0, "", "", fmt.Errorf("malformed time slot %q", timeSlot)
	}
	day, ok := models.ParseWeekdayCode(timeSlot[:firstColon])
	if !ok {
		return 0, "", "", fmt.Errorf("unknown day code in time slot %q", timeSlot)
	}
	timeRange := timeSlot[firstColon+1:]
	dash := strings.Index(timeRange, "-")
	if dash == -1 {
		return 0, "", "", fmt.Errorf("malformed time range %q", timeRange)
	}
	return day, timeRange[:dash], timeRange[dash+1:], nil
}

// ValidateAgainstGrid checks that a decoded entry lines up with a slot of the
// configured interval: its start must sit on a slot boundary and its span
// must equal the slot duration. Well-formed strings that miss the grid are
// rejected rather than snapped.
func ValidateAgainstGrid(entry models.PreferenceEntry, interval models.WorkInterval) error {
	_, startTime, endTime, err := SplitTimeSlot(entry.TimeSlot)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrMalformedPreference.Code, appErrors.ErrMalformedPreference.Status, "malformed time slot")
	}
	idx, err := slotIndex(interval, startTime)
	if err != nil {
		return err
	}
	if idx < 0 {
		return appErrors.Clone(appErrors.ErrUnalignedSlot, fmt.Sprintf("time slot %q does not start on a slot boundary", entry.TimeSlot))
	}
	startMin, _ := parseClock(startTime)
	endMin, err := parseClock(endTime)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrMalformedPreference.Code, appErrors.ErrMalformedPreference.Status, "malformed time slot")
	}
	if endMin == 0 {
		endMin = minutesPerDay
	}
	if endMin-startMin != interval.SlotDuration {
		return appErrors.Clone(appErrors.ErrUnalignedSlot, fmt.Sprintf("time slot %q does not span exactly one slot", entry.TimeSlot))
	}
	return nil
}

// BuildWeeklyVector produces the dense preference vector the assignment
// algorithm expects: one entry for every slot of every weekday in canonical
// order, defaulting to unavailable. The availability map is keyed by the
// stored "<day>:<HH:MM>-<HH:MM>" form.
func BuildWeeklyVector(availability map[string]models.PreferenceLevel, interval models.WorkInterval) ([]models.PreferenceEntry, error) {
	slots, err := EnumerateSlots(interval)
	if err != nil {
		return nil, err
	}
	vector := make([]models.PreferenceEntry, 0, 7*len(slots))
	for _, day := range models.Weekdays {
		for _, slot := range slots {
			timeSlot := day.Code() + ":" + slot.Start + "-" + slot.End
			level := models.PreferenceUnavailable
			if stored, ok := availability[timeSlot]; ok {
				level = stored
			}
			vector = append(vector, models.PreferenceEntry{
				ShiftID:  "",
				TimeSlot: timeSlot,
				Level:    level,
			})
		}
	}
	return vector, nil
}
