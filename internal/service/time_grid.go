package service

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/campus-hq/ta-scheduler-api/internal/models"
	appErrors "github.com/campus-hq/ta-scheduler-api/pkg/errors"
)

const minutesPerDay = 24 * 60

// SlotTimes bounds one generated slot.
type SlotTimes struct {
	Start string
	End   string
}

// parseClock converts "HH:MM" into minutes since midnight. Hours run 0-23
// (one or two digits), minutes are exactly two digits 00-59.
func parseClock(raw string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(raw), ":", 2)
	if len(parts) != 2 || len(parts[0]) == 0 || len(parts[0]) > 2 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("unparsable time %q", raw)
	}
	hh, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("unparsable time %q", raw)
	}
	mm, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("unparsable time %q", raw)
	}
	if hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return 0, fmt.Errorf("time %q out of range", raw)
	}
	return hh*60 + mm, nil
}

func formatClock(minutes int) string {
	minutes %= minutesPerDay
	return fmt.Sprintf("%d:%02d", minutes/60, minutes%60)
}

// intervalBounds parses and normalizes an interval's endpoints. An end of
// "00:00" bounds the interval at end of day (24:00): naive minute arithmetic
// would otherwise make end <= start and silently yield zero shifts. This is
// the single place that normalization happens.
func intervalBounds(interval models.WorkInterval) (start, end int, err error) {
	if interval.SlotDuration <= 0 {
		return 0, 0, appErrors.Clone(appErrors.ErrInvalidInterval, fmt.Sprintf("shift duration must be positive, got %d", interval.SlotDuration))
	}
	start, err = parseClock(interval.Start)
	if err != nil {
		return 0, 0, appErrors.Wrap(err, appErrors.ErrInvalidInterval.Code, appErrors.ErrInvalidInterval.Status, "invalid interval start")
	}
	end, err = parseClock(interval.End)
	if err != nil {
		return 0, 0, appErrors.Wrap(err, appErrors.ErrInvalidInterval.Code, appErrors.ErrInvalidInterval.Status, "invalid interval end")
	}
	if end == 0 {
		end = minutesPerDay
	}
	return start, end, nil
}

// CountSlots returns how many whole slots fit in the interval. Zero when the
// normalized end does not exceed the start.
func CountSlots(interval models.WorkInterval) (int, error) {
	start, end, err := intervalBounds(interval)
	if err != nil {
		return 0, err
	}
	if end <= start {
		return 0, nil
	}
	return (end - start) / interval.SlotDuration, nil
}

// EnumerateSlots lists each slot's bounds in order. The i-th slot spans
// [start+i*duration, start+(i+1)*duration).
func EnumerateSlots(interval models.WorkInterval) ([]SlotTimes, error) {
	count, err := CountSlots(interval)
	if err != nil {
		return nil, err
	}
	start, _, _ := intervalBounds(interval)
	slots := make([]SlotTimes, 0, count)
	for i := 0; i < count; i++ {
		slots = append(slots, SlotTimes{
			Start: formatClock(start + i*interval.SlotDuration),
			End:   formatClock(start + (i+1)*interval.SlotDuration),
		})
	}
	return slots, nil
}

// SlotKey is the canonical slot identity used throughout the schedule.
func SlotKey(day models.Weekday, startTime string) string {
	return day.Code() + "-" + startTime
}

// slotIndex maps a clock time to the slot ordinal it starts, or -1 when the
// time does not coincide with a slot boundary of the interval.
func slotIndex(interval models.WorkInterval, startTime string) (int, error) {
	start, end, err := intervalBounds(interval)
	if err != nil {
		return -1, err
	}
	at, err := parseClock(startTime)
	if err != nil {
		return -1, err
	}
	if at < start || at >= end {
		return -1, nil
	}
	offset := at - start
	if offset%interval.SlotDuration != 0 {
		return -1, nil
	}
	return offset / interval.SlotDuration, nil
}
