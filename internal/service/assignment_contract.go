package service

import (
	"fmt"
	"sort"

	"github.com/campus-hq/ta-scheduler-api/internal/models"
	appErrors "github.com/campus-hq/ta-scheduler-api/pkg/errors"
)

// BuildRequest packages the current schedule and TA roster into the payload
// the assignment algorithm consumes: every shift with its capacity and role
// demand, and every TA with a dense weekly preference vector resolved to
// concrete shift IDs.
func BuildRequest(schedule *models.Schedule, tas []models.TA) (models.AssignmentRequest, error) {
	request := models.AssignmentRequest{ScheduleID: schedule.ScheduleID}

	for _, day := range models.Weekdays {
		for _, shift := range schedule.Day(day) {
			request.Shifts = append(request.Shifts, models.AssignmentShift{
				ShiftID:   shift.ID.String(),
				Day:       day.Code(),
				StartTime: shift.StartTime,
				EndTime:   shift.EndTime,
				Role:      shift.Role,
				IsEmpty:   shift.IsEmpty,
				Capacity:  shift.Capacity,
			})
		}
	}

	for _, ta := range tas {
		availability := make(map[string]models.PreferenceLevel, len(ta.Preferences))
		for _, pref := range ta.Preferences {
			availability[pref.TimeSlot] = pref.Level
		}
		vector, err := BuildWeeklyVector(availability, schedule.WorkInterval)
		if err != nil {
			return models.AssignmentRequest{}, err
		}

		entry := models.AssignmentTA{TAID: ta.TAID, RoleLevel: ta.RoleLevel}
		for _, pref := range vector {
			day, startTime, _, err := SplitTimeSlot(pref.TimeSlot)
			if err != nil {
				return models.AssignmentRequest{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "unresolvable preference slot")
			}
			shift := schedule.ShiftBySlotKey(SlotKey(day, startTime))
			if shift == nil {
				continue
			}
			entry.Preferences = append(entry.Preferences, models.AssignmentPreference{
				ShiftID: shift.ID.String(),
				Level:   pref.Level,
			})
		}
		request.TAs = append(request.TAs, entry)
	}

	return request, nil
}

// ResolvePreferences binds a TA's stored preference entries to the concrete
// shifts of the given schedule, filling in shift IDs that were unresolved at
// submission time. Entries whose slot no longer exists keep an empty ID.
func ResolvePreferences(schedule *models.Schedule, prefs []models.PreferenceEntry) []models.PreferenceEntry {
	resolved := make([]models.PreferenceEntry, len(prefs))
	for i, pref := range prefs {
		resolved[i] = pref
		day, startTime, _, err := SplitTimeSlot(pref.TimeSlot)
		if err != nil {
			continue
		}
		if shift := schedule.ShiftBySlotKey(SlotKey(day, startTime)); shift != nil {
			resolved[i].ShiftID = shift.ID.String()
		}
	}
	return resolved
}

// ValidateAssignment checks the occupant sets of a schedule (as written by
// the assignment algorithm) against the matching contract: capacity and role
// limits per shift, and no TA on two overlapping same-day shifts. A clean
// result is returned as a normalized occupant mapping; any breach is fatal
// to the dispatch.
func ValidateAssignment(schedule *models.Schedule, tas []models.TA) (models.ValidatedAssignment, error) {
	roster := make(map[string]models.TA, len(tas))
	for _, ta := range tas {
		roster[ta.TAID] = ta
	}

	var violations []models.AssignmentViolation
	validated := models.ValidatedAssignment{
		ScheduleID: schedule.ScheduleID,
		Occupants:  make(map[string][]string),
	}
	taShifts := make(map[string][]models.Shift)

	for _, day := range models.Weekdays {
		for _, shift := range schedule.Day(day) {
			occupants := uniqueSorted(shift.Occupants)
			if len(occupants) > shift.Capacity.Count {
				violations = append(violations, models.AssignmentViolation{
					Kind:    models.ViolationCapacityExceeded,
					ShiftID: shift.ID.String(),
					Message: fmt.Sprintf("shift %s holds %d occupants, capacity is %d", shift.ID, len(occupants), shift.Capacity.Count),
				})
			}
			for _, taID := range occupants {
				ta, known := roster[taID]
				if !known {
					violations = append(violations, models.AssignmentViolation{
						Kind:    models.ViolationUnknownTA,
						ShiftID: shift.ID.String(),
						TAID:    taID,
						Message: fmt.Sprintf("shift %s references unknown ta %s", shift.ID, taID),
					})
					continue
				}
				if ta.RoleLevel < shift.Capacity.MinRole {
					violations = append(violations, models.AssignmentViolation{
						Kind:    models.ViolationRoleIneligible,
						ShiftID: shift.ID.String(),
						TAID:    taID,
						Message: fmt.Sprintf("ta %s role level %d below shift %s minimum %d", taID, ta.RoleLevel, shift.ID, shift.Capacity.MinRole),
					})
				}
				taShifts[taID] = append(taShifts[taID], shift)
			}
			if len(occupants) > 0 {
				validated.Occupants[shift.ID.String()] = occupants
			}
		}
	}

	violations = append(violations, overlapViolations(taShifts)...)

	if len(violations) > 0 {
		return models.ValidatedAssignment{}, appErrors.Wrap(
			&models.ContractViolationError{Violations: violations},
			appErrors.ErrContractViolation.Code,
			appErrors.ErrContractViolation.Status,
			fmt.Sprintf("assignment violates %d contract rule(s)", len(violations)),
		)
	}
	return validated, nil
}

// WriteBack applies a validated assignment to the schedule's occupant sets.
// Set semantics make it idempotent: re-applying the same result leaves every
// occupant set unchanged.
func WriteBack(schedule *models.Schedule, validated models.ValidatedAssignment) {
	for _, day := range models.Weekdays {
		shifts := schedule.Day(day)
		for i := range shifts {
			if occupants, ok := validated.Occupants[shifts[i].ID.String()]; ok {
				shifts[i].Occupants = uniqueSorted(occupants)
			}
		}
	}
}

// ConfirmedShiftsByTA inverts a validated assignment into per-TA shift lists.
func ConfirmedShiftsByTA(validated models.ValidatedAssignment) map[string][]string {
	byTA := make(map[string][]string)
	for shiftID, taIDs := range validated.Occupants {
		for _, taID := range taIDs {
			byTA[taID] = append(byTA[taID], shiftID)
		}
	}
	for taID := range byTA {
		byTA[taID] = uniqueSorted(byTA[taID])
	}
	return byTA
}

func overlapViolations(taShifts map[string][]models.Shift) []models.AssignmentViolation {
	var violations []models.AssignmentViolation
	taIDs := make([]string, 0, len(taShifts))
	for taID := range taShifts {
		taIDs = append(taIDs, taID)
	}
	sort.Strings(taIDs)

	for _, taID := range taIDs {
		shifts := taShifts[taID]
		for i := 0; i < len(shifts); i++ {
			for j := i + 1; j < len(shifts); j++ {
				if shiftsOverlap(shifts[i], shifts[j]) {
					violations = append(violations, models.AssignmentViolation{
						Kind:    models.ViolationOverlap,
						ShiftID: shifts[j].ID.String(),
						TAID:    taID,
						Message: fmt.Sprintf("ta %s assigned to overlapping shifts %s and %s", taID, shifts[i].ID, shifts[j].ID),
					})
				}
			}
		}
	}
	return violations
}

// shiftsOverlap reports whether two shifts fall on the same weekday with
// intersecting time ranges.
func shiftsOverlap(a, b models.Shift) bool {
	if a.ID.Day != b.ID.Day {
		return false
	}
	aStart, err := parseClock(a.StartTime)
	if err != nil {
		return false
	}
	aEnd, err := parseClock(a.EndTime)
	if err != nil {
		return false
	}
	bStart, err := parseClock(b.StartTime)
	if err != nil {
		return false
	}
	bEnd, err := parseClock(b.EndTime)
	if err != nil {
		return false
	}
	if aEnd == 0 {
		aEnd = minutesPerDay
	}
	if bEnd == 0 {
		bEnd = minutesPerDay
	}
	return aStart < bEnd && bStart < aEnd
}

func uniqueSorted(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
