package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/campus-hq/ta-scheduler-api/internal/models"
	appErrors "github.com/campus-hq/ta-scheduler-api/pkg/errors"
)

// GenerateSchedule builds a fresh schedule document from a configured
// interval: one empty shift per slot per weekday, all carrying the requested
// staffing capacity. Shifts stay role-less (is_empty) until a template
// assigns demand per slot.
func GenerateSchedule(scheduleID int, interval models.WorkInterval, staffing models.Staffing) (*models.Schedule, error) {
	if staffing.Count < 1 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "staffing capacity count must be at least 1")
	}
	slots, err := EnumerateSlots(interval)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	schedule := &models.Schedule{
		ScheduleID:   scheduleID,
		WorkInterval: interval,
		State:        models.ScheduleStateDrafted,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	for _, day := range models.Weekdays {
		shifts := make([]models.Shift, 0, len(slots))
		for i, slot := range slots {
			shifts = append(shifts, models.Shift{
				ID:        models.ShiftID{Day: day, Ordinal: i + 1},
				StartTime: slot.Start,
				EndTime:   slot.End,
				Role:      models.ShiftRoleNone,
				IsEmpty:   true,
				Capacity:  staffing,
				Occupants: []string{},
			})
		}
		schedule.SetDay(day, shifts)
	}
	return schedule, nil
}

// ApplyTemplate sets per-slot role demand on a generated schedule. Lab slots
// require at least assistant-level occupants; office-hours slots accept any
// role; unmapped slots become empty and lose any prior occupants.
func ApplyTemplate(schedule *models.Schedule, slotRoles map[string]models.ShiftRole) {
	for _, day := range models.Weekdays {
		shifts := schedule.Day(day)
		for i := range shifts {
			shift := &shifts[i]
			switch slotRoles[shift.SlotKey()] {
			case models.ShiftRoleLab:
				shift.Role = models.ShiftRoleLab
				shift.IsEmpty = false
				if shift.Capacity.MinRole < models.RoleLabAssistant {
					shift.Capacity.MinRole = models.RoleLabAssistant
				}
			case models.ShiftRoleOfficeHours:
				shift.Role = models.ShiftRoleOfficeHours
				shift.IsEmpty = false
				shift.Capacity.MinRole = models.RoleOfficeHours
			default:
				shift.Role = models.ShiftRoleNone
				shift.IsEmpty = true
				shift.Occupants = []string{}
			}
		}
	}
}

// AssignOccupant adds a TA to a shift, enforcing capacity and role
// eligibility. Adding an already-present occupant is a no-op.
func AssignOccupant(shift *models.Shift, ta *models.TA) error {
	if shift.HasOccupant(ta.TAID) {
		return nil
	}
	if ta.RoleLevel < shift.Capacity.MinRole {
		return appErrors.Clone(appErrors.ErrRoleIneligible,
			fmt.Sprintf("ta %s role level %d below shift %s minimum %d", ta.TAID, ta.RoleLevel, shift.ID, shift.Capacity.MinRole))
	}
	if len(shift.Occupants) >= shift.Capacity.Count {
		return appErrors.Clone(appErrors.ErrCapacityExceeded,
			fmt.Sprintf("shift %s already holds %d of %d occupants", shift.ID, len(shift.Occupants), shift.Capacity.Count))
	}
	shift.Occupants = append(shift.Occupants, ta.TAID)
	sort.Strings(shift.Occupants)
	return nil
}
