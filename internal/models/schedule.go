package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RoleLevel is a TA's qualification tier. It gates which shifts a TA may be
// assigned to: a shift's minimum role must not exceed the TA's level.
type RoleLevel int

const (
	RoleOfficeHours  RoleLevel = 0
	RoleLabAssistant RoleLevel = 1
	RoleLabLead      RoleLevel = 2
)

// ShiftRole is the demand type configured for a shift slot.
type ShiftRole string

const (
	ShiftRoleNone        ShiftRole = ""
	ShiftRoleOfficeHours ShiftRole = "OFFICE_HOURS"
	ShiftRoleLab         ShiftRole = "LAB"
)

// Staffing describes how many TAs a shift needs and the minimum role level
// each occupant must hold.
type Staffing struct {
	MinRole RoleLevel `json:"min_role" db:"min_role"`
	Count   int       `json:"count" db:"count"`
}

// ShiftID identifies a shift within one schedule generation as a weekday plus
// a 1-based ordinal. It renders as the legacy short code ("m1", "tu3") for
// wire compatibility.
type ShiftID struct {
	Day     Weekday
	Ordinal int
}

// String renders the legacy short code.
func (id ShiftID) String() string {
	return id.Day.Code() + strconv.Itoa(id.Ordinal)
}

// ParseShiftID parses a legacy short code back into its parts.
func ParseShiftID(raw string) (ShiftID, error) {
	raw = strings.TrimSpace(raw)
	split := 0
	for split < len(raw) && (raw[split] < '0' || raw[split] > '9') {
		split++
	}
	if split == 0 || split == len(raw) {
		return ShiftID{}, fmt.Errorf("malformed shift id %q", raw)
	}
	day, ok := ParseWeekdayCode(raw[:split])
	if !ok {
		return ShiftID{}, fmt.Errorf("unknown weekday code in shift id %q", raw)
	}
	ordinal, err := strconv.Atoi(raw[split:])
	if err != nil || ordinal < 1 {
		return ShiftID{}, fmt.Errorf("invalid ordinal in shift id %q", raw)
	}
	return ShiftID{Day: day, Ordinal: ordinal}, nil
}

// MarshalJSON renders the ID as its wire string.
func (id ShiftID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.String())
}

// UnmarshalJSON accepts the wire string form.
func (id *ShiftID) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseShiftID(raw)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Shift is one slot instantiated with role demand and capacity, eligible to
// receive TA occupants.
type Shift struct {
	ID        ShiftID   `json:"shift_id"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	Role      ShiftRole `json:"role,omitempty"`
	IsEmpty   bool      `json:"is_empty"`
	Capacity  Staffing  `json:"staffing_capacity"`
	Occupants []string  `json:"tas_scheduled"`
}

// SlotKey is the canonical slot identity "<code>-<HH:MM>" shared with the
// time grid.
func (s *Shift) SlotKey() string {
	return s.ID.Day.Code() + "-" + s.StartTime
}

// HasOccupant reports whether the TA is already scheduled on this shift.
func (s *Shift) HasOccupant(taID string) bool {
	for _, id := range s.Occupants {
		if id == taID {
			return true
		}
	}
	return false
}

// WorkInterval is the configured daily window divided into fixed-duration
// slots. Times are "HH:MM"; an end of "00:00" means end of day.
type WorkInterval struct {
	Start        string `json:"start_interval_time"`
	End          string `json:"end_interval_time"`
	SlotDuration int    `json:"shift_duration"`
}

// ScheduleState tracks a schedule document's lifecycle phase.
type ScheduleState string

const (
	ScheduleStateDrafted    ScheduleState = "DRAFTED"
	ScheduleStatePopulated  ScheduleState = "POPULATED"
	ScheduleStateDispatched ScheduleState = "DISPATCHED"
	ScheduleStatePublished  ScheduleState = "PUBLISHED"
)

// CanTransition reports whether moving to the target state is allowed.
// Transitions are one-directional except the dispatch rollback: a failed
// dispatch returns the schedule to POPULATED.
func (s ScheduleState) CanTransition(to ScheduleState) bool {
	switch s {
	case ScheduleStateDrafted:
		return to == ScheduleStatePopulated
	case ScheduleStatePopulated:
		return to == ScheduleStateDispatched
	case ScheduleStateDispatched:
		return to == ScheduleStatePublished || to == ScheduleStatePopulated
	default:
		return false
	}
}

// WeekShifts holds the per-weekday shift arrays of a schedule document.
type WeekShifts struct {
	Monday    []Shift `json:"monday" db:"monday"`
	Tuesday   []Shift `json:"tuesday" db:"tuesday"`
	Wednesday []Shift `json:"wednesday" db:"wednesday"`
	Thursday  []Shift `json:"thursday" db:"thursday"`
	Friday    []Shift `json:"friday" db:"friday"`
	Saturday  []Shift `json:"saturday" db:"saturday"`
	Sunday    []Shift `json:"sunday" db:"sunday"`
}

// Day returns the shift list for a weekday.
func (w *WeekShifts) Day(day Weekday) []Shift {
	switch day {
	case Monday:
		return w.Monday
	case Tuesday:
		return w.Tuesday
	case Wednesday:
		return w.Wednesday
	case Thursday:
		return w.Thursday
	case Friday:
		return w.Friday
	case Saturday:
		return w.Saturday
	case Sunday:
		return w.Sunday
	}
	return nil
}

// SetDay replaces the shift list for a weekday.
func (w *WeekShifts) SetDay(day Weekday, shifts []Shift) {
	switch day {
	case Monday:
		w.Monday = shifts
	case Tuesday:
		w.Tuesday = shifts
	case Wednesday:
		w.Wednesday = shifts
	case Thursday:
		w.Thursday = shifts
	case Friday:
		w.Friday = shifts
	case Saturday:
		w.Saturday = shifts
	case Sunday:
		w.Sunday = shifts
	}
}

// Clone deep-copies all shift arrays, including occupant slices.
func (w *WeekShifts) Clone() WeekShifts {
	var out WeekShifts
	for _, day := range Weekdays {
		src := w.Day(day)
		if src == nil {
			continue
		}
		dst := make([]Shift, len(src))
		for i, shift := range src {
			dst[i] = shift
			if shift.Occupants != nil {
				occupants := make([]string, len(shift.Occupants))
				copy(occupants, shift.Occupants)
				dst[i].Occupants = occupants
			}
		}
		out.SetDay(day, dst)
	}
	return out
}

// Schedule is the weekly schedule document: the configured interval plus the
// generated shifts grouped by weekday. At most one schedule is active at a
// time; creating a new one replaces the previous schedule entirely.
type Schedule struct {
	ScheduleID int `json:"schedule_id"`
	WorkInterval
	WeekShifts
	State     ScheduleState `json:"state"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// FindShift locates a shift by its rendered ID across all weekdays. The
// returned pointer aliases the schedule's backing array.
func (s *Schedule) FindShift(id string) *Shift {
	parsed, err := ParseShiftID(id)
	if err != nil {
		return nil
	}
	shifts := s.Day(parsed.Day)
	for i := range shifts {
		if shifts[i].ID == parsed {
			return &shifts[i]
		}
	}
	return nil
}

// ShiftBySlotKey locates a shift by its canonical slot key.
func (s *Schedule) ShiftBySlotKey(key string) *Shift {
	for _, day := range Weekdays {
		shifts := s.Day(day)
		for i := range shifts {
			if shifts[i].SlotKey() == key {
				return &shifts[i]
			}
		}
	}
	return nil
}
