package models

import "time"

// PreferenceLevel is a TA's stated interest in a slot.
type PreferenceLevel int

const (
	PreferenceUnavailable PreferenceLevel = 0
	PreferenceAvailable   PreferenceLevel = 1
	PreferencePreferred   PreferenceLevel = 2
)

// Valid reports whether the level is one of the three recognised values.
func (l PreferenceLevel) Valid() bool {
	return l >= PreferenceUnavailable && l <= PreferencePreferred
}

// PreferenceEntry is one decoded slot preference. ShiftID stays empty until
// the entry is resolved against a generated schedule grid.
type PreferenceEntry struct {
	ShiftID  string          `json:"shift_id"`
	TimeSlot string          `json:"time_slots"`
	Level    PreferenceLevel `json:"preference"`
}

// TA is a teaching assistant with their submitted weekly preferences. The
// preference list is replaced wholesale on each submission, so resubmitting
// is idempotent.
type TA struct {
	TAID            string            `json:"ta_id"`
	FirstName       string            `json:"first_name"`
	LastName        string            `json:"last_name"`
	IsTF            bool              `json:"is_tf"`
	RoleLevel       RoleLevel         `json:"lab_perm"`
	Preferences     []PreferenceEntry `json:"preferences"`
	ConfirmedShifts []string          `json:"confirmed_shifts"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}
