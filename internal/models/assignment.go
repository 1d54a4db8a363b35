package models

// AssignmentPreference is one (shift, level) pair inside the dense weekly
// vector sent to the assignment algorithm.
type AssignmentPreference struct {
	ShiftID string          `json:"shift_id"`
	Level   PreferenceLevel `json:"preference"`
}

// AssignmentTA bundles a TA's identity, eligibility and dense preference
// vector for the algorithm.
type AssignmentTA struct {
	TAID        string                 `json:"ta_id"`
	RoleLevel   RoleLevel              `json:"lab_perm"`
	Preferences []AssignmentPreference `json:"preferences"`
}

// AssignmentShift describes one shift's demand to the algorithm.
type AssignmentShift struct {
	ShiftID   string    `json:"shift_id"`
	Day       string    `json:"day"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	Role      ShiftRole `json:"role,omitempty"`
	IsEmpty   bool      `json:"is_empty"`
	Capacity  Staffing  `json:"staffing_capacity"`
}

// AssignmentRequest is the full payload the matching contract exposes: every
// TA with role eligibility and a dense preference vector, plus every shift
// with capacity and role requirements.
type AssignmentRequest struct {
	ScheduleID int               `json:"schedule_id"`
	TAs        []AssignmentTA    `json:"tas"`
	Shifts     []AssignmentShift `json:"shifts"`
}

// ValidatedAssignment is a conflict-free occupant mapping, keyed by rendered
// shift ID. Occupant lists are sorted and deduplicated so applying the same
// assignment twice is a no-op.
type ValidatedAssignment struct {
	ScheduleID int                 `json:"schedule_id"`
	Occupants  map[string][]string `json:"occupants"`
}

// Violation kinds reported when an assignment result breaks the contract.
const (
	ViolationCapacityExceeded = "CAPACITY_EXCEEDED"
	ViolationRoleIneligible   = "ROLE_INELIGIBLE"
	ViolationOverlap          = "OVERLAPPING_SHIFTS"
	ViolationUnknownTA        = "UNKNOWN_TA"
)

// AssignmentViolation pinpoints one contract breach in a returned assignment.
type AssignmentViolation struct {
	Kind    string `json:"kind"`
	ShiftID string `json:"shift_id"`
	TAID    string `json:"ta_id"`
	Message string `json:"message"`
}

// ContractViolationError is returned when the algorithm's result fails
// validation. The dispatch is fatal; nothing is written back.
type ContractViolationError struct {
	Violations []AssignmentViolation `json:"violations"`
}

// Error implements the error interface.
func (e *ContractViolationError) Error() string {
	if e == nil || len(e.Violations) == 0 {
		return "assignment contract violation"
	}
	return e.Violations[0].Message
}
