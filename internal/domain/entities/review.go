package entities

import "time"

// ReviewStatus is the doctor review lifecycle of a report
type ReviewStatus string

const (
	ReviewStatusPending   ReviewStatus = "pending"
	ReviewStatusRequested ReviewStatus = "requested"
	ReviewStatusReviewed  ReviewStatus = "reviewed"
)

// ReviewState is the review sub-state of a report.
// AssignedDoctorID is set iff Status != pending; ReviewedAt and Notes iff Status == reviewed.
type ReviewState struct {
	Status           ReviewStatus `json:"status" db:"review_status"`
	AssignedDoctorID string       `json:"assigned_doctor_id,omitempty" db:"assigned_doctor_id"`
	RequestedAt      *time.Time   `json:"requested_at,omitempty" db:"review_requested_at"`
	ReviewedAt       *time.Time   `json:"reviewed_at,omitempty" db:"reviewed_at"`
	Notes            string       `json:"notes,omitempty" db:"review_notes"`
}

// CanRequest reports whether a (re-)request is allowed from the current state
func (s ReviewState) CanRequest() bool {
	return s.Status == ReviewStatusPending || s.Status == ReviewStatusRequested
}

// CanSubmit reports whether doctorID may complete the review
func (s ReviewState) CanSubmit(doctorID string) bool {
	return s.Status == ReviewStatusRequested && s.AssignedDoctorID == doctorID
}

// Requested returns the state after assigning doctorID
func (s ReviewState) Requested(doctorID string, at time.Time) ReviewState {
	return ReviewState{
		Status:           ReviewStatusRequested,
		AssignedDoctorID: doctorID,
		RequestedAt:      &at,
	}
}

// Reviewed returns the state after the assigned doctor submits notes
func (s ReviewState) Reviewed(notes string, at time.Time) ReviewState {
	return ReviewState{
		Status:           ReviewStatusReviewed,
		AssignedDoctorID: s.AssignedDoctorID,
		RequestedAt:      s.RequestedAt,
		ReviewedAt:       &at,
		Notes:            notes,
	}
}
