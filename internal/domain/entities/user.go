package entities

// Role is the kind of subject making a request
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
)

// Identity is the verified caller of an operation
type Identity struct {
	SubjectID string `json:"subject_id"`
	Role      Role   `json:"role"`
}

// IsPatient reports whether the identity is a patient
func (i Identity) IsPatient() bool {
	return i.Role == RolePatient
}

// IsDoctor reports whether the identity is a doctor
func (i Identity) IsDoctor() bool {
	return i.Role == RoleDoctor
}
