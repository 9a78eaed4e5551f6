package entities

import (
	"strings"
	"time"
)

// ReportType is the declared kind of an uploaded medical document
type ReportType string

const (
	ReportTypeBloodTest    ReportType = "BloodTest"
	ReportTypeXRay         ReportType = "XRay"
	ReportTypeMRI          ReportType = "MRI"
	ReportTypeCTScan       ReportType = "CTScan"
	ReportTypePrescription ReportType = "Prescription"
	ReportTypeOther        ReportType = "Other"
)

var reportTypeLookup = map[string]ReportType{
	"bloodtest":    ReportTypeBloodTest,
	"xray":         ReportTypeXRay,
	"mri":          ReportTypeMRI,
	"ctscan":       ReportTypeCTScan,
	"prescription": ReportTypePrescription,
	"other":        ReportTypeOther,
}

// ParseReportType accepts enum identifiers ("BloodTest") as well as display
// labels ("Blood Test", "X-Ray", "CT Scan").
func ParseReportType(value string) (ReportType, bool) {
	key := strings.NewReplacer(" ", "", "-", "", "_", "").Replace(strings.ToLower(strings.TrimSpace(value)))
	t, ok := reportTypeLookup[key]
	return t, ok
}

// Label returns the human readable name of the report type
func (t ReportType) Label() string {
	switch t {
	case ReportTypeBloodTest:
		return "Blood Test"
	case ReportTypeXRay:
		return "X-Ray"
	case ReportTypeCTScan:
		return "CT Scan"
	default:
		return string(t)
	}
}

// ReportMetadata is what the uploader declares about a document
type ReportMetadata struct {
	Name string     `json:"name"`
	Type ReportType `json:"type"`
	Date time.Time  `json:"date"`
}

// Report is a stored, analyzed medical document owned by a patient
type Report struct {
	ID           string       `json:"id" db:"id"`
	PatientID    string       `json:"patient_id" db:"patient_id"`
	ReportName   string       `json:"report_name" db:"report_name"`
	ReportType   ReportType   `json:"report_type" db:"report_type"`
	ReportDate   time.Time    `json:"report_date" db:"report_date"`
	DocumentRef  string       `json:"document_ref" db:"document_ref"`
	RawText      string       `json:"raw_text,omitempty" db:"raw_text"`
	AnalyzedData AnalyzedData `json:"analyzed_data" db:"analyzed_data"`
	IsAbnormal   bool         `json:"is_abnormal" db:"is_abnormal"`
	Review       ReviewState  `json:"review"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at" db:"updated_at"`
}

// NewReport builds a report in the pending review state. The abnormality
// flag is derived here and never recomputed.
func NewReport(id, patientID string, meta ReportMetadata, documentRef, rawText string, data AnalyzedData, now time.Time) *Report {
	return &Report{
		ID:           id,
		PatientID:    patientID,
		ReportName:   meta.Name,
		ReportType:   meta.Type,
		ReportDate:   meta.Date,
		DocumentRef:  documentRef,
		RawText:      rawText,
		AnalyzedData: data,
		IsAbnormal:   data.IsAbnormal(),
		Review:       ReviewState{Status: ReviewStatusPending},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// VisibleTo reports whether the identity may read the report: the owning
// patient always, the assigned doctor once a review was requested.
func (r *Report) VisibleTo(identity Identity) bool {
	switch identity.Role {
	case RolePatient:
		return r.PatientID == identity.SubjectID
	case RoleDoctor:
		return r.Review.Status != ReviewStatusPending && r.Review.AssignedDoctorID == identity.SubjectID
	default:
		return false
	}
}
