package entities

import (
	"time"

	"github.com/google/uuid"
)

// ReportEventType represents the type of report lifecycle event
type ReportEventType string

const (
	ReportEventTypeCreated         ReportEventType = "report_created"
	ReportEventTypeReviewRequested ReportEventType = "review_requested"
	ReportEventTypeReviewSubmitted ReportEventType = "review_submitted"
)

// ReportEvent is published when a report or its review state changes
type ReportEvent struct {
	ID         string                 `json:"id"`
	ReportID   string                 `json:"report_id"`
	PatientID  string                 `json:"patient_id"`
	DoctorID   string                 `json:"doctor_id,omitempty"`
	EventType  ReportEventType        `json:"event_type"`
	Timestamp  time.Time              `json:"timestamp"`
	IsAbnormal bool                   `json:"is_abnormal"`
	Fields     map[string]interface{} `json:"fields,omitempty"`
}

// NewReportEvent creates a new event for the given report
func NewReportEvent(report *Report, eventType ReportEventType) *ReportEvent {
	return &ReportEvent{
		ID:         uuid.New().String(),
		ReportID:   report.ID,
		PatientID:  report.PatientID,
		DoctorID:   report.Review.AssignedDoctorID,
		EventType:  eventType,
		Timestamp:  time.Now().UTC(),
		IsAbnormal: report.IsAbnormal,
		Fields: map[string]interface{}{
			"report_name":   report.ReportName,
			"review_status": string(report.Review.Status),
		},
	}
}
