package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/zatekoja/Medicalreportanalysis/backend/internal/domain/entities"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/Medicalreportanalysis/backend/pkg/errors"
)

// ReportStore is a process-local ReportRepository used for development and
// tests. Conditional updates hold the write lock for the check and the write.
type ReportStore struct {
	mu      sync.RWMutex
	reports map[string]*entities.Report
}

var _ repositories.ReportRepository = (*ReportStore)(nil)

// NewReportStore creates an empty store
func NewReportStore() *ReportStore {
	return &ReportStore{reports: make(map[string]*entities.Report)}
}

// Create stores a copy of report
func (s *ReportStore) Create(ctx context.Context, report *entities.Report) error {
	if report == nil {
		return apperrors.NewInternalError("report is nil", fmt.Errorf("report is nil"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reports[report.ID]; ok {
		return apperrors.NewConflictError(fmt.Sprintf("report with id %s already exists", report.ID))
	}
	s.reports[report.ID] = clone(report)
	return nil
}

// GetByID returns the report when identity may see it
func (s *ReportStore) GetByID(ctx context.Context, id string, identity entities.Identity) (*entities.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report, ok := s.reports[id]
	if !ok || !report.VisibleTo(identity) {
		return nil, notFound(id)
	}
	return publicCopy(report), nil
}

// RequestReview assigns doctorID if patientID owns a report that is not yet reviewed
func (s *ReportStore) RequestReview(ctx context.Context, id, patientID, doctorID string, at time.Time) (*entities.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report, ok := s.reports[id]
	if !ok || report.PatientID != patientID {
		return nil, notFound(id)
	}
	if !report.Review.CanRequest() {
		return nil, apperrors.NewReviewConflictError(fmt.Sprintf("report %s has already been reviewed", id))
	}

	report.Review = report.Review.Requested(doctorID, at)
	report.UpdatedAt = at
	return publicCopy(report), nil
}

// SubmitReview marks the report reviewed if doctorID is assigned and the review is outstanding
func (s *ReportStore) SubmitReview(ctx context.Context, id, doctorID, notes string, at time.Time) (*entities.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report, ok := s.reports[id]
	if !ok {
		return nil, notFound(id)
	}
	if !report.Review.CanSubmit(doctorID) {
		return nil, apperrors.NewReviewConflictError(fmt.Sprintf("report %s is not awaiting a review by this doctor", id))
	}

	report.Review = report.Review.Reviewed(notes, at)
	report.UpdatedAt = at
	return publicCopy(report), nil
}

// Len returns the number of stored reports
func (s *ReportStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reports)
}

func publicCopy(report *entities.Report) *entities.Report {
	out := clone(report)
	out.RawText = ""
	return out
}

// clone copies report so that neither side can change the other
func clone(report *entities.Report) *entities.Report {
	out := *report
	out.AnalyzedData = report.AnalyzedData.Clone()
	if t := report.Review.RequestedAt; t != nil {
		at := *t
		out.Review.RequestedAt = &at
	}
	if t := report.Review.ReviewedAt; t != nil {
		at := *t
		out.Review.ReviewedAt = &at
	}
	return &out
}

func notFound(id string) error {
	return apperrors.NewNotFoundError(fmt.Sprintf("report with id %s not found", id))
}
