package services

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/zatekoja/Medicalreportanalysis/backend/internal/domain/entities"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/domain/providers"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/domain/repositories"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/Medicalreportanalysis/backend/pkg/errors"
)

const maxReviewNotesLength = 5000

// ReviewService drives the pending -> requested -> reviewed workflow. The
// state checks live in the repository's conditional updates.
type ReviewService struct {
	repo     repositories.ReportRepository
	eventBus providers.EventBus
	now      func() time.Time
}

// NewReviewService creates a new review service
func NewReviewService(repo repositories.ReportRepository) *ReviewService {
	return &ReviewService{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// SetEventBus enables review notifications
func (s *ReviewService) SetEventBus(bus providers.EventBus) {
	s.eventBus = bus
}

// RequestReview assigns doctorID to a report owned by the calling patient.
// Re-requesting an outstanding review moves it to the new doctor.
func (s *ReviewService) RequestReview(ctx context.Context, identity entities.Identity, reportID, doctorID string) (*entities.Report, error) {
	if !identity.IsPatient() {
		return nil, apperrors.NewForbiddenError("only patients can request a review")
	}
	reportID = strings.TrimSpace(reportID)
	doctorID = strings.TrimSpace(doctorID)
	if reportID == "" {
		return nil, apperrors.NewValidationError("report id is required")
	}
	if doctorID == "" {
		return nil, apperrors.NewValidationError("doctorId is required")
	}

	report, err := s.repo.RequestReview(ctx, reportID, identity.SubjectID, doctorID, s.now())
	if err != nil {
		logTransitionFailure(ctx, err, "review request rejected", reportID)
		return nil, err
	}

	observability.LoggerFromContext(ctx).Info().
		Str("report_id", reportID).
		Str("doctor_id", doctorID).
		Msg("review requested")
	publishReportEvent(ctx, s.eventBus, report, entities.ReportEventTypeReviewRequested)
	return report, nil
}

// SubmitReview records the assigned doctor's notes and closes the review
func (s *ReviewService) SubmitReview(ctx context.Context, identity entities.Identity, reportID, notes string) (*entities.Report, error) {
	if !identity.IsDoctor() {
		return nil, apperrors.NewForbiddenError("only doctors can submit a review")
	}
	reportID = strings.TrimSpace(reportID)
	notes = strings.TrimSpace(notes)
	if reportID == "" {
		return nil, apperrors.NewValidationError("report id is required")
	}
	if notes == "" {
		return nil, apperrors.NewValidationError("notes are required")
	}
	if utf8.RuneCountInString(notes) > maxReviewNotesLength {
		return nil, apperrors.NewValidationError("notes are too long")
	}

	report, err := s.repo.SubmitReview(ctx, reportID, identity.SubjectID, notes, s.now())
	if err != nil {
		logTransitionFailure(ctx, err, "review submission rejected", reportID)
		return nil, err
	}

	observability.LoggerFromContext(ctx).Info().
		Str("report_id", reportID).
		Str("doctor_id", identity.SubjectID).
		Msg("review submitted")
	publishReportEvent(ctx, s.eventBus, report, entities.ReportEventTypeReviewSubmitted)
	return report, nil
}

func logTransitionFailure(ctx context.Context, err error, msg, reportID string) {
	logger := observability.LoggerFromContext(ctx)
	event := logger.Warn()
	if apperrors.IsType(err, apperrors.ErrorTypePersistence) || apperrors.IsType(err, apperrors.ErrorTypeInternal) {
		event = logger.Error()
	}
	event.Err(err).Str("report_id", reportID).Msg(msg)
}
