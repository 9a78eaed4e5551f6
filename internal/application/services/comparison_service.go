package services

import (
	"context"
	"strings"
	"time"

	"github.com/zatekoja/Medicalreportanalysis/backend/internal/application/oracle"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/domain/entities"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/domain/repositories"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/Medicalreportanalysis/backend/pkg/errors"
)

// ComparisonService asks the oracle for a structured diff of two reports
// belonging to the same patient.
type ComparisonService struct {
	repo  repositories.ReportRepository
	chain *oracle.Chain
}

// NewComparisonService creates a new comparison service. Only the primary
// provider of chain is used, so each comparison makes one oracle call.
func NewComparisonService(repo repositories.ReportRepository, chain *oracle.Chain) *ComparisonService {
	return &ComparisonService{
		repo:  repo,
		chain: chain.Primary(),
	}
}

// Compare returns the comparison of reportID1 and reportID2. Both reports
// are looked up before either result is checked so the response does not
// depend on which id failed.
func (s *ComparisonService) Compare(ctx context.Context, identity entities.Identity, reportID1, reportID2 string) (*entities.ReportComparison, error) {
	ctx, span := observability.StartSpan(ctx, "comparison.compare")
	defer span.End()

	if !identity.IsPatient() {
		return nil, apperrors.NewForbiddenError("only patients can compare reports")
	}
	reportID1 = strings.TrimSpace(reportID1)
	reportID2 = strings.TrimSpace(reportID2)
	if reportID1 == "" || reportID2 == "" {
		return nil, apperrors.NewValidationError("two report ids are required for comparison")
	}
	if reportID1 == reportID2 {
		return nil, apperrors.NewValidationError("a report cannot be compared with itself")
	}

	report1, err1 := s.repo.GetByID(ctx, reportID1, identity)
	report2, err2 := s.repo.GetByID(ctx, reportID2, identity)
	for _, err := range []error{err1, err2} {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			return nil, apperrors.NewNotFoundError("one or both reports not found")
		}
	}
	for _, err := range []error{err1, err2} {
		if err != nil {
			return nil, err
		}
	}

	earlier, later := report1, report2
	if later.ReportDate.Before(earlier.ReportDate) {
		earlier, later = later, earlier
	}

	logger := observability.LoggerFromContext(ctx)
	start := time.Now()
	result, attempts, err := oracle.Run(ctx, s.chain, oracle.BuildComparisonPrompt(earlier, later), oracle.ParseComparisonResult)
	if err != nil {
		observability.RecordError(span, err)
		logger.Error().
			Err(err).
			Str("report_id_1", reportID1).
			Str("report_id_2", reportID2).
			Int("attempts", len(attempts)).
			Dur("duration", time.Since(start)).
			Msg("report comparison failed")
		return nil, apperrors.NewComparisonError("the reports could not be compared, please try again later", err)
	}

	return &entities.ReportComparison{
		Report1:    referenceOf(report1),
		Report2:    referenceOf(report2),
		Comparison: result,
	}, nil
}

func referenceOf(report *entities.Report) entities.ReportReference {
	return entities.ReportReference{
		ID:   report.ID,
		Name: report.ReportName,
		Date: report.ReportDate.Format("2006-01-02"),
	}
}
