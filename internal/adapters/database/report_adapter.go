package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/domain/entities"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/domain/repositories"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/Medicalreportanalysis/backend/pkg/errors"
)

const reportsTable = "reports"

// raw_text is written on create but never selected.
var reportColumns = []interface{}{
	"id", "patient_id", "report_name", "report_type", "report_date",
	"document_ref", "analyzed_data", "is_abnormal",
	"review_status", "assigned_doctor_id", "review_requested_at", "reviewed_at", "review_notes",
	"created_at", "updated_at",
}

// ReportAdapter implements ReportRepository on PostgreSQL
type ReportAdapter struct {
	client  *postgres.Client
	db      *goqu.Database
	metrics *observability.Metrics
}

// NewReportAdapter creates a new report adapter
// metrics may be nil.
func NewReportAdapter(client *postgres.Client, metrics *observability.Metrics) repositories.ReportRepository {
	return &ReportAdapter{
		client:  client,
		db:      goqu.New("postgres", client.DB()),
		metrics: metrics,
	}
}

// Create inserts a new report
func (a *ReportAdapter) Create(ctx context.Context, report *entities.Report) error {
	if report == nil {
		return apperrors.NewInternalError("report is nil", fmt.Errorf("report is nil"))
	}

	data, err := json.Marshal(report.AnalyzedData)
	if err != nil {
		return apperrors.NewInternalError("failed to encode analyzed data", err)
	}

	record := goqu.Record{
		"id":                  report.ID,
		"patient_id":          report.PatientID,
		"report_name":         report.ReportName,
		"report_type":         string(report.ReportType),
		"report_date":         report.ReportDate,
		"document_ref":        report.DocumentRef,
		"raw_text":            report.RawText,
		"analyzed_data":       string(data),
		"is_abnormal":         report.IsAbnormal,
		"review_status":       string(report.Review.Status),
		"assigned_doctor_id":  nullString(report.Review.AssignedDoctorID),
		"review_requested_at": nullTime(report.Review.RequestedAt),
		"reviewed_at":         nullTime(report.Review.ReviewedAt),
		"review_notes":        nullString(report.Review.Notes),
		"created_at":          report.CreatedAt,
		"updated_at":          report.UpdatedAt,
	}

	query, args, err := a.db.Insert(reportsTable).Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build report insert query", err)
	}

	start := time.Now()
	_, err = a.client.DB().ExecContext(ctx, query, args...)
	observability.RecordDBMetric(ctx, a.metrics, "reports.insert", time.Since(start))
	if err != nil {
		return apperrors.NewPersistenceError("failed to create report", err)
	}

	return nil
}

// GetByID returns a report if identity may see it. Anything else, including
// a report owned by someone else, is reported as not found.
func (a *ReportAdapter) GetByID(ctx context.Context, id string, identity entities.Identity) (*entities.Report, error) {
	where := goqu.Ex{"id": id}
	switch identity.Role {
	case entities.RolePatient:
		where["patient_id"] = identity.SubjectID
	case entities.RoleDoctor:
		where["assigned_doctor_id"] = identity.SubjectID
		where["review_status"] = goqu.Op{"neq": string(entities.ReviewStatusPending)}
	default:
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("report with id %s not found", id))
	}

	query, args, err := a.db.From(reportsTable).
		Select(reportColumns...).
		Where(where).
		Limit(1).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build report select query", err)
	}

	start := time.Now()
	report, err := scanReport(a.client.DB().QueryRowContext(ctx, query, args...))
	observability.RecordDBMetric(ctx, a.metrics, "reports.select", time.Since(start))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("report with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to get report", err)
	}

	return report, nil
}

// RequestReview assigns doctorID in one conditional update keyed on the
// owner and a status that still allows a request.
func (a *ReportAdapter) RequestReview(ctx context.Context, id, patientID, doctorID string, at time.Time) (*entities.Report, error) {
	query, args, err := a.db.Update(reportsTable).
		Set(goqu.Record{
			"review_status":       string(entities.ReviewStatusRequested),
			"assigned_doctor_id":  doctorID,
			"review_requested_at": at,
			"reviewed_at":         nil,
			"review_notes":        nil,
			"updated_at":          at,
		}).
		Where(goqu.Ex{
			"id":         id,
			"patient_id": patientID,
			"review_status": []string{
				string(entities.ReviewStatusPending),
				string(entities.ReviewStatusRequested),
			},
		}).
		Returning(reportColumns...).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build review request query", err)
	}

	report, err := a.conditionalUpdate(ctx, query, args)
	if err != nil {
		return nil, err
	}
	if report != nil {
		return report, nil
	}

	// Nothing matched: either the report is not the caller's or it is already reviewed.
	exists, err := a.exists(ctx, goqu.Ex{"id": id, "patient_id": patientID})
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("report with id %s not found", id))
	}
	return nil, apperrors.NewReviewConflictError(fmt.Sprintf("report %s has already been reviewed", id))
}

// SubmitReview completes the review in a single UPDATE ... WHERE id AND
// assigned doctor AND status = requested, so concurrent submissions cannot
// both match.
func (a *ReportAdapter) SubmitReview(ctx context.Context, id, doctorID, notes string, at time.Time) (*entities.Report, error) {
	query, args, err := a.db.Update(reportsTable).
		Set(goqu.Record{
			"review_status": string(entities.ReviewStatusReviewed),
			"reviewed_at":   at,
			"review_notes":  notes,
			"updated_at":    at,
		}).
		Where(goqu.Ex{
			"id":                 id,
			"assigned_doctor_id": doctorID,
			"review_status":      string(entities.ReviewStatusRequested),
		}).
		Returning(reportColumns...).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build review submit query", err)
	}

	report, err := a.conditionalUpdate(ctx, query, args)
	if err != nil {
		return nil, err
	}
	if report != nil {
		return report, nil
	}

	exists, err := a.exists(ctx, goqu.Ex{"id": id})
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("report with id %s not found", id))
	}
	return nil, apperrors.NewReviewConflictError(fmt.Sprintf("report %s is not awaiting a review by this doctor", id))
}

// conditionalUpdate runs an UPDATE ... RETURNING and returns nil, nil when
// no row matched.
func (a *ReportAdapter) conditionalUpdate(ctx context.Context, query string, args []interface{}) (*entities.Report, error) {
	start := time.Now()
	report, err := scanReport(a.client.DB().QueryRowContext(ctx, query, args...))
	observability.RecordDBMetric(ctx, a.metrics, "reports.update", time.Since(start))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewPersistenceError("failed to update report review", err)
	}
	return report, nil
}

func (a *ReportAdapter) exists(ctx context.Context, where goqu.Ex) (bool, error) {
	query, args, err := a.db.From(reportsTable).Select("id").Where(where).Limit(1).ToSQL()
	if err != nil {
		return false, apperrors.NewInternalError("failed to build report lookup query", err)
	}

	var id string
	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, apperrors.NewPersistenceError("failed to look up report", err)
	}
	return true, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReport(row rowScanner) (*entities.Report, error) {
	var (
		report       entities.Report
		reportType   string
		reviewStatus string
		analyzedData []byte
		doctorID     sql.NullString
		requestedAt  sql.NullTime
		reviewedAt   sql.NullTime
		notes        sql.NullString
	)

	err := row.Scan(
		&report.ID,
		&report.PatientID,
		&report.ReportName,
		&reportType,
		&report.ReportDate,
		&report.DocumentRef,
		&analyzedData,
		&report.IsAbnormal,
		&reviewStatus,
		&doctorID,
		&requestedAt,
		&reviewedAt,
		&notes,
		&report.CreatedAt,
		&report.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(analyzedData, &report.AnalyzedData); err != nil {
		return nil, fmt.Errorf("failed to decode analyzed data: %w", err)
	}

	report.ReportType = entities.ReportType(reportType)
	report.Review = entities.ReviewState{
		Status:           entities.ReviewStatus(reviewStatus),
		AssignedDoctorID: doctorID.String,
		Notes:            notes.String,
	}
	if requestedAt.Valid {
		t := requestedAt.Time
		report.Review.RequestedAt = &t
	}
	if reviewedAt.Valid {
		t := reviewedAt.Time
		report.Review.ReviewedAt = &t
	}

	return &report, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
