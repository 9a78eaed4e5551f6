package database_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/adapters/database"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/domain/entities"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/domain/repositories"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/Medicalreportanalysis/backend/pkg/errors"
)

var reportRowColumns = []string{
	"id", "patient_id", "report_name", "report_type", "report_date",
	"document_ref", "analyzed_data", "is_abnormal",
	"review_status", "assigned_doctor_id", "review_requested_at", "reviewed_at", "review_notes",
	"created_at", "updated_at",
}

const analyzedJSON = `{"reportDate":"2024-03-01","parameters":[{"name":"WBC","value":"14.2","unit":"10^9/L","category":"Hematology"}],"summary":"Elevated WBC","redFlags":["High WBC"]}`

func newReportAdapter(t *testing.T) (repositories.ReportRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return database.NewReportAdapter(postgres.NewClientFromDB(db), nil), mock
}

func reportRow(status string, doctor interface{}, reviewedAt interface{}, notes interface{}) *sqlmock.Rows {
	now := time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)
	var requestedAt interface{}
	if doctor != nil {
		requestedAt = now
	}
	return sqlmock.NewRows(reportRowColumns).AddRow(
		"report-1", "patient-1", "CBC March", "BloodTest", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		"reports/patient-1/report-1.pdf", []byte(analyzedJSON), true,
		status, doctor, requestedAt, reviewedAt, notes,
		now, now,
	)
}

func TestReportAdapter_Create(t *testing.T) {
	adapter, mock := newReportAdapter(t)
	now := time.Now().UTC()
	report := entities.NewReport("report-1", "patient-1", entities.ReportMetadata{
		Name: "CBC March",
		Type: entities.ReportTypeBloodTest,
		Date: now,
	}, "reports/patient-1/report-1.pdf", "WBC 14.2", entities.AnalyzedData{
		Summary:  "Elevated WBC",
		RedFlags: []string{"High WBC"},
	}, now)

	mock.ExpectExec(`INSERT INTO "reports"`).WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, adapter.Create(context.Background(), report))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportAdapter_Create_StoreUnavailable(t *testing.T) {
	adapter, mock := newReportAdapter(t)
	now := time.Now().UTC()
	report := entities.NewReport("report-1", "patient-1", entities.ReportMetadata{Name: "CBC", Type: entities.ReportTypeBloodTest, Date: now}, "ref", "", entities.AnalyzedData{}, now)

	mock.ExpectExec(`INSERT INTO "reports"`).WillReturnError(errors.New("connection refused"))

	err := adapter.Create(context.Background(), report)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypePersistence))
}

func TestReportAdapter_GetByID(t *testing.T) {
	t.Run("owner reads report", func(t *testing.T) {
		adapter, mock := newReportAdapter(t)
		mock.ExpectQuery(`SELECT .* FROM "reports" WHERE .*"patient_id" = 'patient-1'`).
			WillReturnRows(reportRow("pending", nil, nil, nil))

		report, err := adapter.GetByID(context.Background(), "report-1", entities.Identity{SubjectID: "patient-1", Role: entities.RolePatient})
		require.NoError(t, err)

		assert.Equal(t, entities.ReportTypeBloodTest, report.ReportType)
		assert.True(t, report.IsAbnormal)
		assert.Equal(t, []string{"High WBC"}, report.AnalyzedData.RedFlags)
		assert.Equal(t, "14.2", report.AnalyzedData.Parameters[0].Value)
		assert.Equal(t, entities.ReviewStatusPending, report.Review.Status)
		assert.Empty(t, report.Review.AssignedDoctorID)
		assert.Nil(t, report.Review.RequestedAt)
		assert.Empty(t, report.RawText)
	})

	t.Run("doctor filter excludes pending reports", func(t *testing.T) {
		adapter, mock := newReportAdapter(t)
		mock.ExpectQuery(`SELECT .* FROM "reports" WHERE .*"assigned_doctor_id" = 'D1'.*"review_status" != 'pending'`).
			WillReturnRows(sqlmock.NewRows(reportRowColumns))

		_, err := adapter.GetByID(context.Background(), "report-1", entities.Identity{SubjectID: "D1", Role: entities.RoleDoctor})
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown role is not found without a query", func(t *testing.T) {
		adapter, mock := newReportAdapter(t)

		_, err := adapter.GetByID(context.Background(), "report-1", entities.Identity{SubjectID: "x"})
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestReportAdapter_RequestReview(t *testing.T) {
	at := time.Now().UTC()

	t.Run("assigns doctor", func(t *testing.T) {
		adapter, mock := newReportAdapter(t)
		mock.ExpectQuery(`UPDATE "reports" SET .* WHERE .*"review_status" IN \('pending', 'requested'\).* RETURNING`).
			WillReturnRows(reportRow("requested", "D1", nil, nil))

		report, err := adapter.RequestReview(context.Background(), "report-1", "patient-1", "D1", at)
		require.NoError(t, err)

		assert.Equal(t, entities.ReviewStatusRequested, report.Review.Status)
		assert.Equal(t, "D1", report.Review.AssignedDoctorID)
		assert.NotNil(t, report.Review.RequestedAt)
	})

	t.Run("not the caller's report", func(t *testing.T) {
		adapter, mock := newReportAdapter(t)
		mock.ExpectQuery(`UPDATE "reports"`).WillReturnRows(sqlmock.NewRows(reportRowColumns))
		mock.ExpectQuery(`SELECT "id" FROM "reports"`).WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := adapter.RequestReview(context.Background(), "report-1", "patient-2", "D1", at)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already reviewed", func(t *testing.T) {
		adapter, mock := newReportAdapter(t)
		mock.ExpectQuery(`UPDATE "reports"`).WillReturnRows(sqlmock.NewRows(reportRowColumns))
		mock.ExpectQuery(`SELECT "id" FROM "reports"`).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("report-1"))

		_, err := adapter.RequestReview(context.Background(), "report-1", "patient-1", "D1", at)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeReviewConflict))
	})
}

func TestReportAdapter_SubmitReview(t *testing.T) {
	at := time.Now().UTC()

	t.Run("conditional update succeeds", func(t *testing.T) {
		adapter, mock := newReportAdapter(t)
		mock.ExpectQuery(`UPDATE "reports" SET .* WHERE .*"assigned_doctor_id" = 'D1'.*"review_status" = 'requested'.* RETURNING`).
			WillReturnRows(reportRow("reviewed", "D1", at, "Recheck in 2 weeks"))

		report, err := adapter.SubmitReview(context.Background(), "report-1", "D1", "Recheck in 2 weeks", at)
		require.NoError(t, err)

		assert.Equal(t, entities.ReviewStatusReviewed, report.Review.Status)
		assert.Equal(t, "Recheck in 2 weeks", report.Review.Notes)
		require.NotNil(t, report.Review.ReviewedAt)
		assert.True(t, report.IsAbnormal)
	})

	t.Run("no match on existing report is a conflict", func(t *testing.T) {
		adapter, mock := newReportAdapter(t)
		mock.ExpectQuery(`UPDATE "reports"`).WillReturnRows(sqlmock.NewRows(reportRowColumns))
		mock.ExpectQuery(`SELECT "id" FROM "reports"`).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("report-1"))

		_, err := adapter.SubmitReview(context.Background(), "report-1", "D2", "notes", at)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeReviewConflict))
	})

	t.Run("missing report", func(t *testing.T) {
		adapter, mock := newReportAdapter(t)
		mock.ExpectQuery(`UPDATE "reports"`).WillReturnRows(sqlmock.NewRows(reportRowColumns))
		mock.ExpectQuery(`SELECT "id" FROM "reports"`).WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := adapter.SubmitReview(context.Background(), "missing", "D1", "notes", at)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
	})

	t.Run("store error", func(t *testing.T) {
		adapter, mock := newReportAdapter(t)
		mock.ExpectQuery(`UPDATE "reports"`).WillReturnError(errors.New("timeout"))

		_, err := adapter.SubmitReview(context.Background(), "report-1", "D1", "notes", at)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypePersistence))
	})
}
