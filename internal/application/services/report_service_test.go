package services_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/adapters/memory"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/application/services"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/domain/entities"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/domain/providers"
	apperrors "github.com/zatekoja/Medicalreportanalysis/backend/pkg/errors"
)

type failingCreateStore struct {
	*memory.ReportStore
	err error
}

func (s *failingCreateStore) Create(ctx context.Context, report *entities.Report) error {
	return s.err
}

type pipeline struct {
	service  *services.ReportService
	store    *memory.ReportStore
	docs     *memoryDocumentStore
	events   *recordingEventBus
	primary  *stubTextAnalyzer
	fallback *stubTextAnalyzer
}

func newPipeline(primaryReply, fallbackReply string) *pipeline {
	p := &pipeline{
		store:    memory.NewReportStore(),
		docs:     newMemoryDocumentStore(),
		events:   newRecordingEventBus(),
		primary:  &stubTextAnalyzer{name: "primary", replies: []string{primaryReply}},
		fallback: &stubTextAnalyzer{name: "fallback", replies: []string{fallbackReply}},
	}
	analysis := services.NewAnalysisService(newChain(p.primary, p.fallback), 0)
	p.service = services.NewReportService(p.store, &stubExtractor{}, analysis, p.docs)
	p.service.SetEventBus(p.events)
	return p
}

func TestReportService_Upload_AbnormalReport(t *testing.T) {
	p := newPipeline(highWBCAnalysis, normalAnalysis)

	report, err := p.service.Upload(context.Background(), patientS1, bloodTestUpload("WBC 14.2 10^9/L"))
	require.NoError(t, err)

	assert.True(t, report.IsAbnormal)
	assert.Equal(t, entities.ReviewStatusPending, report.Review.Status)
	assert.Empty(t, report.Review.AssignedDoctorID)
	assert.Equal(t, entities.ReportTypeBloodTest, report.ReportType)
	assert.Equal(t, "S1", report.PatientID)
	assert.Empty(t, report.RawText)
	assert.Equal(t, 1, p.store.Len())
	assert.Equal(t, 1, p.docs.count())
	assert.Equal(t, []entities.ReportEventType{entities.ReportEventTypeCreated}, p.events.eventTypes(providers.GetPatientChannel("S1")))

	stored, err := p.store.GetByID(context.Background(), report.ID, patientS1)
	require.NoError(t, err)
	assert.Equal(t, len(stored.AnalyzedData.RedFlags) > 0, stored.IsAbnormal)
}

func TestReportService_Upload_NormalReport(t *testing.T) {
	p := newPipeline(normalAnalysis, normalAnalysis)

	report, err := p.service.Upload(context.Background(), patientS1, bloodTestUpload("WBC 7.1"))
	require.NoError(t, err)

	assert.False(t, report.IsAbnormal)
	assert.Empty(t, report.AnalyzedData.RedFlags)
}

func TestReportService_Upload_FallbackProperty(t *testing.T) {
	t.Run("primary unparsable, fallback valid", func(t *testing.T) {
		p := newPipeline("not json", highWBCAnalysis)

		report, err := p.service.Upload(context.Background(), patientS1, bloodTestUpload("WBC 14.2"))
		require.NoError(t, err)

		assert.True(t, report.IsAbnormal)
		assert.Equal(t, 1, p.primary.calls())
		assert.Equal(t, 1, p.fallback.calls())
		assert.Equal(t, 1, p.store.Len())
	})

	t.Run("both invalid", func(t *testing.T) {
		p := newPipeline("not json", `{"summary":"incomplete"}`)

		report, err := p.service.Upload(context.Background(), patientS1, bloodTestUpload("WBC 14.2"))

		assert.Nil(t, report)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeAnalysis))
		assert.Equal(t, 1, p.fallback.calls())
		assert.Equal(t, 0, p.store.Len())
		assert.Equal(t, 0, p.docs.puts)
		assert.Empty(t, p.events.eventTypes(providers.GetPatientChannel("S1")))
	})
}

func TestReportService_Upload_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		identity entities.Identity
		mutate   func(in *services.UploadInput)
		want     apperrors.ErrorType
	}{
		{"doctor cannot upload", doctorD1, func(in *services.UploadInput) {}, apperrors.ErrorTypeForbidden},
		{"missing file", patientS1, func(in *services.UploadInput) { in.Data = nil }, apperrors.ErrorTypeUpload},
		{"binary file", patientS1, func(in *services.UploadInput) { in.Data = []byte{0xff, 0xd8, 0xff, 0x00} }, apperrors.ErrorTypeUpload},
		{"missing name", patientS1, func(in *services.UploadInput) { in.Metadata.Name = "  " }, apperrors.ErrorTypeValidation},
		{"unknown type", patientS1, func(in *services.UploadInput) { in.Metadata.Type = "Ultrasound" }, apperrors.ErrorTypeValidation},
		{"missing date", patientS1, func(in *services.UploadInput) { in.Metadata.Date = time.Time{} }, apperrors.ErrorTypeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPipeline(highWBCAnalysis, highWBCAnalysis)
			input := bloodTestUpload("WBC 14.2")
			tt.mutate(&input)

			_, err := p.service.Upload(context.Background(), tt.identity, input)

			assert.True(t, apperrors.IsType(err, tt.want), "got %v", err)
			assert.Equal(t, 0, p.primary.calls())
			assert.Equal(t, 0, p.store.Len())
		})
	}
}

func TestReportService_Upload_ExtractionFailure(t *testing.T) {
	p := newPipeline(highWBCAnalysis, highWBCAnalysis)
	analysis := services.NewAnalysisService(newChain(p.primary, p.fallback), 0)
	service := services.NewReportService(p.store, &stubExtractor{err: errors.New("pdftotext failed")}, analysis, p.docs)

	_, err := service.Upload(context.Background(), patientS1, bloodTestUpload("%PDF-1.4 broken"))

	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExtraction))
	assert.Equal(t, 0, p.primary.calls())
	assert.Equal(t, 0, p.store.Len())
}

func TestReportService_Upload_PersistenceFailureRemovesDocument(t *testing.T) {
	p := newPipeline(highWBCAnalysis, highWBCAnalysis)
	analysis := services.NewAnalysisService(newChain(p.primary, p.fallback), 0)
	store := &failingCreateStore{ReportStore: p.store, err: apperrors.NewPersistenceError("failed to create report", errors.New("connection refused"))}
	service := services.NewReportService(store, &stubExtractor{}, analysis, p.docs)

	_, err := service.Upload(context.Background(), patientS1, bloodTestUpload("WBC 14.2"))

	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypePersistence))
	assert.Equal(t, 1, p.docs.puts)
	assert.Equal(t, 1, p.docs.deletes)
	assert.Equal(t, 0, p.docs.count())
}

func TestReportService_Upload_DocumentStoreFailure(t *testing.T) {
	p := newPipeline(highWBCAnalysis, highWBCAnalysis)
	p.docs.putErr = errors.New("bucket unavailable")

	_, err := p.service.Upload(context.Background(), patientS1, bloodTestUpload("WBC 14.2"))

	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypePersistence))
	assert.Equal(t, 0, p.store.Len())
}

func TestReportService_OpenDocument(t *testing.T) {
	p := newPipeline(highWBCAnalysis, highWBCAnalysis)
	report, err := p.service.Upload(context.Background(), patientS1, bloodTestUpload("WBC 14.2"))
	require.NoError(t, err)

	_, rc, err := p.service.OpenDocument(context.Background(), patientS1, report.ID)
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	rc.Close()
	assert.Equal(t, "WBC 14.2", string(body))

	_, _, err = p.service.OpenDocument(context.Background(), patientS2, report.ID)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))

	_, _, err = p.service.OpenDocument(context.Background(), doctorD1, report.ID)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}
