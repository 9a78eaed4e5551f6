package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/domain/entities"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/domain/providers"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/domain/repositories"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/infrastructure/extraction"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/Medicalreportanalysis/backend/pkg/errors"
)

// ReportAnalyzer produces AnalyzedData from report text
type ReportAnalyzer interface {
	Analyze(ctx context.Context, text string) (*entities.AnalyzedData, error)
}

// UploadInput is one document handed to the ingestion pipeline
type UploadInput struct {
	Filename    string
	ContentType string
	Data        []byte
	Metadata    entities.ReportMetadata
}

// ReportService runs the ingestion pipeline and serves stored reports
type ReportService struct {
	repo      repositories.ReportRepository
	extractor providers.TextExtractor
	analyzer  ReportAnalyzer
	documents providers.DocumentStore
	eventBus  providers.EventBus
	metrics   *observability.Metrics
	now       func() time.Time
}

// NewReportService creates a new report service
func NewReportService(
	repo repositories.ReportRepository,
	extractor providers.TextExtractor,
	analyzer ReportAnalyzer,
	documents providers.DocumentStore,
) *ReportService {
	return &ReportService{
		repo:      repo,
		extractor: extractor,
		analyzer:  analyzer,
		documents: documents,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SetEventBus enables report_created notifications
func (s *ReportService) SetEventBus(bus providers.EventBus) {
	s.eventBus = bus
}

// SetMetrics enables ingestion outcome metrics
func (s *ReportService) SetMetrics(metrics *observability.Metrics) {
	s.metrics = metrics
}

// Upload extracts, analyzes and stores one document for the calling patient.
// Every stage aborts the run; nothing is persisted unless analysis succeeded.
func (s *ReportService) Upload(ctx context.Context, identity entities.Identity, input UploadInput) (report *entities.Report, err error) {
	ctx, span := observability.StartSpan(ctx, "report.upload")
	defer span.End()

	defer func() {
		outcome := "success"
		if appErr, ok := apperrors.As(err); ok {
			outcome = strings.ToLower(string(appErr.Type))
		} else if err != nil {
			outcome = "error"
		}
		observability.RecordIngestion(ctx, s.metrics, outcome)
		observability.RecordError(span, err)
	}()

	if !identity.IsPatient() {
		return nil, apperrors.NewForbiddenError("only patients can upload reports")
	}
	meta, err := normalizeMetadata(input.Metadata)
	if err != nil {
		return nil, err
	}
	if len(input.Data) == 0 {
		return nil, apperrors.NewUploadError("no report file was uploaded")
	}
	if !extraction.IsPDF(input.Data) && !extraction.IsPlainText(input.Data) {
		return nil, apperrors.NewUploadError("only PDF or plain text reports are supported")
	}

	logger := observability.LoggerFromContext(ctx).With().
		Str("patient_id", identity.SubjectID).
		Str("report_type", string(meta.Type)).
		Logger()

	text, err := s.extractor.Extract(ctx, input.Data)
	if err != nil {
		logger.Warn().Err(err).Msg("text extraction failed")
		return nil, apperrors.NewExtractionError("the document could not be read", err)
	}

	data, err := s.analyzer.Analyze(ctx, text)
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	contentType := "application/pdf"
	ext := ".pdf"
	if !extraction.IsPDF(input.Data) {
		contentType = "text/plain; charset=utf-8"
		ext = ".txt"
	}
	ref, err := s.documents.Put(ctx, fmt.Sprintf("%s/%s%s", identity.SubjectID, id, ext), input.Data, contentType)
	if err != nil {
		logger.Error().Err(err).Msg("failed to store uploaded document")
		return nil, apperrors.NewPersistenceError("the document could not be stored", err)
	}

	report = entities.NewReport(id, identity.SubjectID, meta, ref, text, *data, s.now())
	if err := s.repo.Create(ctx, report); err != nil {
		logger.Error().Err(err).Str("report_id", id).Msg("failed to create report")
		if delErr := s.documents.Delete(ctx, ref); delErr != nil {
			logger.Warn().Err(delErr).Str("document_ref", ref).Msg("failed to remove orphaned document")
		}
		if _, ok := apperrors.As(err); ok {
			return nil, err
		}
		return nil, apperrors.NewPersistenceError("the report could not be saved", err)
	}

	logger.Info().
		Str("report_id", id).
		Bool("is_abnormal", report.IsAbnormal).
		Int("parameters", len(report.AnalyzedData.Parameters)).
		Msg("report analyzed and stored")

	publishReportEvent(ctx, s.eventBus, report, entities.ReportEventTypeCreated)

	out := *report
	out.RawText = ""
	return &out, nil
}

// GetReport returns a report visible to identity
func (s *ReportService) GetReport(ctx context.Context, identity entities.Identity, id string) (*entities.Report, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.NewValidationError("report id is required")
	}
	return s.repo.GetByID(ctx, id, identity)
}

// OpenDocument streams the stored document of a report visible to identity.
// The caller closes the reader.
func (s *ReportService) OpenDocument(ctx context.Context, identity entities.Identity, id string) (*entities.Report, io.ReadCloser, error) {
	report, err := s.GetReport(ctx, identity, id)
	if err != nil {
		return nil, nil, err
	}

	rc, err := s.documents.Open(ctx, report.DocumentRef)
	if errors.Is(err, providers.ErrDocumentNotFound) {
		return nil, nil, apperrors.NewNotFoundError(fmt.Sprintf("document for report %s not found", id))
	}
	if err != nil {
		return nil, nil, apperrors.NewPersistenceError("the document could not be read", err)
	}
	return report, rc, nil
}

// normalizeMetadata trims the name and canonicalizes the type label
func normalizeMetadata(meta entities.ReportMetadata) (entities.ReportMetadata, error) {
	meta.Name = strings.TrimSpace(meta.Name)
	if meta.Name == "" {
		return meta, apperrors.NewValidationError("reportName is required")
	}
	reportType, ok := entities.ParseReportType(string(meta.Type))
	if !ok {
		return meta, apperrors.NewValidationError(fmt.Sprintf("invalid reportType %q", meta.Type))
	}
	meta.Type = reportType
	if meta.Date.IsZero() {
		return meta, apperrors.NewValidationError("reportDate is required")
	}
	return meta, nil
}
