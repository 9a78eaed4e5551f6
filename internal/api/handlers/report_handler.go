package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/zatekoja/Medicalreportanalysis/backend/internal/application/services"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/domain/entities"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/Medicalreportanalysis/backend/pkg/errors"
)

// multipart field carrying the document
const reportFormField = "report"

// ReportService defines the report operations used by the handler.
type ReportService interface {
	Upload(ctx context.Context, identity entities.Identity, input services.UploadInput) (*entities.Report, error)
	GetReport(ctx context.Context, identity entities.Identity, id string) (*entities.Report, error)
	OpenDocument(ctx context.Context, identity entities.Identity, id string) (*entities.Report, io.ReadCloser, error)
}

// ReportHandler handles report upload, retrieval and download.
type ReportHandler struct {
	service  ReportService
	limiter  *RateLimiter
	maxBytes int64
}

// NewReportHandler creates a new report handler. limiter may be nil.
func NewReportHandler(service ReportService, limiter *RateLimiter, maxBytes int64) *ReportHandler {
	return &ReportHandler{
		service:  service,
		limiter:  limiter,
		maxBytes: maxBytes,
	}
}

// UploadReport handles POST /api/reports
func (h *ReportHandler) UploadReport(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if !identity.IsPatient() {
		respondWithAppError(w, r, apperrors.NewForbiddenError("only patients can upload reports"))
		return
	}

	if allowed, retryAfter := h.limiter.Allow(r.Context(), "upload:rate:"+identity.SubjectID); !allowed {
		w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
		respondWithError(w, http.StatusTooManyRequests, apperrors.ErrorTypeUpload, "upload rate limit exceeded")
		return
	}

	// multipart framing on top of the document itself
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+(1<<20))
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondWithAppError(w, r, apperrors.NewUploadError("the document exceeds the maximum upload size"))
			return
		}
		respondWithAppError(w, r, apperrors.NewUploadError("request must be multipart/form-data with a report file"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(reportFormField)
	if err != nil {
		respondWithAppError(w, r, apperrors.NewUploadError("no document was uploaded"))
		return
	}
	defer file.Close()

	if header.Size > h.maxBytes {
		respondWithAppError(w, r, apperrors.NewUploadError("the document exceeds the maximum upload size"))
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		respondWithAppError(w, r, apperrors.NewUploadError("the uploaded document could not be read"))
		return
	}

	meta, err := metadataFromForm(r)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	report, err := h.service.Upload(r.Context(), identity, services.UploadInput{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
		Metadata:    meta,
	})
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, report)
}

// GetReport handles GET /api/reports/{id}
func (h *ReportHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	report, err := h.service.GetReport(r.Context(), identity, r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, report)
}

// DownloadReport handles GET /api/reports/{id}/download
func (h *ReportHandler) DownloadReport(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	report, body, err := h.service.OpenDocument(r.Context(), identity, r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	defer body.Close()

	ext := path.Ext(report.DocumentRef)
	contentType := "application/pdf"
	if ext == ".txt" {
		contentType = "text/plain; charset=utf-8"
	} else {
		ext = ".pdf"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", downloadName(report.ReportName)+ext))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		observability.LoggerFromContext(r.Context()).Warn().
			Err(err).
			Str("report_id", report.ID).
			Msg("report download interrupted")
	}
}

func metadataFromForm(r *http.Request) (entities.ReportMetadata, error) {
	meta := entities.ReportMetadata{
		Name: r.FormValue("reportName"),
		Type: entities.ReportType(r.FormValue("reportType")),
	}

	if raw := strings.TrimSpace(r.FormValue("reportDate")); raw != "" {
		date, err := parseReportDate(raw)
		if err != nil {
			return meta, apperrors.NewValidationError("reportDate must be a date in YYYY-MM-DD format")
		}
		meta.Date = date
	}
	return meta, nil
}

func parseReportDate(raw string) (time.Time, error) {
	if date, err := time.Parse(time.DateOnly, raw); err == nil {
		return date, nil
	}
	date, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, err
	}
	return date.UTC(), nil
}

func downloadName(reportName string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r == '"' || r == '\\' || r == '/' || r < 0x20:
			return '_'
		}
		return r
	}, strings.TrimSpace(reportName))
	if name == "" {
		return "report"
	}
	return name
}
