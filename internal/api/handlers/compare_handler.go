package handlers

import (
	"context"
	"net/http"

	"github.com/zatekoja/Medicalreportanalysis/backend/internal/domain/entities"
)

// ComparisonService defines the comparison operation used by the handler.
type ComparisonService interface {
	Compare(ctx context.Context, identity entities.Identity, reportID1, reportID2 string) (*entities.ReportComparison, error)
}

// CompareHandler handles report comparison requests.
type CompareHandler struct {
	service ComparisonService
}

// NewCompareHandler creates a new compare handler
func NewCompareHandler(service ComparisonService) *CompareHandler {
	return &CompareHandler{service: service}
}

type compareRequest struct {
	ReportID1 string `json:"reportId1"`
	ReportID2 string `json:"reportId2"`
}

// CompareReports handles POST /api/reports/compare
func (h *CompareHandler) CompareReports(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var payload compareRequest
	if !decodeJSON(w, r, &payload) {
		return
	}

	comparison, err := h.service.Compare(r.Context(), identity, payload.ReportID1, payload.ReportID2)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, comparison)
}
