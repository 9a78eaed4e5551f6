package handlers

import (
	"context"
	"net/http"

	"github.com/zatekoja/Medicalreportanalysis/backend/internal/domain/entities"
)

// ReviewService defines the review operations used by the handler.
type ReviewService interface {
	RequestReview(ctx context.Context, identity entities.Identity, reportID, doctorID string) (*entities.Report, error)
	SubmitReview(ctx context.Context, identity entities.Identity, reportID, notes string) (*entities.Report, error)
}

// ReviewHandler handles the doctor review workflow.
type ReviewHandler struct {
	service ReviewService
}

// NewReviewHandler creates a new review handler
func NewReviewHandler(service ReviewService) *ReviewHandler {
	return &ReviewHandler{service: service}
}

type reviewRequestPayload struct {
	DoctorID string `json:"doctorId"`
}

type reviewSubmissionPayload struct {
	Notes string `json:"notes"`
}

// RequestReview handles POST /api/reports/{id}/review-request
func (h *ReviewHandler) RequestReview(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var payload reviewRequestPayload
	if !decodeJSON(w, r, &payload) {
		return
	}

	report, err := h.service.RequestReview(r.Context(), identity, r.PathValue("id"), payload.DoctorID)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, report)
}

// SubmitReview handles POST /api/reports/{id}/review
func (h *ReviewHandler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var payload reviewSubmissionPayload
	if !decodeJSON(w, r, &payload) {
		return
	}

	report, err := h.service.SubmitReview(r.Context(), identity, r.PathValue("id"), payload.Notes)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, report)
}
