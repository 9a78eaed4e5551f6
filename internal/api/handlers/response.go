package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/zatekoja/Medicalreportanalysis/backend/internal/api/middleware"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/domain/entities"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/Medicalreportanalysis/backend/pkg/errors"
)

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

var statusByType = map[apperrors.ErrorType]int{
	apperrors.ErrorTypeUpload:         http.StatusBadRequest,
	apperrors.ErrorTypeValidation:     http.StatusBadRequest,
	apperrors.ErrorTypeExtraction:     http.StatusUnprocessableEntity,
	apperrors.ErrorTypeAnalysis:       http.StatusBadGateway,
	apperrors.ErrorTypeComparison:     http.StatusBadGateway,
	apperrors.ErrorTypeExternal:       http.StatusBadGateway,
	apperrors.ErrorTypePersistence:    http.StatusServiceUnavailable,
	apperrors.ErrorTypeReviewConflict: http.StatusConflict,
	apperrors.ErrorTypeConflict:       http.StatusConflict,
	apperrors.ErrorTypeNotFound:       http.StatusNotFound,
	apperrors.ErrorTypeUnauthorized:   http.StatusUnauthorized,
	apperrors.ErrorTypeForbidden:      http.StatusForbidden,
}

// StatusFor returns the HTTP status for an application error
func StatusFor(err error) int {
	if appErr, ok := apperrors.As(err); ok {
		if status, found := statusByType[appErr.Type]; found {
			return status
		}
	}
	return http.StatusInternalServerError
}

func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, kind apperrors.ErrorType, message string) {
	respondWithJSON(w, statusCode, map[string]errorBody{
		"error": {Kind: string(kind), Message: message},
	})
}

// respondWithAppError writes err as a typed error body. Causes are logged,
// never returned to the client.
func respondWithAppError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	appErr, ok := apperrors.As(err)
	if !ok {
		appErr = apperrors.NewInternalError("internal server error", err)
	}

	logger := observability.LoggerFromContext(r.Context())
	event := logger.Debug()
	if status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.Err(err).
		Str("kind", string(appErr.Type)).
		Int("status", status).
		Msg("request failed")

	respondWithError(w, status, appErr.Type, appErr.Message)
}

func requireIdentity(w http.ResponseWriter, r *http.Request) (entities.Identity, bool) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		respondWithAppError(w, r, apperrors.NewUnauthorizedError("authentication required"))
		return entities.Identity{}, false
	}
	return identity, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondWithError(w, http.StatusBadRequest, apperrors.ErrorTypeValidation, "invalid request payload")
		return false
	}
	return true
}
