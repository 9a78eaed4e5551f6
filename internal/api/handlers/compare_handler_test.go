package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/api/handlers"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/domain/entities"
	apperrors "github.com/zatekoja/Medicalreportanalysis/backend/pkg/errors"
)

type mockComparisonService struct {
	mock.Mock
}

func (m *mockComparisonService) Compare(ctx context.Context, identity entities.Identity, reportID1, reportID2 string) (*entities.ReportComparison, error) {
	args := m.Called(ctx, identity, reportID1, reportID2)
	result, _ := args.Get(0).(*entities.ReportComparison)
	return result, args.Error(1)
}

func TestCompareHandler_CompareReports(t *testing.T) {
	service := new(mockComparisonService)
	service.On("Compare", mock.Anything, patient, "A", "B").Return(&entities.ReportComparison{
		Report1: entities.ReportReference{ID: "A", Name: "CBC Jan", Date: "2024-01-10"},
		Report2: entities.ReportReference{ID: "B", Name: "CBC Mar", Date: "2024-03-01"},
		Comparison: &entities.ComparisonResult{
			Summary:          "WBC rose.",
			ParameterChanges: []entities.ParameterChange{{Name: "WBC", ChangeType: entities.ChangeTypeDeterioration}},
			RedFlagsStatus:   entities.RedFlagsStatus{Resolved: []string{}, Persisting: []string{}, New: []string{"High WBC"}},
			Recommendations:  []string{},
		},
	}, nil)
	handler := handlers.NewCompareHandler(service)

	w := httptest.NewRecorder()
	handler.CompareReports(w, asCaller(jsonRequest(http.MethodPost, "/api/reports/compare", "", `{"reportId1":"A","reportId2":"B"}`), patient))

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.JSONEq(t, `{"id":"A","name":"CBC Jan","date":"2024-01-10"}`, string(body["report1"]))
	assert.Contains(t, string(body["comparison"]), `"changeType":"deterioration"`)
}

func TestCompareHandler_NotFound(t *testing.T) {
	service := new(mockComparisonService)
	service.On("Compare", mock.Anything, patient, "A", "C").
		Return(nil, apperrors.NewNotFoundError("one or both reports not found"))
	handler := handlers.NewCompareHandler(service)

	w := httptest.NewRecorder()
	handler.CompareReports(w, asCaller(jsonRequest(http.MethodPost, "/api/reports/compare", "", `{"reportId1":"A","reportId2":"C"}`), patient))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "one or both reports not found", decodeError(t, w).Error.Message)
}
