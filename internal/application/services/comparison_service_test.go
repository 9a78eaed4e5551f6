package services_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/adapters/memory"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/application/services"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/domain/entities"
	apperrors "github.com/zatekoja/Medicalreportanalysis/backend/pkg/errors"
)

func seedReport(t *testing.T, store *memory.ReportStore, id, patientID string, date time.Time, data entities.AnalyzedData) {
	t.Helper()
	report := entities.NewReport(id, patientID, entities.ReportMetadata{
		Name: "CBC " + id,
		Type: entities.ReportTypeBloodTest,
		Date: date,
	}, "ref/"+id, "raw", data, time.Now().UTC())
	require.NoError(t, store.Create(context.Background(), report))
}

func comparisonStore(t *testing.T) *memory.ReportStore {
	t.Helper()
	store := memory.NewReportStore()
	seedReport(t, store, "A", "S1", time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), entities.AnalyzedData{Summary: "All values within range."})
	seedReport(t, store, "B", "S1", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), entities.AnalyzedData{Summary: "White cell count is elevated.", RedFlags: []string{"High WBC"}})
	seedReport(t, store, "C", "S2", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), entities.AnalyzedData{Summary: "Other patient."})
	return store
}

func comparisonFixture(t *testing.T, reply string) (*services.ComparisonService, *stubTextAnalyzer) {
	t.Helper()
	analyzer := &stubTextAnalyzer{name: "primary", replies: []string{reply}}
	return services.NewComparisonService(comparisonStore(t), newChain(analyzer)), analyzer
}

func TestComparisonService_Compare(t *testing.T) {
	service, analyzer := comparisonFixture(t, "```json\n"+validComparison+"\n```")

	result, err := service.Compare(context.Background(), patientS1, "B", "A")
	require.NoError(t, err)

	assert.Equal(t, "B", result.Report1.ID)
	assert.Equal(t, "2024-03-01", result.Report1.Date)
	assert.Equal(t, "A", result.Report2.ID)
	require.Len(t, result.Comparison.ParameterChanges, 1)
	assert.Equal(t, entities.ChangeTypeDeterioration, result.Comparison.ParameterChanges[0].ChangeType)
	assert.Equal(t, []string{"High WBC"}, result.Comparison.RedFlagsStatus.New)

	require.Equal(t, 1, analyzer.calls())
	prompt := analyzer.prompts[0]
	assert.Less(t, strings.Index(prompt, "All values within range."), strings.Index(prompt, "White cell count is elevated."),
		"earlier report is described first")
}

func TestComparisonService_Compare_OwnershipCheck(t *testing.T) {
	for _, ids := range [][2]string{{"A", "C"}, {"C", "A"}} {
		service, analyzer := comparisonFixture(t, validComparison)

		_, err := service.Compare(context.Background(), patientS1, ids[0], ids[1])

		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound), "ids %v", ids)
		assert.Equal(t, 0, analyzer.calls())
	}
}

func TestComparisonService_Compare_MalformedOracleReply(t *testing.T) {
	service, analyzer := comparisonFixture(t, `{"summary":"x","parameterChanges":[{"name":"WBC","changeType":"worse"}]}`)

	result, err := service.Compare(context.Background(), patientS1, "A", "B")

	assert.Nil(t, result)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeComparison))
	assert.Equal(t, 1, analyzer.calls())
}

func TestComparisonService_Compare_SingleOracleCall(t *testing.T) {
	primary := &stubTextAnalyzer{name: "primary", replies: []string{"not json"}}
	fallback := &stubTextAnalyzer{name: "fallback", replies: []string{validComparison}}
	service := services.NewComparisonService(comparisonStore(t), newChain(primary, fallback))

	result, err := service.Compare(context.Background(), patientS1, "A", "B")

	assert.Nil(t, result)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeComparison))
	assert.Equal(t, 1, primary.calls())
	assert.Equal(t, 0, fallback.calls())
}

func TestComparisonService_Compare_Validation(t *testing.T) {
	service, _ := comparisonFixture(t, validComparison)

	_, err := service.Compare(context.Background(), patientS1, "A", "A")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	_, err = service.Compare(context.Background(), patientS1, "A", "")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	_, err = service.Compare(context.Background(), doctorD1, "A", "B")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeForbidden))
}
