package oracle

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/zatekoja/Medicalreportanalysis/backend/internal/domain/entities"
)

// DefaultMaxInputChars bounds the report text embedded in an analysis prompt
const DefaultMaxInputChars = 15000

const analysisPromptTemplate = `Extract the clinically relevant parameters from the medical report text below.

Return ONLY a valid JSON object. Do not use markdown. Do not include code fences. Do not add commentary.
The object must have exactly these keys:
{
  "reportDate": "YYYY-MM-DD as printed on the report, or an empty string if absent",
  "parameters": [
    {"name": "Parameter name", "value": "Measured value", "unit": "Unit or empty string", "category": "Category such as Hematology or Biochemistry"}
  ],
  "summary": "Brief plain-language summary of the report",
  "redFlags": ["One entry per critical or clearly abnormal finding; an empty array if there are none"]
}

Report text:
<<<REPORT
%s
REPORT>>>`

const comparisonPromptTemplate = `Compare the two medical reports of the same patient below. Report A is the earlier one.

Return ONLY a valid JSON object. Do not use markdown. Do not include code fences. Do not add commentary.
The object must have exactly these keys:
{
  "summary": "Overall trend between the two reports",
  "parameterChanges": [
    {"name": "Parameter name", "prevValue": "Value in report A or empty", "newValue": "Value in report B", "unit": "Unit", "changeType": "improvement | deterioration | stable | new", "insight": "Short clinical insight"}
  ],
  "redFlagsStatus": {"resolved": ["..."], "persisting": ["..."], "new": ["..."]},
  "recommendations": ["Follow-up suggestions"]
}

Report A:
%s

Report B:
%s`

// TruncateText returns at most limit characters of text
func TruncateText(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	count := 0
	for i := range text {
		if count == limit {
			return text[:i]
		}
		count++
	}
	return text
}

// BuildAnalysisPrompt renders the extraction instruction for text truncated to limit characters.
func BuildAnalysisPrompt(text string, limit int) string {
	return fmt.Sprintf(analysisPromptTemplate, TruncateText(text, limit))
}

type comparisonSubject struct {
	Name        string               `json:"name"`
	Type        string               `json:"type"`
	Date        string               `json:"date"`
	Summary     string               `json:"summary"`
	RedFlags    []string             `json:"redFlags"`
	Parameters  []entities.Parameter `json:"parameters"`
	DoctorNotes string               `json:"doctorNotes,omitempty"`
}

func describeReport(report *entities.Report) string {
	subject := comparisonSubject{
		Name:        report.ReportName,
		Type:        report.ReportType.Label(),
		Date:        report.ReportDate.Format(time.DateOnly),
		Summary:     report.AnalyzedData.Summary,
		RedFlags:    nonNil(report.AnalyzedData.RedFlags),
		Parameters:  report.AnalyzedData.Parameters,
		DoctorNotes: report.Review.Notes,
	}
	if subject.Parameters == nil {
		subject.Parameters = []entities.Parameter{}
	}
	b, err := json.MarshalIndent(subject, "", "  ")
	if err != nil {
		// Only plain strings and slices are marshalled here.
		return fmt.Sprintf("%+v", subject)
	}
	return string(b)
}

// BuildComparisonPrompt renders the comparison instruction for two reports.
func BuildComparisonPrompt(earlier, later *entities.Report) string {
	return fmt.Sprintf(comparisonPromptTemplate, describeReport(earlier), describeReport(later))
}
