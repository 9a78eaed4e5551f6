package oracle

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/domain/entities"
)

var (
	// ErrEmptyReply is returned when the oracle produced no content
	ErrEmptyReply = errors.New("oracle reply is empty")

	// ErrMalformedReply is returned when the reply is not a JSON object
	ErrMalformedReply = errors.New("oracle reply is not a JSON object")

	// ErrSchemaViolation is returned when the reply does not match the expected schema
	ErrSchemaViolation = errors.New("oracle reply does not match schema")
)

// flexString accepts a JSON string, number or null and keeps it as text.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number: %w", err)
	}
	*f = flexString(n.String())
	return nil
}

type parameterPayload struct {
	Name     string     `json:"name"`
	Value    flexString `json:"value"`
	Unit     flexString `json:"unit"`
	Category flexString `json:"category"`
}

type analyzedDataPayload struct {
	ReportDate flexString         `json:"reportDate"`
	Parameters []parameterPayload `json:"parameters"`
	Summary    string             `json:"summary"`
	RedFlags   []string           `json:"redFlags"`
}

type parameterChangePayload struct {
	Name       string     `json:"name"`
	PrevValue  flexString `json:"prevValue"`
	NewValue   flexString `json:"newValue"`
	Unit       flexString `json:"unit"`
	ChangeType string     `json:"changeType"`
	Insight    flexString `json:"insight"`
}

type comparisonResultPayload struct {
	Summary          string                   `json:"summary"`
	ParameterChanges []parameterChangePayload `json:"parameterChanges"`
	RedFlagsStatus   entities.RedFlagsStatus  `json:"redFlagsStatus"`
	Recommendations  []string                 `json:"recommendations"`
}

// decodeStrict strips fences, checks the reply against schema and decodes it into out.
func decodeStrict(raw string, schema *jsonschema.Schema, out any) error {
	cleaned := StripMarkdownFence(raw)
	if cleaned == "" {
		return ErrEmptyReply
	}

	var doc any
	if err := json.Unmarshal([]byte(cleaned), &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	if _, ok := doc.(map[string]any); !ok {
		return ErrMalformedReply
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}
	return nil
}

// ParseAnalyzedData turns a raw oracle reply into AnalyzedData or fails;
// it never returns a partially populated result.
func ParseAnalyzedData(raw string) (*entities.AnalyzedData, error) {
	var payload analyzedDataPayload
	if err := decodeStrict(raw, analyzedDataSchema, &payload); err != nil {
		return nil, err
	}

	data := &entities.AnalyzedData{
		ReportDate: string(payload.ReportDate),
		Parameters: make([]entities.Parameter, 0, len(payload.Parameters)),
		Summary:    strings.TrimSpace(payload.Summary),
		RedFlags:   make([]string, 0, len(payload.RedFlags)),
	}
	for _, p := range payload.Parameters {
		data.Parameters = append(data.Parameters, entities.Parameter{
			Name:     strings.TrimSpace(p.Name),
			Value:    string(p.Value),
			Unit:     string(p.Unit),
			Category: string(p.Category),
		})
	}
	for _, flag := range payload.RedFlags {
		if flag = strings.TrimSpace(flag); flag != "" {
			data.RedFlags = append(data.RedFlags, flag)
		}
	}

	return data, nil
}

// ParseComparisonResult turns a raw oracle reply into a ComparisonResult or fails.
func ParseComparisonResult(raw string) (*entities.ComparisonResult, error) {
	var payload comparisonResultPayload
	if err := decodeStrict(raw, comparisonResultSchema, &payload); err != nil {
		return nil, err
	}

	result := &entities.ComparisonResult{
		Summary:          strings.TrimSpace(payload.Summary),
		ParameterChanges: make([]entities.ParameterChange, 0, len(payload.ParameterChanges)),
		RedFlagsStatus: entities.RedFlagsStatus{
			Resolved:   nonNil(payload.RedFlagsStatus.Resolved),
			Persisting: nonNil(payload.RedFlagsStatus.Persisting),
			New:        nonNil(payload.RedFlagsStatus.New),
		},
		Recommendations: nonNil(payload.Recommendations),
	}
	for _, c := range payload.ParameterChanges {
		result.ParameterChanges = append(result.ParameterChanges, entities.ParameterChange{
			Name:       strings.TrimSpace(c.Name),
			PrevValue:  string(c.PrevValue),
			NewValue:   string(c.NewValue),
			Unit:       string(c.Unit),
			ChangeType: entities.ChangeType(c.ChangeType),
			Insight:    string(c.Insight),
		})
	}

	return result, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
