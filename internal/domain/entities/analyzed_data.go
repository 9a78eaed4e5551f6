package entities

// Parameter is one measured value extracted from a report
type Parameter struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Unit     string `json:"unit"`
	Category string `json:"category"`
}

// AnalyzedData is the structured oracle output for a single document
type AnalyzedData struct {
	ReportDate string      `json:"reportDate"`
	Parameters []Parameter `json:"parameters"`
	Summary    string      `json:"summary"`
	RedFlags   []string    `json:"redFlags"`
}

// IsAbnormal is true iff at least one red flag was raised
func (d AnalyzedData) IsAbnormal() bool {
	return len(d.RedFlags) > 0
}

// Clone returns a copy that shares no slices with d
func (d AnalyzedData) Clone() AnalyzedData {
	out := d
	if d.Parameters != nil {
		out.Parameters = append([]Parameter(nil), d.Parameters...)
	}
	if d.RedFlags != nil {
		out.RedFlags = append([]string(nil), d.RedFlags...)
	}
	return out
}
