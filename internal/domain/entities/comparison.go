package entities

// ChangeType is the oracle's judgment of how a parameter moved between reports
type ChangeType string

const (
	ChangeTypeImprovement   ChangeType = "improvement"
	ChangeTypeDeterioration ChangeType = "deterioration"
	ChangeTypeStable        ChangeType = "stable"
	ChangeTypeNew           ChangeType = "new"
)

// ParameterChange describes one parameter across two reports
type ParameterChange struct {
	Name       string     `json:"name"`
	PrevValue  string     `json:"prevValue"`
	NewValue   string     `json:"newValue"`
	Unit       string     `json:"unit"`
	ChangeType ChangeType `json:"changeType"`
	Insight    string     `json:"insight"`
}

// RedFlagsStatus groups red flags by how they evolved
type RedFlagsStatus struct {
	Resolved   []string `json:"resolved"`
	Persisting []string `json:"persisting"`
	New        []string `json:"new"`
}

// ComparisonResult is produced fresh on every comparison and never stored
type ComparisonResult struct {
	Summary          string            `json:"summary"`
	ParameterChanges []ParameterChange `json:"parameterChanges"`
	RedFlagsStatus   RedFlagsStatus    `json:"redFlagsStatus"`
	Recommendations  []string          `json:"recommendations"`
}

// ReportComparison pairs a comparison with references to the compared reports
type ReportComparison struct {
	Report1    ReportReference   `json:"report1"`
	Report2    ReportReference   `json:"report2"`
	Comparison *ComparisonResult `json:"comparison"`
}

// ReportReference is a short pointer to a stored report
type ReportReference struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Date string `json:"date"`
}
