package promote

import (
	"encoding/json"
	"time"
)

// StepStatus records the outcome of one promotion step
type StepStatus string

const (
	StepOK      StepStatus = "ok"
	StepFailed  StepStatus = "failed"
	StepSkipped StepStatus = "skipped"
)

// IntegrationResult records the per-integration promotion steps
type IntegrationResult struct {
	Integration string     `json:"integration"`
	Export      StepStatus `json:"export"`
	Import      StepStatus `json:"import"`
	Activate    StepStatus `json:"activate"`
	// ArchiveBytes is the exported archive size, 0 when export failed.
	ArchiveBytes int    `json:"archiveBytes,omitempty"`
	Error        string `json:"error,omitempty"`
}

// PropertyPatchResult records one connection property update
type PropertyPatchResult struct {
	Connection string `json:"connection"`
	Group      string `json:"group"`
	Name       string `json:"name"`
	Applied    bool   `json:"applied"`
	Error      string `json:"error,omitempty"`
}

// ConnectionTestResult records one post-patch connection smoke test.
// A failing test is a reported business outcome, not a client error.
type ConnectionTestResult struct {
	Connection string `json:"connection"`
	Passed     bool   `json:"passed"`
	Error      string `json:"error,omitempty"`
}

// Report summarizes one promotion run between two environments
type Report struct {
	Source     string    `json:"source"`
	Target     string    `json:"target"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`

	Integrations    []IntegrationResult    `json:"integrations"`
	PropertyPatches []PropertyPatchResult  `json:"propertyPatches,omitempty"`
	ConnectionTests []ConnectionTestResult `json:"connectionTests,omitempty"`

	Succeeded bool `json:"succeeded"`
}

// JSON renders the report for machine consumption
func (r *Report) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// failureCount returns how many steps in the run failed
func (r *Report) failureCount() int {
	n := 0
	for _, ir := range r.Integrations {
		if ir.Export == StepFailed || ir.Import == StepFailed || ir.Activate == StepFailed {
			n++
		}
	}
	for _, pp := range r.PropertyPatches {
		if !pp.Applied {
			n++
		}
	}
	for _, ct := range r.ConnectionTests {
		if !ct.Passed {
			n++
		}
	}
	return n
}
