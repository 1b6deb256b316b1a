package compliance

import (
	"math"
	"time"
)

// Control is one fixed SOC2 security-practice category.
type Control string

const (
	ControlAccessControl    Control = "Access Control"
	ControlDataEncryption   Control = "Data Encryption"
	ControlIncidentResponse Control = "Incident Response"
	ControlLogging          Control = "Logging and Monitoring"
	ControlTraining         Control = "Employee Security Training"
)

// Controls returns the full control set in its canonical order.
// The prompt builders enumerate this exact slice; client and server
// prompts must not diverge.
func Controls() []Control {
	return []Control{
		ControlAccessControl,
		ControlDataEncryption,
		ControlIncidentResponse,
		ControlLogging,
		ControlTraining,
	}
}

// Result is the coverage verdict produced per analysis. Covered and
// Missing partition the full control set exactly.
type Result struct {
	Covered   []Control          `json:"covered"`
	Missing   []Control          `json:"missing"`
	Reasoning map[Control]string `json:"reasoning"`
}

// Score returns the compliance percentage rounded to the nearest integer.
func (r *Result) Score() int {
	total := len(r.Covered) + len(r.Missing)
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(len(r.Covered)) / float64(total) * 100))
}

// GeneratedPolicy is one generated policy document. At most one live
// policy exists per control; upserts are last-write-wins by control.
type GeneratedPolicy struct {
	Control Control `json:"control"`
	Content string  `json:"content"`
}

// AnalysisRecord is a persisted analysis snapshot. Immutable once
// created except for deletion; owned by the user who created it.
type AnalysisRecord struct {
	ID                string             `json:"id"`
	UserID            string             `json:"user_id"`
	FileName          string             `json:"file_name"`
	DocumentText      string             `json:"document_text"`
	Covered           []Control          `json:"covered"`
	Missing           []Control          `json:"missing"`
	Reasoning         map[Control]string `json:"reasoning"`
	GeneratedPolicies []GeneratedPolicy  `json:"generated_policies"`
	CreatedAt         time.Time          `json:"created_at"`
}
