package state

import (
	"fmt"
	"strings"
)

// Phase is the pipeline stage currently in control.
type Phase string

const (
	PhaseInitializing Phase = "initializing"
	PhasePlanning     Phase = "planning"
	PhaseArchitecting Phase = "architecting"
	PhaseCoding       Phase = "coding"
	PhaseReviewing    Phase = "reviewing"
	PhaseFixing       Phase = "fixing"
	PhaseTesting      Phase = "testing"
	PhaseFinalizing   Phase = "finalizing"
	PhaseComplete     Phase = "complete"
	PhaseFailed       Phase = "failed"
)

var phases = []Phase{
	PhaseInitializing, PhasePlanning, PhaseArchitecting, PhaseCoding, PhaseReviewing,
	PhaseFixing, PhaseTesting, PhaseFinalizing, PhaseComplete, PhaseFailed,
}

// ParsePhase maps a string to a Phase, rejecting unknown values.
func ParsePhase(s string) (Phase, error) {
	for _, p := range phases {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown phase %q", s)
}

// Severity grades a review finding.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityPass     Severity = "pass"
)

// severityAliases are the only non-canonical spellings accepted from model output.
var severityAliases = map[string]Severity{
	"critical": SeverityCritical,
	"high":     SeverityHigh,
	"medium":   SeverityMedium,
	"low":      SeverityLow,
	"pass":     SeverityPass,
	"major":    SeverityHigh,
	"error":    SeverityHigh,
	"warning":  SeverityMedium,
	"moderate": SeverityMedium,
	"minor":    SeverityLow,
	"info":     SeverityLow,
}

// ParseSeverity maps model output to a Severity. Unknown values are an error.
func ParseSeverity(s string) (Severity, error) {
	if sev, ok := severityAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return sev, nil
	}
	return "", fmt.Errorf("unknown severity %q", s)
}

// Status is the fine-grained progress marker a stage reports.
type Status string

const (
	StatusInitialized         Status = "initialized"
	StatusPlanned             Status = "planned"
	StatusArchitected         Status = "architected"
	StatusCoding              Status = "coding"
	StatusCoded               Status = "coded"
	StatusReviewed            Status = "reviewed"
	StatusReviewMaxIterations Status = "review_max_iterations"
	StatusFixed               Status = "fixed"
	StatusTestsGenerated      Status = "tests_generated"
	StatusNoTestsNeeded       Status = "no_tests_needed"
	StatusTestsComplete       Status = "tests_complete"
	StatusDone                Status = "DONE"
	StatusFailed              Status = "FAILED"
)

// Terminal reports whether the status ends a run.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusFailed
}
