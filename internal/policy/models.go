// Package policy evaluates project writes against Rego rules using OPA.
// A default rule set ships embedded; extra .rego files can be loaded from disk.
package policy

import (
	"encoding/json"
	"path"
	"time"
)

// Decision represents the outcome of evaluating a write against the loaded policies.
type Decision struct {
	DecisionID  string    `json:"decisionId"`
	PolicyPath  string    `json:"policyPath"`
	Result      string    `json:"result"`
	Violations  []string  `json:"violations,omitempty"`
	Warnings    []string  `json:"warnings,omitempty"`
	Input       any       `json:"input"`
	EvaluatedAt time.Time `json:"evaluatedAt"`
}

// Result constants.
const (
	ResultAllow = "allow"
	ResultDeny  = "deny"
)

// IsAllowed returns true if the decision was "allow".
func (d *Decision) IsAllowed() bool {
	return d.Result == ResultAllow
}

// IsDenied returns true if the decision was "deny".
func (d *Decision) IsDenied() bool {
	return d.Result == ResultDeny
}

// ViolationsJSON returns the violations as a JSON array string.
func (d *Decision) ViolationsJSON() string {
	if len(d.Violations) == 0 {
		return "[]"
	}
	b, err := json.Marshal(d.Violations)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// WriteInput is what Rego policies receive as `input` for a file write.
type WriteInput struct {
	Path    string `json:"path"`
	Base    string `json:"base"`
	Ext     string `json:"ext"`
	Content string `json:"content"`
	Size    int    `json:"size"`
}

// NewWriteInput derives the policy input for writing content to a
// slash-separated project path.
func NewWriteInput(p, content string) WriteInput {
	return WriteInput{
		Path:    p,
		Base:    path.Base(p),
		Ext:     path.Ext(p),
		Content: content,
		Size:    len(content),
	}
}
