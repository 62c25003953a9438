package policy

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/open-policy-agent/opa/v1/rego"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// DefaultPolicyPackage is the Rego package queried for deny and warn rules.
const DefaultPolicyPackage = "builder.policy"

// ErrDenied is returned by the write guard when a deny rule fires.
var ErrDenied = errors.New("write denied by policy")

// Engine wraps OPA for policy evaluation. Queries are prepared once at
// construction; evaluation is local and safe for concurrent use.
type Engine struct {
	policies      []*PolicyFile
	policyPackage string
	deny          rego.PreparedEvalQuery
	warn          rego.PreparedEvalQuery
}

// EngineConfig holds configuration for creating an Engine.
type EngineConfig struct {
	// PoliciesDir holds extra .rego files. Empty means built-in rules only.
	PoliciesDir string

	// PolicyPackage defaults to DefaultPolicyPackage.
	PolicyPackage string

	// Fs defaults to the OS filesystem.
	Fs afero.Fs

	// SkipDefaults drops the embedded rule set.
	SkipDefaults bool
}

// NewEngine loads the embedded rules plus any from PoliciesDir and prepares
// the deny and warn queries.
func NewEngine(ctx context.Context, cfg EngineConfig) (*Engine, error) {
	if cfg.Fs == nil {
		cfg.Fs = afero.NewOsFs()
	}

	var policies []*PolicyFile
	if !cfg.SkipDefaults {
		defaults, err := DefaultPolicies()
		if err != nil {
			return nil, err
		}
		policies = append(policies, defaults...)
	}
	extra, err := NewLoader(cfg.Fs, cfg.PoliciesDir).LoadAll()
	if err != nil {
		return nil, fmt.Errorf("load policies: %w", err)
	}
	policies = append(policies, extra...)

	return NewEngineWithPolicies(ctx, cfg.PolicyPackage, policies)
}

// NewEngineWithPolicies creates an engine from explicitly provided policies.
func NewEngineWithPolicies(ctx context.Context, pkg string, policies []*PolicyFile) (*Engine, error) {
	if pkg == "" {
		pkg = DefaultPolicyPackage
	}
	e := &Engine{policies: policies, policyPackage: pkg}

	var err error
	if e.deny, err = e.prepare(ctx, "deny"); err != nil {
		return nil, fmt.Errorf("prepare deny rules: %w", err)
	}
	if e.warn, err = e.prepare(ctx, "warn"); err != nil {
		return nil, fmt.Errorf("prepare warn rules: %w", err)
	}
	return e, nil
}

func (e *Engine) prepare(ctx context.Context, rule string) (rego.PreparedEvalQuery, error) {
	opts := []func(*rego.Rego){
		rego.Query(fmt.Sprintf("data.%s.%s", e.policyPackage, rule)),
	}
	for _, p := range e.policies {
		opts = append(opts, rego.Module(p.Path, p.Content))
	}
	return rego.New(opts...).PrepareForEval(ctx)
}

// PolicyNames returns the names of all loaded policies.
func (e *Engine) PolicyNames() []string {
	names := make([]string, len(e.policies))
	for i, p := range e.policies {
		names[i] = p.Name
	}
	return names
}

// Evaluate runs the deny and warn rules against input.
// Strings produced by deny become violations; strings produced by warn are
// advisory and never change the result.
func (e *Engine) Evaluate(ctx context.Context, input any) (*Decision, error) {
	violations, err := querySet(ctx, e.deny, input)
	if err != nil {
		return nil, fmt.Errorf("query deny rules: %w", err)
	}
	warnings, err := querySet(ctx, e.warn, input)
	if err != nil {
		return nil, fmt.Errorf("query warn rules: %w", err)
	}

	decision := &Decision{
		DecisionID:  uuid.New().String(),
		PolicyPath:  e.policyPackage,
		Result:      ResultAllow,
		Warnings:    warnings,
		Input:       input,
		EvaluatedAt: time.Now().UTC(),
	}
	if len(violations) > 0 {
		decision.Result = ResultDeny
		decision.Violations = violations
	}
	return decision, nil
}

// CheckWrite evaluates writing content to a slash-separated project path.
func (e *Engine) CheckWrite(ctx context.Context, path, content string) (*Decision, error) {
	return e.Evaluate(ctx, NewWriteInput(path, content))
}

// Guard adapts the engine into a sandbox write guard. Denials become
// ErrDenied; warnings are logged.
func (e *Engine) Guard(logger *zap.Logger) func(ctx context.Context, path, content string) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, path, content string) error {
		d, err := e.CheckWrite(ctx, path, content)
		if err != nil {
			return fmt.Errorf("evaluate write policy: %w", err)
		}
		for _, w := range d.Warnings {
			logger.Warn("policy warning", zap.String("file", path), zap.String("warning", w))
		}
		if d.IsDenied() {
			logger.Info("write denied",
				zap.String("file", path),
				zap.String("decision_id", d.DecisionID),
				zap.Strings("violations", d.Violations))
			return fmt.Errorf("%w: %s", ErrDenied, strings.Join(d.Violations, "; "))
		}
		return nil
	}
}

func querySet(ctx context.Context, q rego.PreparedEvalQuery, input any) ([]string, error) {
	rs, err := q.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return nil, err
	}

	var results []string
	for _, result := range rs {
		for _, expr := range result.Expressions {
			set, ok := expr.Value.([]any)
			if !ok {
				continue
			}
			for _, item := range set {
				if s, ok := item.(string); ok {
					results = append(results, s)
				}
			}
		}
	}
	sort.Strings(results)
	return results, nil
}

// ValidatePolicy checks that content is valid Rego.
func ValidatePolicy(content string) error {
	_, err := rego.New(
		rego.Query("data"),
		rego.Module("validation.rego", content),
	).PrepareForEval(context.Background())
	if err != nil {
		return fmt.Errorf("invalid policy: %w", err)
	}
	return nil
}
