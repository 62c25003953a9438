package llm

import (
	"context"
	"fmt"
	"sync"

	"github.com/cloudwego/eino/components/model"
)

// Role names the kind of work a model is used for. Each role may be
// bound to a different model, temperature and output budget.
type Role string

const (
	RolePlanning  Role = "planning"
	RoleArchitect Role = "architect"
	RoleCoding    Role = "coding"
	RoleReview    Role = "review"
	RoleFixer     Role = "fixer"
	RoleDefault   Role = "default"
)

// Roles lists every role in configuration order.
var Roles = []Role{RolePlanning, RoleArchitect, RoleCoding, RoleReview, RoleFixer, RoleDefault}

// RoleSettings tunes one role.
type RoleSettings struct {
	Model       string
	Temperature float32
	MaxTokens   int
}

// groqRoles mirrors the per-role tuning used with Groq-hosted models.
var groqRoles = map[Role]RoleSettings{
	RolePlanning:  {Model: "moonshotai/kimi-k2-instruct", Temperature: 0.7, MaxTokens: 4096},
	RoleArchitect: {Model: "llama-3.3-70b-versatile", Temperature: 0.2, MaxTokens: 8192},
	RoleCoding:    {Model: "moonshotai/kimi-k2-instruct", Temperature: 0.1, MaxTokens: 4096},
	RoleReview:    {Model: "openai/gpt-oss-120b", Temperature: 0.2, MaxTokens: 8192},
	RoleFixer:     {Model: "llama-3.3-70b-versatile", Temperature: 0.1, MaxTokens: 4096},
	RoleDefault:   {Model: "llama-3.3-70b-versatile", Temperature: 0.3, MaxTokens: 4096},
}

// DefaultRoleSettings returns the built-in tuning for a role. Providers other
// than Groq share one model across roles and only vary temperature.
func DefaultRoleSettings(p Provider, r Role) RoleSettings {
	if p == ProviderGroq {
		if s, ok := groqRoles[r]; ok {
			return s
		}
		return groqRoles[RoleDefault]
	}
	s := groqRoles[r]
	if s.Model == "" {
		s = groqRoles[RoleDefault]
	}
	s.Model = defaultModels[p]
	return s
}

// ModelSource hands out chat models by role.
type ModelSource interface {
	Model(ctx context.Context, role Role) (model.BaseChatModel, error)
}

// Factory builds a chat model for a resolved config.
type Factory func(ctx context.Context, cfg Config) (model.BaseChatModel, error)

// Registry lazily builds one chat model per role and caches it.
type Registry struct {
	base    Config
	roles   map[Role]RoleSettings
	factory Factory

	mu     sync.Mutex
	models map[Role]model.BaseChatModel
}

// NewRegistry returns a Registry over base. Roles missing from overrides use
// DefaultRoleSettings; a zero field in an override falls back per field.
func NewRegistry(base Config, overrides map[Role]RoleSettings) *Registry {
	roles := make(map[Role]RoleSettings, len(Roles))
	for _, r := range Roles {
		s := DefaultRoleSettings(base.Provider, r)
		if base.Model != "" {
			s.Model = base.Model
		}
		if o, ok := overrides[r]; ok {
			if o.Model != "" {
				s.Model = o.Model
			}
			if o.Temperature != 0 {
				s.Temperature = o.Temperature
			}
			if o.MaxTokens != 0 {
				s.MaxTokens = o.MaxTokens
			}
		}
		roles[r] = s
	}
	return &Registry{
		base:    base,
		roles:   roles,
		factory: NewChatModel,
		models:  make(map[Role]model.BaseChatModel),
	}
}

// WithFactory replaces the model constructor, mainly for tests.
func (r *Registry) WithFactory(f Factory) *Registry {
	r.factory = f
	return r
}

// Settings returns the resolved tuning for role.
func (r *Registry) Settings(role Role) RoleSettings {
	if s, ok := r.roles[role]; ok {
		return s
	}
	return r.roles[RoleDefault]
}

// Model returns the cached chat model for role, building it on first use.
func (r *Registry) Model(ctx context.Context, role Role) (model.BaseChatModel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.models[role]; ok {
		return m, nil
	}
	s := r.Settings(role)
	cfg := r.base
	cfg.Model = s.Model
	cfg.Temperature = s.Temperature
	cfg.MaxTokens = s.MaxTokens

	m, err := r.factory(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("build %s model: %w", role, err)
	}
	r.models[role] = m
	return m, nil
}
