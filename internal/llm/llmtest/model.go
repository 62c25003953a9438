// Package llmtest provides scripted chat models for tests.
package llmtest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/Saurav134/Agentic-Project-Builder/internal/llm"
)

// Call is one recorded Generate invocation.
type Call struct {
	Messages []*schema.Message
	Tools    []*schema.ToolInfo
}

// Prompt returns the text of the last user message.
func (c Call) Prompt() string {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if c.Messages[i].Role == schema.User {
			return c.Messages[i].Content
		}
	}
	return ""
}

// HasTool reports whether the call offered a tool called name.
func (c Call) HasTool(name string) bool {
	for _, t := range c.Tools {
		if t.Name == name {
			return true
		}
	}
	return false
}

// Responder produces the reply for a call.
type Responder func(call Call) (*schema.Message, error)

// Model is a model.BaseChatModel driven by a Responder.
type Model struct {
	mu      sync.Mutex
	respond Responder
	calls   []Call
}

var _ model.BaseChatModel = (*Model)(nil)

// New returns a model that answers every call with r.
func New(r Responder) *Model {
	return &Model{respond: r}
}

// Script returns a model that replays steps in order and fails once they
// run out.
func Script(steps ...Responder) *Model {
	var (
		mu sync.Mutex
		i  int
	)
	return New(func(call Call) (*schema.Message, error) {
		mu.Lock()
		defer mu.Unlock()
		if i >= len(steps) {
			return nil, fmt.Errorf("script exhausted after %d calls", len(steps))
		}
		step := steps[i]
		i++
		return step(call)
	})
}

// Generate implements model.BaseChatModel.
func (m *Model) Generate(_ context.Context, msgs []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	o := model.GetCommonOptions(&model.Options{}, opts...)
	call := Call{Messages: append([]*schema.Message(nil), msgs...), Tools: o.Tools}

	m.mu.Lock()
	m.calls = append(m.calls, call)
	m.mu.Unlock()

	return m.respond(call)
}

// Stream is not supported.
func (m *Model) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("streaming not supported")
}

// Calls returns the recorded calls.
func (m *Model) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// Text replies with plain content.
func Text(content string) Responder {
	return func(Call) (*schema.Message, error) {
		return schema.AssistantMessage(content, nil), nil
	}
}

// Fail replies with err.
func Fail(err error) Responder {
	return func(Call) (*schema.Message, error) { return nil, err }
}

// ToolCall replies with a single tool call.
func ToolCall(name, argsJSON string) Responder {
	return func(c Call) (*schema.Message, error) {
		return schema.AssistantMessage("", []schema.ToolCall{{
			ID:       fmt.Sprintf("call_%d", len(c.Messages)),
			Type:     "function",
			Function: schema.FunctionCall{Name: name, Arguments: argsJSON},
		}}), nil
	}
}

// Route picks a responder by the first substring found in the prompt.
// Unmatched prompts get fallback.
type Route struct {
	Contains string
	Reply    Responder
}

// Router returns a responder that dispatches on prompt content.
func Router(fallback Responder, routes ...Route) Responder {
	return func(c Call) (*schema.Message, error) {
		p := c.Prompt()
		for _, r := range routes {
			if strings.Contains(p, r.Contains) {
				return r.Reply(c)
			}
		}
		return fallback(c)
	}
}

// Source serves fixed models per role, falling back to RoleDefault.
type Source map[llm.Role]model.BaseChatModel

var _ llm.ModelSource = Source(nil)

// Model implements llm.ModelSource.
func (s Source) Model(_ context.Context, role llm.Role) (model.BaseChatModel, error) {
	if m, ok := s[role]; ok {
		return m, nil
	}
	if m, ok := s[llm.RoleDefault]; ok {
		return m, nil
	}
	return nil, fmt.Errorf("no model for role %s", role)
}
