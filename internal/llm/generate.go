package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// Schema describes a structured output as a single tool the model must call.
type Schema struct {
	Name        string
	Description string
	Params      map[string]*schema.ParameterInfo
}

// ToolInfo renders the schema for model.WithTools.
func (s Schema) ToolInfo() *schema.ToolInfo {
	return &schema.ToolInfo{
		Name:        s.Name,
		Desc:        s.Description,
		ParamsOneOf: schema.NewParamsOneOfByParams(s.Params),
	}
}

// Generate sends a single user prompt and returns the reply text.
func Generate(ctx context.Context, m model.BaseChatModel, prompt string) (string, error) {
	resp, err := m.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)})
	if err != nil {
		return "", Classify(err)
	}
	if resp == nil {
		return "", errors.New("model returned no message")
	}
	return resp.Content, nil
}

// GenerateStructured asks for output matching s and returns its JSON.
// A malformed reply yields a *GenerationError tagged s.Name; transport and
// provider failures are returned as-is.
func GenerateStructured(ctx context.Context, m model.BaseChatModel, prompt string, s Schema) (json.RawMessage, error) {
	msgs := []*schema.Message{
		schema.SystemMessage(structuredInstruction(s)),
		schema.UserMessage(prompt),
	}
	resp, err := m.Generate(ctx, msgs, model.WithTools([]*schema.ToolInfo{s.ToolInfo()}))
	if err != nil {
		return nil, Classify(err, s.Name)
	}
	if resp == nil {
		return nil, &GenerationError{Tag: s.Name, Err: errors.New("empty response")}
	}

	for _, tc := range resp.ToolCalls {
		if tc.Function.Name != s.Name {
			continue
		}
		args := strings.TrimSpace(tc.Function.Arguments)
		if json.Valid([]byte(args)) {
			return json.RawMessage(args), nil
		}
		return nil, &GenerationError{
			Tag:     s.Name,
			Payload: fmt.Sprintf("<function=%s>%s</function>", s.Name, args),
			Err:     errors.New("invalid tool arguments"),
		}
	}

	content := strings.TrimSpace(resp.Content)
	if strings.Contains(content, "<function=") {
		return nil, &GenerationError{Tag: s.Name, Payload: content, Err: errors.New("tool call emitted as text")}
	}
	if raw, ok := s.findObject(content); ok {
		return raw, nil
	}
	return nil, &GenerationError{Tag: s.Name, Payload: content, Err: errors.New("no JSON object in response")}
}

// findObject decodes the first JSON object in text that fits s. Objects
// quoted in prose, such as a snippet of the code under review, are skipped.
func (s Schema) findObject(text string) (json.RawMessage, bool) {
	for off := 0; off < len(text); {
		idx := strings.IndexByte(text[off:], '{')
		if idx == -1 {
			return nil, false
		}
		start := off + idx
		var raw json.RawMessage
		if err := json.NewDecoder(strings.NewReader(text[start:])).Decode(&raw); err == nil && s.fits(raw) {
			return raw, true
		}
		off = start + 1
	}
	return nil, false
}

// fits reports whether raw is an object holding every required parameter
// of s. A schema without required parameters needs at least one known key.
func (s Schema) fits(raw json.RawMessage) bool {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return false
	}
	known := false
	for name, p := range s.Params {
		_, ok := obj[name]
		if !ok && p != nil && p.Required {
			return false
		}
		known = known || ok
	}
	return known
}

func structuredInstruction(s Schema) string {
	return fmt.Sprintf("Respond by calling the %s tool exactly once with arguments that match its parameters. "+
		"If you cannot call tools, reply with only a JSON object holding those arguments.", s.Name)
}
