package recovery

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/Saurav134/Agentic-Project-Builder/internal/llm"
)

var (
	pathFieldRegex    = regexp.MustCompile(`"path"\s*:\s*"([^"]+)"`)
	contentFieldRegex = regexp.MustCompile(`(?s)"content"\s*:\s*"(.+)"`)
	argUnescaper      = strings.NewReplacer(`\"`, `"`, `\n`, "\n", `\t`, "\t")
)

// callPattern matches a text-form call to the named tool. Providers drop the
// closing bracket of the opening tag often enough that it is optional.
func callPattern(name string) *regexp.Regexp {
	key := "call:" + name
	tagPatternsMu.Lock()
	defer tagPatternsMu.Unlock()
	if re, ok := tagPatterns[key]; ok {
		return re
	}
	re := regexp.MustCompile(`(?s)<function=` + regexp.QuoteMeta(name) + `>?\s*(\{.+?\})\s*(?:</function>|>)`)
	tagPatterns[key] = re
	return re
}

// ToolCall is a tool invocation pulled out of a failed generation.
type ToolCall struct {
	Name string
	Args Fields
}

// WriteArgs returns the path and content of a write_file call. ok is false
// when either is blank.
func (c ToolCall) WriteArgs() (path, content string, ok bool) {
	path = c.Args.String("path", "")
	content = c.Args.String("content", "")
	if strings.TrimSpace(path) == "" || content == "" {
		return "", "", false
	}
	return path, content, true
}

// ExtractToolCall finds a call to the tool name in a failed tool-using
// generation. JSON decoding is tried first; if the arguments are too damaged,
// the path and content fields are matched individually.
func ExtractToolCall(failure error, name string) (call ToolCall, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			call, ok = ToolCall{}, false
		}
	}()
	if failure == nil {
		return ToolCall{}, false
	}
	payload := failure.Error()
	if ge, isGen := llm.AsGenerationError(failure); isGen && ge.Payload != "" {
		payload = ge.Payload
	}

	m := callPattern(name).FindStringSubmatch(unwrapFailedGeneration(payload))
	if m == nil {
		return ToolCall{}, false
	}
	raw := argUnescaper.Replace(m[1])

	var args map[string]any
	if json.Unmarshal([]byte(m[1]), &args) == nil && len(args) > 0 {
		return ToolCall{Name: name, Args: Fields(args)}, true
	}
	if json.Unmarshal([]byte(sanitizeControlChars(raw)), &args) == nil && len(args) > 0 {
		return ToolCall{Name: name, Args: Fields(args)}, true
	}

	fields := Fields{}
	if pm := pathFieldRegex.FindStringSubmatch(raw); pm != nil {
		fields["path"] = pm[1]
	}
	if cm := contentFieldRegex.FindStringSubmatch(raw); cm != nil {
		fields["content"] = argUnescaper.Replace(cm[1])
	}
	if len(fields) == 0 {
		return ToolCall{}, false
	}
	return ToolCall{Name: name, Args: fields}, true
}
