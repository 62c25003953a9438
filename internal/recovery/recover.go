// Package recovery salvages usable output from malformed model generations:
// structured records embedded in provider errors, write_file tool calls the
// provider refused to parse, and code bodies wrapped in markdown.
package recovery

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/Saurav134/Agentic-Project-Builder/internal/llm"
)

// payloadUnescaper undoes the escaping providers apply when quoting a
// failed generation inside an error message.
var payloadUnescaper = strings.NewReplacer(`\"`, `"`, `\n`, "\n", `\<`, `<`, `\/`, `/`)

var (
	tagPatternsMu sync.Mutex
	tagPatterns   = map[string]*regexp.Regexp{}
)

func tagPattern(tag string) *regexp.Regexp {
	tagPatternsMu.Lock()
	defer tagPatternsMu.Unlock()
	if re, ok := tagPatterns[tag]; ok {
		return re
	}
	re := regexp.MustCompile(`(?s)<function=` + regexp.QuoteMeta(tag) + `>(\{.*?\})</function>`)
	tagPatterns[tag] = re
	return re
}

var failedGenerationKey = regexp.MustCompile(`"failed_generation"\s*:\s*"`)

// unwrapFailedGeneration decodes the failed_generation string when the
// payload is a JSON error body, so the tool call inside is no longer
// double-escaped. Other payloads are returned unchanged.
func unwrapFailedGeneration(payload string) string {
	loc := failedGenerationKey.FindStringIndex(payload)
	if loc == nil {
		return payload
	}
	var inner string
	dec := json.NewDecoder(strings.NewReader(payload[loc[1]-1:]))
	if err := dec.Decode(&inner); err != nil || inner == "" {
		return payload
	}
	return inner
}

// Mapper converts decoded fields into a typed record. Returning an error
// rejects the payload.
type Mapper[T any] func(Fields) (T, error)

// Recover extracts a record tagged tag from a failed generation. It never
// panics and never returns an error: anything unusable yields ok == false so
// the caller moves on to its next fallback.
func Recover[T any](failure error, tag string, mapFn Mapper[T]) (out T, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			out, ok = zero, false
		}
	}()
	if failure == nil {
		return out, false
	}

	payload := failure.Error()
	if ge, isGen := llm.AsGenerationError(failure); isGen && ge.Payload != "" {
		payload = ge.Payload
	}

	fields, err := extractFields(payload, tag)
	if err != nil {
		return out, false
	}
	rec, err := mapFn(fields)
	if err != nil {
		return out, false
	}
	return rec, true
}

// RecoverText is Recover for a raw payload string.
func RecoverText[T any](payload, tag string, mapFn Mapper[T]) (T, bool) {
	return Recover(&llm.GenerationError{Tag: tag, Payload: payload}, tag, mapFn)
}

func extractFields(payload, tag string) (Fields, error) {
	payload = unwrapFailedGeneration(payload)
	if m := tagPattern(tag).FindStringSubmatch(payload); m != nil {
		var lastErr error
		for _, candidate := range []string{m[1], payloadUnescaper.Replace(m[1])} {
			obj, err := decodeObject(candidate)
			if err == nil {
				return Fields(obj), nil
			}
			lastErr = err
		}
		return nil, lastErr
	}
	if strings.Contains(payload, "<function=") {
		return nil, fmt.Errorf("payload is tagged for a different schema")
	}
	if failedGenerationKey.MatchString(payload) {
		return nil, errors.New("provider error carries no generation")
	}
	obj, err := decodeObject(payload)
	if err != nil {
		return nil, err
	}
	if errorEnvelope(obj) {
		return nil, errors.New("payload is a provider error body")
	}
	return Fields(obj), nil
}

// errorEnvelope reports whether obj is an API error body such as
// {"error": {"message": ..., "code": ...}}.
func errorEnvelope(obj map[string]any) bool {
	if len(obj) != 1 {
		return false
	}
	_, ok := obj["error"].(map[string]any)
	return ok
}
