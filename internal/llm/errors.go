package llm

import (
	"errors"
	"fmt"
	"strings"
)

// GenerationError is a recoverable failure: the model produced output for
// Tag, but not in a form the provider or decoder accepted. Payload holds the
// raw text that carried it, which downstream salvage may still parse.
type GenerationError struct {
	Tag     string
	Payload string
	Err     error
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed %s generation: %v", e.Tag, e.Err)
	}
	return fmt.Sprintf("malformed %s generation", e.Tag)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// AsGenerationError unwraps err to a *GenerationError.
func AsGenerationError(err error) (*GenerationError, bool) {
	var ge *GenerationError
	if errors.As(err, &ge) {
		return ge, true
	}
	return nil, false
}

// IsRecoverable reports whether err carries salvageable model output.
func IsRecoverable(err error) bool {
	_, ok := AsGenerationError(err)
	return ok
}

// markers that providers put in errors when a tool call could not be parsed.
var failedGenerationMarkers = []string{
	"failed_generation",
	"tool_use_failed",
	"<function=",
}

// Classify converts a provider error into a *GenerationError when its text
// embeds a malformed tool-call payload. tags are the tool or schema names the
// request offered; the first one found in the text becomes Tag. Any other
// error is returned unchanged and should be treated as fatal for the call.
func Classify(err error, tags ...string) error {
	if err == nil {
		return nil
	}
	if _, ok := AsGenerationError(err); ok {
		return err
	}
	msg := err.Error()
	matched := false
	for _, m := range failedGenerationMarkers {
		if strings.Contains(msg, m) {
			matched = true
			break
		}
	}
	if !matched {
		return err
	}
	tag := ""
	for _, t := range tags {
		if strings.Contains(msg, "<function="+t) {
			tag = t
			break
		}
	}
	if tag == "" && len(tags) > 0 {
		tag = tags[0]
	}
	return &GenerationError{Tag: tag, Payload: msg, Err: err}
}
