package impl

import (
	"context"

	"github.com/cloudwego/eino/components/model"

	"github.com/Saurav134/Agentic-Project-Builder/internal/llm"
	"github.com/Saurav134/Agentic-Project-Builder/internal/recovery"
)

// Generation tiers, reported in logs and metrics.
const (
	tierStructured = "structured"
	tierRecovered  = "recovered"
	tierTools      = "tools"
	tierSalvaged   = "salvaged"
	tierDirect     = "direct"
	tierFallback   = "fallback"
	tierVerdict    = "verdict"
)

// structured requests s and maps the result. A malformed reply, whether
// rejected by the provider or by mapFn, goes through recovery before giving
// up. Errors that carry no model output are returned untouched.
func structured[T any](ctx context.Context, m model.BaseChatModel, prompt string, s llm.Schema, mapFn recovery.Mapper[T]) (T, string, error) {
	var zero T
	raw, err := llm.GenerateStructured(ctx, m, prompt, s)
	if err == nil {
		fields, derr := recovery.DecodeFields(raw)
		if derr == nil {
			rec, merr := mapFn(fields)
			if merr == nil {
				return rec, tierStructured, nil
			}
			derr = merr
		}
		err = &llm.GenerationError{Tag: s.Name, Payload: string(raw), Err: derr}
	}
	if !llm.IsRecoverable(err) {
		return zero, "", err
	}
	if rec, ok := recovery.Recover(err, s.Name, mapFn); ok {
		return rec, tierRecovered, nil
	}
	return zero, "", err
}
