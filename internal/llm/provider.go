package llm

import (
	"context"
	"errors"
	"fmt"
)

// Request is one structured-generation call. System carries the stage
// persona and schema instructions, User the material to reason over.
type Request struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float32
}

// Provider is the narrow interface the pipeline has onto the generation
// collaborator. Responses are raw text; callers decode them against a
// stage-specific schema.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}

// ProviderFunc adapts a function to the Provider interface, mostly for
// tests
type ProviderFunc func(ctx context.Context, req Request) (string, error)

func (f ProviderFunc) Name() string { return "func" }

func (f ProviderFunc) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// strictRetrySuffix is appended to the system prompt when the first
// response fails schema validation
const strictRetrySuffix = "\n\nIMPORTANT: Your previous answer was not valid JSON matching the schema. Respond with ONLY the JSON value. No prose, no markdown fences, no explanations."

// CompleteJSON performs a structured-generation call and decodes the
// response into T. A response that fails to parse is retried exactly once
// with a stricter instruction; a second failure returns the ParseError so
// the caller can take its conservative fallback. Transport errors are
// returned as-is.
func CompleteJSON[T any](ctx context.Context, p Provider, req Request) (T, error) {
	var zero T

	raw, err := p.Complete(ctx, req)
	if err != nil {
		return zero, fmt.Errorf("llm call: %w", err)
	}

	v, err := Decode[T](raw)
	if err == nil {
		return v, nil
	}
	var perr *ParseError
	if !errors.As(err, &perr) {
		return zero, err
	}

	retry := req
	retry.System += strictRetrySuffix
	raw, err = p.Complete(ctx, retry)
	if err != nil {
		return zero, fmt.Errorf("llm retry: %w", err)
	}
	return Decode[T](raw)
}
