// Package ai wraps the text-generation providers behind a single
// capability interface so retry, timeout and fallback policy live in one
// place instead of per call site.
package ai

import "context"

type Options struct {
	Temperature float64
	MaxTokens   int
}

// TextGenerator is the capability boundary the engine consumes. A nil
// generator means "AI disabled"; callers take the deterministic path.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
}
