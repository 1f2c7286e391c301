package types

import "context"

// GenerateOptions carries the tuning knobs for a text generation call.
type GenerateOptions struct {
	SystemPrompt string
	Temperature  float64
	MaxTokens    int
}

// Generator is the opaque text-generation capability the core depends on.
// The engine never assumes a specific provider; a real backend is wired at
// the boundary and tests use GeneratorFunc fakes.
type Generator interface {
	Generate(ctx context.Context, prompt string, options *GenerateOptions) (string, error)
}

// GeneratorFunc adapts a plain function to the Generator interface.
type GeneratorFunc func(ctx context.Context, prompt string, options *GenerateOptions) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string, options *GenerateOptions) (string, error) {
	return f(ctx, prompt, options)
}
