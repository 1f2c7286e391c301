package types

import (
	"context"

	"github.com/taskwell/taskwell/model"
)

// RunResult reports the outcome of a single step execution.
type RunResult struct {
	Success bool   `json:"success"`
	Output  string `json:"output,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Runner is the capability that carries out a plan step. True execution is
// an external collaborator; the executor only interprets the result. Retry
// policy, if any, belongs inside the runner implementation.
type Runner interface {
	Execute(ctx context.Context, step *model.Step) (*RunResult, error)
}

// RunnerFunc adapts a plain function to the Runner interface.
type RunnerFunc func(ctx context.Context, step *model.Step) (*RunResult, error)

func (f RunnerFunc) Execute(ctx context.Context, step *model.Step) (*RunResult, error) {
	return f(ctx, step)
}
