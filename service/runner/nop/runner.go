// Package nop provides a runner that performs no operation and reports
// success for every step.  It is the default capability for tests and for
// deployments where true execution happens outside the pipeline.
package nop

import (
	"context"

	"github.com/taskwell/taskwell/model"
	"github.com/taskwell/taskwell/model/types"
)

// Runner marks every step as executed without side effects.
type Runner struct{}

// New creates a no-op runner.
func New() *Runner {
	return &Runner{}
}

func (r *Runner) Execute(ctx context.Context, step *model.Step) (*types.RunResult, error) {
	return &types.RunResult{
		Success: true,
		Output:  "simulated: " + step.Description,
	}, nil
}

var _ types.Runner = (*Runner)(nil)
