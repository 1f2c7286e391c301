// Package exec provides a runner that executes plan steps as local shell
// commands.  Only steps whose description carries an explicit "run:" prefix
// are executed; everything else is treated as a manual step and reported as
// simulated, so a plan can freely mix commands with human work items.
package exec

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/viant/gosh"
	"github.com/viant/gosh/runner"
	"github.com/viant/gosh/runner/local"

	"github.com/taskwell/taskwell/model"
	"github.com/taskwell/taskwell/model/types"
)

// commandPrefix marks a step description as an executable command.
const commandPrefix = "run:"

// Option customises the runner.
type Option func(*Runner)

// WithTimeout bounds a single command execution.
func WithTimeout(timeout time.Duration) Option {
	return func(r *Runner) { r.timeout = timeout }
}

// Runner executes "run:"-prefixed steps on the local system via gosh.
type Runner struct {
	timeout time.Duration

	mux     sync.Mutex
	session *gosh.Service
}

// New creates a local command runner.
func New(options ...Option) *Runner {
	r := &Runner{timeout: time.Minute}
	for _, option := range options {
		option(r)
	}
	return r
}

func (r *Runner) Execute(ctx context.Context, step *model.Step) (*types.RunResult, error) {
	command, ok := stepCommand(step)
	if !ok {
		return &types.RunResult{
			Success: true,
			Output:  "simulated: " + step.Description,
		}, nil
	}

	session, err := r.getSession(ctx)
	if err != nil {
		return nil, err
	}

	output, status, err := session.Run(ctx, command, runner.WithTimeout(int(r.timeout.Milliseconds())))
	if err != nil {
		return &types.RunResult{Success: false, Output: output, Error: err.Error()}, nil
	}
	if status != 0 {
		return &types.RunResult{Success: false, Output: output, Error: "command exited with non-zero status"}, nil
	}
	return &types.RunResult{Success: true, Output: output}, nil
}

// getSession lazily opens a reusable local shell session.
func (r *Runner) getSession(ctx context.Context) (*gosh.Service, error) {
	r.mux.Lock()
	defer r.mux.Unlock()
	if r.session != nil {
		return r.session, nil
	}
	session, err := gosh.New(ctx, local.New())
	if err != nil {
		return nil, err
	}
	r.session = session
	return session, nil
}

// stepCommand extracts the shell command from a step description, if any.
func stepCommand(step *model.Step) (string, bool) {
	lowered := strings.ToLower(step.Description)
	if !strings.HasPrefix(lowered, commandPrefix) {
		return "", false
	}
	command := strings.TrimSpace(step.Description[len(commandPrefix):])
	if command == "" {
		return "", false
	}
	return command, true
}

var _ types.Runner = (*Runner)(nil)
