package executor

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/taskwell/taskwell/internal/clock"
	"github.com/taskwell/taskwell/model"
	"github.com/taskwell/taskwell/model/types"
	"github.com/taskwell/taskwell/progress"
	"github.com/taskwell/taskwell/service/queue"
	"github.com/taskwell/taskwell/tracing"
)

// ApprovalChecker reports whether a gated step has been granted approval.
// The executor never creates approval requests itself; routing a blocked
// step to the approval gate is the caller's responsibility.
type ApprovalChecker interface {
	Approved(ctx context.Context, plan *model.Plan, step *model.Step) (bool, error)
}

// ApprovalCheckerFunc adapts a plain function to the ApprovalChecker
// interface.
type ApprovalCheckerFunc func(ctx context.Context, plan *model.Plan, step *model.Step) (bool, error)

func (f ApprovalCheckerFunc) Approved(ctx context.Context, plan *model.Plan, step *model.Step) (bool, error) {
	return f(ctx, plan, step)
}

// Result reports the outcome of a single plan run.
type Result struct {
	Name      string
	Status    model.PlanStatus
	Completed int
	Total     int
	// HaltedAt is the number of the step the run stopped at, 0 when the
	// plan ran to completion.
	HaltedAt  int
	StepError string
}

// Option is used to customise the executor instance.
type Option func(*service)

// WithApprovalChecker wires the gate consulted before a sensitive step runs.
// Without a checker every sensitive step halts the plan.
func WithApprovalChecker(checker ApprovalChecker) Option {
	return func(s *service) { s.checker = checker }
}

// WithLogger sets the structured logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *service) { s.logger = logger }
}

// Service executes persisted plans.
type Service interface {
	// ExecutePlan runs the named plan from the plans location until it
	// completes, halts at an ungated sensitive step, or a step fails.
	ExecutePlan(ctx context.Context, name string) (*Result, error)

	// ExecuteAll runs every plan currently persisted. Per-plan failures
	// are reported in the results, never propagated.
	ExecuteAll(ctx context.Context) ([]*Result, error)
}

type service struct {
	queue   *queue.Service
	runner  types.Runner
	checker ApprovalChecker
	logger  zerolog.Logger
}

// New creates a plan executor backed by the supplied queue and runner.
func New(q *queue.Service, runner types.Runner, options ...Option) Service {
	s := &service{
		queue:  q,
		runner: runner,
		logger: zerolog.Nop(),
	}
	for _, option := range options {
		option(s)
	}
	return s
}

func (s *service) ExecutePlan(ctx context.Context, name string) (*Result, error) {
	ctx, span := tracing.StartSpan(ctx, "executor.plan", "INTERNAL")
	result, err := s.executePlan(ctx, name)
	tracing.EndSpan(span, err)
	return result, err
}

func (s *service) executePlan(ctx context.Context, name string) (*Result, error) {
	rec, err := s.queue.Get(ctx, queue.Plans, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load plan %v: %w", name, err)
	}
	if rec.String("kind") != model.KindPlan {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPlan, name)
	}
	plan, err := model.PlanFromRecord(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to decode plan %v: %w", name, err)
	}

	for {
		// Cooperative cancellation between steps, never mid-call.
		if err := ctx.Err(); err != nil {
			return s.result(name, plan), err
		}

		step := plan.NextStep()
		if step == nil {
			return s.complete(ctx, name, plan)
		}

		if step.Sensitive || step.RequiresApproval {
			granted, err := s.approved(ctx, plan, step)
			if err != nil {
				return s.result(name, plan), err
			}
			if !granted {
				plan.Status = model.PlanStatusAwaitingApproval
				plan.CurrentStep = step.Number
				if err := s.persist(ctx, name, plan); err != nil {
					return s.result(name, plan), err
				}
				progress.UpdateCtx(ctx, progress.Delta{StepsBlocked: 1})
				s.logger.Info().Str("plan", name).Int("step", step.Number).Msg("plan awaiting approval")
				result := s.result(name, plan)
				result.HaltedAt = step.Number
				return result, nil
			}
		}

		outcome, err := s.runner.Execute(ctx, step)
		if err == nil && outcome != nil && !outcome.Success {
			err = fmt.Errorf("%w: %s", ErrStepFailed, outcome.Error)
		}
		if err != nil {
			// Halt the whole plan in its current state; retries, if any,
			// belong inside the runner.
			plan.CurrentStep = step.Number
			if persistErr := s.persist(ctx, name, plan); persistErr != nil {
				s.logger.Error().Err(persistErr).Str("plan", name).Msg("failed to persist halted plan")
			}
			progress.UpdateCtx(ctx, progress.Delta{Errors: 1})
			result := s.result(name, plan)
			result.HaltedAt = step.Number
			result.StepError = err.Error()
			return result, fmt.Errorf("plan %v halted at step %d: %w", name, step.Number, err)
		}

		step.Completed = true
		plan.Status = model.PlanStatusInProgress
		plan.CurrentStep = step.Number
		if err := s.persist(ctx, name, plan); err != nil {
			return s.result(name, plan), err
		}
		progress.UpdateCtx(ctx, progress.Delta{StepsCompleted: 1})
		s.logger.Debug().Str("plan", name).Int("step", step.Number).Str("progress", plan.Progress()).Msg("step completed")
	}
}

func (s *service) ExecuteAll(ctx context.Context) ([]*Result, error) {
	names, err := s.queue.List(ctx, queue.Plans)
	if err != nil {
		return nil, err
	}
	var results []*Result
	for _, name := range names {
		result, err := s.ExecutePlan(ctx, name)
		if err != nil {
			if ctx.Err() != nil {
				return results, ctx.Err()
			}
			// Per-plan failures halt that plan only.
			s.logger.Warn().Err(err).Str("plan", name).Msg("plan execution failed")
			if result == nil {
				result = &Result{Name: name, StepError: err.Error()}
			}
		}
		results = append(results, result)
	}
	return results, nil
}

func (s *service) approved(ctx context.Context, plan *model.Plan, step *model.Step) (bool, error) {
	if s.checker == nil {
		return false, nil
	}
	return s.checker.Approved(ctx, plan, step)
}

// complete marks the plan complete, moves it to done and retires the source
// item alongside it.
func (s *service) complete(ctx context.Context, name string, plan *model.Plan) (*Result, error) {
	plan.Status = model.PlanStatusComplete
	if err := s.persist(ctx, name, plan); err != nil {
		return s.result(name, plan), err
	}
	if err := s.queue.Move(ctx, name, queue.Plans, queue.Done); err != nil {
		return s.result(name, plan), fmt.Errorf("failed to retire plan %v: %w", name, err)
	}
	if plan.SourceTask != "" {
		if exists, _ := s.queue.Exists(ctx, queue.NeedsAction, plan.SourceTask); exists {
			if err := s.queue.Move(ctx, plan.SourceTask, queue.NeedsAction, queue.Done); err != nil {
				s.logger.Warn().Err(err).Str("item", plan.SourceTask).Msg("failed to retire source item")
			}
		}
	}
	s.logger.Info().Str("plan", name).Str("progress", plan.Progress()).Msg("plan complete")
	return s.result(name, plan), nil
}

func (s *service) persist(ctx context.Context, name string, plan *model.Plan) error {
	plan.UpdatedAt = clock.Now()
	return s.queue.Put(ctx, queue.Plans, name, model.PlanRecord(plan))
}

func (s *service) result(name string, plan *model.Plan) *Result {
	completed, total := plan.Counts()
	return &Result{
		Name:      name,
		Status:    plan.Status,
		Completed: completed,
		Total:     total,
	}
}

var _ Service = (*service)(nil)
