package executor

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/afs"

	"github.com/taskwell/taskwell/model"
	"github.com/taskwell/taskwell/model/types"
	"github.com/taskwell/taskwell/service/queue"
)

var memCounter = 0

func newTestQueue(t *testing.T) *queue.Service {
	memCounter++
	q, err := queue.New(afs.New(), fmt.Sprintf("mem://localhost/executor-test-%d", memCounter))
	assert.NoError(t, err)
	return q
}

func putPlan(t *testing.T, q *queue.Service, name string, plan *model.Plan) {
	assert.NoError(t, q.Put(context.Background(), queue.Plans, name, model.PlanRecord(plan)))
}

func loadPlan(t *testing.T, q *queue.Service, location queue.Location, name string) *model.Plan {
	rec, err := q.Get(context.Background(), location, name)
	assert.NoError(t, err)
	plan, err := model.PlanFromRecord(rec)
	assert.NoError(t, err)
	return plan
}

type recordingRunner struct {
	executed []string
	fail     map[string]bool
}

func (r *recordingRunner) Execute(ctx context.Context, step *model.Step) (*types.RunResult, error) {
	r.executed = append(r.executed, step.Description)
	if r.fail[step.Description] {
		return &types.RunResult{Success: false, Error: "boom"}, nil
	}
	return &types.RunResult{Success: true}, nil
}

func approveAll(ctx context.Context, plan *model.Plan, step *model.Step) (bool, error) {
	return true, nil
}

func approveNone(ctx context.Context, plan *model.Plan, step *model.Step) (bool, error) {
	return false, nil
}

func TestExecutePlanToCompletion(t *testing.T) {
	q := newTestQueue(t)
	runner := &recordingRunner{}
	svc := New(q, runner, WithApprovalChecker(ApprovalCheckerFunc(approveAll)))

	plan := &model.Plan{
		TaskID:     "task-1",
		Goal:       "Process task",
		Status:     model.PlanStatusPending,
		SourceTask: "item-1",
		Steps: []*model.Step{
			{Number: 1, Description: "Analyze"},
			{Number: 2, Description: "Execute"},
			{Number: 3, Description: "Verify"},
		},
	}
	putPlan(t, q, "plan-1", plan)
	itemRec := model.ItemRecord(&model.Item{ID: "i1", Source: "test", ExternalID: "x1", Status: "planned"})
	assert.NoError(t, q.Put(context.Background(), queue.NeedsAction, "item-1", itemRec))

	result, err := svc.ExecutePlan(context.Background(), "plan-1")
	assert.NoError(t, err)
	assert.Equal(t, model.PlanStatusComplete, result.Status)
	assert.Equal(t, 3, result.Completed)
	assert.Equal(t, []string{"Analyze", "Execute", "Verify"}, runner.executed)

	// Completed plan and its source item both retire to done.
	location, _, _ := q.Locate(context.Background(), "plan-1")
	assert.Equal(t, queue.Done, location)
	location, _, _ = q.Locate(context.Background(), "item-1")
	assert.Equal(t, queue.Done, location)
}

func TestExecutorHaltsOnGate(t *testing.T) {
	q := newTestQueue(t)
	runner := &recordingRunner{}
	svc := New(q, runner, WithApprovalChecker(ApprovalCheckerFunc(approveNone)))

	plan := &model.Plan{
		TaskID: "task-2",
		Goal:   "Respond",
		Status: model.PlanStatusPending,
		Steps: []*model.Step{
			{Number: 1, Description: "Review the request"},
			{Number: 2, Description: "Send email reply", Sensitive: true, RequiresApproval: true},
			{Number: 3, Description: "Archive"},
		},
	}
	putPlan(t, q, "plan-2", plan)

	result, err := svc.ExecutePlan(context.Background(), "plan-2")
	assert.NoError(t, err)
	assert.Equal(t, model.PlanStatusAwaitingApproval, result.Status)
	assert.Equal(t, 2, result.HaltedAt)
	assert.Equal(t, 1, result.Completed)
	assert.Equal(t, []string{"Review the request"}, runner.executed)

	// Repeated attempts never advance past the gate; the counters stay
	// unchanged.
	for i := 0; i < 3; i++ {
		result, err = svc.ExecutePlan(context.Background(), "plan-2")
		assert.NoError(t, err)
		assert.Equal(t, model.PlanStatusAwaitingApproval, result.Status)
		assert.Equal(t, 1, result.Completed)
	}
	assert.Equal(t, []string{"Review the request"}, runner.executed)

	persisted := loadPlan(t, q, queue.Plans, "plan-2")
	assert.False(t, persisted.Steps[1].Completed)
	assert.Equal(t, 2, persisted.CurrentStep)
}

func TestRequiresApprovalFlagAloneGates(t *testing.T) {
	q := newTestQueue(t)
	runner := &recordingRunner{}
	svc := New(q, runner, WithApprovalChecker(ApprovalCheckerFunc(approveNone)))

	// Either frozen flag on its own must hold the step.
	plan := &model.Plan{
		TaskID: "task-5",
		Goal:   "Decide",
		Status: model.PlanStatusPending,
		Steps: []*model.Step{
			{Number: 1, Description: "Reject the vendor proposal", RequiresApproval: true},
		},
	}
	putPlan(t, q, "plan-5", plan)

	result, err := svc.ExecutePlan(context.Background(), "plan-5")
	assert.NoError(t, err)
	assert.Equal(t, model.PlanStatusAwaitingApproval, result.Status)
	assert.Equal(t, 1, result.HaltedAt)
	assert.Empty(t, runner.executed)
}

func TestExecutorResumesAfterApproval(t *testing.T) {
	q := newTestQueue(t)
	runner := &recordingRunner{}
	granted := false
	checker := ApprovalCheckerFunc(func(ctx context.Context, plan *model.Plan, step *model.Step) (bool, error) {
		return granted, nil
	})
	svc := New(q, runner, WithApprovalChecker(checker))

	plan := &model.Plan{
		TaskID: "task-3",
		Goal:   "Respond",
		Status: model.PlanStatusPending,
		Steps: []*model.Step{
			{Number: 1, Description: "Review"},
			{Number: 2, Description: "Send email reply", Sensitive: true, RequiresApproval: true},
		},
	}
	putPlan(t, q, "plan-3", plan)

	result, err := svc.ExecutePlan(context.Background(), "plan-3")
	assert.NoError(t, err)
	assert.Equal(t, model.PlanStatusAwaitingApproval, result.Status)

	granted = true
	result, err = svc.ExecutePlan(context.Background(), "plan-3")
	assert.NoError(t, err)
	assert.Equal(t, model.PlanStatusComplete, result.Status)
	assert.Equal(t, []string{"Review", "Send email reply"}, runner.executed)
}

func TestRunnerFailureHaltsPlan(t *testing.T) {
	q := newTestQueue(t)
	runner := &recordingRunner{fail: map[string]bool{"Execute": true}}
	svc := New(q, runner, WithApprovalChecker(ApprovalCheckerFunc(approveAll)))

	plan := &model.Plan{
		TaskID: "task-4",
		Goal:   "Process",
		Status: model.PlanStatusPending,
		Steps: []*model.Step{
			{Number: 1, Description: "Analyze"},
			{Number: 2, Description: "Execute"},
			{Number: 3, Description: "Verify"},
		},
	}
	putPlan(t, q, "plan-4", plan)

	result, err := svc.ExecutePlan(context.Background(), "plan-4")
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrStepFailed))
	assert.Equal(t, 2, result.HaltedAt)
	assert.Equal(t, 1, result.Completed)

	// The plan stays in place, other plans are unaffected.
	location, _, _ := q.Locate(context.Background(), "plan-4")
	assert.Equal(t, queue.Plans, location)
	persisted := loadPlan(t, q, queue.Plans, "plan-4")
	assert.False(t, persisted.Steps[1].Completed)
}

func TestExecuteAllIsolatesFailures(t *testing.T) {
	q := newTestQueue(t)
	runner := &recordingRunner{fail: map[string]bool{"bad step": true}}
	svc := New(q, runner, WithApprovalChecker(ApprovalCheckerFunc(approveAll)))

	putPlan(t, q, "plan-a", &model.Plan{TaskID: "a", Goal: "A", Status: model.PlanStatusPending,
		Steps: []*model.Step{{Number: 1, Description: "bad step"}}})
	putPlan(t, q, "plan-b", &model.Plan{TaskID: "b", Goal: "B", Status: model.PlanStatusPending,
		Steps: []*model.Step{{Number: 1, Description: "good step"}}})

	results, err := svc.ExecuteAll(context.Background())
	assert.NoError(t, err)
	assert.Len(t, results, 2)

	byName := map[string]*Result{}
	for _, result := range results {
		byName[result.Name] = result
	}
	assert.NotEmpty(t, byName["plan-a.md"].StepError)
	assert.Equal(t, model.PlanStatusComplete, byName["plan-b.md"].Status)
}

func TestInvalidPlanRecordRejected(t *testing.T) {
	q := newTestQueue(t)
	svc := New(q, &recordingRunner{})
	itemRec := model.ItemRecord(&model.Item{ID: "i1", Source: "test", ExternalID: "x"})
	assert.NoError(t, q.Put(context.Background(), queue.Plans, "not-a-plan", itemRec))

	_, err := svc.ExecutePlan(context.Background(), "not-a-plan")
	assert.True(t, errors.Is(err, ErrInvalidPlan))
}
