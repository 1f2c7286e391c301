package taskwell

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taskwell/taskwell/model"
	"github.com/taskwell/taskwell/service/ingestion/memory"
	"github.com/taskwell/taskwell/service/queue"
)

var memCounter = 0

func newTestConfig() *Config {
	memCounter++
	config := DefaultConfig()
	config.BaseURL = fmt.Sprintf("mem://localhost/taskwell-test-%d", memCounter)
	return config
}

func TestNewWithDefaults(t *testing.T) {
	srv, err := New(WithConfig(newTestConfig()))
	assert.NoError(t, err)
	assert.NotNil(t, srv.Queue())
	assert.NotNil(t, srv.Planner())
	assert.NotNil(t, srv.Approval())
	assert.NotNil(t, srv.Executor())
	assert.NotNil(t, srv.Ingestion())
	assert.NotNil(t, srv.Skills())
}

func TestPipelineEndToEnd(t *testing.T) {
	ctx := context.Background()
	source := memory.New("gmail")
	source.Add(
		&model.Item{
			ExternalID: "msg-001",
			Type:       "email",
			Subject:    "Urgent: contract review needed",
			Sender:     "legal@example.com",
			Body:       "Please review the attached contract and reply today.",
		},
		&model.Item{
			ExternalID: "msg-002",
			Subject:    "Weekly newsletter",
			Sender:     "news@example.com",
		},
	)

	srv, err := New(WithConfig(newTestConfig()), WithSource(source))
	assert.NoError(t, err)

	// Cycle 1: the urgent email becomes an item and a plan; the plan runs up
	// to its gated send step and halts. The gate is only routed once the
	// halted step is the next one, so no request exists yet.
	report, err := srv.RunCycle(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 2, report.Ingestion.Retrieved)
	assert.Equal(t, 1, report.Ingestion.Created)
	assert.Equal(t, 1, report.Ingestion.Filtered)
	assert.Equal(t, 1, report.PlansCreated)
	assert.Equal(t, 0, report.RequestsCreated)
	assert.Len(t, report.Results, 1)
	assert.Equal(t, model.PlanStatusAwaitingApproval, report.Results[0].Status)
	assert.Equal(t, 4, report.Results[0].HaltedAt)

	// Cycle 2: the halted step is routed to the approval queue; the plan
	// stays gated.
	report, err = srv.RunCycle(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 0, report.PlansCreated)
	assert.Equal(t, 1, report.RequestsCreated)
	assert.Equal(t, model.PlanStatusAwaitingApproval, report.Results[0].Status)

	pending, err := srv.Approval().ListPending(ctx)
	assert.NoError(t, err)
	assert.Len(t, pending, 1)

	action, err := srv.Decide(ctx, pending[0], true, "")
	assert.NoError(t, err)
	assert.Equal(t, "send_email", action.ActionType)

	// Cycle 3: the approval satisfies the gate, the plan completes and both
	// the plan and its source item retire to done.
	report, err = srv.RunCycle(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 0, report.RequestsCreated)
	assert.Len(t, report.Results, 1)
	assert.Equal(t, model.PlanStatusComplete, report.Results[0].Status)
	assert.Equal(t, 0, report.Results[0].HaltedAt)

	names, err := srv.Queue().List(ctx, queue.Done)
	assert.NoError(t, err)
	assert.NotEmpty(t, names)
}

func TestPipelineCompletesGatedPlan(t *testing.T) {
	ctx := context.Background()
	source := memory.New("gmail")
	source.Add(&model.Item{
		ExternalID: "msg-100",
		Type:       "email",
		Subject:    "Urgent: confirm attendance",
		Sender:     "events@example.com",
	})

	srv, err := New(WithConfig(newTestConfig()), WithSource(source))
	assert.NoError(t, err)

	_, err = srv.RunCycle(ctx)
	assert.NoError(t, err)
	report, err := srv.RunCycle(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 1, report.RequestsCreated)

	pending, err := srv.Approval().ListPending(ctx)
	assert.NoError(t, err)
	assert.Len(t, pending, 1)
	_, err = srv.Decide(ctx, pending[0], true, "")
	assert.NoError(t, err)

	report, err = srv.RunCycle(ctx)
	assert.NoError(t, err)
	for _, result := range report.Results {
		assert.Equal(t, model.PlanStatusComplete, result.Status)
	}

	// Location is the only authoritative status: the completed plan and the
	// retired source item are both in done.
	done, err := srv.Queue().List(ctx, queue.Done)
	assert.NoError(t, err)
	planDone, itemDone := false, false
	for _, name := range done {
		rec, err := srv.Queue().Get(ctx, queue.Done, name)
		assert.NoError(t, err)
		switch rec.String("kind") {
		case model.KindPlan:
			planDone = true
			plan, err := model.PlanFromRecord(rec)
			assert.NoError(t, err)
			completed, total := plan.Counts()
			assert.Equal(t, total, completed)
		case model.KindItem:
			itemDone = true
		}
	}
	assert.True(t, planDone)
	assert.True(t, itemDone)
}

func TestFrozenStepFlagsGateGenericActions(t *testing.T) {
	ctx := context.Background()
	source := memory.New("gmail")
	source.Add(&model.Item{
		ExternalID: "msg-300",
		Type:       "email",
		Subject:    "Urgent: vendor proposal decision",
		Sender:     "vendor@example.com",
		Body:       "## Action Items\n- [ ] Reject the vendor proposal\n",
	})

	srv, err := New(WithConfig(newTestConfig()), WithSource(source))
	assert.NoError(t, err)

	// "reject" matches no action-type bucket and assesses as low baseline
	// risk, but the planner froze the step as requiring approval. The gate
	// holds on the frozen flags, not on the re-derived action type. The
	// gated step is the plan's first, so the request is filed immediately.
	report, err := srv.RunCycle(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 1, report.RequestsCreated)
	assert.Len(t, report.Results, 1)
	assert.Equal(t, model.PlanStatusAwaitingApproval, report.Results[0].Status)
	assert.Equal(t, 1, report.Results[0].HaltedAt)
	assert.Equal(t, 0, report.Results[0].Completed)

	pending, err := srv.Approval().ListPending(ctx)
	assert.NoError(t, err)
	assert.Len(t, pending, 1)
	action, err := srv.Decide(ctx, pending[0], true, "")
	assert.NoError(t, err)
	assert.Equal(t, "generic_action", action.ActionType)
	assert.True(t, action.RiskLevel.AtLeast(model.RiskMedium))

	report, err = srv.RunCycle(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 0, report.RequestsCreated)
	assert.Len(t, report.Results, 1)
	assert.Equal(t, model.PlanStatusComplete, report.Results[0].Status)
}

func TestRejectionIsTerminal(t *testing.T) {
	ctx := context.Background()
	source := memory.New("gmail")
	source.Add(&model.Item{
		ExternalID: "msg-200",
		Type:       "email",
		Subject:    "Urgent: wire transfer request",
		Sender:     "unknown@example.com",
	})

	srv, err := New(WithConfig(newTestConfig()), WithSource(source))
	assert.NoError(t, err)

	_, err = srv.RunCycle(ctx)
	assert.NoError(t, err)
	_, err = srv.RunCycle(ctx)
	assert.NoError(t, err)

	pending, err := srv.Approval().ListPending(ctx)
	assert.NoError(t, err)
	assert.Len(t, pending, 1)
	_, err = srv.Decide(ctx, pending[0], false, "not comfortable with this")
	assert.NoError(t, err)

	// Rejection retires that request for good; the plan stays gated and the
	// next routing pass files a fresh request for the human to reconsider.
	report, err := srv.RunCycle(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 1, report.RequestsCreated)
	assert.Equal(t, model.PlanStatusAwaitingApproval, report.Results[0].Status)
}
