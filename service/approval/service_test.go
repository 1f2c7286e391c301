package approval

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/afs"

	"github.com/taskwell/taskwell/model"
	"github.com/taskwell/taskwell/policy"
	"github.com/taskwell/taskwell/service/queue"
)

var memCounter = 0

func newTestService(t *testing.T, options ...Option) (Service, *queue.Service) {
	memCounter++
	q, err := queue.New(afs.New(), fmt.Sprintf("mem://localhost/approval-test-%d", memCounter))
	assert.NoError(t, err)
	return New(q, options...), q
}

func TestRiskMonotonicity(t *testing.T) {
	svc, _ := newTestService(t)
	p := DefaultRiskPolicy()

	payloads := []map[string]interface{}{
		nil,
		{},
		{"to": "someone@internal.example"},
		{"amount": 1.0},
		{"amount": 50000.0},
	}
	for actionType, baseline := range p.Baseline {
		for _, arguments := range payloads {
			level := svc.AssessRisk(actionType, arguments)
			assert.True(t, level.AtLeast(baseline),
				"%s with %v assessed %s below baseline %s", actionType, arguments, level, baseline)
		}
	}
}

func TestAssessOverrides(t *testing.T) {
	svc, _ := newTestService(t, WithRiskPolicy(&RiskPolicy{
		Baseline:             map[string]model.RiskLevel{"send_email": model.RiskLow},
		InternalDomains:      []string{"corp.example"},
		PaymentHighThreshold: 10000,
	}))

	// Internal recipient keeps the baseline.
	assert.Equal(t, model.RiskLow,
		svc.AssessRisk("send_email", map[string]interface{}{"to": "colleague@corp.example"}))
	// External recipient escalates to at least medium.
	assert.Equal(t, model.RiskMedium,
		svc.AssessRisk("send_email", map[string]interface{}{"to": "client@other.example"}))
	// Payments are floored at high regardless of amount.
	assert.Equal(t, model.RiskHigh,
		svc.AssessRisk("create_payment_draft", map[string]interface{}{"amount": 5.0}))
	assert.Equal(t, model.RiskHigh,
		svc.AssessRisk("create_payment_draft", map[string]interface{}{"amount": 50000.0}))
}

func TestRequiresApproval(t *testing.T) {
	svc, _ := newTestService(t)
	assert.True(t, svc.RequiresApproval("send_email", nil))
	assert.True(t, svc.RequiresApproval("create_payment_draft", nil))
	assert.False(t, svc.RequiresApproval("generic_action", nil))
}

func TestGateCompleteness(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	arguments := map[string]interface{}{"to": "client@example.com", "subject": "Re: contract"}

	// Blocked while no approved record exists.
	blocked, reason, err := svc.BlockSensitiveAction(ctx, "send_email", arguments)
	assert.NoError(t, err)
	assert.True(t, blocked)
	assert.Contains(t, reason, "requires approval")

	name, err := svc.CreateRequest(ctx, &model.Action{ActionType: "send_email", Arguments: arguments})
	assert.NoError(t, err)

	// Still blocked while the request is only pending.
	blocked, _, err = svc.BlockSensitiveAction(ctx, "send_email", arguments)
	assert.NoError(t, err)
	assert.True(t, blocked)

	action, err := svc.Resolve(ctx, name, true, "")
	assert.NoError(t, err)
	assert.Equal(t, model.ApprovalApproved, action.Status)

	// A matching approved record unblocks the exact payload only.
	blocked, _, err = svc.BlockSensitiveAction(ctx, "send_email", arguments)
	assert.NoError(t, err)
	assert.False(t, blocked)

	blocked, _, err = svc.BlockSensitiveAction(ctx, "send_email", map[string]interface{}{"to": "other@example.com"})
	assert.NoError(t, err)
	assert.True(t, blocked)
}

func TestLowRiskNeverBlocked(t *testing.T) {
	svc, _ := newTestService(t)
	blocked, _, err := svc.BlockSensitiveAction(context.Background(), "generic_action", nil)
	assert.NoError(t, err)
	assert.False(t, blocked)
}

func TestStepGateIgnoresBaselineRisk(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	arguments := map[string]interface{}{
		"description": "Reject the vendor proposal",
		"plan":        "task-1",
		"step":        1,
	}

	// The action type assesses below the approval threshold, but a step gate
	// holds regardless until a matching record is approved.
	assert.False(t, svc.RequiresApproval("generic_action", arguments))
	blocked, reason, err := svc.BlockStep(ctx, "generic_action", arguments)
	assert.NoError(t, err)
	assert.True(t, blocked)
	assert.Contains(t, reason, "requires approval")
	assert.Contains(t, reason, string(model.RiskMedium))

	name, err := svc.CreateRequest(ctx, &model.Action{ActionType: "generic_action", Arguments: arguments})
	assert.NoError(t, err)
	_, err = svc.Resolve(ctx, name, true, "")
	assert.NoError(t, err)

	blocked, _, err = svc.BlockStep(ctx, "generic_action", arguments)
	assert.NoError(t, err)
	assert.False(t, blocked)
}

func TestAskPolicyDecidesGate(t *testing.T) {
	svc, _ := newTestService(t)
	var asked []string
	decision := false
	ctx := policy.WithPolicy(context.Background(), &policy.Policy{
		Mode: policy.ModeAsk,
		Ask: func(ctx context.Context, actionType string, arguments map[string]interface{}, p *policy.Policy) bool {
			asked = append(asked, actionType)
			return decision
		},
	})

	blocked, reason, err := svc.BlockSensitiveAction(ctx, "send_email", map[string]interface{}{"to": "x@example.com"})
	assert.NoError(t, err)
	assert.True(t, blocked)
	assert.Contains(t, reason, "ask policy")

	// A positive answer clears the gate without any persisted record.
	decision = true
	blocked, _, err = svc.BlockSensitiveAction(ctx, "send_email", map[string]interface{}{"to": "x@example.com"})
	assert.NoError(t, err)
	assert.False(t, blocked)

	blocked, _, err = svc.BlockStep(ctx, "generic_action", map[string]interface{}{"step": 1})
	assert.NoError(t, err)
	assert.False(t, blocked)
	assert.Equal(t, []string{"send_email", "send_email", "generic_action"}, asked)
}

func TestAskPolicySkipsLowRiskInvocations(t *testing.T) {
	svc, _ := newTestService(t)
	asked := 0
	ctx := policy.WithPolicy(context.Background(), &policy.Policy{
		Mode: policy.ModeAsk,
		Ask: func(ctx context.Context, actionType string, arguments map[string]interface{}, p *policy.Policy) bool {
			asked++
			return false
		},
	})

	blocked, _, err := svc.BlockSensitiveAction(ctx, "generic_action", nil)
	assert.NoError(t, err)
	assert.False(t, blocked)
	assert.Equal(t, 0, asked)
}

func TestRejectAppendsReasonAndRetires(t *testing.T) {
	svc, q := newTestService(t)
	ctx := context.Background()

	name, err := svc.CreateRequest(ctx, &model.Action{ActionType: "delete_resource",
		Arguments: map[string]interface{}{"resource": "backup-2020"}})
	assert.NoError(t, err)

	action, err := svc.Resolve(ctx, name, false, "too risky this week")
	assert.NoError(t, err)
	assert.Equal(t, model.ApprovalRejected, action.Status)
	assert.Equal(t, "too risky this week", action.RejectionReason)
	assert.NotNil(t, action.RejectedAt)

	// The record left the pending location for the terminal one.
	pending, err := svc.ListPending(ctx)
	assert.NoError(t, err)
	assert.Empty(t, pending)

	location, found, err := q.Locate(ctx, name)
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, queue.Done, location)

	// The literal reason text is appended to the body.
	rec, err := q.Get(ctx, queue.Done, name)
	assert.NoError(t, err)
	assert.True(t, strings.Contains(rec.Body, "## Rejection Reason\ntoo risky this week"))
	assert.True(t, strings.Contains(rec.Body, "**Rejected**:"))
	assert.Equal(t, string(model.ApprovalRejected), rec.String("status"))
}

func TestDenyPolicyBlocksEverything(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := policy.WithPolicy(context.Background(), &policy.Policy{Mode: policy.ModeDeny})

	blocked, reason, err := svc.BlockSensitiveAction(ctx, "generic_action", nil)
	assert.NoError(t, err)
	assert.True(t, blocked)
	assert.Contains(t, reason, "deny policy")
}

func TestBlockListPolicy(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := policy.WithPolicy(context.Background(), &policy.Policy{
		Mode:      policy.ModeAuto,
		BlockList: []string{"post_social"},
	})

	blocked, _, err := svc.BlockSensitiveAction(ctx, "post_social", nil)
	assert.NoError(t, err)
	assert.True(t, blocked)

	blocked, _, err = svc.BlockSensitiveAction(ctx, "generic_action", nil)
	assert.NoError(t, err)
	assert.False(t, blocked)
}
