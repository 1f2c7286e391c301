package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/taskwell/taskwell/model/record"
)

func TestItemRoundTrip(t *testing.T) {
	received := time.Date(2026, 2, 19, 12, 0, 0, 0, time.UTC)
	item := &Item{
		ID:         "id-1",
		Source:     "gmail",
		ExternalID: "msg-001",
		Type:       "email_task",
		Subject:    "Urgent: contract review",
		Sender:     "client@example.com",
		Labels:     []string{"IMPORTANT"},
		Priority:   PriorityHigh,
		Status:     "pending",
		ReceivedAt: received,
		Body:       "Please review by Friday.",
	}

	data, err := record.Encode(ItemRecord(item))
	assert.NoError(t, err)
	rec, err := record.Decode(data)
	assert.NoError(t, err)

	decoded := ItemFromRecord(rec)
	assert.Equal(t, item.ID, decoded.ID)
	assert.Equal(t, item.Source, decoded.Source)
	assert.Equal(t, item.ExternalID, decoded.ExternalID)
	assert.Equal(t, item.Subject, decoded.Subject)
	assert.Equal(t, item.Labels, decoded.Labels)
	assert.Equal(t, PriorityHigh, decoded.Priority)
	assert.Equal(t, received, decoded.ReceivedAt)
	assert.Equal(t, item.Body, decoded.Body)
}

func TestPlanRoundTripFreezesFlags(t *testing.T) {
	plan := &Plan{
		TaskID: "task-1",
		Goal:   "Respond to email",
		Status: PlanStatusPending,
		Steps: []*Step{
			{Number: 1, Description: "Review contract", Completed: true},
			{Number: 2, Description: "Send email reply", Sensitive: true, RequiresApproval: true,
				Dependencies: []int{1}},
		},
		CreatedAt: time.Date(2026, 2, 19, 12, 0, 0, 0, time.UTC),
	}

	data, err := record.Encode(PlanRecord(plan))
	assert.NoError(t, err)
	rec, err := record.Decode(data)
	assert.NoError(t, err)

	decoded, err := PlanFromRecord(rec)
	assert.NoError(t, err)
	assert.Equal(t, plan.TaskID, decoded.TaskID)
	assert.Len(t, decoded.Steps, 2)
	assert.True(t, decoded.Steps[0].Completed)
	assert.False(t, decoded.Steps[0].Sensitive)
	// The frozen flags survive the round trip unchanged.
	assert.True(t, decoded.Steps[1].Sensitive)
	assert.True(t, decoded.Steps[1].RequiresApproval)
	assert.Equal(t, []int{1}, decoded.Steps[1].Dependencies)
	assert.Equal(t, "1/2", decoded.Progress())
}

func TestActionArgumentsRoundTripVerbatim(t *testing.T) {
	action := &Action{
		ID:         "act-1",
		ActionType: "send_email",
		ToolName:   "send_email",
		Arguments: map[string]interface{}{
			"to":      "client@example.com",
			"subject": "Re: contract",
			"step":    2,
		},
		RiskLevel: RiskMedium,
		Status:    ApprovalPending,
		CreatedAt: time.Date(2026, 2, 19, 12, 0, 0, 0, time.UTC),
	}

	rec, err := ActionRecord(action)
	assert.NoError(t, err)
	stored := ArgumentsJSON(rec)
	assert.NotEmpty(t, stored)

	data, err := record.Encode(rec)
	assert.NoError(t, err)
	reloaded, err := record.Decode(data)
	assert.NoError(t, err)

	// The payload persists byte-for-byte so approval and execution agree on
	// what will run.
	assert.Equal(t, stored, ArgumentsJSON(reloaded))

	decoded, err := ActionFromRecord(reloaded)
	assert.NoError(t, err)
	assert.Equal(t, "send_email", decoded.ActionType)
	assert.Equal(t, "client@example.com", decoded.Arguments["to"])
}

func TestParsePriorityDefaultsLow(t *testing.T) {
	assert.Equal(t, PriorityLow, ParsePriority("unknown"))
	assert.Equal(t, PriorityLow, ParsePriority(""))
	assert.Equal(t, PriorityHigh, ParsePriority("high"))
}
