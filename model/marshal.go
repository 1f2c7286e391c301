package model

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/taskwell/taskwell/model/record"
	"gopkg.in/yaml.v3"
)

// Kind discriminates record types sharing a queue location.
const (
	KindItem     = "item"
	KindPlan     = "plan"
	KindApproval = "approval"
)

// ItemRecord renders an item into its persisted form. The metadata block is
// machine-authoritative; the body carries the item content for review.
func ItemRecord(item *Item) *record.Record {
	r := record.New()
	r.Meta["kind"] = KindItem
	r.Meta["id"] = item.ID
	r.Meta["source"] = item.Source
	r.Meta["externalId"] = item.ExternalID
	if item.Type != "" {
		r.Meta["type"] = item.Type
	}
	if item.Subject != "" {
		r.Meta["subject"] = item.Subject
	}
	if item.Sender != "" {
		r.Meta["sender"] = item.Sender
	}
	if len(item.Labels) > 0 {
		r.Meta["labels"] = item.Labels
	}
	r.Meta["priority"] = string(item.Priority)
	if item.Status != "" {
		r.Meta["status"] = item.Status
	}
	r.SetTime("receivedAt", item.ReceivedAt)
	if item.ReviewedAt != nil {
		r.SetTime("reviewedAt", *item.ReviewedAt)
	}
	if len(item.ImportanceSignals) > 0 {
		r.Meta["importanceSignals"] = item.ImportanceSignals
	}
	for key, value := range item.Metadata {
		if _, exists := r.Meta[key]; !exists {
			r.Meta[key] = value
		}
	}
	r.Body = item.Body
	return r
}

// ItemFromRecord reverses ItemRecord. Missing or malformed metadata fields
// fall back to defaults (unknown priority decodes as low) - classification
// ambiguity is never fatal.
func ItemFromRecord(r *record.Record) *Item {
	item := &Item{
		ID:         r.String("id"),
		Source:     r.String("source"),
		ExternalID: r.String("externalId"),
		Type:       r.String("type"),
		Subject:    r.String("subject"),
		Sender:     r.String("sender"),
		Labels:     r.Strings("labels"),
		Priority:   ParsePriority(r.String("priority")),
		Status:     r.String("status"),
		ReceivedAt: r.Time("receivedAt"),
		Body:       r.Body,
	}
	if signals := r.Strings("importanceSignals"); len(signals) > 0 {
		item.ImportanceSignals = signals
	}
	if reviewed := r.Time("reviewedAt"); !reviewed.IsZero() {
		item.ReviewedAt = &reviewed
	}
	return item
}

// PlanRecord renders a plan. Steps live in the metadata block so that the
// sensitive/requiresApproval flags frozen at build time survive the round
// trip untouched; the body mirrors them as a human-readable checklist.
func PlanRecord(plan *Plan) *record.Record {
	r := record.New()
	r.Meta["kind"] = KindPlan
	r.Meta["id"] = plan.TaskID
	r.Meta["goal"] = plan.Goal
	r.Meta["status"] = string(plan.Status)
	r.Meta["currentStep"] = plan.CurrentStep
	r.Meta["progress"] = plan.Progress()
	r.Meta["steps"] = plan.Steps
	if plan.SourceTask != "" {
		r.Meta["sourceTask"] = plan.SourceTask
	}
	r.SetTime("createdAt", plan.CreatedAt)
	r.SetTime("updatedAt", plan.UpdatedAt)
	r.Body = renderPlanBody(plan)
	return r
}

// PlanFromRecord reverses PlanRecord.
func PlanFromRecord(r *record.Record) (*Plan, error) {
	plan := &Plan{
		TaskID:      r.String("id"),
		SourceTask:  r.String("sourceTask"),
		Goal:        r.String("goal"),
		Status:      PlanStatus(r.String("status")),
		CurrentStep: r.Int("currentStep"),
		CreatedAt:   r.Time("createdAt"),
		UpdatedAt:   r.Time("updatedAt"),
	}
	if plan.Status == "" {
		plan.Status = PlanStatusPending
	}
	raw, ok := r.Meta["steps"]
	if !ok {
		return plan, nil
	}
	data, err := yaml.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to re-encode plan steps: %w", err)
	}
	if err := yaml.Unmarshal(data, &plan.Steps); err != nil {
		return nil, fmt.Errorf("failed to decode plan steps: %w", err)
	}
	return plan, nil
}

func renderPlanBody(plan *Plan) string {
	var b strings.Builder
	b.WriteString("# Execution Plan: " + plan.Goal + "\n\n")
	b.WriteString("## Goal\n" + plan.Goal + "\n\n")
	b.WriteString("## Steps\n\n")
	for _, step := range plan.Steps {
		marker := " "
		if step.Completed {
			marker = "x"
		}
		b.WriteString(fmt.Sprintf("- [%s] %d. %s", marker, step.Number, step.Description))
		if step.RequiresApproval {
			b.WriteString(" (requires approval)")
		} else if step.Sensitive {
			b.WriteString(" (sensitive)")
		}
		b.WriteString("\n")
	}
	completed, total := plan.Counts()
	b.WriteString(fmt.Sprintf("\n## Progress\n%d of %d steps complete\n", completed, total))
	return b.String()
}

// ActionRecord renders an approval request. The tool name and the argument
// payload are embedded as a verbatim JSON string so that the payload
// round-trips byte-for-byte between approval and execution.
func ActionRecord(action *Action) (*record.Record, error) {
	args, err := json.Marshal(action.Arguments)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal action arguments: %w", err)
	}
	r := record.New()
	r.Meta["kind"] = KindApproval
	r.Meta["id"] = action.ID
	r.Meta["actionType"] = action.ActionType
	r.Meta["toolName"] = action.ToolName
	r.Meta["arguments"] = string(args)
	r.Meta["riskLevel"] = string(action.RiskLevel)
	r.Meta["status"] = string(action.Status)
	r.SetTime("createdAt", action.CreatedAt)
	if action.Reasoning != "" {
		r.Meta["reasoning"] = action.Reasoning
	}
	if action.PlanID != "" {
		r.Meta["planId"] = action.PlanID
		r.Meta["stepNumber"] = action.StepNumber
	}
	if action.RejectedAt != nil {
		r.SetTime("rejectedAt", *action.RejectedAt)
	}
	r.Body = renderActionBody(action, string(args))
	return r, nil
}

// ActionFromRecord reverses ActionRecord. The argument payload is decoded
// from the stored JSON string; ArgumentsJSON on the record metadata remains
// the authoritative wire form.
func ActionFromRecord(r *record.Record) (*Action, error) {
	action := &Action{
		ID:              r.String("id"),
		ActionType:      r.String("actionType"),
		ToolName:        r.String("toolName"),
		RiskLevel:       ParseRiskLevel(r.String("riskLevel")),
		Status:          ApprovalStatus(r.String("status")),
		Reasoning:       r.String("reasoning"),
		CreatedAt:       r.Time("createdAt"),
		PlanID:          r.String("planId"),
		StepNumber:      r.Int("stepNumber"),
		RejectionReason: r.String("rejectionReason"),
	}
	if action.Status == "" {
		action.Status = ApprovalPending
	}
	if rejected := r.Time("rejectedAt"); !rejected.IsZero() {
		action.RejectedAt = &rejected
	}
	if raw := r.String("arguments"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &action.Arguments); err != nil {
			return nil, fmt.Errorf("failed to decode action arguments: %w", err)
		}
	}
	return action, nil
}

// ArgumentsJSON returns the verbatim argument payload stored with an
// approval record.
func ArgumentsJSON(r *record.Record) string {
	return r.String("arguments")
}

func renderActionBody(action *Action, args string) string {
	title := titleCase(strings.ReplaceAll(action.ActionType, "_", " "))
	var b strings.Builder
	b.WriteString("# Approval Request: " + title + "\n\n")
	b.WriteString("## Action Details\n")
	b.WriteString("- **Type**: " + action.ActionType + "\n")
	b.WriteString("- **Tool**: " + action.ToolName + "\n")
	b.WriteString("- **Risk Level**: " + strings.ToUpper(string(action.RiskLevel)) + "\n")
	if !action.CreatedAt.IsZero() {
		b.WriteString("- **Created**: " + action.CreatedAt.UTC().Format("2006-01-02 15:04:05") + "\n")
	}
	b.WriteString("\n")
	if action.Reasoning != "" {
		b.WriteString("## Reasoning\n" + action.Reasoning + "\n\n")
	}
	b.WriteString("## Proposed Action\n```json\n")
	b.WriteString(fmt.Sprintf("{\n  \"tool\": %q,\n  \"arguments\": %s\n}\n", action.ToolName, args))
	b.WriteString("```\n\n")
	b.WriteString("## Approval Instructions\n")
	b.WriteString("- **To approve**: resolve this request as approved; it moves to needs-action unchanged\n")
	b.WriteString("- **To reject**: resolve as rejected with a reason; rejection is permanent\n")
	return b.String()
}

func titleCase(text string) string {
	words := strings.Fields(text)
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}
