package model

import (
	"fmt"
	"time"
)

// PlanStatus captures the lifecycle of a plan. The executor transitions a
// plan through pending -> in_progress -> complete, detouring through
// awaiting_approval whenever the next incomplete step is gated.
type PlanStatus string

const (
	PlanStatusPending          PlanStatus = "pending"
	PlanStatusInProgress       PlanStatus = "in_progress"
	PlanStatusAwaitingApproval PlanStatus = "awaiting_approval"
	PlanStatusComplete         PlanStatus = "complete"
)

// Step is a single unit of a plan. Sensitive and RequiresApproval are
// computed once at plan-build time and never recomputed - re-running the
// classifier mid-plan could change gating between the approval check and the
// action, so the flags are frozen with the step.
type Step struct {
	Number           int    `json:"number" yaml:"number"`
	Description      string `json:"description" yaml:"description"`
	Completed        bool   `json:"completed" yaml:"completed"`
	Sensitive        bool   `json:"sensitive" yaml:"sensitive"`
	RequiresApproval bool   `json:"requiresApproval" yaml:"requiresApproval"`
	// Dependencies lists step numbers this step depends on. The executor
	// walks steps strictly in order, so earlier-numbered dependencies are
	// satisfied by construction; the field is persisted for hand-authored
	// plans and external tooling. Reserved, never populated by the planner.
	Dependencies []int `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
}

// Plan is an ordered list of steps produced for a single item.
type Plan struct {
	TaskID      string     `json:"taskId" yaml:"taskId"`
	SourceTask  string     `json:"sourceTask,omitempty" yaml:"sourceTask,omitempty"`
	Goal        string     `json:"goal" yaml:"goal"`
	Steps       []*Step    `json:"steps" yaml:"steps"`
	Status      PlanStatus `json:"status" yaml:"status"`
	CurrentStep int        `json:"currentStep" yaml:"currentStep"`
	CreatedAt   time.Time  `json:"createdAt" yaml:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt,omitempty" yaml:"updatedAt,omitempty"`
}

// NextStep returns the first incomplete step in order, or nil when every
// step has completed.
func (p *Plan) NextStep() *Step {
	for _, step := range p.Steps {
		if !step.Completed {
			return step
		}
	}
	return nil
}

// Counts returns the number of completed steps and the total step count.
func (p *Plan) Counts() (completed, total int) {
	for _, step := range p.Steps {
		if step.Completed {
			completed++
		}
	}
	return completed, len(p.Steps)
}

// Progress renders the running completed/total counter mirrored into the
// plan's persisted metadata.
func (p *Plan) Progress() string {
	completed, total := p.Counts()
	return fmt.Sprintf("%d/%d", completed, total)
}

// LookupStep returns the step with the given number, or nil.
func (p *Plan) LookupStep(number int) *Step {
	for _, step := range p.Steps {
		if step.Number == number {
			return step
		}
	}
	return nil
}
