package model

import (
	"strings"
	"time"
)

// RiskLevel grades the blast radius of an action.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

var riskRank = map[RiskLevel]int{RiskLow: 0, RiskMedium: 1, RiskHigh: 2}

// Rank returns the ordinal position of the level; unknown levels rank as low.
func (r RiskLevel) Rank() int {
	return riskRank[r]
}

// AtLeast reports whether r is the same or a higher risk than other.
func (r RiskLevel) AtLeast(other RiskLevel) bool {
	return r.Rank() >= other.Rank()
}

// MaxRisk returns the higher of two risk levels. Override rules escalate via
// MaxRisk so that no rule can ever lower a baseline.
func MaxRisk(a, b RiskLevel) RiskLevel {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// ParseRiskLevel normalises a free-form risk value; unknown values are low.
func ParseRiskLevel(value string) RiskLevel {
	switch RiskLevel(strings.ToLower(strings.TrimSpace(value))) {
	case RiskHigh:
		return RiskHigh
	case RiskMedium:
		return RiskMedium
	default:
		return RiskLow
	}
}

// ApprovalStatus is the lifecycle of an approval request.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// Action is a proposed tool invocation awaiting a human accept/reject
// decision. The tool name and argument payload are embedded verbatim in the
// persisted record so that approval and execution agree on exactly what will
// run.
type Action struct {
	ID              string                 `json:"id" yaml:"id"`
	ActionType      string                 `json:"actionType" yaml:"actionType"`
	ToolName        string                 `json:"toolName" yaml:"toolName"`
	Arguments       map[string]interface{} `json:"arguments,omitempty" yaml:"arguments,omitempty"`
	RiskLevel       RiskLevel              `json:"riskLevel" yaml:"riskLevel"`
	CreatedAt       time.Time              `json:"createdAt" yaml:"createdAt"`
	Status          ApprovalStatus         `json:"status" yaml:"status"`
	Reasoning       string                 `json:"reasoning,omitempty" yaml:"reasoning,omitempty"`
	RejectedAt      *time.Time             `json:"rejectedAt,omitempty" yaml:"rejectedAt,omitempty"`
	RejectionReason string                 `json:"rejectionReason,omitempty" yaml:"rejectionReason,omitempty"`

	// PlanID and StepNumber link an action back to the gated plan step it
	// was created for; both are zero for direct tool invocations.
	PlanID     string `json:"planId,omitempty" yaml:"planId,omitempty"`
	StepNumber int    `json:"stepNumber,omitempty" yaml:"stepNumber,omitempty"`
}
