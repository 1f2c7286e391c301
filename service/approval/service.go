// Package approval implements the human-in-the-loop gate for sensitive
// actions: risk assessment against a static policy with escalate-only
// overrides, approval-request records persisted for human review, and the
// guard that blocks any ungated medium/high-risk invocation.
package approval

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/taskwell/taskwell/internal/clock"
	"github.com/taskwell/taskwell/internal/idgen"
	"github.com/taskwell/taskwell/model"
	"github.com/taskwell/taskwell/policy"
	"github.com/taskwell/taskwell/service/queue"
)

// Service defines the approval gate interface.
type Service interface {
	// AssessRisk grades an action; never below the policy baseline.
	AssessRisk(actionType string, arguments map[string]interface{}) model.RiskLevel

	// RequiresApproval is true iff the assessed risk is medium or high.
	RequiresApproval(actionType string, arguments map[string]interface{}) bool

	// CreateRequest persists a human-readable approval record into the
	// pending-approval location and returns its record name. This is the
	// only path by which a sensitive action becomes executable.
	CreateRequest(ctx context.Context, action *model.Action) (string, error)

	// Resolve applies a human decision. Approving moves the record to
	// needs-action with unchanged content; rejecting appends the reason and
	// timestamp, flips the status and moves the record to done. Rejection
	// is permanent.
	Resolve(ctx context.Context, name string, approved bool, reason string) (*model.Action, error)

	// ListPending returns the record names awaiting a decision.
	ListPending(ctx context.Context) ([]string, error)

	// BlockSensitiveAction is the guard a direct tool invocation must call
	// before acting: any medium/high-risk action is blocked unless an
	// already-approved matching record exists.
	BlockSensitiveAction(ctx context.Context, actionType string, arguments map[string]interface{}) (bool, string, error)

	// BlockStep guards a plan step whose approval requirement was frozen at
	// plan-build time. The assessed risk of the action type is irrelevant
	// here: the step stays blocked until an ask policy or an approved
	// matching record grants it.
	BlockStep(ctx context.Context, actionType string, arguments map[string]interface{}) (bool, string, error)
}

// Option customises the approval service.
type Option func(*service)

// WithRiskPolicy overrides the default risk policy.
func WithRiskPolicy(p *RiskPolicy) Option {
	return func(s *service) { s.policy = p }
}

// WithLogger sets the structured logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *service) { s.logger = logger }
}

type service struct {
	queue  *queue.Service
	policy *RiskPolicy
	logger zerolog.Logger
}

// New creates a queue-backed approval gate.
func New(q *queue.Service, options ...Option) Service {
	s := &service{
		queue:  q,
		policy: DefaultRiskPolicy(),
		logger: zerolog.Nop(),
	}
	for _, option := range options {
		option(s)
	}
	return s
}

func (s *service) AssessRisk(actionType string, arguments map[string]interface{}) model.RiskLevel {
	return s.policy.Assess(actionType, arguments)
}

func (s *service) RequiresApproval(actionType string, arguments map[string]interface{}) bool {
	return s.AssessRisk(actionType, arguments).AtLeast(model.RiskMedium)
}

func (s *service) CreateRequest(ctx context.Context, action *model.Action) (string, error) {
	if action == nil {
		return "", fmt.Errorf("invalid action")
	}
	if action.ID == "" {
		action.ID = idgen.New()
	}
	if action.CreatedAt.IsZero() {
		action.CreatedAt = clock.Now()
	}
	if action.RiskLevel == "" {
		action.RiskLevel = s.AssessRisk(action.ActionType, action.Arguments)
	}
	if action.Status == "" {
		action.Status = model.ApprovalPending
	}
	rec, err := model.ActionRecord(action)
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("approval_%s_%s", action.ActionType,
		action.CreatedAt.UTC().Format("20060102_150405"))
	name = queue.SanitizeName(name, 80) + "_" + shortID(action.ID)
	if err := s.queue.Put(ctx, queue.PendingApproval, name, rec); err != nil {
		return "", err
	}
	s.logger.Info().
		Str("name", name).
		Str("actionType", action.ActionType).
		Str("riskLevel", string(action.RiskLevel)).
		Msg("approval request created")
	return name, nil
}

func (s *service) Resolve(ctx context.Context, name string, approved bool, reason string) (*model.Action, error) {
	rec, err := s.queue.Get(ctx, queue.PendingApproval, name)
	if err != nil {
		return nil, fmt.Errorf("approval record %s not found: %w", name, err)
	}
	action, err := model.ActionFromRecord(rec)
	if err != nil {
		return nil, err
	}
	if approved {
		// Approved records move unchanged so that the payload stays
		// byte-for-byte identical between approval and execution.
		if err := s.queue.Move(ctx, name, queue.PendingApproval, queue.NeedsAction); err != nil {
			return nil, err
		}
		action.Status = model.ApprovalApproved
		s.logger.Info().Str("name", name).Msg("approval granted")
		return action, nil
	}

	now := clock.Now()
	action.Status = model.ApprovalRejected
	action.RejectedAt = &now
	action.RejectionReason = reason
	rec.Meta["status"] = string(model.ApprovalRejected)
	rec.SetTime("rejectedAt", now)
	if reason != "" {
		rec.Meta["rejectionReason"] = reason
		rec.Body += "\n\n## Rejection Reason\n" + reason + "\n"
	}
	rec.Body += "\n**Rejected**: " + now.UTC().Format("2006-01-02 15:04:05") + "\n"
	if err := s.queue.Put(ctx, queue.PendingApproval, name, rec); err != nil {
		return nil, err
	}
	if err := s.queue.Move(ctx, name, queue.PendingApproval, queue.Done); err != nil {
		return nil, err
	}
	s.logger.Info().Str("name", name).Str("reason", reason).Msg("approval rejected")
	return action, nil
}

func (s *service) ListPending(ctx context.Context) ([]string, error) {
	names, err := s.queue.List(ctx, queue.PendingApproval)
	if err != nil {
		return nil, err
	}
	pending := make([]string, 0, len(names))
	for _, name := range names {
		if strings.HasPrefix(name, "approval_") {
			pending = append(pending, name)
		}
	}
	return pending, nil
}

func (s *service) BlockSensitiveAction(ctx context.Context, actionType string, arguments map[string]interface{}) (bool, string, error) {
	if blocked, reason := s.policyBlocks(ctx, actionType); blocked {
		return true, reason, nil
	}
	if !s.RequiresApproval(actionType, arguments) {
		return false, "", nil
	}
	return s.gate(ctx, actionType, arguments, s.AssessRisk(actionType, arguments))
}

func (s *service) BlockStep(ctx context.Context, actionType string, arguments map[string]interface{}) (bool, string, error) {
	if blocked, reason := s.policyBlocks(ctx, actionType); blocked {
		return true, reason, nil
	}
	// The step carried its approval requirement from plan-build time, so an
	// action type the risk table maps low cannot reopen the gate. Floor the
	// reported level at medium.
	level := model.MaxRisk(s.AssessRisk(actionType, arguments), model.RiskMedium)
	return s.gate(ctx, actionType, arguments, level)
}

// policyBlocks applies the execution policy embedded in the context, if any.
func (s *service) policyBlocks(ctx context.Context, actionType string) (bool, string) {
	p := policy.FromContext(ctx)
	if p == nil {
		return false, ""
	}
	if p.Mode == policy.ModeDeny {
		return true, fmt.Sprintf("action '%s' blocked by deny policy", actionType)
	}
	if !p.IsAllowed(actionType) {
		return true, fmt.Sprintf("action '%s' is not allowed by policy", actionType)
	}
	return false, ""
}

// gate resolves an approval-requiring action. An interactive ask policy in
// the context decides immediately when present; otherwise an approved
// matching record must already exist in needs-action.
func (s *service) gate(ctx context.Context, actionType string, arguments map[string]interface{}, level model.RiskLevel) (bool, string, error) {
	if p := policy.FromContext(ctx); p != nil && p.Mode == policy.ModeAsk && p.Ask != nil {
		if p.Ask(ctx, actionType, arguments, p) {
			return false, "", nil
		}
		return true, fmt.Sprintf("action '%s' rejected by ask policy", actionType), nil
	}
	granted, err := s.approvedRecordExists(ctx, actionType, arguments)
	if err != nil {
		return true, "", err
	}
	if granted {
		return false, "", nil
	}
	reason := fmt.Sprintf("action '%s' requires approval (risk level: %s)", actionType, level)
	s.logger.Warn().Str("actionType", actionType).Str("riskLevel", string(level)).Msg("sensitive action blocked")
	return true, reason, nil
}

// approvedRecordExists scans needs-action for an approval record matching
// the action type and the exact argument payload. Location is the only
// authoritative status: a record in needs-action has been approved.
func (s *service) approvedRecordExists(ctx context.Context, actionType string, arguments map[string]interface{}) (bool, error) {
	want, err := model.ActionRecord(&model.Action{ActionType: actionType, Arguments: arguments})
	if err != nil {
		return false, err
	}
	wantArgs := model.ArgumentsJSON(want)

	names, err := s.queue.List(ctx, queue.NeedsAction)
	if err != nil {
		return false, err
	}
	for _, name := range names {
		rec, err := s.queue.Get(ctx, queue.NeedsAction, name)
		if err != nil {
			continue
		}
		if rec.String("kind") != model.KindApproval {
			continue
		}
		if rec.String("actionType") != actionType {
			continue
		}
		if model.ArgumentsJSON(rec) == wantArgs {
			return true, nil
		}
	}
	return false, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

var _ Service = (*service)(nil)
