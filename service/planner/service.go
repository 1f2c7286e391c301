// Package planner turns a classified item into an ordered execution plan
// with sensitive-action detection. Sensitivity and the approval requirement
// are computed exactly once here; the executor never recomputes them.
package planner

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/taskwell/taskwell/internal/clock"
	"github.com/taskwell/taskwell/internal/idgen"
	"github.com/taskwell/taskwell/model"
	"github.com/taskwell/taskwell/model/types"
	"github.com/taskwell/taskwell/service/planner/parser"
)

// DefaultSensitiveKeywords is the vocabulary that flags a step as having
// real-world side effects.
var DefaultSensitiveKeywords = []string{
	"send", "email", "post", "publish", "delete", "remove",
	"pay", "payment", "invoice", "transfer", "purchase",
	"share", "forward", "reply", "respond", "commit",
	"deploy", "release", "approve", "reject", "cancel",
}

// DefaultHighRiskKeywords is the stricter vocabulary that forces
// requiresApproval regardless of the general sensitivity flag.
var DefaultHighRiskKeywords = []string{
	"delete", "remove", "cancel", "reject",
	"pay", "payment", "transfer", "purchase",
	"deploy", "release", "publish",
}

// Option customises the planner.
type Option func(*Service)

// WithGenerator injects the optional text-generation capability used to
// refine the goal statement when the item carries no explicit goal. A nil
// generator keeps the deterministic template path.
func WithGenerator(g types.Generator) Option {
	return func(s *Service) { s.generator = g }
}

// WithSensitiveKeywords overrides the sensitive-action vocabulary.
func WithSensitiveKeywords(keywords ...string) Option {
	return func(s *Service) { s.sensitive = keywords }
}

// WithHighRiskKeywords overrides the high-risk vocabulary.
func WithHighRiskKeywords(keywords ...string) Option {
	return func(s *Service) { s.highRisk = keywords }
}

// WithLogger sets the structured logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// Service builds plans from items.
type Service struct {
	sensitive []string
	highRisk  []string
	generator types.Generator
	logger    zerolog.Logger
}

// New creates a planner with the default vocabularies.
func New(options ...Option) *Service {
	s := &Service{
		sensitive: DefaultSensitiveKeywords,
		highRisk:  DefaultHighRiskKeywords,
		logger:    zerolog.Nop(),
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// Build creates a plan for an item. Explicit action items in the body become
// steps verbatim (checkbox markers stripped, order preserved); otherwise a
// template matching the item's declared type is used. Unknown types fall
// back to the generic template, never an error.
func (s *Service) Build(ctx context.Context, item *model.Item) (*model.Plan, error) {
	goal := s.extractGoal(ctx, item)
	steps := s.buildSteps(item, goal)
	s.markSensitive(steps)

	plan := &model.Plan{
		TaskID:    idgen.New(),
		Goal:      goal,
		Steps:     steps,
		Status:    model.PlanStatusPending,
		CreatedAt: clock.Now(),
	}
	s.logger.Info().
		Str("taskId", plan.TaskID).
		Str("goal", goal).
		Int("steps", len(steps)).
		Msg("plan created")
	return plan, nil
}

// extractGoal prefers an explicit Goal section, then the first listed action
// item, then a template derived from the item's declared type and subject.
func (s *Service) extractGoal(ctx context.Context, item *model.Item) string {
	if section := Section(item.Body, "Goal"); section != "" {
		return firstLine(section)
	}
	if section := Section(item.Body, "Action Items"); section != "" {
		if lines := parser.Parse(section); len(lines) > 0 {
			return lines[0].Description
		}
	}
	if s.generator != nil {
		goal, err := s.generator.Generate(ctx, goalPrompt(item), &types.GenerateOptions{
			SystemPrompt: "You are a strategic planning assistant. State the goal of the task in one line.",
			Temperature:  0.5,
			MaxTokens:    100,
		})
		if err == nil && strings.TrimSpace(goal) != "" {
			return firstLine(goal)
		}
		if err != nil {
			s.logger.Warn().Err(err).Msg("goal generation failed, falling back to template")
		}
	}
	return templateGoal(item)
}

func (s *Service) buildSteps(item *model.Item, goal string) []*model.Step {
	if section := Section(item.Body, "Action Items"); section != "" {
		if lines := parser.Parse(section); len(lines) > 0 {
			steps := make([]*model.Step, 0, len(lines))
			for i, line := range lines {
				steps = append(steps, &model.Step{
					Number:      i + 1,
					Description: line.Description,
					Completed:   line.Completed,
				})
			}
			return steps
		}
	}
	return templateSteps(item, goal)
}

// markSensitive freezes the sensitivity flags on every step. Sensitive steps
// require approval; high-risk steps require approval regardless of the
// general sensitivity flag.
func (s *Service) markSensitive(steps []*model.Step) {
	for _, step := range steps {
		if !step.Sensitive {
			step.Sensitive = containsKeyword(step.Description, s.sensitive)
		}
		if containsKeyword(step.Description, s.highRisk) {
			step.Sensitive = true
			step.RequiresApproval = true
		}
		if step.Sensitive {
			step.RequiresApproval = true
		}
	}
}

// IsSensitive reports whether a description matches the sensitive
// vocabulary.
func (s *Service) IsSensitive(description string) bool {
	return containsKeyword(description, s.sensitive)
}

// IsHighRisk reports whether a description matches the high-risk vocabulary.
func (s *Service) IsHighRisk(description string) bool {
	return containsKeyword(description, s.highRisk)
}

func containsKeyword(description string, keywords []string) bool {
	lowered := strings.ToLower(description)
	for _, keyword := range keywords {
		if strings.Contains(lowered, keyword) {
			return true
		}
	}
	return false
}

func goalPrompt(item *model.Item) string {
	var b strings.Builder
	b.WriteString("Task Type: " + item.Type + "\n")
	b.WriteString("Subject: " + item.Subject + "\n\n")
	b.WriteString(item.Body)
	return b.String()
}

func firstLine(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.IndexByte(text, '\n'); idx != -1 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}
