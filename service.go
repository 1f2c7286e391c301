package taskwell

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/viant/afs"
	"github.com/viant/afs/url"

	"github.com/taskwell/taskwell/internal/clock"
	"github.com/taskwell/taskwell/internal/idgen"
	"github.com/taskwell/taskwell/model"
	"github.com/taskwell/taskwell/model/types"
	"github.com/taskwell/taskwell/policy"
	"github.com/taskwell/taskwell/progress"
	"github.com/taskwell/taskwell/service/approval"
	"github.com/taskwell/taskwell/service/dedup"
	"github.com/taskwell/taskwell/service/executor"
	"github.com/taskwell/taskwell/service/ingestion"
	"github.com/taskwell/taskwell/service/limiter"
	"github.com/taskwell/taskwell/service/planner"
	"github.com/taskwell/taskwell/service/queue"
	"github.com/taskwell/taskwell/service/runner/nop"
	"github.com/taskwell/taskwell/service/skill"
	"github.com/taskwell/taskwell/tracing"
)

// Service is the high-level façade wiring ingestion, planning, approval and
// execution over a shared queue.
type Service struct {
	config     *Config
	fs         afs.Service
	logger     zerolog.Logger
	source     ingestion.Source
	runner     types.Runner
	generator  types.Generator
	riskPolicy *approval.RiskPolicy

	queue     *queue.Service
	index     *dedup.Index
	caller    *limiter.Caller
	planner   *planner.Service
	approval  approval.Service
	executor  executor.Service
	ingestion *ingestion.Service
	skills    *skill.Service
}

// CycleReport aggregates the outcome of one full pipeline cycle.
type CycleReport struct {
	Ingestion       *ingestion.Stats
	PlansCreated    int
	RequestsCreated int
	Results         []*executor.Result
}

// New creates a fully wired engine. The zero configuration runs against an
// in-memory queue with a simulating runner.
func New(options ...Option) (*Service, error) {
	s := &Service{logger: zerolog.Nop()}
	for _, option := range options {
		option(s)
	}
	if err := s.init(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) init() error {
	if s.config == nil {
		s.config = DefaultConfig()
	}
	if err := s.config.Validate(); err != nil {
		return err
	}
	if s.fs == nil {
		s.fs = afs.New()
	}
	if s.runner == nil {
		s.runner = nop.New()
	}

	var err error
	if s.queue, err = queue.New(s.fs, s.config.BaseURL); err != nil {
		return err
	}

	indexURL := s.config.IndexURL
	if indexURL == "" {
		indexURL = url.Join(s.config.BaseURL, ".dedup-index.json")
	}
	if s.index, err = dedup.New(s.fs, indexURL); err != nil {
		return err
	}
	if err = s.index.Load(context.Background()); err != nil {
		return err
	}

	s.caller = limiter.New(s.config.RateLimit, limiter.WithLogger(s.logger))

	plannerOptions := []planner.Option{planner.WithLogger(s.logger)}
	if s.generator != nil {
		plannerOptions = append(plannerOptions, planner.WithGenerator(s.generator))
	}
	s.planner = planner.New(plannerOptions...)

	approvalOptions := []approval.Option{approval.WithLogger(s.logger)}
	if s.riskPolicy != nil {
		approvalOptions = append(approvalOptions, approval.WithRiskPolicy(s.riskPolicy))
	}
	s.approval = approval.New(s.queue, approvalOptions...)

	s.executor = executor.New(s.queue, s.runner,
		executor.WithLogger(s.logger),
		executor.WithApprovalChecker(s.approvalChecker()))

	s.ingestion = ingestion.New(s.queue, s.index, s.caller,
		ingestion.WithRules(s.config.Rules),
		ingestion.WithLogger(s.logger))

	s.skills = skill.New(s.queue, s.generator, skill.WithLogger(s.logger))
	return nil
}

// approvalChecker bridges the executor's gate query to the approval service.
// The step's own frozen flags decide that a gate exists, so the check goes
// through BlockStep rather than the risk-derived guard. The argument payload
// is constructed identically here and in routeStep so that the stored JSON
// matches byte-for-byte.
func (s *Service) approvalChecker() executor.ApprovalChecker {
	return executor.ApprovalCheckerFunc(func(ctx context.Context, plan *model.Plan, step *model.Step) (bool, error) {
		blocked, _, err := s.approval.BlockStep(ctx, planner.ActionTypeFor(step.Description), stepArguments(plan, step))
		if err != nil {
			return false, err
		}
		return !blocked, nil
	})
}

/* ---- pipeline stages ---- */

// BuildPlans turns every pending item in needs-action into a persisted plan.
func (s *Service) BuildPlans(ctx context.Context) (int, error) {
	names, err := s.queue.List(ctx, queue.NeedsAction)
	if err != nil {
		return 0, err
	}
	created := 0
	for _, name := range names {
		rec, err := s.queue.Get(ctx, queue.NeedsAction, name)
		if err != nil {
			s.logger.Warn().Err(err).Str("name", name).Msg("failed to load item")
			continue
		}
		if rec.String("kind") != model.KindItem || rec.String("status") != "pending" {
			continue
		}
		item := model.ItemFromRecord(rec)
		plan, err := s.planner.Build(ctx, item)
		if err != nil {
			s.logger.Warn().Err(err).Str("name", name).Msg("failed to build plan")
			continue
		}
		plan.SourceTask = name
		planName := planRecordName(plan)
		if err := s.queue.Put(ctx, queue.Plans, planName, model.PlanRecord(plan)); err != nil {
			s.logger.Warn().Err(err).Str("plan", planName).Msg("failed to persist plan")
			continue
		}
		rec.Meta["status"] = "planned"
		rec.SetTime("reviewedAt", clock.Now())
		if err := s.queue.Put(ctx, queue.NeedsAction, name, rec); err != nil {
			s.logger.Warn().Err(err).Str("name", name).Msg("failed to update item status")
		}
		created++
		progress.UpdateCtx(ctx, progress.Delta{PlansCreated: 1})
	}
	return created, nil
}

// RouteApprovals creates approval requests for every plan halted at a gated
// step that has neither a pending nor an approved matching record.
func (s *Service) RouteApprovals(ctx context.Context) (int, error) {
	names, err := s.queue.List(ctx, queue.Plans)
	if err != nil {
		return 0, err
	}
	created := 0
	for _, name := range names {
		rec, err := s.queue.Get(ctx, queue.Plans, name)
		if err != nil || rec.String("kind") != model.KindPlan {
			continue
		}
		plan, err := model.PlanFromRecord(rec)
		if err != nil {
			s.logger.Warn().Err(err).Str("plan", name).Msg("failed to decode plan")
			continue
		}
		step := plan.NextStep()
		if step == nil || !(step.Sensitive || step.RequiresApproval) {
			continue
		}
		requested, err := s.routeStep(ctx, plan, step)
		if err != nil {
			s.logger.Warn().Err(err).Str("plan", name).Int("step", step.Number).Msg("failed to route approval")
			continue
		}
		if requested {
			created++
			progress.UpdateCtx(ctx, progress.Delta{Approvals: 1})
		}
	}
	return created, nil
}

// routeStep files an approval request for a gated step unless the gate is
// already satisfied or a matching request is already pending.
func (s *Service) routeStep(ctx context.Context, plan *model.Plan, step *model.Step) (bool, error) {
	actionType := planner.ActionTypeFor(step.Description)
	arguments := stepArguments(plan, step)

	blocked, _, err := s.approval.BlockStep(ctx, actionType, arguments)
	if err != nil {
		return false, err
	}
	if !blocked {
		return false, nil
	}
	pending, err := s.pendingRequestExists(ctx, actionType, arguments)
	if err != nil || pending {
		return false, err
	}
	_, err = s.approval.CreateRequest(ctx, &model.Action{
		ActionType: actionType,
		ToolName:   actionType,
		Arguments:  arguments,
		RiskLevel:  model.MaxRisk(s.approval.AssessRisk(actionType, arguments), model.RiskMedium),
		Reasoning:  fmt.Sprintf("Step %d of plan %q: %s", step.Number, plan.Goal, step.Description),
		PlanID:     plan.TaskID,
		StepNumber: step.Number,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) pendingRequestExists(ctx context.Context, actionType string, arguments map[string]interface{}) (bool, error) {
	want, err := model.ActionRecord(&model.Action{ActionType: actionType, Arguments: arguments})
	if err != nil {
		return false, err
	}
	wantArgs := model.ArgumentsJSON(want)
	names, err := s.approval.ListPending(ctx)
	if err != nil {
		return false, err
	}
	for _, name := range names {
		rec, err := s.queue.Get(ctx, queue.PendingApproval, name)
		if err != nil {
			continue
		}
		if rec.String("actionType") == actionType && model.ArgumentsJSON(rec) == wantArgs {
			return true, nil
		}
	}
	return false, nil
}

// RunCycle executes one full pipeline pass: poll the source, build plans,
// route gated steps to the approval queue and execute what is runnable.
func (s *Service) RunCycle(ctx context.Context) (*CycleReport, error) {
	ctx, span := tracing.StartSpan(ctx, "pipeline.cycle", "INTERNAL")
	report, err := s.runCycle(ctx)
	tracing.EndSpan(span, err)
	return report, err
}

func (s *Service) runCycle(ctx context.Context) (*CycleReport, error) {
	if p := policy.FromConfig(s.config.Policy); p != nil {
		ctx = policy.WithPolicy(ctx, p)
	}
	report := &CycleReport{}
	if s.source != nil {
		stats, err := s.ingestion.PollOnce(ctx, s.source)
		report.Ingestion = stats
		if err != nil {
			return report, err
		}
	}
	var err error
	if report.PlansCreated, err = s.BuildPlans(ctx); err != nil {
		return report, err
	}
	if report.RequestsCreated, err = s.RouteApprovals(ctx); err != nil {
		return report, err
	}
	if report.Results, err = s.executor.ExecuteAll(ctx); err != nil {
		return report, err
	}
	return report, nil
}

// Run drives the pipeline at the configured interval until the context is
// cancelled.
func (s *Service) Run(ctx context.Context) error {
	sourceName := ""
	if s.source != nil {
		sourceName = s.source.Name()
	}
	ctx, tracker := progress.WithNewTracker(ctx, idgen.New(), sourceName, nil)
	interval := s.config.PollInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := s.RunCycle(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error().Err(err).Msg("pipeline cycle failed")
		}
		select {
		case <-ctx.Done():
			snapshot := tracker.Snapshot()
			s.logger.Info().
				Int("itemsCreated", snapshot.ItemsCreated).
				Int("plansCreated", snapshot.PlansCreated).
				Int("stepsCompleted", snapshot.StepsCompleted).
				Int("errors", snapshot.Errors).
				Msg("pipeline stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Decide applies a human approval decision by record name.
func (s *Service) Decide(ctx context.Context, name string, approved bool, reason string) (*model.Action, error) {
	return s.approval.Resolve(ctx, name, approved, reason)
}

/* ---- component accessors ---- */

func (s *Service) Queue() *queue.Service         { return s.queue }
func (s *Service) Dedup() *dedup.Index           { return s.index }
func (s *Service) Caller() *limiter.Caller       { return s.caller }
func (s *Service) Planner() *planner.Service     { return s.planner }
func (s *Service) Approval() approval.Service    { return s.approval }
func (s *Service) Executor() executor.Service    { return s.executor }
func (s *Service) Ingestion() *ingestion.Service { return s.ingestion }
func (s *Service) Skills() *skill.Service        { return s.skills }

// stepArguments is the canonical argument payload of a plan step. The
// executor's gate check and the approval request builder must produce the
// same payload so the stored JSON round-trips byte-for-byte.
func stepArguments(plan *model.Plan, step *model.Step) map[string]interface{} {
	return map[string]interface{}{
		"description": step.Description,
		"plan":        plan.TaskID,
		"step":        step.Number,
	}
}

func planRecordName(plan *model.Plan) string {
	slug := queue.SanitizeName(plan.Goal, 40)
	id := plan.TaskID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("plan_%s_%s", slug, id)
}
