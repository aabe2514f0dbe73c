// Copyright (C) 2026 Seaward AI (oss@seaward.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/seawardai/sounder/graph"
)

// Phase names the stages of one controller iteration, in execution order.
type Phase string

const (
	PhaseAnticipate    Phase = "anticipate"
	PhaseNegotiate     Phase = "negotiate_budget"
	PhaseEvaluateDepth Phase = "evaluate_depth"
	PhaseExpand        Phase = "expand_and_score"
	PhaseSelect        Phase = "select_beam"
)

// Controller runs the full adaptive search loop: it anticipates failures,
// negotiates the budget, consults the depth policy, expands the frontier,
// and keeps the best beam, iteration after iteration, escalating to the
// feedback handler whenever a decision exceeds its own authority.
//
// Thread Safety: A Controller is safe for concurrent use only when each Run
// is given its own graph (the default). With WithGraph, concurrent Runs
// would share mutable search state.
type Controller struct {
	gen      Generator
	eval     Evaluator
	feedback FeedbackHandler
	cfg      Config

	grounder    Grounder
	logger      *slog.Logger
	tracer      *SearchTracer
	limiter     *rate.Limiter
	sharedGraph *graph.Graph

	negotiator  *BudgetNegotiator
	anticipator *FailureAnticipator
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithControllerGrounder attaches a grounder to the controller's expansions.
func WithControllerGrounder(g Grounder) ControllerOption {
	return func(c *Controller) { c.grounder = g }
}

// WithControllerLogger sets the structured logger.
func WithControllerLogger(l *slog.Logger) ControllerOption {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithControllerTracer sets the search tracer.
func WithControllerTracer(t *SearchTracer) ControllerOption {
	return func(c *Controller) {
		if t != nil {
			c.tracer = t
		}
	}
}

// WithGraph makes Run operate on an existing graph instead of a fresh one,
// allowing pre-seeded roots or resumed sessions.
func WithGraph(g *graph.Graph) ControllerOption {
	return func(c *Controller) { c.sharedGraph = g }
}

// WithDetector registers an additional failure detector.
func WithDetector(d Detector) ControllerOption {
	return func(c *Controller) { c.anticipator.Register(d) }
}

// WithControllerRateLimit caps capability calls at rps per second.
func WithControllerRateLimit(rps float64, burst int) ControllerOption {
	return func(c *Controller) { c.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// NewController creates an adaptive search controller.
//
// Inputs:
//   - gen: Child-content generator. Required.
//   - eval: Thought scorer. Required.
//   - feedback: External decision authority. Required.
//   - cfg: Full configuration; validated here.
//   - opts: Optional collaborators.
//
// Outputs:
//   - *Controller: The configured controller.
//   - error: Non-nil if a required capability is missing or cfg is invalid.
func NewController(gen Generator, eval Evaluator, feedback FeedbackHandler, cfg Config, opts ...ControllerOption) (*Controller, error) {
	if gen == nil || eval == nil {
		return nil, fmt.Errorf("controller requires a generator and an evaluator")
	}
	if feedback == nil {
		return nil, fmt.Errorf("controller requires a feedback handler")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("controller config: %w", err)
	}

	c := &Controller{
		gen:         gen,
		eval:        eval,
		feedback:    feedback,
		cfg:         cfg,
		logger:      slog.Default(),
		negotiator:  NewBudgetNegotiator(cfg.Negotiation),
		anticipator: NewFailureAnticipator(),
	}
	c.tracer = NewSearchTracer(c.logger, cfg.Observability)
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// session is the per-run mutable state.
type session struct {
	g          *graph.Graph
	sc         *Context
	budget     graph.Budget
	policy     *DepthPolicy
	tolerance  *FailureTolerance
	exp        *expander
	frontier   []*graph.Thought
	history    []float64
	expanded   map[string]bool
	prevented  map[string]bool
	beamWidth  int
	expansions int
}

// Run executes the adaptive search for a task under a token budget.
//
// The returned budget reflects all consumption and any negotiated increases,
// so callers can thread it into subsequent sessions. The result is non-nil
// even on error, carrying whatever was found before the fault.
//
// Inputs:
//   - ctx: Cancellation and deadline for the whole run.
//   - task: Task description; becomes the root thought if the graph is empty.
//   - budget: Token budget for the session.
//
// Outputs:
//   - *Result: Outcome with best path, reason, and any compromise.
//   - graph.Budget: Final budget state.
//   - error: Non-nil on tolerance breach or unrecoverable fault.
func (c *Controller) Run(ctx context.Context, task string, budget graph.Budget) (*Result, graph.Budget, error) {
	g := c.sharedGraph
	if g == nil {
		g = graph.New()
	}
	if len(g.Roots()) == 0 {
		if _, err := g.Add(graph.NewThought(task), ""); err != nil {
			return nil, budget, fmt.Errorf("seed root thought: %w", err)
		}
	}

	if c.cfg.Search.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Search.Timeout)
		defer cancel()
	}

	s := &session{
		g:         g,
		sc:        NewContext(task).WithBudget(budget),
		budget:    budget,
		policy:    NewDepthPolicy(c.cfg.Depth),
		tolerance: NewFailureTolerance(c.cfg.Tolerance),
		expanded:  make(map[string]bool),
		prevented: make(map[string]bool),
		beamWidth: c.cfg.Search.BeamWidth,
	}
	s.exp = &expander{
		gen:       c.gen,
		eval:      c.eval,
		grounder:  c.grounder,
		adjust:    c.cfg.Grounding,
		tolerance: s.tolerance,
		limiter:   c.limiter,
		logger:    c.logger,
	}

	ctx, span := c.tracer.StartRun(ctx, "adaptive", c.cfg.Search)
	result, err := c.run(ctx, s)
	c.tracer.EndRun(span, result, err)
	if result != nil {
		recordTermination(ctx, result.Reason, result.BestScore)
	}
	return result, s.budget, err
}

func (c *Controller) run(ctx context.Context, s *session) (*Result, error) {
	roots := s.g.Roots()
	var unscored []*graph.Thought
	for _, t := range roots {
		if _, ok := s.g.Score(t.ID); !ok {
			unscored = append(unscored, t)
		}
	}
	if len(unscored) > 0 {
		if err := s.exp.scoreThoughts(ctx, s.g, unscored, s.sc); err != nil {
			return c.fault(ctx, s, err)
		}
	}
	sortByScore(s.g, roots)
	s.frontier = roots[:min(s.beamWidth, len(roots))]

	for iteration := 0; ; iteration++ {
		if reason, done := c.checkTermination(ctx, s); done {
			return c.conclude(s, reason, nil), nil
		}

		ictx, ispan := c.tracer.TraceIteration(ctx, iteration, len(s.frontier))
		recordIteration(ictx)

		result, err := c.iterate(ictx, s)
		ispan.End()
		if err != nil {
			return c.fault(ctx, s, err)
		}
		if result != nil {
			return result, nil
		}
	}
}

// iterate runs one full iteration. A nil, nil return means keep going.
func (c *Controller) iterate(ctx context.Context, s *session) (*Result, error) {
	if result, err := c.anticipatePhase(ctx, s); result != nil || err != nil {
		return result, err
	}
	if result, err := c.negotiatePhase(ctx, s); result != nil || err != nil {
		return result, err
	}
	if result, err := c.depthPhase(ctx, s); result != nil || err != nil {
		return result, err
	}
	return c.expandPhase(ctx, s)
}

func (c *Controller) anticipatePhase(ctx context.Context, s *session) (*Result, error) {
	pctx, span := c.tracer.TracePhase(ctx, string(PhaseAnticipate))
	defer span.End()

	failures := c.anticipator.Anticipate(pctx, DetectorInput{
		Graph:         s.g,
		Budget:        s.budget,
		History:       s.history,
		GoalScore:     c.cfg.Search.GoalScore,
		ExpansionCost: c.cfg.Negotiation.ExpansionCost,
	})
	for _, f := range failures {
		recordAnticipatedFailure(pctx, f.Mode)
		if f.Likelihood <= ActionableLikelihood {
			c.logger.Debug("anticipated failure below action threshold",
				slog.String("mode", f.Mode),
				slog.Float64("likelihood", f.Likelihood))
			continue
		}
		if !s.prevented[f.Mode] {
			s.prevented[f.Mode] = true
			c.prevent(s, f)
			continue
		}
		// Prevention already tried once; the caller decides now.
		directive, err := c.feedback.HandleAnticipatedFailure(pctx, f)
		if err != nil {
			c.logger.Warn("failure escalation errored, continuing",
				slog.String("mode", f.Mode),
				slog.String("error", err.Error()))
			continue
		}
		if directive == FailureAbort {
			return c.conclude(s, ReasonAborted, nil), nil
		}
	}
	return nil, nil
}

// prevent applies the built-in proactive adjustment for a failure mode.
func (c *Controller) prevent(s *session, f AnticipatedFailure) {
	switch f.Mode {
	case ModeBudgetExhaustion:
		if s.beamWidth > 1 {
			s.beamWidth /= 2
			if s.beamWidth < 1 {
				s.beamWidth = 1
			}
			c.logger.Info("narrowed beam to stretch remaining budget",
				slog.Int("beam_width", s.beamWidth))
		}
	case ModeCircularReasoning:
		seen := make(map[string]bool, len(s.frontier))
		deduped := s.frontier[:0]
		for _, t := range s.frontier {
			if seen[t.ContentHash()] {
				continue
			}
			seen[t.ContentHash()] = true
			deduped = append(deduped, t)
		}
		s.frontier = deduped
		c.logger.Info("deduplicated frontier", slog.Int("frontier_size", len(s.frontier)))
	case ModeQualityPlateau:
		refill := c.bestUnexpanded(s)
		if len(refill) > 0 {
			s.frontier = refill
			c.logger.Info("refilled frontier from unexpanded thoughts",
				slog.Int("frontier_size", len(s.frontier)))
		}
	default:
		c.logger.Info("no built-in prevention for failure mode", slog.String("mode", f.Mode))
	}
}

// bestUnexpanded returns the top-scoring unexpanded thoughts below the depth
// cap, up to the current beam width.
func (c *Controller) bestUnexpanded(s *session) []*graph.Thought {
	var pool []*graph.Thought
	for _, t := range s.g.AllThoughts() {
		if s.expanded[t.ID] || t.Depth() >= c.cfg.Search.MaxDepth {
			continue
		}
		if _, ok := s.g.Score(t.ID); !ok {
			continue
		}
		pool = append(pool, t)
	}
	sortByScore(s.g, pool)
	return pool[:min(s.beamWidth, len(pool))]
}

func (c *Controller) negotiatePhase(ctx context.Context, s *session) (*Result, error) {
	pctx, span := c.tracer.TracePhase(ctx, string(PhaseNegotiate))
	defer span.End()

	situation := c.negotiator.AssessSituation(s.g, s.budget)
	verdict := c.negotiator.Negotiate(situation, s.g)
	recordNegotiation(pctx, verdict.Outcome)

	switch verdict.Outcome {
	case OutcomeSufficient:
		return nil, nil

	case OutcomeRequestIncrease:
		fb, err := c.feedback.RequestBudgetIncrease(pctx, BudgetIncreaseRequest{
			Tokens:        verdict.RequestedTokens,
			Justification: verdict.Justification,
			Compromise:    verdict.Compromise,
		})
		if err != nil {
			c.logger.Warn("budget request errored, treating as denied",
				slog.String("error", err.Error()))
			fb = BudgetFeedback{Kind: BudgetDenied}
		}
		switch fb.Kind {
		case BudgetApproved:
			s.budget = s.budget.Add(fb.ApprovedTokens)
			s.sc = s.sc.WithBudget(s.budget)
			c.logger.Info("budget increase approved",
				slog.Int64("tokens", fb.ApprovedTokens),
				slog.Int64("remaining", s.budget.Remaining()))
			return nil, nil
		case BudgetAcceptCompromise:
			return c.conclude(s, ReasonCompleted, verdict.Compromise), nil
		default:
			return c.offerCompromise(pctx, s, verdict.Compromise)
		}

	case OutcomeProposeCompromise:
		return c.offerCompromise(pctx, s, verdict.Compromise)

	default:
		c.logger.Info("terminating on negotiator verdict", slog.String("reason", verdict.Reason))
		return c.conclude(s, ReasonTerminated, nil), nil
	}
}

// offerCompromise proposes a compromise to the caller, ending the session
// either way: accepted means completed, rejected means terminated.
func (c *Controller) offerCompromise(ctx context.Context, s *session, compromise *CompromiseSolution) (*Result, error) {
	if compromise == nil {
		return c.conclude(s, ReasonTerminated, nil), nil
	}
	accepted, err := c.feedback.ProposeCompromise(ctx, compromise)
	if err != nil {
		c.logger.Warn("compromise proposal errored, treating as rejected",
			slog.String("error", err.Error()))
		accepted = false
	}
	if accepted {
		return c.conclude(s, ReasonCompleted, compromise), nil
	}
	return c.conclude(s, ReasonTerminated, nil), nil
}

func (c *Controller) depthPhase(ctx context.Context, s *session) (*Result, error) {
	pctx, span := c.tracer.TracePhase(ctx, string(PhaseEvaluateDepth))
	defer span.End()

	depth := frontierDepth(s.frontier)
	decision, reason := s.policy.EvaluateDepth(depth, s.history)
	switch decision {
	case DepthContinue:
		return nil, nil

	case DepthStop:
		return c.conclude(s, ReasonMaxDepth, nil), nil

	case DepthRequestFeedback:
		fb, err := c.feedback.RequestDepthFeedback(pctx, DepthFeedbackRequest{
			Depth:     depth,
			SoftLimit: s.policy.SoftLimit(),
			HardLimit: s.policy.HardLimit(),
			Reason:    reason,
			History:   append([]float64(nil), s.history...),
		})
		if err != nil {
			c.logger.Warn("depth feedback errored, stopping",
				slog.String("error", err.Error()))
			return c.conclude(s, ReasonCompleted, nil), nil
		}
		switch fb.Kind {
		case DepthContinueDeeper:
			extend := fb.ExtendBy
			if extend < 1 {
				extend = 1
			}
			if err := s.policy.ExtendSoftLimit(s.policy.SoftLimit() + extend); err != nil {
				return nil, err
			}
			return nil, nil
		case DepthTryDifferentBranch:
			var branch []*graph.Thought
			for _, id := range fb.Branch {
				if t, ok := s.g.Get(id); ok {
					branch = append(branch, t)
				} else {
					c.logger.Warn("branch feedback named unknown thought",
						slog.String("thought_id", id))
				}
			}
			if len(branch) > 0 {
				s.frontier = branch
			}
			return nil, nil
		default:
			return c.conclude(s, ReasonCompleted, nil), nil
		}

	default:
		return nil, nil
	}
}

func (c *Controller) expandPhase(ctx context.Context, s *session) (*Result, error) {
	pctx, span := c.tracer.TracePhase(ctx, string(PhaseExpand))
	defer span.End()

	active := make([]*graph.Thought, 0, len(s.frontier))
	for _, t := range s.frontier {
		if t.Depth() < c.cfg.Search.MaxDepth {
			active = append(active, t)
		}
	}
	if allowance := c.cfg.Search.MaxExpansions - s.expansions; len(active) > allowance {
		active = active[:allowance]
	}
	if len(active) == 0 {
		s.frontier = nil
		return nil, nil
	}

	depth := frontierDepth(active)
	children, calls, err := s.exp.expandFrontier(pctx, s.g, active, s.sc.WithDepth(depth))
	for _, t := range active {
		s.expanded[t.ID] = true
	}
	s.expansions += calls
	s.budget = s.budget.Consume(int64(calls) * c.cfg.Negotiation.ExpansionCost)
	s.sc = s.sc.WithBudget(s.budget)
	recordExpansions(pctx, calls)
	if err != nil {
		return nil, err
	}

	if _, best, ok := s.g.BestThought(); ok {
		s.history = append(s.history, best)
	}

	_, sspan := c.tracer.TracePhase(ctx, string(PhaseSelect))
	s.frontier = children[:min(s.beamWidth, len(children))]
	sspan.End()
	return nil, nil
}

// checkTermination applies the session-level conditions in precedence order.
func (c *Controller) checkTermination(ctx context.Context, s *session) (TerminationReason, bool) {
	if _, best, ok := s.g.BestThought(); ok && best >= c.cfg.Search.GoalScore {
		return ReasonGoalReached, true
	}
	if s.expansions >= c.cfg.Search.MaxExpansions {
		return ReasonMaxExpansions, true
	}
	if len(s.frontier) > 0 && allAtDepth(s.frontier, c.cfg.Search.MaxDepth) {
		return ReasonMaxDepth, true
	}
	if ctx.Err() != nil {
		return ReasonTimeout, true
	}
	if len(s.frontier) == 0 {
		return ReasonCompleted, true
	}
	return "", false
}

func (c *Controller) conclude(s *session, reason TerminationReason, compromise *CompromiseSolution) *Result {
	result := buildResult(s.g, reason, s.expansions)
	if compromise != nil {
		result.Compromise = compromise
		result.Completed = true
	}
	return result
}

// fault translates an expansion error into a terminal result.
func (c *Controller) fault(ctx context.Context, s *session, err error) (*Result, error) {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return c.conclude(s, ReasonTimeout, nil), nil
	}
	if errors.Is(err, ErrToleranceExceeded) {
		c.logger.Error("aborting after repeated capability failures",
			slog.String("error", err.Error()))
		return c.conclude(s, ReasonAborted, nil), err
	}
	c.logger.Error("search fault", slog.String("error", err.Error()))
	return c.conclude(s, ReasonAborted, nil), err
}

func frontierDepth(frontier []*graph.Thought) int {
	depth := 0
	for _, t := range frontier {
		if t.Depth() > depth {
			depth = t.Depth()
		}
	}
	return depth
}
