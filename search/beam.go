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

	"github.com/seawardai/sounder/graph"
)

// BeamSearch explores the thought graph level by level, keeping only the
// top-scoring BeamWidth thoughts in the active frontier after each level.
//
// Thread Safety: A BeamSearch value is safe for concurrent use; each Run
// operates on its own graph and local state.
type BeamSearch struct {
	cfg    SearchConfig
	exp    *expander
	tracer *SearchTracer
	logger *slog.Logger
}

// NewBeamSearch creates a beam search over the given capabilities.
//
// Inputs:
//   - gen: Child-content generator. Required.
//   - eval: Thought scorer. Required.
//   - cfg: Search bounds.
//   - opts: Optional grounder, logger, tracer, rate limit, tolerance.
//
// Outputs:
//   - *BeamSearch: The configured strategy.
//   - error: Non-nil if cfg is invalid or a capability is missing.
func NewBeamSearch(gen Generator, eval Evaluator, cfg SearchConfig, opts ...SearchOption) (*BeamSearch, error) {
	if gen == nil || eval == nil {
		return nil, fmt.Errorf("beam search requires a generator and an evaluator")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("beam search config: %w", err)
	}
	o := defaultSearchOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &BeamSearch{
		cfg:    cfg,
		exp:    o.newExpander(gen, eval),
		tracer: o.tracer,
		logger: o.logger,
	}, nil
}

// Run searches the graph until a termination condition fires.
//
// The graph must already hold at least one root thought. Unscored roots are
// scored before the first level. The returned result always carries the best
// path found, whatever the termination reason.
func (b *BeamSearch) Run(ctx context.Context, g *graph.Graph) (*Result, error) {
	roots := g.Roots()
	if len(roots) == 0 {
		return nil, ErrNoRoots
	}

	if b.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.cfg.Timeout)
		defer cancel()
	}

	ctx, span := b.tracer.StartRun(ctx, "beam", b.cfg)
	result, err := b.run(ctx, g)
	b.tracer.EndRun(span, result, err)
	if result != nil {
		recordTermination(ctx, result.Reason, result.BestScore)
	}
	return result, err
}

func (b *BeamSearch) run(ctx context.Context, g *graph.Graph) (*Result, error) {
	sc := NewContext("")

	roots := g.Roots()
	if err := b.scoreUnscored(ctx, g, roots, sc); err != nil {
		return b.finish(ctx, g, 0, err)
	}

	sortByScore(g, roots)
	frontier := roots[:min(b.cfg.BeamWidth, len(roots))]
	expansions := 0

	for {
		if reason, done := b.checkTermination(ctx, g, frontier, expansions); done {
			return buildResult(g, reason, expansions), nil
		}

		active := make([]*graph.Thought, 0, len(frontier))
		for _, t := range frontier {
			if t.Depth() < b.cfg.MaxDepth {
				active = append(active, t)
			}
		}
		if allowance := b.cfg.MaxExpansions - expansions; len(active) > allowance {
			active = active[:allowance]
		}

		children, calls, err := b.exp.expandFrontier(ctx, g, active, sc.WithDepth(frontierDepth(active)))
		expansions += calls
		recordExpansions(ctx, calls)
		if err != nil {
			return b.finish(ctx, g, expansions, err)
		}

		frontier = children[:min(b.cfg.BeamWidth, len(children))]
	}
}

// checkTermination applies the termination conditions in precedence order:
// goal reached, expansion cap, depth cap, timeout, frontier exhausted.
func (b *BeamSearch) checkTermination(ctx context.Context, g *graph.Graph, frontier []*graph.Thought, expansions int) (TerminationReason, bool) {
	if _, best, ok := g.BestThought(); ok && best >= b.cfg.GoalScore {
		return ReasonGoalReached, true
	}
	if expansions >= b.cfg.MaxExpansions {
		return ReasonMaxExpansions, true
	}
	if len(frontier) > 0 && allAtDepth(frontier, b.cfg.MaxDepth) {
		return ReasonMaxDepth, true
	}
	if ctx.Err() != nil {
		return ReasonTimeout, true
	}
	if len(frontier) == 0 {
		return ReasonCompleted, true
	}
	return "", false
}

// finish translates an expansion error into a best-effort result. A dead
// context means timeout with whatever was found; anything else surfaces.
func (b *BeamSearch) finish(ctx context.Context, g *graph.Graph, expansions int, err error) (*Result, error) {
	if err == nil {
		return buildResult(g, ReasonCompleted, expansions), nil
	}
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return buildResult(g, ReasonTimeout, expansions), nil
	}
	b.logger.Error("beam search aborted", slog.String("error", err.Error()))
	return buildResult(g, ReasonAborted, expansions), err
}

func (b *BeamSearch) scoreUnscored(ctx context.Context, g *graph.Graph, thoughts []*graph.Thought, sc *Context) error {
	var unscored []*graph.Thought
	for _, t := range thoughts {
		if _, ok := g.Score(t.ID); !ok {
			unscored = append(unscored, t)
		}
	}
	if len(unscored) == 0 {
		return nil
	}
	return b.exp.scoreThoughts(ctx, g, unscored, sc)
}

func allAtDepth(thoughts []*graph.Thought, maxDepth int) bool {
	for _, t := range thoughts {
		if t.Depth() < maxDepth {
			return false
		}
	}
	return true
}
