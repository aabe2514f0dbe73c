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

// BestFirstSearch always expands the single highest-scoring unexpanded
// thought, wherever it sits in the graph. It jumps between branches freely,
// unlike beam search's level discipline.
//
// Thread Safety: A BestFirstSearch value is safe for concurrent use; each
// Run operates on its own graph and local state.
type BestFirstSearch struct {
	cfg    SearchConfig
	exp    *expander
	tracer *SearchTracer
	logger *slog.Logger
}

// NewBestFirstSearch creates a best-first search over the given capabilities.
func NewBestFirstSearch(gen Generator, eval Evaluator, cfg SearchConfig, opts ...SearchOption) (*BestFirstSearch, error) {
	if gen == nil || eval == nil {
		return nil, fmt.Errorf("best-first search requires a generator and an evaluator")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("best-first search config: %w", err)
	}
	o := defaultSearchOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &BestFirstSearch{
		cfg:    cfg,
		exp:    o.newExpander(gen, eval),
		tracer: o.tracer,
		logger: o.logger,
	}, nil
}

// Run searches the graph until a termination condition fires.
//
// The graph must already hold at least one root thought. Unscored roots are
// scored before selection begins.
func (b *BestFirstSearch) Run(ctx context.Context, g *graph.Graph) (*Result, error) {
	roots := g.Roots()
	if len(roots) == 0 {
		return nil, ErrNoRoots
	}

	if b.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.cfg.Timeout)
		defer cancel()
	}

	ctx, span := b.tracer.StartRun(ctx, "best_first", b.cfg)
	result, err := b.run(ctx, g)
	b.tracer.EndRun(span, result, err)
	if result != nil {
		recordTermination(ctx, result.Reason, result.BestScore)
	}
	return result, err
}

func (b *BestFirstSearch) run(ctx context.Context, g *graph.Graph) (*Result, error) {
	sc := NewContext("")

	var unscored []*graph.Thought
	for _, t := range g.Roots() {
		if _, ok := g.Score(t.ID); !ok {
			unscored = append(unscored, t)
		}
	}
	if len(unscored) > 0 {
		if err := b.exp.scoreThoughts(ctx, g, unscored, sc); err != nil {
			return b.finish(ctx, g, 0, err)
		}
	}

	expanded := make(map[string]bool)
	expansions := 0

	for {
		if _, best, ok := g.BestThought(); ok && best >= b.cfg.GoalScore {
			return buildResult(g, ReasonGoalReached, expansions), nil
		}
		if expansions >= b.cfg.MaxExpansions {
			return buildResult(g, ReasonMaxExpansions, expansions), nil
		}

		next, pooled := b.selectNext(g, expanded)
		if next == nil && pooled {
			// Unexpanded thoughts remain, but all sit at the depth cap.
			return buildResult(g, ReasonMaxDepth, expansions), nil
		}
		if ctx.Err() != nil {
			return buildResult(g, ReasonTimeout, expansions), nil
		}
		if next == nil {
			return buildResult(g, ReasonCompleted, expansions), nil
		}

		_, calls, err := b.exp.expandFrontier(ctx, g, []*graph.Thought{next}, sc.WithDepth(next.Depth()))
		expanded[next.ID] = true
		expansions += calls
		recordExpansions(ctx, calls)
		if err != nil {
			return b.finish(ctx, g, expansions, err)
		}
	}
}

// selectNext returns the highest-scoring unexpanded thought below the depth
// cap; ties go to the earliest-created thought. The second return reports
// whether any unexpanded thoughts exist at all (even at the cap).
func (b *BestFirstSearch) selectNext(g *graph.Graph, expanded map[string]bool) (*graph.Thought, bool) {
	var best *graph.Thought
	var bestScore float64
	pooled := false

	for _, t := range g.AllThoughts() {
		if expanded[t.ID] {
			continue
		}
		score, ok := g.Score(t.ID)
		if !ok {
			continue
		}
		pooled = true
		if t.Depth() >= b.cfg.MaxDepth {
			continue
		}
		if best == nil || score > bestScore {
			best = t
			bestScore = score
		}
	}
	return best, pooled
}

func (b *BestFirstSearch) finish(ctx context.Context, g *graph.Graph, expansions int, err error) (*Result, error) {
	if err == nil {
		return buildResult(g, ReasonCompleted, expansions), nil
	}
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return buildResult(g, ReasonTimeout, expansions), nil
	}
	b.logger.Error("best-first search aborted", slog.String("error", err.Error()))
	return buildResult(g, ReasonAborted, expansions), err
}
