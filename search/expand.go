// Copyright (C) 2026 Seaward AI (oss@seaward.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package search

import (
	"context"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/seawardai/sounder/graph"
)

// expander runs one expand-and-score step: generate children for every
// frontier thought, attach them to the graph, score them, and apply any
// grounding adjustment.
//
// Generation and scoring run concurrently per thought, but graph mutation is
// sequenced in frontier order so creation order (and hence tie-breaking) is
// deterministic regardless of goroutine scheduling.
type expander struct {
	gen       Generator
	eval      Evaluator
	grounder  Grounder
	adjust    GroundingAdjust
	tolerance *FailureTolerance
	limiter   *rate.Limiter
	logger    *slog.Logger
}

type generated struct {
	parent   *graph.Thought
	children []string
}

// expandFrontier expands every thought in the frontier.
//
// A generator failure counts as zero children and is recorded against the
// failure tolerance; an evaluator failure leaves a neutral zero score. Only a
// tripped tolerance (or a dead context) aborts the step.
//
// Outputs:
//   - []*graph.Thought: New thoughts, sorted by descending score.
//   - int: Generator calls made.
//   - error: Non-nil on context cancellation or tolerance breach.
func (e *expander) expandFrontier(ctx context.Context, g *graph.Graph, frontier []*graph.Thought, sc *Context) ([]*graph.Thought, int, error) {
	results := make([]generated, len(frontier))

	grp, gctx := errgroup.WithContext(ctx)
	for i, t := range frontier {
		grp.Go(func() error {
			if err := e.wait(gctx); err != nil {
				return err
			}
			children, err := e.gen.Generate(gctx, t, sc)
			if err != nil {
				e.logger.Warn("thought generation failed",
					slog.String("thought_id", t.ID),
					slog.String("error", err.Error()))
				if terr := e.tolerance.Record(&CapabilityError{Capability: "generator", ThoughtID: t.ID, Err: err}); terr != nil {
					return terr
				}
				recordCapabilityFailure(gctx, "generator")
				return nil
			}
			if terr := e.tolerance.Record(nil); terr != nil {
				return terr
			}
			results[i] = generated{parent: t, children: children}
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, len(frontier), err
	}

	// Attach sequentially in frontier order so sequence numbers are stable.
	var added []*graph.Thought
	for _, r := range results {
		if r.parent == nil {
			continue
		}
		for _, content := range r.children {
			t, err := g.Add(graph.NewThought(content), r.parent.ID)
			if err != nil {
				e.logger.Warn("attach thought failed",
					slog.String("parent_id", r.parent.ID),
					slog.String("error", err.Error()))
				continue
			}
			added = append(added, t)
		}
	}

	if err := e.scoreThoughts(ctx, g, added, sc); err != nil {
		return nil, len(frontier), err
	}

	sortByScore(g, added)
	return added, len(frontier), nil
}

// scoreThoughts evaluates and optionally grounds each thought concurrently,
// then writes scores back sequentially.
func (e *expander) scoreThoughts(ctx context.Context, g *graph.Graph, thoughts []*graph.Thought, sc *Context) error {
	type scored struct {
		score    float64
		grounded bool
		verdict  graph.Verification
	}
	results := make([]scored, len(thoughts))

	grp, gctx := errgroup.WithContext(ctx)
	for i, t := range thoughts {
		grp.Go(func() error {
			if err := e.wait(gctx); err != nil {
				return err
			}
			score, err := e.eval.Evaluate(gctx, t, sc)
			if err != nil {
				e.logger.Warn("thought evaluation failed",
					slog.String("thought_id", t.ID),
					slog.String("error", err.Error()))
				if terr := e.tolerance.Record(&CapabilityError{Capability: "evaluator", ThoughtID: t.ID, Err: err}); terr != nil {
					return terr
				}
				recordCapabilityFailure(gctx, "evaluator")
				results[i] = scored{score: 0}
				return nil
			}
			if terr := e.tolerance.Record(nil); terr != nil {
				return terr
			}
			score = clamp01(score)

			res := scored{score: score}
			if e.grounder != nil && e.grounder.CanGround(t) {
				gr, gerr := e.grounder.Ground(gctx, t, sc)
				if gerr != nil {
					e.logger.Warn("thought grounding failed",
						slog.String("thought_id", t.ID),
						slog.String("error", gerr.Error()))
					recordCapabilityFailure(gctx, "grounder")
				} else if gr != nil && gr.Grounded {
					res.grounded = true
					res.verdict = gr.Verified
					switch gr.Verified {
					case graph.VerifiedFalse:
						res.score = score * e.adjust.PenaltyFactor
					case graph.VerifiedTrue:
						res.score = score * e.adjust.BoostFactor
						if res.score > 1.0 {
							res.score = 1.0
						}
					}
				}
			}
			results[i] = res
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return err
	}

	for i, t := range thoughts {
		if err := g.SetScore(t.ID, results[i].score); err != nil {
			return err
		}
		if results[i].grounded {
			if err := g.SetGrounding(t.ID, true, results[i].verdict); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *expander) wait(ctx context.Context) error {
	if e.limiter == nil {
		return nil
	}
	return e.limiter.Wait(ctx)
}

// sortByScore orders thoughts by descending score; ties fall back to
// creation order so the result is deterministic.
func sortByScore(g *graph.Graph, thoughts []*graph.Thought) {
	sort.SliceStable(thoughts, func(i, j int) bool {
		si, _ := g.Score(thoughts[i].ID)
		sj, _ := g.Score(thoughts[j].ID)
		if si != sj {
			return si > sj
		}
		return thoughts[i].Seq() < thoughts[j].Seq()
	})
}
