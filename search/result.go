// Copyright (C) 2026 Seaward AI (oss@seaward.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package search

import (
	"fmt"
	"strings"

	"github.com/seawardai/sounder/graph"
)

// TerminationReason classifies why a search loop stopped.
type TerminationReason string

const (
	ReasonGoalReached   TerminationReason = "goal_reached"
	ReasonMaxExpansions TerminationReason = "max_expansions"
	ReasonMaxDepth      TerminationReason = "max_depth"
	ReasonTimeout       TerminationReason = "timeout"
	ReasonCompleted     TerminationReason = "completed"
	ReasonTerminated    TerminationReason = "terminated"
	ReasonAborted       TerminationReason = "aborted"
)

// Result is the outcome of a search run.
type Result struct {
	// BestPath is the root-first path to the best thought ever created,
	// including thoughts pruned from the active frontier.
	BestPath []*graph.Thought

	// BestScore is the score of the last thought on BestPath.
	BestScore float64

	// Completed reports whether the search ran to a natural end.
	Completed bool

	// GoalReached reports whether any thought reached the goal score.
	GoalReached bool

	// Reason classifies the termination.
	Reason TerminationReason

	// Compromise holds an accepted compromise solution, if any.
	Compromise *CompromiseSolution

	// Expansions counts generator calls made.
	Expansions int

	// MaxDepthReached is the deepest level any thought reached.
	MaxDepthReached int
}

// buildResult assembles a Result by scanning every thought ever created: a
// pruned branch may hold the highest score seen.
func buildResult(g *graph.Graph, reason TerminationReason, expansions int) *Result {
	r := &Result{
		Reason:          reason,
		Expansions:      expansions,
		MaxDepthReached: g.MaxDepth(),
		Completed:       reason == ReasonCompleted || reason == ReasonGoalReached,
		GoalReached:     reason == ReasonGoalReached,
	}
	best, score, ok := g.BestThought()
	if !ok {
		return r
	}
	r.BestScore = score
	if path, err := g.PathFromRoot(best.ID); err == nil {
		r.BestPath = path
	}
	return r
}

// Format returns a human-readable rendering of the result.
func (r *Result) Format() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Termination: %s (completed=%v, goal=%v)\n", r.Reason, r.Completed, r.GoalReached))
	sb.WriteString(fmt.Sprintf("Expansions: %d, Max Depth: %d, Best Score: %.2f\n", r.Expansions, r.MaxDepthReached, r.BestScore))
	if r.Compromise != nil {
		sb.WriteString(fmt.Sprintf("Compromise: %s\n", r.Compromise.Tradeoff))
	}
	if len(r.BestPath) > 0 {
		sb.WriteString("Best path:\n")
		for i, t := range r.BestPath {
			sb.WriteString(fmt.Sprintf("%s└── [%d] %s\n", strings.Repeat("    ", i), t.Depth(), t.Content))
		}
	}
	return sb.String()
}
