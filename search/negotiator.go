// Copyright (C) 2026 Seaward AI (oss@seaward.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package search

import (
	"fmt"
	"math"

	"github.com/seawardai/sounder/graph"
)

// BudgetSituation is a read-only snapshot of the budget/quality state the
// negotiator reasons over.
type BudgetSituation struct {
	Remaining   int64
	Consumed    int64
	Total       int64
	Utilization float64

	// BestScore is the best score seen so far.
	BestScore float64

	// Gap is how far BestScore falls short of the acceptable score.
	Gap float64

	// EstimatedTokens is the projected cost of closing the gap at the
	// observed improvement rate. Valid only when HasEstimate is true.
	EstimatedTokens int64
	HasEstimate     bool

	// NonRootCount counts thoughts produced by expansion, the sample size
	// behind the estimate.
	NonRootCount int
}

// NegotiationOutcome classifies the negotiator's verdict.
type NegotiationOutcome string

const (
	// OutcomeSufficient means the search can proceed as-is.
	OutcomeSufficient NegotiationOutcome = "sufficient"
	// OutcomeRequestIncrease means more tokens would plausibly close the gap.
	OutcomeRequestIncrease NegotiationOutcome = "request_increase"
	// OutcomeProposeCompromise offers the best available partial solution.
	OutcomeProposeCompromise NegotiationOutcome = "propose_compromise"
	// OutcomeTerminate means nothing useful can be salvaged.
	OutcomeTerminate NegotiationOutcome = "terminate"
)

// CompromiseSolution is a below-threshold but still useful solution offered
// when the budget cannot carry the search to the acceptable score.
type CompromiseSolution struct {
	// Thought is the best-scoring thought available.
	Thought *graph.Thought

	// Score is the thought's current score.
	Score float64

	// Path is the root-first path to the thought.
	Path []*graph.Thought

	// Gap is the shortfall against the acceptable score.
	Gap float64

	// Tradeoff describes what accepting this solution gives up.
	Tradeoff string
}

// NegotiationResult is the negotiator's full verdict.
type NegotiationResult struct {
	Outcome NegotiationOutcome
	Reason  string

	// RequestedTokens is the increase to ask for (OutcomeRequestIncrease).
	RequestedTokens int64

	// Justification explains the request in caller-facing terms.
	Justification string

	// Confidence is how sure the negotiator is that the requested tokens
	// would close the gap, in [0,1].
	Confidence float64

	// Compromise is the fallback offer, when one exists.
	Compromise *CompromiseSolution
}

// BudgetNegotiator decides, when tokens run low, whether to push on, ask for
// more, offer a compromise, or give up. It never mutates the budget: it only
// recommends, and the controller (or caller) acts.
//
// Thread Safety: Safe for concurrent use; the negotiator holds no mutable state.
type BudgetNegotiator struct {
	cfg NegotiationConfig
}

// NewBudgetNegotiator creates a negotiator from configuration.
func NewBudgetNegotiator(cfg NegotiationConfig) *BudgetNegotiator {
	return &BudgetNegotiator{cfg: cfg}
}

// AssessSituation snapshots the budget/quality state.
//
// The token estimate extrapolates the observed score improvement per
// expansion; with no scored non-root thoughts or a non-positive trend there
// is no estimate.
func (n *BudgetNegotiator) AssessSituation(g *graph.Graph, b graph.Budget) BudgetSituation {
	s := BudgetSituation{
		Remaining:   b.Remaining(),
		Consumed:    b.Consumed,
		Total:       b.Total,
		Utilization: b.Utilization(),
	}

	best, score, ok := g.BestThought()
	if !ok || best == nil {
		s.Gap = n.cfg.AcceptableScore
		return s
	}
	s.BestScore = score
	s.Gap = math.Max(0, n.cfg.AcceptableScore-score)
	s.NonRootCount = g.NonRootCount()

	if s.NonRootCount == 0 || s.Gap == 0 {
		return s
	}

	minRoot, ok := g.MinRootScore()
	if !ok {
		return s
	}
	rate := (score - minRoot) / float64(s.NonRootCount)
	if rate <= 0 {
		return s
	}
	expansionsNeeded := math.Ceil(s.Gap / rate)
	s.EstimatedTokens = int64(expansionsNeeded) * n.cfg.ExpansionCost
	s.HasEstimate = true
	return s
}

// Negotiate produces a verdict for the given situation.
//
// Decision order: quality already acceptable, then budget still comfortable,
// then a plausible increase request, then a compromise offer, then terminate.
func (n *BudgetNegotiator) Negotiate(s BudgetSituation, g *graph.Graph) NegotiationResult {
	if s.BestScore >= n.cfg.AcceptableScore {
		return NegotiationResult{
			Outcome: OutcomeSufficient,
			Reason:  fmt.Sprintf("best score %.2f meets acceptable threshold %.2f", s.BestScore, n.cfg.AcceptableScore),
		}
	}

	if s.Remaining > n.cfg.ExpansionCost {
		return NegotiationResult{
			Outcome: OutcomeSufficient,
			Reason:  fmt.Sprintf("%d tokens remaining covers at least one more expansion", s.Remaining),
		}
	}

	if s.HasEstimate {
		additional := s.EstimatedTokens - s.Remaining
		if additional < 0 {
			additional = 0
		}
		if additional < s.Total/2 {
			confidence := 0.3 + 0.05*float64(s.NonRootCount)
			if confidence > 0.9 {
				confidence = 0.9
			}
			return NegotiationResult{
				Outcome:         OutcomeRequestIncrease,
				Reason:          "projected cost of reaching the acceptable score is modest",
				RequestedTokens: additional,
				Confidence:      confidence,
				Justification: fmt.Sprintf(
					"best score %.2f is %.2f short of the %.2f threshold at %.0f%% budget utilization; the observed improvement rate projects ~%d more tokens to close the gap (confidence %.2f)",
					s.BestScore, s.Gap, n.cfg.AcceptableScore, s.Utilization*100, additional, confidence),
				Compromise: n.BuildCompromise(g),
			}
		}
	}

	if c := n.BuildCompromise(g); c != nil {
		return NegotiationResult{
			Outcome:    OutcomeProposeCompromise,
			Reason:     fmt.Sprintf("best score %.2f is below threshold but above the %.2f compromise floor", c.Score, n.cfg.CompromiseScore),
			Compromise: c,
		}
	}

	return NegotiationResult{
		Outcome: OutcomeTerminate,
		Reason:  fmt.Sprintf("budget exhausted with best score %.2f below the %.2f compromise floor", s.BestScore, n.cfg.CompromiseScore),
	}
}

// BuildCompromise assembles a compromise offer from the best thought, or nil
// when even the best thought sits below the compromise floor.
func (n *BudgetNegotiator) BuildCompromise(g *graph.Graph) *CompromiseSolution {
	best, score, ok := g.BestThought()
	if !ok || score < n.cfg.CompromiseScore {
		return nil
	}
	path, err := g.PathFromRoot(best.ID)
	if err != nil {
		return nil
	}
	gap := math.Max(0, n.cfg.AcceptableScore-score)
	var tradeoff string
	switch {
	case gap > 0.2:
		tradeoff = fmt.Sprintf("significant quality shortfall: %.2f below the %.2f threshold", gap, n.cfg.AcceptableScore)
	case gap > 0.1:
		tradeoff = fmt.Sprintf("moderate quality shortfall: %.2f below the %.2f threshold", gap, n.cfg.AcceptableScore)
	default:
		tradeoff = fmt.Sprintf("slight quality shortfall: %.2f below the %.2f threshold", gap, n.cfg.AcceptableScore)
	}
	return &CompromiseSolution{
		Thought:  best,
		Score:    score,
		Path:     path,
		Gap:      gap,
		Tradeoff: tradeoff,
	}
}
