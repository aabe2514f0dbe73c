// Copyright (C) 2026 Seaward AI (oss@seaward.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package search

import (
	"math"
	"strings"
	"testing"

	"github.com/seawardai/sounder/graph"
)

// addScored attaches a thought with a score, failing the test on error.
func addScored(t *testing.T, g *graph.Graph, content, parentID string, score float64) *graph.Thought {
	t.Helper()
	th, err := g.Add(graph.NewThought(content), parentID)
	if err != nil {
		t.Fatalf("add %q: %v", content, err)
	}
	if err := g.SetScore(th.ID, score); err != nil {
		t.Fatalf("score %q: %v", content, err)
	}
	return th
}

func TestNegotiateSufficientWhenQualityMet(t *testing.T) {
	n := NewBudgetNegotiator(DefaultNegotiationConfig())
	g := graph.New()
	addScored(t, g, "root", "", 0.85)

	// Zero remaining budget must not matter once quality is acceptable.
	b := graph.NewBudget(1000).Consume(1000)
	res := n.Negotiate(n.AssessSituation(g, b), g)
	if res.Outcome != OutcomeSufficient {
		t.Errorf("outcome = %v, want sufficient despite exhausted budget", res.Outcome)
	}
}

func TestNegotiateSufficientWhileBudgetComfortable(t *testing.T) {
	n := NewBudgetNegotiator(DefaultNegotiationConfig())
	g := graph.New()
	addScored(t, g, "root", "", 0.2)

	b := graph.NewBudget(10000)
	res := n.Negotiate(n.AssessSituation(g, b), g)
	if res.Outcome != OutcomeSufficient {
		t.Errorf("outcome = %v, want sufficient with budget headroom", res.Outcome)
	}
}

func TestNegotiateRequestsIncreaseOnImprovingTrend(t *testing.T) {
	n := NewBudgetNegotiator(NegotiationConfig{AcceptableScore: 0.8, CompromiseScore: 0.6, ExpansionCost: 500})
	g := graph.New()
	root := addScored(t, g, "root", "", 0.2)
	addScored(t, g, "step one", root.ID, 0.5)
	addScored(t, g, "step two", root.ID, 0.7)

	b := graph.NewBudget(2000).Consume(2000)
	s := n.AssessSituation(g, b)
	if !s.HasEstimate {
		t.Fatal("expected a token estimate from the improving trend")
	}
	if s.NonRootCount != 2 {
		t.Errorf("non-root count = %d, want 2", s.NonRootCount)
	}

	res := n.Negotiate(s, g)
	if res.Outcome != OutcomeRequestIncrease {
		t.Fatalf("outcome = %v, want request_increase", res.Outcome)
	}
	// Gap 0.1 at rate 0.25/expansion needs one expansion, 500 tokens.
	if res.RequestedTokens != 500 {
		t.Errorf("requested tokens = %d, want 500", res.RequestedTokens)
	}
	if math.Abs(res.Confidence-0.4) > 1e-9 {
		t.Errorf("confidence = %.2f, want 0.40 from two samples", res.Confidence)
	}
	if res.Justification == "" {
		t.Error("expected a justification on the request")
	}
	if res.Compromise == nil {
		t.Error("expected a fallback compromise alongside the request")
	}
}

func TestNegotiateProposesCompromiseWithoutTrend(t *testing.T) {
	n := NewBudgetNegotiator(NegotiationConfig{AcceptableScore: 0.8, CompromiseScore: 0.6, ExpansionCost: 500})
	g := graph.New()
	addScored(t, g, "root", "", 0.65)

	b := graph.NewBudget(500).Consume(500)
	res := n.Negotiate(n.AssessSituation(g, b), g)
	if res.Outcome != OutcomeProposeCompromise {
		t.Fatalf("outcome = %v, want propose_compromise", res.Outcome)
	}
	if res.Compromise == nil {
		t.Fatal("missing compromise")
	}
	if res.Compromise.Score != 0.65 {
		t.Errorf("compromise score = %.2f, want 0.65", res.Compromise.Score)
	}
	if len(res.Compromise.Path) != 1 {
		t.Errorf("compromise path length = %d, want 1", len(res.Compromise.Path))
	}
}

func TestNegotiateTerminatesBelowCompromiseFloor(t *testing.T) {
	n := NewBudgetNegotiator(NegotiationConfig{AcceptableScore: 0.8, CompromiseScore: 0.6, ExpansionCost: 500})
	g := graph.New()
	addScored(t, g, "root", "", 0.4)

	b := graph.NewBudget(500).Consume(500)
	res := n.Negotiate(n.AssessSituation(g, b), g)
	if res.Outcome != OutcomeTerminate {
		t.Errorf("outcome = %v, want terminate", res.Outcome)
	}
}

func TestBuildCompromiseTradeoffTiers(t *testing.T) {
	n := NewBudgetNegotiator(NegotiationConfig{AcceptableScore: 0.9, CompromiseScore: 0.5, ExpansionCost: 500})

	cases := []struct {
		score float64
		want  string
	}{
		{0.65, "significant"},
		{0.75, "moderate"},
		{0.85, "slight"},
	}
	for _, tc := range cases {
		g := graph.New()
		addScored(t, g, "root", "", tc.score)
		c := n.BuildCompromise(g)
		if c == nil {
			t.Fatalf("score %.2f: expected a compromise", tc.score)
		}
		if !strings.Contains(c.Tradeoff, tc.want) {
			t.Errorf("score %.2f: tradeoff %q does not mention %q", tc.score, c.Tradeoff, tc.want)
		}
	}
}

func TestBuildCompromiseNilBelowFloor(t *testing.T) {
	n := NewBudgetNegotiator(DefaultNegotiationConfig())
	g := graph.New()
	addScored(t, g, "root", "", 0.3)
	if c := n.BuildCompromise(g); c != nil {
		t.Errorf("expected no compromise below the floor, got score %.2f", c.Score)
	}
}

func TestAssessSituationEmptyGraph(t *testing.T) {
	n := NewBudgetNegotiator(DefaultNegotiationConfig())
	g := graph.New()

	s := n.AssessSituation(g, graph.NewBudget(1000))
	if s.HasEstimate {
		t.Error("expected no estimate on an empty graph")
	}
	if s.Gap != n.cfg.AcceptableScore {
		t.Errorf("gap = %.2f, want full threshold %.2f", s.Gap, n.cfg.AcceptableScore)
	}
}
