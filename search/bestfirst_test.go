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
	"sync"
	"testing"
	"time"

	"github.com/seawardai/sounder/graph"
)

func bestFirstConfig() SearchConfig {
	cfg := DefaultSearchConfig()
	cfg.Timeout = 5 * time.Second
	cfg.GoalScore = 0.99
	return cfg
}

func TestBestFirstRequiresRoot(t *testing.T) {
	b, err := NewBestFirstSearch(NewMockGenerator(2), &MockEvaluator{Score: 0.5}, bestFirstConfig())
	if err != nil {
		t.Fatal(err)
	}
	_, err = b.Run(context.Background(), graph.New())
	if !errors.Is(err, ErrNoRoots) {
		t.Errorf("expected ErrNoRoots, got %v", err)
	}
}

func TestBestFirstExpandsHighestScoredFirst(t *testing.T) {
	var mu sync.Mutex
	var expandedOrder []string
	gen := &MockGenerator{Fn: func(parent *graph.Thought) []string {
		mu.Lock()
		expandedOrder = append(expandedOrder, parent.Content)
		mu.Unlock()
		return nil
	}}
	eval := &MockEvaluator{Scores: map[string]float64{"a": 0.3, "b": 0.7, "c": 0.5}}
	b, err := NewBestFirstSearch(gen, eval, bestFirstConfig())
	if err != nil {
		t.Fatal(err)
	}

	g := graph.New()
	g.Add(graph.NewThought("a"), "")
	g.Add(graph.NewThought("b"), "")
	g.Add(graph.NewThought("c"), "")

	result, err := b.Run(context.Background(), g)
	if err != nil {
		t.Fatal(err)
	}
	if result.Reason != ReasonCompleted {
		t.Errorf("reason = %s, want completed", result.Reason)
	}
	want := []string{"b", "c", "a"}
	if len(expandedOrder) != 3 {
		t.Fatalf("expanded %d thoughts, want 3", len(expandedOrder))
	}
	for i, content := range want {
		if expandedOrder[i] != content {
			t.Errorf("expansion %d = %q, want %q", i, expandedOrder[i], content)
		}
	}
}

func TestBestFirstJumpsBetweenBranches(t *testing.T) {
	// The second root's child outscores the first root, so the search should
	// come back to it before touching the weaker root.
	var mu sync.Mutex
	var order []string
	gen := &MockGenerator{Fn: func(parent *graph.Thought) []string {
		mu.Lock()
		order = append(order, parent.Content)
		mu.Unlock()
		if parent.Content == "promising" {
			return []string{"breakthrough"}
		}
		return nil
	}}
	eval := &MockEvaluator{Scores: map[string]float64{
		"weak": 0.4, "promising": 0.6, "breakthrough": 0.8,
	}}
	b, err := NewBestFirstSearch(gen, eval, bestFirstConfig())
	if err != nil {
		t.Fatal(err)
	}

	g := graph.New()
	g.Add(graph.NewThought("weak"), "")
	g.Add(graph.NewThought("promising"), "")

	if _, err := b.Run(context.Background(), g); err != nil {
		t.Fatal(err)
	}
	want := []string{"promising", "breakthrough", "weak"}
	if len(order) != len(want) {
		t.Fatalf("expanded %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expanded %v, want %v", order, want)
		}
	}
}

func TestBestFirstGoalReached(t *testing.T) {
	cfg := bestFirstConfig()
	cfg.GoalScore = 0.75
	gen := &MockGenerator{Fn: func(parent *graph.Thought) []string {
		return []string{parent.Content + "+"}
	}}
	eval := &MockEvaluator{Fn: func(th *graph.Thought) float64 {
		return 0.3 + 0.2*float64(th.Depth())
	}}
	b, err := NewBestFirstSearch(gen, eval, cfg)
	if err != nil {
		t.Fatal(err)
	}

	g := graph.New()
	g.Add(graph.NewThought("seed"), "")

	result, err := b.Run(context.Background(), g)
	if err != nil {
		t.Fatal(err)
	}
	if result.Reason != ReasonGoalReached {
		t.Errorf("reason = %s, want goal_reached", result.Reason)
	}
	// Depth 0 scores 0.3, depth 1 scores 0.5, depth 2 scores 0.7, depth 3
	// scores 0.9: three expansions reach the goal.
	if result.Expansions != 3 {
		t.Errorf("expansions = %d, want 3", result.Expansions)
	}
}

func TestBestFirstMaxDepthWhenPoolCapped(t *testing.T) {
	cfg := bestFirstConfig()
	cfg.MaxDepth = 1
	gen := NewMockGenerator(2)
	b, err := NewBestFirstSearch(gen, &MockEvaluator{Score: 0.5}, cfg)
	if err != nil {
		t.Fatal(err)
	}

	g := graph.New()
	g.Add(graph.NewThought("seed"), "")

	result, err := b.Run(context.Background(), g)
	if err != nil {
		t.Fatal(err)
	}
	// The root expands once; its children sit at the cap, unexpanded.
	if result.Reason != ReasonMaxDepth {
		t.Errorf("reason = %s, want max_depth", result.Reason)
	}
	if result.Expansions != 1 {
		t.Errorf("expansions = %d, want 1", result.Expansions)
	}
}

func TestBestFirstHonorsMaxExpansions(t *testing.T) {
	cfg := bestFirstConfig()
	cfg.MaxExpansions = 4
	b, err := NewBestFirstSearch(NewMockGenerator(2), &MockEvaluator{Score: 0.5}, cfg)
	if err != nil {
		t.Fatal(err)
	}

	g := graph.New()
	g.Add(graph.NewThought("seed"), "")

	result, err := b.Run(context.Background(), g)
	if err != nil {
		t.Fatal(err)
	}
	if result.Reason != ReasonMaxExpansions {
		t.Errorf("reason = %s, want max_expansions", result.Reason)
	}
	if result.Expansions != 4 {
		t.Errorf("expansions = %d, want exactly 4", result.Expansions)
	}
}

func TestBestFirstTimeoutOutranksCompleted(t *testing.T) {
	// The generator kills the session mid-run and produces nothing, so the
	// pool drains with the context already dead. The run must classify as
	// timeout, not completed: cancellation outranks natural exhaustion.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	gen := &MockGenerator{Fn: func(parent *graph.Thought) []string {
		cancel()
		return nil
	}}
	b, err := NewBestFirstSearch(gen, &MockEvaluator{Score: 0.5}, bestFirstConfig())
	if err != nil {
		t.Fatal(err)
	}

	g := graph.New()
	g.Add(graph.NewThought("seed"), "")

	result, err := b.Run(ctx, g)
	if err != nil {
		t.Fatal(err)
	}
	if result.Reason != ReasonTimeout {
		t.Errorf("reason = %s, want timeout with a dead context", result.Reason)
	}
}

func TestBestFirstMaxDepthOutranksTimeout(t *testing.T) {
	// Thoughts remain pooled at the depth cap when the context dies: the
	// depth classification comes first in the precedence order.
	cfg := bestFirstConfig()
	cfg.MaxDepth = 1
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	gen := &MockGenerator{Fn: func(parent *graph.Thought) []string {
		cancel()
		return []string{"leaf one", "leaf two"}
	}}
	b, err := NewBestFirstSearch(gen, &MockEvaluator{Score: 0.5}, cfg)
	if err != nil {
		t.Fatal(err)
	}

	g := graph.New()
	g.Add(graph.NewThought("seed"), "")

	result, err := b.Run(ctx, g)
	if err != nil {
		t.Fatal(err)
	}
	if result.Reason != ReasonMaxDepth {
		t.Errorf("reason = %s, want max_depth before the timeout check", result.Reason)
	}
}

func TestBestFirstDeterministicTieBreak(t *testing.T) {
	// Equal scores everywhere: ties must resolve by creation order, so two
	// identical runs expand in the same order.
	run := func() []string {
		var mu sync.Mutex
		var order []string
		gen := &MockGenerator{Fn: func(parent *graph.Thought) []string {
			mu.Lock()
			order = append(order, parent.Content)
			mu.Unlock()
			return nil
		}}
		b, err := NewBestFirstSearch(gen, &MockEvaluator{Score: 0.5}, bestFirstConfig())
		if err != nil {
			t.Fatal(err)
		}
		g := graph.New()
		g.Add(graph.NewThought("first"), "")
		g.Add(graph.NewThought("second"), "")
		g.Add(graph.NewThought("third"), "")
		if _, err := b.Run(context.Background(), g); err != nil {
			t.Fatal(err)
		}
		return order
	}

	a, bOrder := run(), run()
	if len(a) != len(bOrder) {
		t.Fatalf("runs disagree: %v vs %v", a, bOrder)
	}
	for i := range a {
		if a[i] != bOrder[i] {
			t.Fatalf("runs disagree at %d: %v vs %v", i, a, bOrder)
		}
	}
	if a[0] != "first" {
		t.Errorf("tie should go to the earliest-created thought, got %q", a[0])
	}
}
