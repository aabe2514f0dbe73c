// Copyright (C) 2026 Seaward AI (oss@seaward.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package search

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/seawardai/sounder/graph"
)

// MockGenerator is a test implementation of Generator.
//
// Thread Safety: Safe for concurrent use.
type MockGenerator struct {
	// ChildrenPerThought is how many child contents to produce.
	ChildrenPerThought int

	// Err to return (if set).
	Err error

	// Fn allows custom generation. If nil, default children are produced.
	Fn func(parent *graph.Thought) []string

	calls int64
}

// NewMockGenerator creates a mock generator producing n children per thought.
func NewMockGenerator(n int) *MockGenerator {
	return &MockGenerator{ChildrenPerThought: n}
}

// Generate implements Generator for testing.
func (m *MockGenerator) Generate(ctx context.Context, parent *graph.Thought, sc *Context) ([]string, error) {
	atomic.AddInt64(&m.calls, 1)
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Fn != nil {
		return m.Fn(parent), nil
	}
	children := make([]string, m.ChildrenPerThought)
	for i := range children {
		children[i] = fmt.Sprintf("%s / option %d", parent.Content, i+1)
	}
	return children, nil
}

// Calls returns how many times Generate was invoked.
func (m *MockGenerator) Calls() int64 {
	return atomic.LoadInt64(&m.calls)
}

// MockEvaluator is a test implementation of Evaluator.
//
// Thread Safety: Safe for concurrent use.
type MockEvaluator struct {
	// Score is the fixed score to return when Fn and Scores are unset.
	Score float64

	// Scores maps thought content to a score, overriding Score.
	Scores map[string]float64

	// Fn allows custom scoring, overriding everything else.
	Fn func(t *graph.Thought) float64

	// Err to return (if set).
	Err error
}

// Evaluate implements Evaluator for testing.
func (m *MockEvaluator) Evaluate(ctx context.Context, t *graph.Thought, sc *Context) (float64, error) {
	if m.Err != nil {
		return 0, m.Err
	}
	if m.Fn != nil {
		return m.Fn(t), nil
	}
	if s, ok := m.Scores[t.Content]; ok {
		return s, nil
	}
	return m.Score, nil
}

// MockGrounder is a test implementation of Grounder.
//
// Thread Safety: Safe for concurrent use.
type MockGrounder struct {
	// CanFn decides applicability; nil grounds everything.
	CanFn func(t *graph.Thought) bool

	// Verdict is the verification state to return.
	Verdict graph.Verification

	// Confidence reported with the verdict.
	Confidence float64

	// Cost reported with the verdict.
	Cost int64

	// Err to return (if set).
	Err error
}

// CanGround implements Grounder for testing.
func (m *MockGrounder) CanGround(t *graph.Thought) bool {
	if m.CanFn == nil {
		return true
	}
	return m.CanFn(t)
}

// Ground implements Grounder for testing.
func (m *MockGrounder) Ground(ctx context.Context, t *graph.Thought, sc *Context) (*GroundingResult, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return &GroundingResult{
		Grounded:   true,
		Verified:   m.Verdict,
		Evidence:   "mock verdict",
		Confidence: m.Confidence,
		Cost:       m.Cost,
	}, nil
}

// ScriptedFeedback is a FeedbackHandler whose answers are fixed up front.
//
// Thread Safety: Safe for concurrent use.
type ScriptedFeedback struct {
	mu sync.Mutex

	// DepthResponses are consumed in order; the last one repeats.
	DepthResponses []DepthFeedback

	// BudgetResponses are consumed in order; the last one repeats.
	BudgetResponses []BudgetFeedback

	// AcceptCompromise is the answer to every compromise proposal.
	AcceptCompromise bool

	// Directive is the answer to every anticipated-failure escalation.
	Directive FailureDirective

	depthCalls      int
	budgetCalls     int
	compromiseCalls int
	failureCalls    int
}

// RequestDepthFeedback implements FeedbackHandler.
func (s *ScriptedFeedback) RequestDepthFeedback(ctx context.Context, req DepthFeedbackRequest) (DepthFeedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.depthCalls++
	if len(s.DepthResponses) == 0 {
		return DepthFeedback{Kind: DepthStopAndReturn}, nil
	}
	i := min(s.depthCalls-1, len(s.DepthResponses)-1)
	return s.DepthResponses[i], nil
}

// RequestBudgetIncrease implements FeedbackHandler.
func (s *ScriptedFeedback) RequestBudgetIncrease(ctx context.Context, req BudgetIncreaseRequest) (BudgetFeedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.budgetCalls++
	if len(s.BudgetResponses) == 0 {
		return BudgetFeedback{Kind: BudgetDenied}, nil
	}
	i := min(s.budgetCalls-1, len(s.BudgetResponses)-1)
	return s.BudgetResponses[i], nil
}

// ProposeCompromise implements FeedbackHandler.
func (s *ScriptedFeedback) ProposeCompromise(ctx context.Context, c *CompromiseSolution) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.compromiseCalls++
	return s.AcceptCompromise, nil
}

// HandleAnticipatedFailure implements FeedbackHandler.
func (s *ScriptedFeedback) HandleAnticipatedFailure(ctx context.Context, f AnticipatedFailure) (FailureDirective, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failureCalls++
	return s.Directive, nil
}

// DepthCalls returns how many depth-feedback requests were made.
func (s *ScriptedFeedback) DepthCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.depthCalls
}

// BudgetCalls returns how many budget-increase requests were made.
func (s *ScriptedFeedback) BudgetCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.budgetCalls
}

// CompromiseCalls returns how many compromise proposals were made.
func (s *ScriptedFeedback) CompromiseCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.compromiseCalls
}

// FailureCalls returns how many failure escalations were made.
func (s *ScriptedFeedback) FailureCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failureCalls
}
