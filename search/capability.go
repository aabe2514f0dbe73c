// Copyright (C) 2026 Seaward AI (oss@seaward.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package search

import (
	"context"

	"github.com/seawardai/sounder/graph"
)

// Generator produces candidate child contents for a thought.
//
// A failed call is treated as zero children, not a hard error; the search
// recovers locally and escalates only past the failure tolerance.
//
// Thread Safety: Implementations must be safe for concurrent use — all
// frontier members within one iteration may be expanded concurrently.
type Generator interface {
	// Generate returns a finite sequence of child contents for the thought.
	Generate(ctx context.Context, t *graph.Thought, sc *Context) ([]string, error)
}

// Evaluator scores a thought's quality.
//
// Thread Safety: Implementations must be safe for concurrent use.
type Evaluator interface {
	// Evaluate returns a score in [0,1].
	Evaluate(ctx context.Context, t *graph.Thought, sc *Context) (float64, error)
}

// GroundingResult is the outcome of verifying a thought against an
// authoritative external check.
type GroundingResult struct {
	// Grounded reports whether a check actually ran.
	Grounded bool
	// Verified is the tri-state verdict.
	Verified graph.Verification
	// Evidence describes what the check observed.
	Evidence string
	// Confidence is the checker's confidence in the verdict, in [0,1].
	Confidence float64
	// Cost is the token cost of the check.
	Cost int64
}

// Grounder verifies thoughts against an external ground truth (a sandbox, a
// test runner, a citation index). Optional: searches run ungrounded without one.
//
// Thread Safety: Implementations must be safe for concurrent use.
type Grounder interface {
	// CanGround reports whether this grounder applies to the thought.
	CanGround(t *graph.Thought) bool
	// Ground runs the external check.
	Ground(ctx context.Context, t *graph.Thought, sc *Context) (*GroundingResult, error)
}

// DepthFeedbackKind classifies a depth-feedback response.
type DepthFeedbackKind int

const (
	// DepthContinueDeeper extends the soft depth limit.
	DepthContinueDeeper DepthFeedbackKind = iota
	// DepthStopAndReturn ends the search with the best thought found.
	DepthStopAndReturn
	// DepthTryDifferentBranch substitutes an alternative frontier.
	DepthTryDifferentBranch
)

// DepthFeedbackRequest describes why the depth policy paused the search.
type DepthFeedbackRequest struct {
	Depth     int
	SoftLimit int
	HardLimit int
	Reason    string
	History   []float64
}

// DepthFeedback is the caller's resolution of a depth-feedback request.
type DepthFeedback struct {
	Kind DepthFeedbackKind
	// ExtendBy is how far to raise the soft limit (DepthContinueDeeper).
	ExtendBy int
	// Branch holds replacement frontier thought ids (DepthTryDifferentBranch).
	Branch []string
}

// BudgetFeedbackKind classifies a budget-increase response.
type BudgetFeedbackKind int

const (
	// BudgetApproved grants additional tokens.
	BudgetApproved BudgetFeedbackKind = iota
	// BudgetAcceptCompromise accepts the offered compromise instead.
	BudgetAcceptCompromise
	// BudgetDenied refuses the increase.
	BudgetDenied
)

// BudgetIncreaseRequest asks the caller for more tokens.
type BudgetIncreaseRequest struct {
	Tokens        int64
	Justification string
	// Compromise is the best fallback available if the increase is denied.
	// May be nil.
	Compromise *CompromiseSolution
}

// BudgetFeedback is the caller's resolution of a budget-increase request.
type BudgetFeedback struct {
	Kind BudgetFeedbackKind
	// ApprovedTokens is the granted amount (BudgetApproved).
	ApprovedTokens int64
}

// FailureDirective tells the controller how to react to an anticipated
// failure it could not prevent.
type FailureDirective int

const (
	// FailureContinue carries on searching.
	FailureContinue FailureDirective = iota
	// FailureAbort ends the session with an aborted result.
	FailureAbort
)

// FeedbackHandler is the external decision authority the search escalates
// to. Calls into it are unbounded suspension points: the core imposes no
// timeout on them.
type FeedbackHandler interface {
	RequestDepthFeedback(ctx context.Context, req DepthFeedbackRequest) (DepthFeedback, error)
	RequestBudgetIncrease(ctx context.Context, req BudgetIncreaseRequest) (BudgetFeedback, error)
	ProposeCompromise(ctx context.Context, c *CompromiseSolution) (bool, error)
	HandleAnticipatedFailure(ctx context.Context, f AnticipatedFailure) (FailureDirective, error)
}

// Context carries the session information capabilities may consult: the task,
// the current budget view, the frontier depth, and arbitrary named extras.
//
// It is structurally immutable. Every With* method returns a copy, deep-
// copying the extras map, so no caller can mutate shared state through a
// retained reference.
type Context struct {
	// Task is the original task description.
	Task string
	// Budget is the budget view at the time the context was built.
	Budget graph.Budget
	// Depth is the frontier depth at the time the context was built.
	Depth int

	extras map[string]any
}

// NewContext creates a capability context for a task.
func NewContext(task string) *Context {
	return &Context{Task: task}
}

func (c *Context) clone() *Context {
	cp := &Context{Task: c.Task, Budget: c.Budget, Depth: c.Depth}
	if len(c.extras) > 0 {
		cp.extras = make(map[string]any, len(c.extras))
		for k, v := range c.extras {
			cp.extras[k] = v
		}
	}
	return cp
}

// With returns a copy of the context with one extra value attached.
func (c *Context) With(key string, value any) *Context {
	cp := c.clone()
	if cp.extras == nil {
		cp.extras = make(map[string]any, 1)
	}
	cp.extras[key] = value
	return cp
}

// WithBudget returns a copy with an updated budget view.
func (c *Context) WithBudget(b graph.Budget) *Context {
	cp := c.clone()
	cp.Budget = b
	return cp
}

// WithDepth returns a copy with an updated frontier depth.
func (c *Context) WithDepth(depth int) *Context {
	cp := c.clone()
	cp.Depth = depth
	return cp
}

// Value looks up an extra attached with With.
func (c *Context) Value(key string) (any, bool) {
	v, ok := c.extras[key]
	return v, ok
}
