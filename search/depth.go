// Copyright (C) 2026 Seaward AI (oss@seaward.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package search

import (
	"fmt"
	"sync"
)

// stagnationVariance is the score spread below which a trailing window
// counts as stagnant.
const stagnationVariance = 0.01

// DepthDecision is the depth policy's verdict for one iteration.
type DepthDecision int

const (
	// DepthContinue keeps expanding.
	DepthContinue DepthDecision = iota
	// DepthStop ends the search at the hard limit.
	DepthStop
	// DepthRequestFeedback pauses for an external decision.
	DepthRequestFeedback
	// DepthBacktrack substitutes an alternative frontier.
	DepthBacktrack
)

// String returns a human-readable decision name.
func (d DepthDecision) String() string {
	switch d {
	case DepthContinue:
		return "continue"
	case DepthStop:
		return "stop"
	case DepthRequestFeedback:
		return "request_feedback"
	case DepthBacktrack:
		return "backtrack"
	default:
		return "unknown"
	}
}

// DepthPolicy decides, from the score-history trend, whether going deeper is
// still worth it. The soft limit may only be extended upward, via explicit
// feedback.
//
// Thread Safety: Safe for concurrent use.
type DepthPolicy struct {
	mu               sync.Mutex
	softLimit        int
	hardLimit        int
	minProgressRate  float64
	stagnationWindow int
}

// NewDepthPolicy creates a depth policy from configuration.
func NewDepthPolicy(cfg DepthPolicyConfig) *DepthPolicy {
	return &DepthPolicy{
		softLimit:        cfg.SoftLimit,
		hardLimit:        cfg.HardLimit,
		minProgressRate:  cfg.MinProgressRate,
		stagnationWindow: cfg.StagnationWindow,
	}
}

// SoftLimit returns the current soft depth limit.
func (p *DepthPolicy) SoftLimit() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.softLimit
}

// HardLimit returns the hard depth limit.
func (p *DepthPolicy) HardLimit() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hardLimit
}

// EvaluateDepth decides whether the search should continue past the current
// depth given the best-score history (one entry per iteration).
//
// Precedence: hard limit stop, then progress-slowing feedback, then
// stagnation feedback, then continue.
//
// Outputs:
//   - DepthDecision: The verdict.
//   - string: A reason phrase for feedback requests and stops.
func (p *DepthPolicy) EvaluateDepth(depth int, history []float64) (DepthDecision, string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if depth >= p.hardLimit {
		return DepthStop, "hard depth limit reached"
	}

	if depth >= p.softLimit {
		if n := len(history); n >= 2 {
			if history[n-1]-history[n-2] < p.minProgressRate {
				return DepthRequestFeedback, "progress slowing"
			}
		}
		if n := len(history); n >= p.stagnationWindow {
			window := history[n-p.stagnationWindow:]
			lo, hi := window[0], window[0]
			for _, v := range window[1:] {
				if v < lo {
					lo = v
				}
				if v > hi {
					hi = v
				}
			}
			if hi-lo < stagnationVariance {
				return DepthRequestFeedback, "stagnating"
			}
		}
	}

	return DepthContinue, ""
}

// ExtendSoftLimit raises the soft limit. Lowering it is rejected: feedback
// may only buy more depth, never retract already-granted depth.
func (p *DepthPolicy) ExtendSoftLimit(limit int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if limit < p.softLimit {
		return fmt.Errorf("extend soft limit to %d from %d: %w", limit, p.softLimit, ErrSoftLimitRegression)
	}
	if limit > p.hardLimit {
		limit = p.hardLimit
	}
	p.softLimit = limit
	return nil
}
