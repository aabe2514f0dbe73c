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
	"sort"
	"sync"

	"github.com/seawardai/sounder/graph"
)

// Failure mode names produced by the built-in detectors.
const (
	ModeBudgetExhaustion  = "budget_exhaustion"
	ModeQualityPlateau    = "quality_plateau"
	ModeCircularReasoning = "circular_reasoning"
)

const (
	// surfaceLikelihood is the floor below which a prediction is noise.
	surfaceLikelihood = 0.3

	// ActionableLikelihood is the threshold above which the controller acts
	// on a prediction instead of merely reporting it.
	ActionableLikelihood = 0.7
)

// AnticipatedFailure is a prediction that the search is heading toward a
// known failure mode.
type AnticipatedFailure struct {
	// Mode names the failure mode.
	Mode string

	// Likelihood is the detector's estimate in [0,1].
	Likelihood float64

	// Prevention describes the proactive adjustment that avoids the failure.
	Prevention string

	// Mitigation describes the fallback once the failure lands.
	Mitigation string

	// ExpectedInExpansions estimates how many expansions away the failure
	// is. Zero means imminent or unknown.
	ExpectedInExpansions int
}

// DetectorInput is the read-only state a detector inspects.
type DetectorInput struct {
	Graph   *graph.Graph
	Budget  graph.Budget
	History []float64

	GoalScore     float64
	ExpansionCost int64
}

// Detector predicts one failure mode from the current search state.
//
// Thread Safety: Implementations must be safe for concurrent use.
type Detector interface {
	// Name returns the failure mode this detector predicts.
	Name() string

	// Detect returns a prediction; a likelihood at or below the surface
	// threshold means no concern.
	Detect(ctx context.Context, in DetectorInput) AnticipatedFailure
}

// FailureAnticipator runs a registry of detectors and reports the failure
// modes worth surfacing, most likely first.
//
// Thread Safety: Safe for concurrent use after registration completes.
type FailureAnticipator struct {
	mu        sync.RWMutex
	detectors map[string]Detector
}

// NewFailureAnticipator creates an anticipator with the three built-in
// detectors registered: budget exhaustion, quality plateau, and circular
// reasoning.
func NewFailureAnticipator() *FailureAnticipator {
	a := &FailureAnticipator{detectors: make(map[string]Detector)}
	a.Register(&budgetExhaustionDetector{})
	a.Register(&qualityPlateauDetector{})
	a.Register(&circularReasoningDetector{})
	return a
}

// Register adds or replaces a detector under its name.
func (a *FailureAnticipator) Register(d Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detectors[d.Name()] = d
}

// Anticipate runs every registered detector and returns the predictions
// above the surface threshold, sorted by descending likelihood (mode name
// breaks ties for determinism).
func (a *FailureAnticipator) Anticipate(ctx context.Context, in DetectorInput) []AnticipatedFailure {
	a.mu.RLock()
	detectors := make([]Detector, 0, len(a.detectors))
	for _, d := range a.detectors {
		detectors = append(detectors, d)
	}
	a.mu.RUnlock()

	var out []AnticipatedFailure
	for _, d := range detectors {
		f := d.Detect(ctx, in)
		if f.Likelihood > surfaceLikelihood {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Likelihood != out[j].Likelihood {
			return out[i].Likelihood > out[j].Likelihood
		}
		return out[i].Mode < out[j].Mode
	})
	return out
}

// budgetExhaustionDetector projects whether the budget will run out before
// the goal score is reachable at the observed improvement rate.
type budgetExhaustionDetector struct{}

func (budgetExhaustionDetector) Name() string { return ModeBudgetExhaustion }

func (budgetExhaustionDetector) Detect(ctx context.Context, in DetectorInput) AnticipatedFailure {
	f := AnticipatedFailure{
		Mode:       ModeBudgetExhaustion,
		Prevention: "reduce beam width to stretch the remaining budget",
		Mitigation: "negotiate a budget increase or accept a compromise solution",
	}

	nonRoot := in.Graph.NonRootCount()
	_, best, ok := in.Graph.BestThought()
	if nonRoot == 0 || !ok {
		// No trend yet; fall back to raw utilization pressure.
		f.Likelihood = in.Budget.Utilization() * 0.3
		return f
	}

	tokensPerThought := float64(in.Budget.Consumed) / float64(nonRoot)
	if tokensPerThought <= 0 {
		f.Likelihood = in.Budget.Utilization() * 0.3
		return f
	}

	gap := in.GoalScore - best
	if gap <= 0 {
		f.Likelihood = 0.1
		return f
	}

	minRoot, ok := in.Graph.MinRootScore()
	if !ok {
		f.Likelihood = in.Budget.Utilization() * 0.3
		return f
	}
	rate := (best - minRoot) / float64(nonRoot)
	if rate <= 0 {
		// Spending with no improvement: exhaustion tracks utilization.
		f.Likelihood = in.Budget.Utilization()
		return f
	}

	needed := gap / rate
	affordable := float64(in.Budget.Remaining()) / tokensPerThought
	if affordable >= needed {
		f.Likelihood = 0.1
		return f
	}
	f.Likelihood = clamp01((needed - affordable) / needed)
	f.ExpectedInExpansions = int(affordable)
	return f
}

// qualityPlateauDetector checks whether the best-score history has flattened.
type qualityPlateauDetector struct{}

func (qualityPlateauDetector) Name() string { return ModeQualityPlateau }

func (qualityPlateauDetector) Detect(ctx context.Context, in DetectorInput) AnticipatedFailure {
	f := AnticipatedFailure{
		Mode:       ModeQualityPlateau,
		Prevention: "refill the frontier from the best unexpanded thoughts",
		Mitigation: "stop and return the best thought found",
	}

	n := len(in.History)
	if n < 5 {
		f.Likelihood = 0.1
		return f
	}
	window := in.History[n-5:]
	improvement := window[4] - window[0]
	lo, hi := window[0], window[0]
	for _, v := range window[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	switch {
	case improvement < 0.01 && hi-lo < 0.02:
		f.Likelihood = 0.8
	case improvement < 0.02:
		f.Likelihood = 0.4
	default:
		f.Likelihood = 0.1
	}
	return f
}

// circularReasoningDetector measures content duplication across the graph.
type circularReasoningDetector struct{}

func (circularReasoningDetector) Name() string { return ModeCircularReasoning }

func (circularReasoningDetector) Detect(ctx context.Context, in DetectorInput) AnticipatedFailure {
	f := AnticipatedFailure{
		Mode:       ModeCircularReasoning,
		Prevention: "deduplicate the frontier by content",
		Mitigation: "backtrack to a different branch",
	}

	thoughts := in.Graph.AllThoughts()
	if len(thoughts) == 0 {
		f.Likelihood = 0
		return f
	}
	unique := make(map[string]struct{}, len(thoughts))
	for _, t := range thoughts {
		unique[t.ContentHash()] = struct{}{}
	}
	ratio := 1 - float64(len(unique))/float64(len(thoughts))
	switch {
	case ratio > 0.3:
		f.Likelihood = 0.7
	case ratio > 0.1:
		f.Likelihood = 0.3
	default:
		f.Likelihood = ratio
	}
	if f.Likelihood > 0 {
		f.Prevention = fmt.Sprintf("deduplicate the frontier by content (%.0f%% duplicated)", ratio*100)
	}
	return f
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
