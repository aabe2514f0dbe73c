// Copyright (C) 2026 Seaward AI (oss@seaward.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package search

import (
	"context"
	"math"
	"testing"

	"github.com/seawardai/sounder/graph"
)

func TestPlateauDetectorFlatHistory(t *testing.T) {
	d := qualityPlateauDetector{}
	in := DetectorInput{History: []float64{0.5, 0.5, 0.5, 0.5, 0.5}}

	f := d.Detect(context.Background(), in)
	if f.Likelihood != 0.8 {
		t.Errorf("likelihood = %.2f, want 0.80 for a flat window", f.Likelihood)
	}
	if f.Mode != ModeQualityPlateau {
		t.Errorf("mode = %q", f.Mode)
	}
}

func TestPlateauDetectorSlowImprovement(t *testing.T) {
	d := qualityPlateauDetector{}
	in := DetectorInput{History: []float64{0.50, 0.505, 0.51, 0.512, 0.515}}

	f := d.Detect(context.Background(), in)
	if f.Likelihood != 0.4 {
		t.Errorf("likelihood = %.2f, want 0.40 for slow improvement", f.Likelihood)
	}
}

func TestPlateauDetectorShortHistory(t *testing.T) {
	d := qualityPlateauDetector{}
	in := DetectorInput{History: []float64{0.5, 0.5}}

	if f := d.Detect(context.Background(), in); f.Likelihood != 0.1 {
		t.Errorf("likelihood = %.2f, want 0.10 with too little history", f.Likelihood)
	}
}

func TestPlateauDetectorHealthyImprovement(t *testing.T) {
	d := qualityPlateauDetector{}
	in := DetectorInput{History: []float64{0.3, 0.4, 0.5, 0.6, 0.7}}

	if f := d.Detect(context.Background(), in); f.Likelihood != 0.1 {
		t.Errorf("likelihood = %.2f, want 0.10 while improving", f.Likelihood)
	}
}

func TestCircularDetectorDuplicationRatios(t *testing.T) {
	d := circularReasoningDetector{}

	// 5 thoughts, 3 unique contents: ratio 0.4 crosses the 0.3 tier.
	g := graph.New()
	root, _ := g.Add(graph.NewThought("start"), "")
	g.Add(graph.NewThought("idea"), root.ID)
	g.Add(graph.NewThought("idea"), root.ID)
	g.Add(graph.NewThought("other"), root.ID)
	g.Add(graph.NewThought("other"), root.ID)

	f := d.Detect(context.Background(), DetectorInput{Graph: g})
	if f.Likelihood != 0.7 {
		t.Errorf("likelihood = %.2f, want 0.70 at heavy duplication", f.Likelihood)
	}
}

func TestCircularDetectorAllUnique(t *testing.T) {
	d := circularReasoningDetector{}
	g := graph.New()
	root, _ := g.Add(graph.NewThought("start"), "")
	g.Add(graph.NewThought("one"), root.ID)
	g.Add(graph.NewThought("two"), root.ID)

	f := d.Detect(context.Background(), DetectorInput{Graph: g})
	if f.Likelihood != 0 {
		t.Errorf("likelihood = %.2f, want 0 with no duplication", f.Likelihood)
	}
}

func TestBudgetDetectorFallsBackToUtilization(t *testing.T) {
	d := budgetExhaustionDetector{}
	g := graph.New()
	root, _ := g.Add(graph.NewThought("start"), "")
	_ = root

	// No scored non-root thoughts: likelihood is utilization-scaled.
	in := DetectorInput{
		Graph:     g,
		Budget:    graph.NewBudget(1000).Consume(500),
		GoalScore: 0.9,
	}
	f := d.Detect(context.Background(), in)
	if math.Abs(f.Likelihood-0.15) > 1e-9 {
		t.Errorf("likelihood = %.2f, want 0.15 (utilization 0.5 x 0.3)", f.Likelihood)
	}
}

func TestBudgetDetectorProjectsShortfall(t *testing.T) {
	d := budgetExhaustionDetector{}
	g := graph.New()
	root, _ := g.Add(graph.NewThought("start"), "")
	g.SetScore(root.ID, 0.2)
	c1, _ := g.Add(graph.NewThought("a"), root.ID)
	g.SetScore(c1.ID, 0.3)
	c2, _ := g.Add(graph.NewThought("b"), root.ID)
	g.SetScore(c2.ID, 0.4)

	// Rate 0.1/thought at 450 tokens/thought; gap 0.5 needs 5 more thoughts
	// (2250 tokens) but only 100 tokens remain.
	in := DetectorInput{
		Graph:     g,
		Budget:    graph.NewBudget(1000).Consume(900),
		GoalScore: 0.9,
	}
	f := d.Detect(context.Background(), in)
	if f.Likelihood < 0.7 {
		t.Errorf("likelihood = %.2f, want a high projection of exhaustion", f.Likelihood)
	}
}

func TestBudgetDetectorCalmWhenCovered(t *testing.T) {
	d := budgetExhaustionDetector{}
	g := graph.New()
	root, _ := g.Add(graph.NewThought("start"), "")
	g.SetScore(root.ID, 0.2)
	c1, _ := g.Add(graph.NewThought("a"), root.ID)
	g.SetScore(c1.ID, 0.6)

	in := DetectorInput{
		Graph:     g,
		Budget:    graph.NewBudget(100000).Consume(500),
		GoalScore: 0.9,
	}
	f := d.Detect(context.Background(), in)
	if f.Likelihood != 0.1 {
		t.Errorf("likelihood = %.2f, want 0.10 when the budget covers the gap", f.Likelihood)
	}
}

// fixedDetector reports a constant likelihood, for registry tests.
type fixedDetector struct {
	name       string
	likelihood float64
}

func (d fixedDetector) Name() string { return d.name }
func (d fixedDetector) Detect(ctx context.Context, in DetectorInput) AnticipatedFailure {
	return AnticipatedFailure{Mode: d.name, Likelihood: d.likelihood}
}

func TestAnticipateFiltersAndSorts(t *testing.T) {
	a := &FailureAnticipator{detectors: make(map[string]Detector)}
	a.Register(fixedDetector{"low", 0.2})
	a.Register(fixedDetector{"mid", 0.5})
	a.Register(fixedDetector{"high", 0.9})
	a.Register(fixedDetector{"edge", 0.3})

	out := a.Anticipate(context.Background(), DetectorInput{Graph: graph.New()})
	if len(out) != 2 {
		t.Fatalf("got %d predictions, want 2 above the surface threshold", len(out))
	}
	if out[0].Mode != "high" || out[1].Mode != "mid" {
		t.Errorf("order = [%s %s], want [high mid]", out[0].Mode, out[1].Mode)
	}
}

func TestAnticipateTieBreaksByMode(t *testing.T) {
	a := &FailureAnticipator{detectors: make(map[string]Detector)}
	a.Register(fixedDetector{"zeta", 0.5})
	a.Register(fixedDetector{"alpha", 0.5})

	out := a.Anticipate(context.Background(), DetectorInput{Graph: graph.New()})
	if len(out) != 2 || out[0].Mode != "alpha" {
		t.Fatalf("expected deterministic alpha-first ordering, got %+v", out)
	}
}

func TestDefaultDetectorsRegistered(t *testing.T) {
	a := NewFailureAnticipator()
	for _, mode := range []string{ModeBudgetExhaustion, ModeQualityPlateau, ModeCircularReasoning} {
		if _, ok := a.detectors[mode]; !ok {
			t.Errorf("missing built-in detector %q", mode)
		}
	}
}
