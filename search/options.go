// Copyright (C) 2026 Seaward AI (oss@seaward.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package search

import (
	"log/slog"

	"golang.org/x/time/rate"
)

// searchOptions collects the optional collaborators shared by the search
// strategies.
type searchOptions struct {
	grounder  Grounder
	logger    *slog.Logger
	tracer    *SearchTracer
	limiter   *rate.Limiter
	tolerance *FailureTolerance
	adjust    GroundingAdjust
}

func defaultSearchOptions() searchOptions {
	logger := slog.Default()
	return searchOptions{
		logger:    logger,
		tracer:    NewSearchTracer(logger, ObservabilityConfig{}),
		tolerance: NewFailureTolerance(DefaultToleranceConfig()),
		adjust:    DefaultGroundingAdjust(),
	}
}

// SearchOption configures a search strategy.
type SearchOption func(*searchOptions)

// WithGrounder attaches a grounder; scores are adjusted by its verdicts.
func WithGrounder(g Grounder) SearchOption {
	return func(o *searchOptions) { o.grounder = g }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) SearchOption {
	return func(o *searchOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithTracer sets the search tracer.
func WithTracer(t *SearchTracer) SearchOption {
	return func(o *searchOptions) {
		if t != nil {
			o.tracer = t
		}
	}
}

// WithRateLimit caps capability calls at rps per second with the given burst.
func WithRateLimit(rps float64, burst int) SearchOption {
	return func(o *searchOptions) { o.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// WithTolerance sets the capability failure tolerance.
func WithTolerance(cfg ToleranceConfig) SearchOption {
	return func(o *searchOptions) { o.tolerance = NewFailureTolerance(cfg) }
}

// WithGroundingAdjust overrides the grounding score multipliers.
func WithGroundingAdjust(adjust GroundingAdjust) SearchOption {
	return func(o *searchOptions) { o.adjust = adjust }
}

func (o searchOptions) newExpander(gen Generator, eval Evaluator) *expander {
	return &expander{
		gen:       gen,
		eval:      eval,
		grounder:  o.grounder,
		adjust:    o.adjust,
		tolerance: o.tolerance,
		limiter:   o.limiter,
		logger:    o.logger,
	}
}
