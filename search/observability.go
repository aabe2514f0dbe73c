// Copyright (C) 2026 Seaward AI (oss@seaward.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package search

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const tracerName = "sounder.search"

// SearchTracer wraps OpenTelemetry tracing for search runs. When tracing is
// disabled every span is a no-op, so call sites never branch.
//
// Thread Safety: Safe for concurrent use.
type SearchTracer struct {
	tracer  trace.Tracer
	logger  *slog.Logger
	enabled bool
}

// NewSearchTracer creates a tracer honoring the observability configuration.
func NewSearchTracer(logger *slog.Logger, cfg ObservabilityConfig) *SearchTracer {
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchTracer{
		tracer:  otel.Tracer(tracerName),
		logger:  logger,
		enabled: cfg.TracingEnabled,
	}
}

// StartRun opens the root span for a search run.
func (t *SearchTracer) StartRun(ctx context.Context, strategy string, cfg SearchConfig) (context.Context, trace.Span) {
	if !t.enabled {
		return ctx, noop.Span{}
	}
	return t.tracer.Start(ctx, "search.run",
		trace.WithAttributes(
			attribute.String("search.strategy", strategy),
			attribute.Int("search.max_depth", cfg.MaxDepth),
			attribute.Int("search.beam_width", cfg.BeamWidth),
			attribute.Int("search.max_expansions", cfg.MaxExpansions),
			attribute.Float64("search.goal_score", cfg.GoalScore),
		))
}

// EndRun closes the root span with the run outcome.
func (t *SearchTracer) EndRun(span trace.Span, result *Result, err error) {
	if !t.enabled {
		return
	}
	if result != nil {
		span.SetAttributes(
			attribute.String("search.reason", string(result.Reason)),
			attribute.Float64("search.best_score", result.BestScore),
			attribute.Int("search.expansions", result.Expansions),
			attribute.Int("search.max_depth_reached", result.MaxDepthReached),
		)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		t.logger.Debug("search run ended with error", slog.String("error", err.Error()))
	}
	span.End()
}

// TraceIteration opens a span for one controller iteration.
func (t *SearchTracer) TraceIteration(ctx context.Context, iteration, frontierSize int) (context.Context, trace.Span) {
	if !t.enabled {
		return ctx, noop.Span{}
	}
	return t.tracer.Start(ctx, "search.iteration",
		trace.WithAttributes(
			attribute.Int("search.iteration", iteration),
			attribute.Int("search.frontier_size", frontierSize),
		))
}

// TracePhase opens a span for one phase within an iteration.
func (t *SearchTracer) TracePhase(ctx context.Context, phase string) (context.Context, trace.Span) {
	if !t.enabled {
		return ctx, noop.Span{}
	}
	return t.tracer.Start(ctx, "search.phase."+phase)
}
