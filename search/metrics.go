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
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	metricsOnce sync.Once

	iterationsCounter          metric.Int64Counter
	expansionsCounter          metric.Int64Counter
	capabilityFailuresCounter  metric.Int64Counter
	anticipatedFailuresCounter metric.Int64Counter
	negotiationCounter         metric.Int64Counter
	terminationCounter         metric.Int64Counter
	bestScoreHistogram         metric.Float64Histogram
)

func initMetrics() {
	metricsOnce.Do(func() {
		meter := otel.Meter("sounder.search")
		var err error

		iterationsCounter, err = meter.Int64Counter("sounder.search.iterations",
			metric.WithDescription("Controller iterations executed"))
		if err != nil {
			slog.Warn("failed to create iterations counter", "error", err)
		}

		expansionsCounter, err = meter.Int64Counter("sounder.search.expansions",
			metric.WithDescription("Generator expansions performed"))
		if err != nil {
			slog.Warn("failed to create expansions counter", "error", err)
		}

		capabilityFailuresCounter, err = meter.Int64Counter("sounder.search.capability_failures",
			metric.WithDescription("Capability call failures by capability"))
		if err != nil {
			slog.Warn("failed to create capability failures counter", "error", err)
		}

		anticipatedFailuresCounter, err = meter.Int64Counter("sounder.search.anticipated_failures",
			metric.WithDescription("Anticipated failures surfaced by mode"))
		if err != nil {
			slog.Warn("failed to create anticipated failures counter", "error", err)
		}

		negotiationCounter, err = meter.Int64Counter("sounder.search.negotiations",
			metric.WithDescription("Budget negotiation verdicts by outcome"))
		if err != nil {
			slog.Warn("failed to create negotiation counter", "error", err)
		}

		terminationCounter, err = meter.Int64Counter("sounder.search.terminations",
			metric.WithDescription("Search terminations by reason"))
		if err != nil {
			slog.Warn("failed to create termination counter", "error", err)
		}

		bestScoreHistogram, err = meter.Float64Histogram("sounder.search.best_score",
			metric.WithDescription("Best score at termination"))
		if err != nil {
			slog.Warn("failed to create best score histogram", "error", err)
		}
	})
}

func recordIteration(ctx context.Context) {
	initMetrics()
	if iterationsCounter != nil {
		iterationsCounter.Add(ctx, 1)
	}
}

func recordExpansions(ctx context.Context, n int) {
	initMetrics()
	if expansionsCounter != nil {
		expansionsCounter.Add(ctx, int64(n))
	}
}

func recordCapabilityFailure(ctx context.Context, capability string) {
	initMetrics()
	if capabilityFailuresCounter != nil {
		capabilityFailuresCounter.Add(ctx, 1,
			metric.WithAttributes(attribute.String("capability", capability)))
	}
}

func recordAnticipatedFailure(ctx context.Context, mode string) {
	initMetrics()
	if anticipatedFailuresCounter != nil {
		anticipatedFailuresCounter.Add(ctx, 1,
			metric.WithAttributes(attribute.String("mode", mode)))
	}
}

func recordNegotiation(ctx context.Context, outcome NegotiationOutcome) {
	initMetrics()
	if negotiationCounter != nil {
		negotiationCounter.Add(ctx, 1,
			metric.WithAttributes(attribute.String("outcome", string(outcome))))
	}
}

func recordTermination(ctx context.Context, reason TerminationReason, bestScore float64) {
	initMetrics()
	if terminationCounter != nil {
		terminationCounter.Add(ctx, 1,
			metric.WithAttributes(attribute.String("reason", string(reason))))
	}
	if bestScoreHistogram != nil {
		bestScoreHistogram.Record(ctx, bestScore)
	}
}
