// Copyright (C) 2026 Seaward AI (oss@seaward.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/seawardai/sounder/graph"
	"github.com/seawardai/sounder/search"
)

var (
	budgetTokens  int64
	allowIncrease bool
	branching     int
)

var solveCmd = &cobra.Command{
	Use:   "solve [task]",
	Short: "Run an adaptive search over a task",
	Long: `Runs the adaptive controller against a deterministic demo generator and
evaluator, printing the best reasoning path found. Useful for exploring how
the budget, depth, and beam adaptations behave under different configs.`,
	Args: cobra.ExactArgs(1),
	RunE: runSolve,
}

func init() {
	solveCmd.Flags().Int64Var(&budgetTokens, "budget", 10000, "token budget for the session")
	solveCmd.Flags().BoolVar(&allowIncrease, "allow-increase", true, "approve one budget increase request")
	solveCmd.Flags().IntVar(&branching, "branching", 3, "demo generator children per thought")
	rootCmd.AddCommand(solveCmd)
}

func runSolve(cmd *cobra.Command, args []string) error {
	cfg, err := search.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	shutdown, err := setupObservability(cmd.Context(), cfg.Observability)
	if err != nil {
		return fmt.Errorf("setup observability: %w", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			slog.Warn("observability shutdown failed", "error", err)
		}
	}()

	logger := slog.Default()
	controller, err := search.NewController(
		&demoGenerator{branching: branching},
		&demoEvaluator{},
		&cliFeedback{logger: logger, allowIncrease: allowIncrease},
		cfg,
		search.WithControllerLogger(logger),
		search.WithControllerTracer(search.NewSearchTracer(logger, cfg.Observability)),
	)
	if err != nil {
		return fmt.Errorf("build controller: %w", err)
	}

	result, budget, err := controller.Run(cmd.Context(), args[0], graph.NewBudget(budgetTokens))
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	fmt.Fprint(os.Stdout, result.Format())
	fmt.Fprintf(os.Stdout, "Budget: %s\n", budget)
	return nil
}

// setupObservability wires stdout exporters for traces and metrics when
// enabled, returning a combined shutdown function.
func setupObservability(ctx context.Context, cfg search.ObservabilityConfig) (func(context.Context) error, error) {
	var shutdowns []func(context.Context) error

	if cfg.TracingEnabled {
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, err
		}
		tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp))
		otel.SetTracerProvider(tp)
		shutdowns = append(shutdowns, tp.Shutdown)
	}

	if cfg.MetricsEnabled {
		exp, err := stdoutmetric.New()
		if err != nil {
			return nil, err
		}
		mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)))
		otel.SetMeterProvider(mp)
		shutdowns = append(shutdowns, mp.Shutdown)
	}

	return func(ctx context.Context) error {
		var firstErr error
		for _, fn := range shutdowns {
			if err := fn(ctx); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}, nil
}

// demoGenerator produces deterministic refinement candidates so runs are
// reproducible without a model behind them.
type demoGenerator struct {
	branching int
}

func (d *demoGenerator) Generate(ctx context.Context, t *graph.Thought, sc *search.Context) ([]string, error) {
	base := t.Content
	if i := strings.Index(base, " :: "); i >= 0 {
		base = base[:i]
	}
	children := make([]string, d.branching)
	for i := range children {
		children[i] = fmt.Sprintf("%s :: step %d.%d", base, t.Depth()+1, i+1)
	}
	return children, nil
}

// demoEvaluator scores thoughts from a content hash plus a depth bonus, so
// deeper refinement tends to score higher but siblings still differ.
type demoEvaluator struct{}

func (demoEvaluator) Evaluate(ctx context.Context, t *graph.Thought, sc *search.Context) (float64, error) {
	h := fnv.New32a()
	h.Write([]byte(t.Content))
	jitter := float64(h.Sum32()%1000) / 5000.0
	score := 0.25 + 0.12*float64(t.Depth()) + jitter
	if score > 1 {
		score = 1
	}
	return score, nil
}

// cliFeedback answers escalations with fixed, logged policies: at most one
// budget increase, compromises accepted, depth pauses resolved by stopping.
type cliFeedback struct {
	logger        *slog.Logger
	allowIncrease bool
	granted       bool
}

func (f *cliFeedback) RequestDepthFeedback(ctx context.Context, req search.DepthFeedbackRequest) (search.DepthFeedback, error) {
	f.logger.Info("depth feedback requested",
		slog.Int("depth", req.Depth),
		slog.String("reason", req.Reason))
	return search.DepthFeedback{Kind: search.DepthStopAndReturn}, nil
}

func (f *cliFeedback) RequestBudgetIncrease(ctx context.Context, req search.BudgetIncreaseRequest) (search.BudgetFeedback, error) {
	f.logger.Info("budget increase requested",
		slog.Int64("tokens", req.Tokens),
		slog.String("justification", req.Justification))
	if f.allowIncrease && !f.granted {
		f.granted = true
		return search.BudgetFeedback{Kind: search.BudgetApproved, ApprovedTokens: req.Tokens}, nil
	}
	return search.BudgetFeedback{Kind: search.BudgetDenied}, nil
}

func (f *cliFeedback) ProposeCompromise(ctx context.Context, c *search.CompromiseSolution) (bool, error) {
	f.logger.Info("compromise proposed",
		slog.Float64("score", c.Score),
		slog.String("tradeoff", c.Tradeoff))
	return true, nil
}

func (f *cliFeedback) HandleAnticipatedFailure(ctx context.Context, fail search.AnticipatedFailure) (search.FailureDirective, error) {
	f.logger.Warn("anticipated failure",
		slog.String("mode", fail.Mode),
		slog.Float64("likelihood", fail.Likelihood),
		slog.String("mitigation", fail.Mitigation))
	return search.FailureContinue, nil
}
