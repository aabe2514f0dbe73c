// Copyright (C) 2026 Seaward AI (oss@seaward.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package search

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// SearchConfig bounds a single search run. Immutable after validation.
type SearchConfig struct {
	// MaxDepth is the deepest level thoughts may reach.
	MaxDepth int `json:"max_depth" yaml:"max_depth"`

	// BeamWidth is how many thoughts stay in the active frontier per level.
	BeamWidth int `json:"beam_width" yaml:"beam_width"`

	// MaxExpansions caps cumulative generator calls.
	MaxExpansions int `json:"max_expansions" yaml:"max_expansions"`

	// GoalScore ends the search as soon as any thought reaches it.
	GoalScore float64 `json:"goal_score" yaml:"goal_score"`

	// Timeout is the wall-clock bound for the whole run.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// DefaultSearchConfig returns sensible defaults.
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		MaxDepth:      5,
		BeamWidth:     3,
		MaxExpansions: 50,
		GoalScore:     0.9,
		Timeout:       60 * time.Second,
	}
}

// Validate checks that the search configuration is usable.
func (c SearchConfig) Validate() error {
	if c.MaxDepth < 1 {
		return fmt.Errorf("max_depth must be >= 1")
	}
	if c.BeamWidth < 1 {
		return fmt.Errorf("beam_width must be >= 1")
	}
	if c.MaxExpansions < 1 {
		return fmt.Errorf("max_expansions must be >= 1")
	}
	if c.GoalScore <= 0 || c.GoalScore > 1 {
		return fmt.Errorf("goal_score must be in (0,1]")
	}
	return nil
}

// DepthPolicyConfig configures the depth policy.
type DepthPolicyConfig struct {
	// SoftLimit is the depth past which trend checks apply. Extensible
	// upward via feedback only.
	SoftLimit int `json:"soft_limit" yaml:"soft_limit"`

	// HardLimit is the depth at which the policy always stops.
	HardLimit int `json:"hard_limit" yaml:"hard_limit"`

	// MinProgressRate is the minimum improvement between the last two
	// history entries before feedback is requested.
	MinProgressRate float64 `json:"min_progress_rate" yaml:"min_progress_rate"`

	// StagnationWindow is how many trailing entries must be flat to count
	// as stagnation.
	StagnationWindow int `json:"stagnation_window" yaml:"stagnation_window"`
}

// DefaultDepthPolicyConfig returns sensible defaults.
func DefaultDepthPolicyConfig() DepthPolicyConfig {
	return DepthPolicyConfig{
		SoftLimit:        3,
		HardLimit:        8,
		MinProgressRate:  0.05,
		StagnationWindow: 3,
	}
}

// Validate checks the depth policy configuration.
func (c DepthPolicyConfig) Validate() error {
	if c.HardLimit < 1 {
		return fmt.Errorf("hard_limit must be >= 1")
	}
	if c.SoftLimit < 1 || c.SoftLimit > c.HardLimit {
		return fmt.Errorf("soft_limit must be in [1, hard_limit]")
	}
	if c.StagnationWindow < 2 {
		return fmt.Errorf("stagnation_window must be >= 2")
	}
	return nil
}

// NegotiationConfig configures the budget negotiator.
type NegotiationConfig struct {
	// AcceptableScore is the quality threshold the search aims for.
	AcceptableScore float64 `json:"acceptable_score" yaml:"acceptable_score"`

	// CompromiseScore is the minimum quality worth offering as a fallback.
	CompromiseScore float64 `json:"compromise_score" yaml:"compromise_score"`

	// ExpansionCost is the token cost charged per expansion.
	ExpansionCost int64 `json:"expansion_cost" yaml:"expansion_cost"`
}

// DefaultNegotiationConfig returns sensible defaults.
func DefaultNegotiationConfig() NegotiationConfig {
	return NegotiationConfig{
		AcceptableScore: 0.8,
		CompromiseScore: 0.6,
		ExpansionCost:   500,
	}
}

// Validate checks the negotiation configuration.
func (c NegotiationConfig) Validate() error {
	if c.AcceptableScore <= 0 || c.AcceptableScore > 1 {
		return fmt.Errorf("acceptable_score must be in (0,1]")
	}
	if c.CompromiseScore < 0 || c.CompromiseScore > c.AcceptableScore {
		return fmt.Errorf("compromise_score must be in [0, acceptable_score]")
	}
	if c.ExpansionCost < 1 {
		return fmt.Errorf("expansion_cost must be >= 1")
	}
	return nil
}

// GroundingAdjust configures how grounding verdicts reshape raw scores.
// Grounded truth overrides raw evaluation.
type GroundingAdjust struct {
	// PenaltyFactor multiplies the score when verification fails.
	PenaltyFactor float64 `json:"penalty_factor" yaml:"penalty_factor"`

	// BoostFactor multiplies the score when verification succeeds; the
	// result is capped at 1.0.
	BoostFactor float64 `json:"boost_factor" yaml:"boost_factor"`
}

// DefaultGroundingAdjust returns the default policy multipliers.
func DefaultGroundingAdjust() GroundingAdjust {
	return GroundingAdjust{PenaltyFactor: 0.1, BoostFactor: 1.2}
}

// ToleranceConfig bounds how many capability failures a session absorbs
// before aborting.
type ToleranceConfig struct {
	// MaxConsecutive aborts after this many failures in a row.
	MaxConsecutive int `json:"max_consecutive" yaml:"max_consecutive"`

	// MaxTotal aborts after this many failures overall. 0 disables.
	MaxTotal int `json:"max_total" yaml:"max_total"`
}

// DefaultToleranceConfig returns sensible defaults.
func DefaultToleranceConfig() ToleranceConfig {
	return ToleranceConfig{MaxConsecutive: 3, MaxTotal: 10}
}

// ObservabilityConfig configures tracing and metrics.
type ObservabilityConfig struct {
	TracingEnabled bool   `json:"tracing_enabled" yaml:"tracing_enabled"`
	MetricsEnabled bool   `json:"metrics_enabled" yaml:"metrics_enabled"`
	LogLevel       string `json:"log_level" yaml:"log_level"`
	ServiceName    string `json:"service_name" yaml:"service_name"`
}

// Config is the top-level configuration, loadable from files and env.
//
// Thread Safety: Safe to read concurrently. Not safe to modify after creation.
type Config struct {
	Search        SearchConfig        `json:"search" yaml:"search"`
	Depth         DepthPolicyConfig   `json:"depth" yaml:"depth"`
	Negotiation   NegotiationConfig   `json:"negotiation" yaml:"negotiation"`
	Grounding     GroundingAdjust     `json:"grounding" yaml:"grounding"`
	Tolerance     ToleranceConfig     `json:"tolerance" yaml:"tolerance"`
	Observability ObservabilityConfig `json:"observability" yaml:"observability"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Search:      DefaultSearchConfig(),
		Depth:       DefaultDepthPolicyConfig(),
		Negotiation: DefaultNegotiationConfig(),
		Grounding:   DefaultGroundingAdjust(),
		Tolerance:   DefaultToleranceConfig(),
		Observability: ObservabilityConfig{
			TracingEnabled: true,
			MetricsEnabled: true,
			LogLevel:       "info",
			ServiceName:    "sounder",
		},
	}
}

// LoadConfig loads configuration with priority: env > file > defaults.
//
// Inputs:
//   - configPath: Path to a YAML/JSON config file (optional, can be empty).
//
// Outputs:
//   - Config: Merged configuration.
//   - error: Non-nil if the file exists but is invalid, or validation fails.
func LoadConfig(configPath string) (Config, error) {
	config := DefaultConfig()

	if configPath != "" {
		if err := loadConfigFile(configPath, &config); err != nil {
			return config, fmt.Errorf("load config file: %w", err)
		}
	}

	loadConfigFromEnv(&config)

	if err := config.Validate(); err != nil {
		return config, fmt.Errorf("invalid config: %w", err)
	}
	return config, nil
}

func loadConfigFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	// Try YAML first, then JSON.
	if err := yaml.Unmarshal(data, config); err != nil {
		if jsonErr := json.Unmarshal(data, config); jsonErr != nil {
			return fmt.Errorf("parse config (tried YAML and JSON): YAML error: %v, JSON error: %w", err, jsonErr)
		}
	}
	return nil
}

func loadConfigFromEnv(config *Config) {
	if v := os.Getenv("SOUNDER_MAX_DEPTH"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			config.Search.MaxDepth = i
		}
	}
	if v := os.Getenv("SOUNDER_BEAM_WIDTH"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			config.Search.BeamWidth = i
		}
	}
	if v := os.Getenv("SOUNDER_MAX_EXPANSIONS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			config.Search.MaxExpansions = i
		}
	}
	if v := os.Getenv("SOUNDER_GOAL_SCORE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Search.GoalScore = f
		}
	}
	if v := os.Getenv("SOUNDER_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.Search.Timeout = d
		}
	}
	if v := os.Getenv("SOUNDER_ACCEPTABLE_SCORE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Negotiation.AcceptableScore = f
		}
	}
	if v := os.Getenv("SOUNDER_EXPANSION_COST"); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			config.Negotiation.ExpansionCost = i
		}
	}
	if v := os.Getenv("SOUNDER_TRACING_ENABLED"); v != "" {
		config.Observability.TracingEnabled = v == "true" || v == "1"
	}
	if v := os.Getenv("SOUNDER_METRICS_ENABLED"); v != "" {
		config.Observability.MetricsEnabled = v == "true" || v == "1"
	}
	if v := os.Getenv("SOUNDER_LOG_LEVEL"); v != "" {
		config.Observability.LogLevel = v
	}
}

// Validate checks the whole configuration.
func (c Config) Validate() error {
	if err := c.Search.Validate(); err != nil {
		return err
	}
	if err := c.Depth.Validate(); err != nil {
		return err
	}
	if err := c.Negotiation.Validate(); err != nil {
		return err
	}
	if c.Grounding.PenaltyFactor < 0 || c.Grounding.PenaltyFactor > 1 {
		return fmt.Errorf("penalty_factor must be in [0,1]")
	}
	if c.Grounding.BoostFactor < 1 {
		return fmt.Errorf("boost_factor must be >= 1")
	}
	if c.Tolerance.MaxConsecutive < 1 {
		return fmt.Errorf("max_consecutive must be >= 1")
	}
	return nil
}
