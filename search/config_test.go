// Copyright (C) 2026 Seaward AI (oss@seaward.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package search

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigValidates(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if cfg.Search.MaxDepth != DefaultSearchConfig().MaxDepth {
		t.Errorf("max_depth = %d, want default", cfg.Search.MaxDepth)
	}
}

func TestLoadConfigFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("search:\n  max_depth: 7\n  beam_width: 4\nnegotiation:\n  expansion_cost: 250\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Search.MaxDepth != 7 {
		t.Errorf("max_depth = %d, want 7", cfg.Search.MaxDepth)
	}
	if cfg.Search.BeamWidth != 4 {
		t.Errorf("beam_width = %d, want 4", cfg.Search.BeamWidth)
	}
	if cfg.Negotiation.ExpansionCost != 250 {
		t.Errorf("expansion_cost = %d, want 250", cfg.Negotiation.ExpansionCost)
	}
	// Untouched sections keep their defaults.
	if cfg.Search.GoalScore != 0.9 {
		t.Errorf("goal_score = %.2f, want default 0.9", cfg.Search.GoalScore)
	}
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("search:\n  max_depth: 7\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SOUNDER_MAX_DEPTH", "9")
	t.Setenv("SOUNDER_TIMEOUT", "30s")
	t.Setenv("SOUNDER_TRACING_ENABLED", "false")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Search.MaxDepth != 9 {
		t.Errorf("max_depth = %d, env should beat the file", cfg.Search.MaxDepth)
	}
	if cfg.Search.Timeout != 30*time.Second {
		t.Errorf("timeout = %v, want 30s", cfg.Search.Timeout)
	}
	if cfg.Observability.TracingEnabled {
		t.Error("tracing should be disabled by env")
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	t.Setenv("SOUNDER_BEAM_WIDTH", "0")
	if _, err := LoadConfig(""); err == nil {
		t.Fatal("expected validation error for zero beam width")
	}
}

func TestSearchConfigValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*SearchConfig)
	}{
		{"zero max depth", func(c *SearchConfig) { c.MaxDepth = 0 }},
		{"zero beam width", func(c *SearchConfig) { c.BeamWidth = 0 }},
		{"zero max expansions", func(c *SearchConfig) { c.MaxExpansions = 0 }},
		{"goal above one", func(c *SearchConfig) { c.GoalScore = 1.5 }},
		{"zero goal", func(c *SearchConfig) { c.GoalScore = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultSearchConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestDepthPolicyConfigValidation(t *testing.T) {
	cfg := DefaultDepthPolicyConfig()
	cfg.SoftLimit = cfg.HardLimit + 1
	if err := cfg.Validate(); err == nil {
		t.Error("soft limit above hard limit should fail validation")
	}
}

func TestNegotiationConfigValidation(t *testing.T) {
	cfg := DefaultNegotiationConfig()
	cfg.CompromiseScore = cfg.AcceptableScore + 0.1
	if err := cfg.Validate(); err == nil {
		t.Error("compromise floor above the acceptable score should fail validation")
	}
}
