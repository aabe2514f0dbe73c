// Copyright (C) 2026 Seaward AI (oss@seaward.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package search

import (
	"errors"
	"testing"

	"github.com/seawardai/sounder/graph"
)

func TestContextCopyOnWrite(t *testing.T) {
	base := NewContext("prove the lemma").With("attempt", 1)

	derived := base.With("attempt", 2).WithDepth(3)

	if v, _ := base.Value("attempt"); v != 1 {
		t.Errorf("base context mutated: attempt = %v", v)
	}
	if v, _ := derived.Value("attempt"); v != 2 {
		t.Errorf("derived attempt = %v, want 2", v)
	}
	if base.Depth != 0 {
		t.Errorf("base depth mutated: %d", base.Depth)
	}
	if derived.Depth != 3 {
		t.Errorf("derived depth = %d, want 3", derived.Depth)
	}
	if derived.Task != "prove the lemma" {
		t.Errorf("task not carried: %q", derived.Task)
	}
}

func TestContextWithBudget(t *testing.T) {
	base := NewContext("task")
	b := graph.NewBudget(1000).Consume(400)

	derived := base.WithBudget(b)
	if derived.Budget.Remaining() != 600 {
		t.Errorf("derived budget remaining = %d, want 600", derived.Budget.Remaining())
	}
	if base.Budget.Total != 0 {
		t.Errorf("base budget mutated: %+v", base.Budget)
	}
}

func TestContextValueMissing(t *testing.T) {
	c := NewContext("task")
	if _, ok := c.Value("absent"); ok {
		t.Error("expected missing key lookup to report false")
	}
}

func TestCapabilityErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := &CapabilityError{Capability: "generator", ThoughtID: "t-1", Err: cause}

	if !errors.Is(err, cause) {
		t.Error("CapabilityError should unwrap to its cause")
	}
	msg := err.Error()
	if msg == "" {
		t.Fatal("empty error message")
	}
}
