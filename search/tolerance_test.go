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
)

func TestToleranceTripsOnConsecutiveFailures(t *testing.T) {
	tol := NewFailureTolerance(ToleranceConfig{MaxConsecutive: 3, MaxTotal: 100})
	fail := errors.New("capability down")

	for i := 0; i < 3; i++ {
		if err := tol.Record(fail); err != nil {
			t.Fatalf("failure %d should be tolerated: %v", i+1, err)
		}
	}
	err := tol.Record(fail)
	if !errors.Is(err, ErrToleranceExceeded) {
		t.Errorf("expected ErrToleranceExceeded on 4th consecutive failure, got %v", err)
	}
}

func TestToleranceSuccessResetsConsecutive(t *testing.T) {
	tol := NewFailureTolerance(ToleranceConfig{MaxConsecutive: 2, MaxTotal: 100})
	fail := errors.New("capability down")

	if err := tol.Record(fail); err != nil {
		t.Fatal(err)
	}
	if err := tol.Record(fail); err != nil {
		t.Fatal(err)
	}
	if err := tol.Record(nil); err != nil {
		t.Fatal(err)
	}
	if tol.Consecutive() != 0 {
		t.Errorf("consecutive = %d after success, want 0", tol.Consecutive())
	}
	if tol.Total() != 2 {
		t.Errorf("total = %d, want 2", tol.Total())
	}
	if err := tol.Record(fail); err != nil {
		t.Errorf("failure after reset should be tolerated: %v", err)
	}
}

func TestToleranceTripsOnTotalFailures(t *testing.T) {
	tol := NewFailureTolerance(ToleranceConfig{MaxConsecutive: 100, MaxTotal: 3})
	fail := errors.New("capability down")

	for i := 0; i < 3; i++ {
		if err := tol.Record(fail); err != nil {
			t.Fatalf("failure %d should be tolerated: %v", i+1, err)
		}
		if err := tol.Record(nil); err != nil {
			t.Fatal(err)
		}
	}
	err := tol.Record(fail)
	if !errors.Is(err, ErrToleranceExceeded) {
		t.Errorf("expected ErrToleranceExceeded on 4th total failure, got %v", err)
	}
}

func TestToleranceZeroMaxTotalDisablesTotalBound(t *testing.T) {
	tol := NewFailureTolerance(ToleranceConfig{MaxConsecutive: 2, MaxTotal: 0})
	fail := errors.New("capability down")

	for i := 0; i < 50; i++ {
		if err := tol.Record(fail); err != nil {
			t.Fatalf("failure should be tolerated with total bound disabled: %v", err)
		}
		if err := tol.Record(nil); err != nil {
			t.Fatal(err)
		}
	}
}
