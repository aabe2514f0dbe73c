// Copyright (C) 2026 Seaward AI (oss@seaward.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package search

import (
	"fmt"
	"sync"
)

// FailureTolerance tracks capability failures across a session and trips once
// they exceed the configured bounds. Individual failures degrade gracefully;
// repeated failure is a session-level fault.
//
// Thread Safety: Safe for concurrent use.
type FailureTolerance struct {
	mu          sync.Mutex
	consecutive int
	total       int
	cfg         ToleranceConfig
}

// NewFailureTolerance creates a tolerance tracker from configuration.
func NewFailureTolerance(cfg ToleranceConfig) *FailureTolerance {
	return &FailureTolerance{cfg: cfg}
}

// Record notes the outcome of one capability call. A nil error resets the
// consecutive counter; a non-nil error increments both counters.
//
// Outputs:
//   - error: ErrToleranceExceeded (wrapped) once either bound is crossed,
//     nil otherwise.
func (f *FailureTolerance) Record(err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err == nil {
		f.consecutive = 0
		return nil
	}

	f.consecutive++
	f.total++

	if f.consecutive > f.cfg.MaxConsecutive {
		return fmt.Errorf("%d consecutive capability failures: %w", f.consecutive, ErrToleranceExceeded)
	}
	if f.cfg.MaxTotal > 0 && f.total > f.cfg.MaxTotal {
		return fmt.Errorf("%d total capability failures: %w", f.total, ErrToleranceExceeded)
	}
	return nil
}

// Consecutive returns the current consecutive failure count.
func (f *FailureTolerance) Consecutive() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.consecutive
}

// Total returns the total failure count.
func (f *FailureTolerance) Total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.total
}

// Reset clears both counters.
func (f *FailureTolerance) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.consecutive = 0
	f.total = 0
}
