// Copyright (C) 2026 Seaward AI (oss@seaward.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package search

import (
	"errors"
	"fmt"
)

var (
	// ErrNoRoots is returned when a search is started on a graph with no
	// root thoughts.
	ErrNoRoots = errors.New("graph has no roots to search from")

	// ErrToleranceExceeded is returned when repeated capability failures
	// pass the configured tolerance and the session must abort.
	ErrToleranceExceeded = errors.New("capability failure tolerance exceeded")

	// ErrSoftLimitRegression is returned when a caller tries to lower the
	// depth policy's soft limit. The limit only extends upward.
	ErrSoftLimitRegression = errors.New("soft depth limit may only be extended upward")
)

// CapabilityError reports a failed call into an external capability
// (generator, evaluator, grounder). Single failures are recovered locally as
// empty or neutral results; only repeated failures become hard errors.
type CapabilityError struct {
	Capability string
	ThoughtID  string
	Err        error
}

// Error implements the error interface.
func (e *CapabilityError) Error() string {
	return fmt.Sprintf("%s capability failed for thought %q: %v", e.Capability, e.ThoughtID, e.Err)
}

// Unwrap returns the underlying capability error.
func (e *CapabilityError) Unwrap() error {
	return e.Err
}
