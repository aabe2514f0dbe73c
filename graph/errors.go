// Copyright (C) 2026 Seaward AI (oss@seaward.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateID is returned when a thought id is already present.
	ErrDuplicateID = errors.New("thought id already present in graph")

	// ErrUnknownParent is returned when the named parent is absent.
	ErrUnknownParent = errors.New("parent thought not present in graph")

	// ErrCycleDetected is returned when an edge would make a thought its
	// own ancestor.
	ErrCycleDetected = errors.New("edge would create a cycle")

	// ErrUnknownThought is returned by lookups for ids never added.
	ErrUnknownThought = errors.New("thought not present in graph")
)

// StructuralError reports a rejected graph mutation. It is fatal only to the
// offending call; the graph is left unchanged.
type StructuralError struct {
	Op        string
	ThoughtID string
	Err       error
}

// Error implements the error interface.
func (e *StructuralError) Error() string {
	return fmt.Sprintf("graph %s %q: %v", e.Op, e.ThoughtID, e.Err)
}

// Unwrap returns the underlying sentinel error.
func (e *StructuralError) Unwrap() error {
	return e.Err
}

func structural(op, id string, err error) error {
	return &StructuralError{Op: op, ThoughtID: id, Err: err}
}
