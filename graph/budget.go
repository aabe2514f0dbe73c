// Copyright (C) 2026 Seaward AI (oss@seaward.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package graph

import "fmt"

// Budget is a finite token ledger. It is a value: Consume and Add produce a
// new Budget rather than mutating in place, so a Budget can be threaded
// through a search session and returned without hidden shared state.
type Budget struct {
	// Total is the number of tokens granted.
	Total int64
	// Consumed is the number of tokens spent so far.
	Consumed int64
}

// NewBudget creates a budget with the given total allowance.
func NewBudget(total int64) Budget {
	return Budget{Total: total}
}

// Remaining returns the unspent allowance, never negative.
func (b Budget) Remaining() int64 {
	if b.Consumed >= b.Total {
		return 0
	}
	return b.Total - b.Consumed
}

// Consume returns a new Budget with tokens spent.
func (b Budget) Consume(tokens int64) Budget {
	b.Consumed += tokens
	return b
}

// Add returns a new Budget with the total allowance raised.
func (b Budget) Add(tokens int64) Budget {
	b.Total += tokens
	return b
}

// Exhausted reports whether the allowance is fully spent.
func (b Budget) Exhausted() bool {
	return b.Consumed >= b.Total
}

// CanAfford reports whether the remaining allowance covers a cost.
func (b Budget) CanAfford(tokens int64) bool {
	return b.Remaining() >= tokens
}

// Utilization returns the consumed fraction of the total, in [0,1].
func (b Budget) Utilization() float64 {
	if b.Total <= 0 {
		return 1.0
	}
	u := float64(b.Consumed) / float64(b.Total)
	if u > 1.0 {
		return 1.0
	}
	return u
}

// String returns a human-readable budget status.
func (b Budget) String() string {
	return fmt.Sprintf("Budget{consumed=%d/%d}", b.Consumed, b.Total)
}
