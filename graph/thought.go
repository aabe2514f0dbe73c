// Copyright (C) 2026 Seaward AI (oss@seaward.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package graph

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Verification is the tri-state outcome of grounding a thought against an
// authoritative external check.
type Verification int

const (
	// VerifiedUnknown means no grounding verdict exists for the thought.
	VerifiedUnknown Verification = iota
	// VerifiedTrue means grounding confirmed the thought.
	VerifiedTrue
	// VerifiedFalse means grounding contradicted the thought.
	VerifiedFalse
)

// String returns a human-readable verification state.
func (v Verification) String() string {
	switch v {
	case VerifiedTrue:
		return "true"
	case VerifiedFalse:
		return "false"
	default:
		return "unknown"
	}
}

// Thought is a node representing one candidate solution.
//
// Identity, content, and metadata are immutable after the thought is added to
// a Graph. The running score and grounding state are deliberately not fields
// here: they live in side tables owned by the Graph, so that evaluation can
// refine its estimate without touching an otherwise frozen value.
//
// Thread Safety: Safe for concurrent reads once added to a Graph.
type Thought struct {
	// ID uniquely identifies the thought within a graph.
	ID string
	// Content is the candidate solution payload.
	Content string
	// CreatedAt records construction time.
	CreatedAt time.Time

	depth       int
	seq         uint64
	parent      *Thought
	meta        map[string]string
	contentHash string
}

// ThoughtOption configures a Thought during creation.
type ThoughtOption func(*Thought)

// WithID overrides the generated thought id.
func WithID(id string) ThoughtOption {
	return func(t *Thought) {
		t.ID = id
	}
}

// WithMetadata attaches named data to the thought. The map is copied, so
// later mutation by the caller cannot leak into the thought.
func WithMetadata(meta map[string]string) ThoughtOption {
	return func(t *Thought) {
		if len(meta) == 0 {
			return
		}
		t.meta = make(map[string]string, len(meta))
		for k, v := range meta {
			t.meta[k] = v
		}
	}
}

// NewThought creates a thought with the given content.
//
// Inputs:
//   - content: The candidate solution payload.
//   - opts: Optional configuration functions.
//
// Outputs:
//   - *Thought: The created thought, never nil. Depth, parent, and creation
//     sequence are assigned when the thought is added to a Graph.
func NewThought(content string, opts ...ThoughtOption) *Thought {
	t := &Thought{
		ID:        uuid.NewString(),
		Content:   content,
		CreatedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.contentHash = computeContentHash(content)
	return t
}

func computeContentHash(content string) string {
	h := sha256.Sum256([]byte(content))
	return hex.EncodeToString(h[:])
}

// Depth returns the path length to the nearest root (0 for roots).
func (t *Thought) Depth() int {
	return t.depth
}

// Seq returns the creation sequence number assigned by the owning graph.
// It provides the stable tie-break order for equal scores.
func (t *Thought) Seq() uint64 {
	return t.seq
}

// Parent returns the parent thought (nil for roots).
func (t *Thought) Parent() *Thought {
	return t.parent
}

// IsRoot returns true if this thought has no parent.
func (t *Thought) IsRoot() bool {
	return t.parent == nil
}

// ContentHash returns the SHA256 hash of the content, used for
// duplicate-content detection.
func (t *Thought) ContentHash() string {
	return t.contentHash
}

// Meta looks up a named metadata value attached at creation.
func (t *Thought) Meta(key string) (string, bool) {
	v, ok := t.meta[key]
	return v, ok
}

// String returns a human-readable representation of the thought.
func (t *Thought) String() string {
	return fmt.Sprintf("Thought{id=%s, depth=%d, content=%q}", t.ID, t.depth, truncate(t.Content, 40))
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
