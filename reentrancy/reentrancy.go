// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package reentrancy

import (
	gerrors "github.com/tochemey/graindispatch/errors"
	"github.com/tochemey/graindispatch/internal/validation"
	"github.com/tochemey/graindispatch/message"
)

// Mode determines whether requests may interleave with a running request on
// the same activation.
//
// Modes:
//   - Off runs one request at a time. Only read-only pairs and
//     always-interleave requests overlap.
//   - AllowAll makes the grain reentrant: every request may interleave.
//   - Predicate consults a per grain kind predicate for each candidate request.
type Mode int

const (
	// Off keeps turn based execution.
	Off Mode = iota
	// AllowAll makes the grain reentrant.
	AllowAll
	// Predicate defers the decision to MayInterleave.
	Predicate
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case Off:
		return "Off"
	case AllowAll:
		return "AllowAll"
	case Predicate:
		return "Predicate"
	default:
		return "Unknown"
	}
}

// InterleavePredicate decides whether the candidate request may run while
// another request is executing on the activation.
type InterleavePredicate func(candidate *message.Message) bool

// Option configures reentrancy behavior.
type Option func(*Reentrancy)

// WithMode sets the reentrancy mode.
func WithMode(mode Mode) Option {
	return func(r *Reentrancy) {
		r.mode = mode
	}
}

// WithMayInterleave installs the predicate and switches to the Predicate mode.
func WithMayInterleave(predicate InterleavePredicate) Option {
	return func(r *Reentrancy) {
		r.mode = Predicate
		r.predicate = predicate
	}
}

// Reentrancy is the interleave policy of a grain kind.
type Reentrancy struct {
	mode      Mode
	predicate InterleavePredicate
}

// ensure Reentrancy implements validation.Validator.
var _ validation.Validator = (*Reentrancy)(nil)

// New creates a new Reentrancy configuration with the provided options.
func New(opts ...Option) *Reentrancy {
	r := &Reentrancy{mode: Off}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Mode returns the reentrancy mode.
func (r *Reentrancy) Mode() Mode {
	return r.mode
}

// IsReentrant reports whether every request may interleave.
func (r *Reentrancy) IsReentrant() bool {
	return r != nil && r.mode == AllowAll
}

// MayInterleave reports whether candidate may run concurrently with the
// request currently executing. A nil Reentrancy behaves like Off.
func (r *Reentrancy) MayInterleave(candidate *message.Message) bool {
	if r == nil {
		return false
	}
	switch r.mode {
	case AllowAll:
		return true
	case Predicate:
		return r.predicate != nil && r.predicate(candidate)
	default:
		return false
	}
}

// Validate validates the Reentrancy configuration.
func (r *Reentrancy) Validate() error {
	if !IsValidReentrancyMode(r.mode) {
		return gerrors.ErrInvalidReentrancyMode
	}
	if r.mode == Predicate && r.predicate == nil {
		return gerrors.ErrMissingInterleavePredicate
	}
	return nil
}

// IsValidReentrancyMode guards against unknown enum values.
func IsValidReentrancyMode(mode Mode) bool {
	switch mode {
	case Off, AllowAll, Predicate:
		return true
	default:
		return false
	}
}
