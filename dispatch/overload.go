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

package dispatch

import (
	gerrors "github.com/tochemey/graindispatch/errors"
)

const (
	hardLimitName = "MaxEnqueuedRequests_Hard"
	softLimitName = "MaxEnqueuedRequests_Soft"
)

// Verdict is the outcome of an overload check.
type Verdict int

const (
	// Admit lets the request be queued
	Admit Verdict = iota
	// AdmitWithWarning lets the request be queued and reports the breach
	AdmitWithWarning
	// Reject refuses the request with an Overloaded rejection
	Reject
)

// Load is the snapshot of an activation handed to an OverloadPolicy.
type Load struct {
	Target  string
	Running int
	Waiting int
}

// OverloadPolicy decides whether one more request may wait on an activation.
// The returned error describes the breached limit for any verdict but Admit.
type OverloadPolicy interface {
	CheckOverloaded(load Load) (Verdict, error)
}

// QueueLengthPolicy bounds the number of running plus waiting requests.
// Limits lower than or equal to zero are disabled.
type QueueLengthPolicy struct {
	softLimit int
	hardLimit int
}

var _ OverloadPolicy = (*QueueLengthPolicy)(nil)

// NewQueueLengthPolicy creates a QueueLengthPolicy
func NewQueueLengthPolicy(softLimit, hardLimit int) *QueueLengthPolicy {
	return &QueueLengthPolicy{softLimit: softLimit, hardLimit: hardLimit}
}

// CheckOverloaded implements OverloadPolicy.
func (p *QueueLengthPolicy) CheckOverloaded(load Load) (Verdict, error) {
	if p.softLimit <= 0 && p.hardLimit <= 0 {
		return Admit, nil
	}

	count := load.Running + load.Waiting
	if p.hardLimit > 0 && count >= p.hardLimit {
		return Reject, gerrors.NewLimitExceededError(hardLimitName, count, p.hardLimit, load.Target)
	}

	if p.softLimit > 0 && count >= p.softLimit {
		return AdmitWithWarning, gerrors.NewLimitExceededError(softLimitName, count, p.softLimit, load.Target)
	}
	return Admit, nil
}
