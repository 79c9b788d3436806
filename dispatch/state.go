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

// State is the lifecycle state of an activation.
//
//	Creating -> Valid -> Deactivating -> Invalid
//	Creating -> FailedToActivate
//	Valid -> Invalid (forced)
type State int

const (
	// Creating means the activation routine is still running
	Creating State = iota
	// Valid means the activation accepts requests
	Valid
	// Deactivating means running work completes but nothing new starts
	Deactivating
	// Invalid is terminal. Messages are forwarded elsewhere.
	Invalid
	// FailedToActivate is terminal. Messages are rejected.
	FailedToActivate
)

// String returns the state name
func (s State) String() string {
	switch s {
	case Creating:
		return "Creating"
	case Valid:
		return "Valid"
	case Deactivating:
		return "Deactivating"
	case Invalid:
		return "Invalid"
	case FailedToActivate:
		return "FailedToActivate"
	default:
		return "Unknown"
	}
}

// IsTerminal reports whether the state can no longer change.
func (s State) IsTerminal() bool {
	return s == Invalid || s == FailedToActivate
}

// canTransition guards the lifecycle state machine.
func canTransition(from, to State) bool {
	switch from {
	case Creating:
		return to == Valid || to == FailedToActivate || to == Invalid
	case Valid:
		return to == Deactivating || to == Invalid
	case Deactivating:
		return to == Invalid
	default:
		return false
	}
}
