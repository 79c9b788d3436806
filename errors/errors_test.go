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

package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrors(t *testing.T) {
	err := errors.New("something went wrong")
	internalErr := NewInternalError(err)
	require.EqualError(t, internalErr, "internal error: something went wrong")
	assert.ErrorIs(t, internalErr, err)

	panicErr := NewPanicError(err)
	require.EqualError(t, panicErr, "panic: something went wrong")
	assert.ErrorIs(t, panicErr, err)

	activationErr := NewErrActivationFailure(err)
	assert.ErrorIs(t, activationErr, ErrActivationFailure)
	assert.ErrorIs(t, activationErr, err)

	assert.ErrorIs(t, NewErrDeactivationFailure(err), ErrDeactivationFailure)
	assert.ErrorIs(t, NewErrAddressingFailure(err), ErrAddressingFailure)

	kindErr := NewErrGrainKindNotRegistered("counter")
	assert.ErrorIs(t, kindErr, ErrGrainKindNotRegistered)
	assert.Contains(t, kindErr.Error(), "counter")

	methodErr := NewErrMethodNotFound(7, 3)
	assert.ErrorIs(t, methodErr, ErrMethodNotFound)
	assert.Contains(t, methodErr.Error(), "interface=7, method=3")

	versionErr := NewErrIncompatibleVersion(1, "2.0.0", "1.4.0")
	assert.ErrorIs(t, versionErr, ErrIncompatibleVersion)

	assert.ErrorIs(t, NewErrActivationNotFound("silo/a"), ErrActivationNotFound)
}

func TestDeadlockError(t *testing.T) {
	chain := []string{"A", "B", "A"}
	err := NewDeadlockError(chain)
	chain[0] = "mutated"
	require.EqualError(t, err, "deadlock detected, call chain: A -> B -> A")
	assert.Equal(t, []string{"A", "B", "A"}, err.CallChain())

	var target *DeadlockError
	wrapped := errors.Join(errors.New("call failed"), err)
	require.ErrorAs(t, wrapped, &target)
}

func TestRejectionError(t *testing.T) {
	cause := errors.New("queue full")
	err := NewRejectionError("Overloaded", "too many requests", cause)
	require.EqualError(t, err, "Overloaded rejection: too many requests: queue full")
	assert.Equal(t, "Overloaded", err.Kind())
	assert.Equal(t, "too many requests", err.Info())
	assert.ErrorIs(t, err, cause)

	noCause := NewRejectionError("Transient", "forward failed", nil)
	require.EqualError(t, noCause, "Transient rejection: forward failed")
	assert.Nil(t, noCause.Unwrap())
}

func TestLimitExceededError(t *testing.T) {
	err := NewLimitExceededError("MaxEnqueuedRequests_HardLimit", 10, 10, "counter/1")
	require.EqualError(t, err, "limit MaxEnqueuedRequests_HardLimit exceeded for counter/1: 10 >= 10")
	assert.Equal(t, 10, err.Count())
	assert.Equal(t, 10, err.Threshold())
}

func TestNonExistentActivationError(t *testing.T) {
	err := NewNonExistentActivationError("silo/counter/1")
	require.EqualError(t, err, "non-existent activation: silo/counter/1")
	assert.Equal(t, "silo/counter/1", err.Address())
	assert.ErrorIs(t, err, ErrActivationNotFound)
}
