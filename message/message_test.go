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

package message

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tochemey/graindispatch/address"
	gerrors "github.com/tochemey/graindispatch/errors"
)

var (
	silo   = address.NewSilo("127.0.0.1", 11111, 1)
	caller = address.NewActivationAddress(silo, address.NewGrainID("caller", "1"))
	callee = address.NewActivationAddress(silo, address.NewGrainID("callee", "1"))
)

func TestNewRequest(t *testing.T) {
	first := NewRequest(caller, callee, 1, 2, "a", 3)
	second := NewRequest(caller, callee, 1, 2)
	assert.Equal(t, Request, first.Direction)
	assert.Greater(t, second.ID, first.ID)
	assert.Equal(t, []any{"a", 3}, first.Arguments)
	assert.Equal(t, callee.Grain, first.TargetGrain())

	oneWay := NewOneWay(caller, callee, 1, 2)
	assert.Equal(t, OneWay, oneWay.Direction)
}

func TestExpiry(t *testing.T) {
	now := time.Now()
	msg := NewRequest(caller, callee, 1, 1)
	assert.False(t, msg.IsExpired(now.Add(time.Hour)))

	msg.SetTimeout(now, time.Second)
	assert.False(t, msg.IsExpired(now))
	assert.True(t, msg.IsExpired(now.Add(2*time.Second)))

	msg.SetTimeout(now, 0)
	assert.True(t, msg.Expiration.IsZero())
}

func TestForwardAndResendBudgets(t *testing.T) {
	msg := NewRequest(caller, callee, 1, 1)
	assert.True(t, msg.MayForward(2))
	msg.ForwardCount = 2
	assert.False(t, msg.MayForward(2))

	msg.IsReturnedFromRemoteCluster = true
	assert.True(t, msg.MayForward(2))
	msg.ForwardCount = 3
	assert.False(t, msg.MayForward(2))

	assert.False(t, msg.MayResend(0))
	assert.True(t, msg.MayResend(1))
	msg.ResendCount = 1
	assert.False(t, msg.MayResend(1))
}

func TestCacheInvalidationHeader(t *testing.T) {
	msg := NewRequest(caller, callee, 1, 1)
	assert.False(t, msg.HasCacheInvalidationHeader())
	msg.AddToCacheInvalidationHeader(callee)
	msg.AddToCacheInvalidationHeader(callee)
	other := address.NewActivationAddress(silo, callee.Grain)
	msg.AddToCacheInvalidationHeader(other)
	assert.Equal(t, []address.ActivationAddress{callee, other}, msg.CacheInvalidationHeader)
	assert.True(t, msg.HasCacheInvalidationHeader())
}

func TestResponses(t *testing.T) {
	request := NewRequest(caller, callee, 4, 5)
	request.IsReadOnly = true
	request.Expiration = time.Now().Add(time.Minute)
	request.AddToCacheInvalidationHeader(callee)

	t.Run("ok", func(t *testing.T) {
		response := request.CreateResponse(42)
		assert.Equal(t, Response, response.Direction)
		assert.Equal(t, ResultOK, response.Result)
		assert.Equal(t, request.ID, response.ID)
		assert.Equal(t, caller, response.TargetAddress)
		assert.Equal(t, callee, response.SendingAddress)
		assert.True(t, response.IsReadOnly)
		assert.Equal(t, request.Expiration, response.Expiration)
		assert.Equal(t, request.CacheInvalidationHeader, response.CacheInvalidationHeader)
		assert.Equal(t, 42, response.Body)
		assert.NoError(t, response.Err())
	})
	t.Run("error", func(t *testing.T) {
		boom := errors.New("boom")
		response := request.CreateErrorResponse(boom)
		assert.Equal(t, ResultError, response.Result)
		assert.ErrorIs(t, response.Err(), boom)
	})
	t.Run("rejection", func(t *testing.T) {
		response := request.CreateRejectionResponse(Overloaded, "queue full", nil)
		assert.Equal(t, ResultRejection, response.Result)
		assert.Equal(t, Overloaded, response.RejectionType)
		assert.Equal(t, "queue full", response.RejectionInfo)
		var rejection *gerrors.RejectionError
		require.ErrorAs(t, response.Err(), &rejection)
		assert.Equal(t, "Overloaded", rejection.Kind())
	})
	t.Run("error result without error body", func(t *testing.T) {
		response := request.CreateResponse("oops")
		response.Result = ResultError
		require.Error(t, response.Err())
	})
}

func TestCallChain(t *testing.T) {
	parent := NewRequest(caller, callee, 1, 2)
	parent.CallChain = []CallChainEntry{{Grain: caller.Grain, Activation: caller.Activation, InterfaceID: 9, MethodID: 9}}
	parent.RequestContextData = map[string]any{"trace": "abc"}

	ctx := NewContext(context.Background(), parent)
	got, ok := FromContext(ctx)
	require.True(t, ok)
	require.Same(t, parent, got)

	_, ok = FromContext(context.Background())
	assert.False(t, ok)

	child := NewRequest(callee, caller, 3, 4)
	child.InheritCallChain(parent)
	require.Len(t, child.CallChain, 2)
	assert.Equal(t, callee.Activation, child.CallChain[1].Activation)
	assert.Equal(t, int32(1), child.CallChain[1].InterfaceID)
	assert.Equal(t, "abc", child.RequestContextData["trace"])
	assert.Len(t, parent.CallChain, 1)
	assert.Contains(t, child.CallChain[1].String(), "callee/1#")
}

func TestKindsString(t *testing.T) {
	assert.Equal(t, "OneWay", OneWay.String())
	assert.Equal(t, "Unknown", Direction(9).String())
	assert.Equal(t, "Rejection", ResultRejection.String())
	assert.Equal(t, "Unknown", Result(9).String())
	assert.Equal(t, "CacheInvalidation", CacheInvalidation.String())
	assert.Equal(t, "Unknown", RejectionType(9).String())
	assert.Contains(t, NewRequest(caller, callee, 1, 2).String(), "Request #")
}
