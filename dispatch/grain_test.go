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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gerrors "github.com/tochemey/graindispatch/errors"
	"github.com/tochemey/graindispatch/invoker"
	"github.com/tochemey/graindispatch/reentrancy"
)

func TestGrainKind(t *testing.T) {
	factory := newAccountFactory()

	t.Run("With defaults", func(t *testing.T) {
		kind := NewGrainKind(factory.create, accountTable())
		require.NoError(t, kind.Validate())
		assert.Equal(t, testGrainType, kind.Type())
		assert.Equal(t, DefaultDeactivateAfter, kind.DeactivateAfter())
		assert.False(t, kind.Reentrancy().IsReentrant())
	})
	t.Run("With options", func(t *testing.T) {
		kind := NewGrainKind(factory.create, accountTable(),
			WithReentrancy(reentrancy.New(reentrancy.WithMode(reentrancy.AllowAll))),
			WithGrainInitMaxRetries(3),
			WithGrainInitTimeout(time.Second),
			WithGrainDeactivateAfter(time.Hour))
		require.NoError(t, kind.Validate())
		assert.True(t, kind.Reentrancy().IsReentrant())
		assert.Equal(t, time.Hour, kind.DeactivateAfter())
		assert.Equal(t, 3, kind.initMaxRetries)
	})
	t.Run("With long lived grain", func(t *testing.T) {
		kind := NewGrainKind(factory.create, accountTable(), WithLongLivedGrain())
		require.NoError(t, kind.Validate())
		assert.Negative(t, kind.DeactivateAfter())
	})
	t.Run("With missing factory", func(t *testing.T) {
		assert.Error(t, NewGrainKind(nil, accountTable()).Validate())
	})
	t.Run("With missing table", func(t *testing.T) {
		assert.Error(t, NewGrainKind(factory.create, nil).Validate())
	})
	t.Run("With empty grain type", func(t *testing.T) {
		assert.Error(t, NewGrainKind(factory.create, invoker.NewTable("")).Validate())
	})
	t.Run("With invalid retries", func(t *testing.T) {
		assert.Error(t, NewGrainKind(factory.create, accountTable(), WithGrainInitMaxRetries(0)).Validate())
	})
	t.Run("With zero deactivate after", func(t *testing.T) {
		assert.Error(t, NewGrainKind(factory.create, accountTable(), WithGrainDeactivateAfter(0)).Validate())
	})
	t.Run("With predicate mode and no predicate", func(t *testing.T) {
		kind := NewGrainKind(factory.create, accountTable(),
			WithReentrancy(reentrancy.New(reentrancy.WithMode(reentrancy.Predicate))))
		assert.ErrorIs(t, kind.Validate(), gerrors.ErrMissingInterleavePredicate)
	})
}
