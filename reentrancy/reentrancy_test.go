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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gerrors "github.com/tochemey/graindispatch/errors"
	"github.com/tochemey/graindispatch/message"
)

func TestReentrancy(t *testing.T) {
	readOnly := &message.Message{IsReadOnly: true}
	plain := &message.Message{}

	t.Run("defaults to off", func(t *testing.T) {
		r := New()
		require.NoError(t, r.Validate())
		assert.Equal(t, Off, r.Mode())
		assert.False(t, r.IsReentrant())
		assert.False(t, r.MayInterleave(plain))
	})
	t.Run("allow all", func(t *testing.T) {
		r := New(WithMode(AllowAll))
		require.NoError(t, r.Validate())
		assert.True(t, r.IsReentrant())
		assert.True(t, r.MayInterleave(plain))
	})
	t.Run("predicate", func(t *testing.T) {
		r := New(WithMayInterleave(func(m *message.Message) bool { return m.IsReadOnly }))
		require.NoError(t, r.Validate())
		assert.Equal(t, Predicate, r.Mode())
		assert.False(t, r.IsReentrant())
		assert.True(t, r.MayInterleave(readOnly))
		assert.False(t, r.MayInterleave(plain))
	})
	t.Run("predicate mode without predicate", func(t *testing.T) {
		r := New(WithMode(Predicate))
		require.ErrorIs(t, r.Validate(), gerrors.ErrMissingInterleavePredicate)
		assert.False(t, r.MayInterleave(plain))
	})
	t.Run("invalid mode", func(t *testing.T) {
		r := New(WithMode(Mode(42)))
		require.ErrorIs(t, r.Validate(), gerrors.ErrInvalidReentrancyMode)
		assert.Equal(t, "Unknown", Mode(42).String())
	})
	t.Run("nil policy", func(t *testing.T) {
		var r *Reentrancy
		assert.False(t, r.IsReentrant())
		assert.False(t, r.MayInterleave(plain))
	})
}
