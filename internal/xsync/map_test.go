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

package xsync

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMap(t *testing.T) {
	t.Run("set get delete", func(t *testing.T) {
		m := NewMap[string, int]()
		m.Set("a", 1)
		m.Set("b", 2)

		val, ok := m.Get("a")
		require.True(t, ok)
		assert.Equal(t, 1, val)
		assert.Equal(t, 2, m.Len())
		assert.ElementsMatch(t, []string{"a", "b"}, m.Keys())
		assert.ElementsMatch(t, []int{1, 2}, m.Values())

		m.Delete("a")
		_, ok = m.Get("a")
		assert.False(t, ok)

		val, ok = m.LoadAndDelete("b")
		require.True(t, ok)
		assert.Equal(t, 2, val)
		_, ok = m.LoadAndDelete("b")
		assert.False(t, ok)
		assert.Zero(t, m.Len())
	})
	t.Run("get or set creates once", func(t *testing.T) {
		m := NewMap[string, int]()
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			created int
		)
		for range 32 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				m.GetOrSet("k", func() int {
					mu.Lock()
					created++
					mu.Unlock()
					return 42
				})
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, created)
		val, loaded := m.GetOrSet("k", func() int { return 0 })
		assert.True(t, loaded)
		assert.Equal(t, 42, val)
	})
	t.Run("range and reset", func(t *testing.T) {
		m := NewMap[int, int]()
		for i := range 10 {
			m.Set(i, i*i)
		}
		sum := 0
		m.Range(func(_ int, v int) { sum += v })
		assert.Equal(t, 285, sum)
		m.Reset()
		assert.Zero(t, m.Len())
	})
	t.Run("delete if", func(t *testing.T) {
		m := NewMap[string, int]()
		m.Set("a", 1)
		assert.False(t, m.DeleteIf("a", func(v int) bool { return v == 2 }))
		assert.False(t, m.DeleteIf("missing", func(int) bool { return true }))
		assert.True(t, m.DeleteIf("a", func(v int) bool { return v == 1 }))
		assert.Zero(t, m.Len())
	})
}
