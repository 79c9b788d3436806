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

package workerpool

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
	"go.uber.org/goleak"
)

func TestWorkerPool(t *testing.T) {
	t.Run("runs submitted work", func(t *testing.T) {
		defer goleak.VerifyNone(t)

		pool := New(WithNumShards(4))
		pool.Start()

		var wg sync.WaitGroup
		counter := atomic.NewInt64(0)
		for i := range 100 {
			wg.Add(1)
			key := "key"
			if i%2 == 0 {
				key = "other"
			}
			require.NoError(t, pool.Submit(key, func() {
				defer wg.Done()
				counter.Inc()
			}))
		}
		wg.Wait()
		assert.EqualValues(t, 100, counter.Load())
		pool.Stop()
		assert.Zero(t, pool.SpawnedWorkers())
	})
	t.Run("blocking task does not delay others", func(t *testing.T) {
		defer goleak.VerifyNone(t)

		pool := New()
		pool.Start()

		release := make(chan struct{})
		done := make(chan struct{})
		require.NoError(t, pool.Submit("same", func() { <-release }))
		require.NoError(t, pool.Submit("same", func() { close(done) }))

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("second task was blocked by the first one")
		}
		close(release)
		pool.Stop()
	})
	t.Run("rejects work when not running", func(t *testing.T) {
		defer goleak.VerifyNone(t)

		pool := New()
		require.ErrorIs(t, pool.Submit("k", func() {}), ErrNotStarted)
		pool.Start()
		pool.Stop()
		pool.Stop()
		require.ErrorIs(t, pool.Submit("k", func() {}), ErrStopped)
	})
	t.Run("reclaims idle workers", func(t *testing.T) {
		defer goleak.VerifyNone(t)

		pool := New(WithIdleTimeout(20 * time.Millisecond))
		pool.Start()

		var wg sync.WaitGroup
		wg.Add(1)
		require.NoError(t, pool.Submit("k", wg.Done))
		wg.Wait()

		require.Eventually(t, func() bool {
			return pool.SpawnedWorkers() == 0
		}, time.Second, 10*time.Millisecond)
		pool.Stop()
	})
	t.Run("shard count is bounded", func(t *testing.T) {
		assert.Equal(t, 1, New(WithNumShards(-3)).numShards)
		assert.Equal(t, maxShards, New(WithNumShards(1000)).numShards)
	})
}
