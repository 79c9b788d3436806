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

package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
	"go.uber.org/goleak"

	gerrors "github.com/tochemey/graindispatch/errors"
	"github.com/tochemey/graindispatch/log"
)

func TestContext(t *testing.T) {
	assert.Equal(t, "system:forwarding", SystemContext("forwarding").String())
	assert.Equal(t, "activation:a", ActivationContext("a").String())
	assert.Equal(t, ActivationKind, ActivationContext("a").Kind)
	assert.True(t, OrderedContext("deliver").Ordered)
	assert.Equal(t, SystemKind, OrderedContext("deliver").Kind)
	assert.False(t, SystemContext("forwarding").Ordered)
}

func TestPool(t *testing.T) {
	t.Run("runs work items", func(t *testing.T) {
		defer goleak.VerifyNone(t)

		pool := NewPool(log.DiscardLogger, 4)
		pool.Start(context.Background())

		var wg sync.WaitGroup
		counter := atomic.NewInt32(0)
		for i := range 20 {
			wg.Add(1)
			sctx := ActivationContext("a")
			if i%2 == 0 {
				sctx = SystemContext("forwarding")
			}
			require.NoError(t, pool.QueueAction(sctx, "count", func(context.Context) {
				defer wg.Done()
				counter.Inc()
			}))
		}
		wg.Wait()
		assert.EqualValues(t, 20, counter.Load())
		pool.Stop()
	})
	t.Run("runs ordered work items in queue order", func(t *testing.T) {
		defer goleak.VerifyNone(t)

		pool := NewPool(log.DiscardLogger, 4)
		pool.Start(context.Background())

		const items = 500
		var (
			mu   sync.Mutex
			seen []int
			wg   sync.WaitGroup
		)
		for i := range items {
			wg.Add(1)
			sctx := OrderedContext("deliver/a")
			if i%2 == 1 {
				sctx = OrderedContext("deliver/b")
			}
			require.NoError(t, pool.QueueAction(sctx, "record", func(context.Context) {
				defer wg.Done()
				mu.Lock()
				seen = append(seen, i)
				mu.Unlock()
			}))
		}
		wg.Wait()

		var even, odd []int
		for _, i := range seen {
			if i%2 == 0 {
				even = append(even, i)
				continue
			}
			odd = append(odd, i)
		}
		assert.IsIncreasing(t, even)
		assert.IsIncreasing(t, odd)
		assert.Len(t, seen, items)

		require.Eventually(t, func() bool {
			pool.lanesMu.Lock()
			defer pool.lanesMu.Unlock()
			return len(pool.lanes) == 0
		}, time.Second, 5*time.Millisecond)
		pool.Stop()
	})
	t.Run("keeps an ordered lane alive after a panic", func(t *testing.T) {
		defer goleak.VerifyNone(t)

		pool := NewPool(log.DiscardLogger, 1)
		pool.Start(context.Background())

		done := make(chan struct{})
		require.NoError(t, pool.QueueAction(OrderedContext("lane"), "boom", func(context.Context) { panic("boom") }))
		require.NoError(t, pool.QueueAction(OrderedContext("lane"), "after", func(context.Context) { close(done) }))

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("ordered lane stalled after a panicking work item")
		}
		pool.Stop()
	})
	t.Run("cancels the work context on stop", func(t *testing.T) {
		defer goleak.VerifyNone(t)

		pool := NewPool(nil, 1)
		pool.Start(context.Background())

		started := make(chan struct{})
		canceled := atomic.NewBool(false)
		require.NoError(t, pool.QueueWorkItem(NewClosureWorkItem("wait", func(ctx context.Context) {
			close(started)
			<-ctx.Done()
			canceled.Store(true)
		}), SystemContext("s")))

		<-started
		pool.Stop()
		assert.True(t, canceled.Load())
	})
	t.Run("recovers panics", func(t *testing.T) {
		defer goleak.VerifyNone(t)

		pool := NewPool(log.DiscardLogger, 1)
		pool.Start(context.Background())

		done := make(chan struct{})
		require.NoError(t, pool.QueueAction(SystemContext("s"), "boom", func(context.Context) { panic("boom") }))
		require.NoError(t, pool.QueueAction(SystemContext("s"), "after", func(context.Context) { close(done) }))

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("pool did not survive a panicking work item")
		}
		pool.Stop()
	})
	t.Run("rejects work when stopped", func(t *testing.T) {
		defer goleak.VerifyNone(t)

		pool := NewPool(log.DiscardLogger, 1)
		require.ErrorIs(t, pool.QueueAction(SystemContext("s"), "noop", func(context.Context) {}), gerrors.ErrSchedulerStopped)
		pool.Start(context.Background())
		pool.Start(context.Background())
		pool.Stop()
		pool.Stop()
		require.ErrorIs(t, pool.QueueAction(SystemContext("s"), "noop", func(context.Context) {}), gerrors.ErrSchedulerStopped)
	})
}

func TestClosureWorkItem(t *testing.T) {
	ran := false
	item := NewClosureWorkItem("named", func(context.Context) { ran = true })
	assert.Equal(t, "named", item.Name())
	item.Execute(context.Background())
	assert.True(t, ran)
}

func TestTimers(t *testing.T) {
	ctx := context.Background()

	t.Run("not started", func(t *testing.T) {
		timers := NewTimers(log.DiscardLogger, time.Second)
		require.ErrorIs(t, timers.Once("job", time.Millisecond, func(context.Context) {}), ErrTimersNotStarted)
	})
	t.Run("once and every", func(t *testing.T) {
		timers := NewTimers(nil, time.Second)
		timers.Start(ctx)
		defer timers.Stop(ctx)

		once := atomic.NewInt32(0)
		every := atomic.NewInt32(0)
		require.NoError(t, timers.Once("once", 10*time.Millisecond, func(context.Context) { once.Inc() }))
		require.NoError(t, timers.Every("every", 10*time.Millisecond, func(context.Context) { every.Inc() }))

		require.Eventually(t, func() bool {
			return once.Load() == 1 && every.Load() >= 3
		}, 2*time.Second, 10*time.Millisecond)
		assert.EqualValues(t, 1, once.Load())
	})
}
