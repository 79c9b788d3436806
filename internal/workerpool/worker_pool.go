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

// Package workerpool provides a sharded pool of reusable goroutines.
//
// Work is routed to a shard by hashing a caller supplied key so that callers
// with a stable key contend on the same shard lock only. Every task runs on its
// own worker: a task that blocks never delays another task.
package workerpool

import (
	"errors"
	"sync"
	"time"

	"github.com/zeebo/xxh3"
	"go.uber.org/atomic"

	"github.com/tochemey/graindispatch/internal/ticker"
)

const maxShards = 128

var (
	// ErrNotStarted is returned when work is submitted before Start
	ErrNotStarted = errors.New("worker pool is not started")
	// ErrStopped is returned when work is submitted after Stop
	ErrStopped = errors.New("worker pool is stopped")
)

// WorkerPool manages workers across shards.
type WorkerPool struct {
	idleTimeout time.Duration
	numShards   int
	shards      []*poolShard

	mu      sync.RWMutex
	started *atomic.Bool
	stopped *atomic.Bool
	spawned *atomic.Int64
	wg      sync.WaitGroup

	cleaner     *ticker.Ticker
	stopCleanup chan struct{}
	cleanupDone chan struct{}
}

type worker struct {
	tasks    chan func()
	lastUsed time.Time
}

type poolShard struct {
	wp      *WorkerPool
	mu      sync.Mutex
	idle    []*worker
	stopped bool
}

// New creates a WorkerPool. Call Start before submitting work.
func New(opts ...Option) *WorkerPool {
	wp := &WorkerPool{
		idleTimeout: 30 * time.Second,
		numShards:   1,
		started:     atomic.NewBool(false),
		stopped:     atomic.NewBool(false),
		spawned:     atomic.NewInt64(0),
	}

	for _, opt := range opts {
		opt.Apply(wp)
	}

	if wp.numShards < 1 {
		wp.numShards = 1
	} else if wp.numShards > maxShards {
		wp.numShards = maxShards
	}
	return wp
}

// Start allocates the shards and launches the idle worker reclaimer.
// Calling Start more than once is a no-op.
func (wp *WorkerPool) Start() {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	if wp.started.Load() {
		return
	}

	wp.shards = make([]*poolShard, wp.numShards)
	for i := range wp.shards {
		wp.shards[i] = &poolShard{wp: wp, idle: make([]*worker, 0, 64)}
	}

	wp.cleaner = ticker.New(wp.idleTimeout)
	wp.stopCleanup = make(chan struct{})
	wp.cleanupDone = make(chan struct{})
	wp.cleaner.Start()
	go wp.reclaim()

	wp.started.Store(true)
}

// Stop prevents new submissions, releases idle workers and waits for the
// running tasks to finish.
func (wp *WorkerPool) Stop() {
	wp.mu.Lock()
	if !wp.started.Load() || wp.stopped.Swap(true) {
		wp.mu.Unlock()
		return
	}
	wp.mu.Unlock()

	close(wp.stopCleanup)
	<-wp.cleanupDone
	wp.cleaner.Stop()

	for _, shard := range wp.shards {
		shard.mu.Lock()
		shard.stopped = true
		for i, w := range shard.idle {
			close(w.tasks)
			shard.idle[i] = nil
		}
		shard.idle = shard.idle[:0]
		shard.mu.Unlock()
	}

	wp.wg.Wait()
}

// Submit runs task on a worker of the shard owning key.
func (wp *WorkerPool) Submit(key string, task func()) error {
	wp.mu.RLock()
	if !wp.started.Load() {
		wp.mu.RUnlock()
		return ErrNotStarted
	}
	if wp.stopped.Load() {
		wp.mu.RUnlock()
		return ErrStopped
	}
	shard := wp.shards[xxh3.HashString(key)%uint64(wp.numShards)]
	wp.mu.RUnlock()

	return shard.dispatch(task)
}

// SpawnedWorkers returns the number of live workers.
func (wp *WorkerPool) SpawnedWorkers() int {
	return int(wp.spawned.Load())
}

func (shard *poolShard) dispatch(task func()) error {
	shard.mu.Lock()
	if shard.stopped {
		shard.mu.Unlock()
		return ErrStopped
	}

	if n := len(shard.idle); n > 0 {
		w := shard.idle[n-1]
		shard.idle[n-1] = nil
		shard.idle = shard.idle[:n-1]
		shard.mu.Unlock()
		w.tasks <- task
		return nil
	}

	w := &worker{tasks: make(chan func())}
	shard.wp.wg.Add(1)
	shard.wp.spawned.Inc()
	shard.mu.Unlock()

	go shard.run(w)
	w.tasks <- task
	return nil
}

func (shard *poolShard) run(w *worker) {
	defer func() {
		shard.wp.spawned.Dec()
		shard.wp.wg.Done()
	}()

	for task := range w.tasks {
		task()
		if !shard.release(w) {
			return
		}
	}
}

// release parks w as idle. It returns false when the shard is stopped.
func (shard *poolShard) release(w *worker) bool {
	shard.mu.Lock()
	defer shard.mu.Unlock()
	if shard.stopped {
		return false
	}
	w.lastUsed = time.Now()
	shard.idle = append(shard.idle, w)
	return true
}

// evict closes the workers idle since before cutoff. Idle workers are kept in
// release order so the stale ones form a prefix.
func (shard *poolShard) evict(cutoff time.Time) {
	shard.mu.Lock()
	defer shard.mu.Unlock()
	if shard.stopped {
		return
	}

	pos := 0
	for pos < len(shard.idle) && shard.idle[pos].lastUsed.Before(cutoff) {
		close(shard.idle[pos].tasks)
		shard.idle[pos] = nil
		pos++
	}
	if pos > 0 {
		shard.idle = append(shard.idle[:0], shard.idle[pos:]...)
	}
}

func (wp *WorkerPool) reclaim() {
	defer close(wp.cleanupDone)
	for {
		select {
		case <-wp.stopCleanup:
			return
		case now := <-wp.cleaner.Ticks:
			cutoff := now.Add(-wp.idleTimeout)
			for _, shard := range wp.shards {
				shard.evict(cutoff)
			}
		}
	}
}
