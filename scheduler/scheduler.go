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

// Package scheduler executes the units of work produced by the dispatcher.
//
// Every unit of work is queued against a Context. Activation contexts carry
// the work of one activation while the system context carries forwarding,
// resending and directory maintenance that must never run under an
// activation lock.
package scheduler

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"go.uber.org/atomic"

	gerrors "github.com/tochemey/graindispatch/errors"
	"github.com/tochemey/graindispatch/internal/workerpool"
	"github.com/tochemey/graindispatch/log"
)

// Kind tells what a Context schedules.
type Kind int

const (
	// SystemKind schedules runtime maintenance work.
	SystemKind Kind = iota
	// ActivationKind schedules the work of one activation.
	ActivationKind
)

// Context names the execution context of a work item.
type Context struct {
	Kind Kind
	Name string
	// Ordered contexts run their work items one at a time, in queue order.
	Ordered bool
}

// SystemContext returns the system context called name.
func SystemContext(name string) Context {
	return Context{Kind: SystemKind, Name: name}
}

// OrderedContext returns the system context called name whose work items run
// one after the other in the order they were queued.
func OrderedContext(name string) Context {
	return Context{Kind: SystemKind, Name: name, Ordered: true}
}

// ActivationContext returns the context of the activation identified by name.
func ActivationContext(name string) Context {
	return Context{Kind: ActivationKind, Name: name}
}

// String returns a readable form of the context.
func (c Context) String() string {
	if c.Kind == SystemKind {
		return "system:" + c.Name
	}
	return "activation:" + c.Name
}

// WorkItem is a unit of work.
type WorkItem interface {
	// Name describes the work for logs.
	Name() string
	// Execute runs the work. ctx is canceled when the scheduler stops.
	Execute(ctx context.Context)
}

// Scheduler is the execution contract consumed by the dispatcher.
type Scheduler interface {
	// QueueWorkItem enqueues item on the given context.
	QueueWorkItem(item WorkItem, sctx Context) error
	// QueueAction enqueues fn on the given context.
	QueueAction(sctx Context, name string, fn func(ctx context.Context)) error
}

// ClosureWorkItem adapts a function to WorkItem.
type ClosureWorkItem struct {
	name string
	fn   func(ctx context.Context)
}

var _ WorkItem = (*ClosureWorkItem)(nil)

// NewClosureWorkItem creates a ClosureWorkItem.
func NewClosureWorkItem(name string, fn func(ctx context.Context)) *ClosureWorkItem {
	return &ClosureWorkItem{name: name, fn: fn}
}

// Name implements WorkItem.
func (c *ClosureWorkItem) Name() string {
	return c.name
}

// Execute implements WorkItem.
func (c *ClosureWorkItem) Execute(ctx context.Context) {
	c.fn(ctx)
}

// Pool is a Scheduler running every work item on a goroutine of a sharded
// worker pool. Work items of the same context land on the same shard. Work
// items of an ordered context are chained on a lane drained by one worker.
type Pool struct {
	workers *workerpool.WorkerPool
	logger  log.Logger

	lanesMu sync.Mutex
	lanes   map[string]*lane

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	started *atomic.Bool
}

var _ Scheduler = (*Pool)(nil)

// NewPool creates a Pool with numShards shards.
func NewPool(logger log.Logger, numShards int) *Pool {
	if logger == nil {
		logger = log.DiscardLogger
	}
	return &Pool{
		workers: workerpool.New(workerpool.WithNumShards(numShards)),
		logger:  logger,
		lanes:   make(map[string]*lane),
		started: atomic.NewBool(false),
	}
}

// Start starts the pool. Work items run under a context derived from ctx.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started.Load() {
		return
	}
	p.ctx, p.cancel = context.WithCancel(context.WithoutCancel(ctx))
	p.workers.Start()
	p.started.Store(true)
}

// Stop cancels the context handed to running work items and waits for them.
func (p *Pool) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started.Swap(false) {
		return
	}
	p.cancel()
	p.workers.Stop()
}

// QueueWorkItem implements Scheduler.
func (p *Pool) QueueWorkItem(item WorkItem, sctx Context) error {
	if !p.started.Load() {
		return gerrors.ErrSchedulerStopped
	}
	ctx := p.ctx
	run := func() { p.execute(ctx, item, sctx) }
	if sctx.Ordered {
		return p.queueOrdered(sctx, run)
	}
	return p.submit(sctx, run)
}

func (p *Pool) submit(sctx Context, task func()) error {
	if err := p.workers.Submit(sctx.Name, task); err != nil {
		return fmt.Errorf("%s: %w", err.Error(), gerrors.ErrSchedulerStopped)
	}
	return nil
}

// lane holds the work items of an ordered context waiting behind the one
// being executed.
type lane struct {
	pending []func()
}

// queueOrdered appends task to the lane of sctx. A lane without a drainer gets
// one submitted to the pool.
func (p *Pool) queueOrdered(sctx Context, task func()) error {
	p.lanesMu.Lock()
	if l, ok := p.lanes[sctx.Name]; ok {
		l.pending = append(l.pending, task)
		p.lanesMu.Unlock()
		return nil
	}
	p.lanes[sctx.Name] = &lane{}
	p.lanesMu.Unlock()

	if err := p.submit(sctx, func() { p.drain(sctx.Name, task) }); err != nil {
		p.lanesMu.Lock()
		delete(p.lanes, sctx.Name)
		p.lanesMu.Unlock()
		return err
	}
	return nil
}

// drain runs task then every item queued on the lane behind it. The lane is
// removed once empty.
func (p *Pool) drain(name string, task func()) {
	for task != nil {
		task()

		p.lanesMu.Lock()
		l := p.lanes[name]
		if len(l.pending) == 0 {
			delete(p.lanes, name)
			task = nil
		} else {
			task = l.pending[0]
			l.pending[0] = nil
			l.pending = l.pending[1:]
		}
		p.lanesMu.Unlock()
	}
}

// QueueAction implements Scheduler.
func (p *Pool) QueueAction(sctx Context, name string, fn func(ctx context.Context)) error {
	return p.QueueWorkItem(NewClosureWorkItem(name, fn), sctx)
}

func (p *Pool) execute(ctx context.Context, item WorkItem, sctx Context) {
	defer func() {
		if r := recover(); r != nil {
			if _, file, line, ok := runtime.Caller(2); ok {
				p.logger.Errorf("work item %s on %s panicked at %s:%d: %v", item.Name(), sctx.String(), file, line, r)
				return
			}
			p.logger.Errorf("work item %s on %s panicked: %v", item.Name(), sctx.String(), r)
		}
	}()
	item.Execute(ctx)
}
