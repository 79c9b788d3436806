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
	"fmt"
	"sync"
	"time"

	"github.com/Workiva/go-datastructures/queue"
	"go.uber.org/atomic"

	"github.com/tochemey/graindispatch/address"
	"github.com/tochemey/graindispatch/message"
	"github.com/tochemey/graindispatch/scheduler"
)

// Activation is one in-memory instance of a grain.
//
// Every field below mu is guarded by it. Methods with the Locked suffix expect
// the caller to hold mu.
type Activation struct {
	address address.ActivationAddress
	kind    *GrainKind

	// lastActivity is read by the idle collector without taking mu
	lastActivity *atomic.Time
	// deactivated is closed once the activation reached a terminal state
	deactivated chan struct{}

	mu                sync.Mutex
	state             State
	grain             Grain
	forwardingAddress address.ActivationAddress
	// running holds every executing message, interleaved ones included
	running map[*message.Message]struct{}
	// blocking is the executing message other requests must interleave with
	blocking       *message.Message
	blockingSince  time.Time
	longRunWarned  bool
	waiting        *queue.Queue
	onInactive     []func()
	deactivateErr  error
	deactivateOnce sync.Once
}

func newActivation(addr address.ActivationAddress, kind *GrainKind, now time.Time) *Activation {
	return &Activation{
		address:      addr,
		kind:         kind,
		lastActivity: atomic.NewTime(now),
		deactivated:  make(chan struct{}),
		state:        Creating,
		running:      make(map[*message.Message]struct{}),
		waiting:      queue.New(8),
	}
}

// Address returns the address of the activation
func (a *Activation) Address() address.ActivationAddress {
	return a.address
}

// Kind returns the grain kind of the activation
func (a *Activation) Kind() *GrainKind {
	return a.kind
}

// State returns the current lifecycle state
func (a *Activation) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// ForwardingAddress returns the activation superseding this one, if any
func (a *Activation) ForwardingAddress() (address.ActivationAddress, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.forwardingAddress, !a.forwardingAddress.IsZero()
}

// SetForwardingAddress records the activation messages should be redirected to
func (a *Activation) SetForwardingAddress(addr address.ActivationAddress) {
	a.mu.Lock()
	a.forwardingAddress = addr
	a.mu.Unlock()
}

// IsCurrentlyExecuting reports whether any message is running
func (a *Activation) IsCurrentlyExecuting() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.isExecutingLocked()
}

// Running returns the message other requests must interleave with
func (a *Activation) Running() *message.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.blocking
}

// RunningCount returns the number of executing messages
func (a *Activation) RunningCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.running)
}

// WaitingCount returns the number of queued messages
func (a *Activation) WaitingCount() int {
	return int(a.waiting.Len())
}

// LastActivity returns the time of the last received or completed request
func (a *Activation) LastActivity() time.Time {
	return a.lastActivity.Load()
}

// Deactivated returns a channel closed once the activation is terminal
func (a *Activation) Deactivated() <-chan struct{} {
	return a.deactivated
}

// String returns the activation address and state
func (a *Activation) String() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return fmt.Sprintf("[Activation: %s State=%s Running=%d Waiting=%d]", a.address.String(), a.state, len(a.running), a.waiting.Len())
}

func (a *Activation) schedulingContext() scheduler.Context {
	return scheduler.ActivationContext(a.address.String())
}

func (a *Activation) touch(now time.Time) {
	a.lastActivity.Store(now)
}

func (a *Activation) isExecutingLocked() bool {
	return len(a.running) > 0
}

func (a *Activation) setStateLocked(to State) bool {
	if !canTransition(a.state, to) {
		return false
	}
	a.state = to
	return true
}

// recordRunningLocked marks msg as executing. The first message that does not
// interleave by itself becomes the blocking one.
func (a *Activation) recordRunningLocked(msg *message.Message, now time.Time) {
	a.running[msg] = struct{}{}
	if a.blocking != nil || msg.IsAlwaysInterleave {
		return
	}
	a.blocking = msg
	a.blockingSince = now
	a.longRunWarned = false
}

// resetRunningLocked removes msg from the executing set. When msg was blocking,
// the remaining executing message that interleaves the least takes its place.
func (a *Activation) resetRunningLocked(msg *message.Message, now time.Time) {
	delete(a.running, msg)
	if a.blocking != msg {
		return
	}

	a.blocking = nil
	for candidate := range a.running {
		if candidate.IsAlwaysInterleave {
			continue
		}
		if a.blocking == nil || (a.blocking.IsReadOnly && !candidate.IsReadOnly) {
			a.blocking = candidate
		}
	}

	if a.blocking != nil {
		a.blockingSince = now
		a.longRunWarned = false
	}
}

func (a *Activation) blockingForLocked(now time.Time) time.Duration {
	if a.blocking == nil {
		return 0
	}
	return now.Sub(a.blockingSince)
}

func (a *Activation) enqueueLocked(msg *message.Message) error {
	return a.waiting.Put(msg)
}

func (a *Activation) peekLocked() (*message.Message, bool) {
	if a.waiting.Empty() {
		return nil, false
	}
	item, err := a.waiting.Peek()
	if err != nil {
		return nil, false
	}
	msg, ok := item.(*message.Message)
	return msg, ok
}

// dequeueLocked pops the head of the waiting queue. It is only called after a
// successful peek, so Get never blocks.
func (a *Activation) dequeueLocked() *message.Message {
	items, err := a.waiting.Get(1)
	if err != nil || len(items) == 0 {
		return nil
	}
	msg, _ := items[0].(*message.Message)
	return msg
}

// drainLocked disposes the waiting queue and returns what it held. Further
// enqueue attempts fail.
func (a *Activation) drainLocked() []*message.Message {
	items := a.waiting.Dispose()
	messages := make([]*message.Message, 0, len(items))
	for _, item := range items {
		if msg, ok := item.(*message.Message); ok {
			messages = append(messages, msg)
		}
	}
	return messages
}

func (a *Activation) addOnInactiveLocked(fn func()) {
	a.onInactive = append(a.onInactive, fn)
}

func (a *Activation) takeOnInactiveLocked() []func() {
	callbacks := a.onInactive
	a.onInactive = nil
	return callbacks
}

func (a *Activation) markDeactivated(err error) {
	a.deactivateOnce.Do(func() {
		a.mu.Lock()
		a.deactivateErr = err
		a.mu.Unlock()
		close(a.deactivated)
	})
}

func (a *Activation) deactivationError() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.deactivateErr
}
