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
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tochemey/graindispatch/address"
	gerrors "github.com/tochemey/graindispatch/errors"
	"github.com/tochemey/graindispatch/message"
)

// ReceiveMessage is the entry point of every message delivered to this silo,
// request or response. It never returns an error: every message ends up
// dropped, queued, executed, forwarded or rejected.
func (d *Dispatcher) ReceiveMessage(ctx context.Context, msg *message.Message) {
	if msg == nil {
		return
	}

	if !d.started.Load() {
		d.logger.Warnf("dispatcher is not started, dropping %s", msg.String())
		return
	}

	d.metric.RecordReceived(ctx, msg.Direction.String())

	if d.config.dropExpiredMessages && msg.IsExpired(d.now()) {
		d.logger.Warnf("Dropping expired message %s", msg.String())
		d.metric.RecordExpired(ctx)
		return
	}

	if msg.Direction == message.Request && d.injectError(ctx, msg) {
		return
	}

	if msg.Direction == message.Response && msg.TargetGrain().Type == ClientGrainType {
		d.deliverResponse(ctx, msg)
		return
	}

	target, err := d.catalog.GetOrCreateActivation(ctx, msg.TargetAddress, msg.IsNewPlacement)
	if err != nil {
		d.receiveForUnknownActivation(ctx, msg, err)
		return
	}

	if msg.Direction == message.Response {
		d.receiveResponse(ctx, msg, target)
		return
	}

	// a fresh placement may have named another activation of the same grain
	msg.TargetAddress = target.address
	d.receiveRequest(ctx, msg, target)
	target.touch(d.now())
}

// receiveForUnknownActivation handles a message whose target activation could
// neither be found nor created.
func (d *Dispatcher) receiveForUnknownActivation(ctx context.Context, msg *message.Message, err error) {
	var nonExistent *gerrors.NonExistentActivationError
	if !errors.As(err, &nonExistent) {
		d.logger.Warnf("failed to get or create activation for %s: %v", msg.String(), err)
		d.RejectMessage(ctx, msg, message.Transient, err, fmt.Sprintf("Error creating activation for %s", msg.TargetAddress.String()))
		return
	}

	stale := msg.TargetAddress
	if msg.Direction == message.Response {
		d.logger.Warnf("Received response %s for non-existent activation %s. Dropping it.", msg.String(), stale.String())
		d.config.directory.InvalidateCacheEntry(stale)
		return
	}

	d.logger.Infof("Intermediate NonExistentActivation for message %s", msg.String())
	origin := msg.SendingAddress.Silo
	d.queue("unregister-nonexistent", func(ctx context.Context) {
		if err := d.config.directory.UnregisterAfterNonexistingActivation(ctx, stale, origin); err != nil {
			d.logger.Warnf("failed to unregister non-existent activation %s: %v", stale.String(), err)
		}
		d.tryForwardRequest(ctx, msg, stale, address.ActivationAddress{}, "NonExistentActivation", err)
	})
}

// receiveResponse delivers a response to the request waiting for it.
func (d *Dispatcher) receiveResponse(ctx context.Context, msg *message.Message, target *Activation) {
	target.mu.Lock()
	state := target.state
	target.mu.Unlock()

	if state.IsTerminal() {
		d.logger.Warnf("Response %s received for invalid activation %s. Dropping it.", msg.String(), target.address.String())
		return
	}

	d.deliverResponse(ctx, msg)
}

// receiveRequest runs the reception gate of a request.
func (d *Dispatcher) receiveRequest(ctx context.Context, msg *message.Message, target *Activation) {
	target.mu.Lock()
	defer target.mu.Unlock()

	if target.state.IsTerminal() {
		d.processRequestToInvalidActivationLocked(ctx, target, msg, "ReceiveRequest")
		return
	}

	if d.activationMayAcceptRequestLocked(target, msg) {
		d.handleIncomingRequestLocked(ctx, target, msg)
		return
	}

	if d.config.deadlockDetection && msg.Direction == message.Request {
		if err := d.checkDeadlockLocked(target, msg); err != nil {
			d.logger.Warnf("Deadlock detected for %s: %v", msg.String(), err)
			d.metric.RecordDeadlock(ctx)
			d.SendResponse(ctx, msg, msg.CreateErrorResponse(err))
			return
		}
	}

	if d.isStuckLocked(target) {
		d.processRequestToStuckActivation(ctx, target, msg)
		return
	}

	d.enqueueRequestLocked(ctx, target, msg)
}

// ActivationMayAcceptRequest reports whether msg may start executing on target now.
func (d *Dispatcher) ActivationMayAcceptRequest(target *Activation, msg *message.Message) bool {
	target.mu.Lock()
	defer target.mu.Unlock()
	return d.activationMayAcceptRequestLocked(target, msg)
}

func (d *Dispatcher) activationMayAcceptRequestLocked(target *Activation, msg *message.Message) bool {
	if target.state != Valid {
		return false
	}
	if !target.isExecutingLocked() {
		return true
	}
	return d.canInterleaveLocked(target, msg)
}

// CanInterleave reports whether msg may run alongside the request currently
// executing on target.
func (d *Dispatcher) CanInterleave(target *Activation, msg *message.Message) bool {
	target.mu.Lock()
	defer target.mu.Unlock()
	return d.canInterleaveLocked(target, msg)
}

func (d *Dispatcher) canInterleaveLocked(target *Activation, msg *message.Message) bool {
	policy := target.kind.reentrancy
	running := target.blocking
	switch {
	case policy.IsReentrant():
		return true
	case msg.IsAlwaysInterleave:
		return true
	case running == nil:
		return true
	case running.IsReadOnly && msg.IsReadOnly:
		return true
	default:
		return policy.MayInterleave(msg)
	}
}

// checkDeadlockLocked walks the call chain of msg looking for target. Finding
// it means the request waits, directly or not, on itself.
func (d *Dispatcher) checkDeadlockLocked(target *Activation, msg *message.Message) error {
	if target.kind.reentrancy.IsReentrant() {
		return nil
	}

	chain := msg.CallChain
	if depth := d.config.maxCallChainDepth; depth > 0 && len(chain) > depth {
		chain = chain[len(chain)-depth:]
	}

	for _, entry := range chain {
		if entry.Activation != target.address.Activation {
			continue
		}

		calls := make([]string, 0, len(msg.CallChain)+1)
		for _, hop := range msg.CallChain {
			calls = append(calls, hop.String())
		}
		calls = append(calls, message.CallChainEntry{
			Grain:       target.address.Grain,
			Activation:  target.address.Activation,
			InterfaceID: msg.InterfaceID,
			MethodID:    msg.MethodID,
		}.String())
		return gerrors.NewDeadlockError(calls)
	}
	return nil
}

// isStuckLocked reports whether the blocking request of target exceeded the
// maximum processing time. Requests exceeding the warning threshold are logged once.
func (d *Dispatcher) isStuckLocked(target *Activation) bool {
	running := target.blockingForLocked(d.now())
	if running <= 0 {
		return false
	}

	if running > d.config.maxRequestProcessingTime {
		return true
	}

	if running > d.config.maxWarningRequestProcessingTime && !target.longRunWarned {
		target.longRunWarned = true
		d.logger.Warnf("Current request %s has been running on %s for %s, longer than %s",
			target.blocking.String(), target.address.String(), running.Round(time.Millisecond), d.config.maxWarningRequestProcessingTime)
	}
	return false
}

// enqueueRequestLocked parks msg on the waiting queue of target unless the
// overload policy refuses it.
func (d *Dispatcher) enqueueRequestLocked(ctx context.Context, target *Activation, msg *message.Message) {
	verdict, err := d.config.overloadPolicy.CheckOverloaded(Load{
		Target:  target.address.String(),
		Running: len(target.running),
		Waiting: int(target.waiting.Len()),
	})

	switch verdict {
	case Reject:
		d.logger.Warnf("Overload - %s on %s: %v", msg.String(), target.address.String(), err)
		d.RejectMessage(ctx, msg, message.Overloaded, err, fmt.Sprintf("Target %s is overloaded", target.address.String()))
		return
	case AdmitWithWarning:
		d.logger.Infof("Queue length warning for %s: %v", target.address.String(), err)
	}

	if err := target.enqueueLocked(msg); err != nil {
		d.processRequestToInvalidActivationLocked(ctx, target, msg, "EnqueueRequest")
		return
	}
	d.metric.RecordEnqueued(ctx)
}

// injectError applies the configured error injection. It returns true when
// msg must not be processed any further.
func (d *Dispatcher) injectError(ctx context.Context, msg *message.Message) bool {
	rejectRate := d.config.rejectionInjectionRate
	lossRate := d.config.messageLossInjectionRate
	if rejectRate <= 0 && lossRate <= 0 {
		return false
	}

	if rejectRate > 0 && d.config.random() < rejectRate {
		d.logger.Infof("Injecting a rejection for %s", msg.String())
		d.RejectMessage(ctx, msg, message.Unrecoverable, gerrors.ErrInjectedRejection, "Injected rejection")
		return true
	}

	if lossRate > 0 && d.config.random() < lossRate {
		d.logger.Infof("Injecting a message loss for %s", msg.String())
		return true
	}
	return false
}
