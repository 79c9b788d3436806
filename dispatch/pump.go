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
	"fmt"

	"github.com/tochemey/graindispatch/message"
	"github.com/tochemey/graindispatch/versions"
)

// runMessagePumpLocked admits the waiting requests of target for as long as
// the head of the queue may run. It stops at the first request that may not,
// so ordered senders are never overtaken.
func (d *Dispatcher) runMessagePumpLocked(ctx context.Context, target *Activation) {
	for target.state == Valid {
		next, ok := target.peekLocked()
		if !ok {
			return
		}

		if next.IsExpired(d.now()) {
			target.dequeueLocked()
			d.logger.Warnf("Dropping expired message %s waiting on %s", next.String(), target.address.String())
			d.metric.RecordExpired(ctx)
			continue
		}

		if !d.activationMayAcceptRequestLocked(target, next) {
			return
		}

		target.dequeueLocked()
		d.handleIncomingRequestLocked(ctx, target, next)
	}
}

// handleIncomingRequestLocked starts executing an admitted request.
func (d *Dispatcher) handleIncomingRequestLocked(ctx context.Context, target *Activation, msg *message.Message) {
	if target.state.IsTerminal() {
		d.processRequestToInvalidActivationLocked(ctx, target, msg, "HandleIncomingRequest")
		return
	}

	if msg.InterfaceVersion != "" && !d.config.resolver.IsCompatible(msg.InterfaceID, msg.InterfaceVersion) {
		current, _ := currentVersion(d.config.resolver, msg.InterfaceID)
		d.logger.Warnf("Incompatible interface version for %s (requested=%s, current=%s). Deactivating %s.",
			msg.String(), msg.InterfaceVersion, current, target.address.String())
		msg.AddToCacheInvalidationHeader(target.address)
		d.deactivateAndForwardLocked(ctx, target, msg, "incompatible version")
		return
	}

	target.recordRunningLocked(msg, d.now())
	item := newInvokeWorkItem(d, target, msg)
	if err := d.scheduler.QueueWorkItem(item, target.schedulingContext()); err != nil {
		target.resetRunningLocked(msg, d.now())
		d.logger.Errorf("failed to schedule %s on %s: %v", msg.String(), target.address.String(), err)
		d.RejectMessage(ctx, msg, message.Transient, err, "Failed to schedule the request")
	}
}

// OnActivationCompletedRequest is called once a request finished executing on
// target. It releases the request and pumps what waits behind it.
func (d *Dispatcher) OnActivationCompletedRequest(ctx context.Context, target *Activation, msg *message.Message) {
	var inactive []func()

	target.mu.Lock()
	target.resetRunningLocked(msg, d.now())
	if !target.isExecutingLocked() {
		inactive = target.takeOnInactiveLocked()
	}
	d.runMessagePumpLocked(ctx, target)
	target.mu.Unlock()

	target.touch(d.now())
	for _, callback := range inactive {
		callback()
	}
}

func currentVersion(resolver versions.Resolver, interfaceID int32) (string, bool) {
	type versioned interface {
		CurrentVersion(interfaceID int32) (string, bool)
	}
	if v, ok := resolver.(versioned); ok {
		return v.CurrentVersion(interfaceID)
	}
	return "unknown", false
}

func invokeItemName(msg *message.Message) string {
	return fmt.Sprintf("invoke-%d", msg.ID)
}
