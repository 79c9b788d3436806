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

	"github.com/tochemey/graindispatch/address"
	gerrors "github.com/tochemey/graindispatch/errors"
	"github.com/tochemey/graindispatch/message"
)

// processRequestToInvalidActivationLocked routes a request that reached a
// terminal activation. Requests queued on an activation that failed to
// activate are rejected; the others are forwarded.
func (d *Dispatcher) processRequestToInvalidActivationLocked(ctx context.Context, target *Activation, msg *message.Message, failedOperation string) {
	reject := target.state == FailedToActivate
	cause := error(gerrors.ErrInvalidActivation)
	if reject {
		cause = gerrors.ErrActivationFailure
	}
	d.ProcessRequestsToInvalidActivation(ctx, []*message.Message{msg}, target.address, target.forwardingAddress, failedOperation, reject, cause)
}

// ProcessRequestsToInvalidActivation forwards, or rejects when rejectMessages
// is set, the requests that reached the invalid activation oldAddress. The
// work is queued so that it never runs under an activation lock.
func (d *Dispatcher) ProcessRequestsToInvalidActivation(ctx context.Context, msgs []*message.Message, oldAddress, forwardAddress address.ActivationAddress, failedOperation string, rejectMessages bool, cause error) {
	if len(msgs) == 0 {
		return
	}

	d.queue("process-invalid-activation", func(ctx context.Context) {
		for _, msg := range msgs {
			if rejectMessages {
				info := fmt.Sprintf("Activation %s failed during %s", oldAddress.String(), failedOperation)
				d.RejectMessage(ctx, msg, message.Transient, cause, info)
				continue
			}
			d.tryForwardRequest(ctx, msg, oldAddress, forwardAddress, failedOperation, cause)
		}
	})
}

// processRequestToStuckActivation deactivates a stuck activation and rejects
// the request that found it stuck. The waiting requests are forwarded by the
// deactivation.
func (d *Dispatcher) processRequestToStuckActivation(ctx context.Context, target *Activation, msg *message.Message) {
	running := target.blockingForLocked(d.now())
	d.logger.Warnf("Received request %s for stuck activation %s. Current request %s has been running for %s.",
		msg.String(), target.address.String(), target.blocking.String(), running)

	if err := d.scheduler.QueueAction(catalogContext, "deactivate-stuck", func(ctx context.Context) {
		d.catalog.deactivateStuck(ctx, target)
		info := fmt.Sprintf("Target activation %s is stuck", target.address.String())
		d.RejectMessage(ctx, msg, message.Transient, gerrors.ErrInvalidActivation, info)
	}); err != nil {
		d.logger.Warnf("failed to schedule the deactivation of stuck activation %s: %v", target.address.String(), err)
		d.RejectMessage(ctx, msg, message.Transient, err, "Target activation is stuck")
	}
}

// deactivateAndForwardLocked deactivates target and parks msg on it so that
// msg is forwarded once the activation is invalid.
func (d *Dispatcher) deactivateAndForwardLocked(ctx context.Context, target *Activation, msg *message.Message, reason string) {
	d.catalog.beginDeactivationLocked(target)
	if err := target.enqueueLocked(msg); err != nil {
		d.processRequestToInvalidActivationLocked(ctx, target, msg, reason)
	}
}

// tryForwardRequest sends msg again towards the grain it targets.
//
// With a forwarding address the message goes straight there. Otherwise it is
// re-addressed through placement, except when it came from a silo that left
// the cluster view: it then goes back to its sender silo.
func (d *Dispatcher) tryForwardRequest(ctx context.Context, msg *message.Message, oldAddress, forwardAddress address.ActivationAddress, failedOperation string, cause error) {
	d.logger.Infof("Trying to forward %s after %s", msg.String(), failedOperation)

	sender := msg.SendingAddress.Silo
	if forwardAddress.IsZero() &&
		!sender.IsZero() &&
		msg.TargetAddress.Silo != sender &&
		!d.config.directory.IsSiloInCluster(sender) {
		msg.IsReturnedFromRemoteCluster = true
		forwardAddress = address.NewActivationAddress(sender, msg.TargetGrain())
	}

	if !oldAddress.IsZero() {
		msg.AddToCacheInvalidationHeader(oldAddress)
		d.config.directory.InvalidateCacheEntry(oldAddress)
	}

	var rejection *message.Message
	if msg.Direction == message.OneWay {
		rejection = msg.CreateRejectionResponse(message.CacheInvalidation, "OneWay message sent to invalid activation", cause)
	}

	forwarded := d.tryForwardMessage(ctx, msg, forwardAddress)

	if rejection != nil {
		d.metric.RecordRejected(ctx, message.CacheInvalidation.String())
		if err := d.SendMessage(ctx, rejection); err != nil {
			d.logger.Warnf("failed to send cache invalidation to %s: %v", rejection.TargetAddress.String(), err)
		}
		return
	}

	if !forwarded {
		info := fmt.Sprintf("Forwarding failed: tried to forward message %s for %d times after %s to invalid activation. Rejecting now.",
			msg.String(), msg.ForwardCount, failedOperation)
		d.RejectMessage(ctx, msg, message.Transient, gerrors.ErrForwardLimitReached, info)
	}
}

// tryForwardMessage forwards msg unless its forward budget is spent.
func (d *Dispatcher) tryForwardMessage(ctx context.Context, msg *message.Message, forwardAddress address.ActivationAddress) bool {
	if !msg.MayForward(d.config.maxForwardCount) {
		return false
	}

	msg.ForwardCount++
	d.metric.RecordForwarded(ctx)
	d.resendMessage(ctx, msg, forwardAddress)
	return true
}

// resendMessage retargets msg and sends it. Without a forwarding address the
// target is reset to the grain and placement picks the activation again.
func (d *Dispatcher) resendMessage(ctx context.Context, msg *message.Message, forwardAddress address.ActivationAddress) {
	if forwardAddress.IsZero() {
		msg.TargetAddress = address.NewGrainAddress(msg.TargetGrain())
	} else {
		msg.TargetAddress = forwardAddress
	}
	msg.IsNewPlacement = false

	if err := d.SendMessage(ctx, msg); err != nil {
		d.logger.Warnf("failed to resend %s: %v", msg.String(), err)
	}
}
