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
	"time"

	"github.com/tochemey/graindispatch/address"
	gerrors "github.com/tochemey/graindispatch/errors"
	"github.com/tochemey/graindispatch/message"
	"github.com/tochemey/graindispatch/scheduler"
)

// SendMessage addresses msg and sends it. Messages for this silo are delivered
// through the scheduler in send order per target grain, the others through the
// transport. A message that cannot be addressed is rejected as Unrecoverable.
func (d *Dispatcher) SendMessage(ctx context.Context, msg *message.Message) error {
	if msg.IsExpired(d.now()) {
		d.logger.Warnf("Dropping expired message %s before sending it", msg.String())
		d.metric.RecordExpired(ctx)
		return gerrors.ErrMessageExpired
	}

	if err := d.addressMessage(ctx, msg); err != nil {
		d.logger.Warnf("failed to address %s: %v", msg.String(), err)
		d.RejectMessage(ctx, msg, message.Unrecoverable, err, "Failed to address the message")
		return err
	}

	if msg.TargetAddress.Silo == d.silo {
		return d.scheduler.QueueAction(deliveryContext(msg), "deliver", func(ctx context.Context) {
			d.ReceiveMessage(ctx, msg)
		})
	}

	if err := d.transport.SendMessage(ctx, msg); err != nil {
		d.logger.Warnf("failed to send %s: %v", msg.String(), err)
		return err
	}
	return nil
}

// deliveryContext returns the context a local message is delivered on. The
// messages bound to one grain share an ordered lane so that they reach the
// reception gate in send order; unordered messages skip it.
func deliveryContext(msg *message.Message) scheduler.Context {
	if msg.IsUnordered {
		return dispatcherContext
	}
	return scheduler.OrderedContext("deliver/" + msg.TargetGrain().String())
}

// addressMessage completes the target of msg through placement.
func (d *Dispatcher) addressMessage(ctx context.Context, msg *message.Message) error {
	if msg.TargetAddress.IsComplete() {
		return nil
	}

	grain := msg.TargetGrain()
	if grain.IsZero() {
		return gerrors.NewErrAddressingFailure(gerrors.ErrInvalidMessage)
	}

	addr, placed, err := d.config.placement.GetOrPlaceActivation(ctx, grain)
	if err != nil {
		return gerrors.NewErrAddressingFailure(err)
	}

	msg.TargetAddress = addr
	msg.IsNewPlacement = placed
	return nil
}

// SendResponse sends the response of request. One-way requests are never answered.
func (d *Dispatcher) SendResponse(ctx context.Context, request, response *message.Message) {
	if request.Direction == message.OneWay {
		return
	}
	if err := d.SendMessage(ctx, response); err != nil {
		d.logger.Warnf("failed to send response %s: %v", response.String(), err)
	}
}

// RejectMessage answers msg with a system rejection. Only requests, and
// one-way calls carrying stale addresses, are answered; other messages are
// logged and dropped.
func (d *Dispatcher) RejectMessage(ctx context.Context, msg *message.Message, rejection message.RejectionType, cause error, info string) {
	if msg.Direction != message.Request && !(msg.Direction == message.OneWay && msg.HasCacheInvalidationHeader()) {
		d.logger.Warnf("Not sending %s rejection for %s since it is not a request. Discarding rejection: %s", rejection, msg.String(), info)
		return
	}

	d.logger.Debugf("Rejecting %s: %s", msg.String(), info)
	d.metric.RecordRejected(ctx, rejection.String())

	response := msg.CreateRejectionResponse(rejection, info, cause)
	if err := d.SendMessage(ctx, response); err != nil {
		d.logger.Warnf("failed to send %s rejection to %s: %v", rejection, response.TargetAddress.String(), err)
	}
}

// deliverResponse hands a response to the request waiting for it.
func (d *Dispatcher) deliverResponse(ctx context.Context, msg *message.Message) {
	for _, stale := range msg.CacheInvalidationHeader {
		d.config.directory.InvalidateCacheEntry(stale)
	}

	if d.transport.TryDeliverToProxy(msg) {
		return
	}

	if msg.Result == message.ResultRejection && msg.RejectionType == message.Transient && d.tryResend(msg) {
		return
	}

	if !d.callbacks.complete(msg) {
		d.logger.Warnf("No request is waiting for response %s. Dropping it.", msg.String())
	}
}

// tryResend sends a transiently rejected request again when its resend budget
// allows it.
func (d *Dispatcher) tryResend(response *message.Message) bool {
	cb, ok := d.callbacks.lookup(response)
	if !ok {
		return false
	}

	resend := cb.snapshot()
	resend.ResendCount = int(cb.resends.Load())
	if !resend.MayResend(d.config.maxResendCount) {
		return false
	}
	resend.ResendCount = int(cb.resends.Inc())
	resend.TargetAddress = address.NewGrainAddress(resend.TargetGrain())
	resend.IsNewPlacement = false
	for _, stale := range response.CacheInvalidationHeader {
		resend.AddToCacheInvalidationHeader(stale)
	}

	d.logger.Infof("Resending %s after a transient rejection (%d/%d)", resend.String(), resend.ResendCount, d.config.maxResendCount)
	d.queue("resend", func(ctx context.Context) {
		if err := d.SendMessage(ctx, resend); err != nil {
			d.logger.Warnf("failed to resend %s: %v", resend.String(), err)
		}
	})
	return true
}

// Request sends a request to target and waits for its response.
//
// Called from within a grain method, the request is sent on behalf of that
// activation and extends the call chain of the request being processed.
func (d *Dispatcher) Request(ctx context.Context, target address.ActivationAddress, interfaceID, methodID int32, args ...any) (any, error) {
	if !d.started.Load() {
		return nil, gerrors.ErrDispatcherNotStarted
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	msg := d.newRequest(ctx, target, interfaceID, methodID, args...)
	if msg.Direction == message.OneWay {
		return nil, d.SendMessage(ctx, msg)
	}

	timeout := d.config.responseTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	msg.SetTimeout(d.now(), timeout)

	cb := d.callbacks.register(msg)
	defer d.callbacks.unregister(msg)

	if err := d.SendMessage(ctx, msg); err != nil {
		return nil, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case response := <-cb.response:
		if err := response.Err(); err != nil {
			return nil, err
		}
		return response.Body, nil
	case <-timer.C:
		return nil, gerrors.ErrRequestTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Call sends a request to the activation of grain and waits for its response.
func (d *Dispatcher) Call(ctx context.Context, grain address.GrainID, interfaceID, methodID int32, args ...any) (any, error) {
	return d.Request(ctx, address.NewGrainAddress(grain), interfaceID, methodID, args...)
}

// Tell sends a one-way call to the activation of grain.
func (d *Dispatcher) Tell(ctx context.Context, grain address.GrainID, interfaceID, methodID int32, args ...any) error {
	if !d.started.Load() {
		return gerrors.ErrDispatcherNotStarted
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := d.newRequest(ctx, address.NewGrainAddress(grain), interfaceID, methodID, args...)
	msg.Direction = message.OneWay
	if deadline, ok := ctx.Deadline(); ok {
		msg.Expiration = deadline
	}
	return d.SendMessage(ctx, msg)
}

func (d *Dispatcher) newRequest(ctx context.Context, target address.ActivationAddress, interfaceID, methodID int32, args ...any) *message.Message {
	sender := d.clientAddress
	parent, ok := message.FromContext(ctx)
	if ok {
		sender = parent.TargetAddress
	}

	msg := message.NewRequest(sender, target, interfaceID, methodID, args...)
	if ok {
		msg.InheritCallChain(parent)
	}
	d.config.invokers.ApplyFlags(msg)
	return msg
}
