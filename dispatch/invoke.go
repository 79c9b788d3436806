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
	"runtime"

	gerrors "github.com/tochemey/graindispatch/errors"
	"github.com/tochemey/graindispatch/message"
	"github.com/tochemey/graindispatch/scheduler"
)

// invokeWorkItem runs one admitted request on its activation.
type invokeWorkItem struct {
	dispatcher *Dispatcher
	target     *Activation
	msg        *message.Message
}

// enforce compilation error
var _ scheduler.WorkItem = (*invokeWorkItem)(nil)

func newInvokeWorkItem(d *Dispatcher, target *Activation, msg *message.Message) *invokeWorkItem {
	return &invokeWorkItem{dispatcher: d, target: target, msg: msg}
}

// Name implements scheduler.WorkItem.
func (w *invokeWorkItem) Name() string {
	return invokeItemName(w.msg)
}

// Execute implements scheduler.WorkItem.
func (w *invokeWorkItem) Execute(ctx context.Context) {
	defer w.dispatcher.OnActivationCompletedRequest(ctx, w.target, w.msg)
	w.dispatcher.invoke(ctx, w.target, w.msg)
}

// invoke calls the grain method targeted by msg and answers requests.
// Errors and panics of the grain become error responses; one-way calls only
// log them.
func (d *Dispatcher) invoke(ctx context.Context, target *Activation, msg *message.Message) {
	start := d.now()
	if msg.IsExpired(start) {
		d.logger.Warnf("Dropping expired message %s before invocation", msg.String())
		d.metric.RecordExpired(ctx)
		return
	}

	ctx = message.NewContext(ctx, msg)
	if !msg.Expiration.IsZero() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, msg.Expiration)
		defer cancel()
	}

	target.mu.Lock()
	grain := target.grain
	target.mu.Unlock()

	result, err := d.safeInvoke(ctx, grain, msg)
	d.metric.RecordInvocation(ctx, target.kind.grainType, d.now().Sub(start))

	if msg.Direction == message.OneWay {
		if err != nil {
			d.logger.Errorf("one-way call %s failed: %v", msg.String(), err)
		}
		return
	}

	if msg.IsExpired(d.now()) {
		d.logger.Warnf("Dropping the response of %s since the request expired", msg.String())
		d.metric.RecordExpired(ctx)
		return
	}

	if err != nil {
		d.SendResponse(ctx, msg, msg.CreateErrorResponse(err))
		return
	}
	d.SendResponse(ctx, msg, msg.CreateResponse(result))
}

// safeInvoke runs the method and converts a panic into a PanicError.
func (d *Dispatcher) safeInvoke(ctx context.Context, grain Grain, msg *message.Message) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			if perr, ok := r.(error); ok {
				err = gerrors.NewPanicError(perr)
				return
			}

			pc, fn, line, _ := runtime.Caller(2)
			err = gerrors.NewPanicError(
				fmt.Errorf("%#v at %s[%s:%d]", r, runtime.FuncForPC(pc).Name(), fn, line),
			)
		}
	}()
	return d.config.invokers.Invoke(ctx, grain, msg)
}
