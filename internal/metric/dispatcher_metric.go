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

package metric

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// DispatcherMetric groups the instruments recorded by the message dispatcher.
type DispatcherMetric struct {
	received       metric.Int64Counter
	expiredDropped metric.Int64Counter
	rejected       metric.Int64Counter
	forwarded      metric.Int64Counter
	enqueued       metric.Int64Counter
	deadlocks      metric.Int64Counter
	invokeDuration metric.Float64Histogram
}

// NewDispatcherMetric creates the dispatcher instruments on meter.
func NewDispatcherMetric(meter metric.Meter) (*DispatcherMetric, error) {
	m := new(DispatcherMetric)
	var err error

	if m.received, err = meter.Int64Counter(
		"dispatcher.messages.received",
		metric.WithDescription("Total number of messages handed to the dispatcher"),
	); err != nil {
		return nil, fmt.Errorf("failed to create received instrument, %w", err)
	}

	if m.expiredDropped, err = meter.Int64Counter(
		"dispatcher.messages.expired",
		metric.WithDescription("Total number of expired messages dropped on receipt"),
	); err != nil {
		return nil, fmt.Errorf("failed to create expiredDropped instrument, %w", err)
	}

	if m.rejected, err = meter.Int64Counter(
		"dispatcher.messages.rejected",
		metric.WithDescription("Total number of rejection responses produced"),
	); err != nil {
		return nil, fmt.Errorf("failed to create rejected instrument, %w", err)
	}

	if m.forwarded, err = meter.Int64Counter(
		"dispatcher.messages.forwarded",
		metric.WithDescription("Total number of messages forwarded or re-addressed"),
	); err != nil {
		return nil, fmt.Errorf("failed to create forwarded instrument, %w", err)
	}

	if m.enqueued, err = meter.Int64Counter(
		"dispatcher.requests.enqueued",
		metric.WithDescription("Total number of requests parked on an activation waiting queue"),
	); err != nil {
		return nil, fmt.Errorf("failed to create enqueued instrument, %w", err)
	}

	if m.deadlocks, err = meter.Int64Counter(
		"dispatcher.deadlocks",
		metric.WithDescription("Total number of call-chain deadlocks detected"),
	); err != nil {
		return nil, fmt.Errorf("failed to create deadlocks instrument, %w", err)
	}

	if m.invokeDuration, err = meter.Float64Histogram(
		"dispatcher.invoke.duration",
		metric.WithDescription("Latency of grain method invocations in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, fmt.Errorf("failed to create invokeDuration instrument, %w", err)
	}

	return m, nil
}

// RecordReceived counts one received message.
func (x *DispatcherMetric) RecordReceived(ctx context.Context, direction string) {
	x.received.Add(ctx, 1, metric.WithAttributes(attribute.String("direction", direction)))
}

// RecordExpired counts one expired message dropped on receipt.
func (x *DispatcherMetric) RecordExpired(ctx context.Context) {
	x.expiredDropped.Add(ctx, 1)
}

// RecordRejected counts one rejection of the given kind.
func (x *DispatcherMetric) RecordRejected(ctx context.Context, rejection string) {
	x.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("rejection", rejection)))
}

// RecordForwarded counts one forwarded message.
func (x *DispatcherMetric) RecordForwarded(ctx context.Context) {
	x.forwarded.Add(ctx, 1)
}

// RecordEnqueued counts one request parked on a waiting queue.
func (x *DispatcherMetric) RecordEnqueued(ctx context.Context) {
	x.enqueued.Add(ctx, 1)
}

// RecordDeadlock counts one detected deadlock.
func (x *DispatcherMetric) RecordDeadlock(ctx context.Context) {
	x.deadlocks.Add(ctx, 1)
}

// RecordInvocation records the duration of a grain method invocation.
func (x *DispatcherMetric) RecordInvocation(ctx context.Context, grainType string, elapsed time.Duration) {
	x.invokeDuration.Record(ctx, float64(elapsed)/float64(time.Millisecond),
		metric.WithAttributes(attribute.String("grain.type", grainType)))
}
