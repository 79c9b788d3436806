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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestNewDispatcherMetric(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	m, err := NewDispatcherMetric(meter)
	require.NoError(t, err)
	require.NotNil(t, m)

	ctx := context.Background()
	assert.NotPanics(t, func() {
		m.RecordReceived(ctx, "Request")
		m.RecordExpired(ctx)
		m.RecordRejected(ctx, "Transient")
		m.RecordForwarded(ctx)
		m.RecordEnqueued(ctx)
		m.RecordDeadlock(ctx)
		m.RecordInvocation(ctx, "counter", 3*time.Millisecond)
	})
}

func TestNewDispatcherMetricFailure(t *testing.T) {
	meter := &failingMeter{Meter: noop.NewMeterProvider().Meter("test"), err: errors.New("boom")}
	m, err := NewDispatcherMetric(meter)
	require.Error(t, err)
	assert.Nil(t, m)
	assert.Contains(t, err.Error(), "failed to create received instrument")
}

type failingMeter struct {
	metric.Meter
	err error
}

func (m *failingMeter) Int64Counter(string, ...metric.Int64CounterOption) (metric.Int64Counter, error) {
	return nil, m.err
}
