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
	"time"

	otelmetric "go.opentelemetry.io/otel/metric"

	"github.com/tochemey/graindispatch/directory"
	"github.com/tochemey/graindispatch/invoker"
	"github.com/tochemey/graindispatch/log"
	"github.com/tochemey/graindispatch/scheduler"
	"github.com/tochemey/graindispatch/versions"
)

// Option is the interface that applies a configuration option.
type Option interface {
	// Apply sets the Option value of a config.
	Apply(config *config)
}

// enforce compilation error
var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(config *config)

// Apply applies the option
func (f OptionFunc) Apply(c *config) {
	f(c)
}

// WithLogger sets the dispatcher logger
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(c *config) {
		c.logger = logger
	})
}

// WithMeterProvider sets the OpenTelemetry meter provider used to record
// dispatcher metrics
func WithMeterProvider(provider otelmetric.MeterProvider) Option {
	return OptionFunc(func(c *config) {
		c.meterProvider = provider
	})
}

// WithScheduler sets the scheduler running grain invocations and the
// dispatcher's own follow-up work. The caller owns its lifecycle.
func WithScheduler(s scheduler.Scheduler) Option {
	return OptionFunc(func(c *config) {
		c.scheduler = s
	})
}

// WithDirectory sets the grain directory
func WithDirectory(dir directory.Directory) Option {
	return OptionFunc(func(c *config) {
		c.directory = dir
	})
}

// WithPlacement sets the placement used to address messages whose target is
// only a grain identity
func WithPlacement(placement Placement) Option {
	return OptionFunc(func(c *config) {
		c.placement = placement
	})
}

// WithInvokers sets the method table registry
func WithInvokers(registry *invoker.Registry) Option {
	return OptionFunc(func(c *config) {
		c.invokers = registry
	})
}

// WithVersionResolver sets the interface version compatibility resolver
func WithVersionResolver(resolver versions.Resolver) Option {
	return OptionFunc(func(c *config) {
		c.resolver = resolver
	})
}

// WithOverloadPolicy sets the admission policy consulted before a request is queued
func WithOverloadPolicy(policy OverloadPolicy) Option {
	return OptionFunc(func(c *config) {
		c.overloadPolicy = policy
	})
}

// WithMaxForwardCount sets how many times a request can be forwarded
func WithMaxForwardCount(count int) Option {
	return OptionFunc(func(c *config) {
		c.maxForwardCount = count
	})
}

// WithMaxResendCount sets how many times a transiently rejected request is resent
func WithMaxResendCount(count int) Option {
	return OptionFunc(func(c *config) {
		c.maxResendCount = count
	})
}

// WithDeadlockDetection enables call chain deadlock detection. maxDepth caps
// the number of trailing call chain entries inspected. Zero means the whole chain.
func WithDeadlockDetection(maxDepth int) Option {
	return OptionFunc(func(c *config) {
		c.deadlockDetection = true
		c.maxCallChainDepth = maxDepth
	})
}

// WithMaxRequestProcessingTime sets the time after which a busy activation is
// deactivated as stuck
func WithMaxRequestProcessingTime(value time.Duration) Option {
	return OptionFunc(func(c *config) {
		c.maxRequestProcessingTime = value
	})
}

// WithMaxWarningRequestProcessingTime sets the time after which a long running
// request is logged
func WithMaxWarningRequestProcessingTime(value time.Duration) Option {
	return OptionFunc(func(c *config) {
		c.maxWarningRequestProcessingTime = value
	})
}

// WithResponseTimeout sets the default timeout of Request
func WithResponseTimeout(timeout time.Duration) Option {
	return OptionFunc(func(c *config) {
		c.responseTimeout = timeout
	})
}

// WithCollectionInterval sets how often idle activations are collected
func WithCollectionInterval(interval time.Duration) Option {
	return OptionFunc(func(c *config) {
		c.collectionInterval = interval
	})
}

// WithShutdownTimeout sets how long Stop waits for activations to deactivate
func WithShutdownTimeout(timeout time.Duration) Option {
	return OptionFunc(func(c *config) {
		c.shutdownTimeout = timeout
	})
}

// WithErrorInjection makes the dispatcher reject (rejectionRate) or silently
// drop (lossRate) a share of the inbound requests. Rates are in [0, 1].
func WithErrorInjection(rejectionRate, lossRate float64) Option {
	return OptionFunc(func(c *config) {
		c.rejectionInjectionRate = rejectionRate
		c.messageLossInjectionRate = lossRate
	})
}

// WithExpiredMessagesKept disables dropping expired messages on receipt
func WithExpiredMessagesKept() Option {
	return OptionFunc(func(c *config) {
		c.dropExpiredMessages = false
	})
}
