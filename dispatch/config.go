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
	"math/rand/v2"
	"time"

	otelmetric "go.opentelemetry.io/otel/metric"

	"github.com/tochemey/graindispatch/address"
	"github.com/tochemey/graindispatch/directory"
	"github.com/tochemey/graindispatch/internal/validation"
	"github.com/tochemey/graindispatch/invoker"
	"github.com/tochemey/graindispatch/log"
	"github.com/tochemey/graindispatch/scheduler"
	"github.com/tochemey/graindispatch/versions"
)

type config struct {
	logger        log.Logger
	meterProvider otelmetric.MeterProvider

	scheduler      scheduler.Scheduler
	directory      directory.Directory
	placement      Placement
	invokers       *invoker.Registry
	resolver       versions.Resolver
	overloadPolicy OverloadPolicy

	maxForwardCount                 int
	maxResendCount                  int
	deadlockDetection               bool
	maxCallChainDepth               int
	maxRequestProcessingTime        time.Duration
	maxWarningRequestProcessingTime time.Duration
	responseTimeout                 time.Duration
	collectionInterval              time.Duration
	shutdownTimeout                 time.Duration
	dropExpiredMessages             bool

	rejectionInjectionRate   float64
	messageLossInjectionRate float64
	random                   func() float64
	clock                    func() time.Time
}

// enforce compilation error
var _ validation.Validator = (*config)(nil)

func newConfig(silo address.Silo, opts ...Option) *config {
	c := &config{
		logger:                          log.DefaultLogger,
		maxForwardCount:                 DefaultMaxForwardCount,
		maxResendCount:                  DefaultMaxResendCount,
		maxRequestProcessingTime:        DefaultMaxRequestProcessingTime,
		maxWarningRequestProcessingTime: DefaultMaxWarningRequestProcessingTime,
		responseTimeout:                 DefaultResponseTimeout,
		collectionInterval:              DefaultCollectionInterval,
		shutdownTimeout:                 DefaultShutdownTimeout,
		dropExpiredMessages:             true,
		random:                          rand.Float64,
		clock:                           time.Now,
	}

	for _, opt := range opts {
		opt.Apply(c)
	}

	if c.logger == nil {
		c.logger = log.DiscardLogger
	}
	if c.directory == nil {
		c.directory = directory.NewLocal(c.logger, silo)
	}
	if c.placement == nil {
		c.placement = NewLocalPlacement(silo, c.directory)
	}
	if c.invokers == nil {
		c.invokers = invoker.NewRegistry()
	}
	if c.resolver == nil {
		c.resolver = versions.NewManager()
	}
	if c.overloadPolicy == nil {
		c.overloadPolicy = NewQueueLengthPolicy(0, 0)
	}
	return c
}

// Validate checks the configuration
func (c *config) Validate() error {
	return validation.New(validation.AllErrors()).
		AddAssertion(c.maxForwardCount >= 0, "the [MaxForwardCount] cannot be negative").
		AddAssertion(c.maxResendCount >= 0, "the [MaxResendCount] cannot be negative").
		AddAssertion(c.maxCallChainDepth >= 0, "the [MaxCallChainDepth] cannot be negative").
		AddAssertion(validRate(c.rejectionInjectionRate), "the [RejectionInjectionRate] must be within [0, 1]").
		AddAssertion(validRate(c.messageLossInjectionRate), "the [MessageLossInjectionRate] must be within [0, 1]").
		AddValidator(validation.NewPositiveDurationValidator("MaxRequestProcessingTime", c.maxRequestProcessingTime)).
		AddValidator(validation.NewPositiveDurationValidator("MaxWarningRequestProcessingTime", c.maxWarningRequestProcessingTime)).
		AddValidator(validation.NewPositiveDurationValidator("ResponseTimeout", c.responseTimeout)).
		AddValidator(validation.NewPositiveDurationValidator("CollectionInterval", c.collectionInterval)).
		AddValidator(validation.NewPositiveDurationValidator("ShutdownTimeout", c.shutdownTimeout)).
		Validate()
}

func validRate(rate float64) bool {
	return rate >= 0 && rate <= 1
}
