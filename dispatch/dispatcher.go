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

// Package dispatch routes the messages received by a silo to the grain
// activations it hosts.
//
// The Dispatcher is the reception gate of the silo: it decides whether an
// inbound request runs now, waits on its activation, is forwarded to another
// activation or is rejected. Once admitted, the request is handed to the
// scheduler as a work item. Completion of that work item drives the message
// pump of the activation which admits whatever may run next.
//
// The dispatcher never blocks on grain code: admission decisions are taken
// under the per-activation lock, grain methods run on the scheduler, and every
// follow-up that may recurse into the dispatcher (forwarding, resends, local
// delivery) is queued as independent work.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"github.com/tochemey/graindispatch/address"
	"github.com/tochemey/graindispatch/directory"
	gerrors "github.com/tochemey/graindispatch/errors"
	"github.com/tochemey/graindispatch/internal/metric"
	"github.com/tochemey/graindispatch/log"
	"github.com/tochemey/graindispatch/scheduler"
)

var (
	dispatcherContext = scheduler.SystemContext("dispatcher")

	errTransportRequired = errors.New("the [Transport] is required")
)

// Dispatcher delivers the messages received by a silo to its activations.
type Dispatcher struct {
	silo          address.Silo
	clientAddress address.ActivationAddress
	transport     Transport
	config        *config
	logger        log.Logger

	scheduler scheduler.Scheduler
	// pool is set when the dispatcher owns its scheduler
	pool   *scheduler.Pool
	timers *scheduler.Timers

	catalog   *Catalog
	callbacks *callbacks
	metric    *metric.DispatcherMetric

	mu      sync.Mutex
	started *atomic.Bool
}

// New creates a Dispatcher for silo. transport carries the messages bound to
// other silos.
func New(silo address.Silo, transport Transport, opts ...Option) (*Dispatcher, error) {
	if err := silo.Validate(); err != nil {
		return nil, err
	}
	if transport == nil {
		return nil, errTransportRequired
	}

	config := newConfig(silo, opts...)
	if err := config.Validate(); err != nil {
		return nil, err
	}

	provider := metric.New(metric.WithMeterProvider(config.meterProvider))
	instruments, err := metric.NewDispatcherMetric(provider.Meter())
	if err != nil {
		return nil, err
	}

	d := &Dispatcher{
		silo:          silo,
		clientAddress: address.NewActivationAddress(silo, address.NewGrainID(ClientGrainType, silo.String())),
		transport:     transport,
		config:        config,
		logger:        config.logger,
		scheduler:     config.scheduler,
		timers:        scheduler.NewTimers(config.logger, config.shutdownTimeout),
		callbacks:     newCallbacks(),
		metric:        instruments,
		started:       atomic.NewBool(false),
	}

	if d.scheduler == nil {
		d.pool = scheduler.NewPool(config.logger, DefaultSchedulerShards)
		d.scheduler = d.pool
	}

	d.catalog = newCatalog(d)
	return d, nil
}

// Start starts the dispatcher.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.started.Load() {
		return gerrors.ErrDispatcherAlreadyStarted
	}

	d.logger.Infof("starting dispatcher on silo %s...", d.silo.String())

	if d.pool != nil {
		d.pool.Start(ctx)
	}

	d.timers.Start(ctx)
	if err := d.timers.Every("idle-collector", d.config.collectionInterval, d.catalog.collectIdle); err != nil {
		d.timers.Stop(ctx)
		if d.pool != nil {
			d.pool.Stop()
		}
		return fmt.Errorf("failed to start the idle collector: %w", err)
	}

	d.catalog.stopping.Store(false)
	d.started.Store(true)
	d.logger.Infof("dispatcher on silo %s started.", d.silo.String())
	return nil
}

// Stop deactivates every activation and stops the dispatcher. Requests still
// waiting for a response fail with ErrDispatcherNotStarted.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.started.Load() {
		return gerrors.ErrDispatcherNotStarted
	}

	d.logger.Infof("stopping dispatcher on silo %s...", d.silo.String())

	err := d.catalog.Stop(ctx)
	d.started.Store(false)
	d.timers.Stop(ctx)
	if d.pool != nil {
		d.pool.Stop()
	}

	d.callbacks.entries.Range(func(_ callbackKey, cb *callback) {
		select {
		case cb.response <- cb.request.CreateErrorResponse(gerrors.ErrDispatcherNotStarted):
		default:
		}
	})
	d.callbacks.entries.Reset()

	d.logger.Infof("dispatcher on silo %s stopped.", d.silo.String())
	if ferr := d.logger.Flush(); ferr != nil {
		err = multierr.Append(err, ferr)
	}
	return err
}

// Silo returns the silo the dispatcher serves
func (d *Dispatcher) Silo() address.Silo {
	return d.silo
}

// ClientAddress returns the sender address of requests issued outside of any grain
func (d *Dispatcher) ClientAddress() address.ActivationAddress {
	return d.clientAddress
}

// Catalog returns the activations catalog
func (d *Dispatcher) Catalog() *Catalog {
	return d.catalog
}

// Directory returns the grain directory
func (d *Dispatcher) Directory() directory.Directory {
	return d.config.directory
}

// Started reports whether the dispatcher accepts messages
func (d *Dispatcher) Started() bool {
	return d.started.Load()
}

// RegisterGrainKind makes a grain kind available for activation
func (d *Dispatcher) RegisterGrainKind(kind *GrainKind) error {
	return d.catalog.RegisterKind(kind)
}

func (d *Dispatcher) now() time.Time {
	return d.config.clock()
}

// queue runs fn as independent work on the dispatcher context.
func (d *Dispatcher) queue(name string, fn func(ctx context.Context)) {
	if err := d.scheduler.QueueAction(dispatcherContext, name, fn); err != nil {
		d.logger.Warnf("failed to schedule %s: %v", name, err)
	}
}
