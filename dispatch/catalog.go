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
	"sync"
	"time"

	goset "github.com/deckarep/golang-set/v2"
	"github.com/flowchartsman/retry"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/tochemey/graindispatch/address"
	gerrors "github.com/tochemey/graindispatch/errors"
	"github.com/tochemey/graindispatch/internal/xsync"
	"github.com/tochemey/graindispatch/scheduler"
)

var catalogContext = scheduler.SystemContext("catalog")

// Catalog owns the activations hosted by a dispatcher.
type Catalog struct {
	dispatcher  *Dispatcher
	activations *xsync.Map[address.ActivationID, *Activation]
	byGrain     *xsync.Map[address.GrainID, *Activation]
	kinds       *xsync.Map[string, *GrainKind]
	// pendingDeactivations holds the activations asked to deactivate while
	// still creating
	pendingDeactivations *xsync.Map[address.ActivationID, struct{}]
	// stopping refuses new activations while the catalog shuts down
	stopping *atomic.Bool
}

func newCatalog(dispatcher *Dispatcher) *Catalog {
	return &Catalog{
		dispatcher:           dispatcher,
		activations:          xsync.NewMap[address.ActivationID, *Activation](),
		byGrain:              xsync.NewMap[address.GrainID, *Activation](),
		kinds:                xsync.NewMap[string, *GrainKind](),
		pendingDeactivations: xsync.NewMap[address.ActivationID, struct{}](),
		stopping:             atomic.NewBool(false),
	}
}

// RegisterKind registers a grain kind and its method table.
func (c *Catalog) RegisterKind(kind *GrainKind) error {
	if kind == nil {
		return gerrors.ErrGrainKindNotRegistered
	}
	if err := kind.Validate(); err != nil {
		return err
	}
	if _, loaded := c.kinds.GetOrSet(kind.grainType, func() *GrainKind { return kind }); loaded {
		return fmt.Errorf("grain type=(%s) is already registered", kind.grainType)
	}
	if err := c.dispatcher.config.invokers.Register(kind.table); err != nil {
		c.kinds.Delete(kind.grainType)
		return err
	}
	return nil
}

// Kind returns the registered kind of grainType.
func (c *Catalog) Kind(grainType string) (*GrainKind, bool) {
	return c.kinds.Get(grainType)
}

// Lookup returns the local activation with the given address.
func (c *Catalog) Lookup(addr address.ActivationAddress) (*Activation, bool) {
	if addr.Activation.IsZero() {
		return c.byGrain.Get(addr.Grain)
	}
	return c.activations.Get(addr.Activation)
}

// Activations returns a snapshot of the hosted activations.
func (c *Catalog) Activations() []*Activation {
	return c.activations.Values()
}

// Grains returns the distinct grains currently hosted.
func (c *Catalog) Grains() []address.GrainID {
	grains := goset.NewThreadUnsafeSet[address.GrainID]()
	for _, act := range c.activations.Values() {
		grains.Add(act.address.Grain)
	}
	return grains.ToSlice()
}

// Count returns the number of hosted activations.
func (c *Catalog) Count() int {
	return c.activations.Len()
}

// GetOrCreateActivation returns the activation target designates, creating it
// when the target is a grain without activation or a fresh placement.
//
// A specific activation that is not hosted here yields a
// NonExistentActivationError unless newPlacement is set.
func (c *Catalog) GetOrCreateActivation(ctx context.Context, target address.ActivationAddress, newPlacement bool) (*Activation, error) {
	if !target.Activation.IsZero() {
		if act, ok := c.activations.Get(target.Activation); ok {
			return act, nil
		}
		if !newPlacement {
			return nil, gerrors.NewNonExistentActivationError(target.String())
		}
	}

	if err := target.Grain.Validate(); err != nil {
		return nil, err
	}

	if c.stopping.Load() {
		return nil, gerrors.ErrDispatcherNotStarted
	}

	kind, ok := c.kinds.Get(target.Grain.Type)
	if !ok {
		return nil, gerrors.NewErrGrainKindNotRegistered(target.Grain.Type)
	}

	d := c.dispatcher
	addr := target
	addr.Silo = d.silo
	if addr.Activation.IsZero() {
		addr = address.NewActivationAddress(d.silo, target.Grain)
	}

	created := false
	act, _ := c.byGrain.GetOrSet(target.Grain, func() *Activation {
		created = true
		return newActivation(addr, kind, d.now())
	})

	if !created {
		return act, nil
	}

	c.activations.Set(act.address.Activation, act)
	if err := d.scheduler.QueueAction(catalogContext, "activate", func(ctx context.Context) {
		c.activate(ctx, act)
	}); err != nil {
		c.fail(ctx, act, gerrors.NewErrActivationFailure(err))
		return nil, gerrors.NewErrActivationFailure(err)
	}
	return act, nil
}

func (c *Catalog) activate(ctx context.Context, act *Activation) {
	d := c.dispatcher
	logger := d.logger
	addr := act.address
	kind := act.kind

	logger.Infof("Activating Grain %s ...", addr.String())

	winner, err := d.config.directory.Register(ctx, addr)
	if err != nil {
		logger.Errorf("Grain %s registration failed: %v", addr.String(), err)
		c.fail(ctx, act, gerrors.NewErrActivationFailure(err))
		return
	}

	if !winner.Equals(addr) {
		c.supersede(ctx, act, winner)
		return
	}

	cctx, cancel := context.WithTimeout(ctx, kind.initTimeout)
	defer cancel()

	var grain Grain
	retrier := retry.NewRetrier(kind.initMaxRetries, time.Millisecond, kind.initTimeout)
	if err := retrier.RunContext(cctx, func(ctx context.Context) error {
		if grain == nil {
			instance, err := kind.factory(ctx, addr.Grain)
			if err != nil {
				return err
			}
			grain = instance
		}
		return grain.OnActivate(ctx, newGrainProps(addr, d))
	}); err != nil {
		logger.Errorf("Grain %s activation failed.", addr.String())
		c.fail(ctx, act, gerrors.NewErrActivationFailure(err))
		return
	}

	act.mu.Lock()
	act.grain = grain
	if !act.setStateLocked(Valid) {
		act.mu.Unlock()
		return
	}
	act.touch(d.now())
	d.runMessagePumpLocked(ctx, act)
	act.mu.Unlock()

	logger.Infof("Grain %s successfully activated.", addr.String())

	if _, requested := c.pendingDeactivations.LoadAndDelete(addr.Activation); requested {
		c.DeactivateOnIdle(act)
	}
}

// fail moves a creating activation to FailedToActivate and rejects what waits on it.
func (c *Catalog) fail(ctx context.Context, act *Activation, cause error) {
	act.mu.Lock()
	if !act.setStateLocked(FailedToActivate) {
		act.mu.Unlock()
		return
	}
	pending := act.drainLocked()
	act.mu.Unlock()

	c.remove(act)
	if err := c.dispatcher.config.directory.Unregister(ctx, act.address); err != nil {
		c.dispatcher.logger.Warnf("failed to unregister %s: %v", act.address.String(), err)
	}

	c.dispatcher.ProcessRequestsToInvalidActivation(ctx, pending, act.address, address.ActivationAddress{}, "activation", true, cause)
	act.markDeactivated(cause)
}

// supersede invalidates an activation that lost the directory registration
// race and forwards its messages to the winner.
func (c *Catalog) supersede(ctx context.Context, act *Activation, winner address.ActivationAddress) {
	c.dispatcher.logger.Infof("Grain %s is already activated at %s", act.address.String(), winner.String())

	act.mu.Lock()
	act.forwardingAddress = winner
	act.setStateLocked(Invalid)
	pending := act.drainLocked()
	act.mu.Unlock()

	c.remove(act)
	c.dispatcher.ProcessRequestsToInvalidActivation(ctx, pending, act.address, winner, "duplicate activation", false, nil)
	act.markDeactivated(nil)
}

// DeactivateOnIdle moves the activation to Deactivating and completes the
// deactivation once it runs nothing. The returned channel is closed when the
// activation is terminal.
func (c *Catalog) DeactivateOnIdle(act *Activation) <-chan struct{} {
	act.mu.Lock()
	defer act.mu.Unlock()
	c.beginDeactivationLocked(act)
	return act.deactivated
}

func (c *Catalog) beginDeactivationLocked(act *Activation) {
	if act.state == Creating {
		c.pendingDeactivations.Set(act.address.Activation, struct{}{})
		return
	}

	if !act.setStateLocked(Deactivating) {
		return
	}

	if act.isExecutingLocked() {
		act.addOnInactiveLocked(func() { c.queueFinishDeactivation(act) })
		return
	}
	c.queueFinishDeactivation(act)
}

func (c *Catalog) queueFinishDeactivation(act *Activation) {
	d := c.dispatcher
	if err := d.scheduler.QueueAction(catalogContext, "deactivate", func(ctx context.Context) {
		c.finishDeactivation(ctx, act)
	}); err != nil {
		d.logger.Warnf("failed to schedule deactivation of %s, running it now: %v", act.address.String(), err)
		go c.finishDeactivation(context.Background(), act)
	}
}

func (c *Catalog) finishDeactivation(ctx context.Context, act *Activation) {
	d := c.dispatcher
	logger := d.logger
	addr := act.address

	logger.Infof("Deactivating Grain %s ...", addr.String())

	act.mu.Lock()
	grain := act.grain
	act.mu.Unlock()

	var err error
	if grain != nil {
		if derr := grain.OnDeactivate(ctx, newGrainProps(addr, d)); derr != nil {
			logger.Errorf("Grain %s deactivation failed.", addr.String())
			err = gerrors.NewErrDeactivationFailure(derr)
		}
	}

	act.mu.Lock()
	act.setStateLocked(Invalid)
	pending := act.drainLocked()
	forward := act.forwardingAddress
	act.mu.Unlock()

	c.remove(act)
	if uerr := d.config.directory.Unregister(ctx, addr); uerr != nil {
		err = multierr.Append(err, uerr)
	}

	d.ProcessRequestsToInvalidActivation(ctx, pending, addr, forward, "deactivation", false, nil)
	act.markDeactivated(err)

	if err == nil {
		logger.Infof("Grain %s successfully deactivated.", addr.String())
	}
}

// deactivateStuck invalidates an activation whose blocking request exceeded the
// maximum processing time. The grain is not asked to deactivate since its
// request is still running.
func (c *Catalog) deactivateStuck(ctx context.Context, act *Activation) {
	d := c.dispatcher

	act.mu.Lock()
	if act.state.IsTerminal() {
		act.mu.Unlock()
		return
	}
	act.state = Invalid
	pending := act.drainLocked()
	forward := act.forwardingAddress
	act.mu.Unlock()

	d.logger.Warnf("Deactivating stuck activation %s", act.address.String())

	c.remove(act)
	if err := d.config.directory.Unregister(ctx, act.address); err != nil {
		d.logger.Warnf("failed to unregister %s: %v", act.address.String(), err)
	}

	d.ProcessRequestsToInvalidActivation(ctx, pending, act.address, forward, "stuck activation", false, nil)
	act.markDeactivated(nil)
}

func (c *Catalog) remove(act *Activation) {
	c.activations.Delete(act.address.Activation)
	c.byGrain.DeleteIf(act.address.Grain, func(current *Activation) bool { return current == act })
	c.pendingDeactivations.Delete(act.address.Activation)
}

// collectIdle deactivates the activations idle for longer than their kind allows.
func (c *Catalog) collectIdle(context.Context) {
	now := c.dispatcher.now()
	for _, act := range c.activations.Values() {
		after := act.kind.deactivateAfter
		if after <= 0 || now.Sub(act.LastActivity()) < after {
			continue
		}
		if act.isIdle() {
			c.dispatcher.logger.Debugf("collecting idle activation %s", act.address.String())
			c.DeactivateOnIdle(act)
		}
	}
}

// Stop deactivates every activation in parallel and waits for them.
func (c *Catalog) Stop(ctx context.Context) error {
	c.stopping.Store(true)
	ctx, cancel := context.WithTimeout(ctx, c.dispatcher.config.shutdownTimeout)
	defer cancel()

	var (
		mu   sync.Mutex
		errs error
	)

	eg := new(errgroup.Group)
	for _, act := range c.activations.Values() {
		eg.Go(func() error {
			select {
			case <-c.DeactivateOnIdle(act):
				if err := act.deactivationError(); err != nil {
					mu.Lock()
					errs = multierr.Append(errs, err)
					mu.Unlock()
				}
				return nil
			case <-ctx.Done():
				return fmt.Errorf("failed to deactivate %s: %w", act.address.String(), ctx.Err())
			}
		})
	}

	return multierr.Combine(eg.Wait(), errs)
}

func (a *Activation) isIdle() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state == Valid && !a.isExecutingLocked() && a.waiting.Empty()
}
