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
	"errors"
	"time"

	"github.com/tochemey/graindispatch/address"
	"github.com/tochemey/graindispatch/internal/validation"
	"github.com/tochemey/graindispatch/invoker"
	"github.com/tochemey/graindispatch/reentrancy"
)

// Grain is the contract of a virtual actor hosted by the dispatcher.
//
// Grain methods themselves are not part of this interface: they are looked up
// in the method table of the grain kind and invoked with the grain instance.
// A grain instance is only ever touched by one non-interleaving request at a
// time, so implementations do not need to synchronize their state unless the
// kind enables reentrancy or read-only interleaving.
type Grain interface {
	// OnActivate is called when the activation is created, before any request
	// is delivered. Returning an error fails the activation and rejects the
	// requests waiting on it.
	OnActivate(ctx context.Context, props *GrainProps) error
	// OnDeactivate is called before the activation is removed from memory.
	OnDeactivate(ctx context.Context, props *GrainProps) error
}

// GrainFactory creates the grain instance of an activation.
type GrainFactory func(ctx context.Context, id address.GrainID) (Grain, error)

// GrainProps defines the properties handed to the grain lifecycle hooks.
type GrainProps struct {
	address    address.ActivationAddress
	dispatcher *Dispatcher
}

func newGrainProps(addr address.ActivationAddress, dispatcher *Dispatcher) *GrainProps {
	return &GrainProps{address: addr, dispatcher: dispatcher}
}

// Address returns the address of the activation.
func (p *GrainProps) Address() address.ActivationAddress {
	return p.address
}

// Dispatcher returns the dispatcher hosting the activation.
func (p *GrainProps) Dispatcher() *Dispatcher {
	return p.dispatcher
}

// GrainOption configures a GrainKind.
type GrainOption func(kind *GrainKind)

// WithReentrancy sets the interleave policy of the kind
func WithReentrancy(r *reentrancy.Reentrancy) GrainOption {
	return func(kind *GrainKind) {
		kind.reentrancy = r
	}
}

// WithGrainInitMaxRetries sets the maximum number of activation attempts
func WithGrainInitMaxRetries(value int) GrainOption {
	return func(kind *GrainKind) {
		kind.initMaxRetries = value
	}
}

// WithGrainInitTimeout sets the time budget of the activation routine,
// retries included
func WithGrainInitTimeout(value time.Duration) GrainOption {
	return func(kind *GrainKind) {
		kind.initTimeout = value
	}
}

// WithGrainDeactivateAfter sets the idle time after which an activation is collected
func WithGrainDeactivateAfter(value time.Duration) GrainOption {
	return func(kind *GrainKind) {
		kind.deactivateAfter = value
	}
}

// WithLongLivedGrain disables idle collection for the kind
func WithLongLivedGrain() GrainOption {
	return func(kind *GrainKind) {
		kind.deactivateAfter = -1
	}
}

// GrainKind binds a grain type to its factory, method table and policies.
type GrainKind struct {
	grainType       string
	factory         GrainFactory
	table           *invoker.Table
	reentrancy      *reentrancy.Reentrancy
	initMaxRetries  int
	initTimeout     time.Duration
	deactivateAfter time.Duration
}

// enforce compilation error
var _ validation.Validator = (*GrainKind)(nil)

// NewGrainKind creates a GrainKind for the grain type served by table.
func NewGrainKind(factory GrainFactory, table *invoker.Table, opts ...GrainOption) *GrainKind {
	kind := &GrainKind{
		factory:         factory,
		table:           table,
		reentrancy:      reentrancy.New(),
		initMaxRetries:  DefaultInitMaxRetries,
		initTimeout:     DefaultInitTimeout,
		deactivateAfter: DefaultDeactivateAfter,
	}
	if table != nil {
		kind.grainType = table.GrainType()
	}
	for _, opt := range opts {
		opt(kind)
	}
	return kind
}

// Type returns the grain type
func (k *GrainKind) Type() string {
	return k.grainType
}

// Reentrancy returns the interleave policy of the kind
func (k *GrainKind) Reentrancy() *reentrancy.Reentrancy {
	return k.reentrancy
}

// DeactivateAfter returns the idle time after which activations are collected.
// A negative value means never.
func (k *GrainKind) DeactivateAfter() time.Duration {
	return k.deactivateAfter
}

// Validate checks the kind definition
func (k *GrainKind) Validate() error {
	chain := validation.New(validation.FailFast()).
		AddAssertion(k.factory != nil, "the [GrainFactory] is required").
		AddAssertion(k.table != nil, "the [MethodTable] is required").
		AddValidator(validation.NewEmptyStringValidator("GrainType", k.grainType)).
		AddAssertion(k.initMaxRetries > 0, "the [InitMaxRetries] must be greater than zero").
		AddValidator(validation.NewPositiveDurationValidator("InitTimeout", k.initTimeout)).
		AddValidator(validation.NewNonZeroDurationValidator("DeactivateAfter", k.deactivateAfter))

	if err := chain.Validate(); err != nil {
		return err
	}

	if k.reentrancy == nil {
		return errors.New("the [Reentrancy] is required")
	}
	return k.reentrancy.Validate()
}
