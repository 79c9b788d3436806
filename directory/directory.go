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

// Package directory maps grain identities to the activation currently
// serving them and keeps a local cache of addresses learnt from other silos.
package directory

import (
	"context"

	goset "github.com/deckarep/golang-set/v2"

	"github.com/tochemey/graindispatch/address"
	"github.com/tochemey/graindispatch/internal/xsync"
	"github.com/tochemey/graindispatch/log"
)

// Directory is the grain location contract consumed by the dispatcher.
type Directory interface {
	// Register records addr as the activation of its grain. When another
	// activation is already registered, that one is returned and addr is not
	// recorded.
	Register(ctx context.Context, addr address.ActivationAddress) (address.ActivationAddress, error)
	// Unregister removes addr when it is the registered activation.
	Unregister(ctx context.Context, addr address.ActivationAddress) error
	// Lookup returns the known activation of grain, registered or cached.
	Lookup(grain address.GrainID) (address.ActivationAddress, bool)
	// InvalidateCacheEntry drops addr from the local cache.
	InvalidateCacheEntry(addr address.ActivationAddress)
	// UnregisterAfterNonexistingActivation removes addr after a message
	// reached a silo that does not host it. origin is the silo that sent it.
	UnregisterAfterNonexistingActivation(ctx context.Context, addr address.ActivationAddress, origin address.Silo) error
	// IsSiloInCluster reports whether silo is a known live member.
	IsSiloInCluster(silo address.Silo) bool
}

// Local is an in-memory Directory for a single cluster view.
type Local struct {
	registrations *xsync.Map[address.GrainID, address.ActivationAddress]
	cache         *xsync.Map[address.GrainID, address.ActivationAddress]
	members       goset.Set[address.Silo]
	logger        log.Logger
}

var _ Directory = (*Local)(nil)

// NewLocal creates a Local directory whose cluster view contains members.
func NewLocal(logger log.Logger, members ...address.Silo) *Local {
	if logger == nil {
		logger = log.DiscardLogger
	}
	return &Local{
		registrations: xsync.NewMap[address.GrainID, address.ActivationAddress](),
		cache:         xsync.NewMap[address.GrainID, address.ActivationAddress](),
		members:       goset.NewSet(members...),
		logger:        logger,
	}
}

// Register implements Directory.
func (d *Local) Register(_ context.Context, addr address.ActivationAddress) (address.ActivationAddress, error) {
	if err := addr.Validate(); err != nil {
		return address.ActivationAddress{}, err
	}
	winner, loaded := d.registrations.GetOrSet(addr.Grain, func() address.ActivationAddress { return addr })
	if loaded && !winner.Equals(addr) {
		d.logger.Debugf("grain %s already registered at %s", addr.Grain.String(), winner.String())
	}
	return winner, nil
}

// Unregister implements Directory.
func (d *Local) Unregister(_ context.Context, addr address.ActivationAddress) error {
	d.unregister(addr)
	return nil
}

// Lookup implements Directory.
func (d *Local) Lookup(grain address.GrainID) (address.ActivationAddress, bool) {
	if addr, ok := d.registrations.Get(grain); ok {
		return addr, true
	}
	return d.cache.Get(grain)
}

// AddCacheEntry records the activation of a grain learnt from another silo.
func (d *Local) AddCacheEntry(addr address.ActivationAddress) {
	d.cache.Set(addr.Grain, addr)
}

// InvalidateCacheEntry implements Directory.
func (d *Local) InvalidateCacheEntry(addr address.ActivationAddress) {
	if cached, ok := d.cache.Get(addr.Grain); ok && (addr.Activation.IsZero() || cached.Equals(addr)) {
		d.cache.Delete(addr.Grain)
	}
}

// UnregisterAfterNonexistingActivation implements Directory.
func (d *Local) UnregisterAfterNonexistingActivation(ctx context.Context, addr address.ActivationAddress, origin address.Silo) error {
	d.logger.Infof("unregistering non-existent activation %s reported by %s", addr.String(), origin.String())
	d.InvalidateCacheEntry(addr)
	return d.Unregister(ctx, addr)
}

// IsSiloInCluster implements Directory.
func (d *Local) IsSiloInCluster(silo address.Silo) bool {
	return d.members.Contains(silo)
}

// AddSilo adds silo to the cluster view.
func (d *Local) AddSilo(silo address.Silo) {
	d.members.Add(silo)
}

// RemoveSilo removes silo from the cluster view together with the
// activations it hosted.
func (d *Local) RemoveSilo(silo address.Silo) {
	d.members.Remove(silo)
	for _, addr := range d.registrations.Values() {
		if addr.Silo == silo {
			d.unregister(addr)
		}
	}
	for _, addr := range d.cache.Values() {
		if addr.Silo == silo {
			d.InvalidateCacheEntry(addr)
		}
	}
}

// Silos returns the cluster view.
func (d *Local) Silos() []address.Silo {
	return d.members.ToSlice()
}

func (d *Local) unregister(addr address.ActivationAddress) {
	if registered, ok := d.registrations.Get(addr.Grain); ok && registered.Equals(addr) {
		d.registrations.Delete(addr.Grain)
	}
}
