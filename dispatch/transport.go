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

	"github.com/tochemey/graindispatch/address"
	"github.com/tochemey/graindispatch/directory"
	"github.com/tochemey/graindispatch/message"
)

// Transport carries messages to other silos.
type Transport interface {
	// SendMessage hands msg over for delivery to msg.TargetAddress.Silo.
	// It must not block on the remote side.
	SendMessage(ctx context.Context, msg *message.Message) error
	// TryDeliverToProxy delivers a response addressed to a client connected
	// through a gateway. It returns false when no such client is known.
	TryDeliverToProxy(msg *message.Message) bool
}

// Placement picks the activation serving a grain.
type Placement interface {
	// GetOrPlaceActivation returns the activation of grain. placed is true when
	// a fresh activation address was chosen instead of a known one.
	GetOrPlaceActivation(ctx context.Context, grain address.GrainID) (addr address.ActivationAddress, placed bool, err error)
}

// LocalPlacement resolves grains through the directory and places unknown
// grains on the local silo.
type LocalPlacement struct {
	silo      address.Silo
	directory directory.Directory
}

var _ Placement = (*LocalPlacement)(nil)

// NewLocalPlacement creates a LocalPlacement
func NewLocalPlacement(silo address.Silo, dir directory.Directory) *LocalPlacement {
	return &LocalPlacement{silo: silo, directory: dir}
}

// GetOrPlaceActivation implements Placement.
func (p *LocalPlacement) GetOrPlaceActivation(_ context.Context, grain address.GrainID) (address.ActivationAddress, bool, error) {
	if err := grain.Validate(); err != nil {
		return address.ActivationAddress{}, false, err
	}
	if addr, ok := p.directory.Lookup(grain); ok {
		return addr, false, nil
	}
	return address.NewActivationAddress(p.silo, grain), true, nil
}
