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

// Package address provides the identities used to locate grains and their
// activations across silos.
//
// A grain is identified by a GrainID made of:
//
//   - Type: the grain kind, used to select the factory and method table
//   - Key: the application supplied key of the grain within its kind
//
// An activation is one in-memory incarnation of a grain. It is located by an
// ActivationAddress made of:
//
//   - Silo: the runtime process hosting the activation (host, port, generation)
//   - Grain: the logical grain identity
//   - Activation: an opaque identifier (UUIDv4) distinguishing incarnations
//
// The canonical textual representation of an ActivationAddress is:
//
//	<host>:<port>@<generation>/<type>/<key>#<activation>
//
// All types in this package are comparable values and can be used as map keys.
package address

import (
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/google/uuid"

	"github.com/tochemey/graindispatch/internal/validation"
)

const grainTypePattern = `^[a-zA-Z0-9][a-zA-Z0-9._\-]*$`

var (
	// ErrInvalidGrainType is returned when the grain type is malformed.
	ErrInvalidGrainType = errors.New("invalid grain type, must contain only word characters, '.', '-' or '_'")

	// ErrIncompleteAddress is returned when an operation requires a complete activation address.
	ErrIncompleteAddress = errors.New("activation address is incomplete")
)

// GrainID is the logical identity of a grain.
type GrainID struct {
	Type string
	Key  string
}

var _ validation.Validator = GrainID{}

// NewGrainID creates a GrainID.
func NewGrainID(grainType, key string) GrainID {
	return GrainID{Type: grainType, Key: key}
}

// IsZero reports whether the identity is unset.
func (g GrainID) IsZero() bool {
	return g.Type == "" && g.Key == ""
}

// String returns "<type>/<key>".
func (g GrainID) String() string {
	return g.Type + "/" + g.Key
}

// Validate checks the identity.
func (g GrainID) Validate() error {
	return validation.New(validation.FailFast()).
		AddValidator(validation.NewEmptyStringValidator("grain type", g.Type)).
		AddValidator(validation.NewPatternValidator(grainTypePattern, g.Type, ErrInvalidGrainType)).
		AddValidator(validation.NewEmptyStringValidator("grain key", g.Key)).
		Validate()
}

// ActivationID identifies one incarnation of a grain.
// The zero value means "no activation chosen yet".
type ActivationID uuid.UUID

// NewActivationID returns a fresh random ActivationID.
func NewActivationID() ActivationID {
	return ActivationID(uuid.New())
}

// ParseActivationID parses the textual form produced by String.
func ParseActivationID(s string) (ActivationID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return ActivationID{}, fmt.Errorf("invalid activation id=(%s): %w", s, err)
	}
	return ActivationID(id), nil
}

// IsZero reports whether the id is unset.
func (a ActivationID) IsZero() bool {
	return uuid.UUID(a) == uuid.Nil
}

// String returns the UUID form of the id.
func (a ActivationID) String() string {
	return uuid.UUID(a).String()
}

// Silo identifies a runtime process. Generation distinguishes restarts of a
// process bound to the same endpoint.
type Silo struct {
	Host       string
	Port       int
	Generation int64
}

var _ validation.Validator = Silo{}

// NewSilo creates a Silo.
func NewSilo(host string, port int, generation int64) Silo {
	return Silo{Host: host, Port: port, Generation: generation}
}

// IsZero reports whether the silo is unset.
func (s Silo) IsZero() bool {
	return s == Silo{}
}

// Endpoint returns host:port.
func (s Silo) Endpoint() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// String returns "<host>:<port>@<generation>".
func (s Silo) String() string {
	return s.Endpoint() + "@" + strconv.FormatInt(s.Generation, 10)
}

// Validate checks the silo endpoint.
func (s Silo) Validate() error {
	return validation.NewTCPAddressValidator(s.Endpoint()).Validate()
}

// ActivationAddress locates an activation. A partial address, with a zero
// Silo or a zero Activation, is one that still needs placement.
type ActivationAddress struct {
	Silo       Silo
	Grain      GrainID
	Activation ActivationID
}

var _ validation.Validator = ActivationAddress{}

// NewActivationAddress returns the address of a brand new activation of grain
// on silo.
func NewActivationAddress(silo Silo, grain GrainID) ActivationAddress {
	return ActivationAddress{
		Silo:       silo,
		Grain:      grain,
		Activation: NewActivationID(),
	}
}

// NewGrainAddress returns a partial address naming only the grain.
func NewGrainAddress(grain GrainID) ActivationAddress {
	return ActivationAddress{Grain: grain}
}

// IsComplete reports whether silo, grain and activation are all known.
func (a ActivationAddress) IsComplete() bool {
	return !a.Silo.IsZero() && !a.Grain.IsZero() && !a.Activation.IsZero()
}

// IsZero reports whether the address is unset.
func (a ActivationAddress) IsZero() bool {
	return a == ActivationAddress{}
}

// Equals reports whether both addresses name the same activation.
func (a ActivationAddress) Equals(other ActivationAddress) bool {
	return a == other
}

// String returns the canonical form of the address.
func (a ActivationAddress) String() string {
	silo := "?"
	if !a.Silo.IsZero() {
		silo = a.Silo.String()
	}
	activation := "?"
	if !a.Activation.IsZero() {
		activation = a.Activation.String()
	}
	return silo + "/" + a.Grain.String() + "#" + activation
}

// Validate checks that the address is complete and well formed.
func (a ActivationAddress) Validate() error {
	if !a.IsComplete() {
		return fmt.Errorf("address=(%s): %w", a.String(), ErrIncompleteAddress)
	}
	return validation.New(validation.FailFast()).
		AddValidator(a.Grain).
		AddValidator(a.Silo).
		Validate()
}
