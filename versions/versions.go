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

// Package versions decides whether an activation can serve a request issued
// against a given interface version.
package versions

import (
	"fmt"
	"sync"

	"github.com/Masterminds/semver/v3"

	gerrors "github.com/tochemey/graindispatch/errors"
)

// Strategy tells how a requested version is compared with the version the
// silo currently implements.
type Strategy int

const (
	// BackwardCompatible accepts requests for the same major version that are
	// not newer than the current version.
	BackwardCompatible Strategy = iota
	// Strict accepts only requests for exactly the current version.
	Strict
	// AllVersions accepts any request.
	AllVersions
)

// String returns the strategy name.
func (s Strategy) String() string {
	switch s {
	case BackwardCompatible:
		return "BackwardCompatible"
	case Strict:
		return "Strict"
	case AllVersions:
		return "AllVersions"
	default:
		return "Unknown"
	}
}

// Resolver is the compatibility contract consumed by the dispatcher.
type Resolver interface {
	// IsCompatible reports whether a request issued against requested can be
	// served by the local implementation of interfaceID.
	IsCompatible(interfaceID int32, requested string) bool
}

type entry struct {
	current  *semver.Version
	strategy Strategy
}

// Manager keeps the current version of each interface implemented locally.
// Interfaces that were never registered are compatible with every request.
type Manager struct {
	mu         sync.RWMutex
	interfaces map[int32]entry
}

var _ Resolver = (*Manager)(nil)

// NewManager creates an empty Manager.
func NewManager() *Manager {
	return &Manager{interfaces: make(map[int32]entry)}
}

// Register records the current version of interfaceID.
func (m *Manager) Register(interfaceID int32, current string, strategy Strategy) error {
	version, err := semver.NewVersion(current)
	if err != nil {
		return fmt.Errorf("interface=%d: invalid version=(%s): %w", interfaceID, current, err)
	}
	if strategy < BackwardCompatible || strategy > AllVersions {
		return fmt.Errorf("interface=%d: unknown strategy %d", interfaceID, strategy)
	}

	m.mu.Lock()
	m.interfaces[interfaceID] = entry{current: version, strategy: strategy}
	m.mu.Unlock()
	return nil
}

// CurrentVersion returns the registered version of interfaceID.
func (m *Manager) CurrentVersion(interfaceID int32) (string, bool) {
	m.mu.RLock()
	e, ok := m.interfaces[interfaceID]
	m.mu.RUnlock()
	if !ok {
		return "", false
	}
	return e.current.String(), true
}

// IsCompatible implements Resolver. The requested version may be an exact
// version or a constraint such as "^1.2".
func (m *Manager) IsCompatible(interfaceID int32, requested string) bool {
	return m.Check(interfaceID, requested) == nil
}

// Check is IsCompatible returning the reason of an incompatibility.
func (m *Manager) Check(interfaceID int32, requested string) error {
	if requested == "" {
		return nil
	}

	m.mu.RLock()
	e, ok := m.interfaces[interfaceID]
	m.mu.RUnlock()
	if !ok || e.strategy == AllVersions {
		return nil
	}

	if version, err := semver.NewVersion(requested); err == nil {
		if compatible(e, version) {
			return nil
		}
		return gerrors.NewErrIncompatibleVersion(interfaceID, requested, e.current.String())
	}

	constraint, err := semver.NewConstraint(requested)
	if err != nil {
		return fmt.Errorf("interface=%d: invalid requested version=(%s): %w", interfaceID, requested, err)
	}
	if constraint.Check(e.current) {
		return nil
	}
	return gerrors.NewErrIncompatibleVersion(interfaceID, requested, e.current.String())
}

func compatible(e entry, requested *semver.Version) bool {
	switch e.strategy {
	case Strict:
		return e.current.Equal(requested)
	case BackwardCompatible:
		return e.current.Major() == requested.Major() && !e.current.LessThan(requested)
	default:
		return true
	}
}
