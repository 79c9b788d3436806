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

package errors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDispatcherNotStarted is returned when the dispatcher is used before Start.
	ErrDispatcherNotStarted = errors.New("dispatcher is not started")

	// ErrDispatcherAlreadyStarted is returned when Start is called twice.
	ErrDispatcherAlreadyStarted = errors.New("dispatcher has already started")

	// ErrActivationNotFound is returned when no local activation matches an address.
	ErrActivationNotFound = errors.New("activation not found")

	// ErrInvalidActivation is returned when work targets an activation that can no longer accept it.
	ErrInvalidActivation = errors.New("activation is invalid")

	// ErrActivationFailure is returned when a grain activation routine failed.
	ErrActivationFailure = errors.New("grain activation failed")

	// ErrDeactivationFailure is returned when a grain deactivation routine failed.
	ErrDeactivationFailure = errors.New("grain deactivation failed")

	// ErrGrainKindNotRegistered is returned when no factory is known for a grain type.
	ErrGrainKindNotRegistered = errors.New("grain kind is not registered")

	// ErrMethodNotFound is returned when an (interface, method) pair has no handler.
	ErrMethodNotFound = errors.New("grain method not found")

	// ErrIncompatibleVersion is returned when the requested interface version cannot be served.
	ErrIncompatibleVersion = errors.New("incompatible interface version")

	// ErrRequestTimeout indicates that a request timed out while waiting for a response.
	ErrRequestTimeout = errors.New("request timed out")

	// ErrMessageExpired is returned when an expired message is handed to a send path.
	ErrMessageExpired = errors.New("message expired")

	// ErrInvalidMessage indicates that a message is structurally invalid.
	ErrInvalidMessage = errors.New("invalid message")

	// ErrAddressingFailure is returned when a message cannot be given a target address.
	ErrAddressingFailure = errors.New("failed to address message")

	// ErrForwardLimitReached is returned when a message exhausted its forward budget.
	ErrForwardLimitReached = errors.New("forward count limit reached")

	// ErrSchedulerStopped is returned when work is queued on a stopped scheduler.
	ErrSchedulerStopped = errors.New("scheduler is stopped")

	// ErrInvalidReentrancyMode indicates a reentrancy mode is not supported.
	ErrInvalidReentrancyMode = errors.New("invalid reentrancy mode")

	// ErrMissingInterleavePredicate is returned when the predicate mode has no predicate.
	ErrMissingInterleavePredicate = errors.New("interleave predicate is required")

	// ErrInjectedRejection is attached to rejections produced by error injection.
	ErrInjectedRejection = errors.New("injected rejection")
)

// NewErrActivationFailure wraps a base error with ErrActivationFailure
func NewErrActivationFailure(err error) error {
	return errors.Join(ErrActivationFailure, err)
}

// NewErrDeactivationFailure wraps a base error with ErrDeactivationFailure
func NewErrDeactivationFailure(err error) error {
	return errors.Join(ErrDeactivationFailure, err)
}

// NewErrGrainKindNotRegistered formats ErrGrainKindNotRegistered with the grain type.
func NewErrGrainKindNotRegistered(grainType string) error {
	return fmt.Errorf("grain type=(%s) %w", grainType, ErrGrainKindNotRegistered)
}

// NewErrMethodNotFound formats ErrMethodNotFound with the interface and method ids.
func NewErrMethodNotFound(interfaceID, methodID int32) error {
	return fmt.Errorf("(interface=%d, method=%d) %w", interfaceID, methodID, ErrMethodNotFound)
}

// NewErrIncompatibleVersion formats ErrIncompatibleVersion with the versions involved.
func NewErrIncompatibleVersion(interfaceID int32, requested, current string) error {
	return fmt.Errorf("(interface=%d, requested=%s, current=%s) %w", interfaceID, requested, current, ErrIncompatibleVersion)
}

// NewErrActivationNotFound formats ErrActivationNotFound with the address.
func NewErrActivationNotFound(addr string) error {
	return fmt.Errorf("(activation=%s) %w", addr, ErrActivationNotFound)
}

// NewErrAddressingFailure wraps a base error with ErrAddressingFailure
func NewErrAddressingFailure(err error) error {
	return errors.Join(ErrAddressingFailure, err)
}

// DeadlockError is raised when a request would wait, directly or transitively,
// on an activation that is already part of its own call chain. It travels back
// to the caller as an application level error.
type DeadlockError struct {
	chain []string
}

var _ error = (*DeadlockError)(nil)

// NewDeadlockError creates a DeadlockError for the given call chain,
// oldest entry first.
func NewDeadlockError(chain []string) *DeadlockError {
	return &DeadlockError{chain: append([]string(nil), chain...)}
}

// Error implements the standard error interface
func (e *DeadlockError) Error() string {
	return fmt.Sprintf("deadlock detected, call chain: %s", strings.Join(e.chain, " -> "))
}

// CallChain returns the call chain that closed the cycle.
func (e *DeadlockError) CallChain() []string {
	return append([]string(nil), e.chain...)
}

// RejectionError is the system level error carried by a rejection response.
type RejectionError struct {
	kind  string
	info  string
	cause error
}

var _ error = (*RejectionError)(nil)

// NewRejectionError creates a RejectionError. kind is the rejection type name.
func NewRejectionError(kind, info string, cause error) *RejectionError {
	return &RejectionError{kind: kind, info: info, cause: cause}
}

// Error implements the standard error interface
func (e *RejectionError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s rejection: %s: %v", e.kind, e.info, e.cause)
	}
	return fmt.Sprintf("%s rejection: %s", e.kind, e.info)
}

// Kind returns the rejection type name.
func (e *RejectionError) Kind() string {
	return e.kind
}

// Info returns the rejection details.
func (e *RejectionError) Info() string {
	return e.info
}

func (e *RejectionError) Unwrap() error {
	return e.cause
}

// LimitExceededError is returned when an activation exceeds its admission limit.
type LimitExceededError struct {
	limit     string
	count     int
	threshold int
	target    string
}

var _ error = (*LimitExceededError)(nil)

// NewLimitExceededError creates a LimitExceededError.
func NewLimitExceededError(limit string, count, threshold int, target string) *LimitExceededError {
	return &LimitExceededError{limit: limit, count: count, threshold: threshold, target: target}
}

// Error implements the standard error interface
func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("limit %s exceeded for %s: %d >= %d", e.limit, e.target, e.count, e.threshold)
}

// Count returns the observed value.
func (e *LimitExceededError) Count() int {
	return e.count
}

// Threshold returns the configured limit.
func (e *LimitExceededError) Threshold() int {
	return e.threshold
}

// NonExistentActivationError is returned when a message names a specific
// activation that is not present on this silo.
type NonExistentActivationError struct {
	address string
}

var _ error = (*NonExistentActivationError)(nil)

// NewNonExistentActivationError creates a NonExistentActivationError.
func NewNonExistentActivationError(address string) *NonExistentActivationError {
	return &NonExistentActivationError{address: address}
}

// Error implements the standard error interface
func (e *NonExistentActivationError) Error() string {
	return fmt.Sprintf("non-existent activation: %s", e.address)
}

// Address returns the address of the missing activation.
func (e *NonExistentActivationError) Address() string {
	return e.address
}

// Is lets errors.Is match ErrActivationNotFound.
func (e *NonExistentActivationError) Is(target error) bool {
	return target == ErrActivationNotFound
}

// PanicError defines the panic error
// wrapping the underlying error
type PanicError struct {
	err error
}

// enforce compilation error
var _ error = (*PanicError)(nil)

// NewPanicError creates an instance of PanicError
func NewPanicError(err error) *PanicError {
	return &PanicError{err}
}

// Error implements the standard error interface
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.err)
}

func (e *PanicError) Unwrap() error {
	return e.err
}

// InternalError defines an error that is explicit to the runtime
type InternalError struct {
	err error
}

// enforce compilation error
var _ error = (*InternalError)(nil)

// NewInternalError returns an intance of InternalError
func NewInternalError(err error) *InternalError {
	return &InternalError{
		err: fmt.Errorf("internal error: %w", err),
	}
}

// Error implements the standard error interface
func (i *InternalError) Error() string {
	return i.err.Error()
}

func (i *InternalError) Unwrap() error {
	return i.err
}
