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

// Package message defines the unit of communication between grains.
package message

import (
	"context"
	"fmt"
	"time"

	goset "github.com/deckarep/golang-set/v2"
	"go.uber.org/atomic"

	"github.com/tochemey/graindispatch/address"
	gerrors "github.com/tochemey/graindispatch/errors"
)

var correlationIDs = atomic.NewInt64(0)

// NextCorrelationID returns a process wide unique correlation id.
func NextCorrelationID() int64 {
	return correlationIDs.Inc()
}

// CallChainEntry records one hop of a request chain.
type CallChainEntry struct {
	Grain       address.GrainID
	Activation  address.ActivationID
	InterfaceID int32
	MethodID    int32
}

// String returns a readable form of the entry.
func (e CallChainEntry) String() string {
	return fmt.Sprintf("%s#%s.%d.%d", e.Grain.String(), e.Activation.String(), e.InterfaceID, e.MethodID)
}

// Message is a request, response or one-way call exchanged between grains.
//
// A Message is owned by one goroutine at a time. The dispatcher mutates the
// routing fields while forwarding or resending it.
type Message struct {
	ID        int64
	Direction Direction
	Result    Result

	RejectionType RejectionType
	RejectionInfo string

	TargetAddress  address.ActivationAddress
	SendingAddress address.ActivationAddress

	// Expiration is the deadline after which the message is dropped. Zero means never.
	Expiration time.Time

	IsReadOnly         bool
	IsAlwaysInterleave bool
	IsUnordered        bool

	// IsNewPlacement is set when the target activation was picked by placement
	// rather than found in the directory.
	IsNewPlacement bool
	// IsReturnedFromRemoteCluster is set when the message bounced back to a
	// sender located in another cluster. It grants one extra forward hop.
	IsReturnedFromRemoteCluster bool

	ForwardCount int
	ResendCount  int

	// CacheInvalidationHeader lists the stale addresses the sender must drop
	// from its directory cache.
	CacheInvalidationHeader []address.ActivationAddress

	InterfaceID      int32
	MethodID         int32
	InterfaceVersion string

	CallChain          []CallChainEntry
	RequestContextData map[string]any

	Arguments []any
	// Body carries the response payload: the return value for ResultOK and an
	// error for ResultError or ResultRejection.
	Body any
}

// NewRequest creates a Request to the given grain method.
func NewRequest(sender, target address.ActivationAddress, interfaceID, methodID int32, args ...any) *Message {
	return &Message{
		ID:             NextCorrelationID(),
		Direction:      Request,
		SendingAddress: sender,
		TargetAddress:  target,
		InterfaceID:    interfaceID,
		MethodID:       methodID,
		Arguments:      args,
	}
}

// NewOneWay creates a OneWay call to the given grain method.
func NewOneWay(sender, target address.ActivationAddress, interfaceID, methodID int32, args ...any) *Message {
	msg := NewRequest(sender, target, interfaceID, methodID, args...)
	msg.Direction = OneWay
	return msg
}

// SetTimeout sets the expiration relative to now.
func (m *Message) SetTimeout(now time.Time, timeout time.Duration) {
	if timeout <= 0 {
		m.Expiration = time.Time{}
		return
	}
	m.Expiration = now.Add(timeout)
}

// IsExpired reports whether the deadline has passed at now.
func (m *Message) IsExpired(now time.Time) bool {
	return !m.Expiration.IsZero() && now.After(m.Expiration)
}

// MayForward reports whether the message can be forwarded once more given the
// configured maximum number of forwards.
func (m *Message) MayForward(maxForwardCount int) bool {
	limit := maxForwardCount
	if m.IsReturnedFromRemoteCluster {
		limit++
	}
	return m.ForwardCount < limit
}

// MayResend reports whether the message can be resent once more given the
// configured maximum number of resends.
func (m *Message) MayResend(maxResendCount int) bool {
	return m.ResendCount < maxResendCount
}

// AddToCacheInvalidationHeader records a stale address. Duplicates are ignored.
func (m *Message) AddToCacheInvalidationHeader(addr address.ActivationAddress) {
	seen := goset.NewThreadUnsafeSet(m.CacheInvalidationHeader...)
	if seen.Contains(addr) {
		return
	}
	m.CacheInvalidationHeader = append(m.CacheInvalidationHeader, addr)
}

// HasCacheInvalidationHeader reports whether stale addresses are attached.
func (m *Message) HasCacheInvalidationHeader() bool {
	return len(m.CacheInvalidationHeader) > 0
}

// TargetGrain returns the grain the message is addressed to.
func (m *Message) TargetGrain() address.GrainID {
	return m.TargetAddress.Grain
}

// CreateResponse builds the OK response carrying body.
func (m *Message) CreateResponse(body any) *Message {
	response := &Message{
		ID:                 m.ID,
		Direction:          Response,
		Result:             ResultOK,
		TargetAddress:      m.SendingAddress,
		SendingAddress:     m.TargetAddress,
		Expiration:         m.Expiration,
		IsReadOnly:         m.IsReadOnly,
		IsAlwaysInterleave: m.IsAlwaysInterleave,
		InterfaceID:        m.InterfaceID,
		MethodID:           m.MethodID,
		RequestContextData: m.RequestContextData,
		Body:               body,
	}
	if len(m.CacheInvalidationHeader) > 0 {
		response.CacheInvalidationHeader = append([]address.ActivationAddress(nil), m.CacheInvalidationHeader...)
	}
	return response
}

// CreateErrorResponse builds the response carrying an application error.
func (m *Message) CreateErrorResponse(err error) *Message {
	response := m.CreateResponse(err)
	response.Result = ResultError
	return response
}

// CreateRejectionResponse builds the system rejection of the request.
func (m *Message) CreateRejectionResponse(rejection RejectionType, info string, cause error) *Message {
	response := m.CreateResponse(gerrors.NewRejectionError(rejection.String(), info, cause))
	response.Result = ResultRejection
	response.RejectionType = rejection
	response.RejectionInfo = info
	return response
}

// Err returns the error carried by an Error or Rejection response.
func (m *Message) Err() error {
	if m.Result == ResultOK {
		return nil
	}
	if err, ok := m.Body.(error); ok {
		return err
	}
	return fmt.Errorf("%s response without error body", m.Result)
}

// String returns a short description used in logs.
func (m *Message) String() string {
	return fmt.Sprintf("%s #%d %s -> %s [%d.%d]", m.Direction, m.ID,
		m.SendingAddress.String(), m.TargetAddress.String(), m.InterfaceID, m.MethodID)
}

type contextKey struct{}

// NewContext returns a context carrying the message being processed. Requests
// issued under that context extend its call chain.
func NewContext(ctx context.Context, msg *Message) context.Context {
	return context.WithValue(ctx, contextKey{}, msg)
}

// FromContext returns the message being processed, if any.
func FromContext(ctx context.Context) (*Message, bool) {
	msg, ok := ctx.Value(contextKey{}).(*Message)
	return msg, ok && msg != nil
}

// InheritCallChain copies the call chain of parent into m and appends the hop
// represented by parent itself.
func (m *Message) InheritCallChain(parent *Message) {
	chain := make([]CallChainEntry, 0, len(parent.CallChain)+1)
	chain = append(chain, parent.CallChain...)
	chain = append(chain, CallChainEntry{
		Grain:       parent.TargetAddress.Grain,
		Activation:  parent.TargetAddress.Activation,
		InterfaceID: parent.InterfaceID,
		MethodID:    parent.MethodID,
	})
	m.CallChain = chain
	if m.RequestContextData == nil && parent.RequestContextData != nil {
		m.RequestContextData = parent.RequestContextData
	}
}
