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

// Package invoker maps (interface id, method id) pairs to grain methods.
//
// Every grain kind owns a Table built once when the kind is registered. The
// Registry caches the tables by grain type and is injected into the
// dispatcher, so independent dispatchers never share method state.
package invoker

import (
	"context"
	"errors"
	"fmt"

	gerrors "github.com/tochemey/graindispatch/errors"
	"github.com/tochemey/graindispatch/internal/xsync"
	"github.com/tochemey/graindispatch/message"
)

// MethodFunc runs one grain method on the given grain instance.
type MethodFunc func(ctx context.Context, grain any, args []any) (any, error)

// MethodKey identifies a method within the grain interfaces.
type MethodKey struct {
	InterfaceID int32
	MethodID    int32
}

// String returns "<interface>.<method>".
func (k MethodKey) String() string {
	return fmt.Sprintf("%d.%d", k.InterfaceID, k.MethodID)
}

// Method describes a grain method and the scheduling hints attached to it.
type Method struct {
	Key              MethodKey
	Name             string
	Invoke           MethodFunc
	ReadOnly         bool
	AlwaysInterleave bool
	Unordered        bool
	OneWay           bool
}

// Invoker runs the method targeted by a request message.
type Invoker interface {
	Invoke(ctx context.Context, grain any, msg *message.Message) (any, error)
}

// Table is the method table of one grain kind.
type Table struct {
	grainType string
	methods   map[MethodKey]Method
}

// NewTable creates an empty Table for grainType.
func NewTable(grainType string) *Table {
	return &Table{
		grainType: grainType,
		methods:   make(map[MethodKey]Method),
	}
}

// GrainType returns the grain type the table serves.
func (t *Table) GrainType() string {
	return t.grainType
}

// Add registers method. It panics when the key is already taken or the
// method has no function, since tables are built at startup.
func (t *Table) Add(method Method) *Table {
	if method.Invoke == nil {
		panic(fmt.Sprintf("invoker: method %s of %s has no function", method.Key, t.grainType))
	}
	if _, ok := t.methods[method.Key]; ok {
		panic(fmt.Sprintf("invoker: method %s of %s registered twice", method.Key, t.grainType))
	}
	t.methods[method.Key] = method
	return t
}

// Lookup returns the method registered under (interfaceID, methodID).
func (t *Table) Lookup(interfaceID, methodID int32) (Method, bool) {
	m, ok := t.methods[MethodKey{InterfaceID: interfaceID, MethodID: methodID}]
	return m, ok
}

// Len returns the number of methods.
func (t *Table) Len() int {
	return len(t.methods)
}

// Invoke implements Invoker.
func (t *Table) Invoke(ctx context.Context, grain any, msg *message.Message) (any, error) {
	method, ok := t.Lookup(msg.InterfaceID, msg.MethodID)
	if !ok {
		return nil, gerrors.NewErrMethodNotFound(msg.InterfaceID, msg.MethodID)
	}
	return method.Invoke(ctx, grain, msg.Arguments)
}

// Registry caches the method tables of every grain kind.
type Registry struct {
	tables *xsync.Map[string, *Table]
}

var _ Invoker = (*Registry)(nil)

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tables: xsync.NewMap[string, *Table]()}
}

// Register adds table. It fails when the grain type already has a table.
func (r *Registry) Register(table *Table) error {
	if table == nil || table.grainType == "" {
		return errors.New("invoker: table must name a grain type")
	}
	if _, loaded := r.tables.GetOrSet(table.grainType, func() *Table { return table }); loaded {
		return fmt.Errorf("invoker: grain type %s already registered", table.grainType)
	}
	return nil
}

// Table returns the table of grainType.
func (r *Registry) Table(grainType string) (*Table, error) {
	table, ok := r.tables.Get(grainType)
	if !ok {
		return nil, gerrors.NewErrGrainKindNotRegistered(grainType)
	}
	return table, nil
}

// Invoke implements Invoker by dispatching on the target grain type.
func (r *Registry) Invoke(ctx context.Context, grain any, msg *message.Message) (any, error) {
	table, err := r.Table(msg.TargetGrain().Type)
	if err != nil {
		return nil, err
	}
	return table.Invoke(ctx, grain, msg)
}

// ApplyFlags copies the scheduling hints of the targeted method onto msg.
// Unknown methods leave msg untouched.
func (r *Registry) ApplyFlags(msg *message.Message) {
	table, ok := r.tables.Get(msg.TargetGrain().Type)
	if !ok {
		return
	}
	method, ok := table.Lookup(msg.InterfaceID, msg.MethodID)
	if !ok {
		return
	}
	msg.IsReadOnly = msg.IsReadOnly || method.ReadOnly
	msg.IsAlwaysInterleave = msg.IsAlwaysInterleave || method.AlwaysInterleave
	msg.IsUnordered = msg.IsUnordered || method.Unordered
	if method.OneWay && msg.Direction == message.Request {
		msg.Direction = message.OneWay
	}
}
