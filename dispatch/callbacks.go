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
	"go.uber.org/atomic"

	"github.com/tochemey/graindispatch/address"
	"github.com/tochemey/graindispatch/internal/xsync"
	"github.com/tochemey/graindispatch/message"
)

type callbackKey struct {
	sender address.ActivationID
	id     int64
}

// callback waits for the response of one request.
type callback struct {
	// request is a copy of the request taken before it was sent, since the
	// routing fields of the sent message change as it travels
	request  message.Message
	resends  *atomic.Int32
	response chan *message.Message
}

// snapshot returns a fresh copy of the request.
func (cb *callback) snapshot() *message.Message {
	clone := cb.request
	clone.CacheInvalidationHeader = append([]address.ActivationAddress(nil), cb.request.CacheInvalidationHeader...)
	return &clone
}

// callbacks matches responses with the requests waiting for them.
type callbacks struct {
	entries *xsync.Map[callbackKey, *callback]
}

func newCallbacks() *callbacks {
	return &callbacks{entries: xsync.NewMap[callbackKey, *callback]()}
}

func keyOf(sender address.ActivationAddress, id int64) callbackKey {
	return callbackKey{sender: sender.Activation, id: id}
}

func (c *callbacks) register(request *message.Message) *callback {
	cb := &callback{
		request:  *request,
		resends:  atomic.NewInt32(0),
		response: make(chan *message.Message, 1),
	}
	c.entries.Set(keyOf(request.SendingAddress, request.ID), cb)
	return cb
}

func (c *callbacks) unregister(request *message.Message) {
	c.entries.Delete(keyOf(request.SendingAddress, request.ID))
}

// lookup returns the callback matching response.
func (c *callbacks) lookup(response *message.Message) (*callback, bool) {
	return c.entries.Get(keyOf(response.TargetAddress, response.ID))
}

// complete hands response to its waiter and forgets the callback. It returns
// false when nobody is waiting.
func (c *callbacks) complete(response *message.Message) bool {
	cb, ok := c.entries.LoadAndDelete(keyOf(response.TargetAddress, response.ID))
	if !ok {
		return false
	}
	select {
	case cb.response <- response:
	default:
	}
	return true
}

func (c *callbacks) len() int {
	return c.entries.Len()
}
