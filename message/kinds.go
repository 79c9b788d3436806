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

package message

// Direction tells how a message travels.
type Direction int

const (
	// Request expects a Response.
	Request Direction = iota
	// Response answers a Request.
	Response
	// OneWay is a request without response.
	OneWay
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case Request:
		return "Request"
	case Response:
		return "Response"
	case OneWay:
		return "OneWay"
	default:
		return "Unknown"
	}
}

// Result tells how a response must be read.
type Result int

const (
	// ResultOK carries the method return value.
	ResultOK Result = iota
	// ResultError carries an application error raised by the method.
	ResultError
	// ResultRejection carries a system rejection.
	ResultRejection
)

// String returns the result name.
func (r Result) String() string {
	switch r {
	case ResultOK:
		return "OK"
	case ResultError:
		return "Error"
	case ResultRejection:
		return "Rejection"
	default:
		return "Unknown"
	}
}

// RejectionType classifies system rejections.
type RejectionType int

const (
	// Transient rejections may succeed when retried.
	Transient RejectionType = iota
	// Overloaded is returned when the target activation refused to queue more work.
	Overloaded
	// DuplicateRequest is returned when the same request was already accepted.
	DuplicateRequest
	// Unrecoverable rejections will not succeed on retry.
	Unrecoverable
	// CacheInvalidation tells the sender that its cached address is stale.
	CacheInvalidation
)

// String returns the rejection type name.
func (r RejectionType) String() string {
	switch r {
	case Transient:
		return "Transient"
	case Overloaded:
		return "Overloaded"
	case DuplicateRequest:
		return "DuplicateRequest"
	case Unrecoverable:
		return "Unrecoverable"
	case CacheInvalidation:
		return "CacheInvalidation"
	default:
		return "Unknown"
	}
}
