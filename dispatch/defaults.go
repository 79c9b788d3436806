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
	"time"
)

const (
	// DefaultMaxForwardCount defines how many times a request may be forwarded
	// before it is rejected
	DefaultMaxForwardCount = 2
	// DefaultMaxResendCount defines how many times a transiently rejected request
	// is resent. Zero disables resends
	DefaultMaxResendCount = 0
	// DefaultMaxRequestProcessingTime defines the time after which a busy
	// activation is considered stuck
	DefaultMaxRequestProcessingTime = 2 * time.Hour
	// DefaultMaxWarningRequestProcessingTime defines the time after which a long
	// running request is reported
	DefaultMaxWarningRequestProcessingTime = 5 * time.Second
	// DefaultResponseTimeout defines the default request timeout
	DefaultResponseTimeout = 30 * time.Second
	// DefaultDeactivateAfter defines the default idle time before an activation is collected
	DefaultDeactivateAfter = 2 * time.Minute
	// DefaultCollectionInterval defines how often idle activations are looked for
	DefaultCollectionInterval = time.Minute
	// DefaultInitMaxRetries defines the default value for retrying grain activation
	DefaultInitMaxRetries = 5
	// DefaultInitTimeout defines the default activation timeout
	DefaultInitTimeout = time.Second
	// DefaultShutdownTimeout defines the default shutdown timeout
	DefaultShutdownTimeout = time.Minute
	// DefaultSchedulerShards defines the default number of scheduler shards
	DefaultSchedulerShards = 16

	// ClientGrainType is the grain type of the addresses used by callers that
	// are not grains themselves
	ClientGrainType = "sys.client"
)
