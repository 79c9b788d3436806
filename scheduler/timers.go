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

package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/reugn/go-quartz/job"
	quartzlogger "github.com/reugn/go-quartz/logger"
	"github.com/reugn/go-quartz/quartz"
	"go.uber.org/atomic"

	"github.com/tochemey/graindispatch/log"
)

// ErrTimersNotStarted is returned when a job is scheduled before Start.
var ErrTimersNotStarted = errors.New("timers are not started")

// Timers runs delayed and periodic runtime jobs such as the idle activation
// collector.
type Timers struct {
	mu          sync.Mutex
	quartz      quartz.Scheduler
	started     *atomic.Bool
	logger      log.Logger
	stopTimeout time.Duration
}

// NewTimers creates a Timers instance.
func NewTimers(logger log.Logger, stopTimeout time.Duration) *Timers {
	if logger == nil {
		logger = log.DiscardLogger
	}
	scheduler, _ := quartz.NewStdScheduler(quartz.WithLogger(quartzlogger.NewSimpleLogger(nil, quartzlogger.LevelOff)))
	return &Timers{
		quartz:      scheduler,
		started:     atomic.NewBool(false),
		logger:      logger,
		stopTimeout: stopTimeout,
	}
}

// Start starts the timers.
func (t *Timers) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started.Load() {
		return
	}
	t.quartz.Start(ctx)
	t.started.Store(t.quartz.IsStarted())
}

// Stop clears the pending jobs and waits for the running ones.
func (t *Timers) Stop(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.started.Load() {
		return
	}
	_ = t.quartz.Clear()
	t.quartz.Stop()
	t.started.Store(t.quartz.IsStarted())

	ctx, cancel := context.WithTimeout(ctx, t.stopTimeout)
	defer cancel()
	t.quartz.Wait(ctx)
}

// Once runs fn after delay.
func (t *Timers) Once(name string, delay time.Duration, fn func(ctx context.Context)) error {
	return t.schedule(name, fn, quartz.NewRunOnceTrigger(delay))
}

// Every runs fn every interval until Stop.
func (t *Timers) Every(name string, interval time.Duration, fn func(ctx context.Context)) error {
	return t.schedule(name, fn, quartz.NewSimpleTrigger(interval))
}

func (t *Timers) schedule(name string, fn func(ctx context.Context), trigger quartz.Trigger) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.started.Load() {
		return ErrTimersNotStarted
	}

	fnJob := job.NewFunctionJob[bool](func(ctx context.Context) (bool, error) {
		fn(ctx)
		return true, nil
	})
	key := name + "-" + uuid.NewString()
	detail := quartz.NewJobDetail(fnJob, quartz.NewJobKey(key))
	t.logger.Debugf("scheduling job %s", key)
	return t.quartz.ScheduleJob(detail, trigger)
}
