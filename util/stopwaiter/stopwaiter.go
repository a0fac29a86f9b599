// Copyright 2021-2022, Offchain Labs, Inc.
// For license information, see https://github.com/nitro/blob/master/LICENSE

// Package stopwaiter ties the goroutines of a long running component to a
// context, so that stopping the component cancels and waits for them.
package stopwaiter

import (
	"context"
	"errors"
	"reflect"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"
)

const stopDelayWarningTimeout = 30 * time.Second

var (
	ErrNotStarted      = errors.New("not started")
	ErrStartAfterStart = errors.New("start after start")
)

type StopWaiterSafe struct {
	mutex    sync.Mutex // protects started, stopped, ctx, stopFunc, waitChan
	started  bool
	stopped  bool
	ctx      context.Context
	stopFunc func()
	name     string
	waitChan <-chan struct{}

	wg sync.WaitGroup
}

func (s *StopWaiterSafe) Started() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.started
}

func (s *StopWaiterSafe) Stopped() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.stopped
}

func (s *StopWaiterSafe) GetContext() (context.Context, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.getContext()
}

// Only call this internally with the mutex held.
func (s *StopWaiterSafe) getContext() (context.Context, error) {
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.ctx, nil
}

func typeName(parent any) string {
	return strings.TrimPrefix(reflect.TypeOf(parent).String(), "*")
}

// Start derives the component context from ctx. Starting twice is an
// error; starting after stop yields an already cancelled context.
func (s *StopWaiterSafe) Start(ctx context.Context, parent any) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.started {
		return ErrStartAfterStart
	}
	s.started = true
	s.name = typeName(parent)
	s.ctx, s.stopFunc = context.WithCancel(ctx)
	if s.stopped {
		s.stopFunc()
	}
	return nil
}

// stopOnly cancels the context and reports whether it was running.
func (s *StopWaiterSafe) stopOnly() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	wasRunning := s.started && !s.stopped
	if wasRunning {
		s.stopFunc()
	}
	s.stopped = true
	return wasRunning
}

// StopAndWait may be called multiple times, even before start.
func (s *StopWaiterSafe) StopAndWait() error {
	return s.stopAndWaitImpl(stopDelayWarningTimeout)
}

func allStackTraces() string {
	buf := make([]byte, 1<<20)
	for {
		size := runtime.Stack(buf, true)
		if size < len(buf) {
			return string(buf[:size])
		}
		buf = make([]byte, 2*len(buf))
	}
}

func (s *StopWaiterSafe) stopAndWaitImpl(warningTimeout time.Duration) error {
	if !s.stopOnly() {
		return nil
	}
	waitChan, err := s.waitChannel()
	if err != nil {
		return err
	}
	timer := time.NewTimer(warningTimeout)
	defer timer.Stop()
	select {
	case <-waitChan:
		return nil
	case <-timer.C:
	}
	log.Warn(s.name+" taking more than "+warningTimeout.String()+" to stop", "name", s.name)
	log.Debug("goroutines of a slow stop", "name", s.name, "traces", allStackTraces())
	<-waitChan
	return nil
}

func (s *StopWaiterSafe) waitChannel() (<-chan struct{}, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.waitChan != nil {
		return s.waitChan, nil
	}
	ctx, err := s.getContext()
	if err != nil {
		return nil, err
	}
	waitChan := make(chan struct{})
	go func() {
		<-ctx.Done()
		s.wg.Wait()
		close(waitChan)
	}()
	s.waitChan = waitChan
	return waitChan, nil
}

// LaunchThread runs foo in a tracked goroutine. After stop, foo is
// silently not launched.
func (s *StopWaiterSafe) LaunchThread(foo func(context.Context)) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	ctx, err := s.getContext()
	if err != nil {
		return err
	}
	if s.stopped {
		return nil
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		foo(ctx)
	}()
	return nil
}

// CallIteratively calls foo in a loop; its result is how long to wait
// before the next call.
func (s *StopWaiterSafe) CallIteratively(foo func(context.Context) time.Duration) error {
	return s.LaunchThread(func(ctx context.Context) {
		for {
			interval := foo(ctx)
			if ctx.Err() != nil {
				return
			}
			if interval == 0 {
				continue
			}
			timer := time.NewTimer(interval)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	})
}

// CallIterativelyWith is CallIteratively where anything received on
// triggerChan cuts the wait short. foo gets the received value, or the zero
// value when the wait ran out.
func CallIterativelyWith[T any](
	s *StopWaiterSafe,
	foo func(context.Context, T) time.Duration,
	triggerChan <-chan T,
) error {
	return s.LaunchThread(func(ctx context.Context) {
		var val T
		for {
			interval := foo(ctx, val)
			if ctx.Err() != nil {
				return
			}
			var zero T
			val = zero
			timer := time.NewTimer(interval)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			case val = <-triggerChan:
				timer.Stop()
			}
		}
	})
}

// StopWaiter panics where StopWaiterSafe returns errors; those are
// programming errors such as starting twice.
type StopWaiter struct {
	StopWaiterSafe
}

func (s *StopWaiter) Start(ctx context.Context, parent any) {
	if err := s.StopWaiterSafe.Start(ctx, parent); err != nil {
		panic(err)
	}
}

func (s *StopWaiter) StopAndWait() {
	if err := s.StopWaiterSafe.StopAndWait(); err != nil {
		panic(err)
	}
}

func (s *StopWaiter) LaunchThread(foo func(context.Context)) {
	if err := s.StopWaiterSafe.LaunchThread(foo); err != nil {
		panic(err)
	}
}

func (s *StopWaiter) CallIteratively(foo func(context.Context) time.Duration) {
	if err := s.StopWaiterSafe.CallIteratively(foo); err != nil {
		panic(err)
	}
}

func (s *StopWaiter) GetContext() context.Context {
	ctx, err := s.StopWaiterSafe.GetContext()
	if err != nil {
		panic(err)
	}
	return ctx
}
