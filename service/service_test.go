/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package service

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/inspecta/inspecta/log/logtest"
)

type mockUnit struct {
	name     string
	running  *atomic.Int32
	startErr error
	stopErr  error

	mu                        sync.Mutex
	startCalled               int
	stopCalled                int
	stopGracefullyCalled      int
	mustRegisterMetricsCalled int
	unregisterMetricsCalled   int
}

func newMockUnit(name string, running *atomic.Int32) *mockUnit {
	return &mockUnit{name: name, running: running}
}

func (u *mockUnit) Start(fatalErr chan<- error) {
	u.mu.Lock()
	u.startCalled++
	u.mu.Unlock()
	if u.startErr != nil {
		fatalErr <- u.startErr
		return
	}
	u.running.Inc()
}

func (u *mockUnit) Stop(gracefully bool) error {
	u.mu.Lock()
	u.stopCalled++
	if gracefully {
		u.stopGracefullyCalled++
	}
	u.mu.Unlock()
	if u.stopErr != nil {
		return u.stopErr
	}
	u.running.Dec()
	return nil
}

func (u *mockUnit) MustRegisterMetrics() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.mustRegisterMetricsCalled++
}

func (u *mockUnit) UnregisterMetrics() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.unregisterMetricsCalled++
}

func (u *mockUnit) calls() (start, stop, stopGracefully, register, unregister int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.startCalled, u.stopCalled, u.stopGracefullyCalled, u.mustRegisterMetricsCalled, u.unregisterMetricsCalled
}

func TestService_Start(t *testing.T) {
	var running atomic.Int32
	unit := newMockUnit("http", &running)
	svc := New(logtest.NewRecorder(), unit)

	done := make(chan error, 1)
	go func() { done <- svc.Start() }()
	require.Eventually(t, func() bool { return running.Load() == 1 }, 3*time.Second, 10*time.Millisecond)

	svc.Signals <- os.Interrupt
	require.NoError(t, <-done)

	start, stop, stopGracefully, register, unregister := unit.calls()
	require.Equal(t, 1, start)
	require.Equal(t, 1, stop)
	require.Equal(t, 1, stopGracefully)
	require.Equal(t, 1, register)
	require.Equal(t, 1, unregister)
	require.Equal(t, int32(0), running.Load())
}

func TestService_StartContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var running atomic.Int32
	unit := newMockUnit("http", &running)
	logRecorder := logtest.NewRecorder()
	svc := New(logRecorder, unit)

	done := make(chan error, 1)
	go func() { done <- svc.StartContext(ctx) }()
	require.Eventually(t, func() bool { return running.Load() == 1 }, 3*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	_, _, stopGracefully, _, _ := unit.calls()
	require.Equal(t, 1, stopGracefully)
	_, found := logRecorder.FindEntry("service stopped")
	require.True(t, found)
}

func TestService_StartContext_FatalError(t *testing.T) {
	var running atomic.Int32
	unit := newMockUnit("http", &running)
	unit.startErr = errors.New("listen tcp: address already in use")
	logRecorder := logtest.NewRecorder()
	svc := NewWithOpts(logRecorder, unit, Opts{})

	err := svc.StartContext(context.Background())
	require.ErrorIs(t, err, unit.startErr)
	_, found := logRecorder.FindEntry("service fatal error")
	require.True(t, found)
}

func TestService_StartContext_StopError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var running atomic.Int32
	unit := newMockUnit("http", &running)
	unit.stopErr = errors.New("shutdown timeout")
	svc := NewWithOpts(logtest.NewRecorder(), unit, Opts{})

	done := make(chan error, 1)
	go func() { done <- svc.StartContext(ctx) }()
	require.Eventually(t, func() bool { return running.Load() == 1 }, 3*time.Second, 10*time.Millisecond)
	cancel()
	require.ErrorIs(t, <-done, unit.stopErr)
}
