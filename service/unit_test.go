/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

func TestCompositeUnit_StartStop(t *testing.T) {
	var running atomic.Int32
	units := []*mockUnit{newMockUnit("http", &running), newMockUnit("sweeper", &running), newMockUnit("other", &running)}
	cu := NewCompositeUnit(units[0], units[1], units[2])

	cu.MustRegisterMetrics()
	fatalErr := make(chan error, 1)
	cu.Start(fatalErr)
	require.Len(t, fatalErr, 0)
	require.Equal(t, int32(3), running.Load())

	require.NoError(t, cu.Stop(true))
	cu.UnregisterMetrics()
	require.Equal(t, int32(0), running.Load())
	for _, u := range units {
		start, stop, stopGracefully, register, unregister := u.calls()
		require.Equal(t, 1, start, u.name)
		require.Equal(t, 1, stop, u.name)
		require.Equal(t, 1, stopGracefully, u.name)
		require.Equal(t, 1, register, u.name)
		require.Equal(t, 1, unregister, u.name)
	}
}

func TestCompositeUnit_StartFailure(t *testing.T) {
	var running atomic.Int32
	ok := newMockUnit("sweeper", &running)
	failed := newMockUnit("http", &running)
	failed.startErr = errors.New("listen tcp: address already in use")
	cu := NewCompositeUnit(ok, failed)

	fatalErr := make(chan error, 1)
	cu.Start(fatalErr)
	require.Len(t, fatalErr, 1)

	err := <-fatalErr
	var cuErr *CompositeUnitError
	require.ErrorAs(t, err, &cuErr)
	require.Contains(t, cuErr.UnitErrors, failed.startErr)

	_, _, stopGracefully, _, _ := ok.calls()
	require.Equal(t, 0, stopGracefully)
	_, stop, _, _, _ := ok.calls()
	require.Equal(t, 1, stop)
}

func TestCompositeUnit_StopErrors(t *testing.T) {
	var running atomic.Int32
	u1 := newMockUnit("http", &running)
	u1.stopErr = errors.New("shutdown timeout")
	u2 := newMockUnit("sweeper", &running)
	u2.stopErr = errors.New("worker unit stop timeout exceeded")
	cu := NewCompositeUnit(u1, u2, newMockUnit("other", &running))

	err := cu.Stop(true)
	var cuErr *CompositeUnitError
	require.ErrorAs(t, err, &cuErr)
	require.ElementsMatch(t, []error{u1.stopErr, u2.stopErr}, cuErr.UnitErrors)
}
