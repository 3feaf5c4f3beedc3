/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package masterdata

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/inspecta/inspecta/backend"
	"github.com/inspecta/inspecta/lrucache"
)

type fakeStore struct {
	plants  map[string]Plant
	lines   []Line
	calls   atomic.Int32
	failErr error
}

func (s *fakeStore) Select(ctx context.Context, table string, q backend.Query, dst interface{}) (int, error) {
	s.calls.Inc()
	if s.failErr != nil {
		return 0, s.failErr
	}
	plant := q.Filters[0].Value
	var rows []Line
	for _, l := range s.lines {
		if l.Plant == plant {
			rows = append(rows, l)
		}
	}
	return -1, reencode(rows, dst)
}

func (s *fakeStore) SelectOne(ctx context.Context, table string, filters []backend.Filter, dst interface{}) error {
	s.calls.Inc()
	if s.failErr != nil {
		return s.failErr
	}
	p, ok := s.plants[filters[0].Value]
	if !ok {
		return backend.ErrNoRows
	}
	return reencode(p, dst)
}

func reencode(src, dst interface{}) error {
	data, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

func newTestService(t *testing.T) (*Service, *fakeStore, *lrucache.PrometheusMetrics) {
	t.Helper()
	store := &fakeStore{
		plants: map[string]Plant{"PLT1": {Code: "PLT1", Name: "Cikarang"}},
		lines: []Line{
			{Code: "L1", Plant: "PLT1", Name: "Line 1"},
			{Code: "L2", Plant: "PLT1", Name: "Line 2"},
			{Code: "L1", Plant: "PLT2", Name: "Other plant line"},
		},
	}
	cfg := NewConfig()
	cfg.Cache.MaxEntries = DefaultCacheMaxEntries
	plantsMetrics := lrucache.NewPrometheusMetrics("", TablePlants)
	svc, err := NewWithOpts(cfg, store, Opts{PlantsMetrics: plantsMetrics})
	require.NoError(t, err)
	return svc, store, plantsMetrics
}

func TestService_Plant(t *testing.T) {
	svc, store, metrics := newTestService(t)

	for i := 0; i < 3; i++ {
		plant, err := svc.Plant(context.Background(), "PLT1")
		require.NoError(t, err)
		require.Equal(t, Plant{Code: "PLT1", Name: "Cikarang"}, plant)
	}
	require.Equal(t, int32(1), store.calls.Load())
	require.Equal(t, 2, int(testutil.ToFloat64(metrics.HitsTotal)))

	for i := 0; i < 2; i++ {
		_, err := svc.Plant(context.Background(), "PLT9")
		require.ErrorIs(t, err, ErrNotFound)
	}
	require.Equal(t, int32(2), store.calls.Load(), "missing plant must be cached")

	svc.Invalidate()
	_, err := svc.Plant(context.Background(), "PLT1")
	require.NoError(t, err)
	require.Equal(t, int32(3), store.calls.Load())
}

func TestService_Lines(t *testing.T) {
	svc, store, _ := newTestService(t)

	lines, err := svc.Lines(context.Background(), "PLT1")
	require.NoError(t, err)
	require.Equal(t, []Line{{Code: "L1", Plant: "PLT1", Name: "Line 1"}, {Code: "L2", Plant: "PLT1", Name: "Line 2"}}, lines)

	line, err := svc.Line(context.Background(), "PLT1", "L2")
	require.NoError(t, err)
	require.Equal(t, "Line 2", line.Name)
	require.Equal(t, int32(2), store.calls.Load())

	_, err = svc.Line(context.Background(), "PLT1", "L9")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Lines(context.Background(), "PLT2")
	require.ErrorIs(t, err, ErrNotFound, "lines of an unknown plant")
}

func TestService_BackendError(t *testing.T) {
	svc, store, _ := newTestService(t)
	store.failErr = &backend.Error{StatusCode: 503, Message: "unavailable"}

	_, err := svc.Plant(context.Background(), "PLT1")
	require.True(t, backend.IsStatus(err, 503))
	require.False(t, errors.Is(err, ErrNotFound))

	store.failErr = nil
	_, err = svc.Plant(context.Background(), "PLT1")
	require.NoError(t, err, "failures must not be cached")
}
