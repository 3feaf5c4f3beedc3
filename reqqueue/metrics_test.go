/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package reqqueue

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/inspecta/inspecta/config"
)

func TestPrometheusMetrics(t *testing.T) {
	metrics := NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{
		Namespace:   "inspecta",
		ConstLabels: prometheus.Labels{"component": "test"},
	})
	q, err := NewWithOpts(1, Opts{MetricsCollector: metrics})
	require.NoError(t, err)

	_, err = q.Add(func(ctx context.Context) (interface{}, error) { return "ok", nil }).Result()
	require.NoError(t, err)
	_, err = q.Add(func(ctx context.Context) (interface{}, error) { return nil, errors.New("fail") }).Result()
	require.Error(t, err)
	_, err = q.Add(func(ctx context.Context) (interface{}, error) { panic("oops") }).Result()
	require.Error(t, err)

	started := make(chan struct{})
	release := make(chan struct{})
	blocker := q.Add(func(ctx context.Context) (interface{}, error) {
		close(started)
		<-release
		return nil, nil
	})
	<-started
	waiting := q.Add(func(ctx context.Context) (interface{}, error) { return nil, nil })
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.QueuedAmount))
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.RunningAmount))

	q.Abort()
	_, err = waiting.Result()
	require.ErrorIs(t, err, ErrAborted)
	require.Equal(t, float64(0), testutil.ToFloat64(metrics.QueuedAmount))
	require.Equal(t, float64(0), testutil.ToFloat64(metrics.RunningAmount))

	close(release)
	_, err = blocker.Result()
	require.NoError(t, err)

	require.Equal(t, float64(2), testutil.ToFloat64(metrics.OperationsTotal.WithLabelValues(OperationResultOK)))
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.OperationsTotal.WithLabelValues(OperationResultError)))
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.OperationsTotal.WithLabelValues(OperationResultPanic)))
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.OperationsTotal.WithLabelValues(OperationResultAborted)))
	require.Equal(t, 1, testutil.CollectAndCount(metrics.WaitDurations))
	// the gauge must not go negative once the orphaned operation finishes
	require.Equal(t, float64(0), testutil.ToFloat64(metrics.RunningAmount))
}

func TestConfig(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		cfg := NewConfig()
		err := config.NewLoader(config.NewViperAdapter()).LoadFromReader(bytes.NewBufferString(""), config.DataTypeYAML, cfg)
		require.NoError(t, err)
		require.Equal(t, DefaultMaxConcurrent, cfg.MaxConcurrent)
	})

	t.Run("custom", func(t *testing.T) {
		cfg := NewConfig()
		err := config.NewLoader(config.NewViperAdapter()).LoadFromReader(
			bytes.NewBufferString("queue:\n  maxConcurrent: 6\n"), config.DataTypeYAML, cfg)
		require.NoError(t, err)
		require.Equal(t, 6, cfg.MaxConcurrent)
	})

	t.Run("invalid", func(t *testing.T) {
		cfg := NewConfig()
		err := config.NewLoader(config.NewViperAdapter()).LoadFromReader(
			bytes.NewBufferString("queue:\n  maxConcurrent: -1\n"), config.DataTypeYAML, cfg)
		require.EqualError(t, err, "queue.maxConcurrent: should be positive, got -1")
	})
}

func TestContext(t *testing.T) {
	require.Nil(t, GetQueueFromContext(context.Background()))

	q, err := New(1)
	require.NoError(t, err)
	ctx := NewContextWithQueue(context.Background(), q)
	require.Same(t, q, GetQueueFromContext(ctx))
}
