/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package reqqueue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/atomic"

	"github.com/inspecta/inspecta/log/logtest"
)

const waitTimeout = 3 * time.Second

type QueueTestSuite struct {
	suite.Suite
}

func TestQueue(t *testing.T) {
	suite.Run(t, new(QueueTestSuite))
}

// blockingOp returns an operation that reports its start to started and returns val once release is closed.
func blockingOp(started chan<- string, name string, release <-chan struct{}) Operation {
	return func(ctx context.Context) (interface{}, error) {
		started <- name
		<-release
		return name, nil
	}
}

func (s *QueueTestSuite) receive(ch <-chan string) string {
	select {
	case v := <-ch:
		return v
	case <-time.After(waitTimeout):
		s.FailNow("timeout waiting for operation to start")
	}
	return ""
}

func (s *QueueTestSuite) assertNotStarted(ch <-chan string) {
	select {
	case v := <-ch:
		s.FailNowf("unexpected start", "operation %q should not have started", v)
	case <-time.After(50 * time.Millisecond):
	}
}

func (s *QueueTestSuite) TestNew() {
	_, err := New(0)
	s.EqualError(err, "max concurrent should be positive, got 0")

	_, err = New(-3)
	s.Error(err)

	q, err := New(2)
	s.Require().NoError(err)
	s.Equal(Status{MaxConcurrent: 2}, q.Status())
}

func (s *QueueTestSuite) TestConcurrencyBound() {
	const opsNum = 30
	const limit = 3

	q, err := New(limit)
	s.Require().NoError(err)

	current := atomic.NewInt32(0)
	maxObserved := atomic.NewInt32(0)
	futures := make([]*Future, 0, opsNum)
	for i := 0; i < opsNum; i++ {
		i := i
		futures = append(futures, q.Add(func(ctx context.Context) (interface{}, error) {
			n := current.Inc()
			for {
				m := maxObserved.Load()
				if n <= m || maxObserved.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			current.Dec()
			return i, nil
		}))
		s.LessOrEqual(q.Status().Running, limit)
	}

	for i, fut := range futures {
		res, resErr := fut.Wait(context.Background())
		s.Require().NoError(resErr)
		s.Equal(i, res)
	}
	s.LessOrEqual(maxObserved.Load(), int32(limit))
	s.Greater(maxObserved.Load(), int32(0))
	s.Equal(Status{MaxConcurrent: limit}, q.Status())
}

func (s *QueueTestSuite) TestFIFOStartOrder() {
	q, err := New(1)
	s.Require().NoError(err)

	started := make(chan string, 10)
	releaseBlocker := make(chan struct{})
	blocker := q.Add(blockingOp(started, "blocker", releaseBlocker))
	s.Equal("blocker", s.receive(started))

	released := make(chan struct{})
	close(released)
	names := []string{"A", "B", "C", "D"}
	futures := make([]*Future, 0, len(names))
	for _, name := range names {
		futures = append(futures, q.Add(blockingOp(started, name, released)))
	}
	s.Equal(Status{Queued: 4, Running: 1, MaxConcurrent: 1}, q.Status())
	s.assertNotStarted(started)

	close(releaseBlocker)
	_, err = blocker.Result()
	s.Require().NoError(err)

	for _, name := range names {
		s.Equal(name, s.receive(started))
	}
	for i, fut := range futures {
		res, resErr := fut.Result()
		s.Require().NoError(resErr)
		s.Equal(names[i], res)
	}
}

func (s *QueueTestSuite) TestResultFidelity() {
	q, err := New(2)
	s.Require().NoError(err)

	type record struct{ ID string }
	want := &record{ID: "rec-1"}
	res, err := q.Add(func(ctx context.Context) (interface{}, error) {
		return want, nil
	}).Result()
	s.Require().NoError(err)
	s.Same(want, res)

	boom := errors.New("boom")
	res, err = q.Add(func(ctx context.Context) (interface{}, error) {
		return nil, boom
	}).Result()
	s.Nil(res)
	s.Same(boom, err)
	s.EqualError(err, "boom")
	s.Equal(0, q.Status().Running)
}

func (s *QueueTestSuite) TestThreeOperationsWithLimitTwo() {
	q, err := New(2)
	s.Require().NoError(err)

	started := make(chan string, 3)
	releases := map[string]chan struct{}{"op1": make(chan struct{}), "op2": make(chan struct{}), "op3": make(chan struct{})}
	fut1 := q.Add(blockingOp(started, "op1", releases["op1"]))
	fut2 := q.Add(blockingOp(started, "op2", releases["op2"]))
	fut3 := q.Add(blockingOp(started, "op3", releases["op3"]))

	first := []string{s.receive(started), s.receive(started)}
	s.ElementsMatch([]string{"op1", "op2"}, first)
	s.assertNotStarted(started)
	s.Equal(Status{Queued: 1, Running: 2, MaxConcurrent: 2}, q.Status())

	close(releases["op2"])
	s.Equal("op3", s.receive(started))

	close(releases["op1"])
	close(releases["op3"])
	for i, fut := range []*Future{fut1, fut2, fut3} {
		res, resErr := fut.Wait(context.Background())
		s.Require().NoError(resErr)
		s.Equal(fmt.Sprintf("op%d", i+1), res)
	}
	s.Equal(Status{MaxConcurrent: 2}, q.Status())
}

func (s *QueueTestSuite) TestAbort() {
	logger := logtest.NewRecorder()
	q, err := NewWithOpts(1, Opts{Logger: logger})
	s.Require().NoError(err)

	started := make(chan string, 1)
	blockerCanceled := make(chan struct{})
	blocker := q.Add(func(ctx context.Context) (interface{}, error) {
		started <- "blocker"
		<-ctx.Done()
		close(blockerCanceled)
		return "finished anyway", nil
	})
	s.Equal("blocker", s.receive(started))

	invoked := atomic.NewBool(false)
	pending := make([]*Future, 0, 3)
	for i := 0; i < 3; i++ {
		pending = append(pending, q.Add(func(ctx context.Context) (interface{}, error) {
			invoked.Store(true)
			return nil, nil
		}))
	}

	q.Abort()
	s.Equal(Status{MaxConcurrent: 1, Aborted: true}, q.Status())

	for _, fut := range pending {
		_, resErr := fut.Wait(context.Background())
		s.ErrorIs(resErr, ErrAborted)
	}

	// running operation is notified via its context but still completes on its own
	select {
	case <-blockerCanceled:
	case <-time.After(waitTimeout):
		s.FailNow("running operation context was not canceled")
	}
	res, err := blocker.Result()
	s.NoError(err)
	s.Equal("finished anyway", res)
	s.False(invoked.Load())
	s.Equal(Status{MaxConcurrent: 1, Aborted: true}, q.Status())

	// new work is refused until reset
	_, err = q.Add(func(ctx context.Context) (interface{}, error) {
		invoked.Store(true)
		return nil, nil
	}).Result()
	s.ErrorIs(err, ErrAborted)
	s.False(invoked.Load())

	// idempotent
	q.Abort()
	s.Equal(Status{MaxConcurrent: 1, Aborted: true}, q.Status())

	entry, found := logger.FindEntry("request queue aborted")
	s.Require().True(found)
	discarded, found := entry.FindField("discarded")
	s.Require().True(found)
	s.EqualValues(3, discarded.Int)
}

func (s *QueueTestSuite) TestResetRestoresService() {
	q, err := New(2)
	s.Require().NoError(err)

	started := make(chan string, 10)
	releaseOld := make(chan struct{})
	old := q.Add(blockingOp(started, "old", releaseOld))
	s.Equal("old", s.receive(started))

	q.Abort()
	q.Reset()
	s.Equal(Status{MaxConcurrent: 2}, q.Status())

	release := make(chan struct{})
	fut1 := q.Add(blockingOp(started, "new1", release))
	fut2 := q.Add(blockingOp(started, "new2", release))
	fut3 := q.Add(blockingOp(started, "new3", release))
	s.ElementsMatch([]string{"new1", "new2"}, []string{s.receive(started), s.receive(started)})
	s.assertNotStarted(started)

	// completion of the operation started before the reset does not free a slot
	close(releaseOld)
	_, err = old.Result()
	s.NoError(err)
	s.assertNotStarted(started)
	s.Equal(Status{Queued: 1, Running: 2, MaxConcurrent: 2}, q.Status())

	close(release)
	for _, fut := range []*Future{fut1, fut2, fut3} {
		_, resErr := fut.Result()
		s.NoError(resErr)
	}
	s.Equal(Status{MaxConcurrent: 2}, q.Status())
}

func (s *QueueTestSuite) TestResetRejectsWaitingOperations() {
	q, err := New(1)
	s.Require().NoError(err)

	started := make(chan string, 2)
	release := make(chan struct{})
	defer close(release)
	q.Add(blockingOp(started, "running", release))
	s.Equal("running", s.receive(started))

	waiting := q.Add(blockingOp(started, "waiting", release))
	q.Reset()

	_, err = waiting.Result()
	s.ErrorIs(err, ErrAborted)
	s.Equal(Status{MaxConcurrent: 1}, q.Status())
}

func (s *QueueTestSuite) TestPanicIsolation() {
	logger := logtest.NewRecorder()
	q, err := NewWithOpts(1, Opts{Logger: logger})
	s.Require().NoError(err)

	futures := make([]*Future, 0, 10)
	for i := 1; i <= 10; i++ {
		i := i
		futures = append(futures, q.Add(func(ctx context.Context) (interface{}, error) {
			if i == 3 {
				panic("cannot read photo")
			}
			return i, nil
		}))
	}

	for i, fut := range futures {
		res, resErr := fut.Wait(context.Background())
		if i == 2 {
			var panicErr *PanicError
			s.Require().ErrorAs(resErr, &panicErr)
			s.Equal("cannot read photo", panicErr.Value)
			s.NotEmpty(panicErr.Stack)
			continue
		}
		s.NoError(resErr)
		s.Equal(i+1, res)
	}
	s.Equal(Status{MaxConcurrent: 1}, q.Status())

	_, found := logger.FindEntry("panic in queued operation: cannot read photo")
	s.True(found)
}

func (s *QueueTestSuite) TestPanicWithError() {
	q, err := New(1)
	s.Require().NoError(err)

	boom := errors.New("boom")
	_, err = q.Add(func(ctx context.Context) (interface{}, error) {
		panic(boom)
	}).Result()
	s.ErrorIs(err, boom)
	s.True(strings.HasPrefix(err.Error(), "operation panicked: boom"))
}

func (s *QueueTestSuite) TestSetMaxConcurrent() {
	q, err := New(1)
	s.Require().NoError(err)

	s.EqualError(q.SetMaxConcurrent(0), "max concurrent should be positive, got 0")

	started := make(chan string, 10)
	release := make(chan struct{})
	futures := make([]*Future, 0, 4)
	for i := 0; i < 4; i++ {
		futures = append(futures, q.Add(blockingOp(started, fmt.Sprintf("op%d", i), release)))
	}
	s.Equal("op0", s.receive(started))
	s.assertNotStarted(started)

	// raising the limit starts waiting operations right away
	s.Require().NoError(q.SetMaxConcurrent(3))
	s.ElementsMatch([]string{"op1", "op2"}, []string{s.receive(started), s.receive(started)})
	s.Equal(Status{Queued: 1, Running: 3, MaxConcurrent: 3}, q.Status())

	// lowering does not preempt
	s.Require().NoError(q.SetMaxConcurrent(1))
	s.Equal(Status{Queued: 1, Running: 3, MaxConcurrent: 1}, q.Status())

	close(release)
	for _, fut := range futures {
		_, resErr := fut.Result()
		s.NoError(resErr)
	}
	s.Equal(Status{MaxConcurrent: 1}, q.Status())
}

func (s *QueueTestSuite) TestFIFOStartOrder_SeveralSlotsFreed() {
	const waiting = 8
	for round := 0; round < 100; round++ {
		q, err := New(1)
		s.Require().NoError(err)

		started := make(chan string, 1)
		releaseBlocker := make(chan struct{})
		blocker := q.Add(blockingOp(started, "blocker", releaseBlocker))
		s.Equal("blocker", s.receive(started))

		var mu sync.Mutex
		var order []int
		futures := make([]*Future, 0, waiting)
		for i := 0; i < waiting; i++ {
			i := i
			futures = append(futures, q.Add(func(ctx context.Context) (interface{}, error) {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				return i, nil
			}))
		}

		s.Require().NoError(q.SetMaxConcurrent(waiting + 1))
		for _, fut := range futures {
			_, resErr := fut.Wait(context.Background())
			s.Require().NoError(resErr)
		}
		mu.Lock()
		s.Require().Equal([]int{0, 1, 2, 3, 4, 5, 6, 7}, order, "round %d", round)
		mu.Unlock()

		close(releaseBlocker)
		_, err = blocker.Result()
		s.Require().NoError(err)
	}
}

func (s *QueueTestSuite) TestAddContext_CanceledBeforeStart() {
	q, err := New(1)
	s.Require().NoError(err)

	started := make(chan string, 1)
	release := make(chan struct{})
	blocker := q.Add(blockingOp(started, "blocker", release))
	s.Equal("blocker", s.receive(started))

	ctx, cancel := context.WithCancel(context.Background())
	invoked := atomic.NewBool(false)
	fut := q.AddContext(ctx, func(ctx context.Context) (interface{}, error) {
		invoked.Store(true)
		return nil, nil
	})
	cancel()
	close(release)

	_, err = blocker.Result()
	s.NoError(err)
	_, err = fut.Result()
	s.ErrorIs(err, context.Canceled)
	s.False(invoked.Load())
	s.Equal(Status{MaxConcurrent: 1}, q.Status())
}

func (s *QueueTestSuite) TestAddContext_PassesValues() {
	q, err := New(1)
	s.Require().NoError(err)

	type ctxKeyScreen struct{}
	ctx := context.WithValue(context.Background(), ctxKeyScreen{}, "kliping-form")
	res, err := q.AddContext(ctx, func(ctx context.Context) (interface{}, error) {
		return ctx.Value(ctxKeyScreen{}), nil
	}).Result()
	s.NoError(err)
	s.Equal("kliping-form", res)
}

func TestDo(t *testing.T) {
	q, err := New(2)
	require.NoError(t, err)

	n, err := Do(context.Background(), q, func(ctx context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	require.Equal(t, 42, n)

	_, err = Do(context.Background(), q, func(ctx context.Context) ([]string, error) {
		return nil, errors.New("backend unavailable")
	})
	require.EqualError(t, err, "backend unavailable")

	t.Run("caller gives up waiting", func(t *testing.T) {
		release := make(chan struct{})
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err := Do(ctx, q, func(ctx context.Context) (string, error) {
			<-release
			return "late", nil
		})
		require.ErrorIs(t, err, context.DeadlineExceeded)
		close(release)
		require.Eventually(t, func() bool { return q.Status().Running == 0 }, waitTimeout, 5*time.Millisecond)
	})
}

func TestQueue_ConcurrentSubmitters(t *testing.T) {
	q, err := New(4)
	require.NoError(t, err)

	const submitters = 8
	const perSubmitter = 25
	current := atomic.NewInt32(0)
	exceeded := atomic.NewBool(false)
	done := atomic.NewInt32(0)

	var wg sync.WaitGroup
	for i := 0; i < submitters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perSubmitter; j++ {
				_, _ = Do(context.Background(), q, func(ctx context.Context) (struct{}, error) {
					if current.Inc() > 4 {
						exceeded.Store(true)
					}
					time.Sleep(time.Millisecond)
					current.Dec()
					done.Inc()
					return struct{}{}, nil
				})
			}
		}()
	}
	wg.Wait()
	require.False(t, exceeded.Load())
	require.Equal(t, int32(submitters*perSubmitter), done.Load())
	require.Equal(t, Status{MaxConcurrent: 4}, q.Status())
}
