/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package reqqueue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/inspecta/inspecta/log"
)

// DefaultMaxConcurrent is the concurrency ceiling used when the configuration does not set one.
const DefaultMaxConcurrent = 4

// Operation results reported to MetricsCollector.
const (
	OperationResultOK       = "ok"
	OperationResultError    = "error"
	OperationResultPanic    = "panic"
	OperationResultAborted  = "aborted"
	OperationResultCanceled = "canceled"
)

// Operation is a unit of work submitted to the queue.
// The context is canceled when the queue is aborted (or when the context given to AddContext is done),
// operations that talk to the network should pass it down.
type Operation func(ctx context.Context) (interface{}, error)

// Status is a snapshot of the queue counters.
type Status struct {
	Queued        int  `json:"queued"`
	Running       int  `json:"running"`
	MaxConcurrent int  `json:"maxConcurrent"`
	Aborted       bool `json:"aborted"`
}

// Opts represents options for the Queue.
type Opts struct {
	Logger           log.FieldLogger
	MetricsCollector MetricsCollector
}

type queueItem struct {
	ctx        context.Context
	op         Operation
	fut        *Future
	enqueuedAt time.Time

	// started is closed right before the operation is invoked (or skipped).
	// Each dispatched item waits for its predecessor's started, so operations start in dequeue order.
	started     chan struct{}
	prevStarted <-chan struct{}
}

// Queue runs submitted operations with bounded concurrency and FIFO start order.
type Queue struct {
	mu            sync.Mutex
	pending       []*queueItem
	running       int
	maxConcurrent int
	aborted       bool
	lastStarted   <-chan struct{}

	// generation changes on every Abort and Reset; completions of operations
	// started in an older generation do not touch the current counters.
	generation uint64
	opCtx      context.Context
	opCancel   context.CancelFunc

	logger  log.FieldLogger
	metrics MetricsCollector
}

// New creates a new Queue that runs at most maxConcurrent operations at once.
func New(maxConcurrent int) (*Queue, error) {
	return NewWithOpts(maxConcurrent, Opts{})
}

// NewWithOpts is a more configurable version of New.
func NewWithOpts(maxConcurrent int, opts Opts) (*Queue, error) {
	if maxConcurrent <= 0 {
		return nil, fmt.Errorf("max concurrent should be positive, got %d", maxConcurrent)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewDisabledLogger()
	}
	metrics := opts.MetricsCollector
	if metrics == nil {
		metrics = disabledMetricsCollector
	}
	opCtx, opCancel := context.WithCancel(context.Background())
	return &Queue{
		maxConcurrent: maxConcurrent,
		opCtx:         opCtx,
		opCancel:      opCancel,
		logger:        logger,
		metrics:       metrics,
	}, nil
}

// Add submits the operation to the tail of the queue and returns its Future.
// If the queue is aborted, the Future is rejected with ErrAborted and the operation is never invoked.
func (q *Queue) Add(op Operation) *Future {
	return q.AddContext(context.Background(), op)
}

// AddContext is like Add, but the operation also observes ctx: its values are visible to the operation,
// and if ctx is done before the operation starts, the operation is skipped and rejected with ctx.Err().
func (q *Queue) AddContext(ctx context.Context, op Operation) *Future {
	fut := newFuture()

	q.mu.Lock()
	if q.aborted {
		q.mu.Unlock()
		q.metrics.IncOperations(OperationResultAborted)
		fut.settle(nil, ErrAborted)
		return fut
	}
	q.pending = append(q.pending, &queueItem{ctx: ctx, op: op, fut: fut, enqueuedAt: time.Now()})
	q.metrics.AddQueued(1)
	toStart, gen, opCtx := q.takeReadyLocked()
	q.mu.Unlock()

	q.startAll(toStart, gen, opCtx)
	return fut
}

// SetMaxConcurrent changes the concurrency ceiling.
// Raising it starts waiting operations right away, lowering it never interrupts running ones.
func (q *Queue) SetMaxConcurrent(n int) error {
	if n <= 0 {
		return fmt.Errorf("max concurrent should be positive, got %d", n)
	}
	q.mu.Lock()
	q.maxConcurrent = n
	toStart, gen, opCtx := q.takeReadyLocked()
	q.mu.Unlock()

	q.startAll(toStart, gen, opCtx)
	return nil
}

// Abort rejects all waiting operations with ErrAborted, cancels the context of running operations
// and refuses new ones until Reset is called. Running operations are not interrupted
// beyond the context cancellation. Calling Abort on an aborted queue is a no-op.
func (q *Queue) Abort() {
	q.mu.Lock()
	if q.aborted {
		q.mu.Unlock()
		return
	}
	discarded, running := q.clearLocked()
	q.aborted = true
	q.opCancel()
	q.mu.Unlock()

	q.rejectAll(discarded)
	q.logger.Info("request queue aborted",
		log.Int("discarded", len(discarded)), log.Int("running", running))
}

// Reset clears the abort signal and brings the queue to a fresh state:
// waiting operations are rejected with ErrAborted and the running counter is zeroed.
// Operations still running from before the reset get their context canceled and no longer count.
func (q *Queue) Reset() {
	q.mu.Lock()
	discarded, _ := q.clearLocked()
	q.aborted = false
	q.opCancel()
	q.opCtx, q.opCancel = context.WithCancel(context.Background())
	q.mu.Unlock()

	q.rejectAll(discarded)
	q.logger.Debug("request queue reset", log.Int("discarded", len(discarded)))
}

// Status returns current queue counters.
func (q *Queue) Status() Status {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Status{
		Queued:        len(q.pending),
		Running:       q.running,
		MaxConcurrent: q.maxConcurrent,
		Aborted:       q.aborted,
	}
}

func (q *Queue) clearLocked() (discarded []*queueItem, running int) {
	discarded, running = q.pending, q.running
	q.pending = nil
	q.running = 0
	q.generation++
	q.metrics.AddQueued(-len(discarded))
	q.metrics.AddRunning(-running)
	return discarded, running
}

func (q *Queue) rejectAll(items []*queueItem) {
	for _, it := range items {
		q.metrics.IncOperations(OperationResultAborted)
		it.fut.settle(nil, ErrAborted)
	}
}

// takeReadyLocked pops operations from the head of the pending list while there is free capacity.
func (q *Queue) takeReadyLocked() ([]*queueItem, uint64, context.Context) {
	var ready []*queueItem
	for q.running < q.maxConcurrent && len(q.pending) > 0 {
		it := q.pending[0]
		q.pending[0] = nil
		q.pending = q.pending[1:]
		q.running++
		it.prevStarted = q.lastStarted
		it.started = make(chan struct{})
		q.lastStarted = it.started
		ready = append(ready, it)
	}
	if len(ready) > 0 {
		q.metrics.AddQueued(-len(ready))
		q.metrics.AddRunning(len(ready))
	}
	return ready, q.generation, q.opCtx
}

func (q *Queue) startAll(items []*queueItem, gen uint64, opCtx context.Context) {
	for _, it := range items {
		go q.run(it, gen, opCtx)
	}
}

func (q *Queue) run(it *queueItem, gen uint64, opCtx context.Context) {
	if it.prevStarted != nil {
		<-it.prevStarted
	}
	q.metrics.ObserveWaitDuration(time.Since(it.enqueuedAt))

	var val interface{}
	var err error
	result := OperationResultOK

	switch {
	case q.isStale(gen):
		close(it.started)
		result, err = OperationResultAborted, ErrAborted
	case it.ctx.Err() != nil:
		close(it.started)
		result, err = OperationResultCanceled, it.ctx.Err()
	default:
		runCtx, cancel := context.WithCancel(it.ctx)
		stop := context.AfterFunc(opCtx, cancel)
		close(it.started)
		val, err = q.invoke(runCtx, it.op)
		stop()
		cancel()
		if err != nil {
			result = OperationResultError
			if _, ok := err.(*PanicError); ok {
				result = OperationResultPanic
			}
		}
	}
	q.metrics.IncOperations(result)

	q.mu.Lock()
	var toStart []*queueItem
	var nextGen uint64
	var nextOpCtx context.Context
	if gen == q.generation {
		q.running--
		q.metrics.AddRunning(-1)
		toStart, nextGen, nextOpCtx = q.takeReadyLocked()
	}
	q.mu.Unlock()

	it.fut.settle(val, err)
	q.startAll(toStart, nextGen, nextOpCtx)
}

func (q *Queue) isStale(gen uint64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.aborted || gen != q.generation
}

// invoke runs the operation and turns a panic into *PanicError, so that one bad operation
// never stops the dispatching of the following ones.
func (q *Queue) invoke(ctx context.Context, op Operation) (val interface{}, err error) {
	defer func() {
		if p := recover(); p != nil {
			panicErr := newPanicError(p)
			q.logger.Error(fmt.Sprintf("panic in queued operation: %+v", p), log.String("stack", string(panicErr.Stack)))
			val, err = nil, panicErr
		}
	}()
	return op(ctx)
}

// Do submits fn to the queue and waits for its result.
// If ctx is done before fn finishes, Do returns ctx.Err() while fn keeps its slot until it returns.
func Do[T any](ctx context.Context, q *Queue, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	fut := q.AddContext(ctx, func(opCtx context.Context) (interface{}, error) {
		return fn(opCtx)
	})
	res, err := fut.Wait(ctx)
	if err != nil {
		if res != nil {
			if v, ok := res.(T); ok {
				return v, err
			}
		}
		return zero, err
	}
	v, ok := res.(T)
	if !ok {
		return zero, nil
	}
	return v, nil
}
