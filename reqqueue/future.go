/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package reqqueue

import (
	"context"
	"sync"
)

// Future is the pending result of an operation submitted to a Queue.
type Future struct {
	once sync.Once
	done chan struct{}
	val  interface{}
	err  error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) settle(val interface{}, err error) {
	f.once.Do(func() {
		f.val, f.err = val, err
		close(f.done)
	})
}

// Done returns a channel that is closed when the operation has been settled.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Result blocks until the operation is settled and returns its value and error.
func (f *Future) Result() (interface{}, error) {
	<-f.done
	return f.val, f.err
}

// Wait is like Result but gives up when ctx is done.
func (f *Future) Wait(ctx context.Context) (interface{}, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
