/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package reqqueue

import (
	"errors"
	"fmt"
	"runtime/debug"
)

// ErrAborted is returned for operations that were discarded by Abort (or submitted while the queue was aborted).
var ErrAborted = errors.New("request aborted")

// PanicError wraps a value recovered from a panicking operation.
type PanicError struct {
	Value interface{}
	Stack []byte
}

func newPanicError(v interface{}) *PanicError {
	return &PanicError{Value: v, Stack: debug.Stack()}
}

func (p *PanicError) Error() string {
	return fmt.Sprintf("operation panicked: %v", p.Value)
}

// Unwrap returns the recovered value if it is an error.
func (p *PanicError) Unwrap() error {
	err, ok := p.Value.(error)
	if !ok {
		return nil
	}
	return err
}
