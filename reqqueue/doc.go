/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package reqqueue bounds the number of backend requests that run at the same time.
//
// A Queue accepts operations (functions that talk to the backend) and starts at most
// MaxConcurrent of them at once. Operations that cannot start immediately wait in a
// FIFO list and are started in submission order as running ones finish.
//
// The queue has an abort/reset lifecycle tied to screen navigation: Abort rejects all
// waiting operations with ErrAborted, cancels the context passed to running ones and
// refuses new work until Reset is called.
//
//	q, _ := reqqueue.New(4)
//	fut := q.Add(func(ctx context.Context) (interface{}, error) {
//		return client.Select(ctx, "plants", query)
//	})
//	res, err := fut.Wait(ctx)
//
// Do is a typed, blocking shorthand for Add followed by Wait.
package reqqueue
