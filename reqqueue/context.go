/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package reqqueue

import "context"

type ctxKey int

const ctxKeyQueue ctxKey = iota

// NewContextWithQueue creates a new context with the request queue that backend calls should go through.
func NewContextWithQueue(ctx context.Context, q *Queue) context.Context {
	return context.WithValue(ctx, ctxKeyQueue, q)
}

// GetQueueFromContext extracts the request queue from the context.
// It returns nil if there is no queue in the context.
func GetQueueFromContext(ctx context.Context) *Queue {
	q, _ := ctx.Value(ctxKeyQueue).(*Queue)
	return q
}
