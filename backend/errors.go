/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package backend

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrNoRows is returned by SelectOne when no row matches the filters.
var ErrNoRows = errors.New("no rows")

// Error is a non-2xx response of the backend. Fields mirror the backend error body.
type Error struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details"`
	Hint       string `json:"hint"`
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Code != "" {
		return fmt.Sprintf("backend responded with status %d (%s): %s", e.StatusCode, e.Code, msg)
	}
	return fmt.Sprintf("backend responded with status %d: %s", e.StatusCode, msg)
}

// IsStatus reports whether err is an *Error with the given HTTP status code.
func IsStatus(err error, statusCode int) bool {
	var backendErr *Error
	return errors.As(err, &backendErr) && backendErr.StatusCode == statusCode
}

// IsTransient reports whether the error is worth retrying:
// 429 or 5xx responses and network failures. Context errors are never transient.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var backendErr *Error
	if errors.As(err, &backendErr) {
		return backendErr.StatusCode == http.StatusTooManyRequests || backendErr.StatusCode >= http.StatusInternalServerError
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// isSafeToRepeat reports whether a non-idempotent request may be sent again after err:
// the backend refused it before doing any work.
func isSafeToRepeat(err error) bool {
	return IsStatus(err, http.StatusTooManyRequests) || IsStatus(err, http.StatusServiceUnavailable)
}
