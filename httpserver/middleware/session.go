/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"net/http"
	"strings"

	"github.com/inspecta/inspecta/reqqueue"
	"github.com/inspecta/inspecta/restapi"
)

// Session headers set by the INSPECTA frontend.
const (
	HeaderActor  = "X-Inspecta-User"
	HeaderScreen = "X-Inspecta-Screen"
)

// QueueProvider returns the request queue of a mounted screen session.
type QueueProvider interface {
	Get(screenID string) (*reqqueue.Queue, bool)
}

// Session is a middleware that puts the acting user and the screen session id
// (X-Inspecta-User and X-Inspecta-Screen headers) into the request's context.
func Session() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if actor := strings.TrimSpace(r.Header.Get(HeaderActor)); actor != "" {
				ctx = NewContextWithActor(ctx, actor)
			}
			if screenID := strings.TrimSpace(r.Header.Get(HeaderScreen)); screenID != "" {
				ctx = NewContextWithScreenID(ctx, screenID)
			}
			next.ServeHTTP(rw, r.WithContext(ctx))
		})
	}
}

type screenQueueHandler struct {
	next        http.Handler
	provider    QueueProvider
	errorDomain string
}

// ScreenQueue is a middleware that makes backend calls of a request run through the queue
// of the screen session found in the context (see Session).
// Requests without a screen id pass through unchanged; an unknown screen id is answered with 409.
func ScreenQueue(provider QueueProvider, errDomain string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return &screenQueueHandler{next: next, provider: provider, errorDomain: errDomain}
	}
}

func (h *screenQueueHandler) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	screenID := GetScreenIDFromContext(r.Context())
	if screenID == "" {
		h.next.ServeHTTP(rw, r)
		return
	}
	q, ok := h.provider.Get(screenID)
	if !ok {
		apiErr := restapi.NewError(h.errorDomain, restapi.ErrCodeScreenNotMounted, restapi.ErrMessageScreenNotMounted)
		restapi.RespondError(rw, http.StatusConflict, apiErr.AddContext("screenId", screenID), GetLoggerFromContext(r.Context()))
		return
	}
	h.next.ServeHTTP(rw, r.WithContext(reqqueue.NewContextWithQueue(r.Context(), q)))
}
