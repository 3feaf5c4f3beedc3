/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package backend is a client of the hosted PostgREST API (Supabase) that stores INSPECTA data.
//
// Every call is submitted through the request queue found in the context (see reqqueue.NewContextWithQueue),
// so the number of concurrent calls issued on behalf of one screen is bounded.
// Without a queue in the context the call is made directly.
// Calls that failed with a transient error are retried according to the configured policy.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/inspecta/inspecta/httpclient"
	"github.com/inspecta/inspecta/httpserver/middleware"
	"github.com/inspecta/inspecta/log"
	"github.com/inspecta/inspecta/reqqueue"
	"github.com/inspecta/inspecta/retry"
)

const restPathPrefix = "rest/v1"

const maxResponseBodySize = 32 << 20

const (
	headerPrefer       = "Prefer"
	headerRange        = "Range"
	headerRangeUnit    = "Range-Unit"
	headerContentRange = "Content-Range"
)

// Opts represents options for the Client.
type Opts struct {
	// HTTPClient is used for requests. When nil, it's built from Config.Client with httpclient.NewWithOpts.
	HTTPClient *http.Client
	// Logger is used when there is no logger in the request context.
	Logger log.FieldLogger
	// MetricsCollector collects durations of outgoing requests.
	MetricsCollector httpclient.MetricsCollector
	// UserAgent is sent in every request.
	UserAgent string
}

// Client talks to the backend REST API.
type Client struct {
	restURL     *url.URL
	httpClient  *http.Client
	retryPolicy retry.Policy
	logger      log.FieldLogger
}

// New creates a new backend Client.
func New(cfg *Config) (*Client, error) {
	return NewWithOpts(cfg, Opts{})
}

// NewWithOpts is a more configurable version of New.
func NewWithOpts(cfg *Config, opts Opts) (*Client, error) {
	baseURL, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if opts.Logger == nil {
		opts.Logger = log.NewDisabledLogger()
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		if httpClient, err = httpclient.NewWithOpts(cfg.Client, httpclient.Opts{
			APIKey:      cfg.APIKey,
			UserAgent:   opts.UserAgent,
			RequestType: httpclient.DefaultRequestType,
			Collector:   opts.MetricsCollector,
		}); err != nil {
			return nil, fmt.Errorf("create http client: %w", err)
		}
	}
	return &Client{
		restURL:     baseURL.JoinPath(restPathPrefix),
		httpClient:  httpClient,
		retryPolicy: cfg.Retries.RetryPolicy(),
		logger:      opts.Logger,
	}, nil
}

type request struct {
	reqType    string
	method     string
	path       string
	query      url.Values
	header     http.Header
	body       interface{}
	idempotent bool
}

type response struct {
	header http.Header
	body   []byte
}

// Select reads rows of the table into dst (a pointer to a slice).
// It returns the total number of matching rows if q.Count is set and -1 otherwise.
func (c *Client) Select(ctx context.Context, table string, q Query, dst interface{}) (int, error) {
	header := http.Header{}
	if rng := q.rangeHeader(); rng != "" {
		header.Set(headerRangeUnit, "items")
		header.Set(headerRange, rng)
	}
	if q.Count {
		header.Set(headerPrefer, "count=exact")
	}
	resp, err := c.do(ctx, request{
		reqType:    "select_" + table,
		method:     http.MethodGet,
		path:       table,
		query:      q.values(),
		header:     header,
		idempotent: true,
	})
	if err != nil {
		return 0, err
	}
	if err = decodeBody(resp.body, dst); err != nil {
		return 0, err
	}
	if !q.Count {
		return -1, nil
	}
	return parseContentRange(resp.header.Get(headerContentRange))
}

// SelectOne reads the first row matching filters into dst. ErrNoRows is returned if there is none.
func (c *Client) SelectOne(ctx context.Context, table string, filters []Filter, dst interface{}) error {
	var rows []json.RawMessage
	if _, err := c.Select(ctx, table, Query{Filters: filters, Limit: 1}, &rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		return ErrNoRows
	}
	return decodeBody(rows[0], dst)
}

// Insert inserts row (or a slice of rows) into the table. Inserted rows are decoded into dst if it's not nil.
func (c *Client) Insert(ctx context.Context, table string, row interface{}, dst interface{}) error {
	resp, err := c.do(ctx, request{
		reqType: "insert_" + table,
		method:  http.MethodPost,
		path:    table,
		header:  preferHeader(dst != nil),
		body:    row,
	})
	if err != nil {
		return err
	}
	return decodeBody(resp.body, dst)
}

// Update applies patch to the rows matching filters. Updated rows are decoded into dst if it's not nil.
func (c *Client) Update(ctx context.Context, table string, filters []Filter, patch interface{}, dst interface{}) error {
	if len(filters) == 0 {
		return errors.New("update without filters is not allowed")
	}
	resp, err := c.do(ctx, request{
		reqType:    "update_" + table,
		method:     http.MethodPatch,
		path:       table,
		query:      filtersToValues(nil, filters),
		header:     preferHeader(dst != nil),
		body:       patch,
		idempotent: true,
	})
	if err != nil {
		return err
	}
	return decodeBody(resp.body, dst)
}

// Delete removes the rows matching filters and returns the number of removed rows.
func (c *Client) Delete(ctx context.Context, table string, filters []Filter) (int, error) {
	if len(filters) == 0 {
		return 0, errors.New("delete without filters is not allowed")
	}
	header := http.Header{}
	header.Set(headerPrefer, "return=minimal, count=exact")
	resp, err := c.do(ctx, request{
		reqType:    "delete_" + table,
		method:     http.MethodDelete,
		path:       table,
		query:      filtersToValues(nil, filters),
		header:     header,
		idempotent: true,
	})
	if err != nil {
		return 0, err
	}
	return parseContentRange(resp.header.Get(headerContentRange))
}

// RPC calls a stored function with args and decodes its result into dst if it's not nil.
func (c *Client) RPC(ctx context.Context, fn string, args interface{}, dst interface{}) error {
	if args == nil {
		args = struct{}{}
	}
	resp, err := c.do(ctx, request{
		reqType: "rpc_" + fn,
		method:  http.MethodPost,
		path:    "rpc/" + fn,
		body:    args,
	})
	if err != nil {
		return err
	}
	return decodeBody(resp.body, dst)
}

// Ping checks that the backend is reachable and accepts the API key.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.send(ctx, request{reqType: "ping", method: http.MethodHead, idempotent: true})
	return err
}

func (c *Client) do(ctx context.Context, req request) (*response, error) {
	q := reqqueue.GetQueueFromContext(ctx)
	if q == nil {
		return c.sendWithRetry(ctx, req)
	}

	submittedAt := time.Now()
	resp, err := reqqueue.Do(ctx, q, func(opCtx context.Context) (*response, error) {
		if lp := middleware.GetLoggingParamsFromContext(opCtx); lp != nil {
			lp.AddTimeSlotDurationInMs("queue_wait_ms", time.Since(submittedAt))
		}
		return c.sendWithRetry(opCtx, req)
	})
	if err != nil && ctx.Err() == nil && !errors.Is(err, reqqueue.ErrAborted) && errors.Is(err, context.Canceled) {
		// The queue was aborted while the request was in flight.
		return nil, fmt.Errorf("%w: %s", reqqueue.ErrAborted, err.Error())
	}
	return resp, err
}

func (c *Client) sendWithRetry(ctx context.Context, req request) (*response, error) {
	isRetryable := IsTransient
	if !req.idempotent {
		isRetryable = isSafeToRepeat
	}
	var resp *response
	err := retry.DoWithRetry(ctx, c.retryPolicy, isRetryable, c.retryNotifier(ctx, req.reqType),
		func(ctx context.Context) error {
			var sendErr error
			resp, sendErr = c.send(ctx, req)
			return sendErr
		})
	return resp, err
}

func (c *Client) retryNotifier(ctx context.Context, reqType string) retry.NotifyFunc {
	return func(err error, delay time.Duration) {
		logger := middleware.GetLoggerFromContext(ctx)
		if logger == nil {
			logger = c.logger
		}
		logger.Warn("backend request failed, retrying",
			log.String("request_type", reqType), log.Duration("retry_delay", delay), log.Error(err))
	}
}

func (c *Client) send(ctx context.Context, req request) (*response, error) {
	var body io.Reader
	if req.body != nil {
		data, err := json.Marshal(req.body)
		if err != nil {
			return nil, fmt.Errorf("marshal %s request body: %w", req.reqType, err)
		}
		body = bytes.NewReader(data)
	}

	u := c.restURL.JoinPath(req.path)
	u.RawQuery = req.query.Encode()
	httpReq, err := http.NewRequestWithContext(
		httpclient.NewContextWithRequestType(ctx, req.reqType), req.method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", req.reqType, err)
	}
	for key, values := range req.header {
		httpReq.Header[key] = values
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send %s request: %w", req.reqType, err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBodySize))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", req.reqType, err)
	}
	if httpResp.StatusCode < http.StatusOK || httpResp.StatusCode >= http.StatusMultipleChoices {
		return nil, newError(httpResp.StatusCode, data)
	}
	return &response{header: httpResp.Header, body: data}, nil
}

func newError(statusCode int, body []byte) *Error {
	backendErr := &Error{}
	if json.Unmarshal(body, backendErr) != nil || backendErr.Message == "" {
		backendErr = &Error{Message: strings.TrimSpace(string(body))}
	}
	backendErr.StatusCode = statusCode
	return backendErr
}

func preferHeader(returnRepresentation bool) http.Header {
	header := http.Header{}
	if returnRepresentation {
		header.Set(headerPrefer, "return=representation")
	} else {
		header.Set(headerPrefer, "return=minimal")
	}
	return header
}

func decodeBody(data []byte, dst interface{}) error {
	if dst == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode backend response: %w", err)
	}
	return nil
}
