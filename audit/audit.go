/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package audit records who changed inspection data and when.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/inspecta/inspecta/httpserver/middleware"
	"github.com/inspecta/inspecta/log"
)

// TableAuditLogs is the backend table audit entries are written to.
const TableAuditLogs = "audit_logs"

// UnknownActor is recorded when the request carries no user.
const UnknownActor = "unknown"

// Action is a kind of change.
type Action string

// Audited actions.
const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Entry is a single audit log row.
type Entry struct {
	Action   Action                 `json:"action"`
	Table    string                 `json:"table_name"`
	RecordID string                 `json:"record_id"`
	Actor    string                 `json:"actor"`
	At       time.Time              `json:"at"`
	Details  map[string]interface{} `json:"details,omitempty"`
}

// Inserter stores rows. It's implemented by *backend.Client.
type Inserter interface {
	Insert(ctx context.Context, table string, row interface{}, dst interface{}) error
}

// Writer writes audit entries.
type Writer struct {
	inserter Inserter
	logger   log.FieldLogger
	now      func() time.Time
}

// NewWriter creates a new audit Writer.
// logger is used when there is no logger in the context, it may be nil.
func NewWriter(inserter Inserter, logger log.FieldLogger) *Writer {
	if logger == nil {
		logger = log.NewDisabledLogger()
	}
	return &Writer{inserter: inserter, logger: logger, now: time.Now}
}

// Write stores the entry. Actor and At are filled from the context and the clock when empty.
// A failure is logged and returned.
func (w *Writer) Write(ctx context.Context, entry Entry) error {
	if entry.Actor == "" {
		entry.Actor = middleware.GetActorFromContext(ctx)
		if entry.Actor == "" {
			entry.Actor = UnknownActor
		}
	}
	if entry.At.IsZero() {
		entry.At = w.now().UTC()
	}
	if err := w.inserter.Insert(ctx, TableAuditLogs, entry, nil); err != nil {
		logger := middleware.GetLoggerFromContext(ctx)
		if logger == nil {
			logger = w.logger
		}
		logger.Error("failed to write audit entry",
			log.String("audit_action", string(entry.Action)),
			log.String("audit_table", entry.Table),
			log.String("audit_record_id", entry.RecordID),
			log.String("audit_actor", entry.Actor),
			log.Error(err))
		return fmt.Errorf("write audit entry: %w", err)
	}
	return nil
}
