/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/inspecta/inspecta/httpserver/middleware"
	"github.com/inspecta/inspecta/log"
	"github.com/inspecta/inspecta/log/logtest"
)

type recordingInserter struct {
	table string
	row   interface{}
	err   error
}

func (ri *recordingInserter) Insert(ctx context.Context, table string, row interface{}, dst interface{}) error {
	ri.table, ri.row = table, row
	return ri.err
}

func TestWriter_Write(t *testing.T) {
	fixedNow := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

	t.Run("actor from context", func(t *testing.T) {
		inserter := &recordingInserter{}
		w := NewWriter(inserter, nil)
		w.now = func() time.Time { return fixedNow }

		ctx := middleware.NewContextWithActor(context.Background(), "qa.inspector@inspecta.id")
		require.NoError(t, w.Write(ctx, Entry{Action: ActionCreate, Table: "sanitation_records", RecordID: "17"}))
		require.Equal(t, TableAuditLogs, inserter.table)
		require.Equal(t, Entry{
			Action:   ActionCreate,
			Table:    "sanitation_records",
			RecordID: "17",
			Actor:    "qa.inspector@inspecta.id",
			At:       fixedNow,
		}, inserter.row)
	})

	t.Run("unknown actor", func(t *testing.T) {
		inserter := &recordingInserter{}
		w := NewWriter(inserter, nil)
		require.NoError(t, w.Write(context.Background(), Entry{Action: ActionDelete, Table: "kliping_records", RecordID: "3"}))
		require.Equal(t, UnknownActor, inserter.row.(Entry).Actor)
		require.False(t, inserter.row.(Entry).At.IsZero())
	})

	t.Run("failure is logged and returned", func(t *testing.T) {
		insertErr := errors.New("backend is down")
		logRecorder := logtest.NewRecorder()
		w := NewWriter(&recordingInserter{err: insertErr}, log.NewDisabledLogger())

		ctx := middleware.NewContextWithLogger(context.Background(), logRecorder)
		err := w.Write(ctx, Entry{Action: ActionUpdate, Table: "sanitation_records", RecordID: "17"})
		require.ErrorIs(t, err, insertErr)

		entry, found := logRecorder.FindEntry("failed to write audit entry")
		require.True(t, found)
		require.Equal(t, log.LevelError, entry.Level)
		field, found := entry.FindField("audit_record_id")
		require.True(t, found)
		require.Equal(t, "17", string(field.Bytes))
	})
}
