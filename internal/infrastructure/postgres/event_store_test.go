package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/lpn-service/internal/domain"
)

var occurred = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func newMockStore(t *testing.T) (*EventStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return NewEventStore(db), mock
}

func record(eventType string) domain.EventRecord {
	return domain.EventRecord{
		EventType:  eventType,
		Data:       json.RawMessage(`{"aggregateId":"A"}`),
		ActorID:    "op-1",
		OccurredAt: occurred,
	}
}

var (
	selectVersion = regexp.QuoteMeta(selectVersionSQL)
	insertEvent   = regexp.QuoteMeta(insertEventSQL)
	selectStream  = regexp.QuoteMeta(selectStreamSQL)
)

func TestAppendEventsAssignsVersions(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(selectVersion).WithArgs("lpn-A").
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(int64(2)))
	mock.ExpectExec(insertEvent).
		WithArgs("lpn-A", "lpn", int64(3), domain.EventLpnPicked, `{"aggregateId":"A"}`, "op-1", "", occurred).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(insertEvent).
		WithArgs("lpn-A", "lpn", int64(4), domain.EventLpnPacked, sqlmock.AnyArg(), "op-1", "", occurred).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	err := store.AppendEvents(context.Background(), "lpn-A", 2, []domain.EventRecord{record(domain.EventLpnPicked), record(domain.EventLpnPacked)})
	require.NoError(t, err)
}

func TestAppendEventsStaleVersion(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(selectVersion).WithArgs("lpn-A").
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(int64(3)))
	mock.ExpectRollback()

	err := store.AppendEvents(context.Background(), "lpn-A", 2, []domain.EventRecord{record(domain.EventLpnPicked)})
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, int64(2), conflict.Expected)
	assert.Equal(t, int64(3), conflict.Actual)
	assert.ErrorIs(t, err, domain.ErrConcurrencyConflict)
}

func TestSaveBatchRollsBackEveryStream(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(selectVersion).WithArgs("lpn-A").
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(int64(3)))
	mock.ExpectExec(insertEvent).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(selectVersion).WithArgs("location-A-01").
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(int64(0)))
	mock.ExpectExec(insertEvent).WillReturnError(&pq.Error{Code: uniqueViolation})
	mock.ExpectRollback()

	err := store.SaveBatch(context.Background(), []domain.EventStreamBatch{
		{StreamID: "lpn-A", ExpectedVersion: 3, Events: []domain.EventRecord{record(domain.EventLpnPutawayCompleted)}},
		{StreamID: "location-A-01", ExpectedVersion: 0, Events: []domain.EventRecord{record(domain.EventLocationCreated)}},
	})

	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "location-A-01", conflict.StreamID)
}

func TestSaveBatchChainsBatchesOfOneStream(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(selectVersion).WithArgs("lpn-A").
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(int64(0)))
	mock.ExpectExec(insertEvent).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(insertEvent).
		WithArgs("lpn-A", "lpn", int64(2), domain.EventLpnReceived, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	err := store.SaveBatch(context.Background(), []domain.EventStreamBatch{
		{StreamID: "lpn-A", ExpectedVersion: 0, Events: []domain.EventRecord{record(domain.EventLpnCreated)}},
		{StreamID: "lpn-A", ExpectedVersion: 1, Events: []domain.EventRecord{record(domain.EventLpnReceived)}},
	})
	require.NoError(t, err)
}

func TestStorageErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		is   error
	}{
		{"network", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, domain.ErrStorageUnavailable},
		{"other", errors.New("syntax error"), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newMockStore(t)
			mock.ExpectBegin().WillReturnError(tt.err)

			err := store.AppendEvents(context.Background(), "lpn-A", 0, []domain.EventRecord{record(domain.EventLpnCreated)})
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			} else {
				assert.NotErrorIs(t, err, domain.ErrStorageUnavailable)
			}
		})
	}
}

func TestGetEvents(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"stream_id", "version", "event_type", "data", "actor_id", "station_id", "occurred_at"}).
		AddRow("lpn-A", int64(1), domain.EventLpnCreated, []byte(`{"aggregateId":"A"}`), "op-1", "", occurred).
		AddRow("lpn-A", int64(2), domain.EventLpnReceived, []byte(`{"aggregateId":"A"}`), "op-1", "RCV-1", occurred)
	mock.ExpectQuery(selectStream).WithArgs("lpn-A").WillReturnRows(rows)

	records, err := store.GetEvents(context.Background(), "lpn-A")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, int64(2), records[1].Version)
	assert.Equal(t, "RCV-1", records[1].StationID)
	assert.JSONEq(t, `{"aggregateId":"A"}`, string(records[0].Data))
}

func TestGetEventsEmptyStream(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(selectStream).WithArgs("lpn-none").
		WillReturnRows(sqlmock.NewRows([]string{"stream_id", "version", "event_type", "data", "actor_id", "station_id", "occurred_at"}))

	records, err := store.GetEvents(context.Background(), "lpn-none")
	require.NoError(t, err)
	assert.Empty(t, records)
}
