package pgstore

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ozwatch/ozwatch/internal/track"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return New(mock, zaptest.NewLogger(t)), mock
}

func TestLoadMissingRowReturnsEmptyDocument(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT doc FROM tracking_state").WillReturnError(pgx.ErrNoRows)

	doc, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, track.SchemaVersion, doc.SchemaVersion)
	assert.Empty(t, doc.Tracks)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadReturnsStoredDocument(t *testing.T) {
	store, mock := newMockStore(t)

	seeded := track.NewDocument()
	seeded.Owner("42")["94044975-0220-1"] = track.TrackingRecord{Status: track.StatusInTransit}
	raw, err := json.Marshal(seeded)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT doc FROM tracking_state").
		WillReturnRows(pgxmock.NewRows([]string{"doc"}).AddRow(raw))

	doc, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, track.StatusInTransit, doc.Tracks["42"]["94044975-0220-1"].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadCorruptPayloadReturnsEmptyDocument(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT doc FROM tracking_state").
		WillReturnRows(pgxmock.NewRows([]string{"doc"}).AddRow([]byte("{not json")))

	doc, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, doc.Tracks)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveUpsertsDocument(t *testing.T) {
	store, mock := newMockStore(t)

	doc := track.NewDocument()
	doc.Owner("42")["111111"] = track.TrackingRecord{Status: track.StatusDelivered}
	raw, err := json.Marshal(doc)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO tracking_state").
		WithArgs(raw).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.Save(context.Background(), doc))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSavePropagatesExecError(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO tracking_state").
		WillReturnError(assert.AnError)

	err := store.Save(context.Background(), track.NewDocument())
	assert.Error(t, err)
}
