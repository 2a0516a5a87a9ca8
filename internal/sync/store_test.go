package sync

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partner-sync/internal/common/errors"
	"partner-sync/internal/models"
)

func syncRecordRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "module_type", "entity_key", "trading_partner", "sent_at", "confirmed_at",
		"confirmation_file_name", "failure_message", "fingerprint", "created_at", "updated_at",
	})
}

func TestStoreFindLive(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sentAt := time.Date(2013, 6, 19, 10, 0, 0, 0, time.UTC)
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM sync_records").
		WithArgs("product", "PROD-1", "XYZ").
		WillReturnRows(syncRecordRows().AddRow(
			42, "product", "PROD-1", "XYZ", sentAt, nil, "out.txt", nil, "abc123", now, now,
		))

	store := NewStore(db)
	rec, err := store.FindLive(context.Background(), "product", "PROD-1", "XYZ")

	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, int64(42), rec.ID)
	assert.Equal(t, "XYZ", rec.TradingPartner)
	assert.True(t, rec.SentAt.Valid)
	assert.Equal(t, models.SyncStatusSent, rec.Status())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreFindLiveNoRecord(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM sync_records").
		WithArgs("product", "MISSING", "XYZ").
		WillReturnRows(syncRecordRows())

	store := NewStore(db)
	rec, err := store.FindLive(context.Background(), "product", "MISSING", "XYZ")

	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreMarkBatchSent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sentAt := time.Date(2013, 6, 19, 17, 6, 0, 0, time.UTC)
	fingerprints := map[string]string{"PROD-1": "fp1", "PROD-2": "fp2"}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO sync_records").
		WithArgs("product", "PROD-1", "XYZ", sentAt, "xyz_products_1.txt",
			sql.NullString{String: "fp1", Valid: true}, sentAt).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO sync_records").
		WithArgs("product", "PROD-2", "XYZ", sentAt, "xyz_products_1.txt",
			sql.NullString{String: "fp2", Valid: true}, sentAt).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	store := NewStore(db)
	err = store.MarkBatchSent(context.Background(), "product", "XYZ",
		[]string{"PROD-1", "PROD-2"}, fingerprints, "xyz_products_1.txt", sentAt)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreMarkBatchSentRollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sentAt := time.Now()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO sync_records").
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	store := NewStore(db)
	err = store.MarkBatchSent(context.Background(), "product", "XYZ",
		[]string{"PROD-1"}, nil, "out.txt", sentAt)

	require.Error(t, err)
	var stdErr *errors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, errors.ErrCodeDatabaseUpdateFailed, stdErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreConfirm(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	confirmedAt := time.Date(2013, 6, 20, 9, 30, 0, 0, time.UTC)

	mock.ExpectExec("UPDATE sync_records SET").
		WithArgs(confirmedAt, "ack.csv", int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewStore(db)
	err = store.Confirm(context.Background(), 42, "ack.csv", confirmedAt)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreConfirmRequiresSentRecord(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// The sent_at guard means an unsent record matches zero rows.
	mock.ExpectExec("UPDATE sync_records SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	store := NewStore(db)
	err = store.Confirm(context.Background(), 42, "ack.csv", time.Now())

	require.Error(t, err)
	var stdErr *errors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, errors.ErrorCode("RESOURCE_NOT_FOUND"), stdErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreFail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	failedAt := time.Now()

	mock.ExpectExec("UPDATE sync_records SET").
		WithArgs("REJECTED: bad tariff", failedAt, int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewStore(db)
	err = store.Fail(context.Background(), 7, "REJECTED: bad tariff", failedAt)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreFailClearsEarlierConfirmation(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	confirmedAt := time.Date(2013, 6, 20, 9, 30, 0, 0, time.UTC)
	failedAt := confirmedAt.Add(24 * time.Hour)

	// One ack file confirms the record, a re-delivered one contradicts it.
	// The failure must displace the confirmation, not coexist with it, so
	// the record reads as failed and re-enters the send cycle.
	mock.ExpectExec("UPDATE sync_records SET").
		WithArgs(confirmedAt, "ack_day1.csv", int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE sync_records SET\s+failure_message = \$1,\s+confirmed_at = NULL`).
		WithArgs("REJECTED: duplicate shipment", failedAt, int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewStore(db)
	require.NoError(t, store.Confirm(context.Background(), 7, "ack_day1.csv", confirmedAt))
	require.NoError(t, store.Fail(context.Background(), 7, "REJECTED: duplicate shipment", failedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}
