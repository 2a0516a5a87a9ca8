// Package sync owns the SyncRecord persistence and the collaborators shared
// by the outbound generator and the ack reconciliation handlers: the record
// store, the entity resolver registry, the candidate selector, the batch run
// lock and the audit indexer.
package sync

import (
	"context"
	"database/sql"
	"time"

	"partner-sync/internal/common/errors"
	"partner-sync/internal/models"
)

// Store persists SyncRecords. There is at most one live record per
// (module_type, entity_key, trading_partner); the table carries a unique
// index on that triple and every write is an idempotent upsert or a keyed
// update, so two concurrent batch runs cannot duplicate or interleave state.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const syncRecordColumns = `id, module_type, entity_key, trading_partner, sent_at, confirmed_at,
		confirmation_file_name, failure_message, fingerprint, created_at, updated_at`

// FindLive returns the live SyncRecord for the triple, or nil when none
// exists. An orphan ack row must not create one.
func (s *Store) FindLive(ctx context.Context, moduleType, entityKey, tradingPartner string) (*models.SyncRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+syncRecordColumns+`
		FROM sync_records
		WHERE module_type = $1 AND entity_key = $2 AND trading_partner = $3`,
		moduleType, entityKey, tradingPartner)

	rec, err := scanSyncRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("find sync record", err)
	}
	return rec, nil
}

// MarkBatchSent stamps every included entity as sent in one transaction,
// only called after transport has confirmed the hand-off. The upsert resets
// confirmed_at and failure_message so a resend re-enters the cycle cleanly,
// and stays correct when a concurrent run already inserted the row.
func (s *Store) MarkBatchSent(ctx context.Context, moduleType, tradingPartner string, keys []string, fingerprints map[string]string, fileName string, sentAt time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewDatabaseConnectionFailedError(err)
	}
	defer tx.Rollback()

	for _, key := range keys {
		var fingerprint sql.NullString
		if fp, ok := fingerprints[key]; ok && fp != "" {
			fingerprint = sql.NullString{String: fp, Valid: true}
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO sync_records (
				module_type, entity_key, trading_partner, sent_at,
				confirmation_file_name, fingerprint, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
			ON CONFLICT (module_type, entity_key, trading_partner) DO UPDATE SET
				sent_at = EXCLUDED.sent_at,
				confirmation_file_name = EXCLUDED.confirmation_file_name,
				fingerprint = EXCLUDED.fingerprint,
				confirmed_at = NULL,
				failure_message = NULL,
				updated_at = EXCLUDED.updated_at`,
			moduleType, key, tradingPartner, sentAt, fileName, fingerprint, sentAt)
		if err != nil {
			return errors.NewDatabaseUpdateFailedError(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewDatabaseUpdateFailedError(err)
	}
	return nil
}

// Confirm records a successful acknowledgment: confirmed_at is stamped with
// processing time, the ack file's name is stored, and any failure message
// from an earlier cycle is cleared. The sent_at guard keeps a record that
// was never transmitted from being confirmed.
func (s *Store) Confirm(ctx context.Context, id int64, fileName string, confirmedAt time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE sync_records SET
			confirmed_at = $1,
			confirmation_file_name = $2,
			failure_message = NULL,
			updated_at = $1
		WHERE id = $3 AND sent_at IS NOT NULL`,
		confirmedAt, fileName, id)
	if err != nil {
		return errors.NewDatabaseUpdateFailedError(err)
	}
	return requireOneRow(result)
}

// Fail records an unsuccessful acknowledgment, keeping the partner's status
// text verbatim. confirmed_at is cleared so the record is eligible for
// resend: one ack event yields exactly one of failure_message or
// confirmed_at, even when a re-delivered file contradicts an earlier
// confirmation.
func (s *Store) Fail(ctx context.Context, id int64, message string, failedAt time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE sync_records SET
			failure_message = $1,
			confirmed_at = NULL,
			updated_at = $2
		WHERE id = $3`,
		message, failedAt, id)
	if err != nil {
		return errors.NewDatabaseUpdateFailedError(err)
	}
	return requireOneRow(result)
}

func requireOneRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return errors.NewDatabaseUpdateFailedError(err)
	}
	if n == 0 {
		return errors.NewResourceNotFoundError("sync_records", "no matching live record")
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSyncRecord(row rowScanner) (*models.SyncRecord, error) {
	var rec models.SyncRecord
	err := row.Scan(
		&rec.ID,
		&rec.ModuleType,
		&rec.EntityKey,
		&rec.TradingPartner,
		&rec.SentAt,
		&rec.ConfirmedAt,
		&rec.ConfirmationFileName,
		&rec.FailureMessage,
		&rec.Fingerprint,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
