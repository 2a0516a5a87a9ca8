// internal/models/sync_record.go
package models

import (
	"database/sql"
	"strings"
	"time"
)

// SyncRecord is the durable audit row for one expected round trip of an
// entity to a trading partner: created unsent, stamped when the encoded file
// is handed to transport, and confirmed or failed when the partner's ack
// file comes back. It is never deleted by normal operation.
type SyncRecord struct {
	ID                   int64          `json:"id"`
	ModuleType           string         `json:"moduleType"`
	EntityKey            string         `json:"entityKey"`
	TradingPartner       string         `json:"tradingPartner"`
	SentAt               sql.NullTime   `json:"sentAt"`
	ConfirmedAt          sql.NullTime   `json:"confirmedAt"`
	ConfirmationFileName sql.NullString `json:"confirmationFileName"`
	FailureMessage       sql.NullString `json:"failureMessage"`
	Fingerprint          sql.NullString `json:"fingerprint"`
	CreatedAt            time.Time      `json:"createdAt"`
	UpdatedAt            time.Time      `json:"updatedAt"`
}

// Status reports the lifecycle state implied by the timestamps.
func (r *SyncRecord) Status() SyncStatus {
	switch {
	case r.ConfirmedAt.Valid:
		return SyncStatusConfirmed
	case r.FailureMessage.Valid:
		return SyncStatusFailed
	case r.SentAt.Valid:
		return SyncStatusSent
	default:
		return SyncStatusUnsent
	}
}

// SyncStatus is the derived lifecycle state of a SyncRecord.
type SyncStatus string

const (
	SyncStatusUnsent    SyncStatus = "unsent"
	SyncStatusSent      SyncStatus = "sent"
	SyncStatusConfirmed SyncStatus = "confirmed"
	SyncStatusFailed    SyncStatus = "failed"
)

// AckRow is one parsed data row of a partner acknowledgment file. Status
// "OK" (case-insensitive) signals success; anything else is kept verbatim as
// the failure detail.
type AckRow struct {
	Key       string `json:"key"`
	Timestamp string `json:"timestamp"` // raw digits, partner-defined format
	Status    string `json:"status"`
}

// Confirmed reports whether this row acknowledges a successful delivery.
func (r AckRow) Confirmed() bool {
	return strings.EqualFold(r.Status, "OK")
}
