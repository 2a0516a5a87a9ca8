package sync

import (
	"context"
	"database/sql"

	"partner-sync/internal/common/errors"
)

// Candidate is one entity due for an outbound file: its key plus the column
// values the layout renders, in layout field order.
type Candidate struct {
	EntityKey string
	Values    []interface{}
}

// Selector yields the entities a generator run should include for one
// trading partner. Rows stream through the callback so a large catalog is
// never held in memory at once.
type Selector interface {
	Each(ctx context.Context, tradingPartner string, fn func(Candidate) error) error
}

// ProductSelector selects products that have never been confirmed for the
// partner, failed their last cycle, have no record at all, or changed since
// the confirmed send. Products already sent and awaiting an ack are excluded
// so an in-flight batch is not resent.
type ProductSelector struct {
	db         *sql.DB
	moduleType string
}

func NewProductSelector(db *sql.DB, moduleType string) *ProductSelector {
	return &ProductSelector{db: db, moduleType: moduleType}
}

func (s *ProductSelector) Each(ctx context.Context, tradingPartner string, fn func(Candidate) error) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.unique_identifier, p.name, p.hts_code, p.country_origin, p.unit_price, p.updated_at
		FROM products p
		LEFT JOIN sync_records sr
			ON sr.module_type = $1
			AND sr.entity_key = p.unique_identifier
			AND sr.trading_partner = $2
		WHERE sr.id IS NULL
			OR sr.failure_message IS NOT NULL
			OR (sr.sent_at IS NULL AND sr.confirmed_at IS NULL)
			OR (sr.confirmed_at IS NOT NULL AND p.updated_at > sr.sent_at)
		ORDER BY p.unique_identifier`,
		s.moduleType, tradingPartner)
	if err != nil {
		return errors.NewQueryExecutionFailedError("select sync candidates", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			uid           string
			name          string
			htsCode       sql.NullString
			countryOrigin sql.NullString
			unitPrice     sql.NullString
			updatedAt     sql.NullTime
		)
		if err := rows.Scan(&uid, &name, &htsCode, &countryOrigin, &unitPrice, &updatedAt); err != nil {
			return errors.NewQueryExecutionFailedError("scan sync candidate", err)
		}

		candidate := Candidate{
			EntityKey: uid,
			Values: []interface{}{
				uid,
				name,
				nullStringValue(htsCode),
				nullStringValue(countryOrigin),
				nullStringValue(unitPrice),
				nullTimeValue(updatedAt),
			},
		}
		if err := fn(candidate); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return errors.NewQueryExecutionFailedError("iterate sync candidates", err)
	}
	return nil
}

func nullStringValue(v sql.NullString) interface{} {
	if !v.Valid {
		return nil
	}
	return v.String
}

func nullTimeValue(v sql.NullTime) interface{} {
	if !v.Valid {
		return nil
	}
	return v.Time
}
