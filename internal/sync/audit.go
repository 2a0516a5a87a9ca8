package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"partner-sync/internal/common/logger"
)

// AuditEvent is one reconciliation or generation outcome, indexed for
// operational search. Outcome is one of "sent", "confirmed", "failed" or
// "error".
type AuditEvent struct {
	ModuleType     string    `json:"module_type"`
	EntityKey      string    `json:"entity_key"`
	TradingPartner string    `json:"trading_partner"`
	FileName       string    `json:"file_name,omitempty"`
	Outcome        string    `json:"outcome"`
	Detail         string    `json:"detail,omitempty"`
	AckTimestamp   string    `json:"ack_timestamp,omitempty"`
	At             time.Time `json:"at"`
}

// AuditIndexer writes AuditEvents to Elasticsearch. Indexing is best
// effort: a failure is logged and swallowed so the audit trail can never
// block or fail a reconciliation pass.
type AuditIndexer struct {
	es     *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewAuditIndexer(es *elasticsearch.Client, index string, log logger.Logger) *AuditIndexer {
	return &AuditIndexer{es: es, index: index, logger: log}
}

func (a *AuditIndexer) Index(ctx context.Context, event AuditEvent) {
	if a == nil || a.es == nil {
		return
	}

	body, err := json.Marshal(event)
	if err != nil {
		a.logger.WithError(err).Warn("failed to marshal audit event", nil)
		return
	}

	req := esapi.IndexRequest{
		Index: a.index,
		Body:  bytes.NewReader(body),
	}
	res, err := req.Do(ctx, a.es)
	if err != nil {
		a.logger.WithError(err).Warn("failed to index audit event", map[string]interface{}{
			"entityKey": event.EntityKey,
			"outcome":   event.Outcome,
		})
		return
	}
	defer res.Body.Close()

	if res.IsError() {
		a.logger.Warn("audit event rejected by elasticsearch", map[string]interface{}{
			"entityKey": event.EntityKey,
			"outcome":   event.Outcome,
			"status":    res.Status(),
		})
	}
}
