// internal/workers/sync/process-ack-file/handler.go
package processackfile

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"partner-sync/internal/common/config"
	apperrors "partner-sync/internal/common/errors"
	"partner-sync/internal/common/logger"
	"partner-sync/internal/common/metrics"
	"partner-sync/internal/common/notify"
	"partner-sync/internal/common/validation"
	"partner-sync/internal/models"
	syncstate "partner-sync/internal/sync"
)

const (
	TaskType = "process-ack-file"
)

// Downloader is the slice of the S3 client the ack handler needs.
type Downloader interface {
	Download(ctx context.Context, key string) ([]byte, error)
}

type Handler struct {
	config     *Config
	store      *syncstate.Store
	registry   *syncstate.Registry
	downloader Downloader
	partners   map[string]config.PartnerConfig
	syncCfg    config.SyncConfig
	mailer     *notify.DigestMailer
	audit      *syncstate.AuditIndexer
	alerter    *notify.OpsAlerter
	errHandler *apperrors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(
	cfg *Config,
	store *syncstate.Store,
	registry *syncstate.Registry,
	downloader Downloader,
	partners map[string]config.PartnerConfig,
	syncCfg config.SyncConfig,
	mailer *notify.DigestMailer,
	log logger.Logger,
) *Handler {
	return &Handler{
		config:     cfg,
		store:      store,
		registry:   registry,
		downloader: downloader,
		partners:   partners,
		syncCfg:    syncCfg,
		mailer:     mailer,
		errHandler: apperrors.NewErrorHandler(log),
		logger:     log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

// WithAuditIndexer records per-row outcomes in Elasticsearch.
func (h *Handler) WithAuditIndexer(audit *syncstate.AuditIndexer) *Handler {
	h.audit = audit
	return h
}

// WithOpsAlerter publishes fatal batch failures to SNS.
func (h *Handler) WithOpsAlerter(alerter *notify.OpsAlerter) *Handler {
	h.alerter = alerter
	return h
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) error {
	started := time.Now()
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var variables map[string]interface{}
	if err := json.Unmarshal([]byte(job.Variables), &variables); err != nil {
		h.failJob(client, job, "PARSE_ERROR", fmt.Sprintf("parse variables: %v", err))
		return nil
	}

	if result := validation.ValidateInput(variables, GetInputSchema()); !result.Valid {
		h.failJob(client, job, "VALIDATION_ERROR",
			strings.Join(result.GetErrorMessages(), "; "))
		return nil
	}

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, "PARSE_ERROR", fmt.Sprintf("parse input: %v", err))
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		errorCode := "UNKNOWN_ERROR"
		var stdErr *apperrors.StandardError
		if errors.As(err, &stdErr) {
			errorCode = string(stdErr.Code)
		}
		metrics.SyncBatchesFailed.WithLabelValues(TaskType, input.SyncCode, errorCode).Inc()
		h.errHandler.HandleJobError(ctx, client, job, err)
		return nil
	}

	metrics.SyncBatchesCompleted.WithLabelValues(TaskType, input.SyncCode).Inc()
	metrics.SyncBatchDuration.WithLabelValues(TaskType).Observe(time.Since(started).Seconds())
	h.completeJob(client, job, output)
	return nil
}

// execute reconciles one ack file. Row-level problems are collected and
// digested; only errors that poison the whole pass (bad opts, unknown
// partner, transport, unparseable file, database outage) abort it. Transport
// and whole-file parse failures go through the same digest and ops-alert
// channels before the pass fails.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.Key == "" {
		return nil, apperrors.NewConfigurationError("Opts must have an s3 :key hash key.")
	}
	if input.SyncCode == "" {
		return nil, apperrors.NewConfigurationError("Opts must have a :sync_code hash key.")
	}

	tradingPartner, partner, err := h.partnerBySyncCode(input.SyncCode)
	if err != nil {
		return nil, err
	}

	moduleType := input.ModuleType
	if moduleType == "" {
		moduleType = partner.ModuleType
	}
	if moduleType == "" {
		moduleType = h.syncCfg.DefaultModuleType
	}

	resolver, err := h.registry.Lookup(moduleType)
	if err != nil {
		return nil, err
	}

	fileName := path.Base(input.Key)

	data, err := h.downloader.Download(ctx, input.Key)
	if err != nil {
		fatal := apperrors.NewTransportFailedError(fmt.Sprintf("download %s", input.Key), err)
		h.notifyFatal(ctx, input, partner, tradingPartner, fileName, fatal)
		return nil, fatal
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delimiterRune(partner.Delimiter)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		// A file that does not parse is rejected whole; no record was
		// touched yet, but the rejection still reaches the operators.
		fatal := apperrors.NewAckParseFailedError(fileName, err)
		h.notifyFatal(ctx, input, partner, tradingPartner, fileName, fatal)
		return nil, fatal
	}

	if len(records) > 0 {
		records = records[1:] // header
	}

	var rowErrors []string
	confirmed, failed := 0, 0
	now := time.Now().UTC()

	for i, record := range records {
		rowNum := i + 2 // 1-indexed, counting the header

		if len(record) < 3 {
			rowErrors = append(rowErrors,
				fmt.Sprintf("Row %d is malformed: expected at least 3 columns, got %d.", rowNum, len(record)))
			metrics.SyncRowsProcessed.WithLabelValues(TaskType, "error").Inc()
			continue
		}

		row := models.AckRow{
			Key:       strings.TrimSpace(record[0]),
			Timestamp: strings.TrimSpace(record[1]),
			Status:    strings.TrimSpace(record[2]),
		}
		if row.Key == "" {
			rowErrors = append(rowErrors, fmt.Sprintf("Row %d is missing a key.", rowNum))
			metrics.SyncRowsProcessed.WithLabelValues(TaskType, "error").Inc()
			continue
		}

		found, err := resolver.Resolve(ctx, row.Key)
		if err != nil {
			return nil, err
		}

		var rec *models.SyncRecord
		if found {
			rec, err = h.store.FindLive(ctx, moduleType, row.Key, tradingPartner)
			if err != nil {
				return nil, err
			}
		}

		// An ack for an entity this partner was never sent must not
		// create state, only an error line.
		if rec == nil || !rec.SentAt.Valid {
			message := apperrors.NewResolutionFailedError(resolver.Label(), row.Key).Message
			rowErrors = append(rowErrors, message)
			metrics.SyncRowsProcessed.WithLabelValues(TaskType, "error").Inc()
			h.indexOutcome(ctx, moduleType, tradingPartner, fileName, row, "error", message, now)
			continue
		}

		if row.Confirmed() {
			if err := h.store.Confirm(ctx, rec.ID, fileName, now); err != nil {
				return nil, err
			}
			confirmed++
			metrics.SyncRowsProcessed.WithLabelValues(TaskType, "confirmed").Inc()
			h.indexOutcome(ctx, moduleType, tradingPartner, fileName, row, "confirmed", "", now)
		} else {
			if err := h.store.Fail(ctx, rec.ID, row.Status, now); err != nil {
				return nil, err
			}
			failed++
			metrics.SyncRowsProcessed.WithLabelValues(TaskType, "failed").Inc()
			h.indexOutcome(ctx, moduleType, tradingPartner, fileName, row, "failed", row.Status, now)
		}
	}

	if len(rowErrors) > 0 {
		recipients := input.EmailTo
		if len(recipients) == 0 {
			recipients = partner.Notify
		}
		if err := h.mailer.SendErrorDigest(ctx, fileName, rowErrors, recipients); err != nil {
			h.logger.WithError(err).Warn("failed to send ack error digest", map[string]interface{}{
				"fileName": fileName,
			})
		}
	}

	h.logger.Info("ack file reconciled", map[string]interface{}{
		"fileName":       fileName,
		"tradingPartner": tradingPartner,
		"rowCount":       len(records),
		"confirmedCount": confirmed,
		"failedCount":    failed,
		"errorCount":     len(rowErrors),
	})

	return &Output{
		FileName:       fileName,
		RowCount:       len(records),
		ConfirmedCount: confirmed,
		FailedCount:    failed,
		ErrorCount:     len(rowErrors),
	}, nil
}

// notifyFatal routes a whole-file failure through the same digest and alert
// channels the row errors use, so a rejected batch is never silent.
func (h *Handler) notifyFatal(ctx context.Context, input *Input, partner config.PartnerConfig, tradingPartner, fileName string, fatal *apperrors.StandardError) {
	recipients := input.EmailTo
	if len(recipients) == 0 {
		recipients = partner.Notify
	}
	line := fmt.Sprintf("%s (%s)", fatal.Message, fatal.Details)
	if err := h.mailer.SendErrorDigest(ctx, fileName, []string{line}, recipients); err != nil {
		h.logger.WithError(err).Warn("failed to send ack failure digest", map[string]interface{}{
			"fileName": fileName,
		})
	}
	h.alerter.Alert(ctx, "Ack file processing failed",
		fmt.Sprintf("file=%s partner=%s error=%v", fileName, tradingPartner, fatal))
}

func (h *Handler) partnerBySyncCode(syncCode string) (string, config.PartnerConfig, error) {
	for name, partner := range h.partners {
		if partner.SyncCode == syncCode {
			return name, partner, nil
		}
	}
	return "", config.PartnerConfig{}, apperrors.NewUnknownTradingPartnerError(syncCode)
}

func (h *Handler) indexOutcome(ctx context.Context, moduleType, tradingPartner, fileName string, row models.AckRow, outcome, detail string, at time.Time) {
	h.audit.Index(ctx, syncstate.AuditEvent{
		ModuleType:     moduleType,
		EntityKey:      row.Key,
		TradingPartner: tradingPartner,
		FileName:       fileName,
		Outcome:        outcome,
		Detail:         detail,
		AckTimestamp:   row.Timestamp,
		At:             at,
	})
}

func delimiterRune(delimiter string) rune {
	if delimiter == "" {
		return ','
	}
	return []rune(delimiter)[0]
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.WithError(err).Error("failed to create complete job command", nil)
		return
	}
	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.WithError(err).Error("failed to send complete job command", nil)
		return
	}
	h.logger.Info("job completed successfully", map[string]interface{}{"jobKey": job.Key})
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, errorCode, errorMessage string) {
	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":       job.Key,
		"errorCode":    errorCode,
		"errorMessage": errorMessage,
	})

	_, err := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(errorCode).
		ErrorMessage(errorMessage).
		Send(context.Background())
	if err != nil {
		h.logger.WithError(err).Error("failed to throw error", nil)
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
