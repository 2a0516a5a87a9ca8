// internal/workers/sync/generate-outbound-file/handler.go
package generateoutboundfile

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"

	"partner-sync/internal/common/config"
	"partner-sync/internal/common/logger"
	"partner-sync/internal/common/metrics"
	"partner-sync/internal/common/notify"
	"partner-sync/internal/common/validation"
	"partner-sync/internal/fixedwidth"
	syncstate "partner-sync/internal/sync"
)

const (
	TaskType = "generate-outbound-file"
)

var (
	ErrUnknownTradingPartner = errors.New("UNKNOWN_TRADING_PARTNER")
	ErrUnknownModuleType     = errors.New("UNKNOWN_MODULE_TYPE")
	ErrLockNotAcquired       = errors.New("LOCK_NOT_ACQUIRED")
	ErrSelectionFailed       = errors.New("QUERY_EXECUTION_FAILED")
	ErrTransportFailed       = errors.New("TRANSPORT_FAILED")
	ErrRecordUpdateFailed    = errors.New("DATABASE_UPDATE_FAILED")
)

// Uploader is the slice of the S3 client the generator needs.
type Uploader interface {
	Upload(ctx context.Context, key string, body []byte) error
}

type Handler struct {
	config    *Config
	store     *syncstate.Store
	selectors map[string]syncstate.Selector
	layouts   map[string]fixedwidth.RecordLayout
	uploader  Uploader
	partners  map[string]config.PartnerConfig
	syncCfg   config.SyncConfig
	s3Prefix  string
	lock      *syncstate.RunLock
	audit     *syncstate.AuditIndexer
	alerter   *notify.OpsAlerter
	logger    logger.Logger
}

func NewHandler(
	cfg *Config,
	store *syncstate.Store,
	selectors map[string]syncstate.Selector,
	layouts map[string]fixedwidth.RecordLayout,
	uploader Uploader,
	partners map[string]config.PartnerConfig,
	syncCfg config.SyncConfig,
	s3Prefix string,
	log logger.Logger,
) *Handler {
	return &Handler{
		config:    cfg,
		store:     store,
		selectors: selectors,
		layouts:   layouts,
		uploader:  uploader,
		partners:  partners,
		syncCfg:   syncCfg,
		s3Prefix:  s3Prefix,
		logger:    log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

// WithRunLock serializes generator runs per partner through redis.
func (h *Handler) WithRunLock(lock *syncstate.RunLock) *Handler {
	h.lock = lock
	return h
}

// WithAuditIndexer records per-entity outcomes in Elasticsearch.
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
		errorCode := errorCodeFor(err)
		metrics.SyncBatchesFailed.WithLabelValues(TaskType, input.TradingPartner, errorCode).Inc()
		h.alerter.Alert(ctx, "Outbound file generation failed",
			fmt.Sprintf("partner=%s module=%s error=%v", input.TradingPartner, input.ModuleType, err))
		h.failJob(client, job, errorCode, err.Error())
		return nil
	}

	metrics.SyncBatchesCompleted.WithLabelValues(TaskType, input.TradingPartner).Inc()
	metrics.SyncBatchDuration.WithLabelValues(TaskType).Observe(time.Since(started).Seconds())
	h.completeJob(client, job, output)
	return nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	partner, ok := h.partners[input.TradingPartner]
	if !ok {
		return nil, fmt.Errorf("%w: no partner configured for %q", ErrUnknownTradingPartner, input.TradingPartner)
	}

	moduleType := input.ModuleType
	if moduleType == "" {
		moduleType = partner.ModuleType
	}
	if moduleType == "" {
		moduleType = h.syncCfg.DefaultModuleType
	}

	selector, ok := h.selectors[moduleType]
	if !ok {
		return nil, fmt.Errorf("%w: no selector for module type %q", ErrUnknownModuleType, moduleType)
	}
	layout, ok := h.layouts[moduleType]
	if !ok {
		return nil, fmt.Errorf("%w: no layout for module type %q", ErrUnknownModuleType, moduleType)
	}

	if h.lock != nil {
		release, err := h.lock.Acquire(ctx, TaskType, input.TradingPartner)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLockNotAcquired, err)
		}
		defer release(ctx)
	}

	var (
		lines        []string
		keys         []string
		fingerprints = map[string]string{}
		skipped      int
	)

	err := selector.Each(ctx, input.TradingPartner, func(c syncstate.Candidate) error {
		line, err := layout.Generate(c.Values)
		if err != nil {
			// One broken entity must not sink the batch.
			skipped++
			metrics.SyncRowsProcessed.WithLabelValues(TaskType, "skipped").Inc()
			h.logger.WithError(err).Warn("skipping entity, row generation failed", map[string]interface{}{
				"entityKey":      c.EntityKey,
				"tradingPartner": input.TradingPartner,
			})
			return nil
		}

		sum := sha256.Sum256([]byte(line))
		lines = append(lines, line)
		keys = append(keys, c.EntityKey)
		fingerprints[c.EntityKey] = hex.EncodeToString(sum[:])
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSelectionFailed, err)
	}

	sentAt := time.Now().UTC()

	if len(keys) == 0 {
		h.logger.Info("no entities due for sync", map[string]interface{}{
			"tradingPartner": input.TradingPartner,
			"moduleType":     moduleType,
			"skippedCount":   skipped,
		})
		return &Output{SkippedCount: skipped, SentAt: sentAt.Format(time.RFC3339)}, nil
	}

	fileName := fmt.Sprintf("%s_%s_%s.txt",
		strings.ToLower(partner.SyncCode), moduleType, uuid.New().String())
	s3Key := path.Join(h.s3Prefix, strings.ToLower(input.TradingPartner), fileName)
	body := []byte(strings.Join(lines, "\n") + "\n")

	// Records are only stamped after the partner actually has the file. If
	// the upload fails every entity stays eligible for the next run.
	if err := h.uploader.Upload(ctx, s3Key, body); err != nil {
		return nil, fmt.Errorf("%w: upload %s: %v", ErrTransportFailed, s3Key, err)
	}

	if err := h.store.MarkBatchSent(ctx, moduleType, input.TradingPartner, keys, fingerprints, fileName, sentAt); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRecordUpdateFailed, err)
	}

	for _, key := range keys {
		metrics.SyncRowsProcessed.WithLabelValues(TaskType, "sent").Inc()
		h.audit.Index(ctx, syncstate.AuditEvent{
			ModuleType:     moduleType,
			EntityKey:      key,
			TradingPartner: input.TradingPartner,
			FileName:       fileName,
			Outcome:        "sent",
			At:             sentAt,
		})
	}

	h.logger.Info("outbound file generated", map[string]interface{}{
		"tradingPartner": input.TradingPartner,
		"moduleType":     moduleType,
		"fileName":       fileName,
		"s3Key":          s3Key,
		"rowCount":       len(keys),
		"skippedCount":   skipped,
	})

	return &Output{
		FileName:     fileName,
		S3Key:        s3Key,
		RowCount:     len(keys),
		SkippedCount: skipped,
		SentAt:       sentAt.Format(time.RFC3339),
	}, nil
}

func errorCodeFor(err error) string {
	switch {
	case errors.Is(err, ErrUnknownTradingPartner):
		return "UNKNOWN_TRADING_PARTNER"
	case errors.Is(err, ErrUnknownModuleType):
		return "UNKNOWN_MODULE_TYPE"
	case errors.Is(err, ErrLockNotAcquired):
		return "LOCK_NOT_ACQUIRED"
	case errors.Is(err, ErrSelectionFailed):
		return "QUERY_EXECUTION_FAILED"
	case errors.Is(err, ErrTransportFailed):
		return "TRANSPORT_FAILED"
	case errors.Is(err, ErrRecordUpdateFailed):
		return "DATABASE_UPDATE_FAILED"
	default:
		return "UNKNOWN_ERROR"
	}
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
