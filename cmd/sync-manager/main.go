// cmd/sync-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"partner-sync/internal/common/aws"
	"partner-sync/internal/common/camunda"
	"partner-sync/internal/common/config"
	"partner-sync/internal/common/database"
	"partner-sync/internal/common/logger"
	"partner-sync/internal/common/notify"
	"partner-sync/internal/common/observability"
	"partner-sync/internal/fixedwidth"
	syncstate "partner-sync/internal/sync"

	gof "partner-sync/internal/workers/sync/generate-outbound-file"
	paf "partner-sync/internal/workers/sync/process-ack-file"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting sync manager...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New("sync-manager")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Zeebe Client with retry ---
	var camundaClient *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		camundaClient, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			ConnectionTimeout:      10 * time.Second,
			RequestTimeout:         30 * time.Second,
		})
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")

	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zeebeClient := camundaClient.GetClient()
	zapLog.Info("Zeebe client connected successfully")

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping()
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Init AWS Clients ---
	s3Client, err := aws.NewS3Client(ctx, cfg.AWS.Region, cfg.AWS.S3.Bucket)
	if err != nil {
		zapLog.Fatal("s3 client failed", zap.Error(err))
	}

	var emailSender notify.EmailSender
	if cfg.AWS.SES.Enabled {
		sesClient, err := aws.NewSESClient(ctx, cfg.AWS.Region)
		if err != nil {
			zapLog.Fatal("ses client failed", zap.Error(err))
		}
		emailSender = sesClient
	}

	var alertPublisher notify.AlertPublisher
	if cfg.AWS.SNS.Enabled {
		snsClient, err := aws.NewSNSClient(ctx, cfg.AWS.Region)
		if err != nil {
			zapLog.Fatal("sns client failed", zap.Error(err))
		}
		alertPublisher = snsClient
	}

	zapLog.Info("All external service clients initialized")

	// --- Sync Collaborators ---
	store := syncstate.NewStore(pg.DB)

	registry := syncstate.NewRegistry()
	registry.Register("product", syncstate.NewProductResolver(pg.DB))
	registry.Register("entry", syncstate.NewEntryResolver(pg.DB))

	selectors := map[string]syncstate.Selector{
		"product": syncstate.NewProductSelector(pg.DB, "product"),
	}
	layouts := map[string]fixedwidth.RecordLayout{
		"product": gof.ProductLayout(),
	}

	lock := syncstate.NewRunLock(redis.Client, time.Duration(cfg.Sync.LockTTL)*time.Millisecond)
	audit := syncstate.NewAuditIndexer(esClient.Client, cfg.Sync.AuditIndex, log)
	mailer := notify.NewDigestMailer(emailSender, cfg.AWS.SES.FromEmail, cfg.Sync.ErrorRecipients, log)
	alerter := notify.NewOpsAlerter(alertPublisher, cfg.AWS.SNS.AlertTopicARN, log)

	// --- Register Workers ---
	var workers []*camunda.CamundaWorker

	if config.IsWorkerEnabled(cfg, gof.TaskType) {
		handler := gof.NewHandler(
			&gof.Config{
				Timeout: time.Duration(cfg.Workers[gof.TaskType].Timeout) * time.Millisecond,
			},
			store, selectors, layouts, s3Client,
			cfg.Partners, cfg.Sync, cfg.AWS.S3.OutboundPrefix,
			log,
		).
			WithRunLock(lock).
			WithAuditIndexer(audit).
			WithOpsAlerter(alerter)
		workers = append(workers, startWorker(zeebeClient, gof.TaskType, cfg.Workers[gof.TaskType], handler, zapLog))
	}

	if config.IsWorkerEnabled(cfg, paf.TaskType) {
		handler := paf.NewHandler(
			&paf.Config{
				Timeout: time.Duration(cfg.Workers[paf.TaskType].Timeout) * time.Millisecond,
			},
			store, registry, s3Client,
			cfg.Partners, cfg.Sync, mailer,
			log,
		).
			WithAuditIndexer(audit).
			WithOpsAlerter(alerter)
		workers = append(workers, startWorker(zeebeClient, paf.TaskType, cfg.Workers[paf.TaskType], handler, zapLog))
	}

	zapLog.Info("All sync workers registered successfully")

	// --- Health & Metrics Server ---
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if err := camundaClient.HealthCheck(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{
					"status": "not ready",
					"error":  err.Error(),
				})
				return
			}
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "ready",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Health/Metrics server listening on :8080")
		if err := http.ListenAndServe(":8080", nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")

	for _, w := range workers {
		w.Stop()
	}

	if err := camundaClient.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Sync manager stopped gracefully")
}

func startWorker(client zbc.Client, taskType string, wcfg config.WorkerConfig, handler camunda.JobHandler, log *zap.Logger) *camunda.CamundaWorker {
	return camunda.NewWorker(
		client,
		taskType,
		wcfg.MaxJobsActive,
		time.Duration(wcfg.Timeout)*time.Millisecond,
		handler,
		log,
	)
}
