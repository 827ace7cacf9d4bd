// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"ehealth-workers/bpmn"
	awsclient "ehealth-workers/internal/common/aws"
	"ehealth-workers/internal/common/cache"
	"ehealth-workers/internal/common/camunda"
	"ehealth-workers/internal/common/config"
	"ehealth-workers/internal/common/database"
	"ehealth-workers/internal/common/events"
	"ehealth-workers/internal/common/logger"
	"ehealth-workers/internal/common/moodle"
	"ehealth-workers/internal/common/observability"

	cc "ehealth-workers/internal/workers/certificate/course-completed"
	tc "ehealth-workers/internal/workers/certificate/transfer-certificate"
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
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	bootLog := logger.New("info", "console")

	cfg, err := config.Load()
	if err != nil {
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog).WithFields(map[string]interface{}{
		"service": cfg.App.Name,
		"version": cfg.App.Version,
	})

	zapLog.Info("Starting worker manager...", zap.String("mode", cfg.Server.Mode))

	obs := observability.New(cfg.Observability.ServiceName, cfg.Observability.JaegerEndpoint, log)

	ctx := context.Background()

	// --- PostgreSQL (host database) ---
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

	siteLoc, err := cfg.Transfer.Location()
	if err != nil {
		zapLog.Fatal("site timezone invalid", zap.Error(err))
	}
	store := moodle.NewStore(pg, cfg.Transfer.Fields, cfg.Transfer.CertificateModules, siteLoc)

	// --- Course cache (optional) ---
	var courses moodle.CourseFieldsLookup = store
	var courseCache cc.CacheInvalidator
	if cfg.Transfer.CourseCacheTTL > 0 {
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
		cached := cache.NewCourseCache(store, redis.Client, config.GetDuration(cfg.Transfer.CourseCacheTTL), log)
		courses, courseCache = cached, cached
		zapLog.Info("Course cache enabled", zap.Int("ttlMs", cfg.Transfer.CourseCacheTTL))
	}

	// --- Notification emitters ---
	emitter := events.MultiEmitter{events.NewLogEmitter(log)}

	if cfg.Notifications.SNS.Enabled {
		snsClient, err := awsclient.NewSNSClient(ctx, cfg.Notifications.SNS.Region)
		if err != nil {
			zapLog.Fatal("sns client failed", zap.Error(err))
		}
		emitter = append(emitter, events.NewSNSEmitter(snsClient, cfg.Notifications.SNS.TopicARN))
		zapLog.Info("SNS notifications enabled", zap.String("topic", cfg.Notifications.SNS.TopicARN))
	}

	if cfg.Notifications.EventLog.Enabled {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			if err := esClient.Ping(ctx); err != nil {
				return err
			}
			return esClient.EnsureIndex(ctx)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		emitter = append(emitter, events.NewEventLogEmitter(esClient.Client, esClient.Index))
		zapLog.Info("Event log enabled", zap.String("index", esClient.Index))
	}

	// --- Zeebe (deferred transfers) ---
	var camundaClient *camunda.Client
	if cfg.Camunda.BrokerAddress != "" {
		err = retryWithBackoff(func() error {
			var err error
			camundaClient, err = camunda.NewClient(camunda.ClientConfig{
				GatewayAddress:         cfg.Camunda.BrokerAddress,
				UsePlaintextConnection: true,
				ConnectionTimeout:      10 * time.Second,
				RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
			})
			return err
		}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		defer camundaClient.Close()
		zapLog.Info("Zeebe client connected successfully")

		err = retryWithBackoff(func() error {
			process, err := camundaClient.DeployProcess(ctx, bpmn.CertificateTransferResource, bpmn.CertificateTransfer)
			if err != nil {
				return err
			}
			zapLog.Info("Process deployed",
				zap.String("bpmnProcessId", process.GetBpmnProcessId()),
				zap.Int32("version", process.GetVersion()),
			)
			return nil
		}, 5, 2*time.Second, zapLog, "BPMN deployment")
		if err != nil {
			zapLog.Fatal("process deployment failed", zap.Error(err))
		}
	}

	// --- Transfer pipeline and its job worker ---
	transferLog := moodle.NewTransferLogRepository(pg)
	transferHandler, err := tc.NewHandler(tc.HandlerOptions{
		AppConfig: cfg,
		Camunda:   camundaClient,
		Logger:    log,
		Dependencies: tc.ServiceDependencies{
			Courses:       courses,
			Users:         store,
			Certificates:  store,
			TransferLog:   transferLog,
			Emitter:       emitter,
			Observability: obs,
		},
	})
	if err != nil {
		zapLog.Fatal("transfer handler failed", zap.Error(err))
	}
	if camundaClient != nil {
		if err := transferHandler.Register(); err != nil {
			zapLog.Fatal("transfer worker registration failed", zap.Error(err))
		}
		defer transferHandler.Close()
	}

	// --- Course-completed observer ---
	observerOpts := cc.ObserverOptions{Mode: cfg.Server.Mode, Logger: log}
	if cfg.Server.Mode == config.ModeInline {
		observerOpts.Transferer = transferHandler.Service()
	} else {
		observerOpts.Queue = camunda.NewTaskQueue(camundaClient, cfg.Camunda.ProcessID)
	}
	observer, err := cc.NewObserver(observerOpts)
	if err != nil {
		zapLog.Fatal("observer setup failed", zap.Error(err))
	}

	// --- HTTP server: events, admin, health, metrics ---
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "healthy", nil)
	})
	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		checkCtx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		checks := map[string]string{"postgres": "ok"}
		status := http.StatusOK
		if err := pg.Ping(checkCtx); err != nil {
			checks["postgres"] = err.Error()
			status = http.StatusServiceUnavailable
		}
		if camundaClient != nil {
			checks["zeebe"] = "ok"
			if err := camundaClient.HealthCheck(checkCtx); err != nil {
				checks["zeebe"] = err.Error()
				status = http.StatusServiceUnavailable
			}
		}
		label := "ready"
		if status != http.StatusOK {
			label = "not ready"
		}
		writeStatus(w, status, label, checks)
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Mount("/events", observer.Routes())
	r.Mount("/admin", cc.NewAdmin(transferLog, courseCache, log).Routes())

	server := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Server.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("HTTP server shutdown failed", zap.Error(err))
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Observability shutdown failed", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped")
}

func writeStatus(w http.ResponseWriter, status int, label string, checks map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := map[string]interface{}{"status": label}
	if checks != nil {
		body["checks"] = checks
	}
	_ = json.NewEncoder(w).Encode(body)
}
