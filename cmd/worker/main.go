package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/khoahotran/profile-editor/adapters/event"
	"github.com/khoahotran/profile-editor/adapters/persistence"
	auditUC "github.com/khoahotran/profile-editor/internal/application/usecase/audit"
	"github.com/khoahotran/profile-editor/internal/config"
	"github.com/khoahotran/profile-editor/pkg/apperror"
	"github.com/khoahotran/profile-editor/pkg/logger"
)

const purgeInterval = 15 * time.Minute

var recordRetry = auditUC.RetryPolicy{Attempts: 5, Backoff: 500 * time.Millisecond}

func main() {
	fmt.Println("Starting Profile Editor Worker...")

	// Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(fmt.Sprintf("cannot load config: %v", err))
	}
	appLogger := logger.NewZapLogger(cfg.App.Env, "profile-editor-worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(cfg.Kafka.Brokers) == 0 {
		appLogger.Fatal("Worker needs kafka.brokers", nil)
	}

	// Database
	if err := persistence.RunMigrations(cfg.DB.MigrationsURL, cfg.DB.DSN, appLogger); err != nil {
		appLogger.Fatal("Cannot migrate database", err)
	}
	dbPool, err := persistence.NewPostgresPool(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Cannot connect Postgres", err)
	}
	defer dbPool.Close()

	// Repositories and use case
	auditRepo := persistence.NewPostgresAuditRepo(dbPool, appLogger)
	recordEventUC := auditUC.NewRecordEventUseCase(auditRepo, appLogger)

	if cfg.Session.Driver == "postgres" {
		go purgeDrafts(ctx, persistence.NewPostgresDraftRepo(dbPool, appLogger), appLogger)
	}

	// Kafka Consumer
	consumer := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Kafka.Brokers,
		Topic:    event.TopicEditorEvents,
		GroupID:  "profile-editor-audit-group",
		MinBytes: 10e3,
		MaxBytes: 10e6,
	})
	defer consumer.Close()

	appLogger.Info("Worker listening", zap.String("topic", event.TopicEditorEvents))

	for {
		msg, err := consumer.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				appLogger.Info("Worker shutting down")
				return
			}
			appLogger.Error("Failed to read message from Kafka", err)
			continue
		}

		log := appLogger.With(zap.String("key", string(msg.Key)), zap.Int64("offset", msg.Offset))

		var payload event.EditorEventPayload
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			log.Error("Failed to unmarshal editor event, skipping", err)
			commitMessage(ctx, consumer, msg, log)
			continue
		}

		_, err = recordEventUC.ExecuteWithRetry(ctx, auditUC.RecordEventInput{
			DeliveryKey: fmt.Sprintf("%s/%d/%d", msg.Topic, msg.Partition, msg.Offset),
			Payload:     payload,
		}, recordRetry)
		if err != nil {
			if errors.Is(err, apperror.ErrInvalidInput) {
				log.Warn("Dropping malformed editor event", zap.Error(err))
				commitMessage(ctx, consumer, msg, log)
				continue
			}
			if ctx.Err() != nil {
				appLogger.Info("Worker shutting down")
				return
			}
			// Committing a later offset on this partition would skip the
			// message, so stop and let the group redeliver it.
			log.Fatal("Failed to record editor event after retries", err)
		}

		commitMessage(ctx, consumer, msg, log)
	}
}

func commitMessage(ctx context.Context, consumer *kafka.Reader, msg kafka.Message, log logger.Logger) {
	if err := consumer.CommitMessages(ctx, msg); err != nil {
		log.Error("Failed to commit message", err)
	}
}

func purgeDrafts(ctx context.Context, repo *persistence.PostgresDraftRepo, log logger.Logger) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := repo.PurgeExpired(ctx)
			if err != nil {
				log.Error("Failed to purge expired drafts", err)
				continue
			}
			if n > 0 {
				log.Info("Purged expired drafts", zap.Int64("count", n))
			}
		}
	}
}
