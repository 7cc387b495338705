package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/khoahotran/profile-editor/adapters/api"
	"github.com/khoahotran/profile-editor/adapters/event"
	httpAdapter "github.com/khoahotran/profile-editor/adapters/http"
	"github.com/khoahotran/profile-editor/adapters/media_storage"
	"github.com/khoahotran/profile-editor/adapters/persistence"
	"github.com/khoahotran/profile-editor/internal/application/service"
	editorUC "github.com/khoahotran/profile-editor/internal/application/usecase/editor"
	photoUC "github.com/khoahotran/profile-editor/internal/application/usecase/photo"
	"github.com/khoahotran/profile-editor/internal/config"
	"github.com/khoahotran/profile-editor/internal/domain/editor"
	"github.com/khoahotran/profile-editor/pkg/logger"
	"github.com/khoahotran/profile-editor/pkg/session"
	"github.com/khoahotran/profile-editor/pkg/tracing"
)

const (
	serviceName   = "profile-editor"
	sweepInterval = time.Minute
)

func main() {
	fmt.Println("Start Profile Editor Server...")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(fmt.Sprintf("cannot load config: %v", err))
	}
	appLogger := logger.NewZapLogger(cfg.App.Env, serviceName)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(cfg.Tracing.OTLPEndpoint, serviceName, appLogger)
	if err != nil {
		appLogger.Fatal("Cannot init tracing", err)
	}
	defer shutdownTracing(context.Background())

	// Draft store
	drafts, closeDrafts, err := newDraftRepository(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Cannot init draft store", err, zap.String("driver", cfg.Session.Driver))
	}
	defer closeDrafts()

	// Editor events
	var publisher event.Publisher = event.NopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaClient, err := event.NewKafkaProducerClient(cfg, appLogger)
		if err != nil {
			appLogger.Fatal("Cannot init Kafka", err)
		}
		defer kafkaClient.Close()
		publisher = kafkaClient
	}

	// Photo uploads are optional
	var uploader service.Uploader
	if cfg.Cloudinary.CloudName != "" {
		uploader, err = media_storage.NewCloudinaryAdapter(cfg, appLogger)
		if err != nil {
			appLogger.Fatal("Failed to initialize uploader", err)
		}
	}

	if cfg.Session.Secret == "" {
		appLogger.Warn("session.secret is empty, using an insecure development secret")
		cfg.Session.Secret = "development-only-secret"
	}

	// Services and use cases
	gateway := api.NewProfileClient(cfg.Upstream.BaseURL, cfg.Upstream.Timeout, appLogger)
	sessions := editorUC.NewSessions(drafts, gateway, publisher, editorUC.SessionsConfig{
		DraftTTL:        cfg.Session.TTL,
		NotificationTTL: cfg.Notification.TTL,
		UpstreamTimeout: cfg.Upstream.Timeout,
	}, appLogger)
	go sessions.RunSweeper(ctx, sweepInterval)

	uploadPhotoUseCase := photoUC.NewUploadPhotoUseCase(uploader, appLogger)

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		Tokens: session.NewTokenService(cfg.Session.Secret, cfg.Session.TTL),
		Cookie: httpAdapter.SessionCookie{
			Name:   cfg.Session.CookieName,
			TTL:    cfg.Session.TTL,
			Secure: cfg.App.Env == "production",
		},
		Editor:  httpAdapter.NewEditorHandler(sessions, uploadPhotoUseCase, appLogger),
		Viewer:  httpAdapter.NewProfileViewHandler(gateway, cfg.Upstream.Timeout, appLogger),
		Logger:  appLogger,
		Metrics: true,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.Info("Server running", zap.String("port", cfg.App.Port), zap.String("upstream", cfg.Upstream.BaseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("Cannot run server", err)
		}
	}()

	<-ctx.Done()
	appLogger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server shutdown failed", err)
	}
}

// newDraftRepository picks the draft store named by session.driver.
func newDraftRepository(ctx context.Context, cfg config.Config, log logger.Logger) (editor.DraftRepository, func(), error) {
	switch cfg.Session.Driver {
	case "", "memory":
		return persistence.NewMemoryDraftRepo(), func() {}, nil
	case "redis":
		rdb, err := persistence.NewRedisClient(ctx, cfg, log)
		if err != nil {
			return nil, nil, err
		}
		return persistence.NewRedisDraftRepo(rdb), func() { rdb.Close() }, nil
	case "postgres":
		if err := persistence.RunMigrations(cfg.DB.MigrationsURL, cfg.DB.DSN, log); err != nil {
			return nil, nil, err
		}
		pool, err := persistence.NewPostgresPool(ctx, cfg, log)
		if err != nil {
			return nil, nil, err
		}
		return persistence.NewPostgresDraftRepo(pool, log), pool.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown session driver %q", cfg.Session.Driver)
}
