package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/soc2kit/compliance-copilot/internal/application"
	appcompliance "github.com/soc2kit/compliance-copilot/internal/application/compliance"
	"github.com/soc2kit/compliance-copilot/internal/config"
	domain "github.com/soc2kit/compliance-copilot/internal/domain/compliance"
	aiclient "github.com/soc2kit/compliance-copilot/internal/infra/ai/openai"
	"github.com/soc2kit/compliance-copilot/internal/infra/db"
	mysqldb "github.com/soc2kit/compliance-copilot/internal/infra/db/mysql"
	pgdb "github.com/soc2kit/compliance-copilot/internal/infra/db/postgres"
	"github.com/soc2kit/compliance-copilot/internal/infra/httpserver"
	minioStore "github.com/soc2kit/compliance-copilot/internal/infra/storage"
	"github.com/soc2kit/compliance-copilot/internal/middleware"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	cfg, err := config.Load(path)
	if err != nil {
		slog.Error("config load error", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// connect database per configured driver
	var (
		sqlDB *sql.DB
		repo  domain.Repository
	)
	switch cfg.Database.Driver {
	case "mysql":
		sqlDB, err = mysqldb.Connect(ctx, cfg.MySQLDSN())
		if err == nil {
			repo = mysqldb.NewAnalysisRepository(sqlDB)
		}
	default:
		sqlDB, err = pgdb.Connect(ctx, cfg.PostgresDSN())
		if err == nil {
			repo = pgdb.NewAnalysisRepository(sqlDB)
		}
	}
	if err != nil {
		slog.Error("database connect error", "driver", cfg.Database.Driver, "error", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	if err := db.Migrate(sqlDB, cfg.Database.Driver); err != nil {
		slog.Error("migration error", "error", err)
		os.Exit(1)
	}

	// optional upload archive
	var archive httpserver.ArchiveStore
	if cfg.Minio.Enabled {
		store, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			slog.Error("minio init error", "error", err)
			os.Exit(1)
		}
		archive = store
	}

	// gateway key is read per request so rotation needs no restart
	client := aiclient.NewClient(cfg.AI.BaseURL, cfg.AI.Model, config.GatewayAPIKey)
	svc := appcompliance.NewService(client)

	mux := chi.NewRouter()
	mux.Use(middleware.Logging)
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(middleware.RateLimitMiddleware(cfg.RateLimit.Capacity, cfg.RateLimit.RefillRate))
	mux.Mount("/", httpserver.NewRouter(httpserver.Deps{
		Compliance: svc,
		Repo:       repo,
		Archive:    archive,
		Clock:      application.SystemClock{},
		APIKeys:    cfg.APIKeys,
		Health: middleware.HealthHandler(map[string]middleware.HealthChecker{
			"database": &middleware.DatabaseHealthChecker{DB: sqlDB},
		}),
	}))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	slog.Info("shutting down server")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}
