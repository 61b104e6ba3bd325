package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/AnshRaj112/flowmotion-backend/internal/config"
	"github.com/AnshRaj112/flowmotion-backend/internal/database"
	"github.com/AnshRaj112/flowmotion-backend/internal/handlers"
	"github.com/AnshRaj112/flowmotion-backend/internal/logger"
	"github.com/AnshRaj112/flowmotion-backend/internal/middleware"
	"github.com/AnshRaj112/flowmotion-backend/internal/routes"
	"github.com/AnshRaj112/flowmotion-backend/internal/services"
)

func main() {
	// Load env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	cfg := config.Load()

	zlog, err := logger.New(cfg.Environment)
	if err != nil {
		log.Fatal("Failed to build logger:", err)
	}
	defer func() { _ = zlog.Sync() }()

	if err := cfg.Validate(); err != nil {
		zlog.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Connect to MongoDB
	client, db, err := database.Connect(cfg.MongoURI, cfg.MongoDB, zlog)
	if err != nil {
		zlog.Fatal("failed to connect to MongoDB", zap.Error(err))
	}
	defer func() { _ = database.Disconnect(client) }()

	users := services.NewMongoUserStore(db)
	if err := users.EnsureIndexes(ctx); err != nil {
		zlog.Fatal("failed to ensure user indexes", zap.Error(err))
	}
	catalogStore := services.NewMongoCatalogStore(db)
	if err := catalogStore.EnsureIndexes(ctx); err != nil {
		zlog.Warn("failed to ensure catalog indexes", zap.Error(err))
	}

	health := map[string]handlers.Pinger{
		"mongo": func(ctx context.Context) error { return client.Ping(ctx, readpref.Primary()) },
	}

	// Redis backs the per-IP rate limit. Without it requests are not counted.
	var rateStore middleware.RateStore
	rdb, err := database.ConnectRedis(cfg.RedisURI, zlog)
	if err != nil {
		zlog.Warn("redis unavailable, rate limiting disabled", zap.Error(err))
	} else {
		defer rdb.Close()
		rateStore = middleware.NewRedisRateStore(rdb)
		health["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	// PostgreSQL is optional and only holds the auth audit log.
	var audit services.AuditLog = services.NopAuditLog{}
	var activity handlers.ActivityReader
	if cfg.PostgresURI != "" {
		pg, err := database.ConnectPostgres(cfg.PostgresURI, zlog)
		if err != nil {
			zlog.Fatal("failed to connect to PostgreSQL", zap.Error(err))
		}
		defer pg.Close()
		pgAudit := services.NewPostgresAuditLog(pg)
		audit, activity = pgAudit, pgAudit
		health["postgres"] = pg.PingContext
	} else {
		zlog.Info("POSTGRES_URI not set, auth audit log disabled")
	}

	// Cloudinary hosts avatars
	var images services.ImageHost
	if cfg.CloudinaryName != "" && cfg.CloudinaryAPIKey != "" && cfg.CloudinaryAPISecret != "" {
		cld, err := services.NewCloudinaryService(cfg.CloudinaryName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
		if err != nil {
			zlog.Warn("failed to initialize Cloudinary, avatar uploads disabled", zap.Error(err))
		} else {
			images = cld
		}
	} else {
		zlog.Warn("Cloudinary credentials not found, avatar uploads disabled")
	}

	mailer := services.NewTemplateMailer(cfg.MailProductName, cfg.FrontendURL, services.NewSMTPTransport(cfg))
	tokens := services.NewTokenService(services.TokenConfigFrom(cfg), users, audit, zlog)
	auth := services.NewAuthService(services.AuthDeps{
		Users:       users,
		Tokens:      tokens,
		Mailer:      mailer,
		Images:      images,
		Audit:       audit,
		Log:         zlog,
		Timeout:     cfg.OutboundTimeout,
		FrontendURL: cfg.FrontendURL,
	})
	catalog := services.NewCatalogService(catalogStore, mailer, cfg.ShopOwnerEmail, cfg.OutboundTimeout, zlog)

	router := routes.NewRouter(routes.Deps{
		Config:    cfg,
		Log:       zlog,
		Auth:      auth,
		Catalog:   catalog,
		Activity:  activity,
		RateStore: rateStore,
		Health:    health,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		zlog.Info("flowmotion backend running", zap.String("addr", srv.Addr), zap.String("env", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("failed to start server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	zlog.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("graceful shutdown failed", zap.Error(err))
	}
}
