package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gevengood/red-esperanza-backend/common/database"
	"github.com/gevengood/red-esperanza-backend/common/logger"
	commonredis "github.com/gevengood/red-esperanza-backend/common/redis"
	"github.com/gevengood/red-esperanza-backend/internal/auth"
	"github.com/gevengood/red-esperanza-backend/internal/config"
	httpapi "github.com/gevengood/red-esperanza-backend/internal/http"
	"github.com/gevengood/red-esperanza-backend/internal/repository"
	"github.com/gevengood/red-esperanza-backend/internal/service"
	"github.com/gevengood/red-esperanza-backend/internal/store"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "red-esperanza")
	if err != nil {
		log, _ = zap.NewProduction()
	}
	defer log.Sync()

	if cfg.IsProduction() && cfg.JWT.Secret == "default_secret_key" {
		log.Warn("JWT_SECRET is not set, using the default secret in production")
	}

	// KV backs token revocation and rate-limit counters; without Redis the
	// counters are per-process.
	var kv store.KV = store.NewMemoryKV()
	if cfg.RedisEnabled {
		redisClient := commonredis.NewRedisClient(&cfg.Redis)
		pingCtx, pingCancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := commonredis.Ping(pingCtx, redisClient); err == nil {
			kv = store.NewRedisKV(redisClient)
			defer commonredis.Close(redisClient)
			log.Info("Redis enabled", zap.String("addr", cfg.Redis.Addr))
		} else {
			log.Warn("Redis enabled but unreachable, falling back to in-memory KV", zap.Error(err))
			_ = commonredis.Close(redisClient)
		}
		pingCancel()
	}

	var (
		usersRepo repository.UsersRepository
		casesRepo repository.CasesRepository
		cluesRepo repository.CluesRepository
		db        *sqlx.DB
	)
	if cfg.DBEnabled {
		if d, err := database.NewPostgresDB(&cfg.Database); err == nil {
			db = d
			log.Info("DB enabled for red-esperanza", zap.String("host", cfg.Database.Host), zap.String("database", cfg.Database.Database))
		} else {
			log.Warn("DB enabled but connection failed, falling back to in-memory store", zap.Error(err))
		}
	}
	if db != nil {
		defer database.Close(db)
		usersRepo = repository.NewPostgresUsersRepository(db)
		casesRepo = repository.NewPostgresCasesRepository(db)
		cluesRepo = repository.NewPostgresCluesRepository(db)
	} else {
		mem := repository.NewMemoryStore()
		usersRepo, casesRepo, cluesRepo = mem, mem, mem
	}

	var storage service.PhotoStorage
	if cfg.Storage.URL != "" {
		storage = service.NewStorageClient(cfg.Storage.URL, cfg.Storage.ServiceKey, cfg.Storage.Bucket, log)
	} else {
		log.Warn("STORAGE_URL not set, photo uploads are disabled")
	}

	hasher := auth.NewPasswordHasher(cfg.JWT.BcryptCost)
	tokens := auth.NewTokenService(cfg.JWT.Secret, cfg.JWT.ExpiresIn)
	revocations := auth.NewRevocations(kv)

	authService := service.NewAuthService(usersRepo, tokens, hasher, revocations, log)
	caseService := service.NewCaseService(casesRepo, cluesRepo, storage, cfg.Storage.MaxBytes, log)
	clueService := service.NewClueService(cluesRepo, casesRepo, log)
	userService := service.NewUserService(usersRepo, casesRepo, cluesRepo, hasher, log)

	seedCtx, seedCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := authService.SeedAdmin(seedCtx, cfg.Seed.AdminName, cfg.Seed.AdminEmail, cfg.Seed.AdminPassword); err != nil {
		log.Error("Failed to seed administrator", zap.Error(err))
	}
	seedCancel()

	base := httpapi.NewBaseHandler(authService, log, cfg.HTTP.MaxBodySize, cfg.IsProduction())
	router := httpapi.NewRouter(log)
	router.RegisterAuthRoutes(httpapi.NewAuthHandler(base, authService))
	router.RegisterCaseRoutes(httpapi.NewCaseHandler(base, caseService))
	router.RegisterClueRoutes(httpapi.NewClueHandler(base, clueService))
	router.RegisterUserRoutes(httpapi.NewUserHandler(base, userService))
	router.RegisterSystemRoutes(httpapi.NewSystemHandler(base, cfg.Env, cfg.APIVersion))

	mws := []httpapi.Middleware{httpapi.Recover(log, cfg.IsProduction())}
	if cfg.HTTP.TrustProxy {
		mws = append(mws, httpapi.RealIP())
	}
	mws = append(mws,
		httpapi.RequestLogger(log),
		httpapi.CORS(cfg.HTTP.CORSOrigin),
		httpapi.RateLimit(kv, cfg.RateLimit.Window, cfg.RateLimit.MaxRequests, log),
	)
	handler := httpapi.Chain(router, mws...)

	srv := service.NewServer(cfg.HTTP.Addr, handler, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			log.Error("HTTP server failed", zap.Error(err))
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Error("Failed to stop server", zap.Error(err))
	}
}
