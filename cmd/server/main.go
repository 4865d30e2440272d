package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/taskhub/internal/config"
	"github.com/iliyamo/taskhub/internal/database"
	"github.com/iliyamo/taskhub/internal/handler"
	"github.com/iliyamo/taskhub/internal/logger"
	"github.com/iliyamo/taskhub/internal/metrics"
	"github.com/iliyamo/taskhub/internal/queue"
	"github.com/iliyamo/taskhub/internal/repository"
	"github.com/iliyamo/taskhub/internal/router"
	"github.com/iliyamo/taskhub/internal/service"
	"github.com/iliyamo/taskhub/internal/utils"
)

const serviceName = "taskhub"

func main() {
	config.LoadDotEnv()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if err := logger.Init(cfg.LogLevel, cfg.Env, serviceName); err != nil {
		log.Fatal(err)
	}
	lg := logger.L()
	defer func() { _ = lg.Sync() }()

	if cfg.WeakSecret() {
		lg.Warn("JWT_SECRET is shorter than recommended", zap.Int("min_length", config.MinSecretLen))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg)
	if err != nil {
		lg.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		lg.Fatal("schema migration failed", zap.Error(err))
	}

	var rdb *redis.Client
	if c, err := config.NewRedisClient(ctx); err != nil {
		lg.Warn("redis unavailable, rate limiting disabled", zap.Error(err))
	} else {
		rdb = c
		defer rdb.Close()
	}

	m := metrics.New(serviceName)

	var sink service.AuditSink = service.LogSink{}
	var publisher *queue.Publisher
	if cfg.AuditEnabled {
		publisher = queue.NewPublisher(cfg.RabbitURL)
		sink = publisher
		go func() {
			if err := queue.StartAuditConsumer(ctx, cfg.RabbitURL, repository.NewAuditRepo(db)); err != nil && !errors.Is(err, context.Canceled) {
				lg.Error("audit consumer stopped", zap.Error(err))
			}
		}()
	}
	audit := service.NewAuditDispatcher(sink, cfg.AuditBuffer, m)

	tenants := repository.NewTenantRepo(db)
	users := repository.NewUserRepo(db)
	projects := repository.NewProjectRepo(db)
	tasks := repository.NewTaskRepo(db)
	tokens := utils.NewTokenService(cfg.JWTSecret, cfg.AccessTTL)
	cost := utils.ClampCost(cfg.BcryptCost)

	e := router.New(router.Deps{
		Tokens:    tokens,
		Metrics:   m,
		RateLimit: config.LoadRateLimitConfig(),
		Redis:     rdb,
		DB:        db,
		Auth:      handler.NewAuthHandler(service.NewAuthService(tenants, users, tokens, cost, audit, m)),
		Tenants:   handler.NewTenantHandler(service.NewTenantService(tenants, audit)),
		Users:     handler.NewUserHandler(service.NewUserService(tenants, users, cost, audit, m)),
		Projects:  handler.NewProjectHandler(service.NewProjectService(projects, audit, m)),
		Tasks:     handler.NewTaskHandler(service.NewTaskService(projects, tasks, users, audit)),
	})

	addr := ":" + cfg.Port
	go func() {
		lg.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Error("server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	lg.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		lg.Warn("http shutdown", zap.Error(err))
	}
	if err := audit.Close(shutdownCtx); err != nil {
		lg.Warn("audit dispatcher did not drain", zap.Error(err))
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			lg.Warn("close audit publisher", zap.Error(err))
		}
	}
}
