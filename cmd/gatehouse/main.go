package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/gatehouse-api/gatehouse/internal/activity"
	"github.com/gatehouse-api/gatehouse/internal/app"
	"github.com/gatehouse-api/gatehouse/internal/auth"
	"github.com/gatehouse-api/gatehouse/internal/auth/blocklist"
	"github.com/gatehouse-api/gatehouse/internal/bootstrap"
	"github.com/gatehouse-api/gatehouse/internal/observability"
	"github.com/gatehouse-api/gatehouse/internal/platform/cache"
	"github.com/gatehouse-api/gatehouse/internal/platform/db"
	"github.com/gatehouse-api/gatehouse/internal/privileges"
	"github.com/gatehouse-api/gatehouse/internal/rbac"
	"github.com/gatehouse-api/gatehouse/internal/roles"
	"github.com/gatehouse-api/gatehouse/internal/system"
	"github.com/gatehouse-api/gatehouse/internal/users"
	"github.com/gatehouse-api/gatehouse/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		logger.Error("apply schema", slog.Any("error", err))
		os.Exit(1)
	}

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		// The user cache and token ledger degrade without Redis.
		logger.Warn("redis unavailable", slog.Any("error", err))
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	userCache := users.NewCache(redisClient, cfg.CacheTTL, logger)
	userRepo := users.NewRepository(pool)
	userService := users.NewService(userRepo, userCache)

	roleRepo := roles.NewRepository(pool)
	roleService := roles.NewService(roleRepo)

	privilegeRepo := privileges.NewRepository(pool)
	privilegeService := privileges.NewService(privilegeRepo)

	rbacService := rbac.NewService(pool)
	rbacMiddleware := rbac.Middleware{Service: rbacService, Logger: logger}

	issuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.AccessTokenTTL)
	ledger := blocklist.New(redisClient, cfg.AccessTokenTTL, logger)
	authService := auth.NewService(userService, issuer, ledger)
	authMiddleware := auth.NewMiddleware(issuer, ledger, userService)
	authHandler := auth.NewHandler(logger, authService, authMiddleware)

	seeder := bootstrap.NewSeeder(roleService, userService, logger)
	if err := seeder.Run(ctx, cfg.BootstrapAdminEmail, cfg.BootstrapAdminPassword); err != nil {
		logger.Error("bootstrap", slog.Any("error", err))
		os.Exit(1)
	}

	activityRepo := activity.NewRepository(pool)
	activityService := activity.NewService(activityRepo, logger)

	metrics := observability.NewMetrics()

	usersHandler := users.NewHandler(logger, userService, rbacMiddleware)
	rolesHandler := roles.NewHandler(logger, roleService, rbacMiddleware)
	privilegesHandler := privileges.NewHandler(logger, privilegeService, rbacMiddleware)
	systemHandler := system.NewHandler(logger, pool, redisClient, authMiddleware.Authenticate, rbacMiddleware)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		AuthHandler:        authHandler,
		AuthMiddleware:     authMiddleware,
		RBACMiddleware:     rbacMiddleware,
		UsersHandler:       usersHandler,
		RolesHandler:       rolesHandler,
		PrivilegesHandler:  privilegesHandler,
		SystemHandler:      systemHandler,
		JobHandler:         jobHandler,
		ActivityMiddleware: activity.Middleware(activityService),
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
