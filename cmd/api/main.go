package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/lifecycle-engine/internal/api/http"
	"github.com/spec-kit/lifecycle-engine/internal/api/http/handlers"
	"github.com/spec-kit/lifecycle-engine/internal/auth"
	"github.com/spec-kit/lifecycle-engine/internal/cache"
	"github.com/spec-kit/lifecycle-engine/internal/config"
	"github.com/spec-kit/lifecycle-engine/internal/events"
	"github.com/spec-kit/lifecycle-engine/internal/hooks"
	"github.com/spec-kit/lifecycle-engine/internal/observability"
	"github.com/spec-kit/lifecycle-engine/internal/persistence"
	"github.com/spec-kit/lifecycle-engine/internal/repository"
	"github.com/spec-kit/lifecycle-engine/internal/service"
	"github.com/spec-kit/lifecycle-engine/internal/worker"
	"github.com/spec-kit/lifecycle-engine/internal/workflow"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	workflowRepo := repository.NewWorkflowRepository(pool)
	policyRepo := repository.NewSlaPolicyRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	historyRepo := repository.NewHistoryRepository(pool)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)
	snapshots := cache.NewSnapshotCache(redis.ClientHandle(), cfg.Engine.SnapshotCacheTTL(), logger)

	hookRegistry := hooks.NewRegistry(logger)
	runtime := workflow.NewRuntime(hookRegistry, cfg.Engine.HookTimeout(), logger)
	reconciler := workflow.NewReconciler(workflowRepo, logger)

	lifecycleService := service.NewLifecycleService(service.LifecycleDependencies{
		TicketRepo:   ticketRepo,
		WorkflowRepo: workflowRepo,
		PolicyRepo:   policyRepo,
		HistoryRepo:  historyRepo,
		Runtime:      runtime,
		Snapshots:    snapshots,
		Dispatcher:   dispatcher,
		Metrics:      metrics,
		Logger:       logger,
	})
	workflowAdminService := service.NewWorkflowAdminService(service.WorkflowAdminDependencies{
		WorkflowRepo: workflowRepo,
		Reconciler:   reconciler,
		Snapshots:    snapshots,
		Metrics:      metrics,
		Logger:       logger,
	})
	slaAdminService := service.NewSlaAdminService(policyRepo, snapshots, logger)

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokenManager)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(cfg.Auth.Accounts, tokenManager),
		Workflows:      handlers.NewWorkflowDefinitionsHandler(workflowAdminService),
		Policies:       handlers.NewSlaPoliciesHandler(slaAdminService),
		Tickets:        handlers.NewTicketsHandler(lifecycleService),
		AuthMiddleware: authMiddleware,
	})

	monitor := worker.NewSlaMonitor(ticketRepo, dispatcher, metrics, logger, cfg.Engine.BreachScanInterval())
	monitor.Start(ctx)

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	monitor.Wait()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
