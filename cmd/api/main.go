package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/api/http"
	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/api/http/handlers"
	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/auth"
	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/config"
	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/edge"
	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/events"
	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/observability"
	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/persistence"
	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/repository"
	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/service"
	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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
	userRepo := repository.NewUserRepository(pool)
	resetRepo := repository.NewPasswordResetRepository(pool)
	var sessionRepo repository.SessionRepository = repository.NewSessionRepository(pool, time.Now)
	if cfg.Session.CacheEnabled && cfg.Session.CacheTTL() > 0 {
		sessionRepo = repository.NewCachedSessionRepository(sessionRepo, redis.Client, cfg.Session.CacheTTL(), logger)
	}

	dispatcher := events.NewInMemoryDispatcher()
	service.NewNotificationService(dispatcher, logger, cfg.Notification).RegisterHandlers()

	metrics := observability.NewMetrics()
	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		UserRepo:          userRepo,
		SessionRepo:       sessionRepo,
		PasswordResetRepo: resetRepo,
		Dispatcher:        dispatcher,
		Logger:            logger,
	})
	authzService := service.NewAuthorizationService(userRepo, dispatcher, logger)

	policy, err := config.LoadAccessPolicy(cfg.Auth.PolicyFile, cfg.Edge.ProtectedPrefixes)
	if err != nil {
		logger.Fatal("failed to load access policy", zap.Error(err))
	}

	cookies := auth.NewCookieJar(cfg.Cookie)
	deny := auth.NewDenyPolicy(cfg.Edge)
	gatekeeper := edge.New(cfg.Auth.SessionSecret, httptransport.GatekeeperPrefixes(policy), cookies, deny, logger,
		edge.WithMaxTokenAge(cfg.Edge.MaxTokenAge()),
		edge.WithMetrics(metrics),
	)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler(logger),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:     handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:       handlers.NewAuthHandler(authService, cookies),
		Admin:      handlers.NewAdminHandler(authzService, authService, metrics),
		Sessions:   auth.NewSessionMiddleware(authService, cookies, deny, logger),
		Gatekeeper: gatekeeper,
		Policy:     policy,
	})

	go worker.NewSessionSweeper(authService, cfg.Session.SweepInterval(), logger).Run(ctx)

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Error("fiber listen", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}
