package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/config"
	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/events"
	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/observability"
	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/persistence"
	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/repository"
	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := execute(ctx, os.Args[1:])
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "authctl:", err)
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// execute wires the same stores the API uses, so revocations made here also
// evict cached sessions.
func execute(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "help" {
		printUsage(os.Stdout)
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck
	logger = logger.Named("authctl")

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return err
	}
	defer pg.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	var sessionRepo repository.SessionRepository = repository.NewSessionRepository(pool, time.Now)
	if cfg.Session.CacheEnabled && cfg.Session.CacheTTL() > 0 {
		redis := persistence.NewRedis(cfg.Redis, logger)
		defer redis.Close()
		sessionRepo = repository.NewCachedSessionRepository(sessionRepo, redis.Client, cfg.Session.CacheTTL(), logger)
	}

	dispatcher := events.NewInMemoryDispatcher()
	service.NewNotificationService(dispatcher, logger, cfg.Notification).RegisterHandlers()

	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		UserRepo:          userRepo,
		SessionRepo:       sessionRepo,
		PasswordResetRepo: repository.NewPasswordResetRepository(pool),
		Dispatcher:        dispatcher,
		Logger:            logger,
	})

	c := &cli{
		users:   userRepo,
		auth:    authService,
		roles:   service.NewAuthorizationService(userRepo, dispatcher, logger),
		out:     os.Stdout,
		stdinFd: int(os.Stdin.Fd()),
	}
	if err := c.run(ctx, args); err != nil {
		logger.Debug("command failed", zap.String("command", args[0]), zap.Error(err))
		return err
	}
	return nil
}
