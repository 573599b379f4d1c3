package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/proxy"
	"go.uber.org/zap"

	httptransport "github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/api/http"
	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/auth"
	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/config"
	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/edge"
	"github.com/mateusdiasyt/oquefazeremfoz-sub002/internal/observability"
)

const (
	originTimeout   = 30 * time.Second
	shutdownTimeout = 10 * time.Second
)

// The edge binary verifies tokens without touching any store and forwards
// everything else to the origin, which repeats the full session check.
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
	logger = logger.Named("edge")

	policy, err := config.LoadAccessPolicy(cfg.Auth.PolicyFile, cfg.Edge.ProtectedPrefixes)
	if err != nil {
		logger.Fatal("failed to load access policy", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	gatekeeper := edge.New(cfg.Auth.SessionSecret, httptransport.GatekeeperPrefixes(policy),
		auth.NewCookieJar(cfg.Cookie), auth.NewDenyPolicy(cfg.Edge), logger,
		edge.WithMaxTokenAge(cfg.Edge.MaxTokenAge()),
		edge.WithMetrics(metrics),
	)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name + "-edge",
		ErrorHandler: httptransport.ErrorHandler(logger),
	})
	app.Use(observability.RequestLogger(logger, metrics))
	app.Use(gatekeeper.Handler())
	app.Use(proxy.Balancer(proxy.Config{
		Servers: []string{cfg.Edge.OriginURL},
		Timeout: originTimeout,
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("edge listening", zap.String("addr", cfg.Edge.Addr()), zap.String("origin", cfg.Edge.OriginURL))
		if err := app.Listen(cfg.Edge.Addr()); err != nil {
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
