package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/redmonkez12/go-auth-api/docs" // Swagger docs (generated)
	"github.com/redmonkez12/go-auth-api/internal/app"
	"github.com/redmonkez12/go-auth-api/internal/auth"
	"github.com/redmonkez12/go-auth-api/internal/config"
	httpServer "github.com/redmonkez12/go-auth-api/internal/http"
	"github.com/redmonkez12/go-auth-api/internal/logging"
	"github.com/redmonkez12/go-auth-api/internal/metrics"
)

// @title           Go Auth API
// @version         1.0
// @description     Credential and session service: signup, signin, logout and rotating refresh tokens.

// @contact.name   API Support
// @contact.email  support@example.com

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token (or the refresh token for /auth/refresh).

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NewLogger(cfg.Server.IsDevelopment())
	logger.Info("starting application",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
		"store", cfg.Auth.StoreBackend,
		"token_format", cfg.Auth.TokenFormat,
	)

	ctx := context.Background()

	store, closeStore, err := app.OpenStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("failed to close credential store", "error", err)
		}
	}()

	issuer, err := app.NewIssuer(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize token issuer: %w", err)
	}

	hasher, err := app.NewHasher(cfg.Hashing)
	if err != nil {
		return fmt.Errorf("failed to initialize password hasher: %w", err)
	}
	m := metrics.New()

	authService := auth.NewService(store, hasher, issuer, logger)
	authHandler := auth.NewHandler(authService, m)
	authMiddleware := auth.NewMiddleware(issuer)

	router := httpServer.NewRouter(cfg, authHandler, authMiddleware, m, logger)

	server := httpServer.NewServer(
		":"+cfg.Server.Port,
		router,
		cfg.Server.ReadTimeout,
		cfg.Server.WriteTimeout,
		logger,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		logger.Info("received signal", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}
