package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rohits-web03/radiologix/internal/api"
	"github.com/rohits-web03/radiologix/internal/config"
	"github.com/rohits-web03/radiologix/internal/credentials"
	"github.com/rohits-web03/radiologix/internal/logging"
	"github.com/rohits-web03/radiologix/internal/repositories"
	"github.com/rohits-web03/radiologix/internal/scans"
	"github.com/rohits-web03/radiologix/internal/tokens"
)

const shutdownTimeout = 10 * time.Second

// @title Radiologix API
// @version 1.0
// @description Scan upload and reporting backend with JWT authentication.
// @BasePath /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := logging.New(cfg.Environment, cfg.LogLevel, os.Stdout)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	store, err := repositories.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}

	users, err := credentials.NewService(store, credentials.WithCost(cfg.BcryptCost))
	if err != nil {
		return fmt.Errorf("credential service: %w", err)
	}
	tokenSvc, err := tokens.NewService([]byte(cfg.JWTSecret), cfg.TokenTTL, users)
	if err != nil {
		return fmt.Errorf("token service: %w", err)
	}

	handler := api.SetupRouter(api.Deps{
		Config:      cfg,
		Log:         logger,
		Credentials: users,
		Tokens:      tokenSvc,
		Scans:       scans.NewService(store),
		Store:       store,
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: handler,
		// Timeouts prevent resource exhaustion from slow clients
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting Radiologix server", "port", cfg.Port, "env", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen on port %s: %w", cfg.Port, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		serr := server.Shutdown(shutdownCtx)
		cerr := store.Close(shutdownCtx)
		return errors.Join(serr, cerr)
	})

	return g.Wait()
}
