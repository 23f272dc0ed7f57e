package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"p9e.in/energydesk/config"
	"p9e.in/energydesk/middleware"
	"p9e.in/energydesk/pkg/logger"
	"p9e.in/energydesk/pkg/records"
	"p9e.in/energydesk/routes"
)

var (
	Version   = "dev"
	BuildTime = ""
)

func main() {
	versionFlag := flag.Bool("version", false, "Print version info and exit")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("Version:   %s\n", Version)
		fmt.Printf("BuildTime: %s\n", BuildTime)
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.AppVersion == "dev" {
		cfg.AppVersion = Version
	}

	if err := logger.InitLogger(cfg.LogLevel, cfg.LogFormat); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	logger.Info("Starting "+cfg.AppName,
		zap.String("app", cfg.AppName),
		zap.String("version", cfg.AppVersion),
		zap.String("environment", cfg.Environment),
		zap.String("db_driver", cfg.DBDriver),
	)

	// run owns every deferred cleanup, so the exit below skips nothing
	if err := run(cfg); err != nil {
		logger.Error("Server stopped", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Sync()
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	backend, err := config.OpenStore(connectCtx, cfg)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := config.CloseStore(closeCtx); err != nil {
			logger.Error("Failed to close store", zap.Error(err))
		}
	}()

	verifier, err := middleware.NewVerifier(cfg.JWTSecret, cfg.JWTPublicKey, cfg.JWTIssuer)
	if err != nil {
		return fmt.Errorf("failed to configure token verification: %w", err)
	}

	recordService := records.NewService(backend, logger.L())
	if cfg.SeedSampleData {
		if err := config.SeedSampleRecords(ctx, recordService, logger.L()); err != nil {
			logger.Warn("Seeding encountered issues", zap.Error(err))
		}
	}

	handler := routes.RegisterRoutes(routes.Deps{
		Records:           recordService,
		Store:             backend,
		Verifier:          verifier,
		Logger:            logger.L(),
		Version:           cfg.AppVersion,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
	})

	srv := &http.Server{
		Addr:         cfg.GetServerAddress(),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Server starting", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received, stopping server...")
	case serveErr = <-errChan:
		serveErr = fmt.Errorf("server failed: %w", serveErr)
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}
	logger.Info("Shutdown complete")
	return serveErr
}
