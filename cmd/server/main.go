// Package main is the entry point for the Misbar API
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/nsvirk/misbarapi/internal/api"
	"github.com/nsvirk/misbarapi/internal/api/middleware"
	"github.com/nsvirk/misbarapi/internal/config"
	"github.com/nsvirk/misbarapi/internal/repository"
	"github.com/nsvirk/misbarapi/internal/service"
	"github.com/nsvirk/misbarapi/internal/token"
	"github.com/nsvirk/misbarapi/pkg/utils/auditlog"
	"github.com/nsvirk/misbarapi/pkg/utils/zaplogger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	// Load configuration
	cfg, err := config.Get()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Print the configuration
	fmt.Println(cfg.String())

	// Setup logger
	defer zaplogger.Sync()
	zaplogger.SetLogLevel(cfg.ServerLogLevel)

	// Connect to Postgres, migrations run on connect
	db, err := repository.ConnectPostgres(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	zaplogger.Info("Postgres initialized")

	if cfg.ServerLogToDb {
		if err := zaplogger.InitLogger(db); err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
	}

	// Connect Redis, only used for token revocation
	var denylist token.Denylist = token.NoopDenylist{}
	if cfg.RedisEnabled {
		redisClient, err := repository.ConnectRedis(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		denylist = token.NewRedisDenylist(redisClient)
		zaplogger.Info("Redis initialized")
	}

	audit, err := auditlog.New(db)
	if err != nil {
		log.Fatalf("Failed to initialize audit log: %v", err)
	}

	// startUpMessage
	zaplogger.Info(cfg.APIName + " - " + cfg.APIVersion + " initialized")

	// Create a new Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Setup middleware
	middleware.SetupLoggerMiddleware(e)
	middleware.SetupCORSMiddleware(e, cfg.FrontendURL)

	// Setup routes
	stores := api.PostgresStores(db)
	svcs := api.NewServices(cfg, stores, denylist, audit)
	api.SetupRoutes(e, cfg, svcs)

	// Setup and start cron jobs
	cronService := service.NewCronService(cfg, stores.Logins, svcs.Auth)
	cronService.Start()

	// Start the server
	go startServer(e, cfg)

	<-ctx.Done()
	zaplogger.Info("Received interruption signal, shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		zaplogger.Error("Error during server shutdown", zaplogger.Fields{"error": err.Error()})
	}
	<-cronService.Stop().Done()
	zaplogger.Info("Shutdown complete")
}

// startServer starts the Echo server on the specified port
func startServer(e *echo.Echo, cfg *config.Config) {
	port := cfg.ServerPort
	if port == "" {
		port = "5001"
	}
	zaplogger.Info("SERVER STARTED ON PORT " + port)
	if err := e.Start(":" + port); err != nil && !errors.Is(err, http.ErrServerClosed) {
		zaplogger.Fatal("Server stopped", zaplogger.Fields{"error": err.Error()})
	}
}
