package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"creamery/internal/api"
	"creamery/internal/config"
	"creamery/internal/database"
	"creamery/internal/logger"
	"creamery/internal/monitoring"
	"creamery/internal/realtime"
	"creamery/internal/scheduling"
)

var (
	configFile = flag.String("config", "configs/config.yaml", "Path to configuration file")
	seedFile   = flag.String("seed", "", "Seed file applied on first start (overrides seed_file)")
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *seedFile != "" {
		cfg.SeedFile = *seedFile
	}

	appLog, err := logger.New(cfg.Log.Mode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLog.Sync()

	if cfg.Log.Mode == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize database
	db, err := database.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		appLog.Fatal("Failed to open database", "driver", cfg.Database.Driver, "error", err)
	}
	defer db.Close()
	db.LogMode(cfg.Database.Log)

	if err := database.Migrate(db); err != nil {
		appLog.Fatal("Failed to migrate database", "error", err)
	}
	store := database.NewStore(db, appLog)

	if cfg.SeedFile != "" {
		if err := seed(store, cfg, appLog); err != nil {
			appLog.Fatal("Failed to seed database", "file", cfg.SeedFile, "error", err)
		}
	}

	// Initialize metrics, live updates and the scheduler
	metricsCollector := monitoring.NewMetricsCollector(monitoring.NewMonitor())
	hub := realtime.NewHub(appLog)
	defer hub.Close()

	scheduler := scheduling.NewScheduler(store, cfg.Schedule,
		scheduling.WithPublisher(api.NewEventPublisher(hub)),
		scheduling.WithRecorder(metricsCollector),
		scheduling.WithLogger(appLog),
	)

	schedulingAPI := api.NewSchedulingAPI(scheduler, store, hub, metricsCollector, cfg.Auth, appLog)

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsServer = startMetricsServer(cfg.Metrics, metricsCollector, appLog)
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: schedulingAPI.Router,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		appLog.Info("Shutting down servers")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			appLog.Error("API server shutdown error", "error", err)
		}
		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				appLog.Error("Metrics server shutdown error", "error", err)
			}
		}
	}()

	appLog.Info("Starting API server", "port", cfg.Port, "driver", cfg.Database.Driver)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		appLog.Fatal("API server error", "error", err)
	}
}

func seed(store *database.Store, cfg *config.Config, appLog *logger.Logger) error {
	data, err := database.LoadSeed(cfg.SeedFile)
	if err != nil {
		return err
	}
	applied, err := store.ApplySeed(context.Background(), cfg.Auth.DefaultOwner, data)
	if err != nil {
		return err
	}
	if applied {
		appLog.Info("Seeded database", "file", cfg.SeedFile, "owner", cfg.Auth.DefaultOwner)
	}
	return nil
}

func startMetricsServer(cfg config.MetricsConfig, mc *monitoring.MetricsCollector, appLog *logger.Logger) *http.Server {
	metricsRouter := gin.New()
	metricsRouter.GET(cfg.Path, gin.WrapH(mc.Handler()))

	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: metricsRouter,
	}

	go func() {
		appLog.Info("Starting metrics server", "port", cfg.Port, "path", cfg.Path)
		if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
			appLog.Error("Metrics server error", "error", err)
		}
	}()
	return metricsServer
}
