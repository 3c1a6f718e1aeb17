package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gitlab.com/plantbuddy1/pbd.data_server/src/production/PBD.ApiService/controllers"
	"gitlab.com/plantbuddy1/pbd.data_server/src/production/PBD.ApiService/implementation/readings"
	container "gitlab.com/plantbuddy1/pbd.data_server/src/production/PBD.Container"
	implementation "gitlab.com/plantbuddy1/pbd.data_server/src/production/PBD.Repository/Implementation"
	interfaces "gitlab.com/plantbuddy1/pbd.data_server/src/production/PBD.Repository/Interfaces"
)

func main() {
	// Initialize dependency injection container
	ctr, err := container.NewContainer()
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize container: %v", err))
	}
	defer ctr.Shutdown(context.Background())

	logger := ctr.GetLogger()
	logger.Info("Starting Data Server")

	// Initialize database
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := ctr.InitializeDatabase(ctx); err != nil {
		logger.FatalWithError(err, "Failed to initialize database")
	}

	// Get database connection
	db, err := ctr.GetDatabase()
	if err != nil {
		logger.FatalWithError(err, "Failed to get database connection")
	}

	// Get configuration
	config := ctr.GetConfig()

	// Create the reading repository for the configured engine
	var readingRepo interfaces.ReadingRepository
	switch config.Database.Driver {
	case "postgres":
		readingRepo = implementation.NewPostgresReadingRepository(db)
	default:
		readingRepo = implementation.NewSQLiteReadingRepository(db)
	}

	// Wire the ingest pipeline: store then live fan-out
	hub := ctr.GetHub()
	readingService := readings.NewService(readingRepo, hub, logger)

	healthChecker, err := ctr.GetHealthChecker()
	if err != nil {
		logger.FatalWithError(err, "Failed to get health checker")
	}

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Configure CORS from config
	corsConfig := cors.Config{
		AllowOrigins:     config.CORS.AllowedOrigins,
		AllowMethods:     config.CORS.AllowedMethods,
		AllowHeaders:     config.CORS.AllowedHeaders,
		ExposeHeaders:    config.CORS.ExposedHeaders,
		AllowCredentials: config.CORS.AllowCredentials,
		MaxAge:           time.Duration(config.CORS.MaxAge) * time.Second,
	}
	router.Use(cors.New(corsConfig))

	// Create controllers and register routes
	ingestController := controllers.NewIngestController(readingService, logger)
	readingController := controllers.NewReadingController(readingService, logger)
	exportController := controllers.NewExportController(readingService, logger)
	healthController := controllers.NewHealthController(readingService, healthChecker, logger)

	ingestController.RegisterRoutes(router)
	readingController.RegisterRoutes(router)
	exportController.RegisterRoutes(router)
	healthController.RegisterRoutes(router)

	// Get port from configuration
	port := config.Server.Port

	// Create HTTP server with timeouts
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  config.Server.ReadTimeout,
		WriteTimeout: config.Server.WriteTimeout,
		IdleTimeout:  config.Server.IdleTimeout,
	}

	// Start HTTP server in a goroutine
	go func() {
		logger.Info("HTTP server starting on port " + port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.FatalWithError(err, "Failed to start HTTP server")
		}
	}()

	logger.Info("Data server running... press Ctrl+C to stop")

	// Wait for shutdown signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("Shutting down...")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorWithError(err, "Server forced to shutdown")
	}
}
