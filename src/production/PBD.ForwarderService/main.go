package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "gitlab.com/plantbuddy1/pbd.data_server/src/production/PBD.Config"
	"gitlab.com/plantbuddy1/pbd.data_server/src/production/PBD.ForwarderService/client"
	"gitlab.com/plantbuddy1/pbd.data_server/src/production/PBD.ForwarderService/forwarder"
	logger "gitlab.com/plantbuddy1/pbd.data_server/src/production/PBD.Logger"
)

func main() {
	log := logger.NewLogger(&config.LoggingConfig{
		Level:  envOr("LOG_LEVEL", "info"),
		Format: envOr("LOG_FORMAT", "text"),
		Output: envOr("LOG_OUTPUT", "stdout"),
	})

	log.Info("Starting Forwarder Service")

	// Load forwarder configuration from environment
	cfg := forwarder.LoadFromEnv()

	// Create API client for the data server's ingest endpoint
	apiClient := client.NewAPIClient(cfg.APIServiceURL, cfg.MaxRetries, cfg.RetryDelay)

	// Create and start the MQTT forwarder
	fwd := forwarder.New(cfg, apiClient, log)
	if err := fwd.Start(context.Background()); err != nil {
		log.FatalWithError(err, "Failed to start forwarder")
	}
	defer fwd.Stop()

	// Start health check server
	go startHealthServer(log, fwd, apiClient)

	log.Info("Forwarder running... press Ctrl+C to stop")

	// Wait for shutdown signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info("Shutting down...")
}

// startHealthServer starts a simple HTTP server for health checks
func startHealthServer(log *logger.Logger, fwd *forwarder.Forwarder, apiClient *client.APIClient) {
	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		// Check MQTT connection
		mqttStatus := "disconnected"
		if fwd.IsConnected() {
			mqttStatus = "connected"
		}

		// Check data server connection
		apiStatus := "disconnected"
		if err := apiClient.Health(ctx); err == nil {
			apiStatus = "connected"
		}

		// Return health status
		status := "healthy"
		if mqttStatus != "connected" || apiStatus != "connected" {
			status = "unhealthy"
		}

		w.Header().Set("Content-Type", "application/json")
		if status == "healthy" {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}

		// Get circuit breaker status
		circuitBreakerStatus := apiClient.GetCircuitBreakerStatus()

		fmt.Fprintf(w, `{
			"status": "%s",
			"timestamp": "%s",
			"services": {
				"mqtt": "%s",
				"api_service": "%s"
			},
			"circuit_breaker": {
				"state": "%s",
				"failure_count": %d
			}
		}`, status, time.Now().UTC().Format(time.RFC3339), mqttStatus, apiStatus,
			circuitBreakerStatus["state"], circuitBreakerStatus["failure_count"])
	})

	port := envOr("FORWARDER_HEALTH_PORT", "8081")
	log.Info("Health server starting on port " + port)

	if err := http.ListenAndServe(":"+port, nil); err != nil {
		log.FatalWithError(err, "Failed to start health server")
	}
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}
