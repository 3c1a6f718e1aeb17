package health

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	config "gitlab.com/plantbuddy1/pbd.data_server/src/production/PBD.Config"
)

// HealthChecker provides health check functionality
type HealthChecker struct {
	db *sql.DB
}

// NewHealthChecker creates a new health checker
func NewHealthChecker(db *sql.DB) *HealthChecker {
	return &HealthChecker{db: db}
}

// PingDatabase checks if the database connection is healthy
func (h *HealthChecker) PingDatabase(ctx context.Context) error {
	if h.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	return h.db.PingContext(ctx)
}

// CheckDatabaseHealth performs a comprehensive database health check
func (h *HealthChecker) CheckDatabaseHealth(ctx context.Context) error {
	if err := h.PingDatabase(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	// Check if we can execute a simple query
	var result int
	err := h.db.QueryRowContext(ctx, "SELECT 1").Scan(&result)
	if err != nil {
		return fmt.Errorf("database query failed: %w", err)
	}

	return nil
}

// GetHealthStatus returns the current health status
func (h *HealthChecker) GetHealthStatus(ctx context.Context) map[string]interface{} {
	status := map[string]interface{}{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    make(map[string]interface{}),
	}

	dbStatus := "ok"
	if err := h.CheckDatabaseHealth(ctx); err != nil {
		dbStatus = "error"
		status["checks"].(map[string]interface{})["database"] = map[string]interface{}{
			"status": dbStatus,
			"error":  err.Error(),
		}
	} else {
		status["checks"].(map[string]interface{})["database"] = map[string]interface{}{
			"status": dbStatus,
		}
	}

	overallStatus := "ok"
	if dbStatus != "ok" {
		overallStatus = "degraded"
	}
	status["status"] = overallStatus

	return status
}

// DatabaseManager handles schema bootstrap
type DatabaseManager struct {
	db     *sql.DB
	driver string
}

// NewDatabaseManager creates a new database manager
func NewDatabaseManager(db *sql.DB, driver string) *DatabaseManager {
	return &DatabaseManager{db: db, driver: driver}
}

// ConnectWithTimeout opens the configured database engine and verifies the
// connection within the timeout.
func ConnectWithTimeout(cfg *config.Config, timeout time.Duration) (*sql.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	db, err := sql.Open(cfg.Database.Driver, cfg.GetDatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("unable to open %s connection: %w", cfg.Database.Driver, err)
	}

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to ping %s: %w", cfg.Database.Driver, err)
	}

	if cfg.Database.Driver == "sqlite3" {
		// SQLite serializes writes on one connection; more just contend.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(cfg.Database.MaxConns)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	return db, nil
}

// CreateTables creates the required tables if they don't exist
func (dm *DatabaseManager) CreateTables(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	idColumn := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if dm.driver == "postgres" {
		idColumn = "BIGSERIAL PRIMARY KEY"
	}

	createPlantDataTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS plant_data (
			id            %s,
			device_id     TEXT NOT NULL DEFAULT 'unknown',
			recorded_at   TIMESTAMP NOT NULL,
			soil_moisture REAL NOT NULL,
			light_level   REAL NOT NULL,
			temperature   REAL NOT NULL,
			humidity      REAL NOT NULL,
			pump_state    INTEGER NOT NULL DEFAULT 0,
			condition     TEXT NOT NULL DEFAULT 'ok'
		);
	`, idColumn)

	createDeviceIndex := `
		CREATE INDEX IF NOT EXISTS idx_plant_data_device_id ON plant_data(device_id, id);
	`

	if _, err := dm.db.ExecContext(ctx, createPlantDataTable); err != nil {
		return fmt.Errorf("failed to create plant_data table: %w", err)
	}
	if _, err := dm.db.ExecContext(ctx, createDeviceIndex); err != nil {
		return fmt.Errorf("failed to create plant_data index: %w", err)
	}

	return nil
}
