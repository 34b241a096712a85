package services

import (
	"fmt"
	"log"
	"os"

	"filedrop/internal/config"
	"gorm.io/gorm"
)

// HealthCheckResult represents the result of a health check
type HealthCheckResult struct {
	Status       string            `json:"status"`
	Database     string            `json:"database"`
	Storage      string            `json:"storage"`
	Details      map[string]string `json:"details,omitempty"`
	ErrorMessage string            `json:"error,omitempty"`
}

// HealthCheck performs a comprehensive health check of the service
func HealthCheck(cfg *config.Config, db *gorm.DB) HealthCheckResult {
	result := HealthCheckResult{
		Status:  "healthy",
		Details: make(map[string]string),
	}

	// Check database connectivity
	sqlDB, err := db.DB()
	if err != nil {
		result.Status = "unhealthy"
		result.Database = "error"
		result.Details["database_error"] = err.Error()
		result.ErrorMessage = fmt.Sprintf("Database connection error: %v", err)
		log.Printf("Health check failed - database connection: %v", err)
	} else {
		if err := sqlDB.Ping(); err != nil {
			result.Status = "unhealthy"
			result.Database = "unreachable"
			result.Details["database_ping_error"] = err.Error()
			result.ErrorMessage = fmt.Sprintf("Database ping failed: %v", err)
			log.Printf("Health check failed - database ping: %v", err)
		} else {
			result.Database = "ok"
			result.Details["database_type"] = cfg.DBType
			result.Details["database_name"] = cfg.DBDatabase
		}
	}

	// Check that the upload directory exists and is a directory
	info, err := os.Stat(cfg.UploadDir)
	switch {
	case err != nil:
		result.Status = "unhealthy"
		result.Storage = "unreachable"
		result.Details["storage_error"] = err.Error()
		if result.ErrorMessage == "" {
			result.ErrorMessage = fmt.Sprintf("Upload directory check failed: %v", err)
		} else {
			result.ErrorMessage += fmt.Sprintf("; upload directory check failed: %v", err)
		}
		log.Printf("Health check failed - upload directory: %v", err)
	case !info.IsDir():
		result.Status = "unhealthy"
		result.Storage = "error"
		result.Details["storage_error"] = fmt.Sprintf("%s is not a directory", cfg.UploadDir)
		if result.ErrorMessage == "" {
			result.ErrorMessage = fmt.Sprintf("%s is not a directory", cfg.UploadDir)
		}
	default:
		result.Storage = "ok"
		result.Details["storage_dir"] = cfg.UploadDir
	}

	if result.Status == "healthy" {
		log.Println("Health check passed - all systems operational")
	}

	return result
}
