package handlers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"filedrop/internal/config"
	"filedrop/internal/services"
)

// HealthHandler handles the health probe route
type HealthHandler struct {
	Cfg *config.Config
	DB  *gorm.DB
}

// Health handles GET /health
// @Summary Health check
// @Description Reports database and storage health
// @Tags Health
// @Produce json
// @Success 200 {object} services.HealthCheckResult
// @Failure 503 {object} services.HealthCheckResult
// @Router /health [get]
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	result := services.HealthCheck(h.Cfg, h.DB)
	status := fiber.StatusOK
	if result.Status != "healthy" {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(result)
}
