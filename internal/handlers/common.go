package handlers

import (
	"encoding/json"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"filedrop/internal/middleware"
	"filedrop/internal/models"
	"filedrop/internal/services"
)

// parseID parses a numeric path parameter.
func parseID(c *fiber.Ctx, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// callerUser resolves the session identity set by RequireAuth to the
// full user record. The database is authoritative for the admin flag;
// the session copy may be stale.
func callerUser(c *fiber.Ctx, db *gorm.DB) (*models.User, error) {
	sess, ok := middleware.CurrentUser(c)
	if !ok {
		return nil, services.ErrPermissionDenied
	}
	return services.GetUser(db, sess.UserID)
}

// requestDetail captures request context for the download ledger.
func requestDetail(c *fiber.Ctx) models.JSON {
	detail, err := json.Marshal(map[string]string{
		"ip":         c.IP(),
		"user_agent": string(c.Request().Header.UserAgent()),
	})
	if err != nil {
		return models.JSON{}
	}
	var j models.JSON
	if err := j.Scan(detail); err != nil {
		return models.JSON{}
	}
	return j
}
