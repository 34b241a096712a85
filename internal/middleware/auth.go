package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"filedrop/internal/models"
	"filedrop/internal/types"
)

// localsUserKey is the Fiber Locals key holding the SessionUser.
const localsUserKey = "sessionUser"

// RequireAuth validates the session cookie and stores the caller's
// identity in the request context.
func RequireAuth(store *SessionStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(SessionCookieName)
		if token == "" {
			return &types.AppError{
				Code:    fiber.StatusUnauthorized,
				Message: "Authentication required",
				Type:    "auth.session.missing",
			}
		}

		user, ok := store.Get(token)
		if !ok {
			return &types.AppError{
				Code:    fiber.StatusUnauthorized,
				Message: "Session expired or invalid",
				Type:    "auth.session.invalid",
			}
		}

		c.Locals(localsUserKey, user)
		return c.Next()
	}
}

// RequireAdmin rejects callers without the admin flag. The flag is
// reread from the database on every request, so revoking admin takes
// effect without waiting for the session to expire. Must run after
// RequireAuth.
func RequireAdmin(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		denied := &types.AppError{
			Code:    fiber.StatusForbidden,
			Message: "Admin access required",
			Type:    "auth.authorization.admin",
		}

		sess, ok := c.Locals(localsUserKey).(SessionUser)
		if !ok {
			return denied
		}

		var user models.User
		if err := db.First(&user, "user_id = ?", sess.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return denied
			}
			return err
		}
		if !user.IsAdmin {
			return denied
		}
		return c.Next()
	}
}

// CurrentUser returns the authenticated identity set by RequireAuth.
func CurrentUser(c *fiber.Ctx) (SessionUser, bool) {
	user, ok := c.Locals(localsUserKey).(SessionUser)
	return user, ok
}
