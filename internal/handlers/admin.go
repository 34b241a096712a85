package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"filedrop/internal/services"
	"filedrop/internal/types"
	"filedrop/internal/utils"
)

// AdminHandler handles the grant-management routes
type AdminHandler struct {
	DB *gorm.DB
}

// grantUpdate is one permission change. Ids arrive as numbers or
// strings depending on the client; permission additionally accepts the
// checkbox form value.
type grantUpdate struct {
	UserID     types.FlexUint64 `json:"user_id"`
	FileID     types.FlexUint64 `json:"file_id"`
	Permission types.FlexBool   `json:"permission"`
}

// GetPermissions handles GET /api/admin/permissions
// @Summary Get the grant matrix
// @Description Returns every (user, file) pair with its current permission. Admin only.
// @Tags Admin
// @Produce json
// @Success 200 {object} services.Matrix
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /admin/permissions [get]
func (h *AdminHandler) GetPermissions(c *fiber.Ctx) error {
	matrix, err := services.GrantMatrix(h.DB)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "getPermissions")
	}
	return c.Status(fiber.StatusOK).JSON(matrix)
}

// SetPermissions handles POST /api/admin/permissions
// @Summary Update grants
// @Description Upserts one or more (user, file) permissions. Admin only.
// @Tags Admin
// @Accept json
// @Produce json
// @Param body body grantUpdate true "Permission change (single object or array)"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /admin/permissions [post]
func (h *AdminHandler) SetPermissions(c *fiber.Ctx) error {
	var body types.FlexList[grantUpdate]
	if err := c.BodyParser(&body); err != nil {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "admin.validation.input")
	}

	updates := body.Slice()
	if len(updates) == 0 {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "admin.validation.input")
	}

	var affected int64
	for _, u := range updates {
		if u.UserID == 0 || u.FileID == 0 {
			return utils.ErrorResponse(c, "user_id and file_id are required", fiber.StatusBadRequest, "admin.validation.input")
		}
		err := services.SetPermission(h.DB, u.UserID.Uint64(), u.FileID.Uint64(), u.Permission.Bool())
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				return utils.NotFoundResponse(c, "Unknown user or file id")
			}
			return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "setPermissions")
		}
		affected++
	}

	return utils.MutationSuccessResponse(c, "Permissions updated", affected)
}
