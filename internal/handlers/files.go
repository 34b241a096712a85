package handlers

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"filedrop/internal/services"
	"filedrop/internal/storage"
	"filedrop/internal/utils"
)

// FileHandler handles catalog, upload, download and delete routes
type FileHandler struct {
	DB    *gorm.DB
	Store *storage.Store
}

// List handles GET /api/files
// @Summary List files
// @Description Lists the catalog with the caller's effective permission per file
// @Tags Files
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /files [get]
func (h *FileHandler) List(c *fiber.Ctx) error {
	user, err := callerUser(c, h.DB)
	if err != nil {
		return utils.ErrorResponse(c, "Unknown session user", fiber.StatusUnauthorized, "files.list.session")
	}

	entries, err := services.ListFiles(h.DB, user)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "listFiles")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"files": entries,
	})
}

// Upload handles POST /api/files
// @Summary Upload a file
// @Description Stores a new file and provisions grants for every existing user. Admin only.
// @Tags Files
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "File content"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /files [post]
func (h *FileHandler) Upload(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return utils.ErrorResponse(c, "Missing file field", fiber.StatusBadRequest, "files.upload.input")
	}

	src, err := fileHeader.Open()
	if err != nil {
		return utils.ErrorResponse(c, "Unable to read upload", fiber.StatusBadRequest, "files.upload.input")
	}
	defer src.Close()

	file, err := services.Upload(h.DB, h.Store, fileHeader.Filename, src, fileHeader.Size)
	if err != nil {
		if errors.Is(err, services.ErrDuplicateName) {
			return utils.ErrorResponse(c, "File already exists", fiber.StatusConflict, "files.upload.duplicate")
		}
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "uploadFile")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"ok":      true,
		"message": "File uploaded successfully",
		"file":    file,
	})
}

// Download handles GET /api/files/:id/download
// @Summary Download a file
// @Description Streams the blob when the caller is an admin or holds a permissive grant
// @Tags Files
// @Produce octet-stream
// @Param id path int true "File ID"
// @Success 200 {file} file
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /files/{id}/download [get]
func (h *FileHandler) Download(c *fiber.Ctx) error {
	fileID, ok := parseID(c, "id")
	if !ok {
		return utils.ErrorResponse(c, "Invalid file id", fiber.StatusBadRequest, "files.download.input")
	}

	user, err := callerUser(c, h.DB)
	if err != nil {
		return utils.ErrorResponse(c, "Unknown session user", fiber.StatusUnauthorized, "files.download.session")
	}

	file, err := services.AuthorizeDownload(h.DB, user, fileID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			return utils.NotFoundResponse(c, fmt.Sprintf("File %d not found", fileID))
		case errors.Is(err, services.ErrPermissionDenied):
			return utils.ErrorResponse(c, "You do not have permission to download this file", fiber.StatusForbidden, "files.download.permission")
		}
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "downloadFile")
	}

	// Count and log before streaming; both land in one commit.
	if err := services.RecordDownload(h.DB, user.UserID, file, requestDetail(c)); err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "recordDownload")
	}

	c.Set(fiber.HeaderCacheControl, "private, no-cache, no-store, must-revalidate")
	return c.Download(h.Store.Abs(file.StoragePath), file.Filename)
}

// Delete handles DELETE /api/files/:id
// @Summary Delete a file
// @Description Removes the file, its grants and its download log entries. Admin only.
// @Tags Files
// @Produce json
// @Param id path int true "File ID"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /files/{id} [delete]
func (h *FileHandler) Delete(c *fiber.Ctx) error {
	fileID, ok := parseID(c, "id")
	if !ok {
		return utils.ErrorResponse(c, "Invalid file id", fiber.StatusBadRequest, "files.delete.input")
	}

	if err := services.Delete(h.DB, h.Store, fileID); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			// Reported, not fatal: the row was already gone.
			return utils.NotFoundResponse(c, fmt.Sprintf("File %d not found, nothing deleted", fileID))
		}
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "deleteFile")
	}

	return utils.MutationSuccessResponse(c, "File deleted successfully", 1)
}
