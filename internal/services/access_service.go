package services

import (
	"errors"

	"filedrop/internal/models"
	"gorm.io/gorm"
)

// CanDownload decides whether a user may download a file. Admins bypass
// the grant table entirely; for everyone else the grant row's
// permission applies, and a missing row means deny. Pure query, no side
// effects.
func CanDownload(db *gorm.DB, user *models.User, fileID uint64) (bool, error) {
	if user.IsAdmin {
		return true, nil
	}

	var grant models.FileAccess
	err := db.Where("user_id = ? AND file_id = ?", user.UserID, fileID).
		First(&grant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return grant.Permission, nil
}

// AuthorizeDownload resolves a file id for download on behalf of a
// user. Returns ErrNotFound when the file id is not in the catalog and
// ErrPermissionDenied when the caller has no effective grant; the two
// are distinct conditions.
func AuthorizeDownload(db *gorm.DB, user *models.User, fileID uint64) (*models.File, error) {
	var file models.File
	if err := db.First(&file, "file_id = ?", fileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	allowed, err := CanDownload(db, user, file.FileID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrPermissionDenied
	}

	return &file, nil
}

// RecordDownload increments the file's download counter by one and
// appends a ledger row, inside a single transaction so the counter and
// the ledger can never disagree. The caller must already have
// authorized the download; admins and permitted users are recorded
// identically.
func RecordDownload(db *gorm.DB, userID uint64, file *models.File, detail models.JSON) error {
	return db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.File{}).
			Where("file_id = ?", file.FileID).
			UpdateColumn("download_count", gorm.Expr("download_count + ?", 1))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}

		entry := models.DownloadLog{
			UserID: userID,
			FileID: file.FileID,
			Detail: detail,
		}
		return tx.Create(&entry).Error
	})
}
