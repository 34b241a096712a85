package services

import (
	"errors"
	"io"
	"log"
	"os"

	"filedrop/internal/models"
	"filedrop/internal/storage"
	"gorm.io/gorm"
)

// Upload stores the blob, creates the catalog row and provisions a
// permissive grant for every existing user. The filename must be new;
// uploads never overwrite. The blob is written before the catalog row
// and removed again if the row insert loses a duplicate race, so the
// catalog stays authoritative.
func Upload(db *gorm.DB, store *storage.Store, filename string, src io.Reader, size int64) (*models.File, error) {
	name := storage.CleanName(filename)
	if name == "" {
		return nil, errors.New("invalid filename")
	}

	var existing models.File
	err := db.Where("filename = ?", name).First(&existing).Error
	if err == nil {
		return nil, ErrDuplicateName
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	path, err := store.Save(name, src)
	if err != nil {
		// Blob paths derive from the filename, so an existing blob is a
		// concurrent upload of the same name that won the race.
		if errors.Is(err, os.ErrExist) {
			return nil, ErrDuplicateName
		}
		return nil, err
	}

	file := models.File{
		Filename:    name,
		StoragePath: path,
		Size:        size,
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&file).Error; err != nil {
			if isDuplicateKey(err) {
				return ErrDuplicateName
			}
			return err
		}
		return grantExistingUsers(tx, file.FileID)
	})
	if err != nil {
		if removeErr := store.Remove(path); removeErr != nil {
			log.Printf("Failed to remove blob %s after rollback: %v", path, removeErr)
		}
		return nil, err
	}

	return &file, nil
}

// Delete removes a file and every row referencing it: grants and ledger
// entries go first, then the catalog row, all in one transaction so no
// grant can dangle. The blob is removed after commit; a blob that is
// already gone is logged, not fatal. Returns ErrNotFound when the id is
// not in the catalog.
func Delete(db *gorm.DB, store *storage.Store, fileID uint64) error {
	var file models.File
	if err := db.First(&file, "file_id = ?", fileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("file_id = ?", fileID).Delete(&models.FileAccess{}).Error; err != nil {
			return err
		}
		if err := tx.Where("file_id = ?", fileID).Delete(&models.DownloadLog{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.File{}, "file_id = ?", fileID).Error
	})
	if err != nil {
		return err
	}

	if err := store.Remove(file.StoragePath); err != nil {
		log.Printf("Failed to remove blob %s for deleted file %d: %v", file.StoragePath, fileID, err)
	}

	return nil
}

// FileEntry is one catalog row in a listing, with the caller's
// effective download permission.
type FileEntry struct {
	models.File
	Allowed bool `json:"allowed"`
}

// ListFiles returns the whole catalog annotated with the caller's
// effective permission per file.
func ListFiles(db *gorm.DB, user *models.User) ([]FileEntry, error) {
	var files []models.File
	if err := db.Order("file_id").Find(&files).Error; err != nil {
		return nil, err
	}

	allowed := make(map[uint64]bool, len(files))
	if !user.IsAdmin {
		var grants []models.FileAccess
		if err := db.Where("user_id = ?", user.UserID).Find(&grants).Error; err != nil {
			return nil, err
		}
		for _, g := range grants {
			allowed[g.FileID] = g.Permission
		}
	}

	entries := make([]FileEntry, 0, len(files))
	for _, f := range files {
		entries = append(entries, FileEntry{
			File:    f,
			Allowed: user.IsAdmin || allowed[f.FileID],
		})
	}
	return entries, nil
}

// GetUser loads a full user record by id.
func GetUser(db *gorm.DB, userID uint64) (*models.User, error) {
	var user models.User
	if err := db.First(&user, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}
