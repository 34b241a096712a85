package services

import (
	"errors"

	"filedrop/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/hints"
)

// SetPermission upserts the grant row for one (user, file) pair.
// The composite unique index keeps the pair unique; a losing racer
// falls back to updating the row the winner created. Returns
// ErrNotFound if either id does not exist.
func SetPermission(db *gorm.DB, userID, fileID uint64, permission bool) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, "user_id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		var file models.File
		if err := tx.First(&file, "file_id = ?", fileID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		var grant models.FileAccess
		err := tx.Where("user_id = ? AND file_id = ?", userID, fileID).
			First(&grant).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			grant = models.FileAccess{
				UserID:     userID,
				FileID:     fileID,
				Permission: permission,
			}
			if err := tx.Create(&grant).Error; err != nil {
				if isDuplicateKey(err) {
					return tx.Model(&models.FileAccess{}).
						Where("user_id = ? AND file_id = ?", userID, fileID).
						Update("permission", permission).Error
				}
				return err
			}
			return nil
		}
		if err != nil {
			return err
		}

		if grant.Permission == permission {
			return nil
		}
		return tx.Model(&grant).Update("permission", permission).Error
	})
}

// grantExistingFiles inserts one permissive grant per existing file for
// a newly created user. Runs inside the caller's transaction so the
// enumeration is a consistent snapshot.
func grantExistingFiles(tx *gorm.DB, userID uint64) error {
	var fileIDs []uint64
	if err := tx.Model(&models.File{}).Pluck("file_id", &fileIDs).Error; err != nil {
		return err
	}
	if len(fileIDs) == 0 {
		return nil
	}

	grants := make([]models.FileAccess, 0, len(fileIDs))
	for _, fileID := range fileIDs {
		grants = append(grants, models.FileAccess{
			UserID:     userID,
			FileID:     fileID,
			Permission: true,
		})
	}
	// The unique pair index plus DO NOTHING keeps interleaved
	// provisioning from ever duplicating a grant.
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&grants).Error
}

// grantExistingUsers inserts one permissive grant per existing user for
// a newly created file. Runs inside the caller's transaction.
func grantExistingUsers(tx *gorm.DB, fileID uint64) error {
	var userIDs []uint64
	if err := tx.Model(&models.User{}).Pluck("user_id", &userIDs).Error; err != nil {
		return err
	}
	if len(userIDs) == 0 {
		return nil
	}

	grants := make([]models.FileAccess, 0, len(userIDs))
	for _, userID := range userIDs {
		grants = append(grants, models.FileAccess{
			UserID:     userID,
			FileID:     fileID,
			Permission: true,
		})
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&grants).Error
}

// MatrixUser is one column of the grant matrix.
type MatrixUser struct {
	UserID   uint64 `json:"user_id"`
	Username string `json:"username"`
}

// MatrixFile is one row of the grant matrix: a file and the effective
// permission for every user, absence reported as false.
type MatrixFile struct {
	FileID      uint64          `json:"file_id"`
	Filename    string          `json:"filename"`
	Permissions map[uint64]bool `json:"permissions"`
}

// Matrix is the full (user x file) grant table for the admin
// management page.
type Matrix struct {
	Users []MatrixUser `json:"users"`
	Files []MatrixFile `json:"files"`
}

// GrantMatrix builds the full permission matrix.
func GrantMatrix(db *gorm.DB) (*Matrix, error) {
	var users []models.User
	if err := db.Order("user_id").Find(&users).Error; err != nil {
		return nil, err
	}

	var files []models.File
	if err := db.Order("file_id").Find(&files).Error; err != nil {
		return nil, err
	}

	var grants []models.FileAccess
	// Comment hint caps runaway matrix scans on MySQL; other dialects
	// ignore it.
	if err := db.Clauses(hints.New("MAX_EXECUTION_TIME(10000)")).
		Find(&grants).Error; err != nil {
		return nil, err
	}

	matrix := &Matrix{
		Users: make([]MatrixUser, 0, len(users)),
		Files: make([]MatrixFile, 0, len(files)),
	}
	for _, u := range users {
		matrix.Users = append(matrix.Users, MatrixUser{UserID: u.UserID, Username: u.Username})
	}

	byFile := make(map[uint64]map[uint64]bool, len(files))
	for _, f := range files {
		perms := make(map[uint64]bool, len(users))
		for _, u := range users {
			perms[u.UserID] = false
		}
		byFile[f.FileID] = perms
	}
	for _, g := range grants {
		if perms, ok := byFile[g.FileID]; ok {
			perms[g.UserID] = g.Permission
		}
	}
	for _, f := range files {
		matrix.Files = append(matrix.Files, MatrixFile{
			FileID:      f.FileID,
			Filename:    f.Filename,
			Permissions: byFile[f.FileID],
		})
	}

	return matrix, nil
}
