package helpers

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"filedrop/internal/models"
)

// CreateTestUser creates a user row with a hashed password
func CreateTestUser(t *testing.T, db *gorm.DB, username, password string, isAdmin bool) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	user := models.User{
		Username:     username,
		PasswordHash: string(hash),
		Name:         "Test " + username,
		IsAdmin:      isAdmin,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create user %s: %v", username, err)
	}
	return &user
}

// CreateTestFile creates a catalog row without a backing blob
func CreateTestFile(t *testing.T, db *gorm.DB, filename string, size int64) *models.File {
	t.Helper()
	file := models.File{
		Filename:    filename,
		StoragePath: filename,
		Size:        size,
	}
	if err := db.Create(&file).Error; err != nil {
		t.Fatalf("Failed to create file %s: %v", filename, err)
	}
	return &file
}

// GrantAccess creates or replaces a single grant row
func GrantAccess(t *testing.T, db *gorm.DB, userID, fileID uint64, permission bool) {
	t.Helper()
	grant := models.FileAccess{
		UserID:     userID,
		FileID:     fileID,
		Permission: permission,
	}
	if err := db.Create(&grant).Error; err != nil {
		t.Fatalf("Failed to create grant (%d, %d): %v", userID, fileID, err)
	}
}

// CountGrants counts grant rows for a (user, file) pair
func CountGrants(t *testing.T, db *gorm.DB, userID, fileID uint64) int64 {
	t.Helper()
	var count int64
	if err := db.Model(&models.FileAccess{}).
		Where("user_id = ? AND file_id = ?", userID, fileID).
		Count(&count).Error; err != nil {
		t.Fatalf("Failed to count grants: %v", err)
	}
	return count
}
